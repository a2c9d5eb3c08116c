package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/empathyai/companion/internal/model/chat"
)

// PlaybackSpeeds are the rates the playback control cycles through.
var PlaybackSpeeds = []float64{1, 1.5, 1.7, 2}

// DownloadFilename is the fixed name recordings are saved under.
const DownloadFilename = "recording.wav"

// ErrInvalidSpeed is returned for a playback rate outside PlaybackSpeeds.
var ErrInvalidSpeed = errors.New("unsupported playback speed")

// ErrNotRecording is returned when Stop is called with no capture running.
var ErrNotRecording = errors.New("no recording in progress")

// AudioSource is an open microphone capture. Chunks yields encoded audio
// until the source is closed; Close releases the device.
type AudioSource interface {
	Chunks() <-chan []byte
	Close() error
}

// Microphone opens a capture session on the audio device.
type Microphone interface {
	Open(ctx context.Context) (AudioSource, error)
}

// Transcriber turns a finished recording into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

// Artifact is one finished recording, playable and savable until released.
type Artifact struct {
	mu       sync.Mutex
	data     []byte
	released bool
}

// Bytes returns the recording, or nil once released.
func (a *Artifact) Bytes() []byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.released {
		return nil
	}
	return a.data
}

// SaveTo writes the recording under DownloadFilename inside dir.
func (a *Artifact) SaveTo(dir string) (string, error) {
	a.mu.Lock()
	data := a.data
	released := a.released
	a.mu.Unlock()

	if released {
		return "", errors.New("recording already released")
	}
	path := filepath.Join(dir, DownloadFilename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to save recording: %w", err)
	}
	return path, nil
}

// WriteTo streams the recording, satisfying io.WriterTo for playback.
func (a *Artifact) WriteTo(w io.Writer) (int64, error) {
	data := a.Bytes()
	if data == nil {
		return 0, errors.New("recording already released")
	}
	n, err := w.Write(data)
	return int64(n), err
}

// Release frees the recording's storage. Safe to call twice.
func (a *Artifact) Release() {
	a.mu.Lock()
	a.data = nil
	a.released = true
	a.mu.Unlock()
}

// SendFunc routes transcribed text into the chat flow.
type SendFunc func(ctx context.Context, text, emotionTag string) error

// Recorder drives the capture pipeline: record chunks, freeze them into an
// artifact, transcribe, and hand the text to the chat flow tagged as a
// transcription.
type Recorder struct {
	mic         Microphone
	transcriber Transcriber
	send        SendFunc
	errors      ErrorSink

	// OnTranscript, when set, observes each successful transcription.
	OnTranscript func(text string)

	mu         sync.Mutex
	active     *capture
	artifact   *Artifact
	speed      float64
	generation int
}

// capture is one recording in progress. The collector goroutine owns data
// exclusively until done is closed, so an overlapping capture can never
// touch another capture's buffer.
type capture struct {
	source AudioSource
	done   chan struct{}
	data   []byte
}

func (c *capture) collect() {
	defer close(c.done)
	var chunks [][]byte
	var total int
	for chunk := range c.source.Chunks() {
		chunks = append(chunks, chunk)
		total += len(chunk)
	}
	c.data = make([]byte, 0, total)
	for _, chunk := range chunks {
		c.data = append(c.data, chunk...)
	}
}

// NewRecorder wires the recorder to the device and the chat flow.
func NewRecorder(mic Microphone, transcriber Transcriber, send SendFunc, errors ErrorSink) *Recorder {
	return &Recorder{
		mic:         mic,
		transcriber: transcriber,
		send:        send,
		errors:      errors,
		speed:       PlaybackSpeeds[0],
	}
}

// Recording reports whether a capture is in progress.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active != nil
}

// Artifact returns the last finished recording, if one exists.
func (r *Recorder) Artifact() (*Artifact, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.artifact, r.artifact != nil
}

// Speed returns the current playback rate.
func (r *Recorder) Speed() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.speed
}

// SetSpeed selects a playback rate from PlaybackSpeeds.
func (r *Recorder) SetSpeed(speed float64) error {
	for _, allowed := range PlaybackSpeeds {
		if allowed == speed {
			r.mu.Lock()
			r.speed = speed
			r.mu.Unlock()
			return nil
		}
	}
	return ErrInvalidSpeed
}

// Start opens the microphone and begins collecting chunks. A previous
// artifact is released before the new capture starts so its storage never
// outlives its replacement. Starting while already recording is a no-op.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.active != nil {
		r.mu.Unlock()
		return nil
	}
	prev := r.artifact
	r.artifact = nil
	r.mu.Unlock()

	if prev != nil {
		prev.Release()
	}

	source, err := r.mic.Open(ctx)
	if err != nil {
		r.errors.emit(CategoryAudio, "Failed to start recording. Please check your microphone.", err)
		return err
	}

	c := &capture{source: source, done: make(chan struct{})}
	r.mu.Lock()
	if r.active != nil {
		// A concurrent Start won the race; this capture never armed.
		r.mu.Unlock()
		source.Close()
		return nil
	}
	r.active = c
	r.generation++
	r.mu.Unlock()

	go c.collect()
	return nil
}

// Stop closes the device, freezes the collected chunks into the artifact,
// transcribes them, and sends the text into the chat flow tagged as a
// transcription. Transcription failures keep the artifact; only the chat send
// is lost.
func (r *Recorder) Stop(ctx context.Context) (*Artifact, error) {
	r.mu.Lock()
	c := r.active
	gen := r.generation
	r.active = nil
	r.mu.Unlock()

	if c == nil {
		return nil, ErrNotRecording
	}

	// Closing the device ends the chunk stream; wait for the collector to
	// drain it before freezing.
	if err := c.source.Close(); err != nil {
		r.errors.emit(CategoryAudio, "Failed to stop recording.", err)
	}
	<-c.done

	artifact := &Artifact{data: c.data}
	r.mu.Lock()
	if gen == r.generation {
		r.artifact = artifact
	}
	r.mu.Unlock()

	text, err := r.transcriber.Transcribe(ctx, c.data, DownloadFilename)
	if err != nil {
		r.errors.emit(CategoryAudio, "Failed to transcribe recording.", err)
		return artifact, err
	}
	if text == "" {
		return artifact, nil
	}

	if r.OnTranscript != nil {
		r.OnTranscript(text)
	}
	if r.send != nil {
		if err := r.send(ctx, text, chat.EmotionTranscribed); err != nil {
			return artifact, err
		}
	}
	return artifact, nil
}
