package client

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/empathyai/companion/internal/model/chat"
)

type fakeSource struct {
	ch     chan []byte
	mu     sync.Mutex
	closed bool
}

func newFakeSource(chunks ...[]byte) *fakeSource {
	ch := make(chan []byte, len(chunks))
	for _, c := range chunks {
		ch <- c
	}
	return &fakeSource{ch: ch}
}

func (f *fakeSource) Chunks() <-chan []byte { return f.ch }

func (f *fakeSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.ch)
	}
	return nil
}

func (f *fakeSource) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type fakeMic struct {
	sources []*fakeSource
	err     error
}

func (f *fakeMic) Open(context.Context) (AudioSource, error) {
	if f.err != nil {
		return nil, f.err
	}
	source := newFakeSource()
	f.sources = append(f.sources, source)
	return source, nil
}

type fakeTranscriber struct {
	text     string
	err      error
	lastName string
	audio    []byte
}

func (f *fakeTranscriber) Transcribe(_ context.Context, audio []byte, filename string) (string, error) {
	f.audio = audio
	f.lastName = filename
	return f.text, f.err
}

type sentRecord struct {
	text    string
	emotion string
}

func newTestRecorder(mic Microphone, tr Transcriber) (*Recorder, *[]sentRecord, *[]*Error) {
	var sent []sentRecord
	var surfaced []*Error
	r := NewRecorder(mic, tr, func(_ context.Context, text, emotionTag string) error {
		sent = append(sent, sentRecord{text: text, emotion: emotionTag})
		return nil
	}, func(e *Error) { surfaced = append(surfaced, e) })
	return r, &sent, &surfaced
}

func TestRecorderCapturesTranscribesAndSends(t *testing.T) {
	mic := &fakeMic{}
	tr := &fakeTranscriber{text: "hello from my voice"}
	r, sent, _ := newTestRecorder(mic, tr)

	require.NoError(t, r.Start(context.Background()))
	require.True(t, r.Recording())

	mic.sources[0].ch <- []byte("abc")
	mic.sources[0].ch <- []byte("def")

	artifact, err := r.Stop(context.Background())
	require.NoError(t, err)
	require.False(t, r.Recording())
	require.Equal(t, []byte("abcdef"), artifact.Bytes())
	require.Equal(t, []byte("abcdef"), tr.audio)
	require.Equal(t, DownloadFilename, tr.lastName)

	require.Len(t, *sent, 1)
	require.Equal(t, "hello from my voice", (*sent)[0].text)
	require.Equal(t, chat.EmotionTranscribed, (*sent)[0].emotion)
	require.True(t, mic.sources[0].isClosed(), "the device is released on stop")
}

func TestRecorderReleasesPreviousArtifactOnStart(t *testing.T) {
	mic := &fakeMic{}
	r, _, _ := newTestRecorder(mic, &fakeTranscriber{text: "first"})

	require.NoError(t, r.Start(context.Background()))
	mic.sources[0].ch <- []byte("one")
	first, err := r.Stop(context.Background())
	require.NoError(t, err)
	require.NotNil(t, first.Bytes())

	// Starting again frees the old recording before the new one exists.
	require.NoError(t, r.Start(context.Background()))
	require.Nil(t, first.Bytes(), "the previous recording is released on restart")
	_, ok := r.Artifact()
	require.False(t, ok)

	mic.sources[1].ch <- []byte("two")
	second, err := r.Stop(context.Background())
	require.NoError(t, err)
	require.Equal(t, []byte("two"), second.Bytes())
}

// gatedSource delays Close until the gate opens, holding its capture's drain
// in flight.
type gatedSource struct {
	*fakeSource
	gate chan struct{}
}

func (g *gatedSource) Close() error {
	<-g.gate
	return g.fakeSource.Close()
}

type scriptedMic struct {
	sources []AudioSource
	opened  int
}

func (m *scriptedMic) Open(context.Context) (AudioSource, error) {
	source := m.sources[m.opened]
	m.opened++
	return source, nil
}

func TestRecorderOverlappingCapturesKeepSeparateBuffers(t *testing.T) {
	first := newFakeSource()
	gate := make(chan struct{})
	second := newFakeSource()
	mic := &scriptedMic{sources: []AudioSource{
		&gatedSource{fakeSource: first, gate: gate},
		second,
	}}
	r, _, _ := newTestRecorder(mic, &fakeTranscriber{})

	require.NoError(t, r.Start(context.Background()))
	first.ch <- []byte("one")

	stopped := make(chan *Artifact, 1)
	go func() {
		artifact, _ := r.Stop(context.Background())
		stopped <- artifact
	}()
	// The stop has detached its capture and is blocked releasing the device.
	require.Eventually(t, func() bool { return !r.Recording() }, time.Second, time.Millisecond)

	// A new capture arms while the old one is still draining; each keeps
	// its own buffer.
	require.NoError(t, r.Start(context.Background()))
	second.ch <- []byte("two")

	close(gate)
	firstArtifact := <-stopped
	require.Equal(t, []byte("one"), firstArtifact.Bytes())

	secondArtifact, err := r.Stop(context.Background())
	require.NoError(t, err)
	require.Equal(t, []byte("two"), secondArtifact.Bytes())

	kept, ok := r.Artifact()
	require.True(t, ok)
	require.Same(t, secondArtifact, kept, "the finished stop must not clobber the newer recording")
}

func TestRecorderStartWhileRecordingIsNoOp(t *testing.T) {
	mic := &fakeMic{}
	r, _, _ := newTestRecorder(mic, &fakeTranscriber{})

	require.NoError(t, r.Start(context.Background()))
	require.NoError(t, r.Start(context.Background()))
	require.Len(t, mic.sources, 1)

	_, err := r.Stop(context.Background())
	require.NoError(t, err)
}

func TestRecorderStopWithoutStart(t *testing.T) {
	r, _, _ := newTestRecorder(&fakeMic{}, &fakeTranscriber{})
	_, err := r.Stop(context.Background())
	require.ErrorIs(t, err, ErrNotRecording)
}

func TestRecorderMicFailureSurfacesAudioError(t *testing.T) {
	mic := &fakeMic{err: errors.New("device busy")}
	r, _, surfaced := newTestRecorder(mic, &fakeTranscriber{})

	require.Error(t, r.Start(context.Background()))
	require.False(t, r.Recording())
	require.Len(t, *surfaced, 1)
	require.Equal(t, CategoryAudio, (*surfaced)[0].Category)
}

func TestRecorderTranscriptionFailureKeepsArtifact(t *testing.T) {
	mic := &fakeMic{}
	tr := &fakeTranscriber{err: errors.New("recognizer down")}
	r, sent, surfaced := newTestRecorder(mic, tr)

	require.NoError(t, r.Start(context.Background()))
	mic.sources[0].ch <- []byte("audio")
	artifact, err := r.Stop(context.Background())

	require.Error(t, err)
	require.Equal(t, []byte("audio"), artifact.Bytes(), "playback survives a failed transcription")
	require.Empty(t, *sent)
	require.Equal(t, CategoryAudio, (*surfaced)[0].Category)

	kept, ok := r.Artifact()
	require.True(t, ok)
	require.Same(t, artifact, kept)
}

func TestRecorderEmptyTranscriptSendsNothing(t *testing.T) {
	mic := &fakeMic{}
	r, sent, _ := newTestRecorder(mic, &fakeTranscriber{text: ""})

	require.NoError(t, r.Start(context.Background()))
	mic.sources[0].ch <- []byte("quiet")
	_, err := r.Stop(context.Background())
	require.NoError(t, err)
	require.Empty(t, *sent)
}

func TestRecorderOnTranscriptHook(t *testing.T) {
	mic := &fakeMic{}
	r, _, _ := newTestRecorder(mic, &fakeTranscriber{text: "noted"})

	var observed string
	r.OnTranscript = func(text string) { observed = text }

	require.NoError(t, r.Start(context.Background()))
	mic.sources[0].ch <- []byte("x")
	_, err := r.Stop(context.Background())
	require.NoError(t, err)
	require.Equal(t, "noted", observed)
}

func TestArtifactSaveTo(t *testing.T) {
	artifact := &Artifact{data: []byte("wav-bytes")}

	dir := t.TempDir()
	path, err := artifact.SaveTo(dir)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, DownloadFilename), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, []byte("wav-bytes"), data)

	artifact.Release()
	_, err = artifact.SaveTo(dir)
	require.Error(t, err)
}

func TestPlaybackSpeeds(t *testing.T) {
	r, _, _ := newTestRecorder(&fakeMic{}, &fakeTranscriber{})
	require.Equal(t, 1.0, r.Speed())

	for _, speed := range PlaybackSpeeds {
		require.NoError(t, r.SetSpeed(speed))
		require.Equal(t, speed, r.Speed())
	}

	require.ErrorIs(t, r.SetSpeed(1.25), ErrInvalidSpeed)
	require.Equal(t, 2.0, r.Speed(), "a rejected speed leaves the setting alone")
}
