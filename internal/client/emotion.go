package client

import (
	"context"
	"sync"
	"time"

	"github.com/empathyai/companion/internal/analysis/emotion"
)

// DefaultSampleInterval is the camera polling cadence.
const DefaultSampleInterval = 100 * time.Millisecond

// Frame is one captured camera image, encoded for the detector.
type Frame []byte

// FrameSource yields the current camera frame. Grabbing a frame may fail
// transiently; the sampler treats that like an empty detection.
type FrameSource interface {
	Frame(ctx context.Context) (Frame, error)
}

// Detector scores facial expressions in a frame. Load runs once before the
// first detection; Detect returns one score set per detected face, strongest
// face first, or an empty slice when no face is visible.
type Detector interface {
	Load(ctx context.Context) error
	Detect(ctx context.Context, frame Frame) ([]emotion.Scores, error)
}

// Sampler polls the camera on a fixed cadence and keeps the dominant
// expression label of the most recent frame that contained a face. Missed
// frames preserve the previous label rather than clearing it, so the reading
// is steady while the user glances away.
type Sampler struct {
	detector Detector
	interval time.Duration
	errors   ErrorSink

	mu         sync.Mutex
	label      emotion.Label
	hasLabel   bool
	loaded     bool
	loadFailed bool
	generation int
	stop       func()
}

// NewSampler polls at DefaultSampleInterval.
func NewSampler(detector Detector, errors ErrorSink) *Sampler {
	return &Sampler{detector: detector, interval: DefaultSampleInterval, errors: errors}
}

// Current returns the latest dominant label, if any frame has produced one
// since Start.
func (s *Sampler) Current() (emotion.Label, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.label, s.hasLabel
}

// Start loads the detector on first use and begins polling the source. If the
// detector fails to load, the feature stays disabled for the rest of the
// session and a camera error surfaces once. Starting while already running
// restarts against the new source.
func (s *Sampler) Start(ctx context.Context, source FrameSource) error {
	s.mu.Lock()
	if s.loadFailed {
		s.mu.Unlock()
		return ErrDetectorUnavailable
	}
	needLoad := !s.loaded
	s.mu.Unlock()

	if needLoad {
		if err := s.detector.Load(ctx); err != nil {
			s.mu.Lock()
			s.loadFailed = true
			s.mu.Unlock()
			s.errors.emit(CategoryCamera, "Failed to start the camera. Facial detection is unavailable.", err)
			return ErrDetectorUnavailable
		}
		s.mu.Lock()
		s.loaded = true
		s.mu.Unlock()
	}

	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	if s.stop != nil {
		s.stop()
	}
	s.stop = cancel
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	go s.poll(ctx, source, gen)
	return nil
}

// Stop ends polling and clears the label.
func (s *Sampler) Stop() {
	s.mu.Lock()
	stop := s.stop
	s.stop = nil
	s.generation++
	s.label = ""
	s.hasLabel = false
	s.mu.Unlock()

	if stop != nil {
		stop()
	}
}

func (s *Sampler) poll(ctx context.Context, source FrameSource, gen int) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sample(ctx, source, gen)
		}
	}
}

func (s *Sampler) sample(ctx context.Context, source FrameSource, gen int) {
	frame, err := source.Frame(ctx)
	if err != nil {
		return
	}

	detections, err := s.detector.Detect(ctx, frame)
	if err != nil || len(detections) == 0 {
		// No face this frame. The previous label stands.
		return
	}

	label, ok := emotion.Dominant(detections[0])
	if !ok {
		return
	}

	s.mu.Lock()
	// A stale goroutine must not overwrite the label after Stop or restart.
	if gen == s.generation {
		s.label = label
		s.hasLabel = true
	}
	s.mu.Unlock()
}
