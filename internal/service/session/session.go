// Package session runs the capture loop: read a frame, recognise the faces in
// it, record new intruders, draw the result and hand the JPEG to a viewer.
package session

import (
	"context"
	"image"
	"image/color"
	"sync"
	"sync/atomic"
	"time"

	"camguard/internal/embedding"
	"camguard/internal/logger"
	"camguard/internal/metrics"
	"camguard/internal/model"
	"camguard/internal/service/overlay"

	"gocv.io/x/gocv"
)

// FrameSource yields decoded BGR frames.
type FrameSource interface {
	Read(ctx context.Context, dst *gocv.Mat) error
	Close() error
}

// Opener connects to a stream URL.
type Opener func(ctx context.Context, url string) (FrameSource, error)

// FaceDetector finds faces in an RGB image.
type FaceDetector interface {
	DetectFaces(ctx context.Context, rgb gocv.Mat) ([]model.Detection, error)
}

// AuthorizedMatcher resolves a face to an authorized name.
type AuthorizedMatcher interface {
	Reload(ctx context.Context) error
	Match(probe embedding.Embedding) (name string, distance float64, ok bool)
}

// IntruderRecorder stores faces that are not authorized.
type IntruderRecorder interface {
	Reload() error
	RecordIfNovel(frame gocv.Mat, e embedding.Embedding) (id int64, recorded bool)
}

// FrameAnnotator draws on and encodes frames.
type FrameAnnotator interface {
	Annotate(frame *gocv.Mat, box model.Box, label string, c color.RGBA) error
	Encode(frame gocv.Mat) ([]byte, error)
}

// Options configures a Session. Metrics may be nil.
type Options struct {
	Open           Opener
	Detector       FaceDetector
	Registry       AuthorizedMatcher
	Ledger         IntruderRecorder
	Annotator      FrameAnnotator
	DetectionScale float64
	Metrics        *metrics.Metrics
	Logger         *logger.Logger
}

// Session owns at most one running capture loop.
type Session struct {
	opts  Options
	state atomic.Int32

	mu       sync.Mutex // guards run start against RequestStop
	stopFlag atomic.Bool
	stopCh   chan struct{}
	stopOnce *sync.Once
	wg       sync.WaitGroup
}

// New creates an idle session.
func New(opts Options) *Session {
	if opts.DetectionScale <= 0 || opts.DetectionScale > 1 {
		opts.DetectionScale = 0.5
	}
	s := &Session{opts: opts}
	s.setState(Idle)
	return s
}

// State returns the current lifecycle phase.
func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) setState(st State) {
	s.state.Store(int32(st))
	s.opts.Metrics.SetSessionState(int(st))
}

// Start begins streaming url. The returned channel carries multipart chunks
// and is closed when the loop ends. Sends block until the consumer reads or
// ctx is done. started is false when a run is already active; the returned
// channel is then already closed and nothing else happens.
func (s *Session) Start(ctx context.Context, url string) (chunks <-chan []byte, started bool) {
	ch := make(chan []byte)

	s.mu.Lock()
	prev := s.State()
	if !prev.canStart() || !s.state.CompareAndSwap(int32(prev), int32(Opening)) {
		s.mu.Unlock()
		s.opts.Logger.Warning("Stream already %s, ignoring start request", s.State())
		close(ch)
		return ch, false
	}
	s.opts.Metrics.SetSessionState(int(Opening))
	s.stopFlag.Store(false)
	stopCh := make(chan struct{})
	s.stopCh = stopCh
	s.stopOnce = &sync.Once{}
	s.wg.Add(1)
	s.mu.Unlock()

	go s.run(ctx, url, ch, stopCh)
	return ch, true
}

// RequestStop asks the running loop to finish. The loop exits before
// processing its next frame. It is a no-op when nothing is running.
func (s *Session) RequestStop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.State() {
	case Opening, Streaming:
		s.stopFlag.Store(true)
		s.stopOnce.Do(func() { close(s.stopCh) })
		s.opts.Logger.Info("Stream stop requested")
	}
}

// Wait blocks until the current loop, if any, has released its source.
func (s *Session) Wait() {
	s.wg.Wait()
}

func (s *Session) run(ctx context.Context, url string, out chan<- []byte, stopCh <-chan struct{}) {
	defer s.wg.Done()
	defer close(out)

	src, err := s.opts.Open(ctx, url)
	if err != nil {
		s.opts.Logger.Error("Could not open stream %s: %v", url, err)
		s.setState(Idle)
		return
	}
	defer func() {
		if err := src.Close(); err != nil {
			s.opts.Logger.Warning("Error releasing stream %s: %v", url, err)
		}
		s.setState(Stopped)
		s.opts.Logger.Info("Stream %s stopped", url)
	}()

	s.setState(Streaming)
	s.opts.Logger.Info("Stream %s opened", url)

	if err := s.opts.Registry.Reload(ctx); err != nil {
		s.opts.Logger.Error("Authorized registry reload failed, using previous state: %v", err)
	}
	if err := s.opts.Ledger.Reload(); err != nil {
		s.opts.Logger.Error("Intruder ledger reload failed, using previous state: %v", err)
	}

	frame := gocv.NewMat()
	defer frame.Close()

	for {
		if s.stopFlag.Load() || ctx.Err() != nil {
			return
		}

		if err := src.Read(ctx, &frame); err != nil {
			s.opts.Logger.Error("Stream %s ended: %v", url, err)
			return
		}

		chunk := s.processFrame(ctx, &frame)
		if chunk == nil {
			continue
		}

		select {
		case out <- chunk:
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		}
	}
}

// processFrame annotates frame in place and returns the framed JPEG, or nil
// when the frame could not be encoded.
func (s *Session) processFrame(ctx context.Context, frame *gocv.Mat) []byte {
	started := time.Now()
	defer func() { s.opts.Metrics.ObserveFrame(time.Since(started)) }()

	detections := s.detect(ctx, *frame)
	upscale := 1 / s.opts.DetectionScale

	for _, d := range detections {
		label, c := overlay.IntruderLabel, overlay.AlertColor

		if name, _, ok := s.opts.Registry.Match(d.Embedding); ok {
			label, c = name, overlay.AuthorizedColor
			s.opts.Metrics.IncFace(metrics.ResultAuthorized)
		} else {
			s.opts.Metrics.IncFace(metrics.ResultIntruder)
			if _, recorded := s.opts.Ledger.RecordIfNovel(*frame, d.Embedding); recorded {
				s.opts.Metrics.IncIntruderRecorded()
			}
		}

		if err := s.opts.Annotator.Annotate(frame, d.Box.Scale(upscale), label, c); err != nil {
			s.opts.Logger.Warning("Could not annotate face: %v", err)
			s.opts.Metrics.IncFrameError(metrics.ErrorAnnotate)
		}
	}

	data, err := s.opts.Annotator.Encode(*frame)
	if err != nil {
		s.opts.Logger.Warning("Skipping frame: %v", err)
		s.opts.Metrics.IncFrameError(metrics.ErrorEncode)
		return nil
	}
	return overlay.Chunk(data)
}

// detect shrinks the frame, converts it to RGB and asks the detector for
// faces. Failures count as a frame without faces.
func (s *Session) detect(ctx context.Context, frame gocv.Mat) []model.Detection {
	small := gocv.NewMat()
	defer small.Close()
	gocv.Resize(frame, &small, image.Point{}, s.opts.DetectionScale, s.opts.DetectionScale, gocv.InterpolationLinear)
	if small.Empty() {
		s.opts.Logger.Warning("Could not resize frame for detection")
		s.opts.Metrics.IncFrameError(metrics.ErrorDetection)
		return nil
	}

	rgb := gocv.NewMat()
	defer rgb.Close()
	if err := gocv.CvtColor(small, &rgb, gocv.ColorBGRToRGB); err != nil {
		s.opts.Logger.Warning("Could not convert frame to RGB: %v", err)
		s.opts.Metrics.IncFrameError(metrics.ErrorDetection)
		return nil
	}

	detections, err := s.opts.Detector.DetectFaces(ctx, rgb)
	if err != nil {
		s.opts.Logger.Warning("Face detection failed: %v", err)
		s.opts.Metrics.IncFrameError(metrics.ErrorDetection)
		return nil
	}
	return detections
}
