// Package capture reads frames from a network camera through OpenCV.
package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

var (
	// ErrSourceUnavailable is returned when the stream cannot be opened.
	ErrSourceUnavailable = errors.New("video source unavailable")
	// ErrFrameRead is returned when no frame could be read: end of stream,
	// a decode failure or a read that did not finish in time.
	ErrFrameRead = errors.New("frame read failed")
)

type readResult struct {
	ok bool
}

// VideoSource is an opened camera stream. It is used by one goroutine at a
// time; Close may be called from any goroutine.
type VideoSource struct {
	url         string
	capture     *gocv.VideoCapture
	frame       gocv.Mat
	readTimeout time.Duration

	mu       sync.Mutex
	inflight chan readResult // non-nil while a read is still running
	closed   bool
}

// Open connects to url. The attempt is abandoned when ctx is done; the
// capture handle is then released in the background once OpenCV returns.
func Open(ctx context.Context, url string, readTimeout time.Duration) (*VideoSource, error) {
	type opened struct {
		capture *gocv.VideoCapture
		err     error
	}
	done := make(chan opened, 1)

	go func() {
		c, err := gocv.OpenVideoCapture(url)
		if err == nil && !c.IsOpened() {
			c.Close()
			c, err = nil, errors.New("capture is not opened")
		}
		done <- opened{capture: c, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, url, res.err)
		}
		return &VideoSource{
			url:         url,
			capture:     res.capture,
			frame:       gocv.NewMat(),
			readTimeout: readTimeout,
		}, nil
	case <-ctx.Done():
		go func() {
			if res := <-done; res.capture != nil {
				res.capture.Close()
			}
		}()
		return nil, fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, url, ctx.Err())
	}
}

// URL returns the stream address.
func (s *VideoSource) URL() string {
	return s.url
}

// Read copies the next frame into dst. It fails with ErrFrameRead when the
// stream ended or no frame arrived within the read timeout. After a timeout
// the source is unusable and must be closed.
func (s *VideoSource) Read(ctx context.Context, dst *gocv.Mat) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("%w: source closed", ErrFrameRead)
	}
	if s.inflight != nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: previous read still pending", ErrFrameRead)
	}
	done := make(chan readResult, 1)
	s.inflight = done
	s.mu.Unlock()

	go func() {
		done <- readResult{ok: s.capture.Read(&s.frame)}
	}()

	timer := time.NewTimer(s.readTimeout)
	defer timer.Stop()

	select {
	case res := <-done:
		s.mu.Lock()
		s.inflight = nil
		s.mu.Unlock()
		if !res.ok || s.frame.Empty() {
			return fmt.Errorf("%w: end of stream", ErrFrameRead)
		}
		s.frame.CopyTo(dst)
		return nil
	case <-timer.C:
		return fmt.Errorf("%w: no frame within %s", ErrFrameRead, s.readTimeout)
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrFrameRead, ctx.Err())
	}
}

// Close releases the capture handle. If a read is still blocked inside
// OpenCV the release happens when that read returns.
func (s *VideoSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if pending := s.inflight; pending != nil {
		go func() {
			<-pending
			s.release()
		}()
		return nil
	}
	return s.release()
}

func (s *VideoSource) release() error {
	err := s.capture.Close()
	s.frame.Close()
	return err
}
