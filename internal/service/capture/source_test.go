package capture

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"gocv.io/x/gocv"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func writeTestVideo(t *testing.T, frames int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.avi")

	writer, err := gocv.VideoWriterFile(path, "MJPG", 10, 64, 48, true)
	if err != nil || !writer.IsOpened() {
		t.Skipf("MJPG writer unavailable: %v", err)
	}
	frame := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
	defer frame.Close()
	for i := 0; i < frames; i++ {
		if err := writer.Write(frame); err != nil {
			writer.Close()
			t.Fatalf("write frame: %v", err)
		}
	}
	writer.Close()
	return path
}

func TestOpenUnavailable(t *testing.T) {
	_, err := Open(context.Background(), filepath.Join(t.TempDir(), "missing.avi"), time.Second)
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("expected ErrSourceUnavailable, got %v", err)
	}
}

func TestReadUntilEndOfStream(t *testing.T) {
	path := writeTestVideo(t, 3)

	src, err := Open(context.Background(), path, 2*time.Second)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer src.Close()

	dst := gocv.NewMat()
	defer dst.Close()

	read := 0
	for {
		err := src.Read(context.Background(), &dst)
		if err != nil {
			if !errors.Is(err, ErrFrameRead) {
				t.Fatalf("expected ErrFrameRead at end, got %v", err)
			}
			break
		}
		if dst.Cols() != 64 || dst.Rows() != 48 {
			t.Errorf("unexpected frame size %dx%d", dst.Cols(), dst.Rows())
		}
		read++
		if read > 10 {
			t.Fatal("stream did not end")
		}
	}
	if read == 0 {
		t.Error("expected at least one frame")
	}
}

func TestReadAfterClose(t *testing.T) {
	path := writeTestVideo(t, 1)

	src, err := Open(context.Background(), path, time.Second)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := src.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := src.Close(); err != nil {
		t.Errorf("second Close should be a no-op, got %v", err)
	}

	dst := gocv.NewMat()
	defer dst.Close()
	if err := src.Read(context.Background(), &dst); !errors.Is(err, ErrFrameRead) {
		t.Errorf("expected ErrFrameRead after close, got %v", err)
	}
}
