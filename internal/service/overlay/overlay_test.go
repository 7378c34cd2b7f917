package overlay

import (
	"bytes"
	"errors"
	"testing"

	"camguard/internal/model"

	"gocv.io/x/gocv"
)

func TestChunk(t *testing.T) {
	jpeg := []byte{0xFF, 0xD8, 0x01, 0x02, 0xFF, 0xD9}
	got := Chunk(jpeg)

	want := append([]byte("--frame\r\nContent-Type: image/jpeg\r\n\r\n"), jpeg...)
	want = append(want, "\r\n"...)
	if !bytes.Equal(got, want) {
		t.Errorf("got %q want %q", got, want)
	}
}

func TestContentType(t *testing.T) {
	if ContentType != "multipart/x-mixed-replace; boundary=frame" {
		t.Errorf("unexpected content type %q", ContentType)
	}
}

func TestAnnotateAndEncode(t *testing.T) {
	a := NewAnnotator(80)
	frame := gocv.NewMatWithSize(120, 160, gocv.MatTypeCV8UC3)
	defer frame.Close()

	box := model.Box{Top: 5, Right: 100, Bottom: 90, Left: 20}
	if err := a.Annotate(&frame, box, "alice", AuthorizedColor); err != nil {
		t.Fatalf("Annotate failed: %v", err)
	}

	// Green channel on the left edge of the box.
	px := frame.GetVecbAt(50, 20)
	if px[1] != 255 || px[2] != 0 {
		t.Errorf("expected green border pixel, got %v", px)
	}

	data, err := a.Encode(frame)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if len(data) < 4 || data[0] != 0xFF || data[1] != 0xD8 {
		t.Errorf("output is not a JPEG: %d bytes", len(data))
	}
}

func TestEncodeEmptyFrame(t *testing.T) {
	a := NewAnnotator(90)
	empty := gocv.NewMat()
	defer empty.Close()

	if _, err := a.Encode(empty); !errors.Is(err, ErrEncode) {
		t.Errorf("expected ErrEncode, got %v", err)
	}
	if err := a.Annotate(&empty, model.Box{}, "x", AlertColor); err == nil {
		t.Error("expected error annotating an empty frame")
	}
}
