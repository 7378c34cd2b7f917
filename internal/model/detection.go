package model

import (
	"image"
	"math"

	"camguard/internal/embedding"
)

// Box is a face rectangle in pixel coordinates.
type Box struct {
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
	Left   int `json:"left"`
}

// Scale multiplies every coordinate by factor, rounding to the nearest pixel.
func (b Box) Scale(factor float64) Box {
	scale := func(v int) int { return int(math.Round(float64(v) * factor)) }
	return Box{
		Top:    scale(b.Top),
		Right:  scale(b.Right),
		Bottom: scale(b.Bottom),
		Left:   scale(b.Left),
	}
}

// Rect converts the box to an image.Rectangle.
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.Left, b.Top, b.Right, b.Bottom)
}

// Detection is one face found in a frame.
type Detection struct {
	Box       Box
	Embedding embedding.Embedding
}
