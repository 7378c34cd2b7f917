package model

import (
	"image"
	"testing"
)

func TestBoxScale(t *testing.T) {
	tests := []struct {
		name   string
		box    Box
		factor float64
		want   Box
	}{
		{"double", Box{Top: 10, Right: 60, Bottom: 70, Left: 20}, 2, Box{Top: 20, Right: 120, Bottom: 140, Left: 40}},
		{"identity", Box{Top: 1, Right: 2, Bottom: 3, Left: 4}, 1, Box{Top: 1, Right: 2, Bottom: 3, Left: 4}},
		{"rounds", Box{Top: 3, Right: 5, Bottom: 7, Left: 1}, 1.5, Box{Top: 5, Right: 8, Bottom: 11, Left: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.box.Scale(tt.factor); got != tt.want {
				t.Errorf("got %+v want %+v", got, tt.want)
			}
		})
	}
}

func TestBoxRect(t *testing.T) {
	b := Box{Top: 10, Right: 60, Bottom: 70, Left: 20}
	if got, want := b.Rect(), image.Rect(20, 10, 60, 70); got != want {
		t.Errorf("got %v want %v", got, want)
	}
}
