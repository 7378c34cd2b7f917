package model

import "time"

// IntruderRecord is a stored sighting of an unrecognised face.
type IntruderRecord struct {
	ID        int64     `json:"id"`
	ImagePath string    `json:"image_path"`
	Timestamp time.Time `json:"timestamp"`
	Embedding []byte    `json:"-"`
}
