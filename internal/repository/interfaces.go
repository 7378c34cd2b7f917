package repository

import (
	"time"

	"camguard/internal/model"
)

// AuthorizedRepository defines storage of authorized persons and their
// cached face embeddings.
type AuthorizedRepository interface {
	// Create operations
	Insert(person *model.AuthorizedPerson) (int64, error)

	// Read operations
	GetAll() ([]model.AuthorizedPerson, error)
	GetByImagePath(imagePath string) (*model.AuthorizedPerson, error)

	// Update operations
	UpdateEmbedding(id int64, encoded []byte) error
}

// IntruderRepository defines storage of recorded intruders.
type IntruderRepository interface {
	// Create operations
	Insert(imagePath string, timestamp time.Time, encoded []byte) (int64, error)

	// Read operations
	GetAll() ([]model.IntruderRecord, error)
	GetByID(id int64) (*model.IntruderRecord, error)
	GetLatest() (*model.IntruderRecord, error)

	// Delete operations
	Delete(id int64) error
}
