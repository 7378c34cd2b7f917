package sqlite

import (
	"database/sql"
	"encoding/hex"
	"fmt"

	"camguard/internal/model"
)

// AuthorizedRepository implements repository.AuthorizedRepository for SQLite.
type AuthorizedRepository struct {
	db *DB
}

// NewAuthorizedRepository creates a new SQLite authorized person repository.
func NewAuthorizedRepository(db *DB) *AuthorizedRepository {
	return &AuthorizedRepository{db: db}
}

// Insert adds a new authorized person, with or without a cached embedding.
func (r *AuthorizedRepository) Insert(person *model.AuthorizedPerson) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		INSERT INTO authorized (name, filename, embedding_hex)
		VALUES (?, ?, ?)
	`, person.Name, person.ImagePath, nullableHex(person.Embedding))
	if err != nil {
		return 0, fmt.Errorf("failed to insert authorized person: %w", err)
	}

	return result.LastInsertId()
}

// GetAll returns every authorized person, newest first.
func (r *AuthorizedRepository) GetAll() ([]model.AuthorizedPerson, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT id, name, filename, embedding_hex
		FROM authorized ORDER BY id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query authorized persons: %w", err)
	}
	defer rows.Close()

	var persons []model.AuthorizedPerson
	for rows.Next() {
		var p model.AuthorizedPerson
		var encoded sql.NullString
		if err := rows.Scan(&p.ID, &p.Name, &p.ImagePath, &encoded); err != nil {
			return nil, fmt.Errorf("failed to scan authorized person: %w", err)
		}
		p.Embedding = decodeHexColumn(encoded)
		persons = append(persons, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate authorized persons: %w", err)
	}

	return persons, nil
}

// GetByImagePath retrieves a person by reference image file name.
func (r *AuthorizedRepository) GetByImagePath(imagePath string) (*model.AuthorizedPerson, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var p model.AuthorizedPerson
	var encoded sql.NullString
	err := r.db.Conn().QueryRow(`
		SELECT id, name, filename, embedding_hex
		FROM authorized WHERE filename = ?
	`, imagePath).Scan(&p.ID, &p.Name, &p.ImagePath, &encoded)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get authorized person: %w", err)
	}
	p.Embedding = decodeHexColumn(encoded)
	return &p, nil
}

// UpdateEmbedding stores the encoded embedding for a person.
func (r *AuthorizedRepository) UpdateEmbedding(id int64, encoded []byte) error {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		UPDATE authorized SET embedding_hex = ? WHERE id = ?
	`, nullableHex(encoded), id)
	if err != nil {
		return fmt.Errorf("failed to update embedding: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("failed to update embedding: no authorized person with id %d", id)
	}
	return nil
}

func nullableHex(data []byte) interface{} {
	if len(data) == 0 {
		return nil
	}
	return hex.EncodeToString(data)
}

// decodeHexColumn returns the raw bytes of a hex column, nil when the value
// is missing or not hex.
func decodeHexColumn(s sql.NullString) []byte {
	if !s.Valid || s.String == "" {
		return nil
	}
	data, err := hex.DecodeString(s.String)
	if err != nil {
		return nil
	}
	return data
}
