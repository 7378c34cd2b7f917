package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"camguard/internal/model"
)

// TimestampLayout is the text form of intruders.captured_at.
const TimestampLayout = "2006-01-02 15:04:05"

// IntruderRepository implements repository.IntruderRepository for SQLite.
type IntruderRepository struct {
	db *DB
}

// NewIntruderRepository creates a new SQLite intruder repository.
func NewIntruderRepository(db *DB) *IntruderRepository {
	return &IntruderRepository{db: db}
}

// Insert adds a new intruder record.
func (r *IntruderRepository) Insert(imagePath string, timestamp time.Time, encoded []byte) (int64, error) {
	if len(encoded) == 0 {
		return 0, fmt.Errorf("failed to insert intruder: embedding is required")
	}

	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		INSERT INTO intruders (filename, captured_at, embedding_hex)
		VALUES (?, ?, ?)
	`, imagePath, timestamp.Format(TimestampLayout), nullableHex(encoded))
	if err != nil {
		return 0, fmt.Errorf("failed to insert intruder: %w", err)
	}

	return result.LastInsertId()
}

// GetAll returns every intruder record, newest first.
func (r *IntruderRepository) GetAll() ([]model.IntruderRecord, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT id, filename, captured_at, embedding_hex
		FROM intruders ORDER BY id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query intruders: %w", err)
	}
	defer rows.Close()

	var records []model.IntruderRecord
	for rows.Next() {
		rec, err := scanIntruder(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate intruders: %w", err)
	}

	return records, nil
}

// GetByID retrieves an intruder by its ID.
func (r *IntruderRepository) GetByID(id int64) (*model.IntruderRecord, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	row := r.db.Conn().QueryRow(`
		SELECT id, filename, captured_at, embedding_hex
		FROM intruders WHERE id = ?
	`, id)
	rec, err := scanIntruder(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

// GetLatest returns the most recently inserted intruder.
func (r *IntruderRepository) GetLatest() (*model.IntruderRecord, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	row := r.db.Conn().QueryRow(`
		SELECT id, filename, captured_at, embedding_hex
		FROM intruders ORDER BY id DESC LIMIT 1
	`)
	rec, err := scanIntruder(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

// Delete removes an intruder record by ID.
func (r *IntruderRepository) Delete(id int64) error {
	r.db.Lock()
	defer r.db.Unlock()

	_, err := r.db.Conn().Exec("DELETE FROM intruders WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete intruder: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanIntruder(s scanner) (*model.IntruderRecord, error) {
	var rec model.IntruderRecord
	var capturedAt string
	var encoded sql.NullString
	if err := s.Scan(&rec.ID, &rec.ImagePath, &capturedAt, &encoded); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan intruder: %w", err)
	}

	ts, err := time.ParseInLocation(TimestampLayout, capturedAt, time.Local)
	if err != nil {
		return nil, fmt.Errorf("failed to parse intruder timestamp %q: %w", capturedAt, err)
	}
	rec.Timestamp = ts
	rec.Embedding = decodeHexColumn(encoded)
	return &rec, nil
}
