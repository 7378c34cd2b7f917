package recognition

import (
	"fmt"
	"sync"
	"time"

	"camguard/internal/embedding"
	"camguard/internal/logger"
	"camguard/internal/model"
	"camguard/internal/repository"

	"gocv.io/x/gocv"
)

// FrameEncoder turns a frame into JPEG bytes.
type FrameEncoder interface {
	Encode(frame gocv.Mat) ([]byte, error)
}

// SnapshotWriter persists snapshot bytes and returns the stored file name.
type SnapshotWriter interface {
	Save(data []byte, capturedAt time.Time) (string, error)
}

// Notifier is told about every newly recorded intruder.
type Notifier interface {
	NotifyIntruder(rec model.IntruderRecord)
}

// Ledger remembers the faces of recorded intruders so each one is stored
// only once.
type Ledger struct {
	repo      repository.IntruderRepository
	encoder   FrameEncoder
	snapshots SnapshotWriter
	notifier  Notifier
	tolerance float64
	logger    *logger.Logger
	now       func() time.Time

	mu         sync.Mutex
	embeddings []embedding.Embedding
}

// NewLedger creates an empty ledger. notifier may be nil.
func NewLedger(repo repository.IntruderRepository, encoder FrameEncoder, snapshots SnapshotWriter, notifier Notifier, tolerance float64, logger *logger.Logger) *Ledger {
	return &Ledger{
		repo:      repo,
		encoder:   encoder,
		snapshots: snapshots,
		notifier:  notifier,
		tolerance: tolerance,
		logger:    logger,
		now:       time.Now,
	}
}

// Reload replaces the ledger with the decodable embeddings in the store.
// If the store cannot be listed the previous state is kept.
func (l *Ledger) Reload() error {
	records, err := l.repo.GetAll()
	if err != nil {
		return fmt.Errorf("failed to load intruders: %w", err)
	}

	embeddings := make([]embedding.Embedding, 0, len(records))
	for _, rec := range records {
		e, err := embedding.Decode(rec.Embedding)
		if err == nil && !e.Finite() {
			err = embedding.ErrCorruptEncoding
		}
		if err != nil || len(e) == 0 {
			l.logger.Warning("Skipping intruder %d: unusable embedding (%v)", rec.ID, err)
			continue
		}
		embeddings = append(embeddings, e)
	}

	l.mu.Lock()
	l.embeddings = embeddings
	l.mu.Unlock()

	l.logger.Info("Intruder ledger loaded: %d of %d records", len(embeddings), len(records))
	return nil
}

// RecordIfNovel stores the frame and embedding when the face is farther
// than the tolerance from every known intruder. recorded reports whether the
// face was new; id is the store id, 0 when the store write failed. The
// in-memory ledger is updated even if persistence fails, but only stored
// records are announced to the notifier.
func (l *Ledger) RecordIfNovel(frame gocv.Mat, e embedding.Embedding) (id int64, recorded bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(e) == 0 || !e.Finite() {
		l.logger.Warning("Ignoring face with unusable embedding")
		return 0, false
	}
	if embedding.IsMatch(e, l.embeddings, l.tolerance) {
		return 0, false
	}

	capturedAt := l.now()
	rec := model.IntruderRecord{Timestamp: capturedAt, Embedding: embedding.Encode(e)}

	if data, err := l.encoder.Encode(frame); err != nil {
		l.logger.Error("Could not encode intruder snapshot: %v", err)
	} else if name, err := l.snapshots.Save(data, capturedAt); err != nil {
		l.logger.Error("Could not save intruder snapshot: %v", err)
	} else {
		rec.ImagePath = name
	}

	stored := false
	if newID, err := l.repo.Insert(rec.ImagePath, capturedAt, rec.Embedding); err != nil {
		l.logger.Error("Could not store intruder record: %v", err)
	} else {
		rec.ID = newID
		stored = true
	}

	l.embeddings = append(l.embeddings, append(embedding.Embedding(nil), e...))
	l.logger.Warning("New intruder recorded (id %d, snapshot %q)", rec.ID, rec.ImagePath)

	if stored && l.notifier != nil {
		l.notifier.NotifyIntruder(rec)
	}
	return rec.ID, true
}

// Len returns the number of known intruders.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.embeddings)
}
