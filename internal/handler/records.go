package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"camguard/internal/logger"
	"camguard/internal/repository"
)

// CacheReloader rebuilds the face caches from the store.
type CacheReloader interface {
	ReloadCaches(ctx context.Context) error
}

// IntruderCache is the in-memory intruder ledger.
type IntruderCache interface {
	Reload() error
}

// SnapshotRemover deletes a stored intruder snapshot.
type SnapshotRemover interface {
	Remove(filename string) error
}

// SessionStatus reports the stream state and cache sizes.
type SessionStatus interface {
	Status() map[string]interface{}
}

type authorizedView struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	ImagePath    string `json:"image_path"`
	HasEmbedding bool   `json:"has_embedding"`
}

type intruderView struct {
	ID        int64  `json:"id"`
	ImagePath string `json:"image_path"`
	Timestamp string `json:"timestamp"`
}

const viewTimeLayout = "2006-01-02 15:04:05"

// GetAuthorizedHandler lists authorized persons, newest first.
func GetAuthorizedHandler(repo repository.AuthorizedRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		persons, err := repo.GetAll()
		if err != nil {
			logger.Error("Error listing authorized persons: %v", err)
			http.Error(w, "Database error", http.StatusInternalServerError)
			return
		}

		views := make([]authorizedView, 0, len(persons))
		for _, p := range persons {
			views = append(views, authorizedView{ID: p.ID, Name: p.Name, ImagePath: p.ImagePath, HasEmbedding: p.HasEmbedding()})
		}
		writeJSON(w, http.StatusOK, views)
	}
}

// GetIntrudersHandler lists intruder records, newest first.
func GetIntrudersHandler(repo repository.IntruderRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := repo.GetAll()
		if err != nil {
			logger.Error("Error listing intruders: %v", err)
			http.Error(w, "Database error", http.StatusInternalServerError)
			return
		}

		views := make([]intruderView, 0, len(records))
		for _, rec := range records {
			views = append(views, intruderView{ID: rec.ID, ImagePath: rec.ImagePath, Timestamp: rec.Timestamp.Format(viewTimeLayout)})
		}
		writeJSON(w, http.StatusOK, views)
	}
}

// GetLatestIntruderHandler returns the most recent intruder or 404.
func GetLatestIntruderHandler(repo repository.IntruderRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := repo.GetLatest()
		if err != nil {
			logger.Error("Error reading latest intruder: %v", err)
			http.Error(w, "Database error", http.StatusInternalServerError)
			return
		}
		if rec == nil {
			writeJSON(w, http.StatusNotFound, map[string]interface{}{"ok": false, "msg": "no intruders recorded"})
			return
		}
		writeJSON(w, http.StatusOK, intruderView{ID: rec.ID, ImagePath: rec.ImagePath, Timestamp: rec.Timestamp.Format(viewTimeLayout)})
	}
}

// DeleteIntruderHandler removes a record and its snapshot, then reloads the
// intruder ledger so the face can be recorded again.
func DeleteIntruderHandler(repo repository.IntruderRepository, snapshots SnapshotRemover, ledger IntruderCache, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost && r.Method != http.MethodDelete {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
		if err != nil || id <= 0 {
			http.Error(w, "Invalid id", http.StatusBadRequest)
			return
		}

		rec, err := repo.GetByID(id)
		if err != nil {
			logger.Error("Error reading intruder %d: %v", id, err)
			http.Error(w, "Database error", http.StatusInternalServerError)
			return
		}
		if rec == nil {
			http.Error(w, "Intruder not found", http.StatusNotFound)
			return
		}

		if err := repo.Delete(id); err != nil {
			logger.Error("Error deleting intruder %d: %v", id, err)
			http.Error(w, "Database error", http.StatusInternalServerError)
			return
		}
		if rec.ImagePath != "" {
			if err := snapshots.Remove(rec.ImagePath); err != nil {
				logger.Warning("Intruder %d deleted but snapshot kept: %v", id, err)
			}
		}
		if err := ledger.Reload(); err != nil {
			logger.Error("Intruder ledger reload after delete failed: %v", err)
		}

		logger.Info("Intruder %d deleted", id)
		writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "id": id})
	}
}

// ReloadCachesHandler rebuilds both face caches on POST.
func ReloadCachesHandler(caches CacheReloader, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
		defer cancel()

		if err := caches.ReloadCaches(ctx); err != nil {
			logger.Error("Cache reload failed: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"ok": false, "msg": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
	}
}

// SessionStatusHandler reports the stream state and cache sizes.
func SessionStatusHandler(status SessionStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, status.Status())
	}
}
