package handler

import (
	"context"
	"net/http"

	"camguard/internal/config"
	"camguard/internal/logger"
	"camguard/internal/service/overlay"
	"camguard/internal/service/session"
)

// StreamController is the part of the session the HTTP layer drives.
type StreamController interface {
	Start(ctx context.Context, url string) (<-chan []byte, bool)
	RequestStop()
	State() session.State
}

// VideoFeedHandler starts the capture loop and relays its chunks as a
// multipart JPEG stream until the loop ends or the client disconnects.
func VideoFeedHandler(stream StreamController, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
			return
		}

		chunks, started := stream.Start(r.Context(), cfg.StreamURL)
		if !started {
			http.Error(w, "Stream already "+stream.State().String(), http.StatusConflict)
			return
		}

		w.Header().Set("Content-Type", overlay.ContentType)
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		w.Header().Set("Connection", "close")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		logger.Info("Viewer %s attached to video feed", r.RemoteAddr)
		for chunk := range chunks {
			if _, err := w.Write(chunk); err != nil {
				logger.Info("Viewer %s left video feed: %v", r.RemoteAddr, err)
				stream.RequestStop()
				break
			}
			flusher.Flush()
		}
		// Returning cancels r.Context, which releases the loop if it is
		// blocked on a send.
	}
}

// StopVideoHandler requests the capture loop to stop. Repeated calls are harmless.
func StopVideoHandler(stream StreamController, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		stream.RequestStop()
		writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "msg": "camera stopped"})
	}
}
