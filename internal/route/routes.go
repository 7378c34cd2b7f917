package route

import (
	"net/http"
	"os"
	"path/filepath"

	"camguard/internal/config"
	"camguard/internal/handler"
	"camguard/internal/logger"
	"camguard/internal/metrics"
	"camguard/internal/middleware"
	"camguard/internal/repository"
)

// Dependencies are the services the routes are bound to.
type Dependencies struct {
	Config     *config.Config
	Logger     *logger.Logger
	Stream     handler.StreamController
	Status     handler.SessionStatus
	Caches     handler.CacheReloader
	Ledger     handler.IntruderCache
	Snapshots  handler.SnapshotRemover
	Alerts     handler.AlertHub
	Authorized repository.AuthorizedRepository
	Intruders  repository.IntruderRepository
	Metrics    *metrics.Metrics
}

// dynamicHTMLHandler serves /path as /static/path.html if the file exists; otherwise 404.
func dynamicHTMLHandler(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	if path == "/" {
		path = "/index"
	}

	filePath := filepath.Join("static", filepath.Clean("/"+path)+".html")

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		http.NotFound(w, r)
		return
	}

	http.ServeFile(w, r, filePath)
}

// SetupRoutes registers the video, API, log and auth endpoints and wraps
// the mux with the authentication middleware.
func SetupRoutes(deps Dependencies) http.Handler {
	mux := http.NewServeMux()
	cfg, log := deps.Config, deps.Logger

	// Static files and stored images
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir("static"))))
	mux.Handle("/data/authorized/", http.StripPrefix("/data/authorized/", http.FileServer(http.Dir(cfg.AuthorizedDir))))
	mux.Handle("/data/intruders/", http.StripPrefix("/data/intruders/", http.FileServer(http.Dir(cfg.IntruderDir))))

	// Video
	mux.HandleFunc("/video_feed", handler.VideoFeedHandler(deps.Stream, cfg, log))
	mux.HandleFunc("/stop_video", handler.StopVideoHandler(deps.Stream, log))

	// API endpoints
	mux.HandleFunc("/api/session", handler.SessionStatusHandler(deps.Status))
	mux.HandleFunc("/api/alerts", handler.AlertsWebsocketHandler(deps.Alerts, log))
	mux.HandleFunc("/api/authorized", handler.GetAuthorizedHandler(deps.Authorized, log))
	mux.HandleFunc("/api/intruders", handler.GetIntrudersHandler(deps.Intruders, log))
	mux.HandleFunc("/api/intruders/latest", handler.GetLatestIntruderHandler(deps.Intruders, log))
	mux.HandleFunc("/api/intruders/delete", handler.DeleteIntruderHandler(deps.Intruders, deps.Snapshots, deps.Ledger, log))
	mux.HandleFunc("/api/caches/reload", handler.ReloadCachesHandler(deps.Caches, log))

	// Log endpoints
	for _, level := range []struct{ path, file string }{
		{"info", logger.InfoFile},
		{"warning", logger.WarningFile},
		{"error", logger.ErrorFile},
	} {
		mux.HandleFunc("/logs/"+level.path, handler.ShowLogsHandler(log, level.file))
		mux.HandleFunc("/logs/"+level.path+"/clear", handler.ClearLogsHandler(log, level.file))
	}

	// Auth endpoints
	mux.HandleFunc("/auth/login", handler.LoginHandler(cfg, log))
	mux.HandleFunc("/auth/logout", handler.LogoutHandler)

	deps.Metrics.RegisterMetricsHandlers(mux)

	// Automatic HTML handler mapping for example: /settings -> /static/settings.html
	mux.HandleFunc("/", dynamicHTMLHandler)

	return middleware.AuthMiddleware(mux)
}
