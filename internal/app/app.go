package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"camguard/internal/config"
	"camguard/internal/logger"
	"camguard/internal/metrics"
	"camguard/internal/repository/sqlite"
	"camguard/internal/route"
	"camguard/internal/service/ai"
	"camguard/internal/service/capture"
	"camguard/internal/service/overlay"
	"camguard/internal/service/recognition"
	"camguard/internal/service/session"
	"camguard/internal/service/storage"
	"camguard/internal/service/websocket"
)

type App struct {
	config     *config.Config
	logger     *logger.Logger
	db         *sqlite.DB
	authorized *sqlite.AuthorizedRepository
	intruders  *sqlite.IntruderRepository
	snapshots  *storage.SnapshotStore
	registry   *recognition.Registry
	ledger     *recognition.Ledger
	hubService *websocket.HubService
	metrics    *metrics.Metrics
	session    *session.Session
}

func NewApp() (*App, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logger.NewLogger(cfg)
	if err != nil {
		return nil, err
	}

	for _, dir := range []string{filepath.Dir(cfg.DatabasePath), cfg.AuthorizedDir, cfg.IntruderDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	m, err := metrics.NewMetrics()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	a := &App{
		config:     cfg,
		logger:     log,
		db:         db,
		authorized: sqlite.NewAuthorizedRepository(db),
		intruders:  sqlite.NewIntruderRepository(db),
		snapshots:  storage.NewSnapshotStore(cfg),
		hubService: websocket.NewHubService(log),
		metrics:    m,
	}

	faces := ai.NewFaceClient(cfg)
	annotator := overlay.NewAnnotator(cfg.JPEGQuality)

	a.registry = recognition.NewRegistry(a.authorized, faces, a.snapshots, cfg.AuthTolerance, log)
	a.ledger = recognition.NewLedger(a.intruders, annotator, a.snapshots, a.hubService, cfg.IntruderTolerance, log)
	a.session = session.New(session.Options{
		Open: func(ctx context.Context, url string) (session.FrameSource, error) {
			src, err := capture.Open(ctx, url, cfg.FrameReadTimeout)
			if err != nil {
				return nil, err
			}
			return src, nil
		},
		Detector:       faces,
		Registry:       a.registry,
		Ledger:         a.ledger,
		Annotator:      annotator,
		DetectionScale: cfg.DetectionScale,
		Metrics:        m,
		Logger:         log,
	})

	return a, nil
}

// ReloadCaches rebuilds the authorized registry and the intruder ledger.
func (a *App) ReloadCaches(ctx context.Context) error {
	return errors.Join(a.registry.Reload(ctx), a.ledger.Reload())
}

// Status reports the stream state and cache sizes.
func (a *App) Status() map[string]interface{} {
	return map[string]interface{}{
		"state":      a.session.State().String(),
		"stream_url": a.config.StreamURL,
		"authorized": a.registry.Len(),
		"intruders":  a.ledger.Len(),
		"viewers":    a.hubService.GetClientCount(),
	}
}

// Run serves HTTP until ctx is done, then stops the stream and shuts down.
func (a *App) Run(ctx context.Context) error {
	defer a.close()

	if err := a.ReloadCaches(ctx); err != nil {
		a.logger.Error("Initial cache load incomplete: %v", err)
	}

	go a.hubService.Run(ctx)

	router := route.SetupRoutes(route.Dependencies{
		Config:     a.config,
		Logger:     a.logger,
		Stream:     a.session,
		Status:     a,
		Caches:     a,
		Ledger:     a.ledger,
		Snapshots:  a.snapshots,
		Alerts:     a.hubService,
		Authorized: a.authorized,
		Intruders:  a.intruders,
		Metrics:    a.metrics,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.config.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	fmt.Printf("🚀 Camguard Server\n")
	fmt.Printf("📍 URL: http://localhost:%d\n", a.config.Port)
	fmt.Printf("📷 Stream: %s\n", a.config.StreamURL)
	fmt.Printf("🧠 Detector: %s\n", a.config.DetectorURL)
	fmt.Printf("📁 Data: %s, %s\n", a.config.AuthorizedDir, a.config.IntruderDir)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down")
	a.session.RequestStop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		a.logger.Warning("HTTP shutdown: %v", err)
		server.Close()
	}
	a.session.Wait()
	return nil
}

func (a *App) close() {
	if err := a.db.Close(); err != nil {
		a.logger.Warning("Closing database: %v", err)
	}
	a.logger.Close()
}
