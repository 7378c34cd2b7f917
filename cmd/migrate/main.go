package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"camguard/internal/config"
	"camguard/internal/logger"
	"camguard/internal/model"
	"camguard/internal/repository"
	"camguard/internal/repository/sqlite"
	"camguard/internal/service/ai"
	"camguard/internal/service/recognition"
	"camguard/internal/service/storage"

	"github.com/spf13/cobra"
)

var (
	authorizedDir string
	dbPath        string
	embed         bool
)

var rootCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Register reference photos of authorized persons",
	Long: `Scans the authorized directory and adds every photo that is not yet in the
database. The person name is the part of the file name before the first
underscore, so alice_20240501.jpg registers "alice". With --embed the face
embeddings are computed right away instead of on the next stream start.`,
	RunE: run,
}

func init() {
	cfg := config.Load()
	rootCmd.Flags().StringVar(&authorizedDir, "dir", cfg.AuthorizedDir, "Directory containing reference photos")
	rootCmd.Flags().StringVar(&dbPath, "db", cfg.DatabasePath, "Database path")
	rootCmd.Flags().BoolVar(&embed, "embed", false, "Compute missing embeddings through the detector service")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	cfg.AuthorizedDir = authorizedDir
	cfg.DatabasePath = dbPath
	log := logger.NewWriterLogger(cmd.OutOrStdout())

	fmt.Fprintf(cmd.OutOrStdout(), "Registering photos from %s into %s\n", cfg.AuthorizedDir, cfg.DatabasePath)

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	repo := sqlite.NewAuthorizedRepository(db)
	store := storage.NewSnapshotStore(cfg)

	added, skipped, err := importReferences(store, repo, log)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✅ Added %d persons, %d already registered\n", added, skipped)

	if !embed {
		return nil
	}

	registry := recognition.NewRegistry(repo, ai.NewFaceClient(cfg), store, cfg.AuthTolerance, log)
	if err := registry.Reload(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✅ %d of %d persons have embeddings\n", registry.Len(), len(registry.Entries()))
	return nil
}

// referenceLister yields the file names of reference photos.
type referenceLister interface {
	References() ([]string, error)
}

func importReferences(store referenceLister, repo repository.AuthorizedRepository, log *logger.Logger) (added, skipped int, err error) {
	names, err := store.References()
	if err != nil {
		return 0, 0, err
	}

	for _, filename := range names {
		existing, err := repo.GetByImagePath(filename)
		if err != nil {
			return added, skipped, err
		}
		if existing != nil {
			skipped++
			continue
		}

		person := &model.AuthorizedPerson{Name: personName(filename), ImagePath: filename}
		if _, err := repo.Insert(person); err != nil {
			return added, skipped, err
		}
		log.Info("Registered %q from %s", person.Name, filename)
		added++
	}
	return added, skipped, nil
}

// personName derives the display name from a reference file name.
func personName(filename string) string {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	if i := strings.Index(base, "_"); i > 0 {
		return base[:i]
	}
	return base
}
