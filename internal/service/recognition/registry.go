// Package recognition keeps the in-memory face caches the stream matches
// against: authorized persons and already recorded intruders.
package recognition

import (
	"context"
	"fmt"
	"sync"

	"camguard/internal/embedding"
	"camguard/internal/logger"
	"camguard/internal/model"
	"camguard/internal/repository"
)

// ReferenceEmbedder computes the embedding of the face in a reference photo.
type ReferenceEmbedder interface {
	EmbedImageFile(ctx context.Context, path string) (embedding.Embedding, error)
}

// ReferenceResolver maps a stored reference file name to a readable path.
type ReferenceResolver interface {
	ReferencePath(filename string) (string, error)
}

// Registry is the matchable set of authorized persons. Names and embeddings
// are parallel and always the same length.
type Registry struct {
	repo      repository.AuthorizedRepository
	embedder  ReferenceEmbedder
	resolver  ReferenceResolver
	tolerance float64
	logger    *logger.Logger

	mu         sync.RWMutex
	entries    []model.AuthorizedPerson
	names      []string
	embeddings []embedding.Embedding
}

// NewRegistry creates an empty registry. Call Reload to populate it.
func NewRegistry(repo repository.AuthorizedRepository, embedder ReferenceEmbedder, resolver ReferenceResolver, tolerance float64, logger *logger.Logger) *Registry {
	return &Registry{
		repo:      repo,
		embedder:  embedder,
		resolver:  resolver,
		tolerance: tolerance,
		logger:    logger,
	}
}

// Reload rebuilds the registry from the store. Persons without a usable
// cached embedding get one computed from their reference photo and written
// back. Persons whose embedding cannot be obtained stay in Entries but are
// not matchable. If the store cannot be listed the previous state is kept.
func (r *Registry) Reload(ctx context.Context) error {
	persons, err := r.repo.GetAll()
	if err != nil {
		return fmt.Errorf("failed to load authorized persons: %w", err)
	}

	names := make([]string, 0, len(persons))
	embeddings := make([]embedding.Embedding, 0, len(persons))

	for i := range persons {
		p := &persons[i]

		if e, ok := r.cached(p); ok {
			names = append(names, p.Name)
			embeddings = append(embeddings, e)
			continue
		}

		e, err := r.compute(ctx, p)
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("reload interrupted: %w", ctx.Err())
			}
			r.logger.Warning("Skipping authorized %q (id %d): %v", p.Name, p.ID, err)
			continue
		}

		encoded := embedding.Encode(e)
		if err := r.repo.UpdateEmbedding(p.ID, encoded); err != nil {
			r.logger.Warning("Could not cache embedding for %q (id %d): %v", p.Name, p.ID, err)
		} else {
			p.Embedding = encoded
		}

		names = append(names, p.Name)
		embeddings = append(embeddings, e)
	}

	r.mu.Lock()
	r.entries = persons
	r.names = names
	r.embeddings = embeddings
	r.mu.Unlock()

	r.logger.Info("Authorized registry loaded: %d of %d persons matchable", len(names), len(persons))
	return nil
}

// cached decodes the stored embedding. Corrupt values are treated as absent.
func (r *Registry) cached(p *model.AuthorizedPerson) (embedding.Embedding, bool) {
	if !p.HasEmbedding() {
		return nil, false
	}
	e, err := embedding.Decode(p.Embedding)
	if err == nil && !e.Finite() {
		err = embedding.ErrCorruptEncoding
	}
	if err != nil || len(e) == 0 {
		r.logger.Warning("Cached embedding for %q (id %d) unusable, recomputing: %v", p.Name, p.ID, err)
		return nil, false
	}
	return e, true
}

func (r *Registry) compute(ctx context.Context, p *model.AuthorizedPerson) (embedding.Embedding, error) {
	path, err := r.resolver.ReferencePath(p.ImagePath)
	if err != nil {
		return nil, err
	}
	e, err := r.embedder.EmbedImageFile(ctx, path)
	if err != nil {
		return nil, err
	}
	if len(e) == 0 {
		return nil, fmt.Errorf("empty embedding for %s", p.ImagePath)
	}
	if !e.Finite() {
		return nil, fmt.Errorf("non-finite embedding for %s", p.ImagePath)
	}
	return e, nil
}

// Match returns the name of the closest authorized person within tolerance.
func (r *Registry) Match(probe embedding.Embedding) (name string, distance float64, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx, d, found := embedding.NearestMatch(probe, r.embeddings)
	if !found || d > r.tolerance {
		return "", d, false
	}
	return r.names[idx], d, true
}

// Len returns the number of matchable persons.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.names)
}

// Names returns the matchable names in match order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.names...)
}

// Entries returns every person loaded by the last Reload, matchable or not.
func (r *Registry) Entries() []model.AuthorizedPerson {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]model.AuthorizedPerson(nil), r.entries...)
}
