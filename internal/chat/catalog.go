package chat

import (
	"context"
	"fmt"

	"github.com/bz888/murmur/internal/ollama"
)

type ModelLister interface {
	GetModels(ctx context.Context) ([]ollama.Model, error)
}

// Catalog answers "which models are installed". No caching, no retries.
type Catalog struct {
	backend ModelLister
}

func NewCatalog(backend ModelLister) *Catalog {
	return &Catalog{backend: backend}
}

func (c *Catalog) ListModels(ctx context.Context) ([]ollama.Model, error) {
	models, err := c.backend.GetModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list local models: %w", ErrBackendUnavailable, err)
	}
	return models, nil
}
