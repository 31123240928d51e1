package ports

import (
	"context"

	"filmstream/internal/domain"
)

// Catalog is the external collaborator that owns film records. The streaming
// core only reads it; storage and validation live elsewhere.
type Catalog interface {
	List(ctx context.Context) ([]domain.Film, error)
	Get(ctx context.Context, id string) (domain.Film, error)
}
