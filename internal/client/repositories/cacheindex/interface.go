package cacheindex

import (
	"context"

	"github.com/dmitrijs2005/gatherer/internal/client/models"
)

// Repository describes the durable asset id → local path index.
type Repository interface {
	// Get returns the entry for assetID or common.ErrorNotFound.
	Get(ctx context.Context, assetID int64) (*models.CacheEntry, error)

	// Put inserts the entry, replacing any previous row for the same id.
	Put(ctx context.Context, e models.CacheEntry) error

	// Delete removes the entry for assetID. It returns common.ErrorNotFound
	// when there was nothing to remove.
	Delete(ctx context.Context, assetID int64) error

	// List returns all entries ordered by asset id.
	List(ctx context.Context) ([]models.CacheEntry, error)
}
