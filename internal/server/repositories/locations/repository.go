// Package locations reads the state → district → block → village directory.
package locations

import (
	"context"

	"github.com/dmitrijs2005/gatherer/internal/server/models"
)

type Repository interface {
	// List returns the entries of level whose parent is parentCode (zero for
	// states), ordered by name.
	List(ctx context.Context, level models.Level, parentCode int64) ([]models.Location, error)

	// Upsert inserts or renames a directory entry.
	Upsert(ctx context.Context, loc models.Location) error
}
