package cacheindex

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gatherer/internal/client/models"
	"github.com/dmitrijs2005/gatherer/internal/common"
	"github.com/dmitrijs2005/gatherer/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

var _ Repository = (*SQLiteRepository)(nil)

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Get(ctx context.Context, assetID int64) (*models.CacheEntry, error) {
	query := `select asset_id, local_path, hash, created_at from asset_cache where asset_id=?`
	row := r.db.QueryRowContext(ctx, query, assetID)

	e := &models.CacheEntry{}
	err := row.Scan(&e.AssetID, &e.LocalPath, &e.Hash, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cache entry %d: %w", assetID, err)
	}
	return e, nil
}

func (r *SQLiteRepository) Put(ctx context.Context, e models.CacheEntry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO asset_cache (asset_id, local_path, hash, created_at)
			values (?, ?, ?, ?)
			ON CONFLICT(asset_id) DO UPDATE SET local_path = excluded.local_path,
				hash = excluded.hash,
				created_at = excluded.created_at
	`
	_, err := r.db.ExecContext(ctx, query, e.AssetID, e.LocalPath, e.Hash, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert cache entry %d: %w", e.AssetID, err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, assetID int64) error {
	result, err := r.db.ExecContext(ctx, `delete from asset_cache where asset_id=?`, assetID)
	if err != nil {
		return fmt.Errorf("failed to delete cache entry %d: %w", assetID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]models.CacheEntry, error) {
	rows, err := r.db.QueryContext(ctx, `select asset_id, local_path, hash, created_at from asset_cache order by asset_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list cache entries: %w", err)
	}
	defer rows.Close()

	var result []models.CacheEntry
	for rows.Next() {
		var e models.CacheEntry
		if err := rows.Scan(&e.AssetID, &e.LocalPath, &e.Hash, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cache entry: %w", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cache entries: %w", err)
	}
	return result, nil
}
