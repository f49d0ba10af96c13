package locations

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gatherer/internal/dbx"
	"github.com/dmitrijs2005/gatherer/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

var _ Repository = (*PostgresRepository)(nil)

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) List(ctx context.Context, level models.Level, parentCode int64) ([]models.Location, error) {
	query := `
		SELECT code, name, parent_code
		FROM locations
		WHERE level = $1 AND parent_code = $2
		ORDER BY name, code
	`

	rows, err := r.db.QueryContext(ctx, query, string(level), parentCode)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := make([]models.Location, 0)
	for rows.Next() {
		loc := models.Location{Level: level}
		if err := rows.Scan(&loc.Code, &loc.Name, &loc.ParentCode); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, loc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return out, nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, loc models.Location) error {
	query := `
		INSERT INTO locations (level, code, name, parent_code)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (level, code) DO UPDATE
		SET name = EXCLUDED.name, parent_code = EXCLUDED.parent_code
	`
	if _, err := r.db.ExecContext(ctx, query, string(loc.Level), loc.Code, loc.Name, loc.ParentCode); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
