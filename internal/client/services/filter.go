package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gatherer/internal/client/filters"
	"github.com/dmitrijs2005/gatherer/internal/client/models"
	"github.com/dmitrijs2005/gatherer/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gatherer/internal/logging"
)

// FilterService persists the applied location filter between runs and
// opens editing sessions seeded with it.
type FilterService interface {
	Load(ctx context.Context) (models.Selection, error)
	Apply(ctx context.Context, sel models.Selection) error
	Clear(ctx context.Context) error
	Edit(ctx context.Context) (*filters.Resolver, error)
}

type filterService struct {
	dir  filters.Directory
	repo metadata.Repository
	log  logging.Logger
}

func NewFilterService(dir filters.Directory, repo metadata.Repository, log logging.Logger) FilterService {
	return &filterService{dir: dir, repo: repo, log: log}
}

// Load returns the applied selection, or an empty one if none was saved.
func (s *filterService) Load(ctx context.Context) (models.Selection, error) {
	var sel models.Selection
	if _, err := metadata.LoadJSON(ctx, s.repo, metadata.KeySelection, &sel); err != nil {
		return models.Selection{}, fmt.Errorf("load filter: %w", err)
	}
	return sel, nil
}

// Apply saves sel as the applied filter.
func (s *filterService) Apply(ctx context.Context, sel models.Selection) error {
	if err := metadata.SaveJSON(ctx, s.repo, metadata.KeySelection, sel); err != nil {
		return fmt.Errorf("save filter: %w", err)
	}
	return nil
}

func (s *filterService) Clear(ctx context.Context) error {
	return s.repo.Delete(ctx, metadata.KeySelection)
}

// Edit starts a filter-editing session from the applied selection.
func (s *filterService) Edit(ctx context.Context) (*filters.Resolver, error) {
	sel, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return filters.NewResolver(s.dir, s.log, sel), nil
}
