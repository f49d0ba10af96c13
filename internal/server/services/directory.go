package services

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/gatherer/internal/common"
	"github.com/dmitrijs2005/gatherer/internal/dbx"
	"github.com/dmitrijs2005/gatherer/internal/server/models"
	"github.com/dmitrijs2005/gatherer/internal/server/repositories/repomanager"
)

// DirectoryService serves the location hierarchy.
type DirectoryService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewDirectoryService(db *sql.DB, m repomanager.RepositoryManager) *DirectoryService {
	return &DirectoryService{db: db, repomanager: m}
}

func (s *DirectoryService) States(ctx context.Context) ([]models.Location, error) {
	return s.list(ctx, models.LevelState, 0)
}

// Children lists the entries of level whose parent is parentCode. level must
// be below state and parentCode positive.
func (s *DirectoryService) Children(ctx context.Context, level models.Level, parentCode int64) ([]models.Location, error) {
	switch level {
	case models.LevelDistrict, models.LevelBlock, models.LevelVillage:
	default:
		return nil, &FieldError{Field: "level", Message: fmt.Sprintf("unknown level %q", level)}
	}
	if parentCode <= 0 {
		return nil, &FieldError{Field: parentParam(level), Message: "parent code must be a positive number"}
	}
	return s.list(ctx, level, parentCode)
}

func (s *DirectoryService) list(ctx context.Context, level models.Level, parentCode int64) ([]models.Location, error) {
	locs, err := s.repomanager.Locations(s.db).List(ctx, level, parentCode)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %v", common.ErrorInternal, level, err)
	}
	return locs, nil
}

// parentParam names the query parameter carrying the parent code of level.
func parentParam(level models.Level) string {
	switch level {
	case models.LevelDistrict:
		return "state"
	case models.LevelBlock:
		return "district"
	case models.LevelVillage:
		return "block"
	}
	return "parent"
}

// Import upserts directory rows read as CSV records of
// level,code,name,parent_code in a single transaction. A header row whose
// first column is "level" is skipped. It returns the number of rows stored.
func (s *DirectoryService) Import(ctx context.Context, r io.Reader) (int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 4
	cr.TrimLeadingSpace = true

	var locs []models.Location
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("%w: %v", common.ErrorValidation, err)
		}
		if line == 1 && strings.EqualFold(rec[0], "level") {
			continue
		}
		loc, err := parseLocation(rec)
		if err != nil {
			return 0, fmt.Errorf("%w: line %d: %v", common.ErrorValidation, line, err)
		}
		locs = append(locs, loc)
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Locations(tx)
		for _, loc := range locs {
			if err := repo.Upsert(ctx, loc); err != nil {
				return fmt.Errorf("upsert %s %d: %w", loc.Level, loc.Code, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(locs), nil
}

func parseLocation(rec []string) (models.Location, error) {
	level := models.Level(strings.ToLower(strings.TrimSpace(rec[0])))
	switch level {
	case models.LevelState, models.LevelDistrict, models.LevelBlock, models.LevelVillage:
	default:
		return models.Location{}, fmt.Errorf("unknown level %q", rec[0])
	}

	code, err := strconv.ParseInt(strings.TrimSpace(rec[1]), 10, 64)
	if err != nil || code <= 0 {
		return models.Location{}, fmt.Errorf("bad code %q", rec[1])
	}

	name := strings.TrimSpace(rec[2])
	if name == "" {
		return models.Location{}, fmt.Errorf("empty name")
	}

	var parent int64
	if p := strings.TrimSpace(rec[3]); p != "" {
		if parent, err = strconv.ParseInt(p, 10, 64); err != nil || parent < 0 {
			return models.Location{}, fmt.Errorf("bad parent code %q", rec[3])
		}
	}
	if (level == models.LevelState) != (parent == 0) {
		return models.Location{}, fmt.Errorf("%s %d: parent code must be zero exactly for states", level, code)
	}

	return models.Location{Level: level, Code: code, Name: name, ParentCode: parent}, nil
}
