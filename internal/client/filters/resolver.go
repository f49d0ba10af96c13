// Package filters keeps a state → district → block → village selection
// consistent while the user edits it, and loads each level's options from
// the location directory.
package filters

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/dmitrijs2005/gatherer/internal/client/models"
	"github.com/dmitrijs2005/gatherer/internal/common"
	"github.com/dmitrijs2005/gatherer/internal/logging"
)

// Directory serves the location hierarchy. *client.HTTPClient satisfies it.
type Directory interface {
	States(ctx context.Context) ([]models.LocationCode, error)
	Districts(ctx context.Context, stateCode int64) ([]models.LocationCode, error)
	Blocks(ctx context.Context, districtCode int64) ([]models.LocationCode, error)
	Villages(ctx context.Context, blockCode int64) ([]models.LocationCode, error)
}

// StaleDataWarning reports a failed directory fetch. The previously loaded
// options for Level are still in place.
type StaleDataWarning struct {
	Level  models.Level
	Parent int64
	Err    error
}

func (w *StaleDataWarning) Error() string {
	if w.Level == models.LevelState {
		return fmt.Sprintf("%s options may be out of date: %v", w.Level, w.Err)
	}
	return fmt.Sprintf("%s options under %d may be out of date: %v", w.Level, w.Parent, w.Err)
}

func (w *StaleDataWarning) Unwrap() []error { return []error{common.ErrStaleData, w.Err} }

// Resolver owns one filter-editing session.
type Resolver struct {
	dir Directory
	log logging.Logger

	mu      sync.Mutex
	sel     models.Selection
	options map[models.Level][]models.LocationCode
	parents map[models.Level]map[int64]int64
	gen     map[models.Level]uint64
}

// NewResolver starts a session from initial. The selection is taken as
// given; nothing is pruned until a level changes.
func NewResolver(dir Directory, log logging.Logger, initial models.Selection) *Resolver {
	r := &Resolver{
		dir:     dir,
		log:     log,
		sel:     initial.Clone(),
		options: make(map[models.Level][]models.LocationCode),
		parents: make(map[models.Level]map[int64]int64),
		gen:     make(map[models.Level]uint64),
	}
	for _, l := range models.Levels {
		r.parents[l] = make(map[int64]int64)
	}
	return r
}

// Selection returns a copy of the current selection.
func (r *Resolver) Selection() models.Selection {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sel.Clone()
}

// Options returns a copy of the options last loaded for level.
func (r *Resolver) Options(level models.Level) []models.LocationCode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.options[level])
}

// Reset replaces the whole selection without pruning. Loaded options and
// the parent lookup are kept.
func (r *Resolver) Reset(sel models.Selection) {
	r.mu.Lock()
	r.sel = sel.Clone()
	r.mu.Unlock()
}

// Set replaces the codes selected at level and, if that changed anything,
// prunes the levels below it, nearest first. The edited level itself is
// left exactly as given.
func (r *Resolver) Set(level models.Level, codes []int64) models.Selection {
	r.mu.Lock()
	defer r.mu.Unlock()

	before := r.sel.Get(level)
	r.sel = r.sel.With(level, codes)
	if !slices.Equal(before, r.sel.Get(level)) {
		r.cascade(level)
	}
	return r.sel.Clone()
}

// cascade prunes the levels below from, each against its nearest ancestor
// with a non-empty selection. An empty level is no constraint, so a level
// emptied by pruning hands the check on to the level above it. Pruning stops
// at the first non-empty level it left unchanged. Callers hold r.mu.
func (r *Resolver) cascade(from models.Level) {
	anc, ok := r.nearestSelected(from)
	if !ok {
		return
	}
	for _, child := range from.Descendants() {
		changed := r.prune(anc, child)
		if len(r.sel.Get(child)) == 0 {
			continue
		}
		if !changed {
			return
		}
		anc = child
	}
}

// nearestSelected returns level or its closest ancestor with codes selected.
func (r *Resolver) nearestSelected(level models.Level) (models.Level, bool) {
	for {
		if len(r.sel.Get(level)) > 0 {
			return level, true
		}
		p, ok := level.Parent()
		if !ok {
			return "", false
		}
		level = p
	}
}

// prune keeps the child codes whose ancestor at level anc is selected and
// reports whether it removed anything.
func (r *Resolver) prune(anc, child models.Level) bool {
	before := r.sel.Get(child)
	kept := PruneChildren(r.sel.Get(anc), before, func(code int64) (int64, bool) {
		return r.ancestorOf(child, code, anc)
	})
	if len(kept) == len(before) {
		return false
	}
	r.sel = r.sel.With(child, kept)
	return true
}

// ancestorOf follows the loaded parent links from code at level up to anc.
func (r *Resolver) ancestorOf(level models.Level, code int64, anc models.Level) (int64, bool) {
	for level != anc {
		p, ok := r.parents[level][code]
		if !ok {
			return 0, false
		}
		code = p
		if level, ok = level.Parent(); !ok {
			return 0, false
		}
	}
	return code, true
}

// FetchLevel loads the options of level under parentCodes. States ignore
// parentCodes. For other levels an empty parentCodes yields no options and
// no request; otherwise there is one request per parent, results
// concatenated in parent order without de-duplication.
//
// On failure it returns a *StaleDataWarning and no options.
func (r *Resolver) FetchLevel(ctx context.Context, level models.Level, parentCodes []int64) ([]models.LocationCode, error) {
	if level == models.LevelState {
		states, err := r.dir.States(ctx)
		if err != nil {
			return nil, r.stale(ctx, level, 0, err)
		}
		return states, nil
	}

	fetch, err := r.fetcher(level)
	if err != nil {
		return nil, err
	}

	out := []models.LocationCode{}
	for _, parent := range parentCodes {
		items, err := fetch(ctx, parent)
		if err != nil {
			return nil, r.stale(ctx, level, parent, err)
		}
		for _, it := range items {
			if it.Parent == 0 {
				it.Parent = parent
			}
			out = append(out, it)
		}
	}
	return out, nil
}

func (r *Resolver) fetcher(level models.Level) (func(context.Context, int64) ([]models.LocationCode, error), error) {
	switch level {
	case models.LevelDistrict:
		return r.dir.Districts, nil
	case models.LevelBlock:
		return r.dir.Blocks, nil
	case models.LevelVillage:
		return r.dir.Villages, nil
	}
	return nil, fmt.Errorf("%w: unknown level %q", common.ErrorValidation, level)
}

func (r *Resolver) stale(ctx context.Context, level models.Level, parent int64, err error) error {
	r.log.Warn(ctx, "directory fetch failed, keeping previous options",
		"level", string(level), "parent", parent, "error", err)
	return &StaleDataWarning{Level: level, Parent: parent, Err: err}
}

// Refresh reloads level using the current parent selection and stores the
// result, unless a newer Refresh of the same level started meanwhile. The
// new parent links are then used to re-prune level; levels below are pruned
// only if that changed its selection.
//
// A failed fetch leaves the previous options in place and returns the
// *StaleDataWarning; callers may show it or ignore it.
func (r *Resolver) Refresh(ctx context.Context, level models.Level) error {
	r.mu.Lock()
	r.gen[level]++
	gen := r.gen[level]
	var parents []int64
	parentLevel, hasParent := level.Parent()
	if hasParent {
		parents = r.sel.Get(parentLevel)
	}
	r.mu.Unlock()

	opts, err := r.FetchLevel(ctx, level, parents)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if gen != r.gen[level] {
		r.log.Debug(ctx, "discarding superseded options", "level", string(level))
		return nil
	}

	r.options[level] = opts
	for _, o := range opts {
		r.parents[level][o.Code] = o.Parent
	}

	if hasParent && r.prune(parentLevel, level) {
		r.cascade(level)
	}
	return nil
}
