package models

import (
	"fmt"
	"slices"
)

// Level is one tier of the location hierarchy.
type Level string

const (
	LevelState    Level = "state"
	LevelDistrict Level = "district"
	LevelBlock    Level = "block"
	LevelVillage  Level = "village"
)

// Levels lists the hierarchy from the root down.
var Levels = []Level{LevelState, LevelDistrict, LevelBlock, LevelVillage}

// ParseLevel accepts the singular names used on the wire.
func ParseLevel(s string) (Level, error) {
	l := Level(s)
	if !slices.Contains(Levels, l) {
		return "", fmt.Errorf("unknown level %q", s)
	}
	return l, nil
}

func (l Level) index() int {
	return slices.Index(Levels, l)
}

// Parent returns the level above l; ok is false for the state level.
func (l Level) Parent() (Level, bool) {
	i := l.index()
	if i <= 0 {
		return "", false
	}
	return Levels[i-1], true
}

// Child returns the level below l; ok is false for the village level.
func (l Level) Child() (Level, bool) {
	i := l.index()
	if i < 0 || i == len(Levels)-1 {
		return "", false
	}
	return Levels[i+1], true
}

// Descendants lists the levels below l, nearest first.
func (l Level) Descendants() []Level {
	i := l.index()
	if i < 0 {
		return nil
	}
	return Levels[i+1:]
}

// LocationCode is one state, district, block or village.
type LocationCode struct {
	Code int64  `json:"code"`
	Name string `json:"name"`

	// Parent is the enclosing entity's code; zero for states.
	Parent int64 `json:"parent,omitempty"`
}

// Selection is the set of codes a user filters by, per level. An empty
// level means "no constraint".
type Selection struct {
	StateCodes    []int64 `json:"stateCodes"`
	DistrictCodes []int64 `json:"districtCodes"`
	BlockCodes    []int64 `json:"blockCodes"`
	VillageCodes  []int64 `json:"villageCodes"`
}

// Get returns a copy of the codes selected at level l.
func (s Selection) Get(l Level) []int64 {
	switch l {
	case LevelState:
		return slices.Clone(s.StateCodes)
	case LevelDistrict:
		return slices.Clone(s.DistrictCodes)
	case LevelBlock:
		return slices.Clone(s.BlockCodes)
	case LevelVillage:
		return slices.Clone(s.VillageCodes)
	}
	return nil
}

// With returns a copy of s with level l replaced by codes (duplicates
// removed, first occurrence wins).
func (s Selection) With(l Level, codes []int64) Selection {
	out := s.Clone()
	codes = dedupe(codes)
	switch l {
	case LevelState:
		out.StateCodes = codes
	case LevelDistrict:
		out.DistrictCodes = codes
	case LevelBlock:
		out.BlockCodes = codes
	case LevelVillage:
		out.VillageCodes = codes
	}
	return out
}

// Clone returns a deep copy.
func (s Selection) Clone() Selection {
	return Selection{
		StateCodes:    slices.Clone(s.StateCodes),
		DistrictCodes: slices.Clone(s.DistrictCodes),
		BlockCodes:    slices.Clone(s.BlockCodes),
		VillageCodes:  slices.Clone(s.VillageCodes),
	}
}

// IsEmpty reports whether no level constrains anything.
func (s Selection) IsEmpty() bool {
	return len(s.StateCodes) == 0 && len(s.DistrictCodes) == 0 &&
		len(s.BlockCodes) == 0 && len(s.VillageCodes) == 0
}

func dedupe(codes []int64) []int64 {
	if codes == nil {
		return nil
	}
	seen := make(map[int64]struct{}, len(codes))
	out := make([]int64, 0, len(codes))
	for _, c := range codes {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
