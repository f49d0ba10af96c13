package models

// Level names one tier of the location hierarchy, as stored in the
// locations.level column.
type Level string

const (
	LevelState    Level = "state"
	LevelDistrict Level = "district"
	LevelBlock    Level = "block"
	LevelVillage  Level = "village"
)

// Location is one state, district, block or village. ParentCode is zero for
// states.
type Location struct {
	Level      Level  `json:"-"`
	Code       int64  `json:"code"`
	Name       string `json:"name"`
	ParentCode int64  `json:"parent,omitempty"`
}
