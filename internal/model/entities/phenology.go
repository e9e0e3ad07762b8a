package entities

import "strings"

// GrowthStage is the phenological stage derived from cumulative GDD.
// Stages only move forward: INITIAL → DEVELOPMENT → MID_SEASON → LATE_SEASON → HARVEST_READY.
type GrowthStage string

const (
	StageInitial      GrowthStage = "INITIAL"
	StageDevelopment  GrowthStage = "DEVELOPMENT"
	StageMidSeason    GrowthStage = "MID_SEASON"
	StageLateSeason   GrowthStage = "LATE_SEASON"
	StageHarvestReady GrowthStage = "HARVEST_READY"
)

var stageOrder = map[GrowthStage]int{
	StageInitial:      0,
	StageDevelopment:  1,
	StageMidSeason:    2,
	StageLateSeason:   3,
	StageHarvestReady: 4,
}

// Ordinal returns the position of the stage in the season, -1 when unknown.
func (s GrowthStage) Ordinal() int {
	if o, ok := stageOrder[s]; ok {
		return o
	}
	return -1
}

func (s GrowthStage) Valid() bool { return s.Ordinal() >= 0 }

func ParseGrowthStage(v string) (GrowthStage, bool) {
	s := GrowthStage(strings.ToUpper(strings.TrimSpace(v)))
	return s, s.Valid()
}

// StageThresholds are cumulative GDD values at which each stage ends.
type StageThresholds struct {
	Initial     float64 `yaml:"initial" json:"initial"`
	Development float64 `yaml:"development" json:"development"`
	MidSeason   float64 `yaml:"mid_season" json:"mid_season"`
	LateSeason  float64 `yaml:"late_season" json:"late_season"`
}

// Total is the GDD the crop needs from sowing to harvest.
func (t StageThresholds) Total() float64 { return t.LateSeason }

func (t StageThresholds) Increasing() bool {
	return t.Initial > 0 &&
		t.Initial < t.Development &&
		t.Development < t.MidSeason &&
		t.MidSeason < t.LateSeason
}

// CropCoefficients is the FAO-56 Kc curve anchor triple.
type CropCoefficients struct {
	Initial float64 `yaml:"initial" json:"initial"`
	Mid     float64 `yaml:"mid" json:"mid"`
	End     float64 `yaml:"end" json:"end"`
}
