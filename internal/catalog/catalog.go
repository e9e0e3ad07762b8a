// Package catalog holds the crop parameters, the soil constants and the season
// calendar. A Catalog is built once at start-up and never mutated, so it can be
// shared by every calculator and goroutine without locking.
package catalog

import (
	"sort"
	"strings"
	"time"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/apperr"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/entities"
)

// SeasonWindow is a calendar season: it starts every year on StartMonth/StartDay
// and has LengthDays of growing budget.
type SeasonWindow struct {
	Name       entities.Season `yaml:"name" json:"name"`
	StartMonth int             `yaml:"start_month" json:"start_month"`
	StartDay   int             `yaml:"start_day" json:"start_day"`
	LengthDays int             `yaml:"length_days" json:"length_days"`
}

func (w SeasonWindow) startIn(year int) time.Time {
	return time.Date(year, time.Month(w.StartMonth), w.StartDay, 0, 0, 0, 0, time.UTC)
}

// SeasonPosition locates a date inside its season.
type SeasonPosition struct {
	Season      entities.Season
	ElapsedDays int
	BudgetDays  int
}

// RemainingDays may be negative when the date lies past the season budget.
func (p SeasonPosition) RemainingDays() int { return p.BudgetDays - p.ElapsedDays }

// soilChain orders textures from coarse to fine; neighbours are adjacent.
var soilChain = []entities.SoilTexture{
	entities.SoilSandy,
	entities.SoilSandyLoam,
	entities.SoilLoam,
	entities.SoilClayLoam,
	entities.SoilClay,
}

type Catalog struct {
	crops   map[string]entities.CropParameters
	names   []string // sorted
	soils   map[entities.SoilTexture]entities.SoilConstants
	seasons []SeasonWindow
}

func normalizeName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}

// Lookup returns the parameters of an enabled crop.
func (c *Catalog) Lookup(name string) (entities.CropParameters, error) {
	p, ok := c.crops[normalizeName(name)]
	if !ok || !p.IsEnabled() {
		return entities.CropParameters{}, apperr.NotFound("crop", name)
	}
	return p, nil
}

// Crops returns every enabled crop ordered by name.
func (c *Catalog) Crops() []entities.CropParameters {
	out := make([]entities.CropParameters, 0, len(c.names))
	for _, n := range c.names {
		if p := c.crops[n]; p.IsEnabled() {
			out = append(out, p)
		}
	}
	return out
}

func (c *Catalog) Soil(t entities.SoilTexture) (entities.SoilConstants, error) {
	s, ok := c.soils[entities.ParseSoilTexture(string(t))]
	if !ok {
		return entities.SoilConstants{}, apperr.NotFound("soil texture", string(t))
	}
	return s, nil
}

func (c *Catalog) Soils() []entities.SoilConstants {
	out := make([]entities.SoilConstants, 0, len(c.soils))
	for _, t := range soilChain {
		if s, ok := c.soils[t]; ok {
			out = append(out, s)
		}
	}
	return out
}

// AdjacentSoils returns the immediate neighbours of t in the texture chain.
func AdjacentSoils(t entities.SoilTexture) []entities.SoilTexture {
	for i, s := range soilChain {
		if s != t {
			continue
		}
		var out []entities.SoilTexture
		if i > 0 {
			out = append(out, soilChain[i-1])
		}
		if i < len(soilChain)-1 {
			out = append(out, soilChain[i+1])
		}
		return out
	}
	return nil
}

// SeasonAt returns the season whose most recent start is closest before date.
// Every date belongs to exactly one season; on leap years the last rabi day
// falls past its budget and reports zero remaining days.
func (c *Catalog) SeasonAt(date time.Time) SeasonPosition {
	day := entities.Day(date)
	var (
		best      SeasonWindow
		bestStart time.Time
		found     bool
	)
	for _, w := range c.seasons {
		start := w.startIn(day.Year())
		if start.After(day) {
			start = w.startIn(day.Year() - 1)
		}
		if !found || start.After(bestStart) {
			best, bestStart, found = w, start, true
		}
	}
	if !found {
		return SeasonPosition{}
	}
	return SeasonPosition{
		Season:      best.Name,
		ElapsedDays: int(day.Sub(bestStart).Hours() / 24),
		BudgetDays:  best.LengthDays,
	}
}

// Seasons returns the calendar windows ordered by start date.
func (c *Catalog) Seasons() []SeasonWindow {
	out := append([]SeasonWindow(nil), c.seasons...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartMonth != out[j].StartMonth {
			return out[i].StartMonth < out[j].StartMonth
		}
		return out[i].StartDay < out[j].StartDay
	})
	return out
}

func (c *Catalog) knownSeason(s entities.Season) bool {
	if s == entities.SeasonPerennial {
		return true
	}
	for _, w := range c.seasons {
		if w.Name == s {
			return true
		}
	}
	return false
}
