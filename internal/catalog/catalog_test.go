package catalog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/apperr"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/entities"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()
	crops := c.Crops()
	require.Len(t, crops, 20)
	for i := 1; i < len(crops); i++ {
		assert.Less(t, crops[i-1].Name, crops[i].Name)
	}
	assert.Len(t, c.Soils(), 5)

	loam, err := c.Soil(entities.SoilLoam)
	require.NoError(t, err)
	assert.Equal(t, 31.0, loam.FieldCapacity)
	assert.Equal(t, 15.0, loam.WiltingPoint)
	assert.Equal(t, 45.0, loam.Saturation)
	assert.Equal(t, entities.SoilLoam, loam.Texture)
}

func TestLookup(t *testing.T) {
	c := Default()

	p, err := c.Lookup("  Pearl Millet ")
	require.NoError(t, err)
	assert.Equal(t, "pearl_millet", p.Name)
	assert.Equal(t, entities.SeasonKharif, p.Season)

	_, err = c.Lookup("quinoa")
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))

	_, err = c.Soil("peat")
	assert.True(t, apperr.IsNotFound(err))
}

func TestDisabledCropIsNotFound(t *testing.T) {
	doc := `
seasons:
  - {name: kharif, start_month: 6, start_day: 1, length_days: 153}
soils:
  loam: {field_capacity: 31, wilting_point: 15, saturation: 45}
crops:
  - name: rice
    season: kharif
    enabled: false
    base_temp: 10
    soil_temp: {min: 20, optimal: 28, max: 35}
    vwc: {min: 30, optimal: 38, max: 45}
    root_depth_cm: 50
    mad: 0.2
    kc: {initial: 1.05, mid: 1.2, end: 0.9}
    gdd_stages: {initial: 250, development: 800, mid_season: 1600, late_season: 2100}
    preferred_soils: [loam]
`
	c, err := Parse([]byte(doc))
	require.NoError(t, err)
	_, err = c.Lookup("rice")
	assert.True(t, apperr.IsNotFound(err))
	assert.Empty(t, c.Crops())
}

func TestParseRejects(t *testing.T) {
	base := `
seasons:
  - {name: rabi, start_month: 11, start_day: 1, length_days: 151}
soils:
  loam: {field_capacity: 31, wilting_point: 15, saturation: 45}
crops:
`
	cases := map[string]struct {
		crop string
		want string
	}{
		"legacy total gdd": {
			crop: `  - {name: wheat, season: rabi, base_temp: 4, total_gdd: 1900, vwc: {min: 1, optimal: 2, max: 3}, root_depth_cm: 10, mad: 0.5, gdd_stages: {initial: 1, development: 2, mid_season: 3, late_season: 4}}`,
			want: "total_gdd",
		},
		"stages not increasing": {
			crop: `  - {name: wheat, season: rabi, base_temp: 4, vwc: {min: 1, optimal: 2, max: 3}, root_depth_cm: 10, mad: 0.5, gdd_stages: {initial: 5, development: 2, mid_season: 3, late_season: 4}}`,
			want: "strictly increasing",
		},
		"mad out of range": {
			crop: `  - {name: wheat, season: rabi, base_temp: 4, vwc: {min: 1, optimal: 2, max: 3}, root_depth_cm: 10, mad: 1, gdd_stages: {initial: 1, development: 2, mid_season: 3, late_season: 4}}`,
			want: "mad",
		},
		"unknown season": {
			crop: `  - {name: wheat, season: winter, base_temp: 4, vwc: {min: 1, optimal: 2, max: 3}, root_depth_cm: 10, mad: 0.5, gdd_stages: {initial: 1, development: 2, mid_season: 3, late_season: 4}}`,
			want: "unknown season",
		},
		"vwc disordered": {
			crop: `  - {name: wheat, season: rabi, base_temp: 4, vwc: {min: 5, optimal: 2, max: 3}, root_depth_cm: 10, mad: 0.5, gdd_stages: {initial: 1, development: 2, mid_season: 3, late_season: 4}}`,
			want: "vwc",
		},
		"unknown preferred soil": {
			crop: `  - {name: wheat, season: rabi, base_temp: 4, vwc: {min: 1, optimal: 2, max: 3}, root_depth_cm: 10, mad: 0.5, gdd_stages: {initial: 1, development: 2, mid_season: 3, late_season: 4}, preferred_soils: [clay]}`,
			want: "preferred soil",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(base + tc.crop + "\n"))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestParseRejectsBadSoil(t *testing.T) {
	doc := `
seasons:
  - {name: rabi, start_month: 11, start_day: 1, length_days: 151}
soils:
  loam: {field_capacity: 50, wilting_point: 15, saturation: 45}
  peat: {field_capacity: 30, wilting_point: 15, saturation: 45}
`
	_, err := Parse([]byte(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wilting point < field capacity < saturation")
	assert.Contains(t, err.Error(), "unknown texture")
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crops.yaml")
	require.NoError(t, os.WriteFile(path, embedded, 0o600))
	c, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, c.Crops(), 20)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSeasonAt(t *testing.T) {
	c := Default()
	day := func(s string) time.Time {
		d, err := entities.ParseDay(s)
		require.NoError(t, err)
		return d
	}
	cases := []struct {
		date    string
		season  entities.Season
		elapsed int
		budget  int
	}{
		{"2025-06-01", entities.SeasonKharif, 0, 153},
		{"2025-07-15", entities.SeasonKharif, 44, 153},
		{"2025-10-31", entities.SeasonKharif, 152, 153},
		{"2025-11-01", entities.SeasonRabi, 0, 151},
		{"2026-01-10", entities.SeasonRabi, 70, 151},
		{"2026-03-31", entities.SeasonRabi, 150, 151},
		{"2026-04-01", entities.SeasonZaid, 0, 61},
		{"2026-05-31", entities.SeasonZaid, 60, 61},
		{"2024-03-31", entities.SeasonRabi, 151, 151},
	}
	for _, tc := range cases {
		pos := c.SeasonAt(day(tc.date))
		assert.Equal(t, tc.season, pos.Season, tc.date)
		assert.Equal(t, tc.elapsed, pos.ElapsedDays, tc.date)
		assert.Equal(t, tc.budget, pos.BudgetDays, tc.date)
	}
}

func TestAdjacentSoils(t *testing.T) {
	assert.Equal(t, []entities.SoilTexture{entities.SoilSandyLoam}, AdjacentSoils(entities.SoilSandy))
	assert.Equal(t, []entities.SoilTexture{entities.SoilSandyLoam, entities.SoilClayLoam}, AdjacentSoils(entities.SoilLoam))
	assert.Equal(t, []entities.SoilTexture{entities.SoilClayLoam}, AdjacentSoils(entities.SoilClay))
	assert.Nil(t, AdjacentSoils("peat"))
}
