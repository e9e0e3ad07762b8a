package suitability

import (
	"strings"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/entities"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/messages"
)

func band(score, weight float64, good, fair, poor string) string {
	switch r := score / weight; {
	case r >= 0.8:
		return good
	case r >= 0.5:
		return fair
	default:
		return poor
	}
}

// explain is a human summary of the sub-scores; nothing reads it back.
func explain(c entities.CropParameters, env Environment, s messages.SubScores) string {
	parts := []string{
		band(s.Moisture, WeightMoisture, "excellent moisture", "acceptable moisture", "unsuitable moisture"),
		band(s.Temperature, WeightTemperature, "optimal soil temperature", "tolerable soil temperature", "unfavourable soil temperature"),
	}
	switch {
	case c.Perennial():
		parts = append(parts, "perennial")
	case s.Season > 0:
		parts = append(parts, "in season")
	default:
		parts = append(parts, "out of season ("+string(c.Season)+")")
	}
	switch {
	case s.SoilTexture >= WeightSoil:
		parts = append(parts, "preferred soil")
	case s.SoilTexture > 0:
		parts = append(parts, "adjacent soil")
	default:
		parts = append(parts, "unsuited soil")
	}
	switch gddFeasibility(c, env) {
	case fitAmple:
		parts = append(parts, "ample season length")
	case fitTight:
		parts = append(parts, "tight season fit")
	case fitLate:
		parts = append(parts, "late planting")
	case fitInfeasible:
		parts = append(parts, "season too short")
	}
	return strings.Join(parts, "; ")
}
