package suitability

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/catalog"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/metrics"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/entities"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/messages"
)

// Catalog is the read side of *catalog.Catalog the scorer needs.
type Catalog interface {
	Crops() []entities.CropParameters
	Soil(entities.SoilTexture) (entities.SoilConstants, error)
	SeasonAt(time.Time) catalog.SeasonPosition
}

// Conditions are the field observations a recommendation is made for.
type Conditions struct {
	FieldID        string
	VWC            float64
	SoilTemp       float64
	SoilTexture    entities.SoilTexture
	Date           time.Time // zero: today
	CurrentCrop    string
	AccumulatedGDD float64
}

type Scorer struct {
	catalog Catalog
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewScorer(c Catalog, m *metrics.Metrics) *Scorer {
	return &Scorer{catalog: c, metrics: m, now: time.Now}
}

// Recommend scores every enabled crop and ranks them. The only error is an
// unknown soil texture.
func (s *Scorer) Recommend(cond Conditions) (messages.CropRecommendation, error) {
	soil, err := s.catalog.Soil(cond.SoilTexture)
	if err != nil {
		return messages.CropRecommendation{}, err
	}
	now := s.now().UTC()
	date := cond.Date
	if date.IsZero() {
		date = now
	}
	date = entities.Day(date)

	// sensor inputs are clamped like every other snapshot
	snap := entities.SensorSnapshot{VWC: cond.VWC, SoilTemp: cond.SoilTemp}.Clamp()
	env := Environment{
		VWC:            snap.VWC,
		SoilTemp:       snap.SoilTemp,
		Soil:           soil,
		Season:         s.catalog.SeasonAt(date),
		CurrentCrop:    cond.CurrentCrop,
		AccumulatedGDD: cond.AccumulatedGDD,
	}

	crops := s.catalog.Crops()
	scores := make([]messages.CropScore, 0, len(crops))
	for _, c := range crops {
		scores = append(scores, Score(c, env))
	}
	Rank(scores)

	rec := messages.CropRecommendation{
		ID:            uuid.NewString(),
		FieldID:       cond.FieldID,
		RankedScores:  scores,
		CurrentSeason: env.Season.Season,
		ConditionsSnapshot: messages.ConditionsSnapshot{
			VWC:            env.VWC,
			SoilTemp:       env.SoilTemp,
			SoilTexture:    soil.Texture,
			Season:         env.Season.Season,
			SeasonDay:      env.Season.ElapsedDays,
			CurrentCrop:    cond.CurrentCrop,
			AccumulatedGDD: cond.AccumulatedGDD,
			Date:           date.Format(entities.DateLayout),
		},
		Timestamp: now,
	}
	if len(scores) > 0 && scores[0].Suitable {
		rec.RecommendedCrop = scores[0].CropName
	}
	if s.metrics != nil {
		s.metrics.Recommendations.Inc()
	}
	return rec, nil
}

// Rank sorts scores by total descending, then name, and numbers them from 1.
func Rank(scores []messages.CropScore) {
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].TotalScore != scores[j].TotalScore {
			return scores[i].TotalScore > scores[j].TotalScore
		}
		return scores[i].CropName < scores[j].CropName
	})
	for i := range scores {
		scores[i].Rank = i + 1
	}
}
