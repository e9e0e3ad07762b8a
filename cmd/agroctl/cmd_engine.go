package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/agronomy/suitability"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/app"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/entities"
)

var recommendFlags struct {
	field    string
	vwc      float64
	soilTemp float64
	soil     string
	date     string
	top      int
}

var decideFlags struct {
	sensor   string
	vwc      float64
	soilTemp float64
}

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Rank every enabled crop for the given conditions",
	Long: `Scores every enabled crop on moisture, soil temperature, season, soil
texture and GDD feasibility. With --field the field's soil, current crop and
accumulated GDD are used.`,
	RunE: runRecommend,
}

var decideCmd = &cobra.Command{
	Use:   "decide <field-id>",
	Short: "Evaluate irrigation for a field and a soil reading",
	Args:  cobra.ExactArgs(1),
	RunE:  runDecide,
}

func init() {
	f := recommendCmd.Flags()
	f.StringVar(&recommendFlags.field, "field", "", "field id")
	f.Float64Var(&recommendFlags.vwc, "vwc", 0, "volumetric water content (%)")
	f.Float64Var(&recommendFlags.soilTemp, "soil-temp", 0, "soil temperature (C)")
	f.StringVar(&recommendFlags.soil, "soil", "", "soil texture")
	f.StringVar(&recommendFlags.date, "date", "", "evaluation date (YYYY-MM-DD), default today")
	f.IntVar(&recommendFlags.top, "top", 0, "only print the first N crops")
	_ = recommendCmd.MarkFlagRequired("vwc")
	_ = recommendCmd.MarkFlagRequired("soil-temp")

	d := decideCmd.Flags()
	d.StringVar(&decideFlags.sensor, "sensor", "", "sensor id")
	d.Float64Var(&decideFlags.vwc, "vwc", 0, "volumetric water content (%)")
	d.Float64Var(&decideFlags.soilTemp, "soil-temp", 0, "soil temperature (C)")
	_ = decideCmd.MarkFlagRequired("vwc")
}

func runRecommend(cmd *cobra.Command, _ []string) error {
	cond := suitability.Conditions{
		FieldID:     recommendFlags.field,
		VWC:         recommendFlags.vwc,
		SoilTemp:    recommendFlags.soilTemp,
		SoilTexture: entities.SoilTexture(strings.ToLower(strings.TrimSpace(recommendFlags.soil))),
	}
	if recommendFlags.date != "" {
		d, err := entities.ParseDay(recommendFlags.date)
		if err != nil {
			return fmt.Errorf("date %q: want YYYY-MM-DD", recommendFlags.date)
		}
		cond.Date = d
	}
	return withRuntime(cmd, func(ctx context.Context, rt *app.Runtime) error {
		if cond.FieldID != "" {
			f, err := rt.Store.Field(ctx, cond.FieldID)
			if err != nil {
				return err
			}
			if cond.SoilTexture == "" {
				cond.SoilTexture = f.SoilTexture
			}
			cond.CurrentCrop = f.CropName
			cond.AccumulatedGDD = f.AccumulatedGDD
		}
		if cond.SoilTexture == "" {
			return fmt.Errorf("--soil is required without --field")
		}
		rec, err := rt.Scorer.Recommend(cond)
		if err != nil {
			return err
		}
		if n := recommendFlags.top; n > 0 && n < len(rec.RankedScores) {
			rec.RankedScores = rec.RankedScores[:n]
		}
		return printJSON(cmd.OutOrStdout(), rec)
	})
}

func runDecide(cmd *cobra.Command, args []string) error {
	return withRuntime(cmd, func(ctx context.Context, rt *app.Runtime) error {
		f, err := rt.Store.Field(ctx, args[0])
		if err != nil {
			return err
		}
		snap := entities.SensorSnapshot{
			FieldID:  f.ID,
			SensorID: decideFlags.sensor,
			VWC:      decideFlags.vwc,
			SoilTemp: decideFlags.soilTemp,
			TakenAt:  time.Now().UTC(),
		}
		d, err := rt.Engine.Decide(ctx, f, snap)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), d)
	})
}
