package main

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/apperr"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/app"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/entities"
)

var fieldFlags struct {
	crop    string
	sown    string
	soil    string
	lat     float64
	lon     float64
	flowLpm float64
	areaM2  float64
}

var fieldCmd = &cobra.Command{
	Use:   "field",
	Short: "Configure fields",
}

var fieldSetCmd = &cobra.Command{
	Use:   "set <field-id>",
	Short: "Create or replace a field",
	Long: `Creates or replaces a field. Replacing keeps nothing of the previous
state, including its accumulated GDD; use "gdd fill-gaps" afterwards.`,
	Args: cobra.ExactArgs(1),
	RunE: runFieldSet,
}

var fieldShowCmd = &cobra.Command{
	Use:   "show <field-id>",
	Short: "Print a field as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runFieldShow,
}

func init() {
	f := fieldSetCmd.Flags()
	f.StringVar(&fieldFlags.crop, "crop", "", "crop name from the catalog")
	f.StringVar(&fieldFlags.sown, "sown", "", "sowing date (YYYY-MM-DD)")
	f.StringVar(&fieldFlags.soil, "soil", "", "soil texture")
	f.Float64Var(&fieldFlags.lat, "lat", 0, "latitude")
	f.Float64Var(&fieldFlags.lon, "lon", 0, "longitude")
	f.Float64Var(&fieldFlags.flowLpm, "flow-lpm", 0, "emitter flow in L/min")
	f.Float64Var(&fieldFlags.areaM2, "area-m2", 0, "irrigated area in m2")
	_ = fieldSetCmd.MarkFlagRequired("soil")

	fieldCmd.AddCommand(fieldSetCmd, fieldShowCmd)
}

func runFieldSet(cmd *cobra.Command, args []string) error {
	soil := entities.SoilTexture(strings.ToLower(strings.TrimSpace(fieldFlags.soil)))
	f := entities.FieldState{
		ID:          args[0],
		SoilTexture: soil,
		Latitude:    fieldFlags.lat,
		Longitude:   fieldFlags.lon,
		FlowLpm:     fieldFlags.flowLpm,
		AreaM2:      fieldFlags.areaM2,
		LastUpdated: time.Now().UTC(),
	}
	if fieldFlags.sown != "" {
		d, err := entities.ParseDay(fieldFlags.sown)
		if err != nil {
			return apperr.Invalid("field", f.ID, "sowing date must be YYYY-MM-DD")
		}
		f.SowingDate = &d
	}
	return withRuntime(cmd, func(ctx context.Context, rt *app.Runtime) error {
		if _, err := rt.Catalog.Soil(soil); err != nil {
			return err
		}
		if fieldFlags.crop != "" {
			crop, err := rt.Catalog.Lookup(fieldFlags.crop)
			if err != nil {
				return err
			}
			f.CropName = crop.Name
		}
		if err := rt.Store.SaveField(ctx, f); err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), f)
	})
}

func runFieldShow(cmd *cobra.Command, args []string) error {
	return withRuntime(cmd, func(ctx context.Context, rt *app.Runtime) error {
		f, err := rt.Store.Field(ctx, args[0])
		if err != nil {
			if apperr.IsNotFound(err) {
				return errors.New("no such field: " + args[0])
			}
			return err
		}
		return printJSON(cmd.OutOrStdout(), f)
	})
}
