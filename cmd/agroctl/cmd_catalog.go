package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/catalog"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/entities"
)

var catalogSeason string

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect the crop and soil catalog",
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List enabled crops",
	RunE:  runCatalogList,
}

var catalogSoilsCmd = &cobra.Command{
	Use:   "soils",
	Short: "List soil textures and their water constants",
	RunE:  runCatalogSoils,
}

var catalogSeasonsCmd = &cobra.Command{
	Use:   "seasons",
	Short: "List the season calendar",
	RunE:  runCatalogSeasons,
}

func init() {
	catalogListCmd.Flags().StringVar(&catalogSeason, "season", "", "only crops of this season")
	catalogCmd.AddCommand(catalogListCmd, catalogSoilsCmd, catalogSeasonsCmd)
}

func runCatalogList(cmd *cobra.Command, _ []string) error {
	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return err
	}
	want := entities.ParseSeason(catalogSeason)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CROP\tSEASON\tBASE\tVWC (min/opt/max)\tROOT cm\tHARVEST GDD\tSOILS")
	for _, c := range cat.Crops() {
		if want != "" && c.Season != want {
			continue
		}
		soils := make([]string, 0, len(c.PreferredSoils))
		for _, s := range c.PreferredSoils {
			soils = append(soils, string(s))
		}
		fmt.Fprintf(w, "%s\t%s\t%.0f\t%.0f/%.0f/%.0f\t%.0f\t%.0f\t%s\n",
			c.Name, c.Season, c.BaseTemp, c.VWC.Min, c.VWC.Optimal, c.VWC.Max,
			c.RootDepthCm, c.Stages.Total(), strings.Join(soils, ","))
	}
	return w.Flush()
}

func runCatalogSoils(cmd *cobra.Command, _ []string) error {
	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TEXTURE\tFC\tWP\tSAT\tADJACENT")
	for _, s := range cat.Soils() {
		adj := catalog.AdjacentSoils(s.Texture)
		names := make([]string, 0, len(adj))
		for _, a := range adj {
			names = append(names, string(a))
		}
		fmt.Fprintf(w, "%s\t%.0f\t%.0f\t%.0f\t%s\n", s.Texture, s.FieldCapacity, s.WiltingPoint, s.Saturation,
			strings.Join(names, ","))
	}
	return w.Flush()
}

func runCatalogSeasons(cmd *cobra.Command, _ []string) error {
	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SEASON\tSTARTS\tDAYS")
	for _, s := range cat.Seasons() {
		fmt.Fprintf(w, "%s\t%02d-%02d\t%d\n", s.Name, s.StartMonth, s.StartDay, s.LengthDays)
	}
	return w.Flush()
}
