package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/app"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/entities"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/messages"
)

var gddCmd = &cobra.Command{
	Use:   "gdd",
	Short: "Growing degree day tracking",
}

var gddCalcCmd = &cobra.Command{
	Use:   "calc <field-id> <date>",
	Short: "Compute and store the GDD record of one day",
	Args:  cobra.ExactArgs(2),
	RunE:  runGDDCalc,
}

var gddRecalcCmd = &cobra.Command{
	Use:   "recalc <field-id> <start> <end>",
	Short: "Delete and recompute the records in a date range",
	Args:  cobra.ExactArgs(3),
	RunE:  runGDDRecalc,
}

var gddFillCmd = &cobra.Command{
	Use:   "fill-gaps [field-id...]",
	Short: "Compute every missing day from sowing to yesterday",
	Long: `Computes every missing day from sowing to yesterday. Without arguments all
fields are processed in parallel (gdd.parallelism).`,
	RunE: runGDDFill,
}

var gddHistoryCmd = &cobra.Command{
	Use:   "history <field-id>",
	Short: "Print the stored GDD records of a field",
	Args:  cobra.ExactArgs(1),
	RunE:  runGDDHistory,
}

func init() {
	gddCmd.AddCommand(gddCalcCmd, gddRecalcCmd, gddFillCmd, gddHistoryCmd)
}

func runGDDCalc(cmd *cobra.Command, args []string) error {
	day, err := entities.ParseDay(args[1])
	if err != nil {
		return fmt.Errorf("date %q: want YYYY-MM-DD", args[1])
	}
	return withRuntime(cmd, func(ctx context.Context, rt *app.Runtime) error {
		c, err := rt.Tracker.CalculateDailyRecord(ctx, args[0], day)
		if err != nil {
			return err
		}
		out := map[string]interface{}{"field_id": args[0], "outcome": c.Outcome}
		if !c.Record.Date.IsZero() {
			out["record"] = messages.NewGDDResult(c.Record)
		}
		return printJSON(cmd.OutOrStdout(), out)
	})
}

func runGDDRecalc(cmd *cobra.Command, args []string) error {
	start, err := entities.ParseDay(args[1])
	if err != nil {
		return fmt.Errorf("start %q: want YYYY-MM-DD", args[1])
	}
	end, err := entities.ParseDay(args[2])
	if err != nil {
		return fmt.Errorf("end %q: want YYYY-MM-DD", args[2])
	}
	return withRuntime(cmd, func(ctx context.Context, rt *app.Runtime) error {
		res, err := rt.Tracker.RecalculateRange(ctx, args[0], start, end)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), res)
	})
}

func runGDDFill(cmd *cobra.Command, args []string) error {
	return withRuntime(cmd, func(ctx context.Context, rt *app.Runtime) error {
		results, err := rt.Tracker.FillGapsAll(ctx, args)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), results)
	})
}

func runGDDHistory(cmd *cobra.Command, args []string) error {
	return withRuntime(cmd, func(ctx context.Context, rt *app.Runtime) error {
		recs, err := rt.Store.Records(ctx, args[0])
		if err != nil {
			return err
		}
		out := make([]messages.GDDResult, 0, len(recs))
		for _, r := range recs {
			out = append(out, messages.NewGDDResult(r))
		}
		return printJSON(cmd.OutOrStdout(), out)
	})
}
