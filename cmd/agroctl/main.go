// Command agroctl runs the agronomic engine from the command line: catalog
// inspection, field setup, GDD batches, recommendations and decisions.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/app"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/config"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/logging"
)

var (
	cfgPath  string
	logLevel string

	cfg    *config.Config
	logger *zap.SugaredLogger

	// runtimeOpts lets tests swap the observation source.
	runtimeOpts []app.Option
)

var rootCmd = &cobra.Command{
	Use:   "agroctl",
	Short: "Agronomic decision engine CLI",
	Long: `agroctl drives the agronomic decision engine against the configured stores.

Configuration is read from --config (YAML) and the environment, the same way
the services read it.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		c, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			c.Logging.Level = logLevel
		}
		l, err := logging.New(c.Logging.Level, c.Logging.Development)
		if err != nil {
			return err
		}
		cfg, logger = c, l.Sugar()
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to YAML config")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")

	rootCmd.AddCommand(catalogCmd, fieldCmd, gddCmd, recommendCmd, decideCmd)
}

// withRuntime builds the engine runtime for one command and closes it afterwards.
func withRuntime(cmd *cobra.Command, fn func(ctx context.Context, rt *app.Runtime) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	rt, err := app.New(ctx, cfg, logger, runtimeOpts...)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()
	return fn(ctx, rt)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
