package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hangil-labs/geoconv/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "geoconv",
	Short: "Spreadsheet address-to-coordinate converter",
	Long:  "Reads an xlsx or csv of Korean addresses, resolves each row to WGS84 coordinates via the VWorld geocoder, and writes the table back with latitude/longitude columns appended.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
