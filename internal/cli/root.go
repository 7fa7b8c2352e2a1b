// Package cli holds the eqsolve commands.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/inkmath/equation-solver/internal/logging"
	"github.com/inkmath/equation-solver/internal/models"
)

var (
	configPath string
	logLevel   string
	config     *models.Config
)

// RootCmd is the eqsolve entry point
var RootCmd = &cobra.Command{
	Use:           "eqsolve",
	Short:         "Recognize and solve handwritten equations",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := models.LoadConfig(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		logging.Setup(cfg.LogLevel, cfg.LogJSON)
		config = cfg
		return nil
	},
}

func init() {
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "Path to the YAML config file")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
}
