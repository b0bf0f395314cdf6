package commands

import (
	"github.com/spf13/cobra"

	"github.com/rillwm/rill/internal/backend"
	"github.com/rillwm/rill/internal/logger"
	"github.com/rillwm/rill/pkg/config"
	"github.com/rillwm/rill/pkg/server"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the compositor",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			logger.Error("Configuration error", "error", err)
			return err
		}

		if err := logger.Init(logger.Config{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
			Output: cfg.Logging.Output,
		}); err != nil {
			logger.Error("Logger initialization failed", "error", err)
			return err
		}

		st, err := server.New(cfg, backend.Dummy{})
		if err != nil {
			logger.Error("Startup failed", "error", err)
			return err
		}

		if err := st.Run(); err != nil {
			logger.Error("A fatal error occurred", "error", err)
			return err
		}
		return nil
	},
}
