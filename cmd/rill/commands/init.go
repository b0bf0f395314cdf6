package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rillwm/rill/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a sample configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			path = config.DefaultPath()
		}
		if path == "" {
			return fmt.Errorf("cannot determine config path; pass --config")
		}
		if err := config.WriteSample(path, initForce); err != nil {
			return err
		}
		cmd.Printf("Wrote %s\n", path)
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config file")
}
