package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/annexport/annexport/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default configuration file",
	Long: `Writes a configuration file with default values. Without --config
the file lands in $XDG_CONFIG_HOME/annexport/config.yaml; an existing
file is left alone unless --force is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if configFile != "" {
			if err := config.InitConfigToPath(configFile, initForce); err != nil {
				return err
			}
			fmt.Printf("Configuration written to %s\n", configFile)
			return nil
		}
		path, err := config.InitConfig(initForce)
		if err != nil {
			return err
		}
		fmt.Printf("Configuration written to %s\n", path)
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing configuration file")
}
