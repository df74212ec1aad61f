package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/annexport/annexport/internal/cli/output"
	"github.com/annexport/annexport/pkg/remote"
)

var remotesCmd = &cobra.Command{
	Use:   "remotes",
	Short: "List the configured special remotes",
	Long: `Reads the repository's git configuration and lists every external
special remote annexport knows how to drive, together with its UUID
and external type.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		factories, err := buildFactories(cmd, cfg)
		if err != nil {
			return err
		}

		remotes, err := remote.Discover(cmd.Context(), buildTool(cfg), factories)
		if err != nil {
			return err
		}
		if len(remotes) == 0 {
			fmt.Println("No special remotes configured")
			return nil
		}

		table := output.NewTableData("NAME", "UUID")
		for _, rm := range remotes {
			table.AddRow(rm.Name(), rm.UUID())
		}
		output.PrintTable(os.Stdout, table)
		return nil
	},
}
