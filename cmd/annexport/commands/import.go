package commands

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/annexport/annexport/internal/cli/output"
	"github.com/annexport/annexport/pkg/importer"
)

var (
	importIgnoreUnresolvable bool
	importSkipPresenceCheck  bool
	importQuiet              bool
)

var importCmd = &cobra.Command{
	Use:   "import URL...",
	Short: "Make URLs known to the annex repository",
	Long: `Resolves a content key for every URL through the configured special
remotes and registers the keys with the repository. Local directory
URLs are walked on disk; object-store URLs are resolved through the
backend's metadata API. All tool calls are batched, so importing many
URLs costs only a handful of git-annex invocations.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		coord, err := buildCoordinator(cmd, cfg)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if cfg.Import.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, cfg.Import.Timeout)
			defer cancel()
		}

		opts := importer.Options{
			IgnoreUnresolvable: importIgnoreUnresolvable || cfg.Import.IgnoreUnresolvable,
			SkipPresenceCheck:  importSkipPresenceCheck || cfg.Import.SkipPresenceCheck,
		}
		stats, err := coord.ImportURLs(ctx, args, opts)
		if err != nil {
			return err
		}
		if importQuiet {
			return nil
		}

		urls := make([]string, 0, len(stats))
		for u := range stats {
			urls = append(urls, u)
		}
		sort.Strings(urls)

		table := output.NewTableData("URL", "KEY", "SIZE")
		for _, u := range urls {
			fs := stats[u]
			size := "-"
			if fs.HasSize() {
				size = strconv.FormatInt(fs.Size, 10)
			}
			key := fs.Key
			if key == "" {
				key = "(unresolved)"
			}
			table.AddRow(u, key, size)
		}
		output.PrintTable(os.Stdout, table)
		fmt.Printf("\nImported %d URLs\n", len(urls))
		return nil
	},
}

func init() {
	importCmd.Flags().BoolVar(&importIgnoreUnresolvable, "ignore-unresolvable", false,
		"Continue when a URL cannot be resolved to a key")
	importCmd.Flags().BoolVar(&importSkipPresenceCheck, "skip-presence-check", false,
		"Skip verifying that every imported key is known to the store")
	importCmd.Flags().BoolVarP(&importQuiet, "quiet", "q", false,
		"Suppress the result table")
}
