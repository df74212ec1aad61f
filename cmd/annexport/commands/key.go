package commands

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/annexport/annexport/internal/cli/output"
	"github.com/annexport/annexport/pkg/annex"
)

var (
	keySize   uint64
	keyDigest string
	keyName   string
)

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Inspect and build annex content keys",
}

var keyExamineCmd = &cobra.Command{
	Use:   "examine KEY",
	Short: "Break a content key into its parts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := annex.ParseKey(args[0])
		if err != nil {
			return err
		}
		output.SimpleTable(os.Stdout, [][2]string{
			{"Backend", key.Backend},
			{"Size", strconv.FormatUint(key.Size, 10)},
			{"Digest", key.Digest},
			{"Suffix", key.Suffix},
		})
		return nil
	},
}

var keyConstructCmd = &cobra.Command{
	Use:   "construct",
	Short: "Build a content key from size, digest and file name",
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := annex.ConstructKey(annex.BackendMD5E, keySize, keyDigest, keyName)
		if err != nil {
			return err
		}
		fmt.Println(key.String())
		return nil
	},
}

func init() {
	keyConstructCmd.Flags().Uint64Var(&keySize, "size", 0, "Content size in bytes")
	keyConstructCmd.Flags().StringVar(&keyDigest, "digest", "", "Hex MD5 digest of the content")
	keyConstructCmd.Flags().StringVar(&keyName, "name", "", "File name the key's suffix is taken from")
	_ = keyConstructCmd.MarkFlagRequired("size")
	_ = keyConstructCmd.MarkFlagRequired("digest")

	keyCmd.AddCommand(keyExamineCmd)
	keyCmd.AddCommand(keyConstructCmd)
}
