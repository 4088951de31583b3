package cli

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"popsweep/internal/config"
	"popsweep/internal/editor"
)

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Interactively manage the account list",
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := loadStore(cmd)
		if err != nil && !errors.Is(err, config.ErrNotFound) {
			// A malformed store fails loudly; only a missing file starts
			// the editor with an empty list.
			return err
		}

		return editor.New(store, cmd.InOrStdin(), cmd.OutOrStdout()).Run()
	},
}

func init() {
	accountsCmd.Flags().String("config", "", "Path to the accounts JSON file (or set POPSWEEP_CONFIG)")
}
