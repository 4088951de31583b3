package cli

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"popsweep/internal/config"
)

const configEnvVar = "POPSWEEP_CONFIG"
const defaultConfigFile = "accounts.json"

var rootCmd = &cobra.Command{
	Use:           "popsweep",
	Short:         "popsweep purges mail left behind on POP3 accounts",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// errPartialFailure marks a run where at least one account failed but the
// batch completed.
var errPartialFailure = errors.New("partial failure")

// Execute runs the root command and maps the outcome to an exit code:
// 0 total success, 1 configuration or other fatal error, 2 partial failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	if errors.Is(err, errPartialFailure) {
		return 2
	}
	return 1
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(accountsCmd)
}

// resolveConfigPath picks the account store path from the --config flag, the
// POPSWEEP_CONFIG environment variable, or the colocated default.
func resolveConfigPath(cmd *cobra.Command) (string, error) {
	cfgPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return "", err
	}
	if cfgPath == "" {
		cfgPath = os.Getenv(configEnvVar)
	}
	if cfgPath == "" {
		cfgPath = defaultConfigFile
	}
	return cfgPath, nil
}

func loadStore(cmd *cobra.Command) (*config.Store, error) {
	cfgPath, err := resolveConfigPath(cmd)
	if err != nil {
		return nil, err
	}
	return config.Load(cfgPath)
}
