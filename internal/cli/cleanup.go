package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"popsweep/internal/cleaner"
	"popsweep/internal/config"
	"popsweep/internal/pop3client"
)

const defaultEnvFile = ".env"
const defaultLogFile = "popsweep.log"

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete all pending messages from every enabled account",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := loadEnvFile(); err != nil {
			return err
		}

		logger, closeLog, err := buildLogger(cmd)
		if err != nil {
			return err
		}
		defer closeLog()

		store, err := loadStore(cmd)
		if err != nil {
			if errors.Is(err, config.ErrNotFound) {
				logger.Error("account store not found", slog.String("path", store.Path))
			}
			return err
		}

		timeout, err := cmd.Flags().GetDuration("timeout")
		if err != nil {
			return err
		}

		runner, err := cleaner.New(
			cleaner.WithLogger(logger),
			cleaner.WithDialer(func(host string, port int) (cleaner.Session, error) {
				client := &pop3client.Client{Host: host, Port: port, Timeout: timeout}
				if err := client.Connect(); err != nil {
					return nil, err
				}
				return client, nil
			}),
		)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		summary := runner.Run(ctx, store.Accounts)

		if failed := summary.Failed(); failed > 0 {
			return errors.Wrapf(errPartialFailure,
				"%d of %d accounts failed", failed, summary.Attempted)
		}
		return nil
	},
}

func init() {
	cleanupCmd.Flags().String("config", "", "Path to the accounts JSON file (or set POPSWEEP_CONFIG)")
	cleanupCmd.Flags().Duration("timeout", pop3client.DefaultTimeout, "POP3 connect timeout")
	cleanupCmd.Flags().String("log-file", defaultLogFile, "Log file written alongside console output (empty to disable)")
}

// buildLogger returns a JSON slog logger writing to stdout and, unless
// disabled, the log file.
func buildLogger(cmd *cobra.Command) (*slog.Logger, func(), error) {
	logPath, err := cmd.Flags().GetString("log-file")
	if err != nil {
		return nil, nil, err
	}

	out := cmd.OutOrStdout()
	closeLog := func() {}
	if logPath != "" {
		file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "opening log file %s", logPath)
		}
		out = io.MultiWriter(out, file)
		closeLog = func() {
			if err := file.Close(); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "closing log file: %v\n", err)
			}
		}
	}

	return slog.New(slog.NewJSONHandler(out, nil)), closeLog, nil
}

func loadEnvFile() error {
	if _, err := os.Stat(defaultEnvFile); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(defaultEnvFile)
}
