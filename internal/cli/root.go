// Package cli provides the cobra command surface of the droidrop
// client: transfer operations, duplicate scans, cloud backup/restore,
// remote browsing and account management.
package cli

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/nidthish/droidrop/internal/adapters/api"
	"github.com/nidthish/droidrop/pkg/config"
)

// app carries the wired collaborators every command needs.
type app struct {
	cfg    *config.Config
	logger *log.Logger
	api    *api.Client
	quiet  bool
}

var version = "dev"

// Execute runs the CLI and exits non-zero on error.
func Execute() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	var (
		configPath string
		workerURL  string
		destDir    string
		userID     string
	)

	root := &cobra.Command{
		Use:           "droidrop",
		Short:         "Drive bulk file transfers on a remote worker",
		Long:          "droidrop drives bulk file-transfer operations (copy, move, duplicate scan, cloud backup/restore) executed by a remote worker process over a duplex event channel.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			path := configPath
			if path == "" {
				var err error
				path, err = config.DefaultConfigPath()
				if err != nil {
					return err
				}
			}
			cfg, err := config.LoadOrDefault(path)
			if err != nil {
				return err
			}
			if workerURL != "" {
				cfg.WorkerURL = workerURL
			}
			if destDir != "" {
				cfg.DefaultDestination = destDir
			}
			if userID != "" {
				cfg.UserID = userID
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			a.cfg = cfg
			a.logger = log.New(os.Stderr, "[droidrop] ", log.LstdFlags)
			if a.quiet {
				a.logger.SetOutput(nopWriter{})
			}
			a.api = api.NewClient(cfg.WorkerURL, a.logger)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default ~/.config/droidrop/config.yaml)")
	root.PersistentFlags().StringVar(&workerURL, "worker", "", "Worker base URL (overrides config)")
	root.PersistentFlags().StringVar(&destDir, "dest", "", "Destination folder (overrides config)")
	root.PersistentFlags().StringVar(&userID, "user", "", "Cloud account user id (overrides config)")
	root.PersistentFlags().BoolVarP(&a.quiet, "quiet", "q", false, "Suppress progress and log output")

	root.AddCommand(
		newCopyCmd(a),
		newMoveCmd(a),
		newDupesCmd(a),
		newBackupCmd(a),
		newRestoreCmd(a),
		newLsCmd(a),
		newStatusCmd(a),
		newPreviewCmd(a),
		newLoginCmd(a),
		newAccountCmd(a),
		newAdminCmd(a),
	)
	return root
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

// destination resolves the destination folder for a command, preferring
// the flag/config default and failing early when absent.
func (a *app) destination() (string, error) {
	if a.cfg.DefaultDestination == "" {
		return "", fmt.Errorf("no destination folder configured; pass --dest")
	}
	return a.cfg.DefaultDestination, nil
}

// user resolves the cloud account, failing early when not logged in.
func (a *app) user() (string, error) {
	if a.cfg.UserID == "" {
		return "", fmt.Errorf("no cloud user configured; pass --user or run droidrop login")
	}
	return a.cfg.UserID, nil
}
