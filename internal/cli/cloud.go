package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nidthish/droidrop/internal/core"
	"github.com/nidthish/droidrop/pkg/config"
)

func newBackupCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "backup <remote-path>...",
		Short: "Upload remote files to the cloud account",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.user()
			if err != nil {
				return err
			}
			_, err = a.runOperation(cmd.Context(), core.OperationRequest{
				Kind:        core.OpCloudBackup,
				SourcePaths: args,
				UserID:      user,
			})
			return err
		},
	}
}

func newRestoreCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "restore",
		Short: "Download everything in the cloud account to the destination folder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.user()
			if err != nil {
				return err
			}
			dest, err := a.destination()
			if err != nil {
				return err
			}
			// Restore is the one operation with no source paths: the
			// worker restores the whole container for the user.
			_, err = a.runOperation(cmd.Context(), core.OperationRequest{
				Kind:            core.OpCloudRestore,
				DestinationPath: dest,
				UserID:          user,
			})
			return err
		},
	}
}

func newLoginCmd(a *app) *cobra.Command {
	var save bool
	cmd := &cobra.Command{
		Use:   "login <user-id>",
		Short: "Authenticate a cloud account against the worker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := a.api.Login(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Logged in as %s (plan %s, %.0f GB, expires %s)\n",
				result.User, result.Info.Plan, result.Info.LimitGB, result.Info.Expiry)

			if !save {
				return nil
			}
			path, err := config.DefaultConfigPath()
			if err != nil {
				return err
			}
			a.cfg.UserID = result.User
			return config.SaveToFile(a.cfg, path)
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "Persist the user id in the config file")
	return cmd
}

func newAccountCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage cloud accounts",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "create <user-id> <plan>",
		Short: "Create a cloud account (plans: free, basic, pro)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.api.CreateAccount(args[0], args[1]); err != nil {
				return err
			}
			fmt.Printf("Account %s created with plan %s\n", args[0], args[1])
			return nil
		},
	})
	return cmd
}

func newAdminCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administer the worker's account store",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "users",
		Short: "List accounts with storage usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := a.api.AdminUsers()
			if err != nil {
				return err
			}
			for _, u := range users {
				fmt.Printf("%-20s plan=%-6s usage=%.2f/%.0f GB expires=%s\n",
					u.UserID, u.Plan, u.UsageGB, u.LimitGB, u.Expiry)
			}
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <user-id>",
		Short: "Delete an account and its cloud container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.api.AdminDeleteUser(args[0]); err != nil {
				return err
			}
			fmt.Printf("User %s deleted\n", args[0])
			return nil
		},
	})
	return cmd
}
