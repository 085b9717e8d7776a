package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newLsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ls [remote-path]",
		Short: "List a remote directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfg.DeviceRoot
			if len(args) == 1 {
				path = args[0]
			}
			entries, err := a.api.ListPath(path)
			if err != nil {
				return err
			}
			dirColor := color.New(color.FgBlue, color.Bold)
			for _, e := range entries {
				if e.IsDir {
					dirColor.Println(e.Name)
				} else {
					fmt.Printf("%-10s %s\n", e.Size, e.Name)
				}
			}
			return nil
		},
	}
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check worker and device connectivity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := a.api.Status()
			if err != nil {
				return err
			}
			switch report.Status {
			case "success":
				color.Green("%s", report.Message)
			case "warning":
				color.Yellow("%s", report.Message)
			default:
				color.Red("%s", report.Message)
			}
			return nil
		},
	}
}

func newPreviewCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "preview <remote-path>",
		Short: "Pull a remote file to a local temp path for opening",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			local, err := a.api.PreviewFile(args[0])
			if err != nil {
				return err
			}
			fmt.Println(local)
			return nil
		},
	}
}
