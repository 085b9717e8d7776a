package cli

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/nidthish/droidrop/internal/core"
)

func newDupesCmd(a *app) *cobra.Command {
	var (
		transfer string
		includes []string
		excludes []string
	)

	cmd := &cobra.Command{
		Use:   "dupes <remote-path>...",
		Short: "Scan remote paths for duplicate files",
		Long: `Scans the given remote paths for content duplicates and prints the
unique files and duplicate groups. With --transfer, a follow-up copy is
started from the scan result:

  uniques   copy only files that have no duplicate
  all       copy every scanned file
  selected  copy the checked duplicates (default: every group member
            except the first, the keeper); adjust with --include/--exclude`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := a.runOperation(cmd.Context(), core.OperationRequest{
				Kind:        core.OpFindDuplicates,
				SourcePaths: args,
			})
			if err != nil {
				return err
			}
			if result.Scan == nil {
				return nil // cancelled mid-scan
			}
			scan := *result.Scan
			printScan(scan)

			if transfer == "" {
				return nil
			}
			paths, err := selectPaths(scan, transfer, includes, excludes)
			if err != nil {
				return err
			}
			dest, err := a.destination()
			if err != nil {
				return err
			}
			fmt.Printf("Transferring %d files to %s\n", len(paths), dest)
			_, err = a.runOperation(cmd.Context(), core.OperationRequest{
				Kind:            core.OpCopy,
				SourcePaths:     paths,
				DestinationPath: dest,
			})
			return err
		},
	}

	cmd.Flags().StringVar(&transfer, "transfer", "", "Follow-up transfer: uniques, all or selected")
	cmd.Flags().StringArrayVar(&includes, "include", nil, "Group file to add to the selection (repeatable)")
	cmd.Flags().StringArrayVar(&excludes, "exclude", nil, "Group file to drop from the selection (repeatable)")
	return cmd
}

// selectPaths turns a scan result plus operator overrides into the path
// list of the follow-up operation.
func selectPaths(scan core.ScanResult, transfer string, includes, excludes []string) ([]string, error) {
	selection := core.NewScanSelection(scan)
	for _, p := range includes {
		if err := selection.SetIncluded(p, true); err != nil {
			return nil, err
		}
	}
	for _, p := range excludes {
		if err := selection.SetIncluded(p, false); err != nil {
			return nil, err
		}
	}

	switch transfer {
	case "uniques":
		return selection.Paths(core.TransferUniques)
	case "all":
		return selection.Paths(core.TransferAll)
	case "selected":
		return selection.Paths(core.TransferSelection)
	}
	return nil, errors.Errorf("unknown transfer mode %q (want uniques, all or selected)", transfer)
}

func printScan(scan core.ScanResult) {
	fmt.Printf("Scan complete: %d unique files, %d duplicate groups\n",
		len(scan.Uniques), len(scan.Groups))
	for i, group := range scan.Groups {
		fmt.Printf("Group %d (%s):\n", i+1, group.Hash)
		for j, file := range group.Files {
			marker := "[x]"
			if j == 0 {
				marker = "[ ] (keeper)"
			}
			fmt.Printf("  %s %s\n", marker, file)
		}
	}
}
