package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/nidthish/droidrop/internal/adapters/channel"
	"github.com/nidthish/droidrop/internal/core"
)

func newCopyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "copy <remote-path>...",
		Short: "Copy remote files to the destination folder",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dest, err := a.destination()
			if err != nil {
				return err
			}
			_, err = a.runOperation(cmd.Context(), core.OperationRequest{
				Kind:            core.OpCopy,
				SourcePaths:     args,
				DestinationPath: dest,
			})
			return err
		},
	}
}

func newMoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "move <remote-path>...",
		Short: "Move remote files to the destination folder (deletes from device)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dest, err := a.destination()
			if err != nil {
				return err
			}
			_, err = a.runOperation(cmd.Context(), core.OperationRequest{
				Kind:            core.OpMove,
				SourcePaths:     args,
				DestinationPath: dest,
			})
			return err
		},
	}
}

// operationResult is what a finished operation leaves behind: exactly
// one field is set.
type operationResult struct {
	Summary   *core.OperationSummary
	Scan      *core.ScanResult
	Cancelled bool
}

// runOperation drives one operation end to end: connect the channel,
// submit the request, answer conflict prompts, and wait for a terminal
// event. Ctrl-C requests cooperative cancellation; the loop still waits
// for the worker's acknowledgment.
func (a *app) runOperation(ctx context.Context, req core.OperationRequest) (operationResult, error) {
	emitter := newConsoleEmitter(a.logger, a.quiet)
	connErr := make(chan error, 1)

	var coord *core.Coordinator
	ch := channel.New(a.cfg.ChannelURL(),
		channel.HandlerFunc(func(name string, data json.RawMessage) error {
			return coord.HandleEvent(name, data)
		}),
		a.logger,
		channel.WithErrorHandler(func(err error) { connErr <- err }),
	)
	coord = core.NewCoordinator(ch, emitter, a.logger,
		core.WithListingRefresher(&listingLogger{a: a}))
	coord.SetWorkingDir(a.cfg.DeviceRoot)

	if err := ch.Connect(ctx); err != nil {
		return operationResult{}, err
	}
	defer ch.Close()

	if _, err := coord.Start(req); err != nil {
		return operationResult{}, err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	for {
		select {
		case <-sigCh:
			fmt.Fprintln(os.Stderr, "\nCancellation requested, waiting for the worker...")
			if err := coord.Cancel(); err != nil {
				return operationResult{}, err
			}
		case err := <-connErr:
			return operationResult{}, err
		case <-ctx.Done():
			return operationResult{}, ctx.Err()
		case event := <-emitter.Events():
			switch {
			case event.Batch != nil:
				if err := a.promptConflicts(coord, *event.Batch); err != nil {
					return operationResult{}, err
				}
			case event.Summary != nil:
				return operationResult{Summary: event.Summary}, nil
			case event.Scan != nil:
				return operationResult{Scan: event.Scan}, nil
			case event.Cancelled:
				fmt.Println("Operation cancelled.")
				return operationResult{Cancelled: true}, nil
			}
		}
	}
}

// promptConflicts walks the operator through one conflict batch on
// stdin. Each answer drives the coordinator's session; the -all answers
// finish it at once.
func (a *app) promptConflicts(coord *core.Coordinator, batch core.ConflictBatch) error {
	fmt.Printf("%d destination files already exist.\n", len(batch.Conflicts))
	reader := bufio.NewReader(os.Stdin)

	for _, path := range batch.Conflicts {
		if coord.State() != core.StateAwaitingConflict {
			return nil // an -all answer already finished the session
		}
		fmt.Printf("  %s exists. [o]verwrite / [s]kip / overwrite [A]ll / [S]kip all: ", path)
		line, err := reader.ReadString('\n')
		if err != nil {
			return errors.Wrap(err, "failed to read conflict decision")
		}

		var decision core.ConflictDecision
		switch strings.TrimSpace(line) {
		case "o":
			decision = core.DecideOverwrite
		case "s", "":
			decision = core.DecideSkip
		case "A":
			decision = core.DecideOverwriteAll
		case "S":
			decision = core.DecideSkipAll
		default:
			fmt.Println("  Unrecognized answer, skipping this file.")
			decision = core.DecideSkip
		}
		if err := coord.Resolve(decision); err != nil {
			return err
		}
	}
	return nil
}

// listingLogger refreshes and prints the working directory after a
// successful move altered it.
type listingLogger struct {
	a *app
}

func (l *listingLogger) RefreshListing(path string) {
	entries, err := l.a.api.ListPath(path)
	if err != nil {
		l.a.logger.Printf("[CLI] RefreshListing: %v", err)
		return
	}
	if l.a.quiet {
		return
	}
	fmt.Printf("%s now contains %d entries\n", path, len(entries))
}
