package cli

import (
	"fmt"
	"log"
	"sync"

	"github.com/cheggaaa/pb/v3"
	"github.com/fatih/color"

	"github.com/nidthish/droidrop/internal/core"
)

var (
	warnColor  = color.New(color.FgYellow)
	errColor   = color.New(color.FgRed)
	stateColor = color.New(color.FgCyan)
)

// consoleEmitter renders coordinator events on the terminal and
// forwards them to the command loop. Progress and log events are
// delivered non-blocking: a full buffer drops them rather than stalling
// the channel read loop (they are pure display updates). Events the
// command loop must act on (summary, scan, prompt, cancellation) are
// never dropped.
type consoleEmitter struct {
	logger *log.Logger
	events chan core.UpdateEvent
	quiet  bool

	mu  sync.Mutex
	bar *pb.ProgressBar
}

func newConsoleEmitter(logger *log.Logger, quiet bool) *consoleEmitter {
	return &consoleEmitter{
		logger: logger,
		events: make(chan core.UpdateEvent, 256),
		quiet:  quiet,
	}
}

// Events is consumed by the command loop.
func (e *consoleEmitter) Events() <-chan core.UpdateEvent {
	return e.events
}

// EmitUpdate implements core.Emitter.
func (e *consoleEmitter) EmitUpdate(event core.UpdateEvent) {
	e.render(event)
	if mustDeliver(event) {
		e.events <- event
		return
	}
	select {
	case e.events <- event:
	default:
		e.logger.Printf("[CLI] EmitUpdate: event buffer full, dropping seq=%d", event.Seq)
	}
}

// mustDeliver reports whether the command loop has to act on the event.
// Dropping one of these would leave the loop waiting forever.
func mustDeliver(event core.UpdateEvent) bool {
	return event.Summary != nil || event.Scan != nil || event.Batch != nil || event.Cancelled
}

// render draws the event on the terminal. Emits come from both the
// channel read loop and the command goroutine, so the bar is guarded.
func (e *consoleEmitter) render(event core.UpdateEvent) {
	if e.quiet {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if event.LogLine != "" {
		e.finishBar()
		switch event.LogLevel {
		case "error":
			errColor.Println(event.LogLine)
		case "warning":
			warnColor.Println(event.LogLine)
		default:
			fmt.Println(event.LogLine)
		}
		return
	}

	if event.Summary != nil {
		e.finishBar()
		stateColor.Printf("%s finished: %d succeeded, %d failed\n",
			event.Summary.Kind, event.Summary.Succeeded, event.Summary.Failed)
		return
	}

	switch event.State {
	case core.StateBusy, core.StateCancelling:
		e.renderProgress(event.Progress)
	case core.StateIdle:
		e.finishBar()
	}
}

func (e *consoleEmitter) renderProgress(p core.Progress) {
	if p.Total == 0 {
		return
	}
	if e.bar == nil {
		e.bar = pb.StartNew(p.Total)
	}
	if int64(p.Total) != e.bar.Total() {
		e.bar.SetTotal(int64(p.Total))
	}
	e.bar.SetCurrent(int64(p.Current))
}

func (e *consoleEmitter) finishBar() {
	if e.bar != nil {
		e.bar.Finish()
		e.bar = nil
	}
}
