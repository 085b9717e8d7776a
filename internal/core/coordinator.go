// Package core provides the coordination and protocol logic for bulk
// file-transfer operations driven through a remote worker.
// This package must NOT import any adapter-specific code (WebSocket,
// Cobra, HTTP frameworks). It should be fully testable without UI.
package core

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// OpState is the lifecycle state of the coordinator.
type OpState string

const (
	StateIdle             OpState = "idle"
	StateBusy             OpState = "busy"
	StateAwaitingConflict OpState = "awaiting_conflict"
	StateCancelling       OpState = "cancelling"
)

// Errors returned before any channel traffic is produced.
var (
	ErrOperationInFlight = errors.New("an operation is already in flight")
	ErrNoOperation       = errors.New("no operation is in flight")
	ErrNoConflictSession = errors.New("no conflict session is open")
)

// OperationRequest describes one bulk operation. Immutable once
// submitted.
type OperationRequest struct {
	Kind            OperationKind
	SourcePaths     []string
	DestinationPath string
	UserID          string
}

// Validate rejects a request before any channel event is sent.
func (r OperationRequest) Validate() error {
	if len(r.SourcePaths) == 0 && r.Kind != OpCloudRestore {
		return errors.Errorf("no files selected for %s", r.Kind)
	}
	if r.Kind.IsCloud() && r.UserID == "" {
		return errors.Errorf("%s requires a logged-in user", r.Kind)
	}
	// Backups go to the user's cloud container and scans produce no
	// files, so neither needs a destination.
	needsDest := r.Kind == OpCopy || r.Kind == OpMove || r.Kind == OpCloudRestore
	if needsDest && r.DestinationPath == "" {
		return errors.Errorf("%s requires a destination folder", r.Kind)
	}
	return nil
}

// Progress holds worker-reported operation counters.
type Progress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// OperationSummary is the tally carried by operation_complete. Partial
// failures are reported here, not surfaced as operation errors.
type OperationSummary struct {
	Kind      OperationKind `json:"kind"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
}

// Session is a point-in-time snapshot of the in-flight operation.
type Session struct {
	ID        string           `json:"id"`
	State     OpState          `json:"state"`
	Request   OperationRequest `json:"request"`
	Progress  Progress         `json:"progress"`
	StartedAt time.Time        `json:"startedAt"`
}

// UpdateEvent is emitted whenever coordinator state changes or the
// worker pushes something a consumer must see. Exactly one of the
// optional pointers is set for prompt/summary/scan events.
type UpdateEvent struct {
	SessionID string            `json:"sessionId"`
	Seq       int64             `json:"seq"`
	State     OpState           `json:"state"`
	Kind      OperationKind     `json:"kind,omitempty"`
	Progress  Progress          `json:"progress"`
	LogLine   string            `json:"logLine,omitempty"`
	LogLevel  string            `json:"logLevel,omitempty"`
	Summary   *OperationSummary `json:"summary,omitempty"`
	Batch     *ConflictBatch    `json:"batch,omitempty"`
	Scan      *ScanResult       `json:"scan,omitempty"`
	Cancelled bool              `json:"cancelled,omitempty"`
}

// Emitter is the interface consumers implement to receive coordinator
// events. This keeps the coordinator agnostic about how events are
// rendered (CLI, GUI bindings, tests).
type Emitter interface {
	EmitUpdate(event UpdateEvent)
}

// MultiEmitter broadcasts events to multiple emitters.
type MultiEmitter struct {
	mu       sync.Mutex
	emitters []Emitter
}

// Add adds an emitter to the multi-emitter.
func (m *MultiEmitter) Add(emitter Emitter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emitters = append(m.emitters, emitter)
}

// EmitUpdate broadcasts the event to all registered emitters.
func (m *MultiEmitter) EmitUpdate(event UpdateEvent) {
	m.mu.Lock()
	emitters := make([]Emitter, len(m.emitters))
	copy(emitters, m.emitters)
	m.mu.Unlock()

	for _, e := range emitters {
		if e != nil {
			e.EmitUpdate(event)
		}
	}
}

// OutboundChannel is the client->worker half of the event channel. The
// coordinator owns what is sent, not how it travels.
type OutboundChannel interface {
	Emit(event string, payload any) error
}

// ListingRefresher is invoked after a successful move completes, since
// the move may have altered the currently displayed remote directory.
type ListingRefresher interface {
	RefreshListing(path string)
}

// ThrottleConfig controls how often progress updates reach the emitter.
// State changes, prompts, scan results and terminal events are never
// throttled.
type ThrottleConfig struct {
	MinInterval time.Duration
}

// DefaultThrottleConfig returns sensible defaults for throttling.
func DefaultThrottleConfig() ThrottleConfig {
	return ThrottleConfig{
		MinInterval: 100 * time.Millisecond, // ~10 updates per second max
	}
}

// Coordinator owns the lifecycle of a single long-running, cancellable
// bulk operation. It is the single source of truth for operation state:
// at most one operation is in flight, and every transition happens as
// one lock-protected step. Inbound worker events enter through
// HandleEvent; operator input enters through Start, Resolve and Cancel.
type Coordinator struct {
	mu        sync.Mutex
	channel   OutboundChannel
	emitter   Emitter
	logger    *log.Logger
	refresher ListingRefresher
	throttle  ThrottleConfig

	seq          int64
	lastProgress time.Time

	state      OpState
	session    *Session
	conflict   *ConflictSession
	latestScan *ScanResult
	workingDir string
}

// CoordinatorOption configures the Coordinator.
type CoordinatorOption func(*Coordinator)

// WithThrottle sets a custom progress throttle.
func WithThrottle(t ThrottleConfig) CoordinatorOption {
	return func(c *Coordinator) {
		c.throttle = t
	}
}

// WithListingRefresher sets the hook invoked after a successful move.
func WithListingRefresher(r ListingRefresher) CoordinatorOption {
	return func(c *Coordinator) {
		c.refresher = r
	}
}

// NewCoordinator creates an idle coordinator bound to the outbound
// channel.
func NewCoordinator(channel OutboundChannel, emitter Emitter, logger *log.Logger, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		channel:  channel,
		emitter:  emitter,
		logger:   logger,
		throttle: DefaultThrottleConfig(),
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetEmitter sets the event emitter (used when the emitter is available
// after construction).
func (c *Coordinator) SetEmitter(emitter Emitter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.emitter = emitter
}

// AddEmitter adds an additional emitter. Events go to all of them.
func (c *Coordinator) AddEmitter(emitter Emitter) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.emitter == nil {
		c.emitter = emitter
		return
	}
	if multi, ok := c.emitter.(*MultiEmitter); ok {
		multi.Add(emitter)
		return
	}
	multi := &MultiEmitter{}
	multi.Add(c.emitter)
	multi.Add(emitter)
	c.emitter = multi
}

// SetWorkingDir records the remote directory currently displayed; it is
// the refresh target after a successful move.
func (c *Coordinator) SetWorkingDir(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.workingDir = path
}

// State returns the current coordinator state.
func (c *Coordinator) State() OpState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Session returns a snapshot of the in-flight operation, or nil when
// idle.
func (c *Coordinator) Session() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	snapshot := *c.session
	snapshot.State = c.state
	return &snapshot
}

// LatestScan returns the most recent duplicate-scan result. The result
// is retained until a new operation starts or a new scan supersedes it.
func (c *Coordinator) LatestScan() (*ScanResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.latestScan == nil {
		return nil, false
	}
	snapshot := *c.latestScan
	return &snapshot, true
}

// Start validates the request and submits it to the worker. Rejected
// without any channel traffic if validation fails or an operation is
// already in flight. On success the coordinator is Busy.
func (c *Coordinator) Start(req OperationRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return "", ErrOperationInFlight
	}
	// Reserve the single session slot before touching the channel so a
	// second start cannot slip past the idle check.
	c.state = StateBusy
	c.session = &Session{
		ID:        uuid.NewString(),
		Request:   req,
		StartedAt: time.Now(),
	}
	c.latestScan = nil // a new operation supersedes any held scan
	c.lastProgress = time.Time{}
	id := c.session.ID
	c.mu.Unlock()

	payload := startOperationPayload{
		Operation:  string(req.Kind),
		Paths:      req.SourcePaths,
		DestFolder: req.DestinationPath,
		UserID:     req.UserID,
	}
	if err := c.channel.Emit(EventStartOperation, payload); err != nil {
		// Connectivity failure: the worker accepted nothing, return to idle.
		c.mu.Lock()
		c.state = StateIdle
		c.session = nil
		c.mu.Unlock()
		return "", errors.Wrap(err, "failed to submit operation")
	}

	c.mu.Lock()
	event := c.buildEventLocked()
	c.mu.Unlock()

	c.logger.Printf("[Coordinator] Start: id=%s kind=%s paths=%d", id, req.Kind, len(req.SourcePaths))
	c.emit(event)
	return id, nil
}

// Cancel requests cooperative cancellation of the in-flight operation.
// The coordinator stays in Cancelling until the worker acknowledges;
// there is no timeout, a silent worker leaves the client busy.
func (c *Coordinator) Cancel() error {
	c.mu.Lock()
	if c.state == StateIdle {
		c.mu.Unlock()
		return ErrNoOperation
	}
	// Transition before touching the channel so the worker's ack cannot
	// race the state change.
	prev := c.state
	c.state = StateCancelling
	event := c.buildEventLocked()
	c.mu.Unlock()

	if err := c.channel.Emit(EventCancelOperation, struct{}{}); err != nil {
		c.mu.Lock()
		if c.state == StateCancelling {
			c.state = prev
		}
		c.mu.Unlock()
		return errors.Wrap(err, "failed to request cancellation")
	}

	c.mu.Lock()
	c.conflict = nil // an open prompt is moot once cancellation is requested
	c.mu.Unlock()

	c.logger.Printf("[Coordinator] Cancel: cancellation requested")
	c.emit(event)
	return nil
}

// Resolve records one operator decision for the open conflict session.
// When the session finishes, the merged resolution is sent to the
// worker in a single resolve_conflicts event and the coordinator
// returns to Busy.
func (c *Coordinator) Resolve(d ConflictDecision) error {
	c.mu.Lock()
	if c.state != StateAwaitingConflict || c.conflict == nil {
		c.mu.Unlock()
		return ErrNoConflictSession
	}
	done, err := c.conflict.Apply(d)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	if !done {
		c.mu.Unlock()
		return nil
	}
	resolution, err := c.conflict.Resolution(c.session.Request.DestinationPath)
	c.conflict = nil
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()

	return c.sendResolution(resolution)
}

// sendResolution emits resolve_conflicts and moves back to Busy.
func (c *Coordinator) sendResolution(r ConflictResolution) error {
	payload := resolveConflictsPayload{
		ToOverwrite:    r.ToOverwrite,
		ToProcessFirst: r.ToProcessFirst,
		IsMoveOp:       r.IsMove,
		DestFolder:     r.DestFolder,
	}
	if err := c.channel.Emit(EventResolveConflicts, payload); err != nil {
		return errors.Wrap(err, "failed to send conflict resolution")
	}

	c.mu.Lock()
	c.state = StateBusy
	event := c.buildEventLocked()
	c.mu.Unlock()

	c.logger.Printf("[Coordinator] Resolve: sent resolution overwrite=%d forward=%d",
		len(r.ToOverwrite), len(r.ToProcessFirst))
	c.emit(event)
	return nil
}

// HandleEvent dispatches one inbound worker event. Events arrive in the
// order the worker sent them; each is applied as a single transition.
// Protocol violations are logged and returned as errors, never silently
// accepted.
func (c *Coordinator) HandleEvent(name string, data json.RawMessage) error {
	switch name {
	case EventProgressUpdate:
		return c.handleProgress(data)
	case EventLogMessage:
		return c.handleLog(data)
	case EventOperationComplete:
		return c.handleComplete(data)
	case EventOperationCancelled:
		return c.handleCancelled()
	case EventScanComplete:
		return c.handleScanComplete(data)
	case EventAskForOverwrite:
		return c.handleAskForOverwrite(data)
	}
	c.logger.Printf("[Coordinator] HandleEvent: unknown event %q", name)
	return errors.Errorf("unknown channel event %q", name)
}

func (c *Coordinator) handleProgress(data json.RawMessage) error {
	var p progressPayload
	if err := decode(data, &p); err != nil {
		return errors.Wrap(err, "malformed progress_update")
	}

	c.mu.Lock()
	if c.session == nil {
		c.mu.Unlock()
		return nil // stray progress after a terminal event; discard
	}
	// Counters are worker-reported; clamp for display rather than enforce.
	if p.Total < 0 {
		p.Total = 0
	}
	if p.Current < 0 {
		p.Current = 0
	}
	if p.Current > p.Total {
		p.Current = p.Total
	}
	c.session.Progress = Progress{Current: p.Current, Total: p.Total}

	now := time.Now()
	shouldEmit := now.Sub(c.lastProgress) >= c.throttle.MinInterval
	var event UpdateEvent
	if shouldEmit {
		c.lastProgress = now
		event = c.buildEventLocked()
	}
	c.mu.Unlock()

	if shouldEmit {
		c.emit(event)
	}
	return nil
}

func (c *Coordinator) handleLog(data json.RawMessage) error {
	var p logPayload
	if err := decode(data, &p); err != nil {
		return errors.Wrap(err, "malformed log_message")
	}
	if p.Type == "" {
		p.Type = "info"
	}

	c.mu.Lock()
	event := c.buildEventLocked()
	event.LogLine = p.Data
	event.LogLevel = p.Type
	c.mu.Unlock()

	c.emit(event)
	return nil
}

func (c *Coordinator) handleComplete(data json.RawMessage) error {
	var p completePayload
	if err := decode(data, &p); err != nil {
		return errors.Wrap(err, "malformed operation_complete")
	}

	c.mu.Lock()
	if c.state != StateBusy && c.state != StateCancelling {
		c.mu.Unlock()
		c.logger.Printf("[Coordinator] handleComplete: protocol violation, completion in state %s", c.state)
		return errors.Errorf("operation_complete received in state %s", c.state)
	}
	// The worker labels this event with a display name ("moving",
	// "copying"), not the kind it was started with; the session already
	// knows the kind.
	summary := OperationSummary{
		Kind:      c.session.Request.Kind,
		Succeeded: p.Success,
		Failed:    p.Failed,
	}
	refreshDir := ""
	if summary.Kind == OpMove && summary.Succeeded > 0 && c.refresher != nil {
		refreshDir = c.workingDir
	}
	c.state = StateIdle
	c.session = nil
	event := c.buildEventLocked()
	event.Kind = summary.Kind
	event.Summary = &summary
	c.mu.Unlock()

	c.logger.Printf("[Coordinator] handleComplete: kind=%s succeeded=%d failed=%d",
		summary.Kind, summary.Succeeded, summary.Failed)
	if refreshDir != "" {
		// The completed move may have altered the displayed directory.
		c.refresher.RefreshListing(refreshDir)
	}
	c.emit(event)
	return nil
}

func (c *Coordinator) handleCancelled() error {
	c.mu.Lock()
	if c.state == StateIdle {
		c.mu.Unlock()
		c.logger.Printf("[Coordinator] handleCancelled: protocol violation, no operation in flight")
		return errors.New("operation_cancelled received while idle")
	}
	c.state = StateIdle
	c.session = nil
	c.conflict = nil
	event := c.buildEventLocked()
	event.Cancelled = true
	c.mu.Unlock()

	c.logger.Printf("[Coordinator] handleCancelled: worker acknowledged cancellation")
	c.emit(event)
	return nil
}

func (c *Coordinator) handleScanComplete(data json.RawMessage) error {
	var p scanPayload
	if err := decode(data, &p); err != nil {
		return errors.Wrap(err, "malformed scan_complete")
	}

	c.mu.Lock()
	if c.state != StateBusy {
		c.mu.Unlock()
		c.logger.Printf("[Coordinator] handleScanComplete: protocol violation, scan result in state %s", c.state)
		return errors.Errorf("scan_complete received in state %s", c.state)
	}
	result := ScanResult{
		AllFiles: p.AllFiles,
		Uniques:  p.Uniques,
	}
	for _, g := range p.Duplicates {
		result.Groups = append(result.Groups, DuplicateGroup{Hash: g.Hash, Files: g.Files})
	}
	c.latestScan = &result
	c.state = StateIdle
	c.session = nil
	event := c.buildEventLocked()
	event.Scan = &result
	c.mu.Unlock()

	c.logger.Printf("[Coordinator] handleScanComplete: uniques=%d groups=%d",
		len(result.Uniques), len(result.Groups))
	c.emit(event)
	return nil
}

func (c *Coordinator) handleAskForOverwrite(data json.RawMessage) error {
	var p overwritePayload
	if err := decode(data, &p); err != nil {
		return errors.Wrap(err, "malformed ask_for_overwrite")
	}

	c.mu.Lock()
	if c.state == StateAwaitingConflict {
		c.mu.Unlock()
		c.logger.Printf("[Coordinator] handleAskForOverwrite: protocol violation, conflict session already open")
		return errors.New("conflict batch received while a session is already open")
	}
	if c.state != StateBusy {
		c.mu.Unlock()
		c.logger.Printf("[Coordinator] handleAskForOverwrite: protocol violation, conflict batch in state %s", c.state)
		return errors.Errorf("ask_for_overwrite received in state %s", c.state)
	}
	batch := ConflictBatch{
		Conflicts:    p.Conflicts,
		NonConflicts: p.NonConflicts,
		IsMove:       p.IsMoveOp,
	}
	session := NewConflictSession(batch)
	if session.Done() {
		// Degenerate batch with no conflicts: answer immediately with an
		// empty overwrite list instead of stalling the worker.
		resolution, _ := session.Resolution(c.session.Request.DestinationPath)
		c.mu.Unlock()
		c.logger.Printf("[Coordinator] handleAskForOverwrite: empty batch, finalizing immediately")
		return c.sendResolution(resolution)
	}
	c.conflict = session
	c.state = StateAwaitingConflict
	event := c.buildEventLocked()
	event.Batch = &batch
	c.mu.Unlock()

	c.logger.Printf("[Coordinator] handleAskForOverwrite: conflicts=%d forward=%d",
		len(batch.Conflicts), len(batch.NonConflicts))
	c.emit(event)
	return nil
}

// buildEventLocked assembles an UpdateEvent from current state. Caller
// must hold the mutex.
func (c *Coordinator) buildEventLocked() UpdateEvent {
	c.seq++
	event := UpdateEvent{
		Seq:   c.seq,
		State: c.state,
	}
	if c.session != nil {
		event.SessionID = c.session.ID
		event.Kind = c.session.Request.Kind
		event.Progress = c.session.Progress
	}
	return event
}

func (c *Coordinator) emit(event UpdateEvent) {
	c.mu.Lock()
	emitter := c.emitter
	c.mu.Unlock()
	if emitter != nil {
		emitter.EmitUpdate(event)
	}
}
