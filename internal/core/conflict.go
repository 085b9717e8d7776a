package core

import "github.com/pkg/errors"

// ConflictBatch is pushed by the worker mid-operation when destination
// names collide. Conflict ordering is significant: it fixes the order
// the operator is asked to decide in.
type ConflictBatch struct {
	Conflicts    []string
	NonConflicts []string
	IsMove       bool
}

// ConflictDecision is one operator choice for the conflict under the
// cursor. The -all variants decide every remaining conflict at once.
type ConflictDecision int

const (
	DecideOverwrite ConflictDecision = iota
	DecideSkip
	DecideOverwriteAll
	DecideSkipAll
)

func (d ConflictDecision) String() string {
	switch d {
	case DecideOverwrite:
		return "overwrite"
	case DecideSkip:
		return "skip"
	case DecideOverwriteAll:
		return "overwrite-all"
	case DecideSkipAll:
		return "skip-all"
	}
	return "unknown"
}

// ConflictResolution is the merged outcome sent back to the worker.
// Absence from ToOverwrite is the skip signal; the skip buffer itself
// never goes on the wire.
type ConflictResolution struct {
	ToOverwrite    []string
	ToProcessFirst []string
	IsMove         bool
	DestFolder     string
}

// ConflictSession walks the operator through one batch of conflicting
// paths. It holds a cursor over the batch and two output buffers; the
// session is done when every conflict is accounted for.
type ConflictSession struct {
	batch     ConflictBatch
	cursor    int
	overwrite []string
	skip      []string
}

// NewConflictSession creates a session over the batch. A batch with no
// conflicts yields a session that is already done (the worker should
// never send one, but the client finalizes it with an empty overwrite
// list rather than stalling).
func NewConflictSession(batch ConflictBatch) *ConflictSession {
	return &ConflictSession{
		batch:     batch,
		overwrite: []string{},
		skip:      []string{},
	}
}

// Current returns the conflict under the cursor, or false if the
// session is done.
func (s *ConflictSession) Current() (string, bool) {
	if s.Done() {
		return "", false
	}
	return s.batch.Conflicts[s.cursor], true
}

// Done reports whether every conflict has been decided.
func (s *ConflictSession) Done() bool {
	return s.cursor >= len(s.batch.Conflicts)
}

// Remaining returns the number of undecided conflicts.
func (s *ConflictSession) Remaining() int {
	return len(s.batch.Conflicts) - s.cursor
}

// Apply records one decision and reports whether the session is done.
// Per-item decisions advance the cursor by one; the -all variants
// consume the remainder and finish the session immediately.
func (s *ConflictSession) Apply(d ConflictDecision) (bool, error) {
	if s.Done() {
		return true, errors.New("conflict session already finalized")
	}
	switch d {
	case DecideOverwrite:
		s.overwrite = append(s.overwrite, s.batch.Conflicts[s.cursor])
		s.cursor++
	case DecideSkip:
		s.skip = append(s.skip, s.batch.Conflicts[s.cursor])
		s.cursor++
	case DecideOverwriteAll:
		s.overwrite = append(s.overwrite, s.batch.Conflicts[s.cursor:]...)
		s.cursor = len(s.batch.Conflicts)
	case DecideSkipAll:
		s.skip = append(s.skip, s.batch.Conflicts[s.cursor:]...)
		s.cursor = len(s.batch.Conflicts)
	default:
		return false, errors.Errorf("unknown conflict decision %d", d)
	}
	return s.Done(), nil
}

// Resolution builds the outgoing message. Only valid once the session
// is done; the batch's non-conflicting paths are forwarded untouched.
func (s *ConflictSession) Resolution(destFolder string) (ConflictResolution, error) {
	if !s.Done() {
		return ConflictResolution{}, errors.Errorf("conflict session has %d undecided paths", s.Remaining())
	}
	return ConflictResolution{
		ToOverwrite:    s.overwrite,
		ToProcessFirst: s.batch.NonConflicts,
		IsMove:         s.batch.IsMove,
		DestFolder:     destFolder,
	}, nil
}

// Overwrites returns the paths decided as overwrite so far.
func (s *ConflictSession) Overwrites() []string {
	return append([]string{}, s.overwrite...)
}

// Skipped returns the paths decided as skip so far. Local display and
// audit only; skips are signalled to the worker by omission.
func (s *ConflictSession) Skipped() []string {
	return append([]string{}, s.skip...)
}
