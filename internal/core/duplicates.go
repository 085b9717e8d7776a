package core

import (
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// DuplicateGroup is one set of files the worker hashed to the same
// content.
type DuplicateGroup struct {
	Hash  string
	Files []string
}

// ScanResult is the outcome of a find_duplicates operation. AllFiles is
// the worker-provided union of everything it scanned.
type ScanResult struct {
	AllFiles []string
	Uniques  []string
	Groups   []DuplicateGroup
}

// TransferMode selects which derived operation a scan selection builds.
type TransferMode int

const (
	// TransferUniques transfers only the files with no duplicates.
	TransferUniques TransferMode = iota
	// TransferAll transfers the worker-provided union of all scanned files.
	TransferAll
	// TransferSelection transfers exactly the operator-checked group files.
	TransferSelection
)

// ScanSelection holds per-file include/exclude choices over a scan
// result. Defaults: the first file of each group is the keeper and
// excluded from transfer, remaining group members are included. Every
// choice stays overridable per file.
type ScanSelection struct {
	result   ScanResult
	included map[string]bool
}

// NewScanSelection builds a selection with the default keeper choices.
func NewScanSelection(result ScanResult) *ScanSelection {
	sel := &ScanSelection{
		result:   result,
		included: make(map[string]bool),
	}
	for _, g := range result.Groups {
		for i, f := range g.Files {
			sel.included[f] = i != 0
		}
	}
	return sel
}

// SetIncluded overrides the transfer choice for one group file.
func (s *ScanSelection) SetIncluded(path string, include bool) error {
	if _, ok := s.included[path]; !ok {
		return errors.Errorf("path not part of any duplicate group: %s", path)
	}
	s.included[path] = include
	return nil
}

// Included reports the current choice for a group file.
func (s *ScanSelection) Included(path string) bool {
	return s.included[path]
}

// Paths produces the ordered path list for the derived operation.
// A manual selection with zero checked files is a validation error and
// no request may be sent for it.
func (s *ScanSelection) Paths(mode TransferMode) ([]string, error) {
	switch mode {
	case TransferUniques:
		return append([]string{}, s.result.Uniques...), nil
	case TransferAll:
		return append([]string{}, s.result.AllFiles...), nil
	case TransferSelection:
		files := lo.Flatten(lo.Map(s.result.Groups, func(g DuplicateGroup, _ int) []string {
			return lo.Filter(g.Files, func(f string, _ int) bool { return s.included[f] })
		}))
		if len(files) == 0 {
			return nil, errors.New("no files selected for transfer")
		}
		return files, nil
	}
	return nil, errors.Errorf("unknown transfer mode %d", mode)
}

// Groups returns the scan's duplicate groups.
func (s *ScanSelection) Groups() []DuplicateGroup {
	return s.result.Groups
}

// Uniques returns the scan's unique files.
func (s *ScanSelection) Uniques() []string {
	return s.result.Uniques
}
