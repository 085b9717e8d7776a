package cli

import (
	"reflect"
	"testing"

	"github.com/nidthish/droidrop/internal/core"
)

func testScan() core.ScanResult {
	return core.ScanResult{
		AllFiles: []string{"/sdcard/a.jpg", "/sdcard/a_copy.jpg", "/sdcard/u.pdf"},
		Uniques:  []string{"/sdcard/u.pdf"},
		Groups: []core.DuplicateGroup{
			{Hash: "aaa", Files: []string{"/sdcard/a.jpg", "/sdcard/a_copy.jpg"}},
		},
	}
}

func TestSelectPaths_Modes(t *testing.T) {
	paths, err := selectPaths(testScan(), "uniques", nil, nil)
	if err != nil {
		t.Fatalf("uniques failed: %v", err)
	}
	if !reflect.DeepEqual(paths, []string{"/sdcard/u.pdf"}) {
		t.Errorf("uniques: got %v", paths)
	}

	paths, err = selectPaths(testScan(), "all", nil, nil)
	if err != nil {
		t.Fatalf("all failed: %v", err)
	}
	if len(paths) != 3 {
		t.Errorf("all: got %v", paths)
	}

	paths, err = selectPaths(testScan(), "selected", nil, nil)
	if err != nil {
		t.Fatalf("selected failed: %v", err)
	}
	if !reflect.DeepEqual(paths, []string{"/sdcard/a_copy.jpg"}) {
		t.Errorf("selected: got %v", paths)
	}
}

func TestSelectPaths_Overrides(t *testing.T) {
	paths, err := selectPaths(testScan(), "selected",
		[]string{"/sdcard/a.jpg"}, []string{"/sdcard/a_copy.jpg"})
	if err != nil {
		t.Fatalf("selected failed: %v", err)
	}
	if !reflect.DeepEqual(paths, []string{"/sdcard/a.jpg"}) {
		t.Errorf("got %v", paths)
	}
}

func TestSelectPaths_Errors(t *testing.T) {
	if _, err := selectPaths(testScan(), "everything", nil, nil); err == nil {
		t.Error("expected unknown mode to be rejected")
	}
	if _, err := selectPaths(testScan(), "selected", []string{"/not/scanned"}, nil); err == nil {
		t.Error("expected unknown include path to be rejected")
	}
	if _, err := selectPaths(testScan(), "selected", nil, []string{"/sdcard/a_copy.jpg"}); err == nil {
		t.Error("expected empty selection to be rejected")
	}
}
