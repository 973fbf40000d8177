package core

import (
	"fmt"
	"os"
	"slices"
)

// MemoryResultIterator iterates a pre-sorted key view over an in-memory
// multimap (spec §6.2). Dropping it is trivial: there is no workspace to
// clean up.
type MemoryResultIterator struct {
	keys      []int64
	values    map[int64][]string
	nextIndex int
}

// NewMemoryResultIterator builds a result iterator over multimap, sorting
// its keys ascending once at construction.
func NewMemoryResultIterator(multimap map[int64][]string) *MemoryResultIterator {
	keys := make([]int64, 0, len(multimap))
	for k := range multimap {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return &MemoryResultIterator{keys: keys, values: multimap}
}

// HasNext reports whether any key remains.
func (it *MemoryResultIterator) HasNext() bool {
	return it.nextIndex < len(it.keys)
}

// Next returns the next (key, values) pair in ascending key order.
func (it *MemoryResultIterator) Next() (int64, []string, error) {
	if !it.HasNext() {
		return 0, nil, ErrInputExhausted
	}
	key := it.keys[it.nextIndex]
	it.nextIndex++
	return key, it.values[key], nil
}

// Close is a no-op, present for interface symmetry with DiskResultIterator.
func (it *MemoryResultIterator) Close() error { return nil }

// DiskResultIterator wraps a KWayMerger over a workspace's final runs. On
// the transition from "values remaining" to "no values remaining" it
// atomically deletes the entire workspace directory (spec §6.2). If the
// iterator is abandoned before exhaustion, Close (or an external reaper,
// see cmd/groupbyreap) is responsible for the workspace instead.
type DiskResultIterator struct {
	merger       *KWayMerger
	workspaceDir string
	cleaned      bool
}

// NewDiskResultIterator constructs a merger over runPaths, all living
// under workspaceDir, which this iterator now exclusively owns.
func NewDiskResultIterator(workspaceDir string, runPaths []string) (*DiskResultIterator, error) {
	m, err := NewKWayMerger(runPaths)
	if err != nil {
		return nil, err
	}
	return &DiskResultIterator{merger: m, workspaceDir: workspaceDir}, nil
}

// HasNext reports whether any source run still has entries remaining.
func (it *DiskResultIterator) HasNext() bool {
	return it.merger.HasNext()
}

// Next returns the next (key, values) pair. Once it empties the
// underlying merge, the workspace directory is removed before Next
// returns.
func (it *DiskResultIterator) Next() (int64, []string, error) {
	key, values, err := it.merger.Next()
	if err != nil {
		return 0, nil, err
	}
	if !it.merger.HasNext() {
		if err := it.cleanup(); err != nil {
			return key, values, err
		}
	}
	return key, values, nil
}

// Close removes the workspace if it has not already been cleaned up by
// normal exhaustion. Safe to call multiple times and after exhaustion.
func (it *DiskResultIterator) Close() error {
	if it.cleaned {
		return nil
	}
	if err := it.merger.Close(); err != nil {
		return err
	}
	return it.cleanup()
}

func (it *DiskResultIterator) cleanup() error {
	if it.cleaned {
		return nil
	}
	it.cleaned = true
	if err := os.RemoveAll(it.workspaceDir); err != nil {
		return fmt.Errorf("remove workspace %s: %w: %v", it.workspaceDir, ErrIO, err)
	}
	return nil
}
