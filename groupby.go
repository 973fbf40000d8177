// Package groupby implements an external-memory group-by-key operator: a
// two-stage spill-and-merge pipeline that groups a bounded-memory stream
// of (key, value) pairs by key, producing an output stream ordered by key
// ascending where each group holds every value associated with that key
// in input order, including duplicates.
//
// The implementation never holds the whole input in memory at once beyond
// a configurable budget: once that budget is exhausted it spills
// key-sorted runs to disk and reduces them with a cascading K-way merge
// (see internal/core). Scheduling is strictly single-threaded and
// pull-based; there is no parallel execution, no durability guarantee
// beyond normal exhaustion, and no crash recovery.
package groupby

import "github.com/entreya/groupby/internal/core"

// Iterator is the input-stream contract: single-pass, pull-based.
// HasNext reports whether a further pair is available; Next returns the
// next (key, value) pair or ErrInputExhausted once the stream is spent.
type Iterator = core.Iterator

// ResultIterator is the output-stream contract: same shape as Iterator,
// but each element is a key and the ordered list of every value
// associated with it in the input.
type ResultIterator = core.ResultIterator

// Option configures a GroupBy invocation. See With* functions.
type Option = core.Option

// Re-exported configuration knobs (spec §4.4, plus BaseDir/LogOutput —
// see SPEC_FULL.md §6.5/§7b).
var (
	WithMaxNumFiles       = core.WithMaxNumFiles
	WithMaxHashmapEntries = core.WithMaxHashmapEntries
	WithMaxMemory         = core.WithMaxMemory
	WithRequestID         = core.WithRequestID
	WithBaseDir           = core.WithBaseDir
	WithLogOutput         = core.WithLogOutput
)

// Stats are an engine invocation's observable counters.
type Stats = core.Stats

// Sentinel errors (usable with errors.Is). See internal/core/errors.go for
// the authoritative definitions.
var (
	ErrIO               = core.ErrIO
	ErrCorruptRun       = core.ErrCorruptRun
	ErrMergeNotPossible = core.ErrMergeNotPossible
	ErrInputExhausted   = core.ErrInputExhausted
)

// DiskResultIterator is the on-disk result variant; exported so callers
// that want to explicitly Close an abandoned iterator can type-assert for
// it, though GroupBy's return type is the ResultIterator interface.
type DiskResultIterator = core.DiskResultIterator

// MemoryResultIterator is the in-memory result variant.
type MemoryResultIterator = core.MemoryResultIterator

// Engine is the reusable orchestrator behind GroupBy. Most callers only
// need the GroupBy function; Engine is exposed for callers that want to
// inspect Stats() after a run without threading their own side channel.
type Engine = core.Engine

// NewEngine builds an Engine from opts layered over the defaults. Calling
// (*Engine).GroupBy on the same engine for a second input reuses its
// configuration and resets its statistics.
func NewEngine(opts ...Option) *Engine {
	return core.NewEngine(opts...)
}

// GroupBy computes a group-by of input by key, groups ordered by key
// ascending, consuming input exactly once. If input is empty, it returns
// an empty result immediately without touching disk. Otherwise it
// accumulates in memory up to the configured budget, spilling key-sorted
// runs to disk when exceeded, then cascades K-way merges until at most
// max_num_files runs remain and returns a DiskResultIterator over them.
//
// The returned ResultIterator, if backed by disk, owns a temporary
// workspace directory that is removed automatically once the iterator is
// fully drained. If the caller abandons it before exhaustion, the
// workspace is left on disk until collected by external means (type-assert
// to DiskResultIterator and call Close, or run cmd/groupbyreap).
func GroupBy(input Iterator, opts ...Option) (ResultIterator, error) {
	return NewEngine(opts...).GroupBy(input)
}
