// Package core implements the spill-and-merge external group-by pipeline:
// the on-disk run format, the K-way merge, the in-memory accumulator, and
// the orchestrating engine. See the root groupby package for the public
// entry point.
package core

import "errors"

// Sentinel errors, usable with errors.Is. All engine faults wrap one of
// these via fmt.Errorf("...: %w", ...).
var (
	// ErrIO marks a filesystem or stream read/write failure.
	ErrIO = errors.New("groupby: io error")

	// ErrCorruptRun marks a dump file that violates the FileRun format.
	ErrCorruptRun = errors.New("groupby: corrupt run")

	// ErrMergeNotPossible marks max_num_files < 2 while a merge is needed.
	ErrMergeNotPossible = errors.New("groupby: merge not possible (max_num_files < 2)")

	// ErrInputExhausted is a signal, not a fault: raised by iterators when
	// Next is called past the end of the stream.
	ErrInputExhausted = errors.New("groupby: input exhausted")
)
