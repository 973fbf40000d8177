package core

import "fmt"

// KWayMerger performs a lazy, key-ordered K-way merge over K sorted
// FileRuns, concatenating the value lists of equal keys in file-list
// order (spec §4.2). It holds exactly K open file handles at
// construction, closing each as its run is exhausted, and holds no
// handle once fully drained.
type KWayMerger struct {
	readers []*FileRunReader
	heap    mergeHeap
	paths   []string
}

// NewKWayMerger opens every path in paths (each a FileRun) and primes the
// heap with each file's first key. paths must be non-empty.
func NewKWayMerger(paths []string) (*KWayMerger, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: NewKWayMerger called with no input files", ErrIO)
	}

	readers := make([]*FileRunReader, len(paths))
	m := &KWayMerger{readers: readers, paths: paths, heap: make(mergeHeap, 0, len(paths))}

	for i, p := range paths {
		r, err := OpenFileRun(p)
		if err != nil {
			m.closeAll()
			return nil, err
		}
		readers[i] = r
		if !r.AtEnd() {
			m.heap.push(mergeItem{key: r.Key(), source: i})
		} else {
			r.Close()
			readers[i] = nil
		}
	}

	return m, nil
}

func (m *KWayMerger) closeAll() {
	for i, r := range m.readers {
		if r != nil {
			r.Close()
			m.readers[i] = nil
		}
	}
}

// HasNext reports whether any source run still has entries remaining.
func (m *KWayMerger) HasNext() bool {
	return m.heap.Len() > 0
}

// Next returns the next (key, concatenated values) pair in ascending key
// order. Next after exhaustion returns ErrInputExhausted.
func (m *KWayMerger) Next() (int64, []string, error) {
	if m.heap.Len() == 0 {
		return 0, nil, ErrInputExhausted
	}

	key := m.heap[0].key
	var out []string

	for m.heap.Len() > 0 && m.heap[0].key == key {
		item := m.heap.pop()
		r := m.readers[item.source]

		values, err := r.Values()
		if err != nil {
			m.closeAll()
			return 0, nil, err
		}
		out = append(out, values...)

		more, err := r.Advance()
		if err != nil {
			m.closeAll()
			return 0, nil, err
		}
		if more {
			m.heap.push(mergeItem{key: r.Key(), source: item.source})
		} else {
			r.Close()
			m.readers[item.source] = nil
		}
	}

	return key, out, nil
}

// Close releases any still-open source files; safe to call after
// exhaustion (a no-op) or to abandon a partially-drained merge early.
func (m *KWayMerger) Close() error {
	var firstErr error
	for i, r := range m.readers {
		if r != nil {
			if err := r.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
			m.readers[i] = nil
		}
	}
	return firstErr
}
