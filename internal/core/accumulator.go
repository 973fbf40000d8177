package core

import "slices"

// Accumulator drains an input iterator into an in-memory multimap,
// spilling to a new FileRun whenever the entry count reaches the engine's
// max_hashmap_entries budget (spec §4.3).
type Accumulator struct {
	engine *Engine

	multimap       map[int64][]string
	entryCount     int64
	numSpilledRuns int
}

// NewAccumulator creates an accumulator bound to engine for spill targets,
// budget parameters, and statistics counters.
func NewAccumulator(engine *Engine) *Accumulator {
	return &Accumulator{engine: engine, multimap: make(map[int64][]string)}
}

// Drain consumes input to exhaustion. If no spill ever occurred, it
// returns the accumulated multimap (the "fits in memory" fast path) and
// spilled=false. Otherwise it spills any remaining entries as a final run
// and returns spilled=true with a nil map.
func (a *Accumulator) Drain(input Iterator) (map[int64][]string, bool, error) {
	for input.HasNext() {
		if a.entryCount >= a.engine.maxHashmapEntries() {
			if err := a.spill(); err != nil {
				return nil, false, err
			}
		}

		key, value, err := input.Next()
		if err != nil {
			return nil, false, err
		}
		a.engine.stats.TotalNumEntries++

		a.engine.maybeAutoTune(a.engine.stats.TotalNumEntries)

		a.multimap[key] = append(a.multimap[key], value)
		a.entryCount++
	}

	if a.numSpilledRuns == 0 {
		return a.multimap, false, nil
	}

	if len(a.multimap) > 0 {
		if err := a.spill(); err != nil {
			return nil, false, err
		}
	}
	return nil, true, nil
}

// spill sorts the current multimap's keys ascending, writes it as a new
// FileRun, and clears it. Invariant after return: multimap is empty and
// entryCount is 0 (spill resets both itself).
func (a *Accumulator) spill() error {
	keys := make([]int64, 0, len(a.multimap))
	for k := range a.multimap {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	path := a.engine.dumpPath(a.engine.stats.NumFiles)
	a.engine.warnIfLowDiskSpace(path)
	if err := WriteSortedEntries(path, keys, a.multimap); err != nil {
		return err
	}

	a.multimap = make(map[int64][]string)
	a.entryCount = 0
	a.numSpilledRuns++
	a.engine.stats.NumFiles++
	a.engine.stats.Spills++
	return nil
}
