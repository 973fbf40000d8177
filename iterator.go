package groupby

import "strconv"

// Pair is a single (key, value) input entry, used by SliceIterator.
type Pair struct {
	Key   int64
	Value string
}

// SliceIterator adapts an in-memory slice of Pairs to the Iterator
// contract. Grounded on original_source/test/test_utils.py's ListIterator.
type SliceIterator struct {
	pairs []Pair
	pos   int
}

// NewSliceIterator returns an Iterator over pairs, consumed in order.
func NewSliceIterator(pairs []Pair) *SliceIterator {
	return &SliceIterator{pairs: pairs}
}

// HasNext reports whether any pair remains.
func (it *SliceIterator) HasNext() bool {
	return it.pos < len(it.pairs)
}

// Next returns the next pair, or ErrInputExhausted past the end.
func (it *SliceIterator) Next() (int64, string, error) {
	if !it.HasNext() {
		return 0, "", ErrInputExhausted
	}
	p := it.pairs[it.pos]
	it.pos++
	return p.Key, p.Value, nil
}

// IncrementalKeyValueIterator deterministically generates nrPairs (key,
// value) pairs for reproducible test/benchmark fixtures (spec's Glossary
// entry), matching original_source/test/test_utils.py's
// IncrementalKeyValueIterator exactly: pair i has key (i*keyJump) mod
// keyRange and value (i*valueJump) mod valueRange, both starting at 0 and
// advancing by their jump after each pair.
type IncrementalKeyValueIterator struct {
	remaining int64
	keyRange  int64
	valueRange int64
	keyJump   int64
	valueJump int64

	currentKey   int64
	currentValue int64
}

// NewIncrementalKeyValueIterator builds a generator of nrPairs pairs with
// keys in [0, keyRange) and values in [0, valueRange), advancing by
// keyJump/valueJump (mod their respective ranges) after each pair.
// keyJump and valueJump default to 1 when 0 is passed.
func NewIncrementalKeyValueIterator(nrPairs, keyRange, valueRange int64, keyJump, valueJump int64) *IncrementalKeyValueIterator {
	if keyJump == 0 {
		keyJump = 1
	}
	if valueJump == 0 {
		valueJump = 1
	}
	return &IncrementalKeyValueIterator{
		remaining:  nrPairs,
		keyRange:   keyRange,
		valueRange: valueRange,
		keyJump:    keyJump,
		valueJump:  valueJump,
	}
}

// HasNext reports whether any pair remains to be generated.
func (it *IncrementalKeyValueIterator) HasNext() bool {
	return it.remaining > 0
}

// Next returns the next generated (key, value) pair.
func (it *IncrementalKeyValueIterator) Next() (int64, string, error) {
	if !it.HasNext() {
		return 0, "", ErrInputExhausted
	}
	key := it.currentKey
	value := it.currentValue

	it.currentKey = (it.currentKey + it.keyJump) % it.keyRange
	it.currentValue = (it.currentValue + it.valueJump) % it.valueRange
	it.remaining--

	return key, strconv.FormatInt(value, 10), nil
}
