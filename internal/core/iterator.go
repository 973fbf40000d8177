package core

// Iterator is the input-stream contract (spec §6.1): single-pass,
// pull-based, linear. Next after exhaustion returns ErrInputExhausted.
type Iterator interface {
	HasNext() bool
	Next() (key int64, value string, err error)
}

// ResultIterator is the output contract (spec §6.2): same shape as
// Iterator, but each element is a key and its ordered, input-order list
// of values.
type ResultIterator interface {
	HasNext() bool
	Next() (key int64, values []string, err error)
}
