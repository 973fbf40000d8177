package core

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
)

// writerBufPool recycles 64KB bufio.Writers across FileRun writes, the same
// sizing the teacher uses for its per-chunk writers.
var writerBufPool = sync.Pool{
	New: func() interface{} {
		return bufio.NewWriterSize(nil, 64*1024)
	},
}

// readerBufPool recycles 64KB bufio.Readers across FileRun reads.
var readerBufPool = sync.Pool{
	New: func() interface{} {
		return bufio.NewReaderSize(nil, 64*1024)
	},
}

// FileRunWriter writes a key-sorted sequence of (key, values) entries to a
// single file in the format documented in spec §4.1: line 1 is the decimal
// key, line 2 is the values joined by a single space, both newline
// terminated. The caller must present entries in strictly ascending key
// order with no duplicate keys; the writer does not validate this.
type FileRunWriter struct {
	file *os.File
	buf  *bufio.Writer
}

// NewFileRunWriter creates (or truncates) the file at path and returns a
// writer ready to accept entries.
func NewFileRunWriter(path string) (*FileRunWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create run file %s: %w: %v", path, ErrIO, err)
	}
	buf := writerBufPool.Get().(*bufio.Writer)
	buf.Reset(f)
	return &FileRunWriter{file: f, buf: buf}, nil
}

// WriteEntry appends one (key, values) entry. values must be non-empty;
// an empty list violates the run format's invariant (spec §4.1) and is
// rejected. Values are joined with single spaces and are not escaped or
// validated: a value containing whitespace reads back as several values.
func (w *FileRunWriter) WriteEntry(key int64, values []string) error {
	if len(values) == 0 {
		return fmt.Errorf("%w: write entry for key %d with empty values", ErrCorruptRun, key)
	}
	if _, err := w.buf.WriteString(strconv.FormatInt(key, 10)); err != nil {
		return fmt.Errorf("write key %d: %w: %v", key, ErrIO, err)
	}
	if err := w.buf.WriteByte('\n'); err != nil {
		return fmt.Errorf("write key %d: %w: %v", key, ErrIO, err)
	}
	if _, err := w.buf.WriteString(strings.Join(values, " ")); err != nil {
		return fmt.Errorf("write values for key %d: %w: %v", key, ErrIO, err)
	}
	if err := w.buf.WriteByte('\n'); err != nil {
		return fmt.Errorf("write values for key %d: %w: %v", key, ErrIO, err)
	}
	return nil
}

// Close flushes buffered output and closes the underlying file, leaving a
// well-formed run file on normal return.
func (w *FileRunWriter) Close() error {
	flushErr := w.buf.Flush()
	w.buf.Reset(nil)
	writerBufPool.Put(w.buf)
	w.buf = nil

	closeErr := w.file.Close()
	if flushErr != nil {
		return fmt.Errorf("flush run file: %w: %v", ErrIO, flushErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close run file: %w: %v", ErrIO, closeErr)
	}
	return nil
}

// FileRunReader reads a FileRun written by FileRunWriter, exposing a
// peek-current-key / consume-values / advance cursor.
type FileRunReader struct {
	file *os.File
	buf  *bufio.Reader
	path string

	done       bool
	currentKey int64
	consumed   bool // true once Values() has been called for currentKey
}

// OpenFileRun opens path and primes the cursor on its first entry.
func OpenFileRun(path string) (*FileRunReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open run file %s: %w: %v", path, ErrIO, err)
	}
	buf := readerBufPool.Get().(*bufio.Reader)
	buf.Reset(f)
	r := &FileRunReader{file: f, buf: buf, path: path}
	if err := r.readKeyLine(); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

// readKeyLine reads the next key line into currentKey, or marks the
// reader done on a clean EOF before any bytes were read.
func (r *FileRunReader) readKeyLine() error {
	line, err := r.buf.ReadString('\n')
	if err != nil {
		if err == io.EOF && strings.TrimSpace(line) == "" {
			r.done = true
			return nil
		}
		return fmt.Errorf("read key line in %s: %w: %v", r.path, ErrIO, err)
	}
	line = strings.TrimRight(line, "\n")
	key, convErr := strconv.ParseInt(line, 10, 64)
	if convErr != nil {
		return fmt.Errorf("%w: malformed key line %q in %s", ErrCorruptRun, line, r.path)
	}
	r.currentKey = key
	r.consumed = false
	return nil
}

// AtEnd reports whether the reader has exhausted the file.
func (r *FileRunReader) AtEnd() bool {
	return r.done
}

// Key returns the key at the cursor. Must not be called when AtEnd().
func (r *FileRunReader) Key() int64 {
	return r.currentKey
}

// Values consumes and returns the current key's values line.
func (r *FileRunReader) Values() ([]string, error) {
	if r.done {
		return nil, fmt.Errorf("%w: Values called past end of %s", ErrCorruptRun, r.path)
	}
	line, err := r.buf.ReadString('\n')
	if err != nil && !(err == io.EOF && line != "") {
		return nil, fmt.Errorf("read values line in %s: %w: %v", r.path, ErrIO, err)
	}
	line = strings.TrimRight(line, "\n")
	if line == "" {
		return nil, fmt.Errorf("%w: empty values line in %s", ErrCorruptRun, r.path)
	}
	r.consumed = true
	return strings.Fields(line), nil
}

// Advance moves the cursor to the next entry, returning false once the
// file is exhausted. Advance must be called only after Values() has
// consumed the current entry.
func (r *FileRunReader) Advance() (bool, error) {
	if r.done {
		return false, nil
	}
	if !r.consumed {
		return false, fmt.Errorf("%w: Advance called before Values in %s", ErrCorruptRun, r.path)
	}
	if err := r.readKeyLine(); err != nil {
		return false, err
	}
	return !r.done, nil
}

// Close releases the file handle and pooled buffer.
func (r *FileRunReader) Close() error {
	r.buf.Reset(nil)
	readerBufPool.Put(r.buf)
	r.buf = nil
	if err := r.file.Close(); err != nil {
		return fmt.Errorf("close run file %s: %w: %v", r.path, ErrIO, err)
	}
	return nil
}

// WriteSortedEntries writes the entry (k, values[k]) for every k in keys,
// which must already be in ascending order, to a new FileRun at path. This
// is the Accumulator's spill helper and the cascading merge's
// single-file-group rename alternative never calls it — it is only used
// when a fresh file must be materialized from an in-memory source.
func WriteSortedEntries(path string, keys []int64, values map[int64][]string) error {
	w, err := NewFileRunWriter(path)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := w.WriteEntry(k, values[k]); err != nil {
			w.Close()
			return err
		}
	}
	return w.Close()
}
