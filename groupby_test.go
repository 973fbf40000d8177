package groupby_test

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"testing"

	"github.com/entreya/groupby"
)

// computeExpected mirrors the reference grouping: a plain in-memory
// multimap built directly from the same (key, value) stream, used as the
// oracle every scenario below is checked against (matches
// original_source/test/tests.py's compute_hashmap).
func computeExpected(pairs []groupby.Pair) []groupby.Pair {
	grouped := make(map[int64][]string)
	var keys []int64
	for _, p := range pairs {
		if _, seen := grouped[p.Key]; !seen {
			keys = append(keys, p.Key)
		}
		grouped[p.Key] = append(grouped[p.Key], p.Value)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	out := make([]groupby.Pair, 0, len(keys))
	for _, k := range keys {
		for _, v := range grouped[k] {
			out = append(out, groupby.Pair{Key: k, Value: v})
		}
	}
	return out
}

// drainAllFromGenerator materializes every pair an Iterator will produce,
// for building an oracle from a generator-based input (e.g.
// IncrementalKeyValueIterator) without consuming the copy under test.
func drainAllFromGenerator(t *testing.T, it groupby.Iterator) []groupby.Pair {
	t.Helper()
	var pairs []groupby.Pair
	for it.HasNext() {
		k, v, err := it.Next()
		if err != nil {
			t.Fatalf("unexpected error draining generator: %v", err)
		}
		pairs = append(pairs, groupby.Pair{Key: k, Value: v})
	}
	return pairs
}

func collectResult(t *testing.T, result groupby.ResultIterator) []groupby.Pair {
	t.Helper()
	var out []groupby.Pair
	for result.HasNext() {
		k, values, err := result.Next()
		if err != nil {
			t.Fatalf("unexpected error iterating result: %v", err)
		}
		for _, v := range values {
			out = append(out, groupby.Pair{Key: k, Value: v})
		}
	}
	return out
}

func assertEqualPairs(t *testing.T, got, want []groupby.Pair) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d pairs, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("mismatch at index %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

// S1 — trivial in-memory.
func TestScenarioTrivialInMemory(t *testing.T) {
	input := groupby.NewSliceIterator([]groupby.Pair{
		{Key: 1, Value: "0"},
		{Key: 0, Value: "1"},
		{Key: 1, Value: "2"},
		{Key: 5, Value: "7"},
	})

	engine := groupby.NewEngine(groupby.WithMaxNumFiles(10), groupby.WithMaxHashmapEntries(1000))
	result, err := engine.GroupBy(input)
	if err != nil {
		t.Fatalf("GroupBy failed: %v", err)
	}

	type group struct {
		key    int64
		values []string
	}
	var got []group
	for result.HasNext() {
		k, values, err := result.Next()
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		got = append(got, group{k, values})
	}

	want := []group{
		{0, []string{"1"}},
		{1, []string{"0", "2"}},
		{5, []string{"7"}},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d groups, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].key != want[i].key || !equalStrings(got[i].values, want[i].values) {
			t.Errorf("group %d: got %+v, want %+v", i, got[i], want[i])
		}
	}

	if engine.Stats().Spills != 0 {
		t.Errorf("expected 0 spills, got %d", engine.Stats().Spills)
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// S2 — single spill path.
func TestScenarioSingleSpillPath(t *testing.T) {
	oracle := groupby.NewIncrementalKeyValueIterator(1000, 10, 7, 1, 1)
	expected := computeExpected(drainAllFromGenerator(t, oracle))

	data := groupby.NewIncrementalKeyValueIterator(1000, 10, 7, 1, 1)
	engine := groupby.NewEngine(groupby.WithMaxNumFiles(4), groupby.WithMaxHashmapEntries(300))
	result, err := engine.GroupBy(data)
	if err != nil {
		t.Fatalf("GroupBy failed: %v", err)
	}

	assertEqualPairs(t, collectResult(t, result), expected)
	if got := engine.Stats().Spills; got != 4 {
		t.Errorf("spills = %d, want 4", got)
	}
}

// S3 — cascading merges.
func TestScenarioCascadingMerges(t *testing.T) {
	oracle := groupby.NewIncrementalKeyValueIterator(1000, 10, 7, 1, 1)
	expected := computeExpected(drainAllFromGenerator(t, oracle))

	data := groupby.NewIncrementalKeyValueIterator(1000, 10, 7, 1, 1)
	engine := groupby.NewEngine(groupby.WithMaxNumFiles(2), groupby.WithMaxHashmapEntries(100))
	result, err := engine.GroupBy(data)
	if err != nil {
		t.Fatalf("GroupBy failed: %v", err)
	}

	assertEqualPairs(t, collectResult(t, result), expected)

	stats := engine.Stats()
	if stats.Spills != 10 {
		t.Errorf("spills = %d, want 10", stats.Spills)
	}
	if stats.NumMergeStages != 3 {
		t.Errorf("num_merge_stages = %d, want 3", stats.NumMergeStages)
	}
	if stats.NumFiles != 2 {
		t.Errorf("num_files = %d, want 2", stats.NumFiles)
	}
}

// S4 — large stream.
func TestScenarioLargeStream(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping large-stream scenario in -short mode")
	}

	oracle := groupby.NewIncrementalKeyValueIterator(200000, 10, 7, 3, 2)
	expected := computeExpected(drainAllFromGenerator(t, oracle))

	data := groupby.NewIncrementalKeyValueIterator(200000, 10, 7, 3, 2)
	engine := groupby.NewEngine(groupby.WithMaxNumFiles(100), groupby.WithMaxHashmapEntries(10000))
	result, err := engine.GroupBy(data)
	if err != nil {
		t.Fatalf("GroupBy failed: %v", err)
	}

	assertEqualPairs(t, collectResult(t, result), expected)

	stats := engine.Stats()
	if stats.Spills != 20 {
		t.Errorf("spills = %d, want 20", stats.Spills)
	}
	if stats.NumFiles != 20 {
		t.Errorf("num_files = %d, want 20", stats.NumFiles)
	}
}

// S5 — memory-budget auto-tune.
func TestScenarioMemoryBudgetAutoTune(t *testing.T) {
	oracle := groupby.NewIncrementalKeyValueIterator(1000, 10, 7, 1, 1)
	expected := computeExpected(drainAllFromGenerator(t, oracle))

	data := groupby.NewIncrementalKeyValueIterator(1000, 10, 7, 1, 1)
	engine := groupby.NewEngine(groupby.WithMaxMemory(1024))
	result, err := engine.GroupBy(data)
	if err != nil {
		t.Fatalf("GroupBy failed: %v", err)
	}

	assertEqualPairs(t, collectResult(t, result), expected)

	stats := engine.Stats()
	if stats.Spills <= 0 {
		t.Errorf("expected spills > 0, got %d", stats.Spills)
	}
	if stats.NumMergeStages <= 0 {
		t.Errorf("expected num_merge_stages > 0, got %d", stats.NumMergeStages)
	}
	if stats.NumFiles > 1000 {
		t.Errorf("expected num_files <= 1000, got %d", stats.NumFiles)
	}
}

// S6 — consecutive independent invocations.
func TestScenarioConsecutiveInvocations(t *testing.T) {
	base := t.TempDir()
	engine := groupby.NewEngine(groupby.WithMaxNumFiles(2), groupby.WithMaxHashmapEntries(1), groupby.WithBaseDir(base))

	var workspaces []string
	var results []groupby.ResultIterator

	for i := 0; i < 10; i++ {
		data := groupby.NewIncrementalKeyValueIterator(10, 3, 3, 1, 1)
		result, err := engine.GroupBy(data)
		if err != nil {
			t.Fatalf("invocation %d: GroupBy failed: %v", i, err)
		}
		results = append(results, result)

		disk, ok := result.(*groupby.DiskResultIterator)
		if !ok {
			t.Fatalf("invocation %d: expected a DiskResultIterator given max_hashmap_entries=1", i)
		}
		_ = disk
	}

	entries, err := os.ReadDir(base)
	if err != nil {
		t.Fatalf("read base dir: %v", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			workspaces = append(workspaces, filepath.Join(base, e.Name()))
		}
	}
	if len(workspaces) != 10 {
		t.Fatalf("expected 10 distinct workspaces, got %d", len(workspaces))
	}

	for i, result := range results {
		for result.HasNext() {
			if _, _, err := result.Next(); err != nil {
				t.Fatalf("invocation %d: exhausting result failed: %v", i, err)
			}
		}
		if _, err := os.Stat(workspaces[i]); !os.IsNotExist(err) {
			t.Errorf("invocation %d: workspace %s still exists after exhaustion", i, workspaces[i])
		}
	}
}

// Boundary: empty input never touches disk.
func TestEmptyInput(t *testing.T) {
	base := t.TempDir()
	engine := groupby.NewEngine(groupby.WithBaseDir(base))
	result, err := engine.GroupBy(groupby.NewSliceIterator(nil))
	if err != nil {
		t.Fatalf("GroupBy failed: %v", err)
	}
	if result.HasNext() {
		t.Fatalf("expected empty result")
	}
	if engine.Stats().Spills != 0 {
		t.Errorf("expected 0 spills for empty input, got %d", engine.Stats().Spills)
	}

	entries, err := os.ReadDir(base)
	if err != nil {
		t.Fatalf("read base dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no workspace created for empty input, found %d entries", len(entries))
	}
}

// Boundary: single pair, single key.
func TestSinglePairInput(t *testing.T) {
	engine := groupby.NewEngine()
	result, err := engine.GroupBy(groupby.NewSliceIterator([]groupby.Pair{{Key: 42, Value: "hello"}}))
	if err != nil {
		t.Fatalf("GroupBy failed: %v", err)
	}
	if !result.HasNext() {
		t.Fatalf("expected one group")
	}
	key, values, err := result.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if key != 42 || !equalStrings(values, []string{"hello"}) {
		t.Fatalf("got (%d, %v), want (42, [hello])", key, values)
	}
	if result.HasNext() {
		t.Fatalf("expected exhaustion after one group")
	}
}

// Boundary: all identical keys collapse into one group, order preserved.
func TestAllIdenticalKeys(t *testing.T) {
	pairs := make([]groupby.Pair, 0, 500)
	for i := 0; i < 500; i++ {
		pairs = append(pairs, groupby.Pair{Key: 7, Value: strconv.Itoa(i)})
	}

	engine := groupby.NewEngine(groupby.WithMaxHashmapEntries(50), groupby.WithMaxNumFiles(3))
	result, err := engine.GroupBy(groupby.NewSliceIterator(pairs))
	if err != nil {
		t.Fatalf("GroupBy failed: %v", err)
	}

	key, values, err := result.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if key != 7 {
		t.Fatalf("key = %d, want 7", key)
	}
	for i, v := range values {
		if v != strconv.Itoa(i) {
			t.Fatalf("value %d = %s, want %s (order must be preserved)", i, v, strconv.Itoa(i))
		}
	}
	if result.HasNext() {
		t.Fatalf("expected exactly one group for identical keys")
	}
}

// Boundary: exact-threshold input (N == max_hashmap_entries) should not
// spill, since the Accumulator only spills once entryCount reaches the
// threshold *before* admitting the next pair.
func TestExactThresholdDoesNotSpill(t *testing.T) {
	pairs := make([]groupby.Pair, 0, 100)
	for i := 0; i < 100; i++ {
		pairs = append(pairs, groupby.Pair{Key: int64(i), Value: "v"})
	}

	engine := groupby.NewEngine(groupby.WithMaxHashmapEntries(100))
	_, err := engine.GroupBy(groupby.NewSliceIterator(pairs))
	if err != nil {
		t.Fatalf("GroupBy failed: %v", err)
	}
	if engine.Stats().Spills != 0 {
		t.Errorf("spills = %d, want 0 for N == max_hashmap_entries", engine.Stats().Spills)
	}
}

// Boundary: max_num_files == 1 with a forced spill must fail with
// ErrMergeNotPossible and clean up the workspace.
func TestMaxNumFilesOneFailsToMerge(t *testing.T) {
	base := t.TempDir()
	pairs := []groupby.Pair{{Key: 1, Value: "a"}, {Key: 2, Value: "b"}, {Key: 3, Value: "c"}}

	engine := groupby.NewEngine(
		groupby.WithMaxNumFiles(1),
		groupby.WithMaxHashmapEntries(1),
		groupby.WithBaseDir(base),
	)
	_, err := engine.GroupBy(groupby.NewSliceIterator(pairs))
	if !errors.Is(err, groupby.ErrMergeNotPossible) {
		t.Fatalf("expected ErrMergeNotPossible, got %v", err)
	}

	entries, readErr := os.ReadDir(base)
	if readErr != nil {
		t.Fatalf("read base dir: %v", readErr)
	}
	if len(entries) != 0 {
		t.Errorf("expected workspace removed after MergeNotPossible, found %d entries", len(entries))
	}
}
