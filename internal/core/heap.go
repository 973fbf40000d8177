package core

// mergeItem is one entry in the K-way merge's min-heap: the current key of
// one source run, tagged with which run it came from so ties break in
// file-list order (spec §4.2's deterministic tie-break).
type mergeItem struct {
	key    int64
	source int
}

// less implements the heap ordering: by key, then by source index.
func (m mergeItem) less(other mergeItem) bool {
	if m.key != other.key {
		return m.key < other.key
	}
	return m.source < other.source
}

// mergeHeap is a manual binary min-heap over mergeItem. Written by hand
// (rather than via container/heap) to avoid interface-boxing allocations
// on every push/pop, the same tradeoff the teacher makes for its own
// manualHeap in sorter.go.
type mergeHeap []mergeItem

func (h mergeHeap) Len() int { return len(h) }

func (h *mergeHeap) push(item mergeItem) {
	*h = append(*h, item)
	h.up(len(*h) - 1)
}

func (h *mergeHeap) pop() mergeItem {
	old := *h
	n := len(old)
	top := old[0]
	old[0] = old[n-1]
	*h = old[:n-1]
	h.down(0, n-1)
	return top
}

func (h mergeHeap) up(j int) {
	for {
		i := (j - 1) / 2
		if i == j || !h[j].less(h[i]) {
			break
		}
		h[i], h[j] = h[j], h[i]
		j = i
	}
}

func (h mergeHeap) down(i0, n int) {
	i := i0
	for {
		j1 := 2*i + 1
		if j1 >= n || j1 < 0 {
			break
		}
		j := j1
		if j2 := j1 + 1; j2 < n && h[j2].less(h[j1]) {
			j = j2
		}
		if !h[j].less(h[i]) {
			break
		}
		h[i], h[j] = h[j], h[i]
		i = j
	}
}
