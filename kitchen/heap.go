package kitchen

import "container/heap"

// orderEntry is a shelf eviction index element: an order id plus its
// projected expiration instant. The heap may hold entries for orders
// that have since left the shelf (via pickup); those are resolved lazily
// on pop rather than removed eagerly, trading occasional extra pops for
// not needing a decrease-key / delete-by-id heap.
type orderEntry struct {
	orderID         string
	expiresAtMicros int64
}

// entryHeap is a min-heap of orderEntry ordered ascending by
// expiresAtMicros, implementing container/heap.Interface.
type entryHeap []orderEntry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool { return h[i].expiresAtMicros < h[j].expiresAtMicros }

func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *entryHeap) Push(x any) { *h = append(*h, x.(orderEntry)) }

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	entry := old[n-1]
	*h = old[:n-1]
	return entry
}

// evictionIndex wraps entryHeap with the heap.Interface push/pop calls,
// so callers never touch container/heap directly.
type evictionIndex struct {
	entries entryHeap
}

func newEvictionIndex() *evictionIndex {
	idx := &evictionIndex{entries: entryHeap{}}
	heap.Init(&idx.entries)
	return idx
}

func (idx *evictionIndex) push(e orderEntry) {
	heap.Push(&idx.entries, e)
}

// popMin removes and returns the entry with the smallest expiresAtMicros,
// or false if the index is empty.
func (idx *evictionIndex) popMin() (orderEntry, bool) {
	if idx.entries.Len() == 0 {
		return orderEntry{}, false
	}
	return heap.Pop(&idx.entries).(orderEntry), true
}
