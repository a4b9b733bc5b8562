package memory

import (
	"container/heap"
	"sort"
)

// TopN keeps the n highest scored records seen so far.
type TopN struct {
	n int
	h scoredHeap
}

// NewTopN creates a TopN with capacity n.
func NewTopN(n int) *TopN {
	return &TopN{n: n, h: make(scoredHeap, 0, n)}
}

// Push offers a record. It is kept if fewer than n records are held or it
// beats the lowest scored one.
func (t *TopN) Push(r ScoredRecord) {
	if t.n <= 0 {
		return
	}
	if t.h.Len() < t.n {
		heap.Push(&t.h, r)
		return
	}
	if r.Score > t.h[0].Score {
		t.h[0] = r
		heap.Fix(&t.h, 0)
	}
}

// Len returns the number of records held.
func (t *TopN) Len() int { return t.h.Len() }

// Sorted returns the held records by descending score.
func (t *TopN) Sorted() []ScoredRecord {
	out := make([]ScoredRecord, len(t.h))
	copy(out, t.h)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// scoredHeap is a min-heap on Score.
type scoredHeap []ScoredRecord

func (h scoredHeap) Len() int           { return len(h) }
func (h scoredHeap) Less(i, j int) bool { return h[i].Score < h[j].Score }
func (h scoredHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *scoredHeap) Push(x any)        { *h = append(*h, x.(ScoredRecord)) }
func (h *scoredHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
