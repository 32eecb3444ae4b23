package search

import (
	"container/heap"
	"sort"
)

// topK returns the indices of the k highest positive scores, highest first.
// Equal scores keep index order. Selection uses a bounded heap, so only the
// winners are sorted.
func topK(scores []float64, k int) []int {
	if k <= 0 {
		return []int{}
	}
	h := &rankHeap{scores: scores}
	for i, s := range scores {
		if s <= 0 {
			continue
		}
		if h.Len() < k {
			heap.Push(h, i)
			continue
		}
		if h.worse(h.idx[0], i) {
			h.idx[0] = i
			heap.Fix(h, 0)
		}
	}
	out := make([]int, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(h).(int)
	}
	return out
}

// rankHeap is a min-heap of indices ordered from worst to best rank.
type rankHeap struct {
	scores []float64
	idx    []int
}

// worse reports whether index a ranks below index b.
func (h *rankHeap) worse(a, b int) bool {
	if h.scores[a] != h.scores[b] {
		return h.scores[a] < h.scores[b]
	}
	return a > b
}

func (h *rankHeap) Len() int           { return len(h.idx) }
func (h *rankHeap) Less(i, j int) bool { return h.worse(h.idx[i], h.idx[j]) }
func (h *rankHeap) Swap(i, j int)      { h.idx[i], h.idx[j] = h.idx[j], h.idx[i] }
func (h *rankHeap) Push(x any)         { h.idx = append(h.idx, x.(int)) }
func (h *rankHeap) Pop() any {
	n := len(h.idx)
	x := h.idx[n-1]
	h.idx = h.idx[:n-1]
	return x
}

// AboveScore returns the prefix of ranked results whose score is at least
// min. results must already be ordered best first.
func AboveScore(results []Result, min float64) []Result {
	n := sort.Search(len(results), func(i int) bool { return results[i].Score < min })
	return results[:n]
}
