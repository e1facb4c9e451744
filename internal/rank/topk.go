// Package rank scores candidate pages and keeps the best K of them.
package rank

import "github.com/hession/coco/internal/websearch"

// DefaultK is the number of results returned to the user.
const DefaultK = 5

// Entry is one slot of a TopK. A nil Result marks an unfilled slot.
type Entry struct {
	Weight int               `json:"weight"`
	Result *websearch.Result `json:"result"`
}

// Absent reports whether the slot is unfilled.
func (e Entry) Absent() bool {
	return e.Result == nil
}

// TopK is a fixed-size, weight-descending list. It always holds exactly K
// entries; every entry after the last filled one is absent.
//
// A TopK is not safe for concurrent use.
type TopK struct {
	entries []Entry
}

// NewTopK returns a list of k absent entries with weight 0.
func NewTopK(k int) *TopK {
	if k < 1 {
		k = 1
	}
	return &TopK{entries: make([]Entry, k)}
}

// Len returns K.
func (t *TopK) Len() int {
	return len(t.entries)
}

// At returns the entry at slot i, 0 being the highest.
func (t *TopK) At(i int) Entry {
	return t.entries[i]
}

// Top returns the highest slot.
func (t *TopK) Top() Entry {
	return t.entries[0]
}

// Entries returns a copy of all K slots.
func (t *TopK) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Filled returns the non-absent entries in rank order.
func (t *TopK) Filled() []Entry {
	out := make([]Entry, 0, len(t.entries))
	for _, e := range t.entries {
		if !e.Absent() {
			out = append(out, e)
		}
	}
	return out
}

// Weights returns the weight of every slot in rank order.
func (t *TopK) Weights() []int {
	out := make([]int, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.Weight
	}
	return out
}

// Consider offers a candidate to the list. Scanning from the top, the
// candidate takes the first slot whose weight is <= its own; that slot and
// everything below move down one place and the last entry is dropped. On a
// tie the newcomer therefore lands above the incumbent. Returns false when
// every slot outweighs the candidate and the list is unchanged.
func (t *TopK) Consider(weight int, result *websearch.Result) bool {
	for i := range t.entries {
		if t.entries[i].Weight <= weight {
			copy(t.entries[i+1:], t.entries[i:len(t.entries)-1])
			t.entries[i] = Entry{Weight: weight, Result: result}
			return true
		}
	}
	return false
}

// Merge folds every filled entry of a, top to bottom, into b and returns b.
// With equal weights across a and b the final order depends on which list
// is folded into which.
func Merge(a, b *TopK) *TopK {
	for _, e := range a.entries {
		if e.Absent() {
			continue
		}
		b.Consider(e.Weight, e.Result)
	}
	return b
}
