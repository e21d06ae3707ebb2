// Package feed implements title browsing: the visited-title history cursor
// and the controller that decides whether a navigation replays history or
// fetches something new.
package feed

// History is an ordered sequence of visited title ids plus a cursor index,
// with browser-style truncate-on-branch semantics.
//
// Invariants: -1 <= index < len(items); index == -1 iff items is empty;
// consecutive duplicates are never appended. It is a plain single-writer
// structure; the Controller serializes access to it.
type History struct {
	items []int
	index int
}

// NewHistory creates an empty history with the cursor at -1.
func NewHistory() *History {
	return &History{index: -1}
}

// Record appends id at the cursor, truncating any forward entries first.
// Recording the id already under the cursor is a no-op. The cursor moves to
// the new tail.
func (h *History) Record(id int) {
	var kept []int
	if h.index >= 0 {
		kept = h.items[:h.index+1]
	}
	if len(kept) > 0 && kept[len(kept)-1] == id {
		return
	}

	h.items = append(append([]int{}, kept...), id)
	h.index = len(h.items) - 1
}

// MoveTo sets the cursor to index if it is a valid position different from
// the current one; otherwise a no-op.
func (h *History) MoveTo(index int) {
	if index < 0 || index >= len(h.items) || index == h.index {
		return
	}
	h.index = index
}

// Reset clears the history.
func (h *History) Reset() {
	h.items = nil
	h.index = -1
}

// ResetTo replaces the history with a single seed entry at index 0.
func (h *History) ResetTo(id int) {
	h.items = []int{id}
	h.index = 0
}

// Index returns the cursor position, -1 when empty.
func (h *History) Index() int { return h.index }

// Len returns the number of recorded ids.
func (h *History) Len() int { return len(h.items) }

// At returns the id at position i, reporting whether i is a valid position.
func (h *History) At(i int) (int, bool) {
	if i < 0 || i >= len(h.items) {
		return 0, false
	}
	return h.items[i], true
}

// Current returns the id under the cursor, reporting whether one exists.
func (h *History) Current() (int, bool) {
	return h.At(h.index)
}

// CanGoBack reports whether there is an entry before the cursor.
func (h *History) CanGoBack() bool { return h.index > 0 }

// CanGoForward reports whether there is an entry after the cursor.
func (h *History) CanGoForward() bool {
	return h.index >= 0 && h.index < len(h.items)-1
}

// Recent returns up to n of the most recently recorded ids, oldest first.
func (h *History) Recent(n int) []int {
	if n <= 0 || len(h.items) == 0 {
		return nil
	}
	start := len(h.items) - n
	if start < 0 {
		start = 0
	}
	return append([]int{}, h.items[start:]...)
}

// Items returns a copy of the full sequence.
func (h *History) Items() []int {
	return append([]int{}, h.items...)
}
