// Package position builds the per-account views over the derived position
// list: the position browser cursor, the overview cards and the analytics
// summary.
package position

import (
	"strings"
	"sync"
)

// Navigator tracks, per account, which of the account's positions is on
// display. Indices wrap in both directions.
type Navigator struct {
	mu      sync.Mutex
	indices map[string]int
}

// NewNavigator creates an empty Navigator.
func NewNavigator() *Navigator {
	return &Navigator{indices: make(map[string]int)}
}

// Current returns the displayed index for account given that the account
// owns count positions. An index left past the end of a shrunk list resets
// to zero.
func (n *Navigator) Current(account string, count int) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current(key(account), count)
}

// Next advances the cursor, wrapping from the last position to the first.
func (n *Navigator) Next(account string, count int) int {
	n.mu.Lock()
	defer n.mu.Unlock()

	k := key(account)
	idx := NextIndex(n.current(k, count), count)
	n.indices[k] = idx
	return idx
}

// Prev moves the cursor back, wrapping from the first position to the last.
func (n *Navigator) Prev(account string, count int) int {
	n.mu.Lock()
	defer n.mu.Unlock()

	k := key(account)
	idx := PrevIndex(n.current(k, count), count)
	n.indices[k] = idx
	return idx
}

func (n *Navigator) current(k string, count int) int {
	idx := n.indices[k]
	if idx >= count || idx < 0 {
		idx = 0
		n.indices[k] = 0
	}
	return idx
}

// NextIndex returns the index after i in a list of length count.
func NextIndex(i, count int) int {
	if count <= 0 {
		return 0
	}
	if i < count-1 {
		return i + 1
	}
	return 0
}

// PrevIndex returns the index before i in a list of length count.
func PrevIndex(i, count int) int {
	if count <= 0 {
		return 0
	}
	if i > 0 {
		return i - 1
	}
	return count - 1
}

func key(account string) string {
	return strings.ToLower(strings.TrimSpace(account))
}
