// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

// Package checkpoints holds a family tree's configured aggregation
// checkpoints: an ordered set of (depth, limit) pairs telling the tree at
// which prefix lengths it may collapse a subtree into an aggregate, and how
// many distinct leaves it tolerates below that depth before it does.
//
// Membership ("is this depth a checkpoint at all") is asked on every insert
// while walking from the touched leaf back to the root, so it is backed by
// a bitset for O(1) tests and cheap range iteration instead of scanning a
// slice on every call.
package checkpoints

import (
	"github.com/bits-and-blooms/bitset"
)

// Entry is one configured checkpoint.
type Entry struct {
	Depth uint8
	Limit int
}

// Set is a validated, immutable collection of checkpoints for one address
// family.
type Set struct {
	depths *bitset.BitSet // depths present as checkpoints, indices 0..width
	limits []int          // limits[d], valid only where depths.Test(d)
	width  uint8
}

// New validates entries and builds a Set. entries must be sorted by
// strictly increasing depth, with depth 0 and depth==width both present
// (both conventionally carrying limit 0, since aggregation at the root or
// at full host length is meaningless).
func New(width uint8, entries []Entry) (Set, error) {
	if len(entries) < 2 {
		return Set{}, errTooFew
	}
	if entries[0].Depth != 0 {
		return Set{}, errMissingZero
	}
	if entries[len(entries)-1].Depth != width {
		return Set{}, errMissingMax
	}

	depths := bitset.New(uint(width) + 1)
	limits := make([]int, width+1)

	prev := int(-1)
	for _, e := range entries {
		if e.Depth > width {
			return Set{}, errOutOfRange
		}
		if int(e.Depth) <= prev {
			return Set{}, errNotMonotonic
		}
		prev = int(e.Depth)

		depths.Set(uint(e.Depth))
		limits[e.Depth] = e.Limit
	}

	return Set{depths: depths, limits: limits, width: width}, nil
}

// IsCheckpoint reports whether depth is a configured checkpoint depth.
func (s Set) IsCheckpoint(depth uint8) bool {
	return s.depths.Test(uint(depth))
}

// Limit returns the configured limit at depth. The result is meaningless
// unless IsCheckpoint(depth) is true.
func (s Set) Limit(depth uint8) int {
	return s.limits[depth]
}

// InRange calls fn once for every configured checkpoint depth d with
// lo < d <= hi, in descending order (deepest first), stopping early if fn
// returns false. Callers walk a tree edge at a time: lo is the shallower
// endpoint already visited, hi is the prefix length of the node currently
// being inspected, and a compressed edge can span more than one
// checkpoint depth at once.
func (s Set) InRange(lo, hi uint8, fn func(depth uint8, limit int) bool) {
	if lo >= hi {
		return
	}
	// bitset.NextSet walks upward; collect then walk back down since we
	// need deepest-first order.
	var hits []uint8
	for i, ok := s.depths.NextSet(uint(lo) + 1); ok && i <= uint(hi); i, ok = s.depths.NextSet(i + 1) {
		hits = append(hits, uint8(i))
	}
	for idx := len(hits) - 1; idx >= 0; idx-- {
		d := hits[idx]
		if !fn(d, s.limits[d]) {
			return
		}
	}
}
