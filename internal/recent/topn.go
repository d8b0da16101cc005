// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

// Package recent keeps a bounded, approximately-most-active view over a
// stream of hit events, so a CLI consumer of hitree doesn't have to
// re-sort the whole leaf set on every input line just to print "top N".
//
// This is deliberately not part of the core tree: the core has no eviction
// policy of its own, it only aggregates. Ranking recently-active entries
// is a downstream concern.
package recent

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// TopN tracks the N most recently touched keys behind an LRU cache. It is
// approximate: an entry that was hot early on but hasn't been touched
// since can fall out even if its lifetime hit count is still highest,
// exactly like the LRU it's built on.
type TopN[K comparable, V any] struct {
	cache *lru.Cache[K, V]
}

// NewTopN builds a TopN holding at most size entries.
func NewTopN[K comparable, V any](size int) (*TopN[K, V], error) {
	c, err := lru.New[K, V](size)
	if err != nil {
		return nil, err
	}
	return &TopN[K, V]{cache: c}, nil
}

// Touch records that key was hit, storing/refreshing its value.
func (t *TopN[K, V]) Touch(key K, val V) {
	t.cache.Add(key, val)
}

// Snapshot returns the currently tracked entries, most recently touched
// first.
func (t *TopN[K, V]) Snapshot() []V {
	keys := t.cache.Keys()
	out := make([]V, 0, len(keys))
	for i := len(keys) - 1; i >= 0; i-- {
		if v, ok := t.cache.Peek(keys[i]); ok {
			out = append(out, v)
		}
	}
	return out
}
