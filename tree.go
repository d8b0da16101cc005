// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package hitree

import "iter"

// Tree is the dual-family façade: one FamilyTree per address family,
// dispatching by the family of whatever key it's given. The zero value is
// not usable; build one with NewTree.
type Tree[V any] struct {
	v4 *FamilyTree[V]
	v6 *FamilyTree[V]
}

// NewTree builds a Tree with both families' default prefix limits and a
// shared hook set.
func NewTree[V any](hooks Hooks[V]) *Tree[V] {
	// Defaults always validate; NewFamilyTree can only fail for a
	// caller-supplied prefixLimits, which we don't pass here.
	v4, _ := NewFamilyTree[V](V4, nil, hooks)
	v6, _ := NewFamilyTree[V](V6, nil, hooks)
	return &Tree[V]{v4: v4, v6: v6}
}

// V4 returns the underlying IPv4 family tree.
func (t *Tree[V]) V4() *FamilyTree[V] { return t.v4 }

// V6 returns the underlying IPv6 family tree.
func (t *Tree[V]) V6() *FamilyTree[V] { return t.v6 }

func (t *Tree[V]) familyTree(f Family) *FamilyTree[V] {
	if f == V4 {
		return t.v4
	}
	return t.v6
}

// Add parses addr as a bare IPv4/IPv6 address and records a hit against
// it. It rejects CIDR notation - add always targets a single host.
func (t *Tree[V]) Add(addr string) (Hit[V], error) {
	n, err := ParseAddress(addr)
	if err != nil {
		return Hit[V]{}, err
	}
	return t.AddNetwork(n)
}

// AddNetwork records a hit against a pre-parsed host Network.
func (t *Tree[V]) AddNetwork(n Network) (Hit[V], error) {
	return t.familyTree(n.Family()).Add(n)
}

// Get looks up key, which may be a bare address or a CIDR, and returns the
// node that key resolves to. It returns ErrNotFound on a miss.
func (t *Tree[V]) Get(key string) (*Node[V], error) {
	n, err := ParseNetwork(key)
	if err != nil {
		return nil, err
	}
	return t.GetNetwork(n)
}

// GetNetwork looks up a pre-parsed Network.
func (t *Tree[V]) GetNetwork(n Network) (*Node[V], error) {
	return t.familyTree(n.Family()).Find(n)
}

// Delete removes the exact node for key. It returns ErrNotFound on a miss.
func (t *Tree[V]) Delete(key string) error {
	n, err := ParseNetwork(key)
	if err != nil {
		return err
	}
	return t.DeleteNetwork(n)
}

// DeleteNetwork removes the exact node for a pre-parsed Network.
func (t *Tree[V]) DeleteNetwork(n Network) error {
	return t.familyTree(n.Family()).Remove(n)
}

// Leafs concatenates the IPv6 family's leaves followed by the IPv4
// family's.
func (t *Tree[V]) Leafs() iter.Seq[*Node[V]] {
	return func(yield func(*Node[V]) bool) {
		for n := range t.v6.Leafs() {
			if !yield(n) {
				return
			}
		}
		for n := range t.v4.Leafs() {
			if !yield(n) {
				return
			}
		}
	}
}
