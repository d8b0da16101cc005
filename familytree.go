// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package hitree

import (
	"iter"
	"net/netip"

	"github.com/gaissmai/hitree/internal/checkpoints"
)

// PrefixLimit is one (depth, limit) checkpoint: at prefix length Depth, a
// subtree collapses into an aggregate once it holds more than Limit
// distinct leaves. Limit == 0 disables aggregation at that depth.
type PrefixLimit struct {
	Depth uint8
	Limit int
}

// DefaultV4PrefixLimits mirrors the original iptree project's IPv4Tree
// checkpoint depths: intermediate checkpoints at /16 and /24, in addition to
// the mandatory depth-0 and depth-32 sentinels.
var DefaultV4PrefixLimits = []PrefixLimit{
	{0, 0},
	{16, 50},
	{24, 10},
	{32, 0},
}

// DefaultV6PrefixLimits is the default IPv6 checkpoint ladder: coarse
// aggregation kicks in early at wide prefixes with a generous limit, then
// tightens as prefixes narrow toward host addresses.
var DefaultV6PrefixLimits = []PrefixLimit{
	{0, 0},
	{32, 0},
	{48, 50},
	{56, 10},
	{64, 5},
	{80, 4},
	{96, 3},
	{112, 2},
	{128, 0},
}

// Hit is the result of a successful Add: the node the hit ultimately
// landed on, and the leaf-set delta caused by that one call.
type Hit[V any] struct {
	Node         *Node[V]
	LeafsRemoved []*Node[V]
	LeafsAdded   []*Node[V]
}

// FamilyTree is a binary prefix trie for one address family, aggregating
// leaves under configured checkpoints. The zero value is not usable; build
// one with NewFamilyTree.
type FamilyTree[V any] struct {
	family      Family
	root        *Node[V]
	checkpoints checkpoints.Set
	hooks       Hooks[V]
	busy        bool
}

type hookMisuseSignal struct{}

// NewFamilyTree builds a single-family tree. A nil prefixLimits picks the
// family's default ladder.
func NewFamilyTree[V any](family Family, prefixLimits []PrefixLimit, hooks Hooks[V]) (*FamilyTree[V], error) {
	if prefixLimits == nil {
		if family == V4 {
			prefixLimits = DefaultV4PrefixLimits
		} else {
			prefixLimits = DefaultV6PrefixLimits
		}
	}

	entries := make([]checkpoints.Entry, len(prefixLimits))
	for i, pl := range prefixLimits {
		entries[i] = checkpoints.Entry{Depth: pl.Depth, Limit: pl.Limit}
	}

	cps, err := checkpoints.New(family.Width(), entries)
	if err != nil {
		return nil, newMisconfiguredError("%v", err)
	}

	rootAddr := netip.IPv6Unspecified()
	if family == V4 {
		rootAddr = netip.IPv4Unspecified()
	}

	return &FamilyTree[V]{
		family:      family,
		root:        &Node[V]{network: networkFromPrefix(netip.PrefixFrom(rootAddr, 0))},
		checkpoints: cps,
		hooks:       hooks,
	}, nil
}

// Family reports the address family this tree serves.
func (t *FamilyTree[V]) Family() Family { return t.family }

func (t *FamilyTree[V]) enter() {
	if t.busy {
		panic(hookMisuseSignal{})
	}
	t.busy = true
}

func (t *FamilyTree[V]) exit() { t.busy = false }

// Add records a hit against addr, which must be a full-width host Network
// in this tree's family.
func (t *FamilyTree[V]) Add(addr Network) (hit Hit[V], err error) {
	if addr.Family() != t.family {
		return Hit[V]{}, newMalformedError(addr.String(), errFamilyMismatch)
	}
	if addr.PrefixLen() != t.family.Width() {
		return Hit[V]{}, newMalformedError(addr.String(), errNotHost)
	}

	t.enter()
	defer t.exit()
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(hookMisuseSignal); ok {
				hit, err = Hit[V]{}, ErrHookMisuse
				return
			}
			panic(r)
		}
	}()

	cur := t.root
	for {
		if cur.aggregated {
			cur.hitCount++
			t.hooks.callAdd(cur)
			return Hit[V]{Node: cur}, nil
		}
		if cur.network == addr {
			break
		}
		bit := bitAt(addr, cur.network.PrefixLen())
		next := cur.left
		if bit == 1 {
			next = cur.right
		}
		if next == nil || !contains(next.network, addr) {
			break
		}
		cur = next
	}

	var leaf *Node[V]
	var added []*Node[V]
	if cur.network == addr {
		leaf = cur
		leaf.hitCount++
		t.hooks.callAdd(leaf)
	} else {
		leaf = t.attachLeaf(cur, addr)
		added = []*Node[V]{leaf}
	}

	finalNode, removed, agg := t.maybeAggregate(leaf)
	if agg != nil {
		added = []*Node[V]{agg}
	}
	return Hit[V]{Node: finalNode, LeafsRemoved: removed, LeafsAdded: added}, nil
}

// attachLeaf creates the leaf for addr below cur, inserting an
// intermediate routing node only when an existing sibling forces a branch
// (path compression: a chain of single-child nodes is never materialized,
// so a routing node's own prefix length can be deeper than any checkpoint
// depth it sits above).
func (t *FamilyTree[V]) attachLeaf(cur *Node[V], addr Network) *Node[V] {
	bit := bitAt(addr, cur.network.PrefixLen())
	childPtr := &cur.left
	if bit == 1 {
		childPtr = &cur.right
	}
	existing := *childPtr

	newLeaf := &Node[V]{
		network:         addr,
		hitCount:        1,
		leafDescendants: 1,
	}
	newLeaf.data = t.hooks.callInitial()

	if existing == nil {
		newLeaf.parent = cur
		*childPtr = newLeaf
		t.bumpLeafDescendants(cur, 1)
		return newLeaf
	}

	lo := cur.network.PrefixLen()
	hi := existing.network.PrefixLen()
	var diffIdx uint8
	for i := lo; i < hi; i++ {
		if bitAt(existing.network, i) != bitAt(addr, i) {
			diffIdx = i
			break
		}
	}

	branch := &Node[V]{
		network:         supernet(addr, diffIdx),
		leafDescendants: existing.leafDescendants + 1,
		parent:          cur,
	}
	*childPtr = branch

	if bitAt(addr, diffIdx) == 0 {
		branch.left, branch.right = newLeaf, existing
	} else {
		branch.left, branch.right = existing, newLeaf
	}
	newLeaf.parent = branch
	existing.parent = branch

	t.bumpLeafDescendants(cur, 1)
	return newLeaf
}

func (t *FamilyTree[V]) bumpLeafDescendants(from *Node[V], delta int) {
	for n := from; n != nil; n = n.parent {
		n.leafDescendants += delta
	}
}

// maybeAggregate walks from leaf to the root evaluating every configured
// checkpoint on that path, deepest first, and - if any fire - collapses
// the shallowest firing subtree: walking toward the root keeps overwriting
// the candidate with the next, wider checkpoint that also exceeds its
// limit, so the final pick is the widest one that still fired.
func (t *FamilyTree[V]) maybeAggregate(leaf *Node[V]) (finalNode *Node[V], removed []*Node[V], agg *Node[V]) {
	finalNode = leaf

	// firingAnchor is the actual, possibly-path-compressed node whose
	// subtree gets replaced; firingDepth is the checkpoint depth that
	// fired, which is what the resulting aggregate's own network must
	// be truncated to - the two differ whenever path compression jumped
	// straight past the checkpoint, leaving firingAnchor's own prefix
	// deeper than firingDepth.
	var firingAnchor *Node[V]
	var firingDepth uint8
	for node := leaf; node.parent != nil; node = node.parent {
		lo := node.parent.network.PrefixLen()
		hi := node.network.PrefixLen()
		t.checkpoints.InRange(lo, hi, func(d uint8, limit int) bool {
			if limit > 0 && node.leafDescendants > limit {
				firingAnchor = node
				firingDepth = d
			}
			return true
		})
	}

	if firingAnchor == nil {
		return finalNode, nil, nil
	}

	var s []*Node[V]
	collectLeaves(firingAnchor, &s)

	var total uint64
	removed = make([]*Node[V], 0, len(s))
	for _, l := range s {
		total += l.hitCount
		if l != leaf {
			removed = append(removed, l)
		}
	}

	aggNode := &Node[V]{
		network:         supernet(leaf.network, firingDepth),
		hitCount:        total,
		aggregated:      true,
		leafDescendants: 1,
	}
	aggNode.data = t.hooks.callInitial()
	t.hooks.callAggregate(aggNode, s)

	parent := firingAnchor.parent
	delta := 1 - firingAnchor.leafDescendants
	replaceChild(parent, firingAnchor, aggNode)
	firingAnchor.parent = nil

	for p := parent; p != nil; p = p.parent {
		p.leafDescendants += delta
	}

	return aggNode, removed, aggNode
}

// Find returns the deepest node whose prefix contains net (or exactly
// equals it), provided that node is a leaf, an aggregate, or an exact
// match on an internal routing node. The root matches only an exact lookup
// of its own network, even while it is the tree's only leaf.
func (t *FamilyTree[V]) Find(net Network) (node *Node[V], err error) {
	if net.Family() != t.family {
		return nil, newNotFoundError(net)
	}

	t.enter()
	defer t.exit()
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(hookMisuseSignal); ok {
				node, err = nil, ErrHookMisuse
				return
			}
			panic(r)
		}
	}()

	cur := t.root
	var best *Node[V]
	for cur != nil {
		if cur.network == net {
			return cur, nil
		}
		if cur.isLeaf() {
			if cur != t.root && net.PrefixLen() >= cur.network.PrefixLen() && contains(cur.network, net) {
				best = cur
			}
			break
		}
		if net.PrefixLen() <= cur.network.PrefixLen() {
			break
		}
		bit := bitAt(net, cur.network.PrefixLen())
		next := cur.left
		if bit == 1 {
			next = cur.right
		}
		if next == nil || !contains(next.network, net) {
			break
		}
		cur = next
	}

	if best == nil {
		return nil, newNotFoundError(net)
	}
	return best, nil
}

// Remove deletes the node with exactly net, pruning any now-childless
// routing ancestors up to but not including the root.
func (t *FamilyTree[V]) Remove(net Network) (err error) {
	if net.Family() != t.family {
		return newNotFoundError(net)
	}

	t.enter()
	defer t.exit()
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(hookMisuseSignal); ok {
				err = ErrHookMisuse
				return
			}
			panic(r)
		}
	}()

	cur := t.root
	for cur != nil && cur.network != net {
		if cur.isLeaf() || net.PrefixLen() <= cur.network.PrefixLen() {
			cur = nil
			break
		}
		bit := bitAt(net, cur.network.PrefixLen())
		next := cur.left
		if bit == 1 {
			next = cur.right
		}
		if next == nil || !contains(next.network, net) {
			cur = nil
			break
		}
		cur = next
	}

	if cur == nil || cur == t.root {
		return newNotFoundError(net)
	}

	parent := cur.parent
	delta := -cur.leafDescendants
	if parent.left == cur {
		parent.left = nil
	} else {
		parent.right = nil
	}
	cur.parent = nil

	for p := parent; p != nil; p = p.parent {
		p.leafDescendants += delta
	}

	node := parent
	for node != t.root && node.left == nil && node.right == nil {
		gp := node.parent
		if gp.left == node {
			gp.left = nil
		} else {
			gp.right = nil
		}
		node.parent = nil
		node = gp
	}
	return nil
}

// Leafs returns a lazy, restartable, depth-first traversal of every leaf
// and aggregate currently in the tree, right subtree before left. The
// order falls straight out of the tree's shape, so it is deterministic
// for a given tree but not something callers should depend on across
// inserts and removes.
func (t *FamilyTree[V]) Leafs() iter.Seq[*Node[V]] {
	return func(yield func(*Node[V]) bool) {
		var walk func(n *Node[V]) bool
		walk = func(n *Node[V]) bool {
			if n == nil {
				return true
			}
			if n.isLeaf() {
				return yield(n)
			}
			if !walk(n.right) {
				return false
			}
			return walk(n.left)
		}
		walk(t.root)
	}
}
