// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package hitree

import "testing"

func TestTreeEmptyYieldsBothRoots(t *testing.T) {
	t.Parallel()

	tr := NewTree[struct{}](Hooks[struct{}]{})
	var got []string
	for n := range tr.Leafs() {
		got = append(got, n.Network().String())
	}
	want := []string{"::/0", "0.0.0.0/0"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Leafs() on an empty dual tree = %v, want %v", got, want)
	}
}

func TestTreeAddStringDispatch(t *testing.T) {
	t.Parallel()

	tr := NewTree[struct{}](Hooks[struct{}]{})
	hit, err := tr.Add("192.0.2.1")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if hit.Node.Network().Family() != V4 {
		t.Errorf("Add(\"192.0.2.1\") landed on family %v, want V4", hit.Node.Network().Family())
	}

	hit, err = tr.Add("2001:db8::1")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if hit.Node.Network().Family() != V6 {
		t.Errorf("Add(\"2001:db8::1\") landed on family %v, want V6", hit.Node.Network().Family())
	}
}

func TestTreeAddRejectsCIDR(t *testing.T) {
	t.Parallel()

	tr := NewTree[struct{}](Hooks[struct{}]{})
	if _, err := tr.Add("192.0.2.0/24"); err == nil {
		t.Fatal("Add should reject CIDR notation")
	}
}

func TestTreeGetAcceptsAddressOrCIDR(t *testing.T) {
	t.Parallel()

	tr := NewTree[struct{}](Hooks[struct{}]{})
	if _, err := tr.Add("192.0.2.1"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	n, err := tr.Get("192.0.2.1")
	if err != nil {
		t.Fatalf("Get(host): %v", err)
	}
	if n.Network().String() != "192.0.2.1/32" {
		t.Errorf("Get(host) = %v", n.Network())
	}

	if _, err := tr.Get("203.0.113.0/24"); err == nil {
		t.Fatal("Get should return ErrNotFound for an absent network")
	}
}

func TestTreeDeleteDispatch(t *testing.T) {
	t.Parallel()

	tr := NewTree[struct{}](Hooks[struct{}]{})
	if _, err := tr.Add("192.0.2.1"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := tr.Delete("192.0.2.1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := tr.Get("192.0.2.1"); err == nil {
		t.Fatal("deleted host should be gone")
	}
}

// TestAggregateThenDeleteRemovesRange checks that deleting an aggregate
// removes the whole range it stood for, not just its own network entry.
func TestAggregateThenDeleteRemovesRange(t *testing.T) {
	t.Parallel()

	tr := NewTree[struct{}](Hooks[struct{}]{})
	for _, s := range []string{"2001:db8::1", "2001:db8::2", "2001:db8::3"} {
		if _, err := tr.Add(s); err != nil {
			t.Fatalf("Add %s: %v", s, err)
		}
	}

	if err := tr.Delete("2001:db8::/112"); err != nil {
		t.Fatalf("Delete(aggregate): %v", err)
	}

	for n := range tr.Leafs() {
		if n.Network().String() == "2001:db8::/112" {
			t.Fatal("deleted aggregate still present in Leafs()")
		}
	}
	if _, err := tr.Get("2001:db8::1"); err == nil {
		t.Fatal("a host under the deleted aggregate should be NotFound")
	}
}

// TestCustomHookCounterMax exercises a custom aggregate hook that sets a
// counter to the max of the folded leaves' hit counts.
func TestCustomHookCounterMax(t *testing.T) {
	t.Parallel()

	type data struct{ counter uint64 }

	hooks := Hooks[data]{
		Aggregate: func(into *Node[data], from []*Node[data]) {
			var max uint64
			for _, f := range from {
				if f.HitCount() > max {
					max = f.HitCount()
				}
			}
			into.data = data{counter: max}
		},
	}

	v6, err := NewFamilyTree[data](V6, nil, hooks)
	if err != nil {
		t.Fatalf("NewFamilyTree: %v", err)
	}

	addr1 := mustHost(t, "2001:db8::1")
	if _, err := v6.Add(addr1); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := v6.Add(addr1); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := v6.Add(mustHost(t, "2001:db8::2")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	hit, err := v6.Add(mustHost(t, "2001:db8::3"))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	if !hit.Node.Aggregated() {
		t.Fatal("expected the fourth hit to trigger aggregation")
	}
	if hit.Node.Data().counter != 2 {
		t.Errorf("aggregate counter = %d, want 2 (max hit count among folded leaves)", hit.Node.Data().counter)
	}
}
