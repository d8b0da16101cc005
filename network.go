// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package hitree

import (
	"fmt"
	"net/netip"
)

// Network is a (family, bits, prefix length) triple identifying a
// contiguous block of addresses. Only the high-order Bits bits of Addr are
// significant; ParseNetwork and hostNetwork guarantee the rest are zero.
type Network struct {
	addr netip.Addr
	bits uint8 // prefix length, 0..family.Width()
}

// Family reports the address family of n.
func (n Network) Family() Family {
	if n.addr.Is4() {
		return V4
	}
	return V6
}

// PrefixLen reports the number of significant high-order bits.
func (n Network) PrefixLen() uint8 { return n.bits }

// Prefix returns the equivalent netip.Prefix.
func (n Network) Prefix() netip.Prefix {
	return netip.PrefixFrom(n.addr, int(n.bits))
}

// String renders n as a CIDR, e.g. "192.0.2.0/24".
func (n Network) String() string {
	return n.Prefix().String()
}

// networkFromPrefix builds a Network from an already-masked netip.Prefix.
func networkFromPrefix(pfx netip.Prefix) Network {
	return Network{addr: pfx.Addr(), bits: uint8(pfx.Bits())}
}

// hostNetwork builds the full-width Network for a single address.
func hostNetwork(addr netip.Addr) Network {
	addr = addr.Unmap()
	width := uint8(128)
	if addr.Is4() {
		width = 32
	}
	return Network{addr: addr, bits: width}
}

// ParseAddress parses a bare IPv4 or IPv6 address ("192.0.2.1",
// "2001:db8::1") into a full-width host Network. It rejects CIDR notation.
func ParseAddress(s string) (Network, error) {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return Network{}, newMalformedError(s, err)
	}
	return hostNetwork(addr), nil
}

// ParseCIDR parses a CIDR string ("2001:db8::/112") into a Network. Host
// bits beyond the prefix length must be zero; a non-normalized CIDR is
// rejected as malformed.
func ParseCIDR(s string) (Network, error) {
	pfx, err := netip.ParsePrefix(s)
	if err != nil {
		return Network{}, newMalformedError(s, err)
	}
	if masked := pfx.Masked(); masked.Addr() != pfx.Addr() || masked.Bits() != pfx.Bits() {
		return Network{}, newMalformedError(s, fmt.Errorf("non-zero host bits"))
	}
	return networkFromPrefix(pfx), nil
}

// ParseNetwork accepts either a bare address or a CIDR and returns the
// corresponding Network, trying ParseAddress first so a bare address is
// never mistaken for a malformed CIDR.
func ParseNetwork(s string) (Network, error) {
	if n, err := ParseAddress(s); err == nil {
		return n, nil
	}
	return ParseCIDR(s)
}

// contains reports whether outer.family == inner.family, outer.bits <=
// inner.bits, and the high outer.bits bits of both addresses agree.
func contains(outer, inner Network) bool {
	if outer.Family() != inner.Family() {
		return false
	}
	if outer.bits > inner.bits {
		return false
	}
	op := netip.PrefixFrom(outer.addr, int(outer.bits))
	return op.Contains(inner.addr)
}

// bitAt returns the value (0 or 1) of the i-th bit of net's address,
// counting from the most significant bit, 0 <= i < family.Width().
func bitAt(n Network, i uint8) uint8 {
	byteIdx := i / 8
	bitIdx := 7 - (i % 8)
	slice := n.addr.AsSlice()
	return (slice[byteIdx] >> bitIdx) & 1
}

// supernet returns the (family, bits masked to newLen, newLen) ancestor of
// n. newLen must be <= n.bits.
func supernet(n Network, newLen uint8) Network {
	if newLen > n.bits {
		panic("hitree: supernet: newLen exceeds prefix length")
	}
	pfx := netip.PrefixFrom(n.addr, int(newLen)).Masked()
	return networkFromPrefix(pfx)
}
