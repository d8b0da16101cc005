// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

// Package hitree provides a threshold-aggregating hit-count trie for
// IPv4 and IPv6 addresses.
//
// Individual addresses are inserted as leaves in a binary prefix trie, one
// trie per address family. Whenever the number of distinct leaves below a
// configured checkpoint prefix length exceeds a configured limit, that
// subtree collapses into a single aggregate leaf covering the whole
// checkpoint prefix. The aggregate keeps absorbing hits to any address in
// its range and preserves the total hit count, trading address-level
// identity for a bounded number of tracked entities.
//
// hitree is meant for feeding downstream consumers - firewall rulesets,
// rate-limit tables, abuse dashboards - that need a running, memory-bounded
// view of "where the hits are coming from" without keeping one entry per
// address forever.
//
// The zero value of Tree is not ready to use; construct one with NewTree.
package hitree
