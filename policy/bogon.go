// Copyright (c) 2024 RethinkDNS and its authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package policy

import (
	"net"
	"net/netip"

	"github.com/k-sone/critbitgo"
)

// defaultPrivateRanges mirrors Python's ipaddress.ip_address(...).is_private,
// which check_if_ip_address_is_not_private_if_needed() calls directly in
// original_source/examples/001_nat64.py. That property is wider than
// net/netip.Addr.IsPrivate(): besides RFC 1918 and RFC 4193 ULA space, it
// covers every other IANA special-purpose registry block (link-local,
// benchmarking, documentation/TEST-NET, and the various IETF-reserved
// ranges), so the table is spelled out here rather than delegated to
// IsPrivate() to keep allow_private=false rejecting the same addresses the
// original does.
var defaultPrivateRanges = []string{
	// RFC 1918 private-use.
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	// RFC 3927 link-local.
	"169.254.0.0/16",
	// RFC 6890 / IANA IPv4 special-purpose registry.
	"192.0.0.0/29",
	"192.0.2.0/24",    // TEST-NET-1
	"198.18.0.0/15",   // benchmarking
	"198.51.100.0/24", // TEST-NET-2
	"203.0.113.0/24",  // TEST-NET-3
	"240.0.0.0/4",     // reserved for future use
	// RFC 4193 ULA.
	"fc00::/7",
	// RFC 4291 link-local.
	"fe80::/10",
	// RFC 3849 documentation.
	"2001:db8::/32",
	// RFC 6666 discard-only.
	"100::/64",
	// RFC 2928 IETF protocol assignments.
	"2001::/23",
}

// PrivateRangeTable is a longest-prefix-match table over CIDR ranges
// treated as "private" by the not_private_if_needed check, backed by a
// crit-bit trie for O(log n) lookups regardless of table size.
type PrivateRangeTable struct {
	trie *critbitgo.Net
}

// NewPrivateRangeTable builds a table from the default special-purpose-
// registry ranges plus any extra CIDR strings given.
func NewPrivateRangeTable(extra ...string) (*PrivateRangeTable, error) {
	t := &PrivateRangeTable{trie: critbitgo.NewNet()}

	ranges := defaultPrivateRanges
	if len(extra) > 0 {
		ranges = append(append([]string{}, defaultPrivateRanges...), extra...)
	}

	for _, cidr := range ranges {
		_, ipnet, err := net.ParseCIDR(cidr)
		if err != nil {
			return nil, err
		}
		if err := t.trie.Add(ipnet, true); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Contains reports whether addr falls within any configured private range.
func (t *PrivateRangeTable) Contains(addr netip.Addr) bool {
	if t == nil || t.trie == nil {
		return addr.IsPrivate()
	}
	_, _, ok := t.trie.MatchIP(net.IP(addr.AsSlice()))
	return ok
}
