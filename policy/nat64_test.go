// Copyright (c) 2024 RethinkDNS and its authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package policy

import (
	"net/netip"
	"testing"

	"github.com/celzero/xaxlib/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDefaultPolicy(t *testing.T) *Policy {
	t.Helper()
	return New(DefaultConfig(), nil)
}

// S1: 4->6 main success.
func TestS1Main4to6Success(t *testing.T) {
	p := newDefaultPolicy(t)
	req, err := message.NewRequest(message.MT4to6Main, 0xDEADBEEF, netip.MustParseAddr("8.8.8.8"), netip.MustParseAddr("192.168.64.2"))
	require.NoError(t, err)

	src, dst, err := p.Translate(req)
	require.NoError(t, err)
	assert.Equal(t, netip.MustParseAddr("64:ff9b::808:808"), src)
	assert.Equal(t, netip.MustParseAddr("fd64::2"), dst)
	assert.EqualValues(t, 5, p.CacheLifetime())
}

// S2: 4->6 main, wrong translator destination.
func TestS2Main4to6WrongTranslator(t *testing.T) {
	p := newDefaultPolicy(t)
	req, err := message.NewRequest(message.MT4to6Main, 0xDEADBEEF, netip.MustParseAddr("8.8.8.8"), netip.MustParseAddr("192.168.64.3"))
	require.NoError(t, err)

	_, _, err = p.Translate(req)
	require.Error(t, err)
	var te *TranslationError
	require.ErrorAs(t, err, &te)
	assert.False(t, te.ICMPBit)
}

// S3: 6->4 main success.
func TestS3Main6to4Success(t *testing.T) {
	p := newDefaultPolicy(t)
	req, err := message.NewRequest(message.MT6to4Main, 0xDEADBEEF, netip.MustParseAddr("fd64::2"), netip.MustParseAddr("64:ff9b::808:808"))
	require.NoError(t, err)

	src, dst, err := p.Translate(req)
	require.NoError(t, err)
	assert.Equal(t, netip.MustParseAddr("192.168.64.2"), src)
	assert.Equal(t, netip.MustParseAddr("8.8.8.8"), dst)
}

// S4: 6->4 main, destination not in prefix.
func TestS4Main6to4NotInPrefix(t *testing.T) {
	p := newDefaultPolicy(t)
	req, err := message.NewRequest(message.MT6to4Main, 0xDEADBEEF, netip.MustParseAddr("fd64::2"), netip.MustParseAddr("2001:db8::1"))
	require.NoError(t, err)

	_, _, err = p.Translate(req)
	require.Error(t, err)
	var te *TranslationError
	require.ErrorAs(t, err, &te)
	assert.False(t, te.ICMPBit)
}

// S5: 4->6 ICMP error success.
func TestS5ICMPError4to6Success(t *testing.T) {
	p := newDefaultPolicy(t)
	req, err := message.NewRequest(message.MT4to6ICMPError, 0xDEADBEEF, netip.MustParseAddr("192.168.64.2"), netip.MustParseAddr("1.2.3.4"))
	require.NoError(t, err)

	src, dst, err := p.Translate(req)
	require.NoError(t, err)
	assert.Equal(t, netip.MustParseAddr("fd64::2"), src)
	assert.Equal(t, netip.MustParseAddr("64:ff9b::102:304"), dst)
}

// Policy law 7: prefix_6to4(prefix_4to6(a)) == a for every IPv4 address.
func TestPrefixRoundTrip(t *testing.T) {
	p := newDefaultPolicy(t)
	for _, s := range []string{"8.8.8.8", "1.1.1.1", "203.0.113.7", "192.0.2.55"} {
		a := netip.MustParseAddr(s)
		v6, err := p.prefix4to6(a)
		require.NoError(t, err)
		back, err := p.prefix6to4(v6)
		require.NoError(t, err)
		assert.Equal(t, a, back)
	}
}

// Policy law 8: translator_ip_4to6(NAT64_IPV4) == NAT64_IPV6 and mirror.
func TestTranslatorIdentityMapping(t *testing.T) {
	p := newDefaultPolicy(t)
	v6, err := p.translatorIP4to6(p.cfg.NAT64IPv4)
	require.NoError(t, err)
	assert.Equal(t, p.cfg.NAT64IPv6, v6)

	v4, err := p.translatorIP6to4(p.cfg.NAT64IPv6)
	require.NoError(t, err)
	assert.Equal(t, p.cfg.NAT64IPv4, v4)
}

// Policy law 9: loopback/multicast/unspecified source fails with icmp_bit=false.
func TestUnusableSourceFails(t *testing.T) {
	p := newDefaultPolicy(t)
	req, err := message.NewRequest(message.MT4to6Main, 1, netip.MustParseAddr("127.0.0.1"), netip.MustParseAddr("192.168.64.2"))
	require.NoError(t, err)

	_, _, err = p.Translate(req)
	require.Error(t, err)
	var te *TranslationError
	require.ErrorAs(t, err, &te)
	assert.False(t, te.ICMPBit)
}

// Policy law 10: with allow_private=false, a private main-packet address
// fails with icmp_bit=true.
func TestPrivateAddressRejectedWithICMP(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AllowPrivate = false
	bogons, err := NewPrivateRangeTable()
	require.NoError(t, err)
	p := New(cfg, bogons)

	req, err := message.NewRequest(message.MT4to6Main, 1, netip.MustParseAddr("10.1.2.3"), netip.MustParseAddr("192.168.64.2"))
	require.NoError(t, err)

	_, _, err = p.Translate(req)
	require.Error(t, err)
	var te *TranslationError
	require.ErrorAs(t, err, &te)
	assert.True(t, te.ICMPBit)
}

// Policy law 10b: the private-range table covers the full special-purpose
// registry the original checks via is_private, not just RFC 1918/ULA.
func TestPrivateAddressRejectedAcrossSpecialPurposeRanges(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AllowPrivate = false
	bogons, err := NewPrivateRangeTable()
	require.NoError(t, err)
	p := New(cfg, bogons)

	for _, addr := range []string{
		"169.254.1.1",  // link-local
		"192.0.2.55",   // TEST-NET-1
		"198.51.100.7", // TEST-NET-2
		"203.0.113.9",  // TEST-NET-3
		"198.18.0.4",   // benchmarking
	} {
		req, err := message.NewRequest(message.MT4to6Main, 1, netip.MustParseAddr(addr), netip.MustParseAddr("192.168.64.2"))
		require.NoError(t, err)

		_, _, err = p.Translate(req)
		require.Error(t, err, "address %s should be rejected as private", addr)
		var te *TranslationError
		require.ErrorAs(t, err, &te)
		assert.True(t, te.ICMPBit, "address %s should set icmp_bit", addr)
	}

	req, err := message.NewRequest(message.MT6to4Main, 1, netip.MustParseAddr("fe80::1"), netip.MustParseAddr("fd64::2"))
	require.NoError(t, err)
	_, _, err = p.Translate(req)
	require.Error(t, err)
	var te *TranslationError
	require.ErrorAs(t, err, &te)
	assert.True(t, te.ICMPBit)
}

func TestNewPanicsOnNonSlash96Prefix(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NAT64Prefix = netip.MustParsePrefix("64:ff9b::/64")
	assert.Panics(t, func() {
		New(cfg, nil)
	})
}

func TestICMPErrorPacketsSkipUsableChecks(t *testing.T) {
	p := newDefaultPolicy(t)
	// loopback would fail usable(), but ICMP-error packets never run it.
	req, err := message.NewRequest(message.MT6to4ICMPError, 1, netip.MustParseAddr("64:ff9b::7f00:1"), netip.MustParseAddr("fd64::2"))
	require.NoError(t, err)

	_, _, err = p.Translate(req)
	assert.NoError(t, err)
}
