// Copyright (c) 2024 RethinkDNS and its authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package policy implements the 001_nat64 example translation policy: a
// pure function from (message_type, source, destination) to translated
// addresses or a typed failure, per RFC 6052 stateless NAT64.
package policy

import (
	"fmt"
	"net/netip"

	"github.com/celzero/xaxlib/message"
)

// Config holds the NAT64 policy's immutable identity and prefix.
type Config struct {
	// NAT64IPv4 is the translator's own IPv4 identity.
	NAT64IPv4 netip.Addr
	// NAT64IPv6 is the translator's own IPv6 identity.
	NAT64IPv6 netip.Addr
	// NAT64Prefix is the /96 IPv6 prefix IPv4 addresses are embedded into.
	NAT64Prefix netip.Prefix
	// AllowPrivate, if false, rejects private-range addresses on
	// *_MAIN_PACKET requests with icmp_bit=true.
	AllowPrivate bool
	// CacheLifetime is echoed into every SuccessfulResponse this policy
	// produces.
	CacheLifetime uint8
}

// DefaultConfig matches the end-to-end scenario defaults in §8.
func DefaultConfig() Config {
	return Config{
		NAT64IPv4:     netip.MustParseAddr("192.168.64.2"),
		NAT64IPv6:     netip.MustParseAddr("fd64::2"),
		NAT64Prefix:   netip.MustParsePrefix("64:ff9b::/96"),
		AllowPrivate:  true,
		CacheLifetime: 5,
	}
}

// Policy is the 001_nat64 translation policy bound to one Config.
type Policy struct {
	cfg      Config
	bogons   *PrivateRangeTable
	prefix16 [16]byte
}

// New validates cfg and builds a Policy. It is an assertion failure (a
// panic, mirroring the original's `assert (prefix_len == 96)`) if
// NAT64Prefix isn't a /96: that invariant is a deployment-config bug, not
// a runtime condition a caller should have to handle per-request.
func New(cfg Config, bogons *PrivateRangeTable) *Policy {
	if cfg.NAT64Prefix.Bits() != 96 {
		panic(fmt.Sprintf("policy: NAT64Prefix must be a /96, got /%d", cfg.NAT64Prefix.Bits()))
	}
	return &Policy{cfg: cfg, bogons: bogons, prefix16: cfg.NAT64Prefix.Addr().As16()}
}

// Translate runs the per-message-type mapping from §4.3 and returns the
// translated (source, destination) pair, or a *TranslationError.
func (p *Policy) Translate(req *message.Request) (source, destination netip.Addr, err error) {
	mt := req.MessageType()
	src := req.Source()
	dst := req.Destination()

	if mt.IsMainPacket() {
		if err := p.usable(src); err != nil {
			return netip.Addr{}, netip.Addr{}, err
		}
		if err := p.usable(dst); err != nil {
			return netip.Addr{}, netip.Addr{}, err
		}
		if err := p.notPrivateIfNeeded(src); err != nil {
			return netip.Addr{}, netip.Addr{}, err
		}
		if err := p.notPrivateIfNeeded(dst); err != nil {
			return netip.Addr{}, netip.Addr{}, err
		}
	}

	switch mt {
	case message.MT4to6Main:
		s, err := p.prefix4to6(src)
		if err != nil {
			return netip.Addr{}, netip.Addr{}, err
		}
		d, err := p.translatorIP4to6(dst)
		if err != nil {
			return netip.Addr{}, netip.Addr{}, err
		}
		return s, d, nil

	case message.MT4to6ICMPError:
		s, err := p.translatorIP4to6(src)
		if err != nil {
			return netip.Addr{}, netip.Addr{}, err
		}
		d, err := p.prefix4to6(dst)
		if err != nil {
			return netip.Addr{}, netip.Addr{}, err
		}
		return s, d, nil

	case message.MT6to4Main:
		s, err := p.translatorIP6to4(src)
		if err != nil {
			return netip.Addr{}, netip.Addr{}, err
		}
		d, err := p.prefix6to4(dst)
		if err != nil {
			return netip.Addr{}, netip.Addr{}, err
		}
		return s, d, nil

	case message.MT6to4ICMPError:
		s, err := p.prefix6to4(src)
		if err != nil {
			return netip.Addr{}, netip.Addr{}, err
		}
		d, err := p.translatorIP6to4(dst)
		if err != nil {
			return netip.Addr{}, netip.Addr{}, err
		}
		return s, d, nil
	}

	return netip.Addr{}, netip.Addr{}, fail(false, "unreachable: invalid message type %s", mt)
}

// CacheLifetime returns the configured cache_lifetime hint.
func (p *Policy) CacheLifetime() uint8 { return p.cfg.CacheLifetime }

// prefix4to6 embeds a v4 address into the NAT64 prefix: NAT64_PREFIX | v4.
func (p *Policy) prefix4to6(v4 netip.Addr) (netip.Addr, error) {
	if !v4.Is4() {
		return netip.Addr{}, fail(false, "prefix_4to6: %s is not IPv4", v4)
	}
	a := v4.As4()
	out := p.prefix16
	copy(out[12:], a[:])
	return netip.AddrFrom16(out), nil
}

// prefix6to4 extracts the v4 suffix from an address within NAT64_PREFIX.
func (p *Policy) prefix6to4(v6 netip.Addr) (netip.Addr, error) {
	if !v6.Is6() || !p.cfg.NAT64Prefix.Contains(v6) {
		return netip.Addr{}, fail(false, "prefix_6to4: %s is not within %s", v6, p.cfg.NAT64Prefix)
	}
	b := v6.As16()
	var a [4]byte
	copy(a[:], b[12:])
	return netip.AddrFrom4(a), nil
}

// translatorIP4to6 maps the translator's own v4 identity to its v6 one.
func (p *Policy) translatorIP4to6(v4 netip.Addr) (netip.Addr, error) {
	if v4 != p.cfg.NAT64IPv4 {
		return netip.Addr{}, fail(false, "translator_ip_4to6: %s is not the translator's IPv4 identity", v4)
	}
	return p.cfg.NAT64IPv6, nil
}

// translatorIP6to4 maps the translator's own v6 identity to its v4 one.
func (p *Policy) translatorIP6to4(v6 netip.Addr) (netip.Addr, error) {
	if v6 != p.cfg.NAT64IPv6 {
		return netip.Addr{}, fail(false, "translator_ip_6to4: %s is not the translator's IPv6 identity", v6)
	}
	return p.cfg.NAT64IPv4, nil
}

// usable rejects addresses that can never be meaningfully translated:
// unspecified, loopback, multicast for either family, plus IPv4's
// 0.0.0.0/8 and the limited broadcast address. Failures here always
// carry icmp_bit=false.
func (p *Policy) usable(addr netip.Addr) error {
	if addr.IsUnspecified() || addr.IsLoopback() || addr.IsMulticast() {
		return fail(false, "%s is unspecified, loopback or multicast", addr)
	}
	if addr.Is4() {
		b := addr.As4()
		if b[0] == 0x00 {
			return fail(false, "%s is in 0.0.0.0/8", addr)
		}
		if addr == netip.AddrFrom4([4]byte{255, 255, 255, 255}) {
			return fail(false, "%s is the limited broadcast address", addr)
		}
	}
	return nil
}

// notPrivateIfNeeded rejects private-range addresses when the policy is
// configured not to allow their translation. Failures here carry
// icmp_bit=true: the translator is asked to tell the origin its packet
// was refused, rather than silently dropping it.
func (p *Policy) notPrivateIfNeeded(addr netip.Addr) error {
	if p.cfg.AllowPrivate {
		return nil
	}
	if p.bogons.Contains(addr) {
		return fail(true, "%s is a private address and allow_private=false", addr)
	}
	return nil
}
