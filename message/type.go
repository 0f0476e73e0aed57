// Copyright (c) 2024 RethinkDNS and its authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package message

// MessageType is the lower-5-bit discriminant carried by every frame. Its
// integer codes are part of the wire contract; do not renumber.
type MessageType uint8

const (
	MT4to6Main      MessageType = 1
	MT4to6ICMPError MessageType = 2
	MT6to4Main      MessageType = 3
	MT6to4ICMPError MessageType = 4
)

// Valid reports whether t is one of the four known codes.
func (t MessageType) Valid() bool {
	return t >= MT4to6Main && t <= MT6to4ICMPError
}

// Is4to6 reports whether t translates an incoming IPv4 packet toward IPv6.
func (t MessageType) Is4to6() bool {
	return t == MT4to6Main || t == MT4to6ICMPError
}

// Is6to4 reports whether t translates an incoming IPv6 packet toward IPv4.
func (t MessageType) Is6to4() bool {
	return t == MT6to4Main || t == MT6to4ICMPError
}

// IsMainPacket reports whether t is a regular data packet, as opposed to an
// ICMP-error packet.
func (t MessageType) IsMainPacket() bool {
	return t == MT4to6Main || t == MT6to4Main
}

// IsICMPError reports whether t carries an ICMP error about another packet.
func (t MessageType) IsICMPError() bool {
	return t == MT4to6ICMPError || t == MT6to4ICMPError
}

func (t MessageType) String() string {
	switch t {
	case MT4to6Main:
		return "4TO6_MAIN_PACKET"
	case MT4to6ICMPError:
		return "4TO6_ICMP_ERROR_PACKET"
	case MT6to4Main:
		return "6TO4_MAIN_PACKET"
	case MT6to4ICMPError:
		return "6TO4_ICMP_ERROR_PACKET"
	default:
		return "UNKNOWN"
	}
}

// RequestAddrIs4 reports whether the pre-translation (request) addresses
// for t are expected to be IPv4, per the table in the wire codec's decode
// rules: 4TO6_* requests carry IPv4, 6TO4_* requests carry IPv6.
func (t MessageType) RequestAddrIs4() bool {
	return t.Is4to6()
}

// ResponseAddrIs4 reports whether the post-translation (successful
// response) addresses for t are expected to be IPv4: 6TO4_* responses
// carry IPv4, 4TO6_* responses carry IPv6.
func (t MessageType) ResponseAddrIs4() bool {
	return t.Is6to4()
}
