// Copyright (c) 2024 RethinkDNS and its authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package message

// ErroneousResponse reports that a request could not be translated.
// icmpBit instructs the translator to emit an ICMP unreachable to the
// packet's origin (true) or to silently drop it (false). icmpBit may only
// be true for *_MAIN_PACKET message types: ICMP-error packets are
// themselves inner failures, and never cause further ICMP generation.
type ErroneousResponse struct {
	icmpBit     bool
	messageType MessageType
	id          uint32
}

var _ Message = (*ErroneousResponse)(nil)

// NewErroneousResponse validates and constructs an ErroneousResponse.
func NewErroneousResponse(mt MessageType, id uint32, icmpBit bool) (*ErroneousResponse, error) {
	if !mt.Valid() {
		return nil, NewDataError("unknown message type %d", mt)
	}
	if icmpBit && !mt.IsMainPacket() {
		return nil, NewDataError("icmp_bit may only be set for *_MAIN_PACKET types, got %s", mt)
	}
	return &ErroneousResponse{icmpBit: icmpBit, messageType: mt, id: id}, nil
}

func (r *ErroneousResponse) MessageType() MessageType { return r.messageType }
func (r *ErroneousResponse) ID() uint32               { return r.id }
func (r *ErroneousResponse) ICMPBit() bool            { return r.icmpBit }
func (*ErroneousResponse) sealed()                    {}
