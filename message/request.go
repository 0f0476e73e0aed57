// Copyright (c) 2024 RethinkDNS and its authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package message

import "net/netip"

// Request is a translation request: the translator asking the oracle what
// a packet's post-translation source/destination should be. source and
// destination carry the pre-translation IP version expected for
// messageType (IPv4 for 4TO6_*, IPv6 for 6TO4_*).
type Request struct {
	messageType MessageType
	id          uint32
	source      netip.Addr
	destination netip.Addr
}

var _ Message = (*Request)(nil)

// NewRequest validates and constructs a Request. It fails if messageType is
// unknown or if either address doesn't carry the IP version messageType
// expects on the pre-translation side.
func NewRequest(mt MessageType, id uint32, source, destination netip.Addr) (*Request, error) {
	if !mt.Valid() {
		return nil, NewDataError("unknown message type %d", mt)
	}
	wantV4 := mt.RequestAddrIs4()
	if err := wantAddrVersion("source", mt, source, wantV4); err != nil {
		return nil, err
	}
	if err := wantAddrVersion("destination", mt, destination, wantV4); err != nil {
		return nil, err
	}
	return &Request{messageType: mt, id: id, source: source, destination: destination}, nil
}

func (r *Request) MessageType() MessageType { return r.messageType }
func (r *Request) ID() uint32               { return r.id }
func (r *Request) Source() netip.Addr       { return r.source }
func (r *Request) Destination() netip.Addr  { return r.destination }
func (*Request) sealed()                    {}

// MakeSuccessfulResponse builds the response this request's translation
// succeeded with, inheriting messageType and id.
func (r *Request) MakeSuccessfulResponse(cacheLifetime uint8, newSource, newDestination netip.Addr) (*SuccessfulResponse, error) {
	return NewSuccessfulResponse(r.messageType, cacheLifetime, r.id, newSource, newDestination)
}

// MakeErroneousResponse builds the response this request's translation
// failed with, inheriting messageType and id.
func (r *Request) MakeErroneousResponse(icmpBit bool) (*ErroneousResponse, error) {
	return NewErroneousResponse(r.messageType, r.id, icmpBit)
}
