// Copyright (c) 2024 RethinkDNS and its authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package message

import "net/netip"

// SuccessfulResponse carries the post-translation addresses for a request
// that translated cleanly. source and destination carry the post-
// translation IP version expected for messageType (IPv6 for 4TO6_*, IPv4
// for 6TO4_*). cacheLifetime is an opaque hint the translator may use to
// cache this answer for identical future requests; xaxlib does not
// interpret its unit.
type SuccessfulResponse struct {
	messageType   MessageType
	cacheLifetime uint8
	id            uint32
	source        netip.Addr
	destination   netip.Addr
}

var _ Message = (*SuccessfulResponse)(nil)

// NewSuccessfulResponse validates and constructs a SuccessfulResponse.
func NewSuccessfulResponse(mt MessageType, cacheLifetime uint8, id uint32, source, destination netip.Addr) (*SuccessfulResponse, error) {
	if !mt.Valid() {
		return nil, NewDataError("unknown message type %d", mt)
	}
	wantV4 := mt.ResponseAddrIs4()
	if err := wantAddrVersion("source", mt, source, wantV4); err != nil {
		return nil, err
	}
	if err := wantAddrVersion("destination", mt, destination, wantV4); err != nil {
		return nil, err
	}
	// cacheLifetime is a uint8: the wire's 0-255 range is enforced by the
	// type itself, so there's no runtime check to make here.
	return &SuccessfulResponse{
		messageType:   mt,
		cacheLifetime: cacheLifetime,
		id:            id,
		source:        source,
		destination:   destination,
	}, nil
}

func (r *SuccessfulResponse) MessageType() MessageType { return r.messageType }
func (r *SuccessfulResponse) ID() uint32               { return r.id }
func (r *SuccessfulResponse) CacheLifetime() uint8     { return r.cacheLifetime }
func (r *SuccessfulResponse) Source() netip.Addr       { return r.source }
func (r *SuccessfulResponse) Destination() netip.Addr  { return r.destination }
func (*SuccessfulResponse) sealed()                    {}
