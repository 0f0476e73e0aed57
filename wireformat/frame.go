// Copyright (c) 2024 RethinkDNS and its authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package wireformat

import (
	"encoding/binary"
	"net/netip"

	"github.com/celzero/xaxlib/message"
)

var zeroAddrField [16]byte

// PeekVariant classifies a 40-byte frame into request/successful/erroneous
// from type_byte's response and error bits alone, without validating
// anything else about the frame. Used by the connection handler to log a
// more specific complaint before a full Decode fails.
func PeekVariant(frame []byte) (Variant, error) {
	if len(frame) != MessageSize {
		return 0, newFormatError(KindFrameSize, "frame must be %d bytes, got %d", MessageSize, len(frame))
	}
	b := frame[offType]
	switch {
	case b&bitResponse == 0:
		return VariantRequest, nil
	case b&bitError == 0:
		return VariantSuccessfulResponse, nil
	default:
		return VariantErroneousResponse, nil
	}
}

// Decode parses a 40-byte frame into a message.Message, running every
// structural check in §4.1 and every per-variant invariant in §3.
func Decode(frame []byte) (message.Message, error) {
	if len(frame) != MessageSize {
		return nil, newFormatError(KindFrameSize, "frame must be %d bytes, got %d", MessageSize, len(frame))
	}
	if frame[offMagic] != MagicByte {
		return nil, newFormatError(KindMagic, "magic_byte must be 0x%02x, got 0x%02x", MagicByte, frame[offMagic])
	}
	if frame[offVersion] != ProtocolVersion {
		return nil, newFormatError(KindVersion, "protocol_version must be %d, got %d", ProtocolVersion, frame[offVersion])
	}

	typeByte := frame[offType]
	responseBit := typeByte&bitResponse != 0
	errorBit := typeByte&bitError != 0
	icmpBit := typeByte&bitICMP != 0
	typeCode := typeByte & bitTypeMask

	mt := message.MessageType(typeCode)
	if !mt.Valid() {
		return nil, newFormatError(KindUnknownMessageType, "message_type must be 1-4, got %d", typeCode)
	}

	cacheLifetime := frame[offCacheLife]
	id := binary.BigEndian.Uint32(frame[offID : offID+4])
	srcField := frame[offSource : offSource+16]
	dstField := frame[offDest : offDest+16]

	switch {
	case !responseBit:
		if errorBit || icmpBit {
			return nil, newFormatError(KindFlagCombination, "request frames must have error_bit=0, icmp_bit=0")
		}
		wantV4 := mt.RequestAddrIs4()
		src, err := decodeAddr(srcField, wantV4)
		if err != nil {
			return nil, wrapDataError(KindAddressPadding, err)
		}
		dst, err := decodeAddr(dstField, wantV4)
		if err != nil {
			return nil, wrapDataError(KindAddressPadding, err)
		}
		req, err := message.NewRequest(mt, id, src, dst)
		if err != nil {
			return nil, wrapDataError(KindUnknownMessageType, err)
		}
		return req, nil

	case !errorBit:
		if icmpBit {
			return nil, newFormatError(KindFlagCombination, "successful response frames must have icmp_bit=0")
		}
		wantV4 := mt.ResponseAddrIs4()
		src, err := decodeAddr(srcField, wantV4)
		if err != nil {
			return nil, wrapDataError(KindAddressPadding, err)
		}
		dst, err := decodeAddr(dstField, wantV4)
		if err != nil {
			return nil, wrapDataError(KindAddressPadding, err)
		}
		resp, err := message.NewSuccessfulResponse(mt, cacheLifetime, id, src, dst)
		if err != nil {
			return nil, wrapDataError(KindUnknownMessageType, err)
		}
		return resp, nil

	default:
		if err := decodeAbsentAddr(srcField); err != nil {
			return nil, wrapDataError(KindAddressPadding, err)
		}
		if err := decodeAbsentAddr(dstField); err != nil {
			return nil, wrapDataError(KindAddressPadding, err)
		}
		resp, err := message.NewErroneousResponse(mt, id, icmpBit)
		if err != nil {
			return nil, wrapDataError(KindFlagCombination, err)
		}
		return resp, nil
	}
}

// Encode serializes m into its canonical 40-byte frame.
func Encode(m message.Message) ([MessageSize]byte, error) {
	var out [MessageSize]byte

	switch v := m.(type) {
	case *message.Request:
		fillFrame(&out, false, false, false, v.MessageType(), 0, v.ID(), addrField(v.Source()), addrField(v.Destination()))
	case *message.SuccessfulResponse:
		fillFrame(&out, true, false, false, v.MessageType(), v.CacheLifetime(), v.ID(), addrField(v.Source()), addrField(v.Destination()))
	case *message.ErroneousResponse:
		fillFrame(&out, true, true, v.ICMPBit(), v.MessageType(), 0, v.ID(), zeroAddrField, zeroAddrField)
	default:
		return out, newFormatError(KindUnknownMessageType, "unencodable message type %T", m)
	}
	return out, nil
}

func fillFrame(out *[MessageSize]byte, response, errorBit, icmp bool, mt message.MessageType, cacheLifetime uint8, id uint32, src, dst [16]byte) {
	out[offMagic] = MagicByte
	out[offVersion] = ProtocolVersion

	typeByte := byte(mt)
	if response {
		typeByte |= bitResponse
	}
	if errorBit {
		typeByte |= bitError
	}
	if icmp {
		typeByte |= bitICMP
	}
	out[offType] = typeByte
	out[offCacheLife] = cacheLifetime
	binary.BigEndian.PutUint32(out[offID:offID+4], id)
	copy(out[offSource:offSource+16], src[:])
	copy(out[offDest:offDest+16], dst[:])
}

// decodeAddr reads a 16-byte address field expecting either an IPv4 address
// zero-padded to 16 bytes (wantV4) or a full IPv6 address.
func decodeAddr(field []byte, wantV4 bool) (netip.Addr, error) {
	if wantV4 {
		var tail [12]byte
		copy(tail[:], field[4:16])
		if tail != ([12]byte{}) {
			return netip.Addr{}, message.NewDataError("IPv4 address field has nonzero padding in bytes 4..15")
		}
		var a [4]byte
		copy(a[:], field[0:4])
		return netip.AddrFrom4(a), nil
	}
	var a [16]byte
	copy(a[:], field)
	return netip.AddrFrom16(a), nil
}

// decodeAbsentAddr checks that an address field carried by an erroneous
// response (which has no addresses) is all zero.
func decodeAbsentAddr(field []byte) error {
	var z [16]byte
	if [16]byte(field[:16]) != z {
		return message.NewDataError("erroneous response address field must be all zero")
	}
	return nil
}

// addrField renders addr into its wire 16-byte form.
func addrField(addr netip.Addr) [16]byte {
	if addr.Is4() {
		a := addr.As4()
		var out [16]byte
		copy(out[:4], a[:])
		return out
	}
	return addr.As16()
}
