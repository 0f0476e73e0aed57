// Copyright (c) 2024 RethinkDNS and its authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package wireformat

import (
	"net/netip"
	"testing"

	"github.com/celzero/xaxlib/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTripRequest(t *testing.T) {
	req, err := message.NewRequest(message.MT4to6Main, 0xDEADBEEF, netip.MustParseAddr("8.8.8.8"), netip.MustParseAddr("192.168.64.2"))
	require.NoError(t, err)

	frame, err := Encode(req)
	require.NoError(t, err)
	assert.Len(t, frame, MessageSize)

	decoded, err := Decode(frame[:])
	require.NoError(t, err)

	got, ok := decoded.(*message.Request)
	require.True(t, ok)
	assert.Equal(t, req.MessageType(), got.MessageType())
	assert.Equal(t, req.ID(), got.ID())
	assert.Equal(t, req.Source(), got.Source())
	assert.Equal(t, req.Destination(), got.Destination())
}

func TestRoundTripSuccessfulResponse(t *testing.T) {
	resp, err := message.NewSuccessfulResponse(message.MT6to4Main, 5, 42, netip.MustParseAddr("192.168.64.2"), netip.MustParseAddr("8.8.8.8"))
	require.NoError(t, err)

	frame, err := Encode(resp)
	require.NoError(t, err)

	decoded, err := Decode(frame[:])
	require.NoError(t, err)
	got := decoded.(*message.SuccessfulResponse)
	assert.Equal(t, resp.CacheLifetime(), got.CacheLifetime())
	assert.Equal(t, resp.Source(), got.Source())
	assert.Equal(t, resp.Destination(), got.Destination())
}

func TestRoundTripErroneousResponse(t *testing.T) {
	resp, err := message.NewErroneousResponse(message.MT4to6Main, 7, true)
	require.NoError(t, err)

	frame, err := Encode(resp)
	require.NoError(t, err)
	// cache_lifetime and both address fields must be zero on the wire.
	assert.Equal(t, byte(0), frame[offCacheLife])
	assert.Equal(t, zeroAddrField[:], frame[offSource:offSource+16])
	assert.Equal(t, zeroAddrField[:], frame[offDest:offDest+16])

	decoded, err := Decode(frame[:])
	require.NoError(t, err)
	got := decoded.(*message.ErroneousResponse)
	assert.True(t, got.ICMPBit())
	assert.Equal(t, message.MT4to6Main, got.MessageType())
}

func TestDecodeWrongSize(t *testing.T) {
	_, err := Decode(make([]byte, 39))
	require.Error(t, err)
	var fe *FormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, KindFrameSize, fe.Kind)
}

// S6: bad magic.
func TestDecodeBadMagic(t *testing.T) {
	frame := make([]byte, MessageSize)
	frame[offMagic] = 0x00
	frame[offVersion] = ProtocolVersion

	_, err := Decode(frame)
	require.Error(t, err)
	var fe *FormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, KindMagic, fe.Kind)
}

func TestDecodeBadVersion(t *testing.T) {
	frame := make([]byte, MessageSize)
	frame[offMagic] = MagicByte
	frame[offVersion] = 2

	_, err := Decode(frame)
	require.Error(t, err)
	var fe *FormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, KindVersion, fe.Kind)
}

func TestDecodeUnknownMessageType(t *testing.T) {
	frame := make([]byte, MessageSize)
	frame[offMagic] = MagicByte
	frame[offVersion] = ProtocolVersion
	frame[offType] = 0 // response=0, error=0, icmp=0, type=0 (invalid)

	_, err := Decode(frame)
	require.Error(t, err)
	var fe *FormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, KindUnknownMessageType, fe.Kind)
}

func TestDecodeRequestRejectsFlags(t *testing.T) {
	frame := make([]byte, MessageSize)
	frame[offMagic] = MagicByte
	frame[offVersion] = ProtocolVersion
	frame[offType] = bitICMP | byte(message.MT4to6Main) // response=0 but icmp=1

	_, err := Decode(frame)
	require.Error(t, err)
	var fe *FormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, KindFlagCombination, fe.Kind)
}

func TestDecodeAddressPadding(t *testing.T) {
	frame := make([]byte, MessageSize)
	frame[offMagic] = MagicByte
	frame[offVersion] = ProtocolVersion
	frame[offType] = byte(message.MT4to6Main) // request, expects v4 source/dest
	frame[offSource+4] = 0xFF                 // nonzero padding

	_, err := Decode(frame)
	require.Error(t, err)
	var fe *FormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, KindAddressPadding, fe.Kind)
}

func TestPeekVariant(t *testing.T) {
	req, _ := message.NewRequest(message.MT4to6Main, 1, netip.MustParseAddr("1.2.3.4"), netip.MustParseAddr("1.2.3.5"))
	frame, _ := Encode(req)
	v, err := PeekVariant(frame[:])
	require.NoError(t, err)
	assert.Equal(t, VariantRequest, v)

	resp, _ := message.NewSuccessfulResponse(message.MT4to6Main, 5, 1, netip.MustParseAddr("64:ff9b::102:304"), netip.MustParseAddr("fd64::2"))
	frame, _ = Encode(resp)
	v, err = PeekVariant(frame[:])
	require.NoError(t, err)
	assert.Equal(t, VariantSuccessfulResponse, v)

	erresp, _ := message.NewErroneousResponse(message.MT4to6Main, 1, false)
	frame, _ = Encode(erresp)
	v, err = PeekVariant(frame[:])
	require.NoError(t, err)
	assert.Equal(t, VariantErroneousResponse, v)
}

func TestCanonicalRoundTripBytes(t *testing.T) {
	// property 2: to_wire(from_wire(b)) == b for canonical b.
	req, _ := message.NewRequest(message.MT6to4ICMPError, 99, netip.MustParseAddr("fd64::2"), netip.MustParseAddr("64:ff9b::102:304"))
	frame, err := Encode(req)
	require.NoError(t, err)

	decoded, err := Decode(frame[:])
	require.NoError(t, err)

	reencoded, err := Encode(decoded)
	require.NoError(t, err)
	assert.Equal(t, frame, reencoded)
}
