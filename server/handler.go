// Copyright (c) 2024 RethinkDNS and its authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package server implements the request handler (C4) and connection
// handler (C5): reading one 40-byte frame, translating it, writing one
// frame back, and looping that until the peer closes or misbehaves.
package server

import (
	"errors"

	"github.com/celzero/xaxlib/message"
	"github.com/celzero/xaxlib/policy"
	"github.com/celzero/xaxlib/wireformat"
)

// Handler is the C4 request handler bound to one Policy.
type Handler struct {
	policy *policy.Policy
}

// NewHandler builds a Handler bound to p.
func NewHandler(p *policy.Policy) *Handler {
	return &Handler{policy: p}
}

// HandleFrame decodes one request frame, translates it, and encodes the
// response frame. Only *message.Request frames are accepted as input; any
// other decoded variant is a protocol misuse the caller should log and
// treat as connection-ending.
func (h *Handler) HandleFrame(frame []byte) ([wireformat.MessageSize]byte, error) {
	var out [wireformat.MessageSize]byte

	m, err := wireformat.Decode(frame)
	if err != nil {
		return out, err
	}

	req, ok := m.(*message.Request)
	if !ok {
		return out, &ProtocolMisuseError{Variant: variantOf(m)}
	}

	return h.handleRequest(req)
}

func (h *Handler) handleRequest(req *message.Request) ([wireformat.MessageSize]byte, error) {
	var out [wireformat.MessageSize]byte

	src, dst, terr := h.policy.Translate(req)
	if terr != nil {
		icmpBit := false
		var te *policy.TranslationError
		if errors.As(terr, &te) {
			icmpBit = te.ICMPBit
		}
		resp, err := req.MakeErroneousResponse(icmpBit)
		if err != nil {
			return out, err
		}
		return wireformat.Encode(resp)
	}

	resp, err := req.MakeSuccessfulResponse(h.policy.CacheLifetime(), src, dst)
	if err != nil {
		return out, err
	}
	return wireformat.Encode(resp)
}

func variantOf(m message.Message) string {
	switch m.(type) {
	case *message.SuccessfulResponse:
		return "successful-response"
	case *message.ErroneousResponse:
		return "erroneous-response"
	default:
		return "unknown"
	}
}

// ProtocolMisuseError reports that the peer sent something other than a
// Request on a channel that only accepts requests.
type ProtocolMisuseError struct {
	Variant string
}

func (e *ProtocolMisuseError) Error() string {
	return "server: expected a request frame, got a " + e.Variant
}
