// Copyright (c) 2024 RethinkDNS and its authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package wireformat

import (
	"github.com/celzero/xaxlib/message"
)

// Kind discriminates the structural ways a frame can be malformed.
type Kind int

const (
	KindFrameSize Kind = iota
	KindMagic
	KindVersion
	KindUnknownMessageType
	KindAddressPadding
	KindFlagCombination
)

func (k Kind) String() string {
	switch k {
	case KindFrameSize:
		return "FrameSize"
	case KindMagic:
		return "Magic"
	case KindVersion:
		return "Version"
	case KindUnknownMessageType:
		return "UnknownMessageType"
	case KindAddressPadding:
		return "AddressPadding"
	case KindFlagCombination:
		return "FlagCombination"
	default:
		return "Unknown"
	}
}

// FormatError is InvalidWireformatMessageData: a structural violation of a
// byte frame. It is a subtype of message.DataError (embedded, reachable via
// errors.As / errors.Unwrap) since every wireformat problem is also, at
// heart, invalid message data.
type FormatError struct {
	*message.DataError
	Kind Kind
}

func (e *FormatError) Unwrap() error { return e.DataError }

func newFormatError(k Kind, format string, args ...interface{}) *FormatError {
	return &FormatError{DataError: message.NewDataError(format, args...), Kind: k}
}

func wrapDataError(k Kind, err error) *FormatError {
	return &FormatError{DataError: message.NewDataError(err.Error()), Kind: k}
}

var _ error = (*FormatError)(nil)
