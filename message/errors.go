// Copyright (c) 2024 RethinkDNS and its authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package message

import "fmt"

// DataError is raised by the message model: a logically invalid combination
// of otherwise well-typed fields (address version mismatch for the message
// type, icmp_bit misuse). wireformat.FormatError embeds this as its cause
// for structural violations of the byte frame.
type DataError struct {
	reason string
}

func (e *DataError) Error() string {
	return "invalid message data: " + e.reason
}

// NewDataError builds a DataError with a formatted reason.
func NewDataError(format string, args ...interface{}) *DataError {
	return &DataError{reason: fmt.Sprintf(format, args...)}
}
