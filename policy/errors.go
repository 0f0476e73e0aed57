// Copyright (c) 2024 RethinkDNS and its authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package policy

import "fmt"

// TranslationError is the policy's non-exceptional failure outcome: the
// request could not be translated. ICMPBit tells the caller whether to
// build an erroneous response that asks the translator to emit an ICMP
// unreachable (true) or to silently drop the packet (false).
type TranslationError struct {
	ICMPBit bool
	reason  string
}

func (e *TranslationError) Error() string {
	return fmt.Sprintf("translation failed (icmp_bit=%t): %s", e.ICMPBit, e.reason)
}

func fail(icmpBit bool, format string, args ...interface{}) *TranslationError {
	return &TranslationError{ICMPBit: icmpBit, reason: fmt.Sprintf(format, args...)}
}
