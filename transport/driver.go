// Copyright (c) 2024 RethinkDNS and its authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package transport implements the three C6 drivers (unix, tcp,
// fd-inherit), each handing accepted streams to a *server.Handler for the
// duration of a shutdown signal.
package transport

import "context"

// Driver is the contract all three transport drivers share: accept streams
// and hand each to the connection handler until ctx is cancelled, then
// drain in-flight connections before returning.
type Driver interface {
	// Run blocks until ctx is cancelled and every accepted connection has
	// been drained, or startup fails.
	Run(ctx context.Context) error
}
