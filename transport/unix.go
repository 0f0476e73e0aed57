// Copyright (c) 2024 RethinkDNS and its authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync/atomic"

	"github.com/celzero/xaxlib/internal/core"
	"github.com/celzero/xaxlib/internal/log"
	"github.com/celzero/xaxlib/server"
)

// UnixDriver listens on a filesystem path (§4.6, "UNIX driver").
type UnixDriver struct {
	Path    string
	Handler *server.Handler

	tracker *core.ConnTracker
	seq     atomic.Uint64
}

var _ Driver = (*UnixDriver)(nil)

// NewUnixDriver builds a UnixDriver bound to path and handler.
func NewUnixDriver(path string, handler *server.Handler) *UnixDriver {
	return &UnixDriver{Path: path, Handler: handler, tracker: core.NewConnTracker()}
}

// Run binds path, accepts connections until ctx is cancelled, and waits for
// every accepted connection to finish before returning.
func (d *UnixDriver) Run(ctx context.Context) error {
	dl := log.WithFields(log.Fields{"transport": "unix", "path": d.Path})

	if err := os.RemoveAll(d.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		dl.WithFields(log.Fields{"err": err}).Warn("could not unlink stale socket")
	}

	ln, err := net.Listen("unix", d.Path)
	if err != nil {
		return fmt.Errorf("transport: unix: listen %s: %w", d.Path, err)
	}
	dl.Info("listening")

	go func() {
		<-ctx.Done()
		dl.Debug("shutting down, closing listener")
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				d.tracker.Wait()
				dl.Info("drained, exiting")
				return nil
			default:
				return fmt.Errorf("transport: unix: accept: %w", err)
			}
		}

		cid := fmt.Sprintf("unix-%d", d.seq.Add(1))
		done := d.tracker.Track("unix")
		go func() {
			defer done()
			d.Handler.ServeConn(cid, conn)
		}()
	}
}
