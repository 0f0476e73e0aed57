// Copyright (c) 2024 RethinkDNS and its authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package transport

import (
	"context"
	"fmt"
	"net"
	"sync/atomic"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/celzero/xaxlib/internal/core"
	"github.com/celzero/xaxlib/internal/log"
	"github.com/celzero/xaxlib/server"
)

// TCPDriver listens on (host, port) with SO_REUSEADDR on, SO_REUSEPORT off
// (§4.6, "TCP driver").
type TCPDriver struct {
	Host    string
	Port    int
	Handler *server.Handler

	tracker *core.ConnTracker
	seq     atomic.Uint64
}

var _ Driver = (*TCPDriver)(nil)

// NewTCPDriver builds a TCPDriver bound to host:port and handler.
func NewTCPDriver(host string, port int, handler *server.Handler) *TCPDriver {
	return &TCPDriver{Host: host, Port: port, Handler: handler, tracker: core.NewConnTracker()}
}

func setReuseAddr(_, _ string, c syscall.RawConn) error {
	var opErr error
	err := c.Control(func(fd uintptr) {
		opErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	})
	if err != nil {
		return err
	}
	return opErr
}

// Run binds host:port, accepts connections until ctx is cancelled, and
// waits for every accepted connection to finish before returning.
func (d *TCPDriver) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", d.Host, d.Port)
	dl := log.WithFields(log.Fields{"transport": "tcp", "addr": addr})
	lc := net.ListenConfig{Control: setReuseAddr}

	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("transport: tcp: listen %s: %w", addr, err)
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
				return fmt.Errorf("transport: tcp: accept: %w", err)
			}
		}

		cid := fmt.Sprintf("tcp-%d", d.seq.Add(1))
		done := d.tracker.Track("tcp")
		go func() {
			defer done()
			d.Handler.ServeConn(cid, conn)
		}()
	}
}
