// Copyright (c) 2024 RethinkDNS and its authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package server

import (
	"bufio"
	"errors"
	"io"
	"net"

	"github.com/celzero/xaxlib/internal/core"
	"github.com/celzero/xaxlib/internal/log"
	"github.com/celzero/xaxlib/wireformat"
)

// ServeConn runs the C5 connection handler: it repeats C4 on conn until the
// peer cleanly closes (EOF on a frame boundary), an I/O error occurs, or a
// malformed frame is received. It always closes conn on return.
func (h *Handler) ServeConn(cid string, conn net.Conn) {
	defer core.Recover("server: ServeConn " + cid)
	defer conn.Close()

	r := bufio.NewReaderSize(conn, wireformat.MessageSize)
	w := bufio.NewWriterSize(conn, wireformat.MessageSize)

	cl := log.WithFields(log.Fields{"cid": cid})

	var frame [wireformat.MessageSize]byte
	for {
		if _, err := io.ReadFull(r, frame[:]); err != nil {
			if errors.Is(err, io.EOF) {
				cl.Debug("peer closed")
			} else {
				cl.WithFields(log.Fields{"err": err}).Debug("read failed")
			}
			return
		}

		if v, perr := wireformat.PeekVariant(frame[:]); perr == nil && v != wireformat.VariantRequest {
			cl.WithFields(log.Fields{"variant": v.String()}).Warn("got a non-request variant on a request-only channel")
		}

		out, err := h.HandleFrame(frame[:])
		if err != nil {
			cl.WithFields(log.Fields{"err": err}).Warn("invalid frame")
			return
		}

		if _, err := w.Write(out[:]); err != nil {
			cl.WithFields(log.Fields{"err": err}).Debug("write failed")
			return
		}
		if err := w.Flush(); err != nil {
			cl.WithFields(log.Fields{"err": err}).Debug("flush failed")
			return
		}
	}
}
