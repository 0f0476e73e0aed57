// Copyright (c) 2024 RethinkDNS and its authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Command xaxlib-client is a demo CLI that dials a running oracle's unix
// or tcp transport, sends one hand-built request, and prints the decoded
// response. It exists to exercise a server by hand; it is not part of the
// protocol itself.
package main

import (
	"encoding/binary"
	"fmt"
	"net"
	"net/netip"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/celzero/xaxlib/message"
	"github.com/celzero/xaxlib/wireformat"
)

func main() {
	var (
		transport   string
		addr        string
		messageType uint
		source      string
		destination string
	)
	pflag.StringVar(&transport, "transport", "unix", "unix|tcp")
	pflag.StringVar(&addr, "addr", "/run/xaxlib/oracle.sock", "unix path or host:port")
	pflag.UintVar(&messageType, "message-type", uint(message.MT4to6Main), "1-4")
	pflag.StringVar(&source, "source", "8.8.8.8", "source IP")
	pflag.StringVar(&destination, "destination", "192.168.64.2", "destination IP")
	pflag.Parse()

	if err := run(transport, addr, message.MessageType(messageType), source, destination); err != nil {
		fmt.Fprintln(os.Stderr, "xaxlib-client:", err)
		os.Exit(1)
	}
}

func run(transportName, addr string, mt message.MessageType, source, destination string) error {
	network := transportName
	if network != "unix" && network != "tcp" {
		return fmt.Errorf("unsupported transport %q (only unix/tcp are dialable)", transportName)
	}

	src, err := netip.ParseAddr(source)
	if err != nil {
		return fmt.Errorf("parse source: %w", err)
	}
	dst, err := netip.ParseAddr(destination)
	if err != nil {
		return fmt.Errorf("parse destination: %w", err)
	}

	id := messageIdentifier()
	req, err := message.NewRequest(mt, id, src, dst)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	frame, err := wireformat.Encode(req)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	conn, err := net.Dial(network, addr)
	if err != nil {
		return fmt.Errorf("dial %s %s: %w", network, addr, err)
	}
	defer conn.Close()

	if _, err := conn.Write(frame[:]); err != nil {
		return fmt.Errorf("write request: %w", err)
	}

	var out [wireformat.MessageSize]byte
	if _, err := conn.Read(out[:]); err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	decoded, err := wireformat.Decode(out[:])
	if err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	printResponse(decoded)
	return nil
}

// messageIdentifier derives a 32-bit identifier from a random UUID: the
// protocol doesn't interpret this field beyond echoing it back (§9), so a
// fresh, varied identifier per invocation is enough to tell responses
// apart when exercising a server interactively.
func messageIdentifier() uint32 {
	u := uuid.New()
	return binary.BigEndian.Uint32(u[:4])
}

func printResponse(m message.Message) {
	switch v := m.(type) {
	case *message.SuccessfulResponse:
		fmt.Printf("successful-response id=%d type=%s cache_lifetime=%d source=%s destination=%s\n",
			v.ID(), v.MessageType(), v.CacheLifetime(), v.Source(), v.Destination())
	case *message.ErroneousResponse:
		fmt.Printf("erroneous-response id=%d type=%s icmp_bit=%t\n", v.ID(), v.MessageType(), v.ICMPBit())
	default:
		fmt.Printf("unexpected response variant %T\n", v)
	}
}
