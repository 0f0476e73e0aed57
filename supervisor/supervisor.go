// Copyright (c) 2024 RethinkDNS and its authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package supervisor implements the lifecycle supervisor (C7): signal
// handling and orderly bring-up/tear-down of the selected transport
// driver.
package supervisor

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/celzero/xaxlib/internal/log"
	"github.com/celzero/xaxlib/transport"
)

// Supervisor runs one transport.Driver until a configured termination
// signal arrives, then awaits its shutdown.
type Supervisor struct {
	Driver  transport.Driver
	Signals []os.Signal
}

// New builds a Supervisor bound to driver, listening for signalNames
// (e.g. "SIGTERM", "SIGINT", "SIGHUP"; §6's `signals` key).
func New(driver transport.Driver, signalNames []string) (*Supervisor, error) {
	sigs, err := parseSignals(signalNames)
	if err != nil {
		return nil, err
	}
	return &Supervisor{Driver: driver, Signals: sigs}, nil
}

// Run installs the signal handlers, starts the driver, and blocks until a
// signal arrives, ctx is cancelled by the caller, or the driver returns on
// its own (e.g. a startup failure); in every case it then awaits the
// driver's own shutdown completion and returns the driver's error.
func (s *Supervisor) Run(ctx context.Context) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, s.Signals...)
	defer signal.Stop(sigCh)

	driverCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	eg, egctx := errgroup.WithContext(context.Background())
	eg.Go(func() error {
		return s.Driver.Run(driverCtx)
	})
	eg.Go(func() error {
		select {
		case sig := <-sigCh:
			log.I("supervisor: received %s, shutting down", sig)
		case <-ctx.Done():
			log.I("supervisor: parent context done, shutting down")
		case <-egctx.Done():
			log.I("supervisor: driver exited, shutting down")
		}
		cancel()
		return nil
	})

	return eg.Wait()
}

func parseSignals(names []string) ([]os.Signal, error) {
	if len(names) == 0 {
		return []os.Signal{syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP}, nil
	}
	out := make([]os.Signal, 0, len(names))
	for _, n := range names {
		switch n {
		case "SIGTERM":
			out = append(out, syscall.SIGTERM)
		case "SIGINT":
			out = append(out, syscall.SIGINT)
		case "SIGHUP":
			out = append(out, syscall.SIGHUP)
		default:
			return nil, fmt.Errorf("supervisor: unknown signal %q", n)
		}
	}
	return out, nil
}
