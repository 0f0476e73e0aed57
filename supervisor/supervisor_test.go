// Copyright (c) 2024 RethinkDNS and its authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package supervisor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDriver struct {
	ran    chan struct{}
	exited chan struct{}
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{ran: make(chan struct{}), exited: make(chan struct{})}
}

func (f *fakeDriver) Run(ctx context.Context) error {
	close(f.ran)
	<-ctx.Done()
	close(f.exited)
	return nil
}

func TestRunShutsDownOnParentContextCancel(t *testing.T) {
	d := newFakeDriver()
	sup, err := New(d, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- sup.Run(ctx) }()

	<-d.ran
	cancel()

	select {
	case <-d.exited:
	case <-time.After(2 * time.Second):
		t.Fatal("driver was not cancelled")
	}
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor did not return")
	}
}

func TestNewRejectsUnknownSignal(t *testing.T) {
	_, err := New(newFakeDriver(), []string{"SIGBOGUS"})
	require.Error(t, err)
}

func TestNewDefaultsToStandardSignalSet(t *testing.T) {
	sup, err := New(newFakeDriver(), nil)
	require.NoError(t, err)
	assert.Len(t, sup.Signals, 3)
}
