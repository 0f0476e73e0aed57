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
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/celzero/xaxlib/internal/core"
	"github.com/celzero/xaxlib/internal/log"
	"github.com/celzero/xaxlib/server"
)

// FDInheritDriver spawns the translator child process and hands it one end
// of N socketpairs, keeping the other end locally as a C5 channel (§4.6,
// "Fd-inherit driver").
type FDInheritDriver struct {
	Threads      int
	Executable   string
	ConfigBlob   string
	PreCommands  []string
	PostCommands []string
	Handler      *server.Handler

	tracker *core.ConnTracker
}

var _ Driver = (*FDInheritDriver)(nil)

// NewFDInheritDriver builds an FDInheritDriver from its configuration.
func NewFDInheritDriver(threads int, executable, configBlob string, preCommands, postCommands []string, handler *server.Handler) *FDInheritDriver {
	return &FDInheritDriver{
		Threads:      threads,
		Executable:   executable,
		ConfigBlob:   configBlob,
		PreCommands:  preCommands,
		PostCommands: postCommands,
		Handler:      handler,
		tracker:      core.NewConnTracker(),
	}
}

// Run executes pre-commands, creates N socketpairs, spawns the translator
// child with the remote ends passed as inherited fds, pipes the config
// blob to its stdin, attaches each local end to a C5 instance, and on
// shutdown tears everything down in the order §4.6/§5 require: SIGTERM to
// the child, cancel local tasks, close local ends, run post-commands.
func (d *FDInheritDriver) Run(ctx context.Context) error {
	if err := runCommands(ctx, "pre", d.PreCommands); err != nil {
		return fmt.Errorf("transport: fd-inherit: pre-commands: %w", err)
	}

	locals, remotes, err := makeSocketpairs(d.Threads)
	if err != nil {
		return fmt.Errorf("transport: fd-inherit: socketpairs: %w", err)
	}
	defer func() {
		for _, f := range locals {
			f.Close()
		}
	}()

	cmd := exec.Command(d.Executable, "--config-file=-", "--addressing-external-inherited-fds="+fdPairsArg(d.Threads), "translate")
	cmd.ExtraFiles = remotes
	cmd.SysProcAttr = &syscall.SysProcAttr{}
	cmd.Stderr = os.Stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("transport: fd-inherit: stdin pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("transport: fd-inherit: spawn %s: %w", d.Executable, err)
	}
	for _, f := range remotes {
		f.Close() // parent's copy; the child inherited its own.
	}

	dl := log.WithFields(log.Fields{"transport": "inherited-fds", "executable": d.Executable, "pid": cmd.Process.Pid})

	if _, err := stdin.Write([]byte(d.ConfigBlob)); err != nil {
		dl.WithFields(log.Fields{"err": err}).Warn("write config blob failed")
	}
	if err := stdin.Close(); err != nil {
		dl.WithFields(log.Fields{"err": err}).Warn("close stdin failed")
	}
	dl.WithFields(log.Fields{"channels": d.Threads}).Info("spawned child")

	// localCtx governs the per-channel C5 tasks. It is cancelled only after
	// the child has been sent SIGTERM and reaped, per §5's ordering
	// guarantee: the child drains its own buffers before local tasks die.
	localCtx, cancelLocal := context.WithCancel(context.Background())
	defer cancelLocal()

	eg, egctx := errgroup.WithContext(localCtx)
	for i, f := range locals {
		i, f := i, f
		conn, cerr := net.FileConn(f)
		if cerr != nil {
			cancelLocal()
			_ = cmd.Process.Kill()
			_ = cmd.Wait()
			return fmt.Errorf("transport: fd-inherit: channel %d: %w", i, cerr)
		}
		cid := fmt.Sprintf("fd-inherit-%d", i)
		done := d.tracker.Track("inherited-fds")
		eg.Go(func() error {
			defer done()
			// ServeConn blocks on reads until the peer closes or this
			// channel's conn is closed by the watcher below.
			d.Handler.ServeConn(cid, conn)
			return nil
		})
		eg.Go(func() error {
			<-egctx.Done()
			conn.Close()
			return nil
		})
	}

	<-ctx.Done()
	dl.Info("shutting down, sending SIGTERM to child")
	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		dl.WithFields(log.Fields{"err": err}).Warn("signal child failed")
	}
	waitErr := cmd.Wait()
	dl.WithFields(log.Fields{"err": waitErr}).Info("child exited")

	cancelLocal()
	_ = eg.Wait()
	d.tracker.Wait()
	for _, f := range locals {
		f.Close()
	}

	if err := runCommands(context.Background(), "post", d.PostCommands); err != nil {
		return fmt.Errorf("transport: fd-inherit: post-commands: %w", err)
	}
	return nil
}

// makeSocketpairs creates n AF_UNIX SOCK_STREAM socketpairs, returning the
// local ends (as *os.File, owned by the caller) and the remote ends (also
// *os.File, destined for the child's ExtraFiles).
func makeSocketpairs(n int) (locals, remotes []*os.File, err error) {
	for i := 0; i < n; i++ {
		fds, perr := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
		if perr != nil {
			for _, f := range locals {
				f.Close()
			}
			for _, f := range remotes {
				f.Close()
			}
			return nil, nil, fmt.Errorf("socketpair %d: %w", i, perr)
		}
		locals = append(locals, os.NewFile(uintptr(fds[0]), fmt.Sprintf("xaxlib-local-%d", i)))
		remotes = append(remotes, os.NewFile(uintptr(fds[1]), fmt.Sprintf("xaxlib-remote-%d", i)))
	}
	return locals, remotes, nil
}

// fdPairsArg renders the --addressing-external-inherited-fds argument: the
// remote end of channel i lands at ExtraFiles index i, which os/exec always
// maps to child fd 3+i; the protocol's wire format wants every fd twice per
// channel (the translator reads and writes the same socket).
func fdPairsArg(n int) string {
	pairs := make([]string, n)
	for i := 0; i < n; i++ {
		childFd := 3 + i
		pairs[i] = strconv.Itoa(childFd) + "," + strconv.Itoa(childFd)
	}
	return strings.Join(pairs, ";")
}

// runCommands runs an ordered list of shell commands sequentially. Every
// failing command's error is collected into a *multierror.Error so callers
// see all of them, not just the first (§4.6 still aborts startup on any
// failure here — the caller in Run treats a non-nil return as fatal and
// does not proceed past it — but the command list itself always runs to
// completion so the full failure picture is reported).
func runCommands(ctx context.Context, label string, commands []string) error {
	var merr *multierror.Error
	for i, c := range commands {
		start := time.Now()
		cmd := exec.CommandContext(ctx, "/bin/sh", "-c", c)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		err := cmd.Run()
		dur := time.Since(start)

		if err != nil {
			log.E("transport: fd-inherit: %s-command[%d] %q failed after %s: %v", label, i, c, dur, err)
			merr = multierror.Append(merr, fmt.Errorf("%s-command[%d] %q: %w", label, i, c, err))
			continue
		}
		log.I("transport: fd-inherit: %s-command[%d] %q ok in %s", label, i, c, dur)
	}
	return merr.ErrorOrNil()
}
