// Copyright (c) 2024 RethinkDNS and its authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package main

import (
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/celzero/xaxlib/config"
	"github.com/celzero/xaxlib/internal/log"
	"github.com/celzero/xaxlib/policy"
	"github.com/celzero/xaxlib/server"
	"github.com/celzero/xaxlib/supervisor"
	"github.com/celzero/xaxlib/transport"
)

var (
	configPath    string
	transportName string
	unixPath      string
	tcpAddr       string
)

func main() {
	root := &cobra.Command{
		Use:          "xaxlib",
		Short:        "xaxlib addressing oracle",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "run the addressing oracle server",
		RunE:  runServe,
	}
	serveCmd.Flags().StringVar(&transportName, "transport", "", "override config transport: unix|tcp|inherited-fds")
	serveCmd.Flags().StringVar(&unixPath, "unix-path", "", "override config unix.path")
	serveCmd.Flags().StringVar(&tcpAddr, "tcp-addr", "", "override config tcp host:port")
	root.AddCommand(serveCmd)

	if err := root.Execute(); err != nil {
		log.E("xaxlib: %v", err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return errors.Wrap(err, "load config")
	}
	applyFlagOverrides(cfg)

	v4, err := cfg.NAT64AddrV4()
	if err != nil {
		return err
	}
	v6, err := cfg.NAT64AddrV6()
	if err != nil {
		return err
	}
	prefix, err := cfg.NAT64Prefix()
	if err != nil {
		return err
	}

	var bogons *policy.PrivateRangeTable
	if !cfg.NAT64.AllowPrivate {
		bogons, err = policy.NewPrivateRangeTable()
		if err != nil {
			return errors.Wrap(err, "build private-range table")
		}
	}

	pol := policy.New(policy.Config{
		NAT64IPv4:     v4,
		NAT64IPv6:     v6,
		NAT64Prefix:   prefix,
		AllowPrivate:  cfg.NAT64.AllowPrivate,
		CacheLifetime: cfg.CacheLifetime,
	}, bogons)

	handler := server.NewHandler(pol)
	driver, err := buildDriver(cfg, handler)
	if err != nil {
		return err
	}

	sup, err := supervisor.New(driver, cfg.Signals)
	if err != nil {
		return errors.Wrap(err, "build supervisor")
	}

	log.I("xaxlib: starting, transport=%s", cfg.Transport)
	return sup.Run(cmd.Context())
}

func buildDriver(cfg *config.Config, handler *server.Handler) (transport.Driver, error) {
	switch cfg.Transport {
	case config.TransportUnix:
		return transport.NewUnixDriver(cfg.Unix.Path, handler), nil
	case config.TransportTCP:
		return transport.NewTCPDriver(cfg.TCP.Host, cfg.TCP.Port, handler), nil
	case config.TransportInheritedFDs:
		return transport.NewFDInheritDriver(
			cfg.InheritedFDs.Threads,
			cfg.InheritedFDs.Executable,
			cfg.InheritedFDs.ConfigBlob,
			cfg.InheritedFDs.PreCommands,
			cfg.InheritedFDs.PostCommands,
			handler,
		), nil
	default:
		return nil, fmt.Errorf("xaxlib: unknown transport %q", cfg.Transport)
	}
}

func applyFlagOverrides(cfg *config.Config) {
	if transportName != "" {
		cfg.Transport = config.Transport(transportName)
	}
	if unixPath != "" {
		cfg.Unix.Path = unixPath
	}
	if tcpAddr != "" {
		host, port := splitHostPort(tcpAddr)
		if host != "" {
			cfg.TCP.Host = host
		}
		if port != 0 {
			cfg.TCP.Port = port
		}
	}
}

func splitHostPort(addr string) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0
	}
	return host, port
}
