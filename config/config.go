// Copyright (c) 2024 RethinkDNS and its authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package config loads xaxlib's configuration surface (§6) from YAML, with
// defaults matching the end-to-end scenarios in §8.
package config

import (
	"net/netip"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Transport names the configured listener kind.
type Transport string

const (
	TransportUnix         Transport = "unix"
	TransportTCP          Transport = "tcp"
	TransportInheritedFDs Transport = "inherited-fds"
)

// UnixConfig configures the UNIX domain socket driver.
type UnixConfig struct {
	Path string `yaml:"path"`
}

// TCPConfig configures the TCP driver.
type TCPConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// InheritedFDsConfig configures the fd-inherit driver (§4.6).
type InheritedFDsConfig struct {
	Threads      int      `yaml:"threads"`
	Executable   string   `yaml:"executable"`
	ConfigBlob   string   `yaml:"config_blob"`
	PreCommands  []string `yaml:"pre_commands"`
	PostCommands []string `yaml:"post_commands"`
}

// NAT64Config configures the translation policy (C3).
type NAT64Config struct {
	V4           string `yaml:"v4"`
	V6           string `yaml:"v6"`
	Prefix       string `yaml:"prefix"`
	AllowPrivate bool   `yaml:"allow_private"`
}

// Config is xaxlib's full configuration surface, per §6.
type Config struct {
	Transport     Transport          `yaml:"transport"`
	Unix          UnixConfig         `yaml:"unix"`
	TCP           TCPConfig          `yaml:"tcp"`
	InheritedFDs  InheritedFDsConfig `yaml:"inherited_fds"`
	NAT64         NAT64Config        `yaml:"nat64"`
	CacheLifetime uint8              `yaml:"cache_lifetime"`
	Signals       []string           `yaml:"signals"`
}

// Default returns a Config matching §8's end-to-end scenario defaults.
func Default() *Config {
	return &Config{
		Transport: TransportUnix,
		Unix:      UnixConfig{Path: "/run/xaxlib/oracle.sock"},
		TCP:       TCPConfig{Host: "127.0.0.1", Port: 9364},
		InheritedFDs: InheritedFDsConfig{
			Threads: 1,
		},
		NAT64: NAT64Config{
			V4:           "192.168.64.2",
			V6:           "fd64::2",
			Prefix:       "64:ff9b::/96",
			AllowPrivate: true,
		},
		CacheLifetime: 5,
		Signals:       []string{"SIGTERM", "SIGINT", "SIGHUP"},
	}
}

// Load reads a YAML config file at path and overlays it onto Default().
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "config: read %s", path)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, errors.Wrapf(err, "config: parse %s", path)
	}
	return cfg, nil
}

// NAT64AddrV4 returns cfg.NAT64.V4 parsed as a netip.Addr.
func (c *Config) NAT64AddrV4() (netip.Addr, error) {
	a, err := netip.ParseAddr(c.NAT64.V4)
	if err != nil {
		return netip.Addr{}, errors.Wrap(err, "config: nat64.v4")
	}
	return a, nil
}

// NAT64AddrV6 returns cfg.NAT64.V6 parsed as a netip.Addr.
func (c *Config) NAT64AddrV6() (netip.Addr, error) {
	a, err := netip.ParseAddr(c.NAT64.V6)
	if err != nil {
		return netip.Addr{}, errors.Wrap(err, "config: nat64.v6")
	}
	return a, nil
}

// NAT64Prefix returns cfg.NAT64.Prefix parsed as a netip.Prefix.
func (c *Config) NAT64Prefix() (netip.Prefix, error) {
	p, err := netip.ParsePrefix(c.NAT64.Prefix)
	if err != nil {
		return netip.Prefix{}, errors.Wrap(err, "config: nat64.prefix")
	}
	return p, nil
}
