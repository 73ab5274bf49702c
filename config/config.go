// Copyright (c) 2026 by Marko Gaćeša.
// Licensed under the Apache License, Version 2.0.
// See the LICENSE file or http://www.apache.org/licenses/LICENSE-2.0 for details.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/marko-gacesa/quadsync/udp"
)

const (
	EnvPort        = "QUADS_PORT"
	EnvCount       = "QUADS_COUNT"
	EnvBroadcast   = "QUADS_BROADCAST"
	EnvReusePort   = "QUADS_REUSE_PORT"
	EnvLogLevel    = "QUADS_LOG_LEVEL"
	EnvResendMS    = "QUADS_RESEND_MS"
	EnvResendCount = "QUADS_RESEND_COUNT"
)

// BroadcastSubnet as QUADS_BROADCAST selects the broadcast address of the default interface's subnet.
const BroadcastSubnet = "subnet"

type Config struct {
	Port        int
	Count       int
	Broadcast   net.IP // nil means the limited broadcast address 255.255.255.255
	ReusePort   bool
	LogLevel    slog.Level
	Resend      time.Duration
	ResendCount int
}

func Default() Config {
	return Config{
		Port:        udp.DefaultPort,
		Count:       2,
		ReusePort:   true,
		LogLevel:    slog.LevelInfo,
		Resend:      250 * time.Millisecond,
		ResendCount: 3,
	}
}

// Load reads the .env files (".env" when none given) into the process environment,
// without overriding variables that are already set, and builds the configuration from it.
// Missing files are not an error.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: failed to load environment file: %w", err)
	}

	return FromEnv(os.Getenv)
}

// FromEnv builds the configuration using getenv for lookups. Unset variables keep their defaults.
func FromEnv(getenv func(string) string) (Config, error) {
	c := Default()

	var err error

	if c.Port, err = intVar(getenv, EnvPort, c.Port); err != nil {
		return Config{}, err
	}
	if c.Port <= 0 || c.Port > 65535 {
		return Config{}, fmt.Errorf("config: %s out of range: %d", EnvPort, c.Port)
	}

	if c.Count, err = intVar(getenv, EnvCount, c.Count); err != nil {
		return Config{}, err
	}
	if c.Count <= 0 {
		return Config{}, fmt.Errorf("config: %s must be positive: %d", EnvCount, c.Count)
	}

	if s := strings.TrimSpace(getenv(EnvReusePort)); s != "" {
		if c.ReusePort, err = strconv.ParseBool(s); err != nil {
			return Config{}, fmt.Errorf("config: invalid %s: %w", EnvReusePort, err)
		}
	}

	if s := strings.TrimSpace(getenv(EnvLogLevel)); s != "" {
		if err := c.LogLevel.UnmarshalText([]byte(s)); err != nil {
			return Config{}, fmt.Errorf("config: invalid %s: %w", EnvLogLevel, err)
		}
	}

	resendMS, err := intVar(getenv, EnvResendMS, int(c.Resend/time.Millisecond))
	if err != nil {
		return Config{}, err
	}
	c.Resend = time.Duration(resendMS) * time.Millisecond

	if c.ResendCount, err = intVar(getenv, EnvResendCount, c.ResendCount); err != nil {
		return Config{}, err
	}

	switch s := strings.TrimSpace(getenv(EnvBroadcast)); s {
	case "":
	case BroadcastSubnet:
		if c.Broadcast, err = udp.DirectedBroadcastAddress(); err != nil {
			return Config{}, fmt.Errorf("config: %w", err)
		}
	default:
		ip := net.ParseIP(s)
		if ip == nil || ip.To4() == nil {
			return Config{}, fmt.Errorf("config: %s is not an IPv4 address: %q", EnvBroadcast, s)
		}
		c.Broadcast = ip
	}

	return c, nil
}

// Logger returns a text logger writing to stdout at the configured level.
func (c Config) Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: c.LogLevel,
	}))
}

func intVar(getenv func(string) string, name string, def int) (int, error) {
	s := strings.TrimSpace(getenv(name))
	if s == "" {
		return def, nil
	}

	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s: %w", name, err)
	}

	return v, nil
}
