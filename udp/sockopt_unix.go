// Copyright (c) 2026 by Marko Gaćeša.
// Licensed under the Apache License, Version 2.0.
// See the LICENSE file or http://www.apache.org/licenses/LICENSE-2.0 for details.

//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package udp

import (
	"errors"

	"golang.org/x/sys/unix"
)

func setBroadcast(fd uintptr) error {
	return unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_BROADCAST, 1)
}

func setReusePort(fd uintptr) error {
	if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return err
	}
	return unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
}

// IsTransient reports whether a send error only cost the current datagram
// (no route, interface down, buffers full) and the socket itself is still usable.
func IsTransient(err error) bool {
	return errors.Is(err, unix.ENETUNREACH) ||
		errors.Is(err, unix.EHOSTUNREACH) ||
		errors.Is(err, unix.ENETDOWN) ||
		errors.Is(err, unix.EHOSTDOWN) ||
		errors.Is(err, unix.ENOBUFS) ||
		errors.Is(err, unix.EAGAIN) ||
		errors.Is(err, unix.EADDRNOTAVAIL)
}
