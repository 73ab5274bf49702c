// Copyright (c) 2026 by Marko Gaćeša.
// Licensed under the Apache License, Version 2.0.
// See the LICENSE file or http://www.apache.org/licenses/LICENSE-2.0 for details.

//go:build windows

package udp

import (
	"errors"

	"golang.org/x/sys/windows"
)

const (
	wsaEWouldBlock   windows.Errno = 10035
	wsaENetDown      windows.Errno = 10050
	wsaENetUnreach   windows.Errno = 10051
	wsaENoBufs       windows.Errno = 10055
	wsaEHostDown     windows.Errno = 10064
	wsaEHostUnreach  windows.Errno = 10065
	wsaEAddrNotAvail windows.Errno = 10049
)

func setBroadcast(fd uintptr) error {
	return windows.SetsockoptInt(windows.Handle(fd), windows.SOL_SOCKET, windows.SO_BROADCAST, 1)
}

// Windows has no SO_REUSEPORT, SO_REUSEADDR already lets several sockets share the port.
func setReusePort(fd uintptr) error {
	return windows.SetsockoptInt(windows.Handle(fd), windows.SOL_SOCKET, windows.SO_REUSEADDR, 1)
}

// IsTransient reports whether a send error only cost the current datagram
// (no route, interface down, buffers full) and the socket itself is still usable.
func IsTransient(err error) bool {
	for _, errno := range []windows.Errno{
		wsaEWouldBlock, wsaENetDown, wsaENetUnreach, wsaENoBufs, wsaEHostDown, wsaEHostUnreach, wsaEAddrNotAvail,
	} {
		if errors.Is(err, errno) {
			return true
		}
	}
	return false
}
