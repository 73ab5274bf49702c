// Copyright (c) 2026 by Marko Gaćeša.
// Licensed under the Apache License, Version 2.0.
// See the LICENSE file or http://www.apache.org/licenses/LICENSE-2.0 for details.

package node

import (
	"log/slog"
	"net"
	"time"

	"github.com/marko-gacesa/quadsync/replica"
	"github.com/marko-gacesa/quadsync/udp"
)

const (
	defaultQueueSize  = 64
	updateChannelSize = 64

	defaultReceiveBackoff      = 10 * time.Millisecond
	defaultReceiveFailureLimit = 16
)

var WithLogger = func(log *slog.Logger) func(*Node) {
	return func(n *Node) {
		if log != nil {
			n.log = log
		}
	}
}

// WithQueueSize sets how many local moves can wait for the sender before new ones are dropped.
var WithQueueSize = func(size int) func(*Node) {
	return func(n *Node) {
		if size > 0 {
			n.queueSize = size
		}
	}
}

// WithEchoFilter controls whether the node ignores its own broadcasts when they come back to it.
var WithEchoFilter = func(enabled bool) func(*Node) {
	return func(n *Node) {
		n.echoFilter = enabled
	}
}

// WithLocalIPs replaces the host addresses the echo filter treats as "this machine".
var WithLocalIPs = func(ips ...net.IP) func(*Node) {
	return func(n *Node) {
		n.localIPs = ips
	}
}

// WithResend repeats the last local move of every entity count more times, one per interval,
// as long as no newer value for the entity arrived in the meantime.
var WithResend = func(interval time.Duration, count int) func(*Node) {
	return func(n *Node) {
		if interval <= 0 || count <= 0 {
			n.resendInterval = 0
			n.resendCount = 0
			return
		}

		n.resendInterval = interval
		n.resendCount = count
	}
}

// WithReceiveRetry sets the pause after a failed receive, multiplied by the number of failures in a row,
// and how many failures in a row end the node with an error.
var WithReceiveRetry = func(backoff time.Duration, limit int) func(*Node) {
	return func(n *Node) {
		if backoff >= 0 {
			n.receiveBackoff = backoff
		}
		if limit > 0 {
			n.receiveFailureLimit = limit
		}
	}
}

// WithPositions sets the initial layout. Its length must match the entity count.
var WithPositions = func(positions []replica.Position) func(*Node) {
	return func(n *Node) {
		n.positions = positions
	}
}

// WithTransportOptions is used by Open when it creates the UDP broadcaster.
var WithTransportOptions = func(opts ...func(*udp.Broadcaster)) func(*Node) {
	return func(n *Node) {
		n.transportOpts = append(n.transportOpts, opts...)
	}
}
