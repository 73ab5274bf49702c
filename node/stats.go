// Copyright (c) 2026 by Marko Gaćeša.
// Licensed under the Apache License, Version 2.0.
// See the LICENSE file or http://www.apache.org/licenses/LICENSE-2.0 for details.

package node

import "sync/atomic"

// Stats counts what happened to datagrams since the node was created.
type Stats struct {
	Sent            uint64 // updates handed to the transport successfully
	Resent          uint64 // repeats of an earlier local move put on the send queue
	SendFailures    uint64 // transport send errors
	QueueDrops      uint64 // local moves not sent because the send queue was full
	Received        uint64 // datagrams received
	Broadcasts      uint64 // received datagrams addressed to a broadcast address
	Unicasts        uint64 // received datagrams addressed to this host directly
	Applied         uint64 // peer updates written to the table
	Malformed       uint64 // truncated datagrams or invalid entity indices
	Echoes          uint64 // own updates reflected back and ignored
	ReceiveFailures uint64 // transport receive errors
	NotifyDrops     uint64 // applied updates not delivered on Updates because nobody was reading
}

type stats struct {
	sent            atomic.Uint64
	resent          atomic.Uint64
	sendFailures    atomic.Uint64
	queueDrops      atomic.Uint64
	received        atomic.Uint64
	broadcasts      atomic.Uint64
	unicasts        atomic.Uint64
	applied         atomic.Uint64
	malformed       atomic.Uint64
	echoes          atomic.Uint64
	receiveFailures atomic.Uint64
	notifyDrops     atomic.Uint64
}

func (s *stats) snapshot() Stats {
	return Stats{
		Sent:            s.sent.Load(),
		Resent:          s.resent.Load(),
		SendFailures:    s.sendFailures.Load(),
		QueueDrops:      s.queueDrops.Load(),
		Received:        s.received.Load(),
		Broadcasts:      s.broadcasts.Load(),
		Unicasts:        s.unicasts.Load(),
		Applied:         s.applied.Load(),
		Malformed:       s.malformed.Load(),
		Echoes:          s.echoes.Load(),
		ReceiveFailures: s.receiveFailures.Load(),
		NotifyDrops:     s.notifyDrops.Load(),
	}
}
