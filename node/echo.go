// Copyright (c) 2026 by Marko Gaćeša.
// Licensed under the Apache License, Version 2.0.
// See the LICENSE file or http://www.apache.org/licenses/LICENSE-2.0 for details.

package node

import (
	"bytes"
	"net"
	"sync"

	"github.com/marko-gacesa/quadsync/replica"
)

// echoWindow is the number of recent local records per entity recognized as own echoes.
const echoWindow = 8

// sentLog remembers what this node recently broadcast for each entity.
// Broadcasts are delivered to the sender too, so without it a late echo of an older move
// would overwrite a newer local position.
type sentLog struct {
	mx      sync.Mutex
	entries []sentEntry
}

type sentEntry struct {
	recent  [echoWindow][replica.SizeOfUpdate]byte
	filled  int
	next    int
	last    replica.Update
	resends int
}

func (l *sentLog) init(count int) {
	l.entries = make([]sentEntry, count)
}

func (l *sentLog) record(u replica.Update, resends int) {
	l.mx.Lock()
	defer l.mx.Unlock()

	e := &l.entries[u.Index]
	u.Put(e.recent[e.next][:])
	e.next = (e.next + 1) % echoWindow
	e.filled = min(e.filled+1, echoWindow)
	e.last = u
	e.resends = resends
}

// contains reports whether payload is one of the recent records sent for the entity.
func (l *sentLog) contains(index uint32, payload []byte) bool {
	if len(payload) < replica.SizeOfUpdate || int(index) >= len(l.entries) {
		return false
	}

	payload = payload[:replica.SizeOfUpdate]

	l.mx.Lock()
	defer l.mx.Unlock()

	e := &l.entries[index]
	for i := range e.filled {
		if bytes.Equal(e.recent[i][:], payload) {
			return true
		}
	}

	return false
}

// forget drops the recent records of the entity. Resends of its last local move stop too.
func (l *sentLog) forget(index uint32) {
	if int(index) >= len(l.entries) {
		return
	}

	l.mx.Lock()
	defer l.mx.Unlock()

	e := &l.entries[index]
	e.filled = 0
	e.next = 0
	e.resends = 0
}

// due returns the updates that still have resends left, and uses one resend of each.
func (l *sentLog) due() []replica.Update {
	l.mx.Lock()
	defer l.mx.Unlock()

	var list []replica.Update
	for i := range l.entries {
		e := &l.entries[i]
		if e.resends == 0 {
			continue
		}

		e.resends--
		list = append(list, e.last)
	}

	return list
}

func isLocalIP(ip net.IP, localIPs []net.IP) bool {
	if ip.IsLoopback() {
		return true
	}

	for _, local := range localIPs {
		if local.Equal(ip) {
			return true
		}
	}

	return false
}
