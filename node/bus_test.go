// Copyright (c) 2026 by Marko Gaćeša.
// Licensed under the Apache License, Version 2.0.
// See the LICENSE file or http://www.apache.org/licenses/LICENSE-2.0 for details.

package node

import (
	"fmt"
	"net"
	"sync"

	"github.com/marko-gacesa/quadsync/udp"
)

// bus is an in-memory broadcast domain. Every datagram sent by a member is delivered to all members,
// the sender included, like a real subnet broadcast.
type bus struct {
	mx      sync.Mutex
	members []*memTransport
}

type memDatagram struct {
	payload []byte
	from    net.UDPAddr
}

type memTransport struct {
	bus       *bus
	addr      net.UDPAddr
	inbox     chan memDatagram
	closed    chan struct{}
	closeOnce sync.Once

	mx      sync.Mutex
	sendErr error
	drop    func(payload []byte) bool

	recvErr   error
	recvTimes int
}

func (b *bus) join(ip net.IP) *memTransport {
	t := &memTransport{
		bus:    b,
		addr:   net.UDPAddr{IP: ip, Port: udp.DefaultPort},
		inbox:  make(chan memDatagram, 64),
		closed: make(chan struct{}),
	}

	b.mx.Lock()
	b.members = append(b.members, t)
	b.mx.Unlock()

	return t
}

func (t *memTransport) setSendError(err error) {
	t.mx.Lock()
	t.sendErr = err
	t.mx.Unlock()
}

// setReceiveError makes the next times calls to Receive fail with err. Negative times means always.
func (t *memTransport) setReceiveError(err error, times int) {
	t.mx.Lock()
	t.recvErr = err
	t.recvTimes = times
	t.mx.Unlock()
}

func (t *memTransport) receiveError() error {
	t.mx.Lock()
	defer t.mx.Unlock()

	if t.recvErr == nil || t.recvTimes == 0 {
		return nil
	}

	if t.recvTimes > 0 {
		t.recvTimes--
	}

	return t.recvErr
}

func (t *memTransport) setDrop(drop func(payload []byte) bool) {
	t.mx.Lock()
	t.drop = drop
	t.mx.Unlock()
}

func (t *memTransport) Send(data []byte) error {
	select {
	case <-t.closed:
		return fmt.Errorf("mem transport: %w", udp.ErrClosed)
	default:
	}

	t.mx.Lock()
	sendErr, drop := t.sendErr, t.drop
	t.mx.Unlock()

	if sendErr != nil {
		return sendErr
	}

	if drop != nil && drop(data) {
		return nil
	}

	t.bus.mx.Lock()
	members := append([]*memTransport(nil), t.bus.members...)
	t.bus.mx.Unlock()

	for _, m := range members {
		select {
		case m.inbox <- memDatagram{payload: append([]byte(nil), data...), from: t.addr}:
		default: // receiver queue overflow, lost like on a real network
		}
	}

	return nil
}

func (t *memTransport) Receive(buf []byte) (udp.Datagram, error) {
	select {
	case <-t.closed:
		return udp.Datagram{}, fmt.Errorf("mem transport: %w", udp.ErrClosed)
	default:
	}

	if err := t.receiveError(); err != nil {
		return udp.Datagram{}, err
	}

	select {
	case <-t.closed:
		return udp.Datagram{}, fmt.Errorf("mem transport: %w", udp.ErrClosed)
	case d := <-t.inbox:
		n := copy(buf, d.payload)
		return udp.Datagram{Payload: buf[:n], Addr: d.from}, nil
	}
}

func (t *memTransport) Close() error {
	t.closeOnce.Do(func() {
		close(t.closed)
	})
	return nil
}

func (t *memTransport) isClosed() bool {
	select {
	case <-t.closed:
		return true
	default:
		return false
	}
}
