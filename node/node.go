// Copyright (c) 2026 by Marko Gaćeša.
// Licensed under the Apache License, Version 2.0.
// See the LICENSE file or http://www.apache.org/licenses/LICENSE-2.0 for details.

package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marko-gacesa/quadsync/replica"
	"github.com/marko-gacesa/quadsync/udp"
	"github.com/marko-gacesa/quadsync/util"
	"golang.org/x/sync/errgroup"
)

// ******************************************************************************

// Adapter is what a render/input loop needs from the replication core.
type Adapter interface {
	// OnLocalMove is called from the input path when the user moves an entity. It never blocks.
	OnLocalMove(index int, pos replica.Position) error

	// QueryPosition returns the current position of an entity. It never blocks on I/O.
	QueryPosition(index int) (replica.Position, error)
}

var _ Adapter = (*Node)(nil)

var _ interface {
	// Start runs the receive, send and resend loops. It's a blocking call. Cancel the context or call Stop to end it.
	Start(ctx context.Context) error

	// Stop closes the socket and waits for Start to return.
	Stop() error

	// HandleDatagram decodes one received datagram and applies it to the entity table.
	HandleDatagram(d udp.Datagram)

	// Updates delivers peer updates after they have been applied.
	Updates() <-chan replica.Update
} = (*Node)(nil)

//******************************************************************************

// Transport is a broadcast datagram endpoint. *udp.Broadcaster implements it.
type Transport interface {
	Send(data []byte) error
	Receive(buf []byte) (udp.Datagram, error)
	Close() error
}

type Node struct {
	transport     Transport
	transportOpts []func(*udp.Broadcaster)
	table         *replica.Table
	positions     []replica.Position

	queueSize int
	sendCh    chan replica.Update
	updateCh  chan replica.Update

	echoFilter bool
	localIPs   []net.IP
	sent       sentLog

	resendInterval time.Duration
	resendCount    int

	receiveBackoff      time.Duration
	receiveFailureLimit int

	started   atomic.Bool
	stopOnce  sync.Once
	stopCh    chan struct{}
	doneCh    chan struct{}
	closeOnce sync.Once
	closeErr  error
	errMx     sync.Mutex
	err       error

	stats stats
	log   *slog.Logger
}

// New creates a node replicating count entities over the provided transport.
// The node owns the transport from now on and closes it on Stop.
func New(transport Transport, count int, opts ...func(*Node)) (*Node, error) {
	if transport == nil {
		return nil, ErrNoTransport
	}

	n, err := newNode(count, opts)
	if err != nil {
		return nil, err
	}

	n.transport = transport

	return n, nil
}

// Open binds a UDP broadcaster to the port and creates a node on top of it.
func Open(port, count int, opts ...func(*Node)) (*Node, error) {
	n, err := newNode(count, opts)
	if err != nil {
		return nil, err
	}

	n.log = n.log.With("port", port)

	transportOpts := append([]func(*udp.Broadcaster){udp.WithLogger(n.log)}, n.transportOpts...)

	b, err := udp.Open(port, transportOpts...)
	if err != nil {
		return nil, fmt.Errorf("node: failed to open transport: %w", err)
	}

	n.transport = b

	return n, nil
}

func newNode(count int, opts []func(*Node)) (*Node, error) {
	n := &Node{
		queueSize:           defaultQueueSize,
		echoFilter:          true,
		receiveBackoff:      defaultReceiveBackoff,
		receiveFailureLimit: defaultReceiveFailureLimit,
		stopCh:              make(chan struct{}),
		doneCh:              make(chan struct{}),
		log:                 slog.Default(),
	}

	for _, opt := range opts {
		opt(n)
	}

	switch {
	case n.positions != nil && len(n.positions) != count:
		return nil, fmt.Errorf("node: got %d initial positions for %d entities", len(n.positions), count)
	case count <= 0:
		return nil, ErrNoEntities
	case n.positions != nil:
		n.table = replica.NewTableFrom(n.positions)
	default:
		n.table = replica.NewTable(count)
	}

	n.sendCh = make(chan replica.Update, n.queueSize)
	n.updateCh = make(chan replica.Update, updateChannelSize)
	n.sent.init(count)

	if n.echoFilter && n.localIPs == nil {
		ips, err := udp.InterfaceIPs()
		if err != nil {
			n.log.Warn("echo filter limited to loopback",
				"error", err.Error())
		}
		n.localIPs = ips
	}

	return n, nil
}

// OnLocalMove sets the entity position locally and queues its broadcast.
// When the send queue is full the broadcast is skipped, the local position is still updated.
// After Stop it returns ErrNotRunning and changes nothing.
func (n *Node) OnLocalMove(index int, pos replica.Position) error {
	select {
	case <-n.stopCh:
		return ErrNotRunning
	default:
	}

	if err := n.table.Set(index, pos); err != nil {
		return err
	}

	u := replica.Update{Index: uint32(index), Position: pos}

	n.sent.record(u, n.resendCount)
	n.enqueue(u)

	return nil
}

// MoveBy moves the entity relative to its current position. Peers receive the resulting absolute position.
func (n *Node) MoveBy(index int, dx, dy float32) error {
	pos, err := n.table.Position(index)
	if err != nil {
		return err
	}

	return n.OnLocalMove(index, pos.Add(dx, dy))
}

func (n *Node) QueryPosition(index int) (replica.Position, error) {
	return n.table.Position(index)
}

// Snapshot returns positions of all entities.
func (n *Node) Snapshot() []replica.Position {
	return n.table.Snapshot()
}

func (n *Node) Count() int {
	return n.table.Count()
}

func (n *Node) Updates() <-chan replica.Update {
	return n.updateCh
}

func (n *Node) Stats() Stats {
	return n.stats.snapshot()
}

// Done is closed when Start returns.
func (n *Node) Done() <-chan struct{} {
	return n.doneCh
}

// Err returns the error Start returned, nil if the node stopped cleanly or is still running.
func (n *Node) Err() error {
	n.errMx.Lock()
	defer n.errMx.Unlock()

	return n.err
}

func (n *Node) enqueue(u replica.Update) {
	select {
	case n.sendCh <- u:
	default:
		n.stats.queueDrops.Add(1)
		n.log.Warn("send queue full, update dropped",
			"update", u.String())
	}
}

func (n *Node) HandleDatagram(d udp.Datagram) {
	defer util.Recover(n.log, "addr", d.Addr.String(), "size", len(d.Payload))

	n.stats.received.Add(1)

	switch d.Delivery {
	case udp.DeliveryBroadcast:
		n.stats.broadcasts.Add(1)
	case udp.DeliveryUnicast:
		n.stats.unicasts.Add(1)
		n.log.Debug("received unicast message",
			"addr", d.Addr.String(),
			"dst", d.Dst.String())
	}

	u, err := replica.Decode(d.Payload, n.table.Count())
	if err != nil {
		n.stats.malformed.Add(1)
		n.log.Debug("dropped malformed message",
			"addr", d.Addr.String(),
			"size", len(d.Payload),
			"error", err.Error())
		return
	}

	if n.echoFilter && isLocalIP(d.Addr.IP, n.localIPs) && n.sent.contains(u.Index, d.Payload) {
		n.stats.echoes.Add(1)
		return
	}

	// A peer value replaces whatever this node sent before, so equal bytes arriving
	// from now on belong to the peer until this node sends again.
	n.sent.forget(u.Index)

	if err := n.table.Apply(u); err != nil {
		n.stats.malformed.Add(1)
		n.log.Debug("failed to apply update",
			"addr", d.Addr.String(),
			"error", err.Error())
		return
	}

	n.stats.applied.Add(1)

	select {
	case n.updateCh <- u:
	default:
		n.stats.notifyDrops.Add(1)
	}
}

func (n *Node) Start(ctx context.Context) error {
	if !n.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	defer close(n.doneCh)

	n.log.Info("node started",
		"entities", n.table.Count())

	g, ctxGroup := errgroup.WithContext(ctx)

	g.Go(func() error {
		select {
		case <-ctxGroup.Done():
			n.shutdown()
		case <-n.stopCh:
		}

		if err := n.closeTransport(); err != nil {
			n.log.Error("failed to close transport",
				"error", err.Error())
		}

		return nil
	})

	g.Go(func() error {
		defer n.shutdown()
		return n.receiveLoop()
	})

	g.Go(func() error {
		return n.sendLoop()
	})

	if n.resendInterval > 0 {
		g.Go(func() error {
			return n.resendLoop()
		})
	}

	err := g.Wait()

	n.errMx.Lock()
	n.err = err
	n.errMx.Unlock()

	if err != nil {
		n.log.Error("node failed",
			"error", err.Error())
	} else {
		n.log.Info("node stopped")
	}

	return err
}

func (n *Node) Stop() error {
	n.shutdown()

	if !n.started.Load() {
		return n.closeTransport()
	}

	<-n.doneCh

	return nil
}

func (n *Node) shutdown() {
	n.stopOnce.Do(func() {
		close(n.stopCh)
	})
}

func (n *Node) closeTransport() error {
	n.closeOnce.Do(func() {
		n.closeErr = n.transport.Close()
	})

	return n.closeErr
}

func (n *Node) receiveLoop() error {
	var buffer [udp.BufferSize]byte
	var failures int

	for {
		d, err := n.transport.Receive(buffer[:])
		if err != nil {
			// Stop closes the socket to interrupt the blocked call.
			if errors.Is(err, udp.ErrClosed) || errors.Is(err, net.ErrClosed) {
				return nil
			}

			n.stats.receiveFailures.Add(1)

			failures++
			if failures >= n.receiveFailureLimit {
				return fmt.Errorf("node: failed to receive %d times in a row: %w", failures, err)
			}

			n.log.Warn("failed to receive message",
				"failures", failures,
				"error", err.Error())

			select {
			case <-n.stopCh:
				return nil
			case <-time.After(n.receiveBackoff * time.Duration(failures)):
			}

			continue
		}

		failures = 0

		n.HandleDatagram(d)
	}
}

func (n *Node) sendLoop() error {
	var buffer [replica.SizeOfUpdate]byte

	for {
		var u replica.Update

		select {
		case <-n.stopCh:
			return nil
		case u = <-n.sendCh:
		}

		size := u.Put(buffer[:])

		err := n.transport.Send(buffer[:size])
		if err == nil {
			n.stats.sent.Add(1)
			continue
		}

		if errors.Is(err, udp.ErrClosed) || errors.Is(err, net.ErrClosed) {
			return nil
		}

		n.stats.sendFailures.Add(1)

		if udp.IsTransient(err) {
			n.log.Warn("update not sent",
				"update", u.String(),
				"error", err.Error())
			continue
		}

		n.shutdown()

		return fmt.Errorf("node: failed to send update: %w", err)
	}
}

func (n *Node) resendLoop() error {
	ticker := time.NewTicker(n.resendInterval)
	defer ticker.Stop()

	for {
		select {
		case <-n.stopCh:
			return nil
		case <-ticker.C:
		}

		for _, u := range n.sent.due() {
			pos, err := n.table.Position(int(u.Index))
			if err != nil || pos != u.Position {
				continue
			}

			n.stats.resent.Add(1)
			n.enqueue(u)
		}
	}
}
