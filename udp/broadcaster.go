// Copyright (c) 2026 by Marko Gaćeša.
// Licensed under the Apache License, Version 2.0.
// See the LICENSE file or http://www.apache.org/licenses/LICENSE-2.0 for details.

package udp

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"syscall"

	"golang.org/x/net/ipv4"
)

var _ = interface {
	Send(data []byte) error
	Receive(buf []byte) (Datagram, error)
	Close() error
}((*Broadcaster)(nil))

const DefaultPort = 45287

// BufferSize is large enough for any datagram this package is expected to receive.
const BufferSize = 4 << 10

// Datagram is a single received UDP message. Payload points into the buffer passed to Receive.
type Datagram struct {
	Payload []byte
	Addr    net.UDPAddr
	Dst      net.IP // destination address, nil if the platform doesn't report it
	IfIndex  int    // receiving interface, 0 if unknown
	Delivery Delivery
}

// Broadcaster owns one UDP socket bound to 0.0.0.0:port. It sends every message
// to the broadcast address on the same port and receives whatever arrives on that port.
type Broadcaster struct {
	connection *net.UDPConn
	packetConn *ipv4.PacketConn
	dst        net.UDPAddr
	reusePort  bool
	log        *slog.Logger

	bcastMx sync.Mutex
	bcasts  map[int][]net.IP // broadcast addresses by interface index

	closeOnce sync.Once
	closeErr  error
}

func WithBroadcastAddress(ip net.IP) func(*Broadcaster) {
	return func(b *Broadcaster) {
		if ip != nil {
			b.dst.IP = ip
		}
	}
}

func WithReusePort(reusePort bool) func(*Broadcaster) {
	return func(b *Broadcaster) {
		b.reusePort = reusePort
	}
}

func WithLogger(log *slog.Logger) func(*Broadcaster) {
	return func(b *Broadcaster) {
		if log != nil {
			b.log = log
		}
	}
}

// Open creates the socket, enables SO_BROADCAST on it and binds it to the port.
// On failure no socket is left open and the returned error is a *TransportError
// of kind ErrCreateFailed, ErrBroadcastUnavailable or ErrBindFailed.
func Open(port int, opts ...func(*Broadcaster)) (*Broadcaster, error) {
	b := &Broadcaster{
		dst: net.UDPAddr{
			IP:   net.IPv4bcast,
			Port: port,
		},
		log: slog.Default(),
	}

	for _, opt := range opts {
		opt(b)
	}

	var created bool
	var errBroadcast error

	lc := net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			created = true

			var errReuse error
			err := c.Control(func(fd uintptr) {
				errBroadcast = setBroadcast(fd)
				if errBroadcast == nil && b.reusePort {
					errReuse = setReusePort(fd)
				}
			})
			if err != nil {
				return err
			}
			if errBroadcast != nil {
				return errBroadcast
			}

			return errReuse
		},
	}

	address := net.JoinHostPort(net.IPv4zero.String(), strconv.Itoa(port))

	conn, err := lc.ListenPacket(context.Background(), "udp4", address)
	switch {
	case err == nil:
	case !created:
		return nil, newTransportError(ErrCreateFailed, err)
	case errBroadcast != nil:
		return nil, newTransportError(ErrBroadcastUnavailable, err)
	default:
		return nil, newTransportError(ErrBindFailed, err)
	}

	b.connection = conn.(*net.UDPConn)
	b.packetConn = ipv4.NewPacketConn(b.connection)

	if err := b.packetConn.SetControlMessage(ipv4.FlagDst|ipv4.FlagInterface, true); err != nil {
		b.log.Debug("udp broadcaster: control messages not available",
			"error", err.Error())
	}

	b.log.Debug("udp broadcaster opened",
		"local", b.connection.LocalAddr().String(),
		"broadcast", b.dst.String())

	return b, nil
}

// Send transmits data as one datagram to the broadcast address. It never retries.
func (b *Broadcaster) Send(data []byte) error {
	_, err := b.connection.WriteToUDP(data, &b.dst)
	if err != nil {
		if errors.Is(err, net.ErrClosed) {
			return newTransportError(ErrClosed, err)
		}
		return newTransportError(ErrSendFailed, err)
	}

	return nil
}

// Receive blocks until a datagram arrives or the broadcaster is closed.
// After Close it returns an error of kind ErrClosed.
func (b *Broadcaster) Receive(buf []byte) (Datagram, error) {
	n, cm, src, err := b.packetConn.ReadFrom(buf)
	if err != nil {
		if errors.Is(err, net.ErrClosed) {
			return Datagram{}, newTransportError(ErrClosed, err)
		}
		return Datagram{}, newTransportError(ErrReceiveFailed, err)
	}

	d := Datagram{
		Payload: buf[:n],
	}

	if addr, ok := src.(*net.UDPAddr); ok {
		d.Addr = *addr
	}

	if cm != nil {
		d.Dst = cm.Dst
		d.IfIndex = cm.IfIndex
	}

	if d.Dst != nil {
		d.Delivery = classify(d.Dst, b.interfaceBroadcasts(d.IfIndex))
	}

	return d, nil
}

// Close releases the socket. It is safe to call more than once.
func (b *Broadcaster) Close() error {
	b.closeOnce.Do(func() {
		if err := b.connection.Close(); err != nil {
			b.closeErr = newTransportError(ErrClosed, err)
			return
		}

		b.log.Debug("udp broadcaster closed")
	})

	return b.closeErr
}

func (b *Broadcaster) LocalAddr() net.UDPAddr {
	if addr, ok := b.connection.LocalAddr().(*net.UDPAddr); ok {
		return *addr
	}
	return net.UDPAddr{}
}

// interfaceBroadcasts returns the subnet broadcast addresses of the interface, looked up once per interface.
func (b *Broadcaster) interfaceBroadcasts(ifIndex int) []net.IP {
	if ifIndex <= 0 {
		return nil
	}

	b.bcastMx.Lock()
	defer b.bcastMx.Unlock()

	if list, ok := b.bcasts[ifIndex]; ok {
		return list
	}

	list, err := broadcastsOf(ifIndex)
	if err != nil {
		b.log.Debug("udp broadcaster: failed to get interface broadcast addresses",
			"ifindex", ifIndex,
			"error", err.Error())
	}

	if b.bcasts == nil {
		b.bcasts = make(map[int][]net.IP)
	}
	b.bcasts[ifIndex] = list

	return list
}
