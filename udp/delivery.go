// Copyright (c) 2026 by Marko Gaćeša.
// Licensed under the Apache License, Version 2.0.
// See the LICENSE file or http://www.apache.org/licenses/LICENSE-2.0 for details.

package udp

import (
	"fmt"
	"net"
)

// Delivery tells how a datagram was addressed when it arrived.
type Delivery byte

const (
	DeliveryUnknown   Delivery = iota // the platform didn't report the destination address
	DeliveryBroadcast                 // limited or subnet broadcast
	DeliveryUnicast                   // addressed to this host directly
)

func (d Delivery) String() string {
	switch d {
	case DeliveryUnknown:
		return "unknown"
	case DeliveryBroadcast:
		return "broadcast"
	case DeliveryUnicast:
		return "unicast"
	}
	return fmt.Sprintf("delivery(%d)", byte(d))
}

// classify compares the destination address of a datagram with the limited broadcast address
// and with the broadcast addresses of the receiving interface.
func classify(dst net.IP, broadcasts []net.IP) Delivery {
	if dst == nil {
		return DeliveryUnknown
	}

	if dst.Equal(net.IPv4bcast) {
		return DeliveryBroadcast
	}

	for _, bcast := range broadcasts {
		if dst.Equal(bcast) {
			return DeliveryBroadcast
		}
	}

	return DeliveryUnicast
}

func broadcastsOf(ifIndex int) ([]net.IP, error) {
	iface, err := net.InterfaceByIndex(ifIndex)
	if err != nil {
		return nil, fmt.Errorf("udp broadcast: failed to get interface %d: %w", ifIndex, err)
	}

	addrs, err := iface.Addrs()
	if err != nil {
		return nil, fmt.Errorf("udp broadcast: failed to get addresses of %s: %w", iface.Name, err)
	}

	var list []net.IP
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}

		if ip := BroadcastOf(ipNet); ip != nil {
			list = append(list, ip)
		}
	}

	return list, nil
}
