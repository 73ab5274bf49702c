// Copyright (c) 2024, 2026 by Marko Gaćeša.
// Licensed under the Apache License, Version 2.0.
// See the LICENSE file or http://www.apache.org/licenses/LICENSE-2.0 for details.

package udp

import (
	"errors"
	"fmt"
	"net"
	"sort"
	"strings"
)

// DirectedBroadcastAddress returns the subnet broadcast address of the default network interface,
// for example 192.168.1.255 for 192.168.1.17/24.
func DirectedBroadcastAddress() (net.IP, error) {
	iface, err := DefaultInterface()
	if err != nil {
		return nil, fmt.Errorf("udp broadcast: failed to get network interface: %w", err)
	}

	addrs, err := iface.Addrs()
	if err != nil {
		return nil, fmt.Errorf("udp broadcast: failed to get addresses of %s: %w", iface.Name, err)
	}

	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}

		if ip := BroadcastOf(ipNet); ip != nil {
			return ip, nil
		}
	}

	return nil, fmt.Errorf("udp broadcast: interface %s has no IPv4 address", iface.Name)
}

// BroadcastOf returns the broadcast address of an IPv4 network, or nil for IPv6.
func BroadcastOf(ipNet *net.IPNet) net.IP {
	ip4 := ipNet.IP.To4()
	if ip4 == nil {
		return nil
	}

	mask := ipNet.Mask
	if len(mask) == net.IPv6len {
		mask = mask[12:]
	}
	if len(mask) != net.IPv4len {
		return nil
	}

	bcast := make(net.IP, net.IPv4len)
	for i := range bcast {
		bcast[i] = ip4[i] | ^mask[i]
	}

	return bcast
}

// DefaultInterface picks the interface that broadcasts most likely go through:
// up, running, broadcast capable, not loopback nor point-to-point. Wired "en*" and "eth*" names win.
func DefaultInterface() (*net.Interface, error) {
	interfaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("failed to get network interfaces: %w", err)
	}

	var ifaces []*net.Interface
	for i := range interfaces {
		iface := &interfaces[i]

		addrs, err := iface.Addrs()
		if err != nil || len(addrs) == 0 {
			continue
		}

		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagRunning == 0 ||
			iface.Flags&net.FlagLoopback > 0 || iface.Flags&net.FlagBroadcast == 0 ||
			iface.Flags&net.FlagPointToPoint > 0 {
			continue
		}

		ifaces = append(ifaces, iface)
	}

	if len(ifaces) == 0 {
		return nil, errors.New("no available network interfaces")
	}

	selectByName := func(prefix string) []*net.Interface {
		var ifacesSel []*net.Interface
		for _, iface := range ifaces {
			if strings.HasPrefix(iface.Name, prefix) {
				ifacesSel = append(ifacesSel, iface)
			}
		}

		sort.Slice(ifacesSel, func(i, j int) bool {
			return ifacesSel[i].Name < ifacesSel[j].Name
		})

		return ifacesSel
	}

	if ifacesSel := selectByName("en"); len(ifacesSel) > 0 {
		return ifacesSel[0], nil
	}

	if ifacesSel := selectByName("eth"); len(ifacesSel) > 0 {
		return ifacesSel[0], nil
	}

	return ifaces[0], nil
}

// InterfaceIPs returns all unicast addresses of this host, loopback included.
func InterfaceIPs() ([]net.IP, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil, fmt.Errorf("udp: failed to get interface addresses: %w", err)
	}

	ips := make([]net.IP, 0, len(addrs))
	for _, addr := range addrs {
		switch a := addr.(type) {
		case *net.IPNet:
			ips = append(ips, a.IP)
		case *net.IPAddr:
			ips = append(ips, a.IP)
		}
	}

	return ips, nil
}
