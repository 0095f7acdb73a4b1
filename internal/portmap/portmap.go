// Copyright 2026 The kad Authors
// This file is part of kad.
//
// kad is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// kad is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with kad. If not, see <http://www.gnu.org/licenses/>.

// Package portmap implements the "Address-discovery collaborator" of §6:
// initialize(ipv6?), get_external_ip_address(), get_local_ip_address(),
// forward_port(desc, proto, port) -> bool, re-invoked by the node every
// UPNP_RELEASE_INTERVAL. It follows the same UPnP-then-NAT-PMP fallback
// idiom devp2p's p2p/nat package popularized, built on the two NAT
// discovery libraries in the retrieval pack's go.mod: github.com/huin/goupnp
// and github.com/jackpal/go-nat-pmp.
package portmap

import (
	"errors"
	"net"
	"time"
)

// ReleaseInterval is the recognized UPNP_RELEASE_INTERVAL (§6): the core
// re-invokes ForwardPort on this cadence to renew the lease.
const ReleaseInterval = 3600 * time.Second

// ErrNoGateway is returned when no UPnP or NAT-PMP gateway could be found.
var ErrNoGateway = errors.New("portmap: no UPnP or NAT-PMP gateway found")

// Discoverer is the address-discovery collaborator interface.
type Discoverer interface {
	Initialize(ipv6 bool) error
	ExternalIP() (net.IP, error)
	LocalIP() (net.IP, error)
	ForwardPort(desc, proto string, port int) (bool, error)
}

// Discover probes for a UPnP Internet Gateway Device first, falling back to
// NAT-PMP, matching the order most home routers are actually reachable by.
func Discover() (Discoverer, error) {
	if u, err := discoverUPnP(); err == nil {
		return u, nil
	}
	if p, err := discoverNATPMP(); err == nil {
		return p, nil
	}
	return nil, ErrNoGateway
}

// localIP returns this host's non-loopback IPv4 (or IPv6, when ipv6 is
// true) address, used as the fallback get_local_ip_address() when no
// gateway client is available to ask.
func localIP(ipv6 bool) (net.IP, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil, err
	}
	for _, a := range addrs {
		ipNet, ok := a.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		is4 := ipNet.IP.To4() != nil
		if is4 != ipv6 {
			return ipNet.IP, nil
		}
	}
	return nil, errors.New("portmap: no usable local address found")
}
