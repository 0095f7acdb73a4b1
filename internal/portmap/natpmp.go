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

package portmap

import (
	"fmt"
	"net"

	natpmp "github.com/jackpal/go-nat-pmp"
)

type natPMPDiscoverer struct {
	client *natpmp.Client
	ipv6   bool
}

func gatewayIP() (net.IP, error) {
	local, err := localIP(false)
	if err != nil {
		return nil, err
	}
	ip4 := local.To4()
	if ip4 == nil {
		return nil, fmt.Errorf("portmap: no ipv4 local address to derive gateway from")
	}
	gw := make(net.IP, len(ip4))
	copy(gw, ip4)
	gw[3] = 1
	return gw, nil
}

func discoverNATPMP() (*natPMPDiscoverer, error) {
	gw, err := gatewayIP()
	if err != nil {
		return nil, err
	}
	client := natpmp.NewClient(gw)
	if _, err := client.GetExternalAddress(); err != nil {
		return nil, fmt.Errorf("portmap: nat-pmp unreachable: %w", err)
	}
	return &natPMPDiscoverer{client: client}, nil
}

func (n *natPMPDiscoverer) Initialize(ipv6 bool) error {
	n.ipv6 = ipv6
	return nil
}

func (n *natPMPDiscoverer) ExternalIP() (net.IP, error) {
	resp, err := n.client.GetExternalAddress()
	if err != nil {
		return nil, fmt.Errorf("portmap: nat-pmp external ip: %w", err)
	}
	ip := net.IPv4(resp.ExternalIPAddress[0], resp.ExternalIPAddress[1], resp.ExternalIPAddress[2], resp.ExternalIPAddress[3])
	return ip, nil
}

func (n *natPMPDiscoverer) LocalIP() (net.IP, error) {
	return localIP(n.ipv6)
}

func (n *natPMPDiscoverer) ForwardPort(desc, proto string, port int) (bool, error) {
	_, err := n.client.AddPortMapping(protocolFor(proto), port, port, int(ReleaseInterval.Seconds()))
	if err != nil {
		return false, fmt.Errorf("portmap: nat-pmp add port mapping: %w", err)
	}
	return true, nil
}

func protocolFor(proto string) string {
	switch proto {
	case "tcp", "TCP":
		return "tcp"
	default:
		return "udp"
	}
}
