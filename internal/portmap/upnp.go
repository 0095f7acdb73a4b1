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

	"github.com/huin/goupnp/dcps/internetgateway2"
)

type upnpDiscoverer struct {
	client *internetgateway2.WANIPConnection1
	ipv6   bool
}

func discoverUPnP() (*upnpDiscoverer, error) {
	clients, _, err := internetgateway2.NewWANIPConnection1Clients()
	if err != nil {
		return nil, fmt.Errorf("portmap: upnp discovery: %w", err)
	}
	if len(clients) == 0 {
		return nil, ErrNoGateway
	}
	return &upnpDiscoverer{client: clients[0]}, nil
}

func (u *upnpDiscoverer) Initialize(ipv6 bool) error {
	u.ipv6 = ipv6
	return nil
}

func (u *upnpDiscoverer) ExternalIP() (net.IP, error) {
	s, err := u.client.GetExternalIPAddress()
	if err != nil {
		return nil, fmt.Errorf("portmap: upnp external ip: %w", err)
	}
	ip := net.ParseIP(s)
	if ip == nil {
		return nil, fmt.Errorf("portmap: upnp returned unparseable ip %q", s)
	}
	return ip, nil
}

func (u *upnpDiscoverer) LocalIP() (net.IP, error) {
	return localIP(u.ipv6)
}

func (u *upnpDiscoverer) ForwardPort(desc, proto string, port int) (bool, error) {
	local, err := u.LocalIP()
	if err != nil {
		return false, err
	}
	err = u.client.AddPortMapping("", uint16(port), proto, uint16(port), local.String(), true, desc, uint32(ReleaseInterval.Seconds()))
	if err != nil {
		return false, fmt.Errorf("portmap: upnp add port mapping: %w", err)
	}
	return true, nil
}
