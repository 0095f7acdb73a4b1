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

import "net"

// Fake is a deterministic Discoverer double for tests and for nodes run
// with NAT traversal disabled.
type Fake struct {
	External net.IP
	Local    net.IP
	Forwards []ForwardCall
}

// ForwardCall records one ForwardPort invocation.
type ForwardCall struct {
	Desc  string
	Proto string
	Port  int
}

func (f *Fake) Initialize(ipv6 bool) error { return nil }

func (f *Fake) ExternalIP() (net.IP, error) { return f.External, nil }

func (f *Fake) LocalIP() (net.IP, error) { return f.Local, nil }

func (f *Fake) ForwardPort(desc, proto string, port int) (bool, error) {
	f.Forwards = append(f.Forwards, ForwardCall{Desc: desc, Proto: proto, Port: port})
	return true, nil
}
