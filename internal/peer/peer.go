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

// Package peer holds the data-model types §3 of the spec describes as shared
// vocabulary across every other component: Addr, Peer and Contact.
package peer

import (
	"fmt"

	"github.com/kadnet/kad/internal/id"
)

// Addr is a transport endpoint: {transport, host, port}. Equality is by all
// three fields (§3).
type Addr struct {
	Transport string
	Host      string
	Port      uint16
}

// Equal reports whether two addresses name the same endpoint.
func (a Addr) Equal(b Addr) bool {
	return a.Transport == b.Transport && a.Host == b.Host && a.Port == b.Port
}

func (a Addr) String() string {
	return fmt.Sprintf("%s://%s:%d", a.Transport, a.Host, a.Port)
}

// Peer is a single identity bound to a single endpoint (§3).
type Peer struct {
	ID   id.ID
	Addr Addr
}

// Contact is an identity with one or more known endpoints, tried in order
// (§3). Addresses is never empty once constructed.
type Contact struct {
	ID        id.ID
	Addresses []Addr
}

// Equal reports whether two contacts share the same identity (address lists
// are allowed to differ; identity is what "same contact" means for
// deduplication purposes throughout §4.3/§4.4).
func (c Contact) Equal(o Contact) bool {
	return c.ID == o.ID
}

// AddrStale pairs an address with its per-address failed-liveness-check
// counter, as stored inside a routing Entry (§3).
type AddrStale struct {
	Addr      Addr
	Staleness int
}
