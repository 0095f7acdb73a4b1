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

package routing

import (
	"github.com/kadnet/kad/internal/id"
	"github.com/kadnet/kad/internal/peer"
)

// Entry is a routing-table record: one identity, its known addresses and
// their per-address staleness counters (§3). |Addresses| <= ADDR_LIMIT and
// each staleness is in [0, MaxStale].
type Entry struct {
	ID        id.ID
	Addresses []peer.AddrStale
}

// hasAddr reports the index of addr in e.Addresses, or -1.
func (e *Entry) hasAddr(a peer.Addr) int {
	for i, as := range e.Addresses {
		if as.Addr.Equal(a) {
			return i
		}
	}
	return -1
}

// Contact renders the entry as a peer.Contact for use by the lookup engine.
func (e *Entry) Contact() peer.Contact {
	addrs := make([]peer.Addr, len(e.Addresses))
	for i, as := range e.Addresses {
		addrs[i] = as.Addr
	}
	return peer.Contact{ID: e.ID, Addresses: addrs}
}

// clone returns a deep copy, so callers reading a snapshot (find, find_alpha,
// dfs) can't mutate table state through it.
func (e *Entry) clone() *Entry {
	cp := &Entry{ID: e.ID, Addresses: make([]peer.AddrStale, len(e.Addresses))}
	copy(cp.Addresses, e.Addresses)
	return cp
}
