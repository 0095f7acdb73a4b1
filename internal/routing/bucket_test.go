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
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kadnet/kad/internal/id"
	"github.com/kadnet/kad/internal/peer"
)

// P2: no address list exceeds ADDR_LIMIT, even when a peer is observed from
// more endpoints than that.
func TestAddrLimitCapsAddressesPerEntry(t *testing.T) {
	cfg := testCfg(4)
	tab := New(idFromInt(255), cfg, newFakeClock(), &clockRandStub{}, alwaysResponds{})

	target := idFromInt(1)
	for i := 0; i < cfg.AddrLimit+3; i++ {
		tab.Update(peer.Peer{ID: target, Addr: testAddr(i)})
	}
	e := tab.Find(target)
	assert.LessOrEqual(t, len(e.Addresses), cfg.AddrLimit)
}

// P2: the replacement cache never exceeds REPL_CACHE_SIZE.
func TestReplacementCacheIsBounded(t *testing.T) {
	cfg := testCfg(2)
	cfg.ReplCacheSize = 3
	tab := New(idFromInt(255), cfg, newFakeClock(), &clockRandStub{}, alwaysResponds{})

	// Fill the (far, since local id's low byte is 255 / high byte 0) bucket
	// to K so every subsequent insert lands in the replacement cache.
	for i := 0; i < cfg.K; i++ {
		tab.Update(peer.Peer{ID: idFromInt(i), Addr: testAddr(i)})
	}
	for i := 10; i < 10+cfg.ReplCacheSize+5; i++ {
		tab.Update(peer.Peer{ID: idFromInt(i), Addr: testAddr(i)})
	}

	leaf := tab.findLeaf(idFromInt(0))
	assert.LessOrEqual(t, len(leaf.bucket.cache), cfg.ReplCacheSize)
}

// P2 / §4.1 contract: Dfs visits every non-empty leaf exactly once.
func TestDfsVisitsEveryNonEmptyLeaf(t *testing.T) {
	var local id.ID
	local[0] = 0x80
	cfg := testCfg(4)
	tab := New(local, cfg, newFakeClock(), &clockRandStub{}, alwaysResponds{})

	for i := 0; i < cfg.K; i++ {
		tab.Update(peer.Peer{ID: idFromInt(i), Addr: testAddr(i)})
	}
	var near id.ID
	near[0] = 0xC0
	tab.Update(peer.Peer{ID: near, Addr: testAddr(99)})

	total := 0
	tab.Dfs(func(_ id.ID, _ int, entries []*Entry) {
		total += len(entries)
	})
	assert.Equal(t, cfg.K+1, total)
}
