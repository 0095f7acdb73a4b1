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
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadnet/kad/internal/id"
	"github.com/kadnet/kad/internal/peer"
)

// fakeClock is a manually-advanced Clock, so lastSeen/staleness assertions
// don't race against wall-clock time.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{now: time.Unix(1700000000, 0)} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}
func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- c.Now().Add(d)
	return ch
}
func (c *fakeClock) NewTicker(d time.Duration) *time.Ticker { return time.NewTicker(d) }

// alwaysResponds and neverResponds are the template-substitution test
// doubles SPEC_FULL.md §10.4 calls for (teacher: table.go's `transport`
// interface is likewise swapped for a test stub).
type alwaysResponds struct{}

func (alwaysResponds) Ping(_ id.ID, addrs []peer.Addr) (bool, peer.Addr) {
	return true, addrs[0]
}

type neverResponds struct{}

func (neverResponds) Ping(id.ID, []peer.Addr) (bool, peer.Addr) { return false, peer.Addr{} }

func testAddr(n int) peer.Addr {
	return peer.Addr{Transport: "udp", Host: "10.0.0.1", Port: uint16(1000 + n)}
}

func idFromInt(n int) id.ID {
	var out id.ID
	out[len(out)-1] = byte(n)
	return out
}

func testCfg(k int) Config {
	cfg := DefaultConfig()
	cfg.K = k
	cfg.BucketIPLimit = k + 10 // don't let the IP limiter interfere with these scenarios
	return cfg
}

// Scenario 1: prefix split. Local id = 1<<159. Insert K peers with ids
// 0..K-1 (all land in the root bucket), then one peer whose id shares the
// high bit with local (nearby prefix "1"). Root must split: left child
// holds the K far peers, right child holds the lone nearby peer.
func TestPrefixSplit(t *testing.T) {
	k := 4
	var local id.ID
	local[0] = 0x80 // 1<<159
	tab := New(local, testCfg(k), newFakeClock(), &clockRandStub{}, alwaysResponds{})

	for i := 0; i < k; i++ {
		tab.Update(peer.Peer{ID: idFromInt(i), Addr: testAddr(i)})
	}
	assert.Equal(t, k, tab.Len())

	var near id.ID
	near[0] = 0xC0 // 3<<158: shares bit 0 with local (=1)
	tab.Update(peer.Peer{ID: near, Addr: testAddr(99)})

	require.True(t, tab.root.isLeaf() == false, "root should have split")
	leftEntries := tab.root.left.bucket.snapshotEntries()
	rightEntries := tab.root.right.bucket.snapshotEntries()
	assert.Len(t, leftEntries, k, "far branch keeps the K original peers")
	assert.Len(t, rightEntries, 1, "near branch holds just the new peer")
	assert.Equal(t, near, rightEntries[0].ID)
}

// Scenario 2: far bucket full, responsive head. Filling a far bucket to K
// and inserting one more must NOT grow the bucket -- the head is pinged,
// responds, and the newcomer only lands in the replacement cache.
func TestFarBucketFullResponsiveHead(t *testing.T) {
	k := 4
	var local id.ID
	local[0] = 0x80
	tab := New(local, testCfg(k), newFakeClock(), &clockRandStub{}, alwaysResponds{})

	// ids with high bit 0 all land in a bucket that never matches local's
	// high bit, so it's "far" and will never split.
	for i := 0; i < k; i++ {
		tab.Update(peer.Peer{ID: idFromInt(i), Addr: testAddr(i)})
	}
	assert.Equal(t, k, tab.Len())

	tab.Update(peer.Peer{ID: idFromInt(100), Addr: testAddr(100)})

	assert.Equal(t, k, tab.Len(), "bucket size must remain K")
	assert.Nil(t, tab.Find(idFromInt(100)))
}

// Scenario 3: far bucket full, unresponsive head. Repeatedly inserting the
// same newcomer while the head never responds must eventually evict the
// head (all its addresses reach MaxStale) and promote the oldest
// replacement-cache peer in its place.
func TestFarBucketFullUnresponsiveHeadEvictsHead(t *testing.T) {
	k := 4
	var local id.ID
	local[0] = 0x80
	tab := New(local, testCfg(k), newFakeClock(), &clockRandStub{}, neverResponds{})

	for i := 0; i < k; i++ {
		tab.Update(peer.Peer{ID: idFromInt(i), Addr: testAddr(i)})
	}
	headID := idFromInt(0) // bucket[0] is the LRU head after sequential inserts

	for attempt := 0; attempt < tab.cfg.MaxStale+2; attempt++ {
		tab.Update(peer.Peer{ID: idFromInt(200), Addr: testAddr(200)})
	}

	assert.Nil(t, tab.Find(headID), "head must be evicted after repeated failures")
	promoted := tab.Find(idFromInt(200))
	require.NotNil(t, promoted, "promoted replacement must now be a real entry")
	assert.Equal(t, idFromInt(200), promoted.ID)
}

func TestStaleIncrementsThenEvictsAddress(t *testing.T) {
	k := 4
	tab := New(idFromInt(255), testCfg(k), newFakeClock(), &clockRandStub{}, neverResponds{})
	p := peer.Peer{ID: idFromInt(1), Addr: testAddr(1)}
	tab.Update(p)

	for i := 0; i < tab.cfg.MaxStale; i++ {
		tab.Stale(p)
		e := tab.Find(p.ID)
		require.NotNil(t, e)
	}
	tab.Stale(p) // one more: exceeds MaxStale
	assert.Nil(t, tab.Find(p.ID))
}

func TestRespondedPromotesAndHeals(t *testing.T) {
	tab := New(idFromInt(255), testCfg(4), newFakeClock(), &clockRandStub{}, neverResponds{})
	p := peer.Peer{ID: idFromInt(1), Addr: testAddr(1)}
	tab.Update(p)
	tab.Stale(p)
	e := tab.Find(p.ID)
	require.NotNil(t, e)
	assert.Equal(t, 1, e.Addresses[0].Staleness)

	tab.Responded(p)
	e = tab.Find(p.ID)
	require.NotNil(t, e)
	assert.Equal(t, 0, e.Addresses[0].Staleness)
}

func TestFindAlphaBorrowsFromSibling(t *testing.T) {
	var local id.ID
	local[0] = 0x80
	cfg := testCfg(4)
	cfg.Alpha = 3
	tab := New(local, cfg, newFakeClock(), &clockRandStub{}, alwaysResponds{})

	var near id.ID
	near[0] = 0xC0
	tab.Update(peer.Peer{ID: near, Addr: testAddr(1)})
	for i := 0; i < 2; i++ {
		tab.Update(peer.Peer{ID: idFromInt(i), Addr: testAddr(i)})
	}
	// Overfill the far (high bit 0) side: the root splits, leaving near
	// alone in its leaf and the far entries in the sibling leaf.
	for i := 2; i < 6; i++ {
		var far id.ID
		far[0] = 0x00
		far[1] = byte(i)
		tab.Update(peer.Peer{ID: far, Addr: testAddr(i)})
	}

	got := tab.FindAlpha(near)
	assert.Len(t, got, cfg.Alpha, "near's leaf holds one entry; the rest come from the sibling")
}

// clockRandStub is a trivial deterministic Rand for tests that don't care
// about randomness quality.
type clockRandStub struct{ n byte }

func (c *clockRandStub) Read(p []byte) (int, error) {
	for i := range p {
		c.n++
		p[i] = c.n
	}
	return len(p), nil
}
