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
	"time"

	"github.com/kadnet/kad/internal/id"
	"github.com/kadnet/kad/internal/peer"
)

// bucket is the leaf payload of the trie: an LRU-ordered entry list plus its
// replacement cache (§3). entries[len-1] is most-recently-active; entries[0]
// is the head, the candidate revalidated when a far, full bucket is probed
// (§4.1 step 4). Mirrors the teacher's bucket in p2p/discover/table.go, but
// ordered tail-as-newest (the teacher keeps front-as-newest) to match the
// spec's literal wording ("move the entry to L's tail").
type bucket struct {
	cfg      Config
	entries  []*Entry
	cache    []peer.Peer
	lastSeen time.Time
	ips      *netLimiter
}

func newBucket(cfg Config) *bucket {
	return &bucket{
		cfg: cfg,
		ips: newNetLimiter(DefaultIPv4Subnet, uint(cfg.BucketIPLimit)),
	}
}

func (b *bucket) indexOf(nodeID id.ID) int {
	for i, e := range b.entries {
		if e.ID == nodeID {
			return i
		}
	}
	return -1
}

// moveToTail relocates entries[i] to the back of the list (most recently
// active position).
func (b *bucket) moveToTail(i int) {
	e := b.entries[i]
	b.entries = append(b.entries[:i], b.entries[i+1:]...)
	b.entries = append(b.entries, e)
}

// head returns the least-recently-active entry, or nil if the bucket is
// empty.
func (b *bucket) head() *Entry {
	if len(b.entries) == 0 {
		return nil
	}
	return b.entries[0]
}

// appendEntry adds a brand new entry at the tail if there is room and its
// address clears the per-subnet IP limit. Returns false if the bucket is
// full or the address was rejected by the IP limiter.
func (b *bucket) appendEntry(e *Entry) bool {
	if len(b.entries) >= b.cfg.K {
		return false
	}
	for _, as := range e.Addresses {
		if !b.ips.add(as.Addr.Host) {
			return false
		}
	}
	b.entries = append(b.entries, e)
	return true
}

// removeEntryAt deletes entries[i], releasing its addresses from the IP
// limiter.
func (b *bucket) removeEntryAt(i int) *Entry {
	e := b.entries[i]
	for _, as := range e.Addresses {
		b.ips.remove(as.Addr.Host)
	}
	b.entries = append(b.entries[:i], b.entries[i+1:]...)
	return e
}

// cacheAdd admits p into the replacement cache: move-to-tail if present,
// else append and evict the oldest (front) entry if over REPL_CACHE_SIZE.
func (b *bucket) cacheAdd(p peer.Peer) {
	for i, c := range b.cache {
		if c.ID == p.ID {
			b.cache = append(b.cache[:i], b.cache[i+1:]...)
			b.cache = append(b.cache, p)
			return
		}
	}
	b.cache = append(b.cache, p)
	if len(b.cache) > b.cfg.ReplCacheSize {
		b.cache = b.cache[1:]
	}
}

// cachePopOldest removes and returns the replacement cache's oldest (front)
// member, used when an entry with no surviving addresses must be replaced
// (§4.1-stale).
func (b *bucket) cachePopOldest() (peer.Peer, bool) {
	if len(b.cache) == 0 {
		return peer.Peer{}, false
	}
	p := b.cache[0]
	b.cache = b.cache[1:]
	return p, true
}

// snapshotEntries produces a deep copy of the bucket's entries, used by split to
// redistribute without aliasing the parent's slice.
func (b *bucket) snapshotEntries() []*Entry {
	out := make([]*Entry, len(b.entries))
	for i, e := range b.entries {
		out[i] = e.clone()
	}
	return out
}
