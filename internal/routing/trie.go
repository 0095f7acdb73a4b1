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

// Package routing implements the XOR trie routing table: §4.1 of the spec.
// Structurally this generalizes the teacher's p2p/discover.Table (a flat
// array of 161 buckets indexed by log-distance) into an explicit binary
// trie that only grows where the local id's own branch needs the extra
// resolution, per spec.md's trie design (§3 TrieNode, §9 "trie cycles").
package routing

import (
	"sort"
	"sync"
	"time"

	"github.com/kadnet/kad/internal/clock"
	"github.com/kadnet/kad/internal/id"
	"github.com/kadnet/kad/internal/peer"
)

// LivenessChecker probes a candidate's addresses in order and reports
// whether any replied, along with which address did. This is the liveness
// check §4.1 step 4 invokes on a far, full bucket's head entry.
type LivenessChecker interface {
	Ping(id id.ID, addrs []peer.Addr) (ok bool, respondedAddr peer.Addr)
}

// trieNode is either an internal node (left/right non-nil, bucket nil) or a
// leaf (bucket non-nil). prefix/cutoff identify the bit range the leaf is
// responsible for (§3). parent enables the sibling lookup find_alpha needs
// without ever re-entering a child (§9: "Trie cycles... None by
// construction").
type trieNode struct {
	parent      *trieNode
	left, right *trieNode
	bucket      *bucket
	prefix      id.ID
	cutoff      int
}

func (n *trieNode) isLeaf() bool { return n.bucket != nil }

func (n *trieNode) sibling() *trieNode {
	if n.parent == nil {
		return nil
	}
	if n.parent.left == n {
		return n.parent.right
	}
	return n.parent.left
}

// Table is the routing table: the trie plus the local identity and the
// collaborators (clock, rng, liveness checker) its policies depend on. The
// orchestrator shares ownership of *Table across goroutines (§3's "shared
// ownership" note); callers hold it behind a single pointer, never a copy.
type Table struct {
	mu   sync.RWMutex
	root *trieNode

	localID  id.ID
	cfg      Config
	clock    clock.Clock
	rand     clock.Rand
	liveness LivenessChecker
}

// New constructs an empty table with a single root leaf spanning the whole
// id space (§4.1 Initialization).
func New(localID id.ID, cfg Config, c clock.Clock, r clock.Rand, lc LivenessChecker) *Table {
	return &Table{
		root:     &trieNode{bucket: newBucket(cfg)},
		localID:  localID,
		cfg:      cfg,
		clock:    c,
		rand:     r,
		liveness: lc,
	}
}

func (t *Table) findLeaf(target id.ID) *trieNode {
	n := t.root
	for !n.isLeaf() {
		if target.Bit(n.cutoff) == 0 {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n
}

// FindBucket returns the leaf bucket's entries whose prefix matches id
// (§4.1 contract); the slice is a defensive copy.
func (t *Table) FindBucket(target id.ID) []*Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.findLeaf(target).bucket.snapshotEntries()
}

// Find returns the full Entry for id, or nil (§4.1 contract).
func (t *Table) Find(target id.ID) *Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	leaf := t.findLeaf(target)
	if i := leaf.bucket.indexOf(target); i >= 0 {
		return leaf.bucket.entries[i].clone()
	}
	return nil
}

// FindAlpha returns up to Alpha entries closest to target, drawn from the
// target's leaf and, if that leaf is short, its sibling leaf -- never by
// descending further (§4.1 contract).
func (t *Table) FindAlpha(target id.ID) []*Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	leaf := t.findLeaf(target)
	all := leaf.bucket.snapshotEntries()
	if len(all) < t.cfg.Alpha {
		if sib := leaf.sibling(); sib != nil && sib.isLeaf() {
			all = append(all, sib.bucket.snapshotEntries()...)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		return id.Xor(all[i].ID, target).Less(id.Xor(all[j].ID, target))
	})
	if len(all) > t.cfg.Alpha {
		all = all[:t.cfg.Alpha]
	}
	return all
}

// Dfs visits every non-empty leaf bucket in the trie (§4.1 contract).
func (t *Table) Dfs(fn func(prefix id.ID, cutoff int, entries []*Entry)) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var walk func(n *trieNode)
	walk = func(n *trieNode) {
		if n.isLeaf() {
			if len(n.bucket.entries) > 0 {
				fn(n.prefix, n.cutoff, n.bucket.snapshotEntries())
			}
			return
		}
		walk(n.left)
		walk(n.right)
	}
	walk(t.root)
}

// Update integrates observation of a live peer into the table, running the
// split policy of §4.1.
func (t *Table) Update(p peer.Peer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.update(p)
}

func (t *Table) update(p peer.Peer) {
	if p.ID == t.localID {
		return
	}
	leaf := t.findLeaf(p.ID)
	b := leaf.bucket

	// Step 1: already present -- add the address, move to tail.
	if i := b.indexOf(p.ID); i >= 0 {
		e := b.entries[i]
		if e.hasAddr(p.Addr) == -1 && len(e.Addresses) < t.cfg.AddrLimit {
			e.Addresses = append(e.Addresses, peer.AddrStale{Addr: p.Addr})
		}
		b.moveToTail(i)
		b.lastSeen = t.clock.Now()
		return
	}

	// Step 2: room in the bucket -- append.
	if len(b.entries) < t.cfg.K {
		e := &Entry{ID: p.ID, Addresses: []peer.AddrStale{{Addr: p.Addr}}}
		if b.appendEntry(e) {
			b.lastSeen = t.clock.Now()
		}
		return
	}

	// Step 3: bucket full, but it's on the local node's own branch -- split.
	if id.MatchesPrefix(t.localID, leaf.prefix, leaf.cutoff) {
		t.splitLeaf(leaf)
		t.update(p) // retry; recursion is bounded by id.Width
		return
	}

	// Step 4: far bucket, full. Probe the head's addresses, in order, and
	// admit the newcomer to the replacement cache independently of the
	// probe's outcome. The probe itself must run without t.mu held -- a
	// liveness check is a suspension point (§5) -- mirroring the teacher's
	// tab.add()/tab.bond() split (table.go: bucket bookkeeping is mutex
	// protected, the ping/pong itself is not).
	head := b.head()
	var headID id.ID
	var headAddrs []peer.Addr
	if head != nil {
		headID = head.ID
		headAddrs = make([]peer.Addr, len(head.Addresses))
		for i, as := range head.Addresses {
			headAddrs[i] = as.Addr
		}
	}
	b.cacheAdd(p)

	if head != nil && t.liveness != nil {
		t.mu.Unlock()
		ok, addr := t.liveness.Ping(headID, headAddrs)
		t.mu.Lock()
		if ok {
			t.responded(peer.Peer{ID: headID, Addr: addr})
		} else {
			t.stale(peer.Peer{ID: headID, Addr: headAddrs[0]})
		}
	}
}

// splitLeaf divides a full leaf on the local node's branch into two leaves
// at bit leaf.cutoff, redistributing entries by that bit and truncating
// each child to K (open question (b): truncation after redistribution is
// required to preserve invariant P2). The caller must hold t.mu for
// writing.
func (t *Table) splitLeaf(leaf *trieNode) {
	d := leaf.cutoff
	left := &trieNode{parent: leaf.parent, prefix: id.SetBit(leaf.prefix, d, 0), cutoff: d + 1, bucket: newBucket(t.cfg)}
	right := &trieNode{parent: leaf.parent, prefix: id.SetBit(leaf.prefix, d, 1), cutoff: d + 1, bucket: newBucket(t.cfg)}

	for _, e := range leaf.bucket.snapshotEntries() {
		if e.ID.Bit(d) == 0 {
			left.bucket.appendEntry(e)
		} else {
			right.bucket.appendEntry(e)
		}
	}
	// Truncate to K; appendEntry already refuses past K, so this is a no-op
	// in practice but kept explicit to document the invariant.
	for len(left.bucket.entries) > t.cfg.K {
		left.bucket.removeEntryAt(len(left.bucket.entries) - 1)
	}
	for len(right.bucket.entries) > t.cfg.K {
		right.bucket.removeEntryAt(len(right.bucket.entries) - 1)
	}

	leaf.bucket = nil
	leaf.left, leaf.right = left, right
}

// Responded locates the entry by id (open question (a): equality, not
// truthiness) and integrates a successful reply (§4.1-responded).
func (t *Table) Responded(p peer.Peer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.responded(p)
}

func (t *Table) responded(p peer.Peer) {
	leaf := t.findLeaf(p.ID)
	b := leaf.bucket
	i := b.indexOf(p.ID)
	if i < 0 {
		return
	}
	e := b.entries[i]
	if ai := e.hasAddr(p.Addr); ai == -1 {
		if len(e.Addresses) < t.cfg.AddrLimit {
			e.Addresses = append(e.Addresses, peer.AddrStale{Addr: p.Addr})
		}
	} else if e.Addresses[ai].Staleness > 0 {
		e.Addresses[ai].Staleness--
	}
	b.moveToTail(i)
	b.lastSeen = t.clock.Now()
}

// Stale locates the entry and address and records a failed interaction,
// evicting the address past MaxStale and, if the entry then has no
// addresses left, either promoting a replacement-cache peer into its place
// or erasing the entry outright (§4.1-stale).
func (t *Table) Stale(p peer.Peer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stale(p)
}

func (t *Table) stale(p peer.Peer) {
	leaf := t.findLeaf(p.ID)
	b := leaf.bucket
	i := b.indexOf(p.ID)
	if i < 0 {
		return
	}
	e := b.entries[i]
	ai := e.hasAddr(p.Addr)
	if ai == -1 {
		b.lastSeen = t.clock.Now()
		return
	}
	e.Addresses[ai].Staleness++
	if e.Addresses[ai].Staleness > t.cfg.MaxStale {
		b.ips.remove(e.Addresses[ai].Addr.Host)
		e.Addresses = append(e.Addresses[:ai], e.Addresses[ai+1:]...)
	}
	if len(e.Addresses) == 0 {
		b.removeEntryAt(i)
		if repl, ok := b.cachePopOldest(); ok {
			newE := &Entry{ID: repl.ID, Addresses: []peer.AddrStale{{Addr: repl.Addr}}}
			b.appendEntry(newE)
		}
	}
	b.lastSeen = t.clock.Now()
}

// BucketRef identifies a leaf for the refresh loop (§4.6): its prefix and
// depth, and how long it has sat untouched.
type BucketRef struct {
	Prefix   id.ID
	Cutoff   int
	LastSeen time.Time
}

// StaleBuckets lists every leaf whose lastSeen predates the cutoff.
func (t *Table) StaleBuckets(olderThan time.Time) []BucketRef {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []BucketRef
	var walk func(n *trieNode)
	walk = func(n *trieNode) {
		if n.isLeaf() {
			if n.bucket.lastSeen.Before(olderThan) {
				out = append(out, BucketRef{Prefix: n.prefix, Cutoff: n.cutoff, LastSeen: n.bucket.lastSeen})
			}
			return
		}
		walk(n.left)
		walk(n.right)
	}
	walk(t.root)
	return out
}

// RandomTargetFor generates a random id inside ref's prefix range, for the
// refresh loop to look up (§4.1-refresh).
func (t *Table) RandomTargetFor(ref BucketRef) (id.ID, error) {
	return id.RandomWithPrefix(ref.Prefix, ref.Cutoff, t.rand.Read)
}

// ReplaceBucket overwrites the leaf named by ref with up to K entries built
// from contacts (each given a single address), and refreshes its lastSeen
// (§4.1-refresh: "Replace the bucket contents with the (up to K closest)
// resulting entries, each with a single address").
func (t *Table) ReplaceBucket(ref BucketRef, contacts []peer.Contact) {
	t.mu.Lock()
	defer t.mu.Unlock()

	leaf := t.findLeafByRef(ref)
	if leaf == nil {
		return
	}
	for _, e := range leaf.bucket.entries {
		for _, as := range e.Addresses {
			leaf.bucket.ips.remove(as.Addr.Host)
		}
	}
	leaf.bucket.entries = nil
	n := len(contacts)
	if n > t.cfg.K {
		n = t.cfg.K
	}
	for _, c := range contacts[:n] {
		if len(c.Addresses) == 0 {
			continue
		}
		leaf.bucket.appendEntry(&Entry{ID: c.ID, Addresses: []peer.AddrStale{{Addr: c.Addresses[0]}}})
	}
	leaf.bucket.lastSeen = t.clock.Now()
}

// findLeafByRef walks to the leaf uniquely identified by (prefix, cutoff).
// Because the trie only ever splits on the local node's branch, a leaf
// created for a BucketRef snapshot may itself have since split further; in
// that (rare, racy) case ReplaceBucket is a no-op rather than guessing which
// descendant to overwrite.
func (t *Table) findLeafByRef(ref BucketRef) *trieNode {
	n := t.root
	for i := 0; i < ref.Cutoff; i++ {
		if n.isLeaf() {
			return nil
		}
		if ref.Prefix.Bit(i) == 0 {
			n = n.left
		} else {
			n = n.right
		}
	}
	if !n.isLeaf() {
		return nil
	}
	return n
}

// Len returns the total number of entries across every bucket, for metrics
// and tests.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	var walk func(*trieNode)
	walk = func(node *trieNode) {
		if node.isLeaf() {
			n += len(node.bucket.entries)
			return
		}
		walk(node.left)
		walk(node.right)
	}
	walk(t.root)
	return n
}
