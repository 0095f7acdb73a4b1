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

// Package queue implements the asynchronous request/response tracker of
// §4.2: await/satisfy/pending, NET_TIMEOUT expiry, and multi-address
// failover. It is grounded on the teacher's p2p/discover pending-reply
// bookkeeping (p2p/discover/udp.go's `pending` slice and `loop()` goroutine),
// generalized from devp2p's node-discovery packet set to the spec's
// peer/action/msg_id matching rule.
package queue

import (
	"sync"
	"time"

	"github.com/kadnet/kad/internal/id"
	"github.com/kadnet/kad/internal/peer"
	"github.com/kadnet/kad/internal/wire"
)

// DefaultTimeout is the recognized NET_TIMEOUT (§6).
const DefaultTimeout = 5 * time.Second

// Sender is the minimal transport capability the queue needs to realize
// failover: fire-and-forget delivery of an already-encoded datagram.
type Sender interface {
	Send(addr peer.Addr, datagram []byte) error
}

// OnOK is invoked once a pending entry is satisfied. resolved may differ
// from the originally addressed peer when the reply reveals a different
// sender id (the responder's identity, possibly learned from the reply,
// replaces the pending peer per §4.2).
type OnOK func(resolved peer.Peer, payload map[string]interface{})

// OnTimeout is invoked once a pending entry's lifetime elapses unsatisfied.
type OnTimeout func(p peer.Peer)

type key struct {
	id     id.ID
	action wire.Action
	msgID  uint64
}

type entry struct {
	p         peer.Peer
	onOK      OnOK
	onTimeout OnTimeout
	satisfied bool
	timer     *time.Timer
}

// Queue tracks outstanding requests awaiting a matching response. Timeout
// expiry runs on real wall-clock timers (time.AfterFunc): unlike the routing
// trie's staleness windows, NET_TIMEOUT is short enough that tests simply
// use a small real duration rather than a fake clock.
type Queue struct {
	mu      sync.Mutex
	timeout time.Duration
	pending map[key]*entry
}

// New constructs a Queue with the given per-entry lifetime; timeout defaults
// to DefaultTimeout when 0.
func New(timeout time.Duration) *Queue {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Queue{
		timeout: timeout,
		pending: make(map[key]*entry),
	}
}

// Await registers a pending request per §4.2, keyed on the tuple
// (id, action, msg_id). The peer's address is kept as well: Satisfy matches
// a reply by id **or** addr, and the timeout callback receives the peer.
func (q *Queue) Await(p peer.Peer, action wire.Action, msgID uint64, onOK OnOK, onTimeout OnTimeout) {
	k := key{id: p.ID, action: action, msgID: msgID}

	q.mu.Lock()
	e := &entry{p: p, onOK: onOK, onTimeout: onTimeout}
	q.pending[k] = e
	q.mu.Unlock()

	e.timer = time.AfterFunc(q.timeout, func() {
		q.expire(k)
	})
}

func (q *Queue) expire(k key) {
	q.mu.Lock()
	e, ok := q.pending[k]
	if !ok || e.satisfied {
		q.mu.Unlock()
		return
	}
	delete(q.pending, k)
	q.mu.Unlock()

	if e.onTimeout != nil {
		e.onTimeout(e.p)
	}
}

// Satisfy resolves a pending entry matching action+msgID, where the peer
// matches either by id or by address (§4.2: "matching by (id or addr)").
// The first unsatisfied match wins; on success the resolved peer (which may
// carry an id learned from the reply) replaces the originally-addressed
// peer before on_ok is invoked. Returns false if nothing matched, in which
// case the caller should silently drop the message.
func (q *Queue) Satisfy(candidate peer.Peer, action wire.Action, msgID uint64, payload map[string]interface{}) bool {
	q.mu.Lock()
	var matchKey key
	var e *entry
	for k, cand := range q.pending {
		if k.action != action || k.msgID != msgID || cand.satisfied {
			continue
		}
		if cand.p.ID.Equal(candidate.ID) || cand.p.Addr.Equal(candidate.Addr) {
			matchKey, e = k, cand
			break
		}
	}
	if e == nil {
		q.mu.Unlock()
		return false
	}
	e.satisfied = true
	delete(q.pending, matchKey)
	q.mu.Unlock()

	e.timer.Stop()
	resolved := candidate
	if resolved.ID.IsZero() {
		resolved.ID = e.p.ID
	}
	if e.onOK != nil {
		e.onOK(resolved, payload)
	}
	return true
}

// Pending reports whether a matching unsatisfied entry exists, used to
// deduplicate concurrent queries from the same sender (§4.2).
func (q *Queue) Pending(p peer.Peer, action wire.Action, msgID uint64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for k, e := range q.pending {
		if k.action == action && k.msgID == msgID && !e.satisfied {
			if k.id.Equal(p.ID) || e.p.Addr.Equal(p.Addr) {
				return true
			}
		}
	}
	return false
}

// Len reports the number of outstanding entries, for tests and metrics.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
