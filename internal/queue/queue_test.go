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

package queue

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadnet/kad/internal/id"
	"github.com/kadnet/kad/internal/peer"
	"github.com/kadnet/kad/internal/wire"
)

const testTimeout = 30 * time.Millisecond

func idFromInt(n byte) id.ID {
	var b [id.ByteLen]byte
	b[id.ByteLen-1] = n
	out, _ := id.FromBytes(b[:])
	return out
}

func testAddr(port uint16) peer.Addr {
	return peer.Addr{Transport: "fake", Host: "10.0.0.1", Port: port}
}

type recorder struct {
	mu       sync.Mutex
	oks      []peer.Peer
	timeouts []peer.Peer
}

func (r *recorder) ok() OnOK {
	return func(p peer.Peer, _ map[string]interface{}) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.oks = append(r.oks, p)
	}
}

func (r *recorder) timeout() OnTimeout {
	return func(p peer.Peer) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.timeouts = append(r.timeouts, p)
	}
}

func (r *recorder) snapshot() (oks, timeouts int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.oks), len(r.timeouts)
}

func TestSatisfyMatchesByIDAndInvokesOnOK(t *testing.T) {
	q := New(testTimeout)
	p := peer.Peer{ID: idFromInt(1), Addr: testAddr(1)}
	rec := &recorder{}

	q.Await(p, wire.ActionFindNode, 7, rec.ok(), rec.timeout())
	ok := q.Satisfy(p, wire.ActionFindNode, 7, map[string]interface{}{"b": "x"})
	require.True(t, ok)

	oks, timeouts := rec.snapshot()
	assert.Equal(t, 1, oks)
	assert.Equal(t, 0, timeouts)
	assert.Equal(t, 0, q.Len())
}

func TestSatisfyMatchesByAddrWhenIDDiffers(t *testing.T) {
	q := New(testTimeout)
	sent := peer.Peer{ID: id.Zero, Addr: testAddr(2)}
	rec := &recorder{}
	q.Await(sent, wire.ActionPing, 1, rec.ok(), rec.timeout())

	responder := peer.Peer{ID: idFromInt(9), Addr: testAddr(2)}
	ok := q.Satisfy(responder, wire.ActionPing, 1, nil)
	require.True(t, ok)

	oks, _ := rec.snapshot()
	assert.Equal(t, 1, oks)
}

func TestSatisfyDropsUnmatchedMessage(t *testing.T) {
	q := New(testTimeout)
	ok := q.Satisfy(peer.Peer{ID: idFromInt(1)}, wire.ActionFindNode, 99, nil)
	assert.False(t, ok)
}

func TestSatisfyOnlyFiresOnce(t *testing.T) {
	q := New(testTimeout)
	p := peer.Peer{ID: idFromInt(3), Addr: testAddr(3)}
	rec := &recorder{}
	q.Await(p, wire.ActionStore, 5, rec.ok(), rec.timeout())

	assert.True(t, q.Satisfy(p, wire.ActionStore, 5, nil))
	assert.False(t, q.Satisfy(p, wire.ActionStore, 5, nil))

	oks, _ := rec.snapshot()
	assert.Equal(t, 1, oks)
}

func TestTimeoutFiresWhenUnsatisfied(t *testing.T) {
	q := New(testTimeout)
	p := peer.Peer{ID: idFromInt(4), Addr: testAddr(4)}
	rec := &recorder{}
	q.Await(p, wire.ActionFindValue, 1, rec.ok(), rec.timeout())

	assert.Eventually(t, func() bool {
		_, timeouts := rec.snapshot()
		return timeouts == 1
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, 0, q.Len())
}

func TestPendingDetectsDuplicateQuery(t *testing.T) {
	q := New(testTimeout)
	p := peer.Peer{ID: idFromInt(5), Addr: testAddr(5)}
	assert.False(t, q.Pending(p, wire.ActionIdentify, 1))

	q.Await(p, wire.ActionIdentify, 1, nil, nil)
	assert.True(t, q.Pending(p, wire.ActionIdentify, 1))
}

func TestSendToContactFailsOverThroughAddressList(t *testing.T) {
	q := New(testTimeout)
	target := idFromInt(6)
	contact := peer.Contact{ID: target, Addresses: []peer.Addr{testAddr(10), testAddr(11), testAddr(12)}}

	var mu sync.Mutex
	var sentTo []peer.Addr
	sender := senderFunc(func(addr peer.Addr, _ []byte) error {
		mu.Lock()
		sentTo = append(sentTo, addr)
		mu.Unlock()
		return nil
	})

	rec := &recorder{}
	err := SendToContact(q, sender, contact, wire.ActionPing, 1, []byte("hi"), rec.ok(), rec.timeout())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, timeouts := rec.snapshot()
		return timeouts == 1
	}, 2*time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []peer.Addr{testAddr(10), testAddr(11), testAddr(12)}, sentTo)
}

func TestSendToContactStopsFailoverOnSuccess(t *testing.T) {
	q := New(testTimeout)
	target := idFromInt(7)
	contact := peer.Contact{ID: target, Addresses: []peer.Addr{testAddr(20), testAddr(21)}}

	var mu sync.Mutex
	var sendCount int
	sender := senderFunc(func(addr peer.Addr, _ []byte) error {
		mu.Lock()
		sendCount++
		mu.Unlock()
		go func() {
			q.Satisfy(peer.Peer{ID: target, Addr: addr}, wire.ActionFindNode, 2, map[string]interface{}{})
		}()
		return nil
	})

	rec := &recorder{}
	err := SendToContact(q, sender, contact, wire.ActionFindNode, 2, []byte("hi"), rec.ok(), rec.timeout())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		oks, _ := rec.snapshot()
		return oks == 1
	}, 2*time.Second, 5*time.Millisecond)

	time.Sleep(testTimeout * 2)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, sendCount)
}

type senderFunc func(addr peer.Addr, datagram []byte) error

func (f senderFunc) Send(addr peer.Addr, datagram []byte) error { return f(addr, datagram) }
