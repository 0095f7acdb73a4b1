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

package lookup

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadnet/kad/internal/id"
	"github.com/kadnet/kad/internal/peer"
	"github.com/kadnet/kad/internal/record"
)

// scriptedFinder returns a fixed KV per contact id, or forwards contacts
// when the id has no scripted value.
type scriptedFinder struct {
	mu       sync.Mutex
	values   map[id.ID]record.KV
	contacts map[id.ID][]peer.Contact
	calls    map[id.ID]int
}

func newScriptedFinder() *scriptedFinder {
	return &scriptedFinder{
		values:   make(map[id.ID]record.KV),
		contacts: make(map[id.ID][]peer.Contact),
		calls:    make(map[id.ID]int),
	}
}

func (s *scriptedFinder) FindValue(ctx context.Context, c peer.Contact, key id.ID) (peer.Peer, *record.KV, []peer.Contact, error) {
	s.mu.Lock()
	s.calls[c.ID]++
	s.mu.Unlock()

	responder := peer.Peer{ID: c.ID, Addr: c.Addresses[0]}
	if kv, ok := s.values[c.ID]; ok {
		return responder, &kv, nil, nil
	}
	return responder, nil, s.contacts[c.ID], nil
}

func alwaysValid(record.KV) bool { return true }

func TestValueLookupReturnsLocalHitWhenQuorumBelowTwo(t *testing.T) {
	key := nodeIDFromInt(1)
	local := func(k id.ID) (record.KV, bool) {
		return record.KV{Key: k, Timestamp: 1}, true
	}
	res := Value(context.Background(), nodeIDFromInt(0), key, 1, nil, 3, 1, local, newScriptedFinder(), alwaysValid, nil)
	assert.True(t, res.Found)
	assert.Equal(t, 1, res.Count)
}

func TestValueLookupPicksNewerTimestampAsWinner(t *testing.T) {
	key := nodeIDFromInt(1)
	finder := newScriptedFinder()
	a, b := contactFor(1), contactFor(2)
	finder.values[a.ID] = record.KV{Key: key, Value: []byte("old"), Timestamp: 10, Signature: []byte("a")}
	finder.values[b.ID] = record.KV{Key: key, Value: []byte("new"), Timestamp: 20, Signature: []byte("b")}

	noLocal := func(id.ID) (record.KV, bool) { return record.KV{}, false }

	var stored []record.KV
	var mu sync.Mutex
	storeFn := func(ctx context.Context, c peer.Contact, kv record.KV) {
		mu.Lock()
		stored = append(stored, kv)
		mu.Unlock()
	}

	res := Value(context.Background(), nodeIDFromInt(0), key, 2, []peer.Contact{a, b}, 3, 1, noLocal, finder, alwaysValid, storeFn)
	require.True(t, res.Found)
	assert.Equal(t, []byte("new"), res.Best.Value)
	assert.Equal(t, 2, res.Count)
}

func TestValueLookupFollowsContactChain(t *testing.T) {
	key := nodeIDFromInt(9)
	finder := newScriptedFinder()
	a, b := contactFor(1), contactFor(2)
	finder.contacts[a.ID] = []peer.Contact{b}
	finder.values[b.ID] = record.KV{Key: key, Value: []byte("found"), Timestamp: 5, Signature: []byte("s")}

	noLocal := func(id.ID) (record.KV, bool) { return record.KV{}, false }
	res := Value(context.Background(), nodeIDFromInt(0), key, 1, []peer.Contact{a}, 3, 1, noLocal, finder, alwaysValid, nil)
	require.True(t, res.Found)
	assert.Equal(t, []byte("found"), res.Best.Value)
}

func TestValueLookupDisjointPathsShareClaimSet(t *testing.T) {
	key := nodeIDFromInt(1)
	finder := newScriptedFinder()
	contacts := []peer.Contact{contactFor(1), contactFor(2), contactFor(3), contactFor(4)}
	for _, c := range contacts {
		finder.values[c.ID] = record.KV{Key: key, Value: []byte("v"), Timestamp: 1, Signature: []byte("s")}
	}

	noLocal := func(id.ID) (record.KV, bool) { return record.KV{}, false }
	res := Value(context.Background(), nodeIDFromInt(0), key, 4, contacts, 3, 2, noLocal, finder, alwaysValid, nil)
	assert.True(t, res.Found)

	finder.mu.Lock()
	defer finder.mu.Unlock()
	for _, c := range contacts {
		assert.Equal(t, 1, finder.calls[c.ID], "each peer should be queried on exactly one disjoint path")
	}
}
