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
)

func nodeIDFromInt(n byte) id.ID {
	var b [id.ByteLen]byte
	b[id.ByteLen-1] = n
	out, _ := id.FromBytes(b[:])
	return out
}

func contactFor(n byte) peer.Contact {
	return peer.Contact{
		ID:        nodeIDFromInt(n),
		Addresses: []peer.Addr{{Transport: "fake", Host: "10.0.0.1", Port: uint16(n)}},
	}
}

// fakeNetwork models a small fully-connected graph: every node knows every
// other node's contact, and find_node always returns the whole set minus
// the asked node.
type fakeNetwork struct {
	mu    sync.Mutex
	nodes map[id.ID]peer.Contact
	calls int
}

func newFakeNetwork(n int) *fakeNetwork {
	fn := &fakeNetwork{nodes: make(map[id.ID]peer.Contact)}
	for i := 1; i <= n; i++ {
		c := contactFor(byte(i))
		fn.nodes[c.ID] = c
	}
	return fn
}

func (fn *fakeNetwork) FindNode(ctx context.Context, c peer.Contact, target id.ID) (peer.Peer, []peer.Contact, error) {
	fn.mu.Lock()
	fn.calls++
	fn.mu.Unlock()

	var out []peer.Contact
	for nid, nc := range fn.nodes {
		if nid.Equal(c.ID) {
			continue
		}
		out = append(out, nc)
	}
	return peer.Peer{ID: c.ID, Addr: c.Addresses[0]}, out, nil
}

func TestNodeLookupReturnsClosestExcludingSelf(t *testing.T) {
	fn := newFakeNetwork(10)
	local := nodeIDFromInt(0)
	target := nodeIDFromInt(5)

	seed := []peer.Contact{contactFor(1), contactFor(2), contactFor(3)}
	result := Node(context.Background(), local, target, seed, 3, 5, fn)

	require.LessOrEqual(t, len(result), 5)
	for _, c := range result {
		assert.NotEqual(t, local, c.ID)
	}
	// The target itself, if present in the graph, should be the closest result.
	if len(result) > 0 {
		assert.Equal(t, target, result[0].ID)
	}
}

func TestNodeLookupHandlesEmptySeed(t *testing.T) {
	fn := newFakeNetwork(5)
	result := Node(context.Background(), nodeIDFromInt(0), nodeIDFromInt(1), nil, 3, 5, fn)
	assert.Empty(t, result)
}

type erroringFinder struct{}

func (erroringFinder) FindNode(ctx context.Context, c peer.Contact, target id.ID) (peer.Peer, []peer.Contact, error) {
	return peer.Peer{}, nil, assertErr
}

var assertErr = assertError("timeout")

type assertError string

func (e assertError) Error() string { return string(e) }

func TestNodeLookupTerminatesWhenAllQueriesFail(t *testing.T) {
	result := Node(context.Background(), nodeIDFromInt(0), nodeIDFromInt(9), []peer.Contact{contactFor(1), contactFor(2)}, 3, 5, erroringFinder{})
	assert.Empty(t, result)
}
