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

package node

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadnet/kad/internal/clock"
	"github.com/kadnet/kad/internal/id"
	"github.com/kadnet/kad/internal/identity"
	"github.com/kadnet/kad/internal/peer"
	"github.com/kadnet/kad/internal/routing"
	"github.com/kadnet/kad/internal/transport"
	"github.com/kadnet/kad/internal/wire"
)

// testCluster wires N in-process nodes together over one fake network,
// each addressed at 127.0.0.1:<9000+i>, and has every node bootstrap into
// every other node's routing table directly (skipping a real bootstrap
// lookup, which is orthogonal to what these tests exercise).
type testCluster struct {
	nodes []*Node
	net   *transport.Network
}

func newTestCluster(t *testing.T, n int) *testCluster {
	t.Helper()
	net := transport.NewNetwork()
	cfg := routing.Config{K: 8, Alpha: 3, AddrLimit: 4, MaxStale: 3, ReplCacheSize: 4, RefreshInterval: time.Hour, RefreshTime: time.Hour, BucketIPLimit: 8}

	cl := &testCluster{net: net}
	for i := 0; i < n; i++ {
		kp, err := identity.Generate()
		require.NoError(t, err)
		ks, err := identity.New(afero.NewMemMapFs(), "/keys")
		require.NoError(t, err)

		addr := peer.Addr{Transport: "fake", Host: "127.0.0.1", Port: uint16(9000 + i)}
		fake := net.NewFake(addr)

		nd := New(NodeConfig{
			KeyPair:   kp,
			SelfAddr:  addr,
			Clock:     clock.Real{},
			Rand:      &clock.CryptoRand{},
			Cfg:       cfg,
			Keystore:  ks,
			Transport: fake,
		})
		cl.nodes = append(cl.nodes, nd)
	}

	// Cross-trust every pair so the identify gate never blocks these
	// tests; bootstrapping trust/dialing is outside this package's scope.
	for _, a := range cl.nodes {
		for _, b := range cl.nodes {
			if a == b {
				continue
			}
			a.ks.Trust(b.localID, b.kp.PubKeyBytes())
			a.table.Update(peer.Peer{ID: b.localID, Addr: b.selfAddr})
		}
	}
	return cl
}

func TestPingReportsRespondingAddress(t *testing.T) {
	cl := newTestCluster(t, 2)
	a, b := cl.nodes[0], cl.nodes[1]

	ok, addr := a.Ping(b.localID, []peer.Addr{b.selfAddr})
	assert.True(t, ok)
	assert.Equal(t, b.selfAddr, addr)
}

func TestFindNodeReturnsBucketContents(t *testing.T) {
	cl := newTestCluster(t, 4)
	a := cl.nodes[0]
	target := cl.nodes[1].localID

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	responder, contacts, err := a.findNode(ctx, peer.Contact{ID: cl.nodes[1].localID, Addresses: []peer.Addr{cl.nodes[1].selfAddr}}, target)
	require.NoError(t, err)
	assert.Equal(t, cl.nodes[1].localID, responder.ID)
	assert.NotEmpty(t, contacts)
}

func TestPutThenGetRoundTrips(t *testing.T) {
	cl := newTestCluster(t, 5)
	writer := cl.nodes[0]

	key, err := id.Random((&clock.CryptoRand{}).Read)
	require.NoError(t, err)
	value := []byte("hello kad")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = writer.Put(ctx, key, value)
	require.NoError(t, err)

	for _, c := range cl.nodes[1:] {
		kv, ok := c.records.Get(key)
		if ok {
			assert.Equal(t, value, kv.Value)
		}
	}

	reader := cl.nodes[1]
	result := reader.Get(ctx, key, 1, 1)
	require.True(t, result.Found)
	assert.Equal(t, value, result.Best.Value)
}

func TestStoreRefusesDuplicateKey(t *testing.T) {
	cl := newTestCluster(t, 2)
	a, b := cl.nodes[0], cl.nodes[1]

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	key, err := id.Random((&clock.CryptoRand{}).Read)
	require.NoError(t, err)
	kv1, err := a.Put(ctx, key, []byte("first"))
	require.NoError(t, err)

	// Directly re-send the same key to b; it must refuse the duplicate.
	kv2 := kv1
	kv2.Value = []byte("second")
	b.records.Insert(kv1)
	status := b.acceptStore(kv2)
	assert.Equal(t, wire.StoreBad, status)
	stored, ok := b.records.Get(key)
	require.True(t, ok)
	assert.Equal(t, []byte("first"), stored.Value)
}

func TestIdentifyGateBlocksUntrustedSender(t *testing.T) {
	net := transport.NewNetwork()
	cfg := routing.Config{K: 8, Alpha: 3, AddrLimit: 4, MaxStale: 3, ReplCacheSize: 4, RefreshInterval: time.Hour, RefreshTime: time.Hour, BucketIPLimit: 8}

	kpA, err := identity.Generate()
	require.NoError(t, err)
	ksA, err := identity.New(afero.NewMemMapFs(), "/a")
	require.NoError(t, err)
	addrA := peer.Addr{Transport: "fake", Host: "127.0.0.1", Port: 9100}
	fakeA := net.NewFake(addrA)
	a := New(NodeConfig{KeyPair: kpA, SelfAddr: addrA, Clock: clock.Real{}, Rand: &clock.CryptoRand{}, Cfg: cfg, Keystore: ksA, Transport: fakeA})

	kpB, err := identity.Generate()
	require.NoError(t, err)
	ksB, err := identity.New(afero.NewMemMapFs(), "/b")
	require.NoError(t, err)
	addrB := peer.Addr{Transport: "fake", Host: "127.0.0.1", Port: 9101}
	fakeB := net.NewFake(addrB)
	b := New(NodeConfig{KeyPair: kpB, SelfAddr: addrB, Clock: clock.Real{}, Rand: &clock.CryptoRand{}, Cfg: cfg, Keystore: ksB, Transport: fakeB})

	// a pings b without ever having been identified; b must gate, issue its
	// own identify challenge back to a, and only then answer the ping.
	assert.False(t, b.ks.Known(a.localID))
	ok, _ := a.Ping(b.localID, []peer.Addr{addrB})
	assert.True(t, ok)

	waitFor(t, time.Second, func() bool { return b.ks.Known(a.localID) })
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(fmt.Sprintf("condition not met within %v", timeout))
}
