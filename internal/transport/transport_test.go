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

package transport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadnet/kad/internal/peer"
)

func TestFakeNetworkDeliversBetweenPeers(t *testing.T) {
	net := NewNetwork()
	a := net.NewFake(peer.Addr{Transport: "fake", Host: "a", Port: 1})
	b := net.NewFake(peer.Addr{Transport: "fake", Host: "b", Port: 2})

	received := make(chan []byte, 1)
	b.SetReceiver(func(from peer.Addr, data []byte) {
		assert.Equal(t, a.LocalAddr(), from)
		received <- data
	})

	require.NoError(t, a.Send(b.LocalAddr(), []byte("hello")))

	select {
	case got := <-received:
		assert.Equal(t, []byte("hello"), got)
	case <-time.After(time.Second):
		t.Fatal("message never delivered")
	}
}

func TestFakeNetworkDropsToUnknownAddress(t *testing.T) {
	net := NewNetwork()
	a := net.NewFake(peer.Addr{Transport: "fake", Host: "a", Port: 1})
	err := a.Send(peer.Addr{Transport: "fake", Host: "ghost", Port: 9}, []byte("x"))
	assert.NoError(t, err)
}

func TestFakeDropAllSilentlyDiscards(t *testing.T) {
	net := NewNetwork()
	a := net.NewFake(peer.Addr{Transport: "fake", Host: "a", Port: 1})
	b := net.NewFake(peer.Addr{Transport: "fake", Host: "b", Port: 2})
	a.SetDropAll(true)

	received := make(chan struct{}, 1)
	b.SetReceiver(func(peer.Addr, []byte) { received <- struct{}{} })

	require.NoError(t, a.Send(b.LocalAddr(), []byte("x")))
	select {
	case <-received:
		t.Fatal("message should have been dropped")
	case <-time.After(50 * time.Millisecond):
	}
}
