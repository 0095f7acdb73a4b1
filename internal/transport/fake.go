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
	"sync"

	"github.com/kadnet/kad/internal/peer"
)

// Network wires a set of Fake transports together in-process, so tests can
// exercise the full orchestrator/lookup/queue stack without a real socket.
type Network struct {
	mu    sync.Mutex
	peers map[peer.Addr]*Fake
}

// NewNetwork constructs an empty in-process network.
func NewNetwork() *Network {
	return &Network{peers: make(map[peer.Addr]*Fake)}
}

// Fake is an in-memory Transport bound to a Network, used by this package's
// tests and the orchestrator's (internal/node) tests.
type Fake struct {
	net      *Network
	addr     peer.Addr
	mu       sync.RWMutex
	receiver Receiver
	dropAll  bool
}

// NewFake registers a Fake transport at addr on net.
func (n *Network) NewFake(addr peer.Addr) *Fake {
	f := &Fake{net: n, addr: addr}
	n.mu.Lock()
	n.peers[addr] = f
	n.mu.Unlock()
	return f
}

// Send delivers data asynchronously (on a new goroutine, to mimic a real
// reactor without needing a real socket) to whatever Fake is
// registered at addr, if any; an unregistered address silently drops the
// datagram, mirroring an unreachable peer.
func (f *Fake) Send(addr peer.Addr, data []byte) error {
	f.mu.RLock()
	drop := f.dropAll
	f.mu.RUnlock()
	if drop {
		return nil
	}

	f.net.mu.Lock()
	dst, ok := f.net.peers[addr]
	f.net.mu.Unlock()
	if !ok {
		return nil
	}

	dst.mu.RLock()
	r := dst.receiver
	dst.mu.RUnlock()
	if r != nil {
		cp := make([]byte, len(data))
		copy(cp, data)
		go r(f.addr, cp)
	}
	return nil
}

func (f *Fake) SetReceiver(r Receiver) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.receiver = r
}

func (f *Fake) LocalAddr() peer.Addr { return f.addr }

// SetDropAll toggles whether this peer silently discards every outbound
// send, modeling an unreachable node for liveness/failover tests.
func (f *Fake) SetDropAll(drop bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dropAll = drop
}

func (f *Fake) Close() error {
	f.net.mu.Lock()
	defer f.net.mu.Unlock()
	delete(f.net.peers, f.addr)
	return nil
}
