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

// Package transport implements the "Transport collaborator" of §6:
// send(addr, bytes) non-blocking, and a reactor callback invoked on receipt.
// The production implementation is a UDP socket reactor, grounded on the
// teacher's p2p/discover read-loop shape (one goroutine blocked in
// ReadFromUDP, dispatching each datagram to a handler) generalized from
// devp2p's fixed packet kinds to an opaque byte-slice callback, since
// decoding now belongs to internal/wire rather than the transport.
package transport

import (
	"fmt"
	"net"
	"sync"

	"github.com/kadnet/kad/internal/peer"
	"github.com/kadnet/kad/logger/glog"
)

// MaxDatagramSize bounds a single read, matching internal/wire.MaxDataSize
// plus headroom; oversized reads are truncated and handed to the receiver,
// which rejects them via wire.Decode's own size check.
const MaxDatagramSize = 2048

// Receiver is invoked once per inbound datagram.
type Receiver func(addr peer.Addr, data []byte)

// Transport is the collaborator interface components depend on, so tests
// can substitute Fake for a real UDP socket.
type Transport interface {
	Send(addr peer.Addr, data []byte) error
	SetReceiver(r Receiver)
	LocalAddr() peer.Addr
	Close() error
}

// UDP is the production Transport.
type UDP struct {
	conn      *net.UDPConn
	transport string
	mu        sync.RWMutex
	receiver  Receiver
	closeOnce sync.Once
}

// ListenUDP opens a UDP socket on laddr (host:port form, "" host means all
// interfaces) and starts its read loop.
func ListenUDP(laddr string) (*UDP, error) {
	addr, err := net.ResolveUDPAddr("udp", laddr)
	if err != nil {
		return nil, fmt.Errorf("transport: resolve %q: %w", laddr, err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: listen %q: %w", laddr, err)
	}
	u := &UDP{conn: conn, transport: "udp"}
	go u.loop()
	return u, nil
}

func (u *UDP) loop() {
	buf := make([]byte, MaxDatagramSize)
	for {
		n, from, err := u.conn.ReadFromUDP(buf)
		if err != nil {
			glog.V(2).Infof("transport: read loop exiting: %v", err)
			return
		}
		data := make([]byte, n)
		copy(data, buf[:n])

		u.mu.RLock()
		r := u.receiver
		u.mu.RUnlock()
		if r == nil {
			continue
		}
		addr := peer.Addr{Transport: u.transport, Host: from.IP.String(), Port: uint16(from.Port)}
		go r(addr, data)
	}
}

// Send writes data to addr. Non-blocking in the sense §6 requires: a UDP
// write never waits for a reply, only for the local kernel buffer.
func (u *UDP) Send(addr peer.Addr, data []byte) error {
	raddr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", addr.Host, addr.Port))
	if err != nil {
		return fmt.Errorf("transport: resolve %v: %w", addr, err)
	}
	_, err = u.conn.WriteToUDP(data, raddr)
	return err
}

// SetReceiver installs the reactor callback. Must be called before traffic
// is expected; safe to call concurrently with Send.
func (u *UDP) SetReceiver(r Receiver) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.receiver = r
}

// LocalAddr reports the socket's bound address.
func (u *UDP) LocalAddr() peer.Addr {
	a := u.conn.LocalAddr().(*net.UDPAddr)
	return peer.Addr{Transport: u.transport, Host: a.IP.String(), Port: uint16(a.Port)}
}

// Close shuts down the socket, terminating the read loop.
func (u *UDP) Close() error {
	var err error
	u.closeOnce.Do(func() {
		err = u.conn.Close()
	})
	return err
}
