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
	"github.com/kadnet/kad/internal/id"
	"github.com/kadnet/kad/internal/peer"
	"github.com/kadnet/kad/internal/wire"
)

// SendToContact realizes the "try next address" failover of §4.2: it sends
// datagram to c's first address and awaits a reply; on timeout it drops
// that address and re-sends to the remaining tail. Once the address list is
// exhausted, onTimeout is invoked exactly once.
func SendToContact(q *Queue, s Sender, c peer.Contact, action wire.Action, msgID uint64, datagram []byte, onOK OnOK, onTimeout OnTimeout) error {
	return sendTail(q, s, c.ID, c.Addresses, action, msgID, datagram, onOK, onTimeout)
}

func sendTail(q *Queue, s Sender, target id.ID, addrs []peer.Addr, action wire.Action, msgID uint64, datagram []byte, onOK OnOK, onTimeout OnTimeout) error {
	if len(addrs) == 0 {
		if onTimeout != nil {
			onTimeout(peer.Peer{ID: target})
		}
		return nil
	}

	head, tail := addrs[0], addrs[1:]
	p := peer.Peer{ID: target, Addr: head}

	if err := s.Send(head, datagram); err != nil {
		// Treat a synchronous send failure like an immediate timeout on
		// this address: drop it and retry against the tail.
		return sendTail(q, s, target, tail, action, msgID, datagram, onOK, onTimeout)
	}

	q.Await(p, action, msgID, onOK, func(peer.Peer) {
		sendTail(q, s, target, tail, action, msgID, datagram, onOK, onTimeout)
	})
	return nil
}
