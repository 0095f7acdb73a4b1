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

// Package node is the orchestrator of §4.5/§4.6: it wires the routing
// trie, message queue, record table, keystore and lookup engines together
// behind the action handlers the wire protocol names, plus the two
// background loops. Grounded on the teacher's p2p/discover.udp (the
// reactor dispatching decoded packets to per-kind handlers and replying
// inline) generalized to the spec's six actions and its identify-gated
// dispatch.
package node

import (
	"context"
	"crypto/sha256"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kadnet/kad/internal/clock"
	"github.com/kadnet/kad/internal/id"
	"github.com/kadnet/kad/internal/identity"
	"github.com/kadnet/kad/internal/metrics"
	"github.com/kadnet/kad/internal/peer"
	"github.com/kadnet/kad/internal/queue"
	"github.com/kadnet/kad/internal/record"
	"github.com/kadnet/kad/internal/routing"
	"github.com/kadnet/kad/internal/transport"
	"github.com/kadnet/kad/internal/wire"
	"github.com/kadnet/kad/logger/glog"
)

// RepublishInterval/RepublishTime are the recognized REPUBLISH_INTERVAL /
// REPUBLISH_TIME constants (§6).
const (
	RepublishInterval = 60 * time.Second
	RepublishTime     = 86400 * time.Second
)

// Node is the orchestrator: the single owner of the routing table, record
// table and keystore's lifecycle, and the dispatch point for every inbound
// datagram.
type Node struct {
	kp       *identity.KeyPair
	localID  id.ID
	selfAddr peer.Addr

	table   *routing.Table
	records *record.Table
	ks      *identity.Keystore
	q       *queue.Queue
	tr      transport.Transport

	clock clock.Clock
	rand  clock.Rand
	cfg   routing.Config

	msgID uint64

	stopRefresh   chan struct{}
	stopRepublish chan struct{}
	wg            sync.WaitGroup
}

// NodeConfig bundles the collaborators a Node is built from, so tests can
// substitute fakes for every network/time/randomness dependency.
type NodeConfig struct {
	KeyPair  *identity.KeyPair
	SelfAddr peer.Addr
	Clock    clock.Clock
	Rand     clock.Rand
	Cfg      routing.Config
	Keystore *identity.Keystore
	Transport transport.Transport
}

// New constructs a Node and wires its own transport receiver.
func New(nc NodeConfig) *Node {
	n := &Node{
		kp:       nc.KeyPair,
		localID:  nc.KeyPair.ID(),
		selfAddr: nc.SelfAddr,
		records:  record.NewTable(),
		ks:       nc.Keystore,
		clock:    nc.Clock,
		rand:     nc.Rand,
		cfg:      nc.Cfg,
		tr:       nc.Transport,
		q:        queue.New(queue.DefaultTimeout),
	}
	n.table = routing.New(n.localID, nc.Cfg, nc.Clock, nc.Rand, n)
	n.tr.SetReceiver(n.onDatagram)
	return n
}

// ID returns the node's own identifier.
func (n *Node) ID() id.ID { return n.localID }

// Table exposes the routing table, e.g. for metrics or the console.
func (n *Node) Table() *routing.Table { return n.table }

// Records exposes the local record table.
func (n *Node) Records() *record.Table { return n.records }

func (n *Node) nextMsgID() uint64 {
	return atomic.AddUint64(&n.msgID, 1)
}

func (n *Node) self() peer.Contact {
	return peer.Contact{ID: n.localID, Addresses: []peer.Addr{n.selfAddr}}
}

// onDatagram is the Transport receiver: every inbound datagram passes
// through here first (§7: a malformed datagram must never crash the
// reactor).
func (n *Node) onDatagram(from peer.Addr, data []byte) {
	env, err := wire.Decode(data)
	if err != nil {
		metrics.MalformedDropped.Mark(1)
		glog.V(5).Infof("node: dropping malformed datagram from %v: %v", from, err)
		return
	}

	sender := peer.Peer{ID: env.SenderID, Addr: from}

	if env.Type == wire.Response {
		metrics.RepliesReceived.Mark(1)
		n.q.Satisfy(sender, env.Action, env.MsgID, env.Data)
		return
	}

	metrics.QueriesReceived.Mark(1)
	metrics.ActionMeter(env.Action.String()).Mark(1)

	if n.requiresGate(env.Action) && !n.ks.Known(sender.ID) {
		n.gateThenRedispatch(sender, env, data)
		return
	}
	n.dispatchQuery(sender, env)
}

func (n *Node) requiresGate(a wire.Action) bool {
	return a != wire.ActionIdentify && a != wire.ActionGetAddresses
}

// gateThenRedispatch runs an identify challenge against the sender and, on
// success, re-dispatches the original message (§4.5 Gatekeeping).
func (n *Node) gateThenRedispatch(sender peer.Peer, env wire.Envelope, raw []byte) {
	if n.ks.IsPending(sender.ID) {
		return
	}
	n.ks.MarkPending(sender.ID)

	ctx, cancel := context.WithTimeout(context.Background(), queue.DefaultTimeout)
	go func() {
		defer cancel()
		ok, pub, err := n.identify(ctx, peer.Contact{ID: sender.ID, Addresses: []peer.Addr{sender.Addr}})
		if !ok {
			glog.V(3).Infof("node: gate identify %v: %v", sender.ID, err)
			return
		}
		n.ks.Trust(sender.ID, pub)
		n.dispatchQuery(sender, env)
	}()
}

func (n *Node) dispatchQuery(sender peer.Peer, env wire.Envelope) {
	switch env.Action {
	case wire.ActionPing:
		n.handlePing(sender, env)
	case wire.ActionStore:
		n.handleStore(sender, env)
	case wire.ActionFindNode:
		n.handleFindNode(sender, env)
	case wire.ActionFindValue:
		n.handleFindValue(sender, env)
	case wire.ActionIdentify:
		n.handleIdentify(sender, env)
	case wire.ActionGetAddresses:
		n.handleGetAddresses(sender, env)
	default:
		glog.V(5).Infof("node: unrecognized action %d from %v", env.Action, sender.Addr)
	}
}

func (n *Node) sendEnvelope(to peer.Addr, env wire.Envelope) {
	encoded, err := wire.Encode(env)
	if err != nil {
		glog.V(3).Infof("node: encode failed for action %v: %v", env.Action, err)
		return
	}
	if err := n.tr.Send(to, encoded); err != nil {
		glog.V(5).Infof("node: send to %v failed: %v", to, err)
	}
}

func (n *Node) sendResponse(to peer.Addr, action wire.Action, msgID uint64, data map[string]interface{}) {
	n.sendEnvelope(to, wire.Envelope{
		Schema:   wire.SchemaVersion,
		Type:     wire.Response,
		Action:   action,
		SenderID: n.localID,
		MsgID:    msgID,
		Data:     data,
	})
}

// signPeerList signs the serialized peer-object list per §4.5
// ("find_node/find_value replies... signed by the responder's private key
// over the serialized list"); the serialization is just each peer's id and
// address concatenated in order, which is deterministic for a fixed slice.
func (n *Node) signPeerList(peers []wire.PeerObject) []byte {
	h := sha256.New()
	for _, p := range peers {
		h.Write(p.ID.Bytes())
		h.Write([]byte(p.Transport))
		h.Write([]byte(p.Host))
		var portBuf [2]byte
		portBuf[0] = byte(p.Port >> 8)
		portBuf[1] = byte(p.Port)
		h.Write(portBuf[:])
	}
	sig, err := n.kp.Sign(h.Sum(nil))
	if err != nil {
		glog.V(3).Infof("node: sign peer list: %v", err)
		return nil
	}
	return sig
}

func entriesToPeerObjects(entries []*routing.Entry) []wire.PeerObject {
	var out []wire.PeerObject
	for _, e := range entries {
		for _, as := range e.Addresses {
			out = append(out, wire.PeerObject{Transport: as.Addr.Transport, Host: as.Addr.Host, Port: as.Addr.Port, ID: e.ID})
			break // one address per entry keeps replies compact, mirroring a bucket snapshot
		}
	}
	return out
}

// Close stops the node's background loops and underlying transport.
func (n *Node) Close() error {
	if n.stopRefresh != nil {
		close(n.stopRefresh)
	}
	if n.stopRepublish != nil {
		close(n.stopRepublish)
	}
	n.wg.Wait()
	return n.tr.Close()
}
