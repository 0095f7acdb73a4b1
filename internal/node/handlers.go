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
	"crypto/sha256"
	"time"

	"github.com/kadnet/kad/internal/id"
	"github.com/kadnet/kad/internal/metrics"
	"github.com/kadnet/kad/internal/peer"
	"github.com/kadnet/kad/internal/queue"
	"github.com/kadnet/kad/internal/record"
	"github.com/kadnet/kad/internal/routing"
	"github.com/kadnet/kad/internal/wire"
	"github.com/kadnet/kad/logger/glog"
)

// Every handler computes a response and sends it. The ping, store,
// find_node and find_value handlers then feed the sender into the routing
// trie via Update -- receiving any well-formed query counts as contact for
// routing-table purposes, matching the teacher's table.bond() being called
// from both the ping-pong path and unsolicited-packet handling. The
// identify and get_addresses handlers leave the trie untouched.

func (n *Node) handlePing(sender peer.Peer, env wire.Envelope) {
	n.sendResponse(sender.Addr, wire.ActionPing, env.MsgID, map[string]interface{}{})
	n.table.Update(sender)
}

func (n *Node) handleStore(sender peer.Peer, env wire.Envelope) {
	kv, ok := kvFromWireMap(env.Data)
	status := wire.StoreOK
	if !ok {
		status = wire.StoreBad
	} else {
		status = n.acceptStore(kv)
	}

	checksum := sha256.Sum256(kv.Value)
	resp := wire.StoreResp{Checksum: checksum[:], Status: status}
	n.sendResponse(sender.Addr, wire.ActionStore, env.MsgID, resp.ToMap())
	n.table.Update(sender)

	if status == wire.StoreOK {
		metrics.StoreAccepted.Mark(1)
	} else {
		metrics.StoreRefused.Mark(1)
	}
}

// acceptStore validates and inserts kv into the local record table,
// returning the status the store_resp should carry (§4.5 store).
func (n *Node) acceptStore(kv record.KV) wire.StoreStatus {
	if kv.Type == record.TypeProvider {
		return n.acceptProviderStore(kv)
	}
	if err := n.records.Insert(kv); err != nil {
		return wire.StoreBad
	}
	return wire.StoreOK
}

func (n *Node) acceptProviderStore(kv record.KV) wire.StoreStatus {
	prov, err := record.DecodeProvider(kv.Value)
	if err != nil {
		return wire.StoreBad
	}

	pub, known := n.ks.Lookup(prov.ProviderID)
	if !known {
		ctx, cancel := context.WithTimeout(context.Background(), queue.DefaultTimeout)
		defer cancel()
		ok, verifiedPub, err := n.identify(ctx, peer.Contact{ID: prov.ProviderID, Addresses: []peer.Addr{kv.Origin.Addr}})
		if !ok {
			glog.V(3).Infof("node: identify provider %v: %v", prov.ProviderID, err)
			return wire.StoreBad
		}
		n.ks.Trust(prov.ProviderID, verifiedPub)
		pub = verifiedPub
	}

	if !prov.Valid(pub) {
		n.ks.Evict(prov.ProviderID) // §7 Signature-invalid recovery
		return wire.StoreBad
	}

	expiry := time.Unix(int64(prov.Expiry), 0)
	if expiry.After(n.clock.Now().Add(RepublishTime)) {
		return wire.StoreBad // expiry further out than REPUBLISH_TIME is rejected
	}
	if prov.Expired(n.clock.Now()) {
		return wire.StoreBad
	}

	if err := n.records.Insert(kv); err != nil {
		return wire.StoreBad
	}
	return wire.StoreOK
}

func (n *Node) handleFindNode(sender peer.Peer, env wire.Envelope) {
	target, ok := parseFindQuery(env.Data)
	if !ok {
		return
	}
	entries := n.table.FindBucket(target)
	peers := entriesToPeerObjects(entries)
	resp := wire.FindNodeResp{Bucket: peers, Signature: n.signPeerList(peers)}
	n.sendResponse(sender.Addr, wire.ActionFindNode, env.MsgID, resp.ToMap())
	n.table.Update(sender)
}

func (n *Node) handleFindValue(sender peer.Peer, env wire.Envelope) {
	target, ok := parseFindQuery(env.Data)
	if !ok {
		return
	}

	var data map[string]interface{}
	if kv, found := n.records.Get(target); found {
		data = map[string]interface{}{"v": kvToWireMap(kv)}
	} else {
		entries := n.table.FindBucket(target)
		peers := entriesToPeerObjects(entries)
		data = wire.FindValueResp{Bucket: peers}.ToMap()
	}
	n.sendResponse(sender.Addr, wire.ActionFindValue, env.MsgID, data)
	n.table.Update(sender)
}

func (n *Node) handleIdentify(sender peer.Peer, env wire.Envelope) {
	token, _ := env.Data["s"].([]byte)
	sig, err := n.kp.Sign(identifyBlob(token, sender.Addr))
	if err != nil {
		glog.V(3).Infof("node: sign identify challenge: %v", err)
		return
	}
	resp := wire.IdentifyResp{PubKey: n.kp.PubKeyBytes(), Signature: sig}
	n.sendResponse(sender.Addr, wire.ActionIdentify, env.MsgID, resp.ToMap())
	// identify queries do not imply a verified identity for the *sender*,
	// so the routing trie is not updated here (§4.5 Gatekeeping: being
	// identified is what earns routing-table membership elsewhere).
}

func (n *Node) handleGetAddresses(sender peer.Peer, env wire.Envelope) {
	idStr, _ := env.Data["i"].(string)
	target, err := id.FromString(idStr)
	if err != nil {
		return
	}

	var addrs []wire.PeerObject
	if target.Equal(n.localID) {
		addrs = []wire.PeerObject{{Transport: n.selfAddr.Transport, Host: n.selfAddr.Host, Port: n.selfAddr.Port, ID: n.localID}}
	} else if e := n.table.Find(target); e != nil {
		addrs = entriesToPeerObjects([]*routing.Entry{e})
	}

	resp := wire.GetAddressesResp{ID: target, Addresses: addrs}
	n.sendResponse(sender.Addr, wire.ActionGetAddresses, env.MsgID, resp.ToMap())
}

func parseFindQuery(data map[string]interface{}) (id.ID, bool) {
	s, ok := data["t"].(string)
	if !ok {
		return id.ID{}, false
	}
	target, err := id.FromString(s)
	if err != nil {
		return id.ID{}, false
	}
	return target, true
}
