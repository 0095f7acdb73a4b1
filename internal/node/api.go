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
	"time"

	"github.com/kadnet/kad/internal/id"
	"github.com/kadnet/kad/internal/lookup"
	"github.com/kadnet/kad/internal/peer"
	"github.com/kadnet/kad/internal/queue"
	"github.com/kadnet/kad/internal/record"
	"github.com/kadnet/kad/internal/routing"
	"github.com/kadnet/kad/internal/wire"
	"github.com/kadnet/kad/logger/glog"
)

// Ping implements routing.LivenessChecker: try each address in order,
// reporting the first that replies (§4.1 step 4).
func (n *Node) Ping(target id.ID, addrs []peer.Addr) (bool, peer.Addr) {
	for _, a := range addrs {
		c := peer.Contact{ID: target, Addresses: []peer.Addr{a}}
		ctx, cancel := context.WithTimeout(context.Background(), queue.DefaultTimeout)
		_, err := n.call(ctx, c, wire.ActionPing, map[string]interface{}{})
		cancel()
		if err == nil {
			return true, a
		}
	}
	return false, peer.Addr{}
}

// Lookup performs the iterative node lookup of §4.3 for target, returning
// up to K contacts closest to it.
func (n *Node) Lookup(ctx context.Context, target id.ID) []peer.Contact {
	seed := toContacts(n.table.FindAlpha(target))
	return lookup.Node(ctx, n.localID, target, seed, n.cfg.Alpha, n.cfg.K, lookup.FindNodeFunc(n.findNode))
}

// Get performs the quorum value lookup of §4.4 for key.
func (n *Node) Get(ctx context.Context, key id.ID, quorum, disjointPaths int) lookup.ValueResult {
	seed := toContacts(n.table.FindAlpha(key))
	local := func(k id.ID) (record.KV, bool) { return n.records.Get(k) }
	validate := func(kv record.KV) bool { return kv.Valid(n.pubKeyFor(kv.Origin.ID)) }
	return lookup.Value(ctx, n.localID, key, quorum, seed, n.cfg.Alpha, disjointPaths, local, lookup.FindValueFunc(n.findValue), validate, n.storeAt)
}

// pubKeyFor resolves a peer's public key for record validation, falling
// back to treating an unknown origin as having no key (validation fails
// closed).
func (n *Node) pubKeyFor(origin id.ID) []byte {
	pub, _ := n.ks.Lookup(origin)
	return pub
}

// Put signs a data record and stores it at the K nodes closest to key.
func (n *Node) Put(ctx context.Context, key id.ID, value []byte) (record.KV, error) {
	kv, err := record.Sign(n.kp, key, record.TypeData, value, n.selfAddr, uint64(n.clock.Now().Unix()))
	if err != nil {
		return record.KV{}, err
	}
	n.records.Insert(kv) // keep a local copy so we can answer find_value for our own put
	targets := n.Lookup(ctx, key)
	for _, c := range targets {
		go n.storeAt(ctx, c, kv)
	}
	return kv, nil
}

// Provide announces this node as a provider of key, valid until expiry.
func (n *Node) Provide(ctx context.Context, key id.ID, expiry time.Time) (record.KV, error) {
	prov, err := record.SignProvider(n.kp, expiry)
	if err != nil {
		return record.KV{}, err
	}
	encoded, err := record.EncodeProvider(prov)
	if err != nil {
		return record.KV{}, err
	}
	kv, err := record.Sign(n.kp, key, record.TypeProvider, encoded, n.selfAddr, uint64(n.clock.Now().Unix()))
	if err != nil {
		return record.KV{}, err
	}
	n.records.Insert(kv)
	targets := n.Lookup(ctx, key)
	for _, c := range targets {
		go n.storeAt(ctx, c, kv)
	}
	return kv, nil
}

// Resolve performs §4.5-resolve: an iterative node lookup for id, followed
// by get_addresses + identify verification against every returned contact.
// When add is true, each verified address is folded into the routing trie.
func (n *Node) Resolve(ctx context.Context, target id.ID, add bool) ([]peer.Addr, error) {
	contacts := n.Lookup(ctx, target)

	var verified []peer.Addr
	for _, c := range contacts {
		if c.ID.Equal(n.localID) {
			continue
		}
		addrs, err := n.getAddresses(ctx, c, target)
		if err != nil {
			continue
		}
		for _, a := range addrs {
			ok, _, err := n.identify(ctx, peer.Contact{ID: target, Addresses: []peer.Addr{a}})
			if !ok {
				glog.V(3).Infof("node: resolve identify %v at %v: %v", target, a, err)
				continue
			}
			verified = append(verified, a)
			if add {
				n.table.Update(peer.Peer{ID: target, Addr: a})
			}
		}
	}
	if len(verified) == 0 {
		return nil, fmt.Errorf("node: resolve %s: no verified address", target)
	}
	return verified, nil
}

func toContacts(entries []*routing.Entry) []peer.Contact {
	out := make([]peer.Contact, len(entries))
	for i, e := range entries {
		out[i] = e.Contact()
	}
	return out
}
