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
	"errors"
	"fmt"

	"github.com/kadnet/kad/internal/id"
	"github.com/kadnet/kad/internal/identity"
	"github.com/kadnet/kad/internal/metrics"
	"github.com/kadnet/kad/internal/peer"
	"github.com/kadnet/kad/internal/queue"
	"github.com/kadnet/kad/internal/record"
	"github.com/kadnet/kad/internal/wire"
)

// ErrTimeout is returned when a query goes unanswered within its deadline
// (§7 Timeout).
var ErrTimeout = errors.New("node: query timed out")

// ErrIdentityMismatch is returned by identify when a contact's claimed ID
// does not hash from the public key it presents (§7 Identity-mismatch).
var ErrIdentityMismatch = errors.New("node: identity mismatch")

// call turns the queue's callback style into a blocking call bounded by
// ctx, the shape both lookup.FindNoder and lookup.FindValuer need (§4.2
// collaborates with §4.3/§4.4 exactly at this seam); rpcResult is what it
// returns on a reply.
type rpcResult struct {
	resolved peer.Peer
	payload  map[string]interface{}
}

func (n *Node) call(ctx context.Context, c peer.Contact, action wire.Action, data map[string]interface{}) (rpcResult, error) {
	msgID := n.nextMsgID()
	env := wire.Envelope{
		Schema:   wire.SchemaVersion,
		Type:     wire.Query,
		Action:   action,
		SenderID: n.localID,
		MsgID:    msgID,
		Data:     data,
	}
	datagram, err := wire.Encode(env)
	if err != nil {
		return rpcResult{}, fmt.Errorf("node: encode %v query: %w", action, err)
	}

	resultCh := make(chan rpcResult, 1)
	errCh := make(chan error, 1)

	onOK := func(resolved peer.Peer, payload map[string]interface{}) {
		select {
		case resultCh <- rpcResult{resolved: resolved, payload: payload}:
		default:
		}
	}
	onTimeout := func(p peer.Peer) {
		select {
		case errCh <- fmt.Errorf("node: %v to %v: %w", action, c.ID, ErrTimeout):
		default:
		}
	}

	metrics.QueriesSent.Mark(1)
	if err := queue.SendToContact(n.q, n.tr, c, action, msgID, datagram, onOK, onTimeout); err != nil {
		return rpcResult{}, err
	}

	select {
	case r := <-resultCh:
		return r, nil
	case err := <-errCh:
		metrics.Timeouts.Mark(1)
		return rpcResult{}, err
	case <-ctx.Done():
		return rpcResult{}, ctx.Err()
	}
}

// findNode implements lookup.FindNoder against the live network.
func (n *Node) findNode(ctx context.Context, c peer.Contact, target id.ID) (peer.Peer, []peer.Contact, error) {
	res, err := n.call(ctx, c, wire.ActionFindNode, wire.FindQuery{Target: target}.ToMap())
	if err != nil {
		n.table.Stale(peer.Peer{ID: c.ID, Addr: primaryAddr(c)})
		return peer.Peer{}, nil, err
	}
	n.table.Responded(res.resolved)

	bucketRaw, _ := res.payload["b"].([]interface{})
	contacts := make([]peer.Contact, 0, len(bucketRaw))
	for _, raw := range bucketRaw {
		m, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		po, ok := wire.PeerObjectFromMap(m)
		if !ok {
			continue
		}
		contacts = append(contacts, peer.Contact{ID: po.ID, Addresses: []peer.Addr{{Transport: po.Transport, Host: po.Host, Port: po.Port}}})
	}
	return res.resolved, contacts, nil
}

// findValue implements lookup.FindValuer.
func (n *Node) findValue(ctx context.Context, c peer.Contact, key id.ID) (peer.Peer, *record.KV, []peer.Contact, error) {
	res, err := n.call(ctx, c, wire.ActionFindValue, wire.FindQuery{Target: key}.ToMap())
	if err != nil {
		n.table.Stale(peer.Peer{ID: c.ID, Addr: primaryAddr(c)})
		return peer.Peer{}, nil, nil, err
	}
	n.table.Responded(res.resolved)

	if raw, ok := res.payload["v"]; ok {
		kv, ok := decodeKVValue(raw, key)
		if !ok {
			return res.resolved, nil, nil, fmt.Errorf("node: malformed find_value_resp value from %v", c.ID)
		}
		return res.resolved, &kv, nil, nil
	}

	bucketRaw, _ := res.payload["b"].([]interface{})
	contacts := make([]peer.Contact, 0, len(bucketRaw))
	for _, raw := range bucketRaw {
		m, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		po, ok := wire.PeerObjectFromMap(m)
		if !ok {
			continue
		}
		contacts = append(contacts, peer.Contact{ID: po.ID, Addresses: []peer.Addr{{Transport: po.Transport, Host: po.Host, Port: po.Port}}})
	}
	return res.resolved, nil, contacts, nil
}

// storeAt issues a best-effort store RPC and waits until the reply arrives,
// every address of c has timed out in turn, or ctx ends; it's used by Put,
// Provide, the republish loop and the value lookup's post-termination
// republish-to-stale-responders step.
func (n *Node) storeAt(ctx context.Context, c peer.Contact, kv record.KV) {
	originMap := wire.PeerObject{Transport: kv.Origin.Addr.Transport, Host: kv.Origin.Addr.Host, Port: kv.Origin.Addr.Port, ID: kv.Origin.ID}
	sq := wire.StoreQuery{
		Key:       kv.Key.Bytes(),
		DataType:  int(kv.Type),
		Value:     kv.Value,
		Origin:    &originMap,
		Timestamp: int64(kv.Timestamp),
		Signature: kv.Signature,
	}
	if _, err := n.call(ctx, c, wire.ActionStore, sq.ToMap()); err != nil {
		n.table.Stale(peer.Peer{ID: c.ID, Addr: primaryAddr(c)})
	}
}

// identify runs the §4.5 identify challenge against c, returning the
// verified public key on success. The caller is responsible for trusting
// the key into the keystore once hash(pubkey) == c.ID has been checked.
func (n *Node) identify(ctx context.Context, c peer.Contact) (bool, []byte, error) {
	token := make([]byte, 32)
	if _, err := n.rand.Read(token); err != nil {
		return false, nil, err
	}
	res, err := n.call(ctx, c, wire.ActionIdentify, wire.IdentifyQuery{Token: token}.ToMap())
	if err != nil {
		return false, nil, err
	}
	pub, _ := res.payload["k"].([]byte)
	sig, _ := res.payload["s"].([]byte)
	if pub == nil || sig == nil {
		return false, nil, fmt.Errorf("node: identify %v: %w", c.ID, wire.ErrMalformed)
	}
	if !idMatchesPubKey(c.ID, pub) {
		return false, nil, fmt.Errorf("node: identify %v: %w", c.ID, ErrIdentityMismatch)
	}
	if !verifySig(pub, identifyBlob(token, n.selfAddr), sig) {
		return false, nil, fmt.Errorf("node: identify %v: %w", c.ID, identity.ErrSignatureInvalid)
	}
	return true, pub, nil
}

// getAddresses asks c for its known addresses for the given id (§4.5
// get_addresses), used to refresh a contact's address list before a direct
// dial.
func (n *Node) getAddresses(ctx context.Context, c peer.Contact, target id.ID) ([]peer.Addr, error) {
	res, err := n.call(ctx, c, wire.ActionGetAddresses, wire.GetAddressesQuery{ID: target}.ToMap())
	if err != nil {
		return nil, err
	}
	raw, _ := res.payload["p"].([]interface{})
	out := make([]peer.Addr, 0, len(raw))
	for _, r := range raw {
		m, ok := r.(map[string]interface{})
		if !ok {
			continue
		}
		po, ok := wire.PeerObjectFromMap(m)
		if !ok {
			continue
		}
		out = append(out, peer.Addr{Transport: po.Transport, Host: po.Host, Port: po.Port})
	}
	return out, nil
}

func primaryAddr(c peer.Contact) peer.Addr {
	if len(c.Addresses) == 0 {
		return peer.Addr{}
	}
	return c.Addresses[0]
}
