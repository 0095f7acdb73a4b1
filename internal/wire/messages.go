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

// Package wire implements the self-describing message framing of §6: every
// message is a binary map with fields s/m/a/i/q/d, and every action payload
// is itself a string-keyed map. The teacher frames devp2p messages with RLP
// (a positional, schema-bound encoding) -- the spec explicitly asks for a
// map-based, self-describing encoding instead, so this package is grounded
// on github.com/ugorji/go/codec's msgpack handle (from the retrieval pack's
// distributed-kvstore module), which operates directly on
// map[string]interface{} without code generation.
package wire

import (
	"github.com/kadnet/kad/internal/id"
)

// MsgType is the `m` field: 0 = query, 1 = response.
type MsgType int

const (
	Query    MsgType = 0
	Response MsgType = 1
)

// Action is the `a` field.
type Action int

const (
	ActionPing         Action = 0
	ActionStore        Action = 1
	ActionFindNode     Action = 2
	ActionFindValue    Action = 3
	ActionIdentify     Action = 4
	ActionGetAddresses Action = 5
)

func (a Action) String() string {
	switch a {
	case ActionPing:
		return "ping"
	case ActionStore:
		return "store"
	case ActionFindNode:
		return "find_node"
	case ActionFindValue:
		return "find_value"
	case ActionIdentify:
		return "identify"
	case ActionGetAddresses:
		return "get_addresses"
	default:
		return "unknown"
	}
}

// SchemaVersion is the `s` field this codec emits and accepts.
const SchemaVersion = 1

// Envelope is the outer self-describing map (§6).
type Envelope struct {
	Schema   int
	Type     MsgType
	Action   Action
	SenderID id.ID
	MsgID    uint64
	Data     map[string]interface{}
}

// PeerObject is the `peer_object` payload schema: {t,a,p,i}.
type PeerObject struct {
	Transport string
	Host      string
	Port      uint16
	ID        id.ID
}

func (p PeerObject) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"t": p.Transport,
		"a": p.Host,
		"p": int64(p.Port),
		"i": p.ID.String(),
	}
}

// PeerObjectFromMap reconstructs a PeerObject decoded off the wire. The
// decoder hands back generic map[string]interface{}/int64 values, so every
// field is defensively type-asserted rather than trusted.
func PeerObjectFromMap(m map[string]interface{}) (PeerObject, bool) {
	t, _ := m["t"].(string)
	host, _ := m["a"].(string)
	port, ok := asInt64(m["p"])
	idStr, ok2 := m["i"].(string)
	if !ok || !ok2 {
		return PeerObject{}, false
	}
	pid, err := id.FromString(idStr)
	if err != nil {
		return PeerObject{}, false
	}
	return PeerObject{Transport: t, Host: host, Port: uint16(port), ID: pid}, true
}

// StoreQuery is the `store_query` payload `{k,d,v,o?,t,s}`.
type StoreQuery struct {
	Key       []byte
	DataType  int
	Value     []byte
	Origin    *PeerObject
	Timestamp int64
	Signature []byte
}

func (q StoreQuery) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"k": q.Key,
		"d": int64(q.DataType),
		"v": q.Value,
		"t": q.Timestamp,
		"s": q.Signature,
	}
	if q.Origin != nil {
		m["o"] = q.Origin.ToMap()
	}
	return m
}

// StoreStatus is the `s` field of store_resp.
type StoreStatus int

const (
	StoreOK  StoreStatus = 0
	StoreBad StoreStatus = 1
)

// StoreResp is the `store_resp` payload `{c,s}`.
type StoreResp struct {
	Checksum []byte
	Status   StoreStatus
}

func (r StoreResp) ToMap() map[string]interface{} {
	return map[string]interface{}{"c": r.Checksum, "s": int64(r.Status)}
}

// FindQuery is the `find_query` payload `{t}`, shared by find_node and
// find_value (the action field on the envelope disambiguates).
type FindQuery struct {
	Target id.ID
}

func (q FindQuery) ToMap() map[string]interface{} {
	return map[string]interface{}{"t": q.Target.String()}
}

// FindNodeResp is the `find_node_resp` payload `{b,s}`.
type FindNodeResp struct {
	Bucket    []PeerObject
	Signature []byte
}

func (r FindNodeResp) ToMap() map[string]interface{} {
	b := make([]map[string]interface{}, len(r.Bucket))
	for i, p := range r.Bucket {
		b[i] = p.ToMap()
	}
	return map[string]interface{}{"b": b, "s": r.Signature}
}

// FindValueResp is the `find_value_resp` payload `{v?,b?}`: exactly one of
// Value or Bucket is present.
type FindValueResp struct {
	Value  []byte
	Bucket []PeerObject
}

func (r FindValueResp) ToMap() map[string]interface{} {
	if r.Value != nil {
		return map[string]interface{}{"v": r.Value}
	}
	b := make([]map[string]interface{}, len(r.Bucket))
	for i, p := range r.Bucket {
		b[i] = p.ToMap()
	}
	return map[string]interface{}{"b": b}
}

// IdentifyQuery is the `identify_query` payload `{s}`: a random challenge
// token the peer must sign to prove ownership of the claimed id.
type IdentifyQuery struct {
	Token []byte
}

func (q IdentifyQuery) ToMap() map[string]interface{} {
	return map[string]interface{}{"s": q.Token}
}

// IdentifyResp is the `identify_resp` payload `{k,s}`: compressed pubkey and
// the signature over the "{token}:{requester_host}:{requester_port}" blob.
type IdentifyResp struct {
	PubKey    []byte
	Signature []byte
}

func (r IdentifyResp) ToMap() map[string]interface{} {
	return map[string]interface{}{"k": r.PubKey, "s": r.Signature}
}

// GetAddressesQuery is `get_addresses_query` `{i}`.
type GetAddressesQuery struct {
	ID id.ID
}

func (q GetAddressesQuery) ToMap() map[string]interface{} {
	return map[string]interface{}{"i": q.ID.String()}
}

// GetAddressesResp is `get_addresses_resp` `{i,p}`.
type GetAddressesResp struct {
	ID        id.ID
	Addresses []PeerObject
}

func (r GetAddressesResp) ToMap() map[string]interface{} {
	p := make([]map[string]interface{}, len(r.Addresses))
	for i, a := range r.Addresses {
		p[i] = a.ToMap()
	}
	return map[string]interface{}{"i": r.ID.String(), "p": p}
}

func asInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case uint64:
		return int64(n), true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}
