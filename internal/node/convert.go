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
	"fmt"

	"github.com/kadnet/kad/internal/id"
	"github.com/kadnet/kad/internal/identity"
	"github.com/kadnet/kad/internal/peer"
	"github.com/kadnet/kad/internal/record"
	"github.com/kadnet/kad/internal/wire"
)

// identifyBlob builds the "{token}:{requester_host}:{requester_port}" blob
// an identify response's signature covers (§4.5 identify), binding the
// challenge to the address it was asked from.
func identifyBlob(token []byte, requester peer.Addr) []byte {
	return []byte(fmt.Sprintf("%s:%s:%d", token, requester.Host, requester.Port))
}

// kvToWireMap renders kv in the store_query shape {k,d,v,o,t,s}: the same
// schema carries a record whether it travels inside a store request or
// inside a find_value_resp's "v" field (§6 names the latter just "stored
// value", and this is the only serialization in the wire package capable
// of carrying a record's signature and timestamp alongside it).
func kvToWireMap(kv record.KV) map[string]interface{} {
	origin := wire.PeerObject{Transport: kv.Origin.Addr.Transport, Host: kv.Origin.Addr.Host, Port: kv.Origin.Addr.Port, ID: kv.Origin.ID}
	sq := wire.StoreQuery{
		Key:       kv.Key.Bytes(),
		DataType:  int(kv.Type),
		Value:     kv.Value,
		Origin:    &origin,
		Timestamp: int64(kv.Timestamp),
		Signature: kv.Signature,
	}
	return sq.ToMap()
}

// kvFromWireMap reverses kvToWireMap, reconstructing the record.KV a
// find_value_resp or store_query carried.
func kvFromWireMap(m map[string]interface{}) (record.KV, bool) {
	keyBytes, ok := m["k"].([]byte)
	if !ok {
		return record.KV{}, false
	}
	key, err := id.FromBytes(keyBytes)
	if err != nil {
		return record.KV{}, false
	}
	dtype, ok := asInt(m["d"])
	if !ok {
		return record.KV{}, false
	}
	value, _ := m["v"].([]byte)
	ts, ok := asInt(m["t"])
	if !ok {
		return record.KV{}, false
	}
	sig, _ := m["s"].([]byte)

	var origin peer.Peer
	if om, ok := m["o"].(map[string]interface{}); ok {
		if po, ok := wire.PeerObjectFromMap(om); ok {
			origin = peer.Peer{ID: po.ID, Addr: peer.Addr{Transport: po.Transport, Host: po.Host, Port: po.Port}}
		}
	}

	return record.KV{
		Key:       key,
		Type:      record.RecordType(dtype),
		Value:     value,
		Origin:    origin,
		Timestamp: uint64(ts),
		Signature: sig,
	}, true
}

func asInt(v interface{}) (int64, bool) {
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

func decodeKVValue(raw interface{}, expectedKey id.ID) (record.KV, bool) {
	m, ok := raw.(map[string]interface{})
	if !ok {
		return record.KV{}, false
	}
	kv, ok := kvFromWireMap(m)
	if !ok {
		return record.KV{}, false
	}
	if !kv.Key.Equal(expectedKey) {
		return record.KV{}, false
	}
	return kv, true
}

func idMatchesPubKey(claimed id.ID, pub []byte) bool {
	return identity.IDFromPubKey(pub).Equal(claimed)
}

func verifySig(pub, msg, sig []byte) bool {
	return identity.Verify(pub, msg, sig)
}
