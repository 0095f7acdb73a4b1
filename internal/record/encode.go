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

package record

import (
	"fmt"

	"github.com/ugorji/go/codec"

	"github.com/kadnet/kad/internal/id"
)

var providerHandle = &codec.MsgpackHandle{}

// EncodeProvider serializes p for embedding as a KV.Value (§3: "the
// enclosing KV.value carries the encoded Provider"), using this package's
// own default-configured msgpack handle (not the wire package's).
func EncodeProvider(p Provider) ([]byte, error) {
	m := map[string]interface{}{
		"i": p.ProviderID.String(),
		"e": p.Expiry,
		"s": p.Signature,
	}
	var buf []byte
	enc := codec.NewEncoderBytes(&buf, providerHandle)
	if err := enc.Encode(m); err != nil {
		return nil, fmt.Errorf("record: encode provider: %w", err)
	}
	return buf, nil
}

// DecodeProvider reverses EncodeProvider.
func DecodeProvider(b []byte) (Provider, error) {
	var m map[string]interface{}
	dec := codec.NewDecoderBytes(b, providerHandle)
	if err := dec.Decode(&m); err != nil {
		return Provider{}, fmt.Errorf("record: decode provider: %w", err)
	}
	idStr, _ := m["i"].(string)
	pid, err := id.FromString(idStr)
	if err != nil {
		return Provider{}, fmt.Errorf("record: decode provider id: %w", err)
	}
	expiry, ok := m["e"].(uint64)
	if !ok {
		if e64, ok2 := m["e"].(int64); ok2 {
			expiry = uint64(e64)
		}
	}
	sig, _ := m["s"].([]byte)
	return Provider{ProviderID: pid, Expiry: expiry, Signature: sig}, nil
}
