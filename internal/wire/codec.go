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

package wire

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/golang/snappy"
	"github.com/ugorji/go/codec"

	"github.com/kadnet/kad/internal/id"
)

func idFromWire(s string) (id.ID, error) {
	return id.FromString(s)
}

// MaxDataSize bounds a single encoded datagram (§7: "Over-sized datagram").
// Chosen to stay well under typical UDP path MTUs once framing overhead is
// added, mirroring the teacher's devp2p frame size discipline.
const MaxDataSize = 1280

// ErrOversized is returned by Encode when the result would exceed
// MaxDataSize, and by Decode when the input already does.
var ErrOversized = errors.New("wire: datagram exceeds MaxDataSize")

// ErrMalformed wraps any decode failure (§7: "Malformed-message").
var ErrMalformed = errors.New("wire: malformed message")

var mpHandle = newHandle()

func newHandle() *codec.MsgpackHandle {
	h := &codec.MsgpackHandle{}
	h.MapType = reflect.TypeOf(map[string]interface{}(nil))
	h.RawToString = true
	return h
}

// Encode serializes env into a msgpack-encoded, snappy-compressed datagram.
// The outer structure is the self-describing map of §6: {s,m,a,i,q,d}.
func Encode(env Envelope) ([]byte, error) {
	m := map[string]interface{}{
		"s": int64(env.Schema),
		"m": int64(env.Type),
		"a": int64(env.Action),
		"i": env.SenderID.String(),
		"q": env.MsgID,
		"d": env.Data,
	}

	var raw []byte
	enc := codec.NewEncoderBytes(&raw, mpHandle)
	if err := enc.Encode(m); err != nil {
		return nil, fmt.Errorf("wire: encode: %w", err)
	}

	compressed := snappy.Encode(nil, raw)
	if len(compressed) > MaxDataSize {
		return nil, ErrOversized
	}
	return compressed, nil
}

// Decode reverses Encode. A truncated, corrupt, or over-sized datagram
// returns a wrapped ErrMalformed/ErrOversized rather than panicking, so a
// single bad peer can never take down the reactor (§7 propagation).
func Decode(datagram []byte) (Envelope, error) {
	if len(datagram) > MaxDataSize {
		return Envelope{}, ErrOversized
	}

	raw, err := snappy.Decode(nil, datagram)
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: snappy: %v", ErrMalformed, err)
	}

	var m map[string]interface{}
	dec := codec.NewDecoderBytes(raw, mpHandle)
	if err := dec.Decode(&m); err != nil {
		return Envelope{}, fmt.Errorf("%w: msgpack: %v", ErrMalformed, err)
	}

	var env Envelope
	s, ok := asInt64(m["s"])
	if !ok {
		return Envelope{}, fmt.Errorf("%w: missing schema", ErrMalformed)
	}
	env.Schema = int(s)

	mt, ok := asInt64(m["m"])
	if !ok {
		return Envelope{}, fmt.Errorf("%w: missing type", ErrMalformed)
	}
	env.Type = MsgType(mt)

	act, ok := asInt64(m["a"])
	if !ok {
		return Envelope{}, fmt.Errorf("%w: missing action", ErrMalformed)
	}
	env.Action = Action(act)

	senderStr, ok := m["i"].(string)
	if !ok {
		return Envelope{}, fmt.Errorf("%w: missing sender id", ErrMalformed)
	}
	sender, err := idFromWire(senderStr)
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: sender id: %v", ErrMalformed, err)
	}
	env.SenderID = sender

	q, ok := asInt64(m["q"])
	if !ok {
		return Envelope{}, fmt.Errorf("%w: missing msg_id", ErrMalformed)
	}
	env.MsgID = uint64(q)

	if d, ok := m["d"].(map[string]interface{}); ok {
		env.Data = d
	} else {
		env.Data = map[string]interface{}{}
	}

	return env, nil
}
