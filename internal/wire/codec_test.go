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
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadnet/kad/internal/id"
)

func randomID(t *testing.T) id.ID {
	t.Helper()
	var b [id.ByteLen]byte
	_, err := rand.Read(b[:])
	require.NoError(t, err)
	out, err := id.FromBytes(b[:])
	require.NoError(t, err)
	return out
}

func TestEncodeDecodeEnvelopeRoundTrip(t *testing.T) {
	sender := randomID(t)
	target := randomID(t)

	env := Envelope{
		Schema:   SchemaVersion,
		Type:     Query,
		Action:   ActionFindNode,
		SenderID: sender,
		MsgID:    42,
		Data:     FindQuery{Target: target}.ToMap(),
	}

	encoded, err := Encode(env)
	require.NoError(t, err)

	decoded, err := Decode(encoded)
	require.NoError(t, err)

	assert.Equal(t, env.Schema, decoded.Schema)
	assert.Equal(t, env.Type, decoded.Type)
	assert.Equal(t, env.Action, decoded.Action)
	assert.Equal(t, env.SenderID, decoded.SenderID)
	assert.Equal(t, env.MsgID, decoded.MsgID)

	gotTarget, ok := decoded.Data["t"].(string)
	require.True(t, ok)
	assert.Equal(t, target.String(), gotTarget)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode([]byte{0xff, 0x00, 0x13, 0x37})
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestEncodeRejectsOversizedPayload(t *testing.T) {
	// Random bytes, so snappy cannot shrink the frame back under MaxDataSize.
	big := make([]byte, MaxDataSize*4)
	_, err := rand.Read(big)
	require.NoError(t, err)
	env := Envelope{
		Schema:   SchemaVersion,
		Type:     Query,
		Action:   ActionStore,
		SenderID: randomID(t),
		MsgID:    1,
		Data:     StoreQuery{Key: []byte("k"), Value: big}.ToMap(),
	}
	_, err = Encode(env)
	assert.ErrorIs(t, err, ErrOversized)
}

func TestPeerObjectRoundTrip(t *testing.T) {
	p := PeerObject{Transport: "udp", Host: "127.0.0.1", Port: 7946, ID: randomID(t)}
	back, ok := PeerObjectFromMap(p.ToMap())
	require.True(t, ok)
	assert.Equal(t, p, back)
}

func TestFindNodeRespRoundTripThroughEnvelope(t *testing.T) {
	peers := []PeerObject{
		{Transport: "udp", Host: "10.0.0.1", Port: 1, ID: randomID(t)},
		{Transport: "udp", Host: "10.0.0.2", Port: 2, ID: randomID(t)},
	}
	env := Envelope{
		Schema:   SchemaVersion,
		Type:     Response,
		Action:   ActionFindNode,
		SenderID: randomID(t),
		MsgID:    7,
		Data:     FindNodeResp{Bucket: peers, Signature: []byte("sig")}.ToMap(),
	}

	encoded, err := Encode(env)
	require.NoError(t, err)
	decoded, err := Decode(encoded)
	require.NoError(t, err)

	rawBucket, ok := decoded.Data["b"].([]interface{})
	require.True(t, ok)
	require.Len(t, rawBucket, 2)

	first, ok := rawBucket[0].(map[string]interface{})
	require.True(t, ok)
	po, ok := PeerObjectFromMap(first)
	require.True(t, ok)
	assert.Equal(t, peers[0].ID, po.ID)
}
