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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadnet/kad/internal/identity"
	"github.com/kadnet/kad/internal/peer"
)

func TestSignAndValidateRoundTrip(t *testing.T) {
	kp, err := identity.Generate()
	require.NoError(t, err)

	key := kp.ID()
	addr := peer.Addr{Transport: "udp", Host: "127.0.0.1", Port: 4}
	kv, err := Sign(kp, key, TypeData, []byte("hello"), addr, 100)
	require.NoError(t, err)

	assert.True(t, kv.Valid(kp.PubKeyBytes()))
}

func TestValidRejectsTamperedValue(t *testing.T) {
	kp, err := identity.Generate()
	require.NoError(t, err)
	kv, err := Sign(kp, kp.ID(), TypeData, []byte("hello"), peer.Addr{}, 1)
	require.NoError(t, err)

	kv.Value = []byte("tampered")
	assert.False(t, kv.Valid(kp.PubKeyBytes()))
}

func TestProviderSignAndValidate(t *testing.T) {
	kp, err := identity.Generate()
	require.NoError(t, err)

	p, err := SignProvider(kp, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, p.Valid(kp.PubKeyBytes()))
	assert.False(t, p.Expired(time.Now()))
}

func TestProviderExpiredAfterExpiry(t *testing.T) {
	kp, err := identity.Generate()
	require.NoError(t, err)
	p, err := SignProvider(kp, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.True(t, p.Expired(time.Now()))
}

func TestEncodeDecodeProviderRoundTrip(t *testing.T) {
	kp, err := identity.Generate()
	require.NoError(t, err)
	p, err := SignProvider(kp, time.Now().Add(time.Hour))
	require.NoError(t, err)

	b, err := EncodeProvider(p)
	require.NoError(t, err)

	back, err := DecodeProvider(b)
	require.NoError(t, err)
	assert.Equal(t, p.ProviderID, back.ProviderID)
	assert.Equal(t, p.Expiry, back.Expiry)
	assert.Equal(t, p.Signature, back.Signature)
}

func TestTableInsertRefusesDuplicateKey(t *testing.T) {
	tbl := NewTable()
	kp, err := identity.Generate()
	require.NoError(t, err)
	kv, err := Sign(kp, kp.ID(), TypeData, []byte("v1"), peer.Addr{}, 1)
	require.NoError(t, err)

	require.NoError(t, tbl.Insert(kv))
	assert.ErrorIs(t, tbl.Insert(kv), ErrDuplicateKey)

	got, ok := tbl.Get(kv.Key)
	require.True(t, ok)
	assert.Equal(t, kv, got)
}

func TestTableUpdateOverwritesExisting(t *testing.T) {
	tbl := NewTable()
	kp, err := identity.Generate()
	require.NoError(t, err)
	kv, err := Sign(kp, kp.ID(), TypeData, []byte("v1"), peer.Addr{}, 1)
	require.NoError(t, err)
	require.NoError(t, tbl.Insert(kv))

	kv2, err := Sign(kp, kp.ID(), TypeData, []byte("v2"), peer.Addr{}, 2)
	require.NoError(t, err)
	tbl.Update(kv2)

	got, ok := tbl.Get(kv.Key)
	require.True(t, ok)
	assert.Equal(t, []byte("v2"), got.Value)
}
