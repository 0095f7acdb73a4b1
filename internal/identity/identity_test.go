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

package identity

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	kp, err := Generate()
	require.NoError(t, err)

	msg := []byte("hello kad")
	sig, err := kp.Sign(msg)
	require.NoError(t, err)

	assert.True(t, Verify(kp.PubKeyBytes(), msg, sig))
}

func TestVerifyRejectsTamperedMessage(t *testing.T) {
	kp, err := Generate()
	require.NoError(t, err)

	sig, err := kp.Sign([]byte("original"))
	require.NoError(t, err)

	assert.False(t, Verify(kp.PubKeyBytes(), []byte("tampered"), sig))
}

func TestIDDerivesFromPubKey(t *testing.T) {
	kp, err := Generate()
	require.NoError(t, err)
	assert.Equal(t, IDFromPubKey(kp.PubKeyBytes()), kp.ID())
}

func TestKeystoreTrustAndLookup(t *testing.T) {
	ks, err := New(afero.NewMemMapFs(), "/keys")
	require.NoError(t, err)

	kp, err := Generate()
	require.NoError(t, err)

	assert.False(t, ks.Known(kp.ID()))
	ks.Trust(kp.ID(), kp.PubKeyBytes())
	assert.True(t, ks.Known(kp.ID()))

	pub, ok := ks.Lookup(kp.ID())
	require.True(t, ok)
	assert.Equal(t, kp.PubKeyBytes(), pub)
}

func TestKeystoreEvictRemovesTrust(t *testing.T) {
	ks, err := New(afero.NewMemMapFs(), "/keys")
	require.NoError(t, err)
	kp, err := Generate()
	require.NoError(t, err)

	ks.Trust(kp.ID(), kp.PubKeyBytes())
	ks.Evict(kp.ID())
	assert.False(t, ks.Known(kp.ID()))
}

func TestKeystorePendingDedup(t *testing.T) {
	ks, err := New(afero.NewMemMapFs(), "/keys")
	require.NoError(t, err)
	kp, err := Generate()
	require.NoError(t, err)

	assert.False(t, ks.IsPending(kp.ID()))
	ks.MarkPending(kp.ID())
	assert.True(t, ks.IsPending(kp.ID()))
}

func TestExportImportFileRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	ks, err := New(fs, "/keys")
	require.NoError(t, err)

	kp, err := Generate()
	require.NoError(t, err)

	require.NoError(t, ks.ExportFile("node.key", kp, "correct horse battery staple"))

	imported, err := ks.ImportFile("node.key", "correct horse battery staple")
	require.NoError(t, err)
	assert.Equal(t, kp.PrivateKeyBytes(), imported.PrivateKeyBytes())
}

func TestImportFileRejectsWrongPassphrase(t *testing.T) {
	fs := afero.NewMemMapFs()
	ks, err := New(fs, "/keys")
	require.NoError(t, err)
	kp, err := Generate()
	require.NoError(t, err)
	require.NoError(t, ks.ExportFile("node.key", kp, "right"))

	_, err = ks.ImportFile("node.key", "wrong")
	assert.ErrorIs(t, err, ErrDecrypt)
}
