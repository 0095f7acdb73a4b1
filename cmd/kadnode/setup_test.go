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

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadnet/kad/internal/clock"
	"github.com/kadnet/kad/internal/id"
)

func TestParseBootstrapPeerRoundTrips(t *testing.T) {
	target, err := id.Random((&clock.CryptoRand{}).Read)
	require.NoError(t, err)

	c, err := parseBootstrapPeer(target.String() + "@127.0.0.1:4253")
	require.NoError(t, err)
	assert.True(t, target.Equal(c.ID))
	require.Len(t, c.Addresses, 1)
	assert.Equal(t, "127.0.0.1", c.Addresses[0].Host)
	assert.Equal(t, uint16(4253), c.Addresses[0].Port)
}

func TestParseBootstrapPeerRejectsMissingAt(t *testing.T) {
	_, err := parseBootstrapPeer("127.0.0.1:4253")
	assert.Error(t, err)
}

func TestParseBootstrapPeerRejectsBadPort(t *testing.T) {
	target, err := id.Random((&clock.CryptoRand{}).Read)
	require.NoError(t, err)
	_, err = parseBootstrapPeer(target.String() + "@127.0.0.1:notaport")
	assert.Error(t, err)
}

func TestKeyForIsDeterministic(t *testing.T) {
	a := keyFor("/kad/example")
	b := keyFor("/kad/example")
	assert.Equal(t, a, b)

	c := keyFor("/kad/other")
	assert.NotEqual(t, a, c)
}
