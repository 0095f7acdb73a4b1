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

package portmap

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeRecordsForwardCalls(t *testing.T) {
	f := &Fake{External: net.ParseIP("203.0.113.9"), Local: net.ParseIP("10.0.0.5")}
	require.NoError(t, f.Initialize(false))

	ok, err := f.ForwardPort("kad", "udp", 7946)
	require.NoError(t, err)
	assert.True(t, ok)
	require.Len(t, f.Forwards, 1)
	assert.Equal(t, 7946, f.Forwards[0].Port)

	ext, err := f.ExternalIP()
	require.NoError(t, err)
	assert.Equal(t, "203.0.113.9", ext.String())
}
