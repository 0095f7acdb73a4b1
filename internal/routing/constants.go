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

package routing

import "time"

// Recognized constants, §6. These are the defaults; a Table reads its values
// from a Config at construction time, so an operator can tune them per
// deployment and tests can shrink K without touching package state (the
// teacher's table.go hard codes its own alpha/bucketSize/maxReplacements).
const (
	DefaultK               = 20
	DefaultAlpha           = 3
	DefaultAddrLimit       = 4
	DefaultMaxStale         = 3
	DefaultReplCacheSize   = 8
	DefaultRefreshInterval = 60 * time.Second
	DefaultRefreshTime     = 3600 * time.Second

	// bucketIPLimit/subnet mirror the teacher's distip.DistinctNetSet
	// hardening (table.go bucketIPLimit/bucketSubnet): at most this many
	// entries per bucket may share the same /24 (IPv4) or /64 (IPv6)
	// network, so one host can't fill a bucket with sock puppets.
	DefaultBucketIPLimit = 2
	DefaultIPv4Subnet    = 24
	DefaultIPv6Subnet    = 64
)

// Config bundles the recognized constants for a single Table instance.
type Config struct {
	K               int
	Alpha           int
	AddrLimit       int
	MaxStale        int
	ReplCacheSize   int
	RefreshInterval time.Duration
	RefreshTime     time.Duration
	BucketIPLimit   int
}

// DefaultConfig returns the production-recommended constants (§6).
func DefaultConfig() Config {
	return Config{
		K:               DefaultK,
		Alpha:           DefaultAlpha,
		AddrLimit:       DefaultAddrLimit,
		MaxStale:        DefaultMaxStale,
		ReplCacheSize:   DefaultReplCacheSize,
		RefreshInterval: DefaultRefreshInterval,
		RefreshTime:     DefaultRefreshTime,
		BucketIPLimit:   DefaultBucketIPLimit,
	}
}
