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
	"gopkg.in/urfave/cli.v1"

	"github.com/kadnet/kad/internal/debug"
	"github.com/kadnet/kad/internal/routing"
)

// These are all the command line flags kadnode supports. If you add to this
// list, remember to register the flag in both appFlags and any command that
// needs it.
var (
	DataDirFlag = cli.StringFlag{
		Name:  "datadir",
		Usage: "Data directory for the key file and log output",
		Value: defaultDataDir(),
	}
	KeyFileFlag = cli.StringFlag{
		Name:  "keyfile",
		Usage: "Path to the node's encrypted identity key file (generated on first run if absent)",
		Value: "node.key",
	}
	ListenAddrFlag = cli.StringFlag{
		Name:  "addr",
		Usage: "Listen address, host:port",
		Value: "0.0.0.0:4253",
	}
	BootstrapFlag = cli.StringSliceFlag{
		Name:  "bootstrap",
		Usage: "Bootstrap peer, id@host:port (may be given multiple times)",
	}
	NoPortMapFlag = cli.BoolFlag{
		Name:  "no-portmap",
		Usage: "Disable UPnP/NAT-PMP port forwarding",
	}

	// Recognized constants (§6), exposed as flags so an operator can tune a
	// deployment without recompiling, same spirit as the teacher's
	// NetworkIdFlag/CacheFlag knobs.
	KFlag = cli.IntFlag{
		Name:  "k",
		Usage: "Bucket size / replication factor",
		Value: routing.DefaultK,
	}
	AlphaFlag = cli.IntFlag{
		Name:  "alpha",
		Usage: "Lookup concurrency parameter",
		Value: routing.DefaultAlpha,
	}
	AddrLimitFlag = cli.IntFlag{
		Name:  "addr-limit",
		Usage: "Max addresses retained per routing table entry",
		Value: routing.DefaultAddrLimit,
	}
	MaxStaleFlag = cli.IntFlag{
		Name:  "max-stale",
		Usage: "Failed liveness checks before an address is evicted",
		Value: routing.DefaultMaxStale,
	}
	ReplCacheSizeFlag = cli.IntFlag{
		Name:  "replacement-cache-size",
		Usage: "Per-bucket replacement cache size",
		Value: routing.DefaultReplCacheSize,
	}
	RefreshIntervalFlag = cli.DurationFlag{
		Name:  "refresh-interval",
		Usage: "How often the refresh loop scans for stale buckets",
		Value: routing.DefaultRefreshInterval,
	}
	RefreshTimeFlag = cli.DurationFlag{
		Name:  "refresh-time",
		Usage: "A bucket untouched longer than this is refreshed",
		Value: routing.DefaultRefreshTime,
	}
	BucketIPLimitFlag = cli.IntFlag{
		Name:  "bucket-ip-limit",
		Usage: "Max bucket entries sharing one subnet (IP-diversity hardening)",
		Value: routing.DefaultBucketIPLimit,
	}
)

func appFlags() []cli.Flag {
	flags := []cli.Flag{
		DataDirFlag,
		KeyFileFlag,
		ListenAddrFlag,
		BootstrapFlag,
		NoPortMapFlag,
		KFlag,
		AlphaFlag,
		AddrLimitFlag,
		MaxStaleFlag,
		ReplCacheSizeFlag,
		RefreshIntervalFlag,
		RefreshTimeFlag,
		BucketIPLimitFlag,
	}
	return append(flags, debug.Flags...)
}

func configFromContext(ctx *cli.Context) routing.Config {
	return routing.Config{
		K:               ctx.GlobalInt(KFlag.Name),
		Alpha:           ctx.GlobalInt(AlphaFlag.Name),
		AddrLimit:       ctx.GlobalInt(AddrLimitFlag.Name),
		MaxStale:        ctx.GlobalInt(MaxStaleFlag.Name),
		ReplCacheSize:   ctx.GlobalInt(ReplCacheSizeFlag.Name),
		RefreshInterval: ctx.GlobalDuration(RefreshIntervalFlag.Name),
		RefreshTime:     ctx.GlobalDuration(RefreshTimeFlag.Name),
		BucketIPLimit:   ctx.GlobalInt(BucketIPLimitFlag.Name),
	}
}
