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

// Package metrics exposes per-action RPC counters via the same
// github.com/rcrowley/go-metrics registered-meter idiom the teacher's own
// metrics package uses for p2p/in and p2p/out (metrics/metrics.go), applied
// here to the orchestrator's action handlers (§4.5) instead of raw
// connection byte counts.
package metrics

import (
	"sync"

	gometrics "github.com/rcrowley/go-metrics"
)

var reg = gometrics.NewRegistry()

// Registry exposes the underlying registry, e.g. for a future /metrics
// HTTP exporter.
func Registry() gometrics.Registry { return reg }

var (
	QueriesReceived  = gometrics.NewRegisteredMeter("kad/queries/received", reg)
	QueriesSent      = gometrics.NewRegisteredMeter("kad/queries/sent", reg)
	RepliesReceived  = gometrics.NewRegisteredMeter("kad/replies/received", reg)
	Timeouts         = gometrics.NewRegisteredMeter("kad/timeouts", reg)
	MalformedDropped = gometrics.NewRegisteredMeter("kad/malformed/dropped", reg)
	StoreAccepted    = gometrics.NewRegisteredMeter("kad/store/accepted", reg)
	StoreRefused     = gometrics.NewRegisteredMeter("kad/store/refused", reg)
)

// perAction lazily registers one meter per action name, mirroring the
// registered-meter-per-kind pattern metrics/metrics.go uses for p2p
// message kinds.
var (
	perActionMu sync.Mutex
	perAction   = map[string]gometrics.Meter{}
)

// ActionMeter returns (creating if necessary) the meter tracking how many
// times action has been dispatched.
func ActionMeter(action string) gometrics.Meter {
	perActionMu.Lock()
	defer perActionMu.Unlock()
	if m, ok := perAction[action]; ok {
		return m
	}
	m := gometrics.NewRegisteredMeter("kad/action/"+action, reg)
	perAction[action] = m
	return m
}
