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

package node

import (
	"context"
	"time"

	"github.com/kadnet/kad/internal/record"
	"github.com/kadnet/kad/logger/glog"
)

// Start launches the refresh and republish background loops of §4.6. Close
// stops them.
func (n *Node) Start() {
	n.stopRefresh = make(chan struct{})
	n.stopRepublish = make(chan struct{})

	n.wg.Add(2)
	go n.refreshLoop()
	go n.republishLoop()
}

// refreshLoop walks the trie every RefreshInterval, running §4.1-refresh on
// any leaf untouched for longer than RefreshTime.
func (n *Node) refreshLoop() {
	defer n.wg.Done()
	ticker := n.clock.NewTicker(n.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-n.stopRefresh:
			return
		case <-ticker.C:
			n.runRefresh()
		}
	}
}

func (n *Node) runRefresh() {
	cutoff := n.clock.Now().Add(-n.cfg.RefreshTime)
	for _, ref := range n.table.StaleBuckets(cutoff) {
		target, err := n.table.RandomTargetFor(ref)
		if err != nil {
			glog.V(3).Infof("node: refresh: random target: %v", err)
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), n.cfg.RefreshInterval)
		contacts := n.Lookup(ctx, target)
		cancel()
		n.table.ReplaceBucket(ref, contacts)
	}
}

// republishLoop walks the record table every RepublishInterval, erasing
// expired provider records and re-broadcasting aging data records (§4.6).
func (n *Node) republishLoop() {
	defer n.wg.Done()
	ticker := n.clock.NewTicker(RepublishInterval)
	defer ticker.Stop()

	for {
		select {
		case <-n.stopRepublish:
			return
		case <-ticker.C:
			n.runRepublish()
		}
	}
}

func (n *Node) runRepublish() {
	now := n.clock.Now()
	for _, kv := range n.records.Snapshot() {
		if kv.Type == record.TypeProvider {
			prov, err := record.DecodeProvider(kv.Value)
			if err != nil || prov.Expired(now) {
				n.records.Delete(kv.Key)
			}
			continue
		}

		age := now.Sub(time.Unix(int64(kv.Timestamp), 0))
		if age <= RepublishTime {
			continue
		}

		refreshed := kv
		if kv.Origin.ID.Equal(n.localID) {
			// Only the originating node holds the private key a bumped
			// timestamp must be re-signed with; a record we merely cache
			// on someone else's behalf is rebroadcast unchanged.
			refreshed.Timestamp = uint64(now.Unix())
			sig, err := n.kp.Sign(refreshed.SigBlob())
			if err != nil {
				glog.V(3).Infof("node: republish: re-sign %v: %v", kv.Key, err)
				continue
			}
			refreshed.Signature = sig
			n.records.Update(refreshed)
		}

		ctx, cancel := context.WithTimeout(context.Background(), RepublishInterval)
		targets := n.Lookup(ctx, kv.Key)
		for _, c := range targets {
			go n.storeAt(ctx, c, refreshed)
		}
		cancel()
	}
}
