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

package lookup

import (
	"context"
	"sync"

	set "gopkg.in/fatih/set.v0"

	"github.com/kadnet/kad/internal/id"
	"github.com/kadnet/kad/internal/peer"
	"github.com/kadnet/kad/internal/record"
)

// FindValuer issues a find_value RPC. Exactly one of value/contacts is
// non-nil on success, matching the find_value_resp schema (§6).
type FindValuer interface {
	FindValue(ctx context.Context, c peer.Contact, key id.ID) (responder peer.Peer, value *record.KV, contacts []peer.Contact, err error)
}

// FindValueFunc adapts a plain function to FindValuer.
type FindValueFunc func(ctx context.Context, c peer.Contact, key id.ID) (peer.Peer, *record.KV, []peer.Contact, error)

func (f FindValueFunc) FindValue(ctx context.Context, c peer.Contact, key id.ID) (peer.Peer, *record.KV, []peer.Contact, error) {
	return f(ctx, c, key)
}

// Validator checks a KV's signature against its claimed origin, used to
// reject forged replies before they can win the quorum race.
type Validator func(kv record.KV) bool

// Storer issues a best-effort store RPC with no reply waiting, used to push
// the winning value out to peers that returned stale data (§4.4
// termination: "issue store(best) to every peer in po").
type Storer func(ctx context.Context, c peer.Contact, kv record.KV)

// ValueResult is the outcome of a quorum value lookup.
type ValueResult struct {
	Best  record.KV
	Found bool
	Count int
}

// Value performs the quorum value lookup of §4.4. When d <= 1 it runs a
// single path; for d > 1 it runs d disjoint paths concurrently over a
// shared claim-set, each peer queried on only one path, merging winners by
// sig_blob equality.
func Value(ctx context.Context, localID, key id.ID, quorum int, seed []peer.Contact, alpha, d int,
	local func(id.ID) (record.KV, bool), finder FindValuer, validate Validator, store Storer) ValueResult {

	var preseeded *record.KV
	cntSeed := 0
	if kv, ok := local(key); ok {
		if quorum < 2 {
			return ValueResult{Best: kv, Found: true, Count: 1}
		}
		preseeded = &kv
		cntSeed = 1
	}

	if d < 1 {
		d = 1
	}
	partitions := partition(seed, d)

	claims := set.New()
	var mu sync.Mutex
	var wg sync.WaitGroup

	type pathOutcome struct {
		best *record.KV
		cnt  int
		po   []peer.Contact
	}
	outcomes := make([]pathOutcome, d)

	for i := 0; i < d; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			best, cnt, po := runPath(ctx, localID, key, quorum, partitions[i], claims, alpha, finder, validate, preseeded, cntSeed)
			mu.Lock()
			outcomes[i] = pathOutcome{best: best, cnt: cnt, po: po}
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	var winner *record.KV
	total := 0
	var stale []peer.Contact
	seenSig := make(map[string]bool)
	for _, o := range outcomes {
		total += o.cnt
		stale = append(stale, o.po...)
		if o.best == nil {
			continue
		}
		sig := string(o.best.SigBlob())
		if seenSig[sig] {
			continue
		}
		seenSig[sig] = true
		if winner == nil || o.best.Timestamp > winner.Timestamp {
			winner = o.best
		}
	}

	if winner != nil && store != nil {
		for _, c := range stale {
			go store(ctx, c, *winner)
		}
	}

	if winner == nil {
		return ValueResult{Found: false, Count: total}
	}
	return ValueResult{Best: *winner, Found: true, Count: total}
}

// partition splits seed into d round-robin groups, so D disjoint lookups
// start from disjoint subsets of the initial shortlist (§4.4).
func partition(seed []peer.Contact, d int) [][]peer.Contact {
	out := make([][]peer.Contact, d)
	for i, c := range seed {
		g := i % d
		out[g] = append(out[g], c)
	}
	return out
}

func runPath(ctx context.Context, localID, key id.ID, quorum int, pn []peer.Contact, claims *set.Set, alpha int,
	finder FindValuer, validate Validator, preseeded *record.KV, cntSeed int) (best *record.KV, cnt int, po []peer.Contact) {

	best = preseeded
	cnt = cntSeed
	var pb []peer.Contact
	pq := set.New()

	claim := func(c peer.Contact) bool {
		if claims.Has(c.ID.String()) {
			return false
		}
		claims.Add(c.ID.String())
		return true
	}

	for len(pn) > 0 {
		if cnt >= quorum {
			break
		}

		batch := make([]peer.Contact, 0, alpha)
		for len(pn) > 0 && len(batch) < alpha {
			c := pn[0]
			pn = pn[1:]
			if pq.Has(c.ID.String()) {
				continue
			}
			if !claim(c) {
				continue
			}
			pq.Add(c.ID.String())
			batch = append(batch, c)
		}
		if len(batch) == 0 {
			continue
		}

		type reply struct {
			responder peer.Peer
			value     *record.KV
			contacts  []peer.Contact
			ok        bool
		}
		replies := make([]reply, len(batch))
		var wg sync.WaitGroup
		for i, c := range batch {
			wg.Add(1)
			go func(i int, c peer.Contact) {
				defer wg.Done()
				responder, value, contacts, err := finder.FindValue(ctx, c, key)
				if err != nil {
					return
				}
				replies[i] = reply{responder: responder, value: value, contacts: contacts, ok: true}
			}(i, c)
		}
		wg.Wait()

		for bi, r := range replies {
			origin := batch[bi]
			if !r.ok {
				continue
			}
			switch {
			case r.value != nil:
				if validate != nil && !validate(*r.value) {
					continue
				}
				cnt++
				respondent := peer.Contact{ID: origin.ID, Addresses: origin.Addresses}
				switch {
				case best == nil:
					best = r.value
					pb = []peer.Contact{respondent}
				case r.value.Timestamp == best.Timestamp:
					pb = append(pb, respondent)
				case r.value.Timestamp > best.Timestamp:
					po = append(po, pb...)
					pb = []peer.Contact{respondent}
					best = r.value
				default:
					po = append(po, respondent)
				}
			case r.contacts != nil:
				for _, c := range r.contacts {
					if c.ID.Equal(localID) || pq.Has(c.ID.String()) {
						continue
					}
					pn = append(pn, c)
				}
			}
		}
	}

	return best, cnt, po
}
