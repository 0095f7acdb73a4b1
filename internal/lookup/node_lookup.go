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

// Package lookup implements the two iterative lookup engines of §4.3/§4.4:
// plain node lookup and quorum-valued, disjoint-path-capable value lookup.
// Both are grounded on the teacher's p2p/discover/table.go `lookup()`
// (ALPHA-parallel rounds, asked/visited bookkeeping, closest-set
// convergence), generalized from a fixed "closest" accumulator to the
// spec's explicit shortlist/visited/res state machine, and from a single
// path to the S/Kademlia-style disjoint-path quorum search. Visited and
// claimed peers are tracked with gopkg.in/fatih/set.v0, the same set
// package the teacher vendors, since both need thread-safe membership
// tests shared across goroutines within (and, for claims, across) a round.
package lookup

import (
	"context"
	"sort"
	"sync"

	set "gopkg.in/fatih/set.v0"

	"github.com/kadnet/kad/internal/id"
	"github.com/kadnet/kad/internal/peer"
)

// FindNoder issues a find_node RPC against c for target and returns the
// responder's resolved identity plus the contacts it returned. It must
// already embed NET_TIMEOUT/failover handling (internal/queue); a timeout
// is reported as a non-nil error.
type FindNoder interface {
	FindNode(ctx context.Context, c peer.Contact, target id.ID) (peer.Peer, []peer.Contact, error)
}

// FindNodeFunc adapts a plain function to FindNoder.
type FindNodeFunc func(ctx context.Context, c peer.Contact, target id.ID) (peer.Peer, []peer.Contact, error)

func (f FindNodeFunc) FindNode(ctx context.Context, c peer.Contact, target id.ID) (peer.Peer, []peer.Contact, error) {
	return f(ctx, c, target)
}

func visitedKey(p peer.Contact, a peer.Addr) string {
	return p.ID.String() + "|" + a.String()
}

func byDistance(target id.ID, contacts []peer.Contact) {
	sort.Slice(contacts, func(i, j int) bool {
		return id.Xor(contacts[i].ID, target).Less(id.Xor(contacts[j].ID, target))
	})
}

// Node performs the iterative node lookup of §4.3, returning up to k
// contacts closest to target, sorted ascending by XOR distance, excluding
// self.
func Node(ctx context.Context, localID id.ID, target id.ID, seed []peer.Contact, alpha, k int, finder FindNoder) []peer.Contact {
	shortlist := append([]peer.Contact(nil), seed...)
	visited := set.New()
	var res []peer.Contact
	resByID := make(map[id.ID]bool)

	var closest *id.ID // previous round's best distance, nil until first round completes

	for {
		byDistance(target, shortlist)

		batch := make([]peer.Contact, 0, alpha)
		for len(shortlist) > 0 && len(batch) < alpha {
			c := shortlist[0]
			shortlist = shortlist[1:]
			batch = append(batch, c)
		}
		if len(batch) == 0 {
			break
		}

		type roundResult struct {
			responder peer.Peer
			contacts  []peer.Contact
			ok        bool
		}
		results := make([]roundResult, len(batch))
		var wg sync.WaitGroup
		for i, c := range batch {
			wg.Add(1)
			go func(i int, c peer.Contact) {
				defer wg.Done()
				for _, a := range c.Addresses {
					visited.Add(visitedKey(c, a))
				}
				responder, contacts, err := finder.FindNode(ctx, c, target)
				if err != nil {
					return
				}
				results[i] = roundResult{responder: responder, contacts: contacts, ok: true}
			}(i, c)
		}
		wg.Wait()

		for _, r := range results {
			if !r.ok {
				continue
			}
			if !resByID[r.responder.ID] {
				resByID[r.responder.ID] = true
				res = append(res, peer.Contact{ID: r.responder.ID, Addresses: []peer.Addr{r.responder.Addr}})
			}
			for _, c := range r.contacts {
				if c.ID.Equal(localID) {
					continue
				}
				already := false
				for _, a := range c.Addresses {
					if visited.Has(visitedKey(c, a)) {
						already = true
						break
					}
				}
				if !already {
					shortlist = append(shortlist, c)
				}
			}
		}

		if len(res) == 0 {
			break
		}
		byDistance(target, res)
		candidateDist := id.Xor(res[0].ID, target)

		if closest != nil && !candidateDist.Less(*closest) {
			break
		}
		closest = &candidateDist

		if len(shortlist) == 0 {
			break
		}
	}

	byDistance(target, res)
	out := make([]peer.Contact, 0, k)
	for _, c := range res {
		if c.ID.Equal(localID) {
			continue
		}
		out = append(out, c)
		if len(out) == k {
			break
		}
	}
	return out
}
