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
	"errors"
	"sync"

	"github.com/kadnet/kad/internal/id"
)

// ErrDuplicateKey is returned by Insert when the table already holds a
// record for the given key (§7 Duplicate-key).
var ErrDuplicateKey = errors.New("record: key already exists")

// Table is the local record table of §3: "exclusively owned by the
// orchestrator and guarded by a mutex." It never stores on disk (§1
// Non-goals exclude persistence beyond this in-memory table).
type Table struct {
	mu      sync.Mutex
	records map[id.ID]KV
}

// NewTable constructs an empty record table.
func NewTable() *Table {
	return &Table{records: make(map[id.ID]KV)}
}

// Get returns the stored record for key, if any.
func (t *Table) Get(key id.ID) (KV, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	kv, ok := t.records[key]
	return kv, ok
}

// Insert stores kv under kv.Key unless an entry already exists there
// (§4.5 store: "inserting over an existing key is refused with
// status=bad"). Returns ErrDuplicateKey when refused.
func (t *Table) Insert(kv KV) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.records[kv.Key]; exists {
		return ErrDuplicateKey
	}
	t.records[kv.Key] = kv
	return nil
}

// Delete removes key's record, if present.
func (t *Table) Delete(key id.ID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.records, key)
}

// Update overwrites an existing key's stored record unconditionally, used by
// the republish loop (§4.6) to bump a data record's timestamp in place.
func (t *Table) Update(kv KV) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records[kv.Key] = kv
}

// Snapshot returns a copy of every stored record, for the republish loop to
// walk without holding the table lock across network I/O.
func (t *Table) Snapshot() []KV {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]KV, 0, len(t.records))
	for _, kv := range t.records {
		out = append(out, kv)
	}
	return out
}

// Len reports the number of stored records.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.records)
}
