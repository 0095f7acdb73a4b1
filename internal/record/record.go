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

// Package record implements the signed-record data model of §3: KV records,
// provider records, and the sig_blob each is validated against. It is
// grounded on the teacher's core/types.Receipt-style "deterministic encoding
// plus signature" pattern (core/types/transaction_signing.go), with RLP's
// positional encoding replaced by a fixed-order byte concatenation (see
// SigBlob).
package record

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/kadnet/kad/internal/id"
	"github.com/kadnet/kad/internal/identity"
	"github.com/kadnet/kad/internal/peer"
)

// RecordType distinguishes opaque application data from provider
// announcements (§3).
type RecordType int

const (
	TypeData     RecordType = 0
	TypeProvider RecordType = 1
)

// KV is a signed record (§3).
type KV struct {
	Key       id.ID
	Type      RecordType
	Value     []byte
	Origin    peer.Peer
	Timestamp uint64
	Signature []byte
}

// SigBlob returns the deterministic byte encoding {key, value, origin.id,
// timestamp} that a KV's Signature is computed over. Field order and
// fixed-width integers are chosen so the blob is canonical regardless of
// encoder: there's exactly one way to lay these four fields out.
func (kv KV) SigBlob() []byte {
	buf := make([]byte, 0, id.ByteLen+len(kv.Value)+id.ByteLen+8)
	buf = append(buf, kv.Key.Bytes()...)
	buf = append(buf, kv.Value...)
	buf = append(buf, kv.Origin.ID.Bytes()...)
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], kv.Timestamp)
	buf = append(buf, ts[:]...)
	return buf
}

// Valid reports whether kv.Signature verifies against origin.id's public key
// over SigBlob() (§3).
func (kv KV) Valid(pub []byte) bool {
	return identity.Verify(pub, kv.SigBlob(), kv.Signature)
}

// Sign produces a KV's signature using kp, setting Origin to kp's id and
// originAddr.
func Sign(kp *identity.KeyPair, key id.ID, typ RecordType, value []byte, originAddr peer.Addr, timestamp uint64) (KV, error) {
	kv := KV{
		Key:       key,
		Type:      typ,
		Value:     value,
		Origin:    peer.Peer{ID: kp.ID(), Addr: originAddr},
		Timestamp: timestamp,
	}
	sig, err := kp.Sign(kv.SigBlob())
	if err != nil {
		return KV{}, fmt.Errorf("record: sign: %w", err)
	}
	kv.Signature = sig
	return kv, nil
}

// Provider is the provider-record payload carried inside a KV.Value when
// KV.Type == TypeProvider (§3).
type Provider struct {
	ProviderID id.ID
	Expiry     uint64
	Signature  []byte
}

// signBlob returns the deterministic "{provider_id}:{expiry}" blob (§3).
func (p Provider) signBlob() []byte {
	return []byte(fmt.Sprintf("%s:%d", p.ProviderID.String(), p.Expiry))
}

// Valid reports whether p.Signature verifies against providerID's public key.
func (p Provider) Valid(pub []byte) bool {
	return identity.Verify(pub, p.signBlob(), p.Signature)
}

// SignProvider builds and signs a Provider record expiring at expiry.
func SignProvider(kp *identity.KeyPair, expiry time.Time) (Provider, error) {
	p := Provider{ProviderID: kp.ID(), Expiry: uint64(expiry.Unix())}
	sig, err := kp.Sign(p.signBlob())
	if err != nil {
		return Provider{}, fmt.Errorf("record: sign provider: %w", err)
	}
	p.Signature = sig
	return p, nil
}

// Expired reports whether the provider's expiry has already passed as of
// now (§4.5: store must validate "expiry must be within REPUBLISH_TIME of
// now"; §4.6: republish erases providers past expiry).
func (p Provider) Expired(now time.Time) bool {
	return uint64(now.Unix()) > p.Expiry
}
