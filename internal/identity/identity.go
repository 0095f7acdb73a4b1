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

// Package identity implements the signing collaborator of §6: asymmetric
// keypair generation, signing, and verification, plus the keystore that
// guards discovered public keys (§3 "Ownership": the keystore is exclusively
// owned by the identity component and guarded by a mutex). The teacher signs
// with cgo-bound secp256k1 (crypto/secp256k1, accounts/key.go); we ground the
// same ECDSA-over-secp256k1 scheme on the pure-Go
// github.com/btcsuite/btcd/btcec/v2, which appears in the wider retrieval
// pack's ethereum-go-ethereum go.mod, avoiding the cgo dependency while
// keeping the same curve and id-derivation convention.
package identity

import (
	"crypto/sha1"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"

	"github.com/kadnet/kad/internal/id"
)

// ErrSignatureInvalid is returned (or wrapped) whenever a signature fails to
// verify (§7 taxonomy).
var ErrSignatureInvalid = errors.New("identity: signature invalid")

// KeyPair is a local node's private/public signing key. It implements the
// "Signing collaborator" of §6.
type KeyPair struct {
	priv *btcec.PrivateKey
}

// Generate creates a fresh keypair.
func Generate() (*KeyPair, error) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("identity: generate keypair: %w", err)
	}
	return &KeyPair{priv: priv}, nil
}

// FromPrivateKeyBytes reconstructs a KeyPair from a raw 32-byte scalar, used
// when importing a keystore file.
func FromPrivateKeyBytes(b []byte) (*KeyPair, error) {
	if len(b) != 32 {
		return nil, fmt.Errorf("identity: bad private key length %d", len(b))
	}
	priv, _ := btcec.PrivKeyFromBytes(b)
	return &KeyPair{priv: priv}, nil
}

// PrivateKeyBytes returns the raw 32-byte scalar, for persistence.
func (k *KeyPair) PrivateKeyBytes() []byte {
	return k.priv.Serialize()
}

// PubKeyBytes returns the compressed SEC1 public key encoding (§6:
// pub_key_bytes()).
func (k *KeyPair) PubKeyBytes() []byte {
	return k.priv.PubKey().SerializeCompressed()
}

// ID derives the node identifier as sha1(pub_key_bytes), which is exactly
// 160 bits -- no truncation or extension needed (§6).
func (k *KeyPair) ID() id.ID {
	return IDFromPubKey(k.PubKeyBytes())
}

// IDFromPubKey derives a node id from a raw compressed public key, used by
// the orchestrator to check hash(pubkey) == claimed id during identify
// (§4.5, §7 Identity-mismatch).
func IDFromPubKey(pub []byte) id.ID {
	sum := sha1.Sum(pub)
	return id.ID(sum)
}

// Sign produces a signature over msg.
func (k *KeyPair) Sign(msg []byte) ([]byte, error) {
	digest := sha1.Sum(msg)
	sig := ecdsa.Sign(k.priv, digest[:])
	return sig.Serialize(), nil
}

// Verify checks sig against msg under the given compressed public key.
func Verify(pub []byte, msg []byte, sig []byte) bool {
	pk, err := btcec.ParsePubKey(pub)
	if err != nil {
		return false
	}
	parsed, err := ecdsa.ParseDERSignature(sig)
	if err != nil {
		return false
	}
	digest := sha1.Sum(msg)
	return parsed.Verify(digest[:], pk)
}
