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

package identity

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"github.com/spf13/afero"
	"golang.org/x/crypto/scrypt"

	"github.com/kadnet/kad/internal/id"
)

const (
	scryptN      = 1 << 15
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 32
	saltLen      = 16
)

// Keystore holds every remote public key this node has verified via identify (§3: "exclusively owned by the identity
// component and guarded by a mutex"; §4.5 Gatekeeping). A bounded LRU
// (github.com/hashicorp/golang-lru, in the teacher's go.mod) caps memory
// consumed by churn: verified keys live in the plain map, forever; keys
// that are merely "currently being challenged" live in the LRU so a flood
// of bogus identify attempts can't grow memory unboundedly.
type Keystore struct {
	mu       sync.Mutex
	fs       afero.Fs
	dir      string
	verified map[id.ID][]byte // id -> compressed pubkey, permanently trusted
	pending  *lru.Cache       // id -> struct{}, in-flight identify challenges
	w        *watcher
}

// New constructs a Keystore rooted at dir on fs (typically afero.NewOsFs(),
// or afero.NewMemMapFs() in tests).
func New(fs afero.Fs, dir string) (*Keystore, error) {
	cache, err := lru.New(256)
	if err != nil {
		return nil, err
	}
	return &Keystore{
		fs:       fs,
		dir:      dir,
		verified: make(map[id.ID][]byte),
		pending:  cache,
	}, nil
}

// MarkPending records that an identify challenge to peerID is in flight, so
// IsPending can deduplicate concurrent challenges (§4.5 gatekeeping).
func (k *Keystore) MarkPending(peerID id.ID) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.pending.Add(peerID, struct{}{})
}

// IsPending reports whether an identify challenge to peerID is outstanding.
func (k *Keystore) IsPending(peerID id.ID) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.pending.Contains(peerID)
}

// Trust records peerID's verified public key, evicting it from the pending
// cache. Called after identify succeeds (hash(pubkey) == id, token
// signature verifies).
func (k *Keystore) Trust(peerID id.ID, pub []byte) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.verified[peerID] = append([]byte(nil), pub...)
	k.pending.Remove(peerID)
}

// Evict removes a speculatively-cached key, used when a later signature
// check against it fails (§7 Signature-invalid recovery: "if a key was
// speculatively cached during identify, evict it").
func (k *Keystore) Evict(peerID id.ID) {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.verified, peerID)
}

// Lookup returns the trusted public key for peerID, if any.
func (k *Keystore) Lookup(peerID id.ID) ([]byte, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	pub, ok := k.verified[peerID]
	return pub, ok
}

// Known reports whether peerID's key has been verified, the gate §4.5 checks
// before dispatching any action other than identify/get_addresses.
func (k *Keystore) Known(peerID id.ID) bool {
	_, ok := k.Lookup(peerID)
	return ok
}

// --- persistence -----------------------------------------------------------

type keyFile struct {
	Salt       []byte `json:"salt"`
	Nonce      []byte `json:"nonce"`
	CipherText []byte `json:"ciphertext"`
}

// ErrDecrypt is returned when a keyfile fails to decrypt under the supplied
// passphrase.
var ErrDecrypt = errors.New("identity: could not decrypt key file")

// ExportFile writes kp's private key, encrypted under passphrase: scrypt
// derives the key from the passphrase and a random salt, and the stdlib's
// AES-GCM seals the private key under a random 12-byte nonce (the teacher's
// accounts/key_store_passphrase.go uses the same scrypt derivation with
// AES-CTR instead).
func (k *Keystore) ExportFile(filename string, kp *KeyPair, passphrase string) error {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return err
	}
	dk, err := scrypt.Key([]byte(passphrase), salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return fmt.Errorf("identity: derive key: %w", err)
	}
	nonce := make([]byte, 12)
	if _, err := rand.Read(nonce); err != nil {
		return err
	}
	ct, err := sealAESGCM(dk, nonce, kp.PrivateKeyBytes())
	if err != nil {
		return err
	}
	blob, err := json.Marshal(keyFile{Salt: salt, Nonce: nonce, CipherText: ct})
	if err != nil {
		return err
	}
	path := k.joinPath(filename)
	if err := afero.WriteFile(k.fs, path, blob, 0o600); err != nil {
		return fmt.Errorf("identity: write key file: %w", err)
	}
	return nil
}

// ImportFile reads and decrypts a key file written by ExportFile.
func (k *Keystore) ImportFile(filename string, passphrase string) (*KeyPair, error) {
	path := k.joinPath(filename)
	blob, err := afero.ReadFile(k.fs, path)
	if err != nil {
		return nil, fmt.Errorf("identity: read key file: %w", err)
	}
	var kf keyFile
	if err := json.Unmarshal(blob, &kf); err != nil {
		return nil, fmt.Errorf("identity: malformed key file: %w", err)
	}
	dk, err := scrypt.Key([]byte(passphrase), kf.Salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return nil, err
	}
	pt, err := openAESGCM(dk, kf.Nonce, kf.CipherText)
	if err != nil {
		return nil, ErrDecrypt
	}
	return FromPrivateKeyBytes(pt)
}

func (k *Keystore) joinPath(filename string) string {
	if filename == "" {
		return k.dir
	}
	return k.dir + "/" + filename
}

func sealAESGCM(key, nonce, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key[:16])
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return gcm.Seal(nil, nonce, plaintext, nil), nil
}

func openAESGCM(key, nonce, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key[:16])
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return gcm.Open(nil, nonce, ciphertext, nil)
}
