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

// Package id implements the 160-bit node identifier and the XOR distance
// metric the routing trie and lookup engine are built on. The split between
// id (this package) and routing mirrors the teacher's separation of
// p2p/discover's NodeID/logdist helpers from the Table itself.
package id

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcutil/base58"
)

// Width is the recognized BIT_HASH_WIDTH (§6): 160 bits, 20 bytes.
const Width = 160

// ByteLen is Width in bytes.
const ByteLen = Width / 8

// ID is a fixed 160-bit unsigned identifier.
type ID [ByteLen]byte

// Zero is the all-zero identifier, never a valid node id in practice but
// useful as a sentinel (e.g. "no local id yet").
var Zero ID

// FromBytes copies b (which must be exactly ByteLen long) into a new ID.
func FromBytes(b []byte) (ID, error) {
	var out ID
	if len(b) != ByteLen {
		return out, fmt.Errorf("id: bad length %d, want %d", len(b), ByteLen)
	}
	copy(out[:], b)
	return out, nil
}

// Bytes returns a copy of the identifier's big-endian byte representation.
func (a ID) Bytes() []byte {
	b := make([]byte, ByteLen)
	copy(b, a[:])
	return b
}

// String renders the id as a base58 string, matching the wire format's `i`
// field encoding (§6).
func (a ID) String() string {
	return base58Encode(a[:])
}

// Equal reports whether a and b are the same identifier.
func (a ID) Equal(b ID) bool {
	return a == b
}

// IsZero reports whether a is the all-zero identifier.
func (a ID) IsZero() bool {
	return a == Zero
}

// Xor computes the XOR distance d(a,b) = a XOR b.
func Xor(a, b ID) ID {
	var out ID
	for i := range a {
		out[i] = a[i] ^ b[i]
	}
	return out
}

// Less reports whether a, interpreted as an unsigned big-endian integer, is
// numerically less than b. Used to compare two XOR distances.
func (a ID) Less(b ID) bool {
	return bytes.Compare(a[:], b[:]) < 0
}

// CommonPrefixLen returns the number of leading bits a and b share, i.e. the
// position (from the MSB, 0-indexed) of the first differing bit. Returns
// Width if a == b.
func CommonPrefixLen(a, b ID) int {
	for i := 0; i < ByteLen; i++ {
		x := a[i] ^ b[i]
		if x == 0 {
			continue
		}
		for bit := 0; bit < 8; bit++ {
			if x&(0x80>>uint(bit)) != 0 {
				return i*8 + bit
			}
		}
	}
	return Width
}

// SetBit returns a copy of a with its i'th bit (from the MSB, 0-indexed) set
// to val (0 or 1). Used when splitting a trie leaf into two children that
// differ only in the bit at the split depth.
func SetBit(a ID, i int, val int) ID {
	out := a
	byteIdx := i / 8
	bitIdx := uint(i % 8)
	mask := byte(0x80 >> bitIdx)
	if val != 0 {
		out[byteIdx] |= mask
	} else {
		out[byteIdx] &^= mask
	}
	return out
}

// Bit returns the value (0 or 1) of the i'th bit from the MSB (0-indexed).
func (a ID) Bit(i int) int {
	byteIdx := i / 8
	bitIdx := uint(i % 8)
	if a[byteIdx]&(0x80>>bitIdx) != 0 {
		return 1
	}
	return 0
}

// MatchesPrefix reports whether a shares its first cutoff bits with prefix,
// i.e. (a & mask) == (prefix & mask) where mask = ~0 << (Width-cutoff). This
// is the trie-leaf membership test used throughout §4.1.
func MatchesPrefix(a ID, prefix ID, cutoff int) bool {
	return CommonPrefixLen(a, prefix) >= cutoff
}

// Random returns a cryptographically random identifier (used by the caller
// supplied RNG collaborator; see internal/clock for the Rand interface this
// feeds).
func Random(read func([]byte) (int, error)) (ID, error) {
	var out ID
	if _, err := read(out[:]); err != nil {
		return out, err
	}
	return out, nil
}

// RandomWithPrefix returns a random identifier sharing the first cutoff bits
// of prefix, used by the routing trie's refresh routine (§4.1-refresh) to
// target a specific bucket.
func RandomWithPrefix(prefix ID, cutoff int, read func([]byte) (int, error)) (ID, error) {
	var buf [ByteLen]byte
	if _, err := read(buf[:]); err != nil {
		return Zero, err
	}
	out := ID(buf)
	for i := 0; i < cutoff; i++ {
		byteIdx := i / 8
		bitIdx := uint(i % 8)
		mask := byte(0x80 >> bitIdx)
		out[byteIdx] &^= mask
		out[byteIdx] |= prefix[byteIdx] & mask
	}
	return out, nil
}

func base58Encode(b []byte) string {
	return base58.Encode(b)
}

// FromString parses the base58 encoding produced by String, left-padding
// with zero bytes if leading zero bytes were dropped by the encoding.
func FromString(s string) (ID, error) {
	decoded := base58.Decode(s)
	if decoded == nil || (len(decoded) == 0 && s != "") {
		return Zero, fmt.Errorf("id: invalid base58 string %q", s)
	}
	if len(decoded) > ByteLen {
		return Zero, fmt.Errorf("id: decoded length %d exceeds %d", len(decoded), ByteLen)
	}
	var out ID
	copy(out[ByteLen-len(decoded):], decoded)
	return out, nil
}
