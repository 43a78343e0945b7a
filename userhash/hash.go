// Package userhash obfuscates user identities in recorded activity.
//
// A userhash lets activity from one user be correlated within a channel
// over a window of time, but not easily across channels or across long
// spans. It is HMAC over the user ID, the channel, and a time quantum.
// The key must be preserved across program instances for stats windows to
// line up.
//
// Userhashes are an obfuscation layer, not a privacy guarantee.
package userhash

import (
	"crypto/hmac"
	"encoding/binary"
	"hash"
	"time"

	"golang.org/x/crypto/sha3"
)

// Size is the size of a userhash in bytes.
const Size = 28

// TimeQuantum is the duration for which hashing a user and channel gives
// the same result.
const TimeQuantum = 24 * time.Hour

// Hash is an obfuscated identifier for a user in a channel.
type Hash [Size]byte

// A Hasher creates Hash values.
type Hasher struct {
	mac hash.Hash
}

// New creates a Hasher from a pseudorandom key.
func New(prk []byte) Hasher {
	return Hasher{mac: hmac.New(sha3.New224, prk)}
}

// Hash computes a userhash and writes it into dst.
func (h Hasher) Hash(dst *Hash, uid, where string, when time.Time) *Hash {
	h.mac.Reset()
	t := when.UnixNano() / TimeQuantum.Nanoseconds()
	b := make([]byte, 8, 8+len(uid)+1+len(where))
	binary.LittleEndian.PutUint64(b, uint64(t))
	b = append(b, uid...)
	b = append(b, 0xaa)
	b = append(b, where...)
	h.mac.Write(b)
	return (*Hash)(h.mac.Sum(dst[:0]))
}
