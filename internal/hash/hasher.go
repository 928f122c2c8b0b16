// Package hash computes the BLAKE2b digests used to route tokens to
// index shards.
package hash

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// DigestSize is the digest width in bytes. twiga_core_index.py, the
// write path, uses a 32-byte digest; the query hasher must match it or
// every shard-routing decision for existing data silently corrupts
// (see spec's Design Notes on digest width).
const DigestSize = 32

// Digest returns the lowercase hex BLAKE2b-256 digest of a token.
func Digest(token string) (string, error) {
	h, err := blake2b.New(DigestSize, nil)
	if err != nil {
		return "", err
	}

	h.Write([]byte(token))

	return hex.EncodeToString(h.Sum(nil)), nil
}

// DigestAll hashes every token, preserving order and duplicates — a
// repeated query word yields a repeated hash, which callers need to
// build offset-aligned phrase queries.
func DigestAll(tokens []string) ([]string, error) {
	digests := make([]string, len(tokens))

	for i, t := range tokens {
		d, err := Digest(t)
		if err != nil {
			return nil, err
		}

		digests[i] = d
	}

	return digests, nil
}
