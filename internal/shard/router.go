// Package shard holds the pure routing functions that decide which bin
// of the sharded index or text store a hash or a document belongs to.
package shard

import "math/big"

// OfHash returns the 1-based index bin a hex digest routes to:
// (int(hash, 16) mod bins) + 1, matching spec's shard_of_hash formula.
func OfHash(hexDigest string, bins int) int {
	n := new(big.Int)

	if _, ok := n.SetString(hexDigest, 16); !ok {
		return 1
	}

	m := big.NewInt(int64(bins))
	r := new(big.Int).Mod(n, m)

	return int(r.Int64()) + 1
}

// OfDoc returns the 1-based text bin a text_id routes to:
// (text_id mod bins) + 1, matching twiga_text.py's `(text_id %
// bins_total) + 1` and spec's shard_of_doc formula.
func OfDoc(textID int64, bins int) int {
	return int(textID%int64(bins)) + 1
}
