package field

import "github.com/zeebo/blake3"

// blake3Hasher implements byteHasher using github.com/zeebo/blake3, the
// default h_s provider (SPEC_FULL.md §B), grounded on
// parsdao-pars/zk — the pack repo that pulls in zeebo/blake3 for exactly
// this kind of fast, tree-friendly byte hashing.
type blake3Hasher struct{}

func (blake3Hasher) hashBytes(data []byte) Element {
	digest := blake3.Sum256(data)
	return FromBytesLE(digest[:])
}
