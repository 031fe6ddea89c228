package ic10

import (
	"hash/crc32"
	"sort"
)

// Hash computes the name hash the game uses for prefab and device names:
// CRC-32 over the UTF-8 bytes, reinterpreted as a signed 32-bit integer.
func Hash(s string) int32 {
	return int32(crc32.ChecksumIEEE([]byte(s)))
}

// HashPair is a hashed string and its hash.
type HashPair struct {
	Text string
	Hash int32
}

// HashRegistry remembers every string hashed during one compile so tooling
// can turn numbers in the output back into names.
type HashRegistry struct {
	byHash map[int32]string
}

func NewHashRegistry() *HashRegistry {
	return &HashRegistry{byHash: make(map[int32]string)}
}

// Add hashes s and records the pair.
func (r *HashRegistry) Add(s string) int32 {
	h := Hash(s)
	r.byHash[h] = s
	return h
}

// Lookup returns the string that produced h.
func (r *HashRegistry) Lookup(h int32) (string, bool) {
	s, ok := r.byHash[h]
	return s, ok
}

// Pairs returns every recorded pair sorted by text.
func (r *HashRegistry) Pairs() []HashPair {
	out := make([]HashPair, 0, len(r.byHash))
	for h, s := range r.byHash {
		out = append(out, HashPair{Text: s, Hash: h})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Text < out[j].Text })
	return out
}
