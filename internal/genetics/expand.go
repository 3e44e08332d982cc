package genetics

import (
	"encoding/binary"

	"github.com/petverse/go-pets-backend/internal/domain"
)

// ExpandWords expands a single oracle-supplied random word into n derived
// 64-bit words by repeated hashing. The stream is deterministic in (word, n
// prefix): expanding to a larger n keeps the shorter prefix unchanged, so a
// consumer may re-expand with a bigger count without invalidating earlier
// draws.
func ExpandWords(word uint64, n int) []uint64 {
	if n <= 0 {
		return nil
	}
	out := make([]uint64, n)
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], word)
	for i := range out {
		binary.BigEndian.PutUint64(buf[8:], uint64(i))
		out[i] = binary.BigEndian.Uint64(keccak256(buf[:]))
	}
	return out
}

// MixWord folds an oracle word into a DNA value, producing a fresh
// deterministic bit pattern. Resolution steps that each consume their own
// oracle word (element, rarity, mutation) mix it into the offspring DNA this
// way so the steps roll independently.
func MixWord(dna domain.DNA, word uint64) domain.DNA {
	var w [8]byte
	binary.BigEndian.PutUint64(w[:], word)
	return domain.DNAFromBytes(keccak256(dna.Bytes(), w[:]))
}
