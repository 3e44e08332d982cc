// Package genetics implements the deterministic genetics engine: DNA
// crossover and mutation, stat inheritance, element and rarity resolution,
// mutation typing, compatibility scoring, and the pseudo-random word
// expander the minting pipeline uses.
//
// Every function in this package is pure: identical inputs (including seeds)
// always yield identical outputs. Randomness is hash-derived, never drawn
// from a stateful generator, which is what makes the engine safe to call
// from replayable state-machine steps.
package genetics

import (
	"encoding/binary"

	"golang.org/x/crypto/sha3"

	"github.com/petverse/go-pets-backend/internal/domain"
)

// Salts namespace the hash-derived roll streams so that, e.g., the mutation
// roll for segment 3 can never collide with its inheritance roll.
const (
	saltInherit  = "inherit"
	saltMutate   = "mutate"
	saltStats    = "stats"
	saltElement  = "element"
	saltRarity   = "rarity"
	saltMutation = "mutation"
	saltGenes    = "genes"
	saltProfile  = "profile"
)

// keccak256 hashes the concatenation of the given chunks with legacy
// Keccak-256 (the pre-NIST padding variant used by EVM chains).
func keccak256(chunks ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, c := range chunks {
		h.Write(c)
	}
	return h.Sum(nil)
}

// rollWord derives a 64-bit roll from (seed, index, salt).
func rollWord(seed, index uint64, salt string) uint64 {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], seed)
	binary.BigEndian.PutUint64(buf[8:], index)
	return binary.BigEndian.Uint64(keccak256(buf[:], []byte(salt)))
}

// dnaRoll derives a 64-bit roll from (dna, index, salt). It is the DNA-seeded
// counterpart of rollWord used by the offspring resolution functions.
func dnaRoll(dna domain.DNA, index uint64, salt string) uint64 {
	var idx [8]byte
	binary.BigEndian.PutUint64(idx[:], index)
	return binary.BigEndian.Uint64(keccak256(dna.Bytes(), idx[:], []byte(salt)))
}
