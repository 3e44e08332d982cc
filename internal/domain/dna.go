// Package domain defines the persistence models and core value types for the
// pet game backend: pets, genetic profiles, oracle randomness requests,
// breeding requests, and the fixed-width DNA representation they share.
package domain

import (
	"encoding/hex"
	"fmt"
)

// DNA segment geometry. A DNA value is 256 bits wide and divided into 8
// equal 32-bit segments; all crossover and mutation operations work on whole
// segments.
const (
	DNASegments    = 8
	DNASegmentBits = 32
	DNABytes       = 32
)

// dnaSegmentMask isolates a single 32-bit segment within a word.
const dnaSegmentMask = uint64(1)<<DNASegmentBits - 1

// DNA is an opaque 256-bit bit pattern seeding an entity's derived genetic
// traits. The four words are stored little-endian: word 0 holds segments 0
// and 1, word 3 holds segments 6 and 7. Segment extraction and replacement
// truncate to exactly 32 bits; there is no arbitrary-precision arithmetic
// anywhere in the genetics pipeline.
type DNA [4]uint64

// Segment returns the 32-bit segment at index i (0..7).
// Out-of-range indices are a programming error and panic.
func (d DNA) Segment(i int) uint32 {
	if i < 0 || i >= DNASegments {
		panic(fmt.Sprintf("domain: DNA segment index %d out of range", i))
	}
	return uint32(d[i/2] >> (uint(i%2) * DNASegmentBits) & dnaSegmentMask)
}

// WithSegment returns a copy of d with segment i replaced by seg.
func (d DNA) WithSegment(i int, seg uint32) DNA {
	if i < 0 || i >= DNASegments {
		panic(fmt.Sprintf("domain: DNA segment index %d out of range", i))
	}
	shift := uint(i%2) * DNASegmentBits
	d[i/2] = d[i/2]&^(dnaSegmentMask<<shift) | uint64(seg)<<shift
	return d
}

// Bytes returns the 32-byte big-endian encoding of the DNA value.
func (d DNA) Bytes() []byte {
	out := make([]byte, DNABytes)
	for w := 0; w < 4; w++ {
		v := d[3-w]
		for b := 0; b < 8; b++ {
			out[w*8+b] = byte(v >> (uint(7-b) * 8))
		}
	}
	return out
}

// DNAFromBytes decodes a 32-byte big-endian value into a DNA. Shorter inputs
// are left-padded with zeros; longer inputs keep the trailing 32 bytes.
func DNAFromBytes(b []byte) DNA {
	var buf [DNABytes]byte
	if len(b) > DNABytes {
		b = b[len(b)-DNABytes:]
	}
	copy(buf[DNABytes-len(b):], b)

	var d DNA
	for w := 0; w < 4; w++ {
		var v uint64
		for i := 0; i < 8; i++ {
			v = v<<8 | uint64(buf[w*8+i])
		}
		d[3-w] = v
	}
	return d
}

// String returns the DNA as a 64-character lowercase hex string.
func (d DNA) String() string { return hex.EncodeToString(d.Bytes()) }

// ParseDNA decodes a 64-character hex string produced by DNA.String.
func ParseDNA(s string) (DNA, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return DNA{}, fmt.Errorf("parse dna: %w", err)
	}
	if len(b) != DNABytes {
		return DNA{}, fmt.Errorf("parse dna: want %d bytes, got %d", DNABytes, len(b))
	}
	return DNAFromBytes(b), nil
}

// Element is a pet's elemental affinity. The four base elements combine into
// four hybrid elements via the special-combination table (see the breeding
// package); hybrids never appear as breeding-table inputs of themselves.
type Element uint8

const (
	ElementFire Element = iota
	ElementWater
	ElementEarth
	ElementAir
	ElementSteam
	ElementLava
	ElementStorm
	ElementMud

	// ElementCount is the number of valid elements; values >= ElementCount
	// are rejected at call boundaries.
	ElementCount = 8
)

// Valid reports whether e is a defined element.
func (e Element) Valid() bool { return e < ElementCount }

func (e Element) String() string {
	switch e {
	case ElementFire:
		return "fire"
	case ElementWater:
		return "water"
	case ElementEarth:
		return "earth"
	case ElementAir:
		return "air"
	case ElementSteam:
		return "steam"
	case ElementLava:
		return "lava"
	case ElementStorm:
		return "storm"
	case ElementMud:
		return "mud"
	default:
		return fmt.Sprintf("element(%d)", uint8(e))
	}
}

// Rarity is a pet's rarity tier, ordered from most to least common.
type Rarity uint8

const (
	RarityCommon Rarity = iota
	RarityRare
	RarityEpic
	RarityLegendary

	// RarityCount is the number of valid tiers; values >= RarityCount are
	// rejected at call boundaries.
	RarityCount = 4
)

// Valid reports whether r is a defined rarity tier.
func (r Rarity) Valid() bool { return r < RarityCount }

func (r Rarity) String() string {
	switch r {
	case RarityCommon:
		return "common"
	case RarityRare:
		return "rare"
	case RarityEpic:
		return "epic"
	case RarityLegendary:
		return "legendary"
	default:
		return fmt.Sprintf("rarity(%d)", uint8(r))
	}
}

// MutationType classifies which part of an offspring a mutation touched.
type MutationType uint8

const (
	MutationNone MutationType = iota
	MutationStats
	MutationElement
	MutationRarity
	MutationMultiple
)

func (m MutationType) String() string {
	switch m {
	case MutationNone:
		return "none"
	case MutationStats:
		return "stats"
	case MutationElement:
		return "element"
	case MutationRarity:
		return "rarity"
	case MutationMultiple:
		return "multiple"
	default:
		return fmt.Sprintf("mutation(%d)", uint8(m))
	}
}

// RequestKind tags the domain a randomness request belongs to. The tag is
// used only for validation (expected word count, consumer sanity checks),
// never for dispatch: fulfillments are routed by the requester recorded on
// the request itself.
type RequestKind uint8

const (
	KindMinting RequestKind = iota
	KindBattle
	KindBreeding
	KindEvent

	// KindCount is the number of defined request kinds.
	KindCount = 4
)

// Valid reports whether k is a defined request kind.
func (k RequestKind) Valid() bool { return k < KindCount }

func (k RequestKind) String() string {
	switch k {
	case KindMinting:
		return "minting"
	case KindBattle:
		return "battle"
	case KindBreeding:
		return "breeding"
	case KindEvent:
		return "event"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ParseRequestKind maps a kind name to its RequestKind value.
func ParseRequestKind(s string) (RequestKind, error) {
	switch s {
	case "minting":
		return KindMinting, nil
	case "battle":
		return KindBattle, nil
	case "breeding":
		return KindBreeding, nil
	case "event":
		return KindEvent, nil
	default:
		return 0, fmt.Errorf("unknown request kind %q", s)
	}
}

// StatCount is the number of core stats a pet carries
// (strength, agility, intelligence, vitality, charm, luck).
const StatCount = 6

// Stats is the fixed-size stat vector shared by pets and offspring
// calculations.
type Stats [StatCount]int

// StatMin and StatMax bound every stat produced by the genetics engine.
const (
	StatMin = 10
	StatMax = 500
)
