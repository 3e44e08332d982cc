package genetics

import (
	"github.com/petverse/go-pets-backend/internal/domain"
)

// Profile bounds. Affinities live on [0,100]; potentials on [50,200].
const (
	affinityBase  = 61  // non-matching elements roll 0..60
	affinityBoost = 40  // own element adds a flat 40
	potentialMin  = 50
	potentialSpan = 151 // potentials roll potentialMin..potentialMin+150
	maxTraits     = 4
	traitSpace    = 32 // trait identifiers are 0..31
)

// Profile is the value form of a genetic profile, produced by the pure
// derivation functions below and persisted by the breeding layer. Once
// attached to a pet it is never updated.
type Profile struct {
	DominantGenes  domain.DNA
	RecessiveGenes domain.DNA
	ElementAffinity [domain.ElementCount]int
	StatPotential   [domain.StatCount]int
	Traits          []int
	Generation     int
	MutationCount  int
}

// DeriveProfile builds a genetic profile deterministically from a pet's DNA
// and element. It is used for lazy profile creation on pets that predate the
// genetics system: the same pet always derives the same profile.
func DeriveProfile(dna domain.DNA, element domain.Element, generation int) Profile {
	p := Profile{
		DominantGenes:  domain.DNAFromBytes(keccak256(dna.Bytes(), []byte("dominant"))),
		RecessiveGenes: domain.DNAFromBytes(keccak256(dna.Bytes(), []byte("recessive"))),
		Generation:     generation,
	}
	fillDerived(&p, dna, element)

	n := 1 + int(dnaRoll(dna, 20, saltProfile)%maxTraits)
	for i := 0; i < n; i++ {
		p.Traits = append(p.Traits, int(dnaRoll(dna, uint64(21+i), saltProfile)%traitSpace))
	}
	return p
}

// OffspringProfile builds the profile for a newly bred pet. The gene
// patterns hash each parent's dominant genes together with the oracle word,
// so sibling offspring of the same parents still differ. Generation is
// max(parent generations)+1 and the mutation count is the parents' sum plus
// one if a mutation occurred.
func OffspringProfile(parent1, parent2 Profile, dna domain.DNA, element domain.Element, word uint64, mutated bool) Profile {
	gen := parent1.Generation
	if parent2.Generation > gen {
		gen = parent2.Generation
	}

	mutations := parent1.MutationCount + parent2.MutationCount
	if mutated {
		mutations++
	}

	var w [8]byte
	for i := 0; i < 8; i++ {
		w[i] = byte(word >> (uint(7-i) * 8))
	}

	p := Profile{
		DominantGenes:  domain.DNAFromBytes(keccak256(parent1.DominantGenes.Bytes(), w[:])),
		RecessiveGenes: domain.DNAFromBytes(keccak256(parent2.DominantGenes.Bytes(), w[:], []byte("recessive"))),
		Generation:     gen + 1,
		MutationCount:  mutations,
	}
	fillDerived(&p, dna, element)

	// Inherit the union of parent traits (order: parent1 first), deduped and
	// capped; a fresh trait from the DNA fills the list when there is room.
	seen := make(map[int]bool)
	for _, t := range append(append([]int{}, parent1.Traits...), parent2.Traits...) {
		if !seen[t] && len(p.Traits) < maxTraits {
			seen[t] = true
			p.Traits = append(p.Traits, t)
		}
	}
	if len(p.Traits) < maxTraits {
		if t := int(dnaRoll(dna, 99, saltProfile) % traitSpace); !seen[t] {
			p.Traits = append(p.Traits, t)
		}
	}
	return p
}

// fillDerived populates the DNA-derived affinity, potential, and trait
// fields shared by both construction paths.
func fillDerived(p *Profile, dna domain.DNA, element domain.Element) {
	for e := 0; e < domain.ElementCount; e++ {
		v := int(dnaRoll(dna, uint64(e), saltProfile) % affinityBase)
		if domain.Element(e) == element {
			v += affinityBoost
		}
		p.ElementAffinity[e] = v
	}
	for s := 0; s < domain.StatCount; s++ {
		p.StatPotential[s] = potentialMin + int(dnaRoll(dna, uint64(10+s), saltProfile)%potentialSpan)
	}
}

// ToModel converts a Profile to its persistence form for petID.
func (p Profile) ToModel(petID uint64) *domain.GeneticProfile {
	return &domain.GeneticProfile{
		PetID:           petID,
		DominantGenes:   p.DominantGenes.String(),
		RecessiveGenes:  p.RecessiveGenes.String(),
		ElementAffinity: append([]int{}, p.ElementAffinity[:]...),
		StatPotential:   append([]int{}, p.StatPotential[:]...),
		Traits:          append([]int{}, p.Traits...),
		Generation:      p.Generation,
		MutationCount:   p.MutationCount,
	}
}

// ProfileFromModel rebuilds the value form from a persisted profile row.
func ProfileFromModel(m *domain.GeneticProfile) (Profile, error) {
	dom, err := domain.ParseDNA(m.DominantGenes)
	if err != nil {
		return Profile{}, err
	}
	rec, err := domain.ParseDNA(m.RecessiveGenes)
	if err != nil {
		return Profile{}, err
	}
	p := Profile{
		DominantGenes:  dom,
		RecessiveGenes: rec,
		Traits:         append([]int{}, m.Traits...),
		Generation:     m.Generation,
		MutationCount:  m.MutationCount,
	}
	copy(p.ElementAffinity[:], m.ElementAffinity)
	copy(p.StatPotential[:], m.StatPotential)
	return p, nil
}
