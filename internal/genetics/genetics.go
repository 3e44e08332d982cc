package genetics

import (
	"github.com/petverse/go-pets-backend/internal/domain"
)

// Engine design constants. These are gameplay contracts, not tunables:
// tests pin the exact thresholds and downstream data depends on them.
const (
	// DominantInheritanceRate is the per-segment chance (out of 100) that a
	// segment comes from parent 1 when no crossover points are supplied.
	DominantInheritanceRate = 60

	// StatVariance bounds the DNA-derived per-stat variance at ±15.
	StatVariance = 15

	// GenerationBonusCap limits the per-stat generation bonus.
	GenerationBonusCap = 20

	// SameElementKeepChance is the chance (out of 100) that same-element
	// parents pass their shared element on unchanged.
	SameElementKeepChance = 90

	// SpecialComboChance is the chance (out of 100) that a special element
	// pair produces its hybrid element.
	SpecialComboChance = 25

	// MutationRateCap caps the effective mutation rate (out of 100).
	MutationRateCap = 50
)

// specialPairs is the fixed symmetric special-combination table: four
// canonical base-element pairs, each mapping to a hybrid element that is not
// a member of the pair. Lookup order is normalized, so (a,b) and (b,a)
// resolve identically.
var specialPairs = map[[2]domain.Element]domain.Element{
	{domain.ElementFire, domain.ElementWater}:  domain.ElementSteam,
	{domain.ElementFire, domain.ElementEarth}:  domain.ElementLava,
	{domain.ElementWater, domain.ElementEarth}: domain.ElementMud,
	{domain.ElementWater, domain.ElementAir}:   domain.ElementStorm,
}

// SpecialCombination reports the hybrid element for (e1, e2), if the pair is
// one of the four canonical special combinations. Symmetric in its arguments.
func SpecialCombination(e1, e2 domain.Element) (domain.Element, bool) {
	if e1 > e2 {
		e1, e2 = e2, e1
	}
	hybrid, ok := specialPairs[[2]domain.Element{e1, e2}]
	return hybrid, ok
}

// CombineDNA produces an offspring DNA from two parent DNAs.
//
// Segment selection: for each of the 8 segments, the source parent is chosen
// by counting how many crossover points are <= the segment index (even count
// selects parent 1, odd selects parent 2). With no crossover points, each
// segment instead takes a seed-derived weighted coin flip favoring parent 1
// at DominantInheritanceRate percent.
//
// Mutation: after selection, a fresh hash of (seed, segment) decides whether
// to mutate (value mod 100 below mutationRate) and supplies the XOR mask.
//
// Deterministic: identical inputs, including seed, always yield the same
// output.
func CombineDNA(p1, p2 domain.DNA, crossoverPoints []int, mutationRate int, seed uint64) domain.DNA {
	var out domain.DNA
	for i := 0; i < domain.DNASegments; i++ {
		src := p1
		if len(crossoverPoints) > 0 {
			if countCrossovers(crossoverPoints, i)%2 == 1 {
				src = p2
			}
		} else if rollWord(seed, uint64(i), saltInherit)%100 >= DominantInheritanceRate {
			src = p2
		}

		seg := src.Segment(i)
		if h := rollWord(seed, uint64(i), saltMutate); mutationRate > 0 && int(h%100) < mutationRate {
			seg ^= uint32(h >> 32)
		}
		out = out.WithSegment(i, seg)
	}
	return out
}

// countCrossovers counts crossover points at or below segment index i.
func countCrossovers(points []int, i int) int {
	n := 0
	for _, p := range points {
		if p <= i {
			n++
		}
	}
	return n
}

// OffspringStats derives the offspring's 6 stats. Per stat: the floor of the
// parents' average, plus a DNA-derived variance in [-StatVariance,
// +StatVariance], plus a generation bonus of min(2*generation,
// GenerationBonusCap), clamped to [domain.StatMin, domain.StatMax].
func OffspringStats(p1, p2 domain.Stats, dna domain.DNA, generation int) domain.Stats {
	bonus := 0
	if generation > 0 {
		bonus = 2 * generation
		if bonus > GenerationBonusCap {
			bonus = GenerationBonusCap
		}
	}

	var out domain.Stats
	for s := 0; s < domain.StatCount; s++ {
		base := (p1[s] + p2[s]) / 2
		variance := int(dnaRoll(dna, uint64(s), saltStats)%(2*StatVariance+1)) - StatVariance
		out[s] = clamp(base+variance+bonus, domain.StatMin, domain.StatMax)
	}
	return out
}

// OffspringElement resolves the offspring's element.
//
// A valid forced element (from an item or modifier) is returned
// unconditionally. Same-element parents keep their element with
// SameElementKeepChance percent, otherwise a uniformly random element is
// drawn. Different-element parents first roll for their special combination
// (if the pair has one) at SpecialComboChance percent, then fall through to
// a 50/50 pick between the two parent elements. All rolls are seeded from
// the offspring DNA.
//
// Precondition: e1 and e2 are valid elements. The engine does not defend
// against out-of-range values; callers validate at the boundary.
func OffspringElement(e1, e2 domain.Element, dna domain.DNA, forced *domain.Element) domain.Element {
	if forced != nil && forced.Valid() {
		return *forced
	}
	return offspringElement(e1, e2,
		dnaRoll(dna, 0, saltElement),
		dnaRoll(dna, 1, saltElement),
		dnaRoll(dna, 2, saltElement),
		dnaRoll(dna, 3, saltElement),
	)
}

// offspringElement is the roll-driven core of OffspringElement. Rolls are
// reduced modulo their range here so tests can drive exact outcomes.
func offspringElement(e1, e2 domain.Element, keepRoll, anyRoll, specialRoll, pickRoll uint64) domain.Element {
	if e1 == e2 {
		if keepRoll%100 < SameElementKeepChance {
			return e1
		}
		return domain.Element(anyRoll % domain.ElementCount)
	}
	if hybrid, ok := SpecialCombination(e1, e2); ok && specialRoll%100 < SpecialComboChance {
		return hybrid
	}
	if pickRoll%100 < 50 {
		return e1
	}
	return e2
}

// OffspringRarity resolves the offspring's rarity tier from the parents'
// tiers via fixed cumulative buckets (out of 100, DNA-seeded):
//
//	< 50  → max(parents)
//	< 75  → min(parents)
//	< 90  → max(parents)+1, capped at Legendary
//	< 95  → min(parents)-1, floored at Common
//	else  → Legendary
//
// With guaranteeRare set and both parents Common, the max tier is bumped to
// Rare before bucketing.
func OffspringRarity(r1, r2 domain.Rarity, dna domain.DNA, guaranteeRare bool) domain.Rarity {
	return rarityFromRoll(r1, r2, dnaRoll(dna, 0, saltRarity), guaranteeRare)
}

// rarityFromRoll is the roll-driven core of OffspringRarity.
func rarityFromRoll(r1, r2 domain.Rarity, roll uint64, guaranteeRare bool) domain.Rarity {
	hi, lo := r1, r2
	if lo > hi {
		hi, lo = lo, hi
	}
	if guaranteeRare && hi == domain.RarityCommon {
		hi = domain.RarityRare
	}

	switch v := roll % 100; {
	case v < 50:
		return hi
	case v < 75:
		return lo
	case v < 90:
		if hi < domain.RarityLegendary {
			return hi + 1
		}
		return domain.RarityLegendary
	case v < 95:
		if lo > domain.RarityCommon {
			return lo - 1
		}
		return domain.RarityCommon
	default:
		return domain.RarityLegendary
	}
}

// MutationRoll decides whether the offspring mutates and, if so, which part
// of it. The effective rate is
//
//	baseRate + 2*avg(gen1, gen2) + 3*(mut1+mut2)
//
// capped at MutationRateCap. Occurrence is a DNA-seeded roll out of 1000
// against rate*10; the mutation type uses cumulative buckets over a second
// roll out of 100 (<40 stats, <70 element, <90 rarity, else multiple).
func MutationRoll(gen1, gen2, mut1, mut2, baseRate int, dna domain.DNA) (bool, domain.MutationType) {
	rate := effectiveMutationRate(gen1, gen2, mut1, mut2, baseRate)
	if rate <= 0 || int(dnaRoll(dna, 0, saltMutation)%1000) >= rate*10 {
		return false, domain.MutationNone
	}
	return true, mutationTypeFromRoll(dnaRoll(dna, 1, saltMutation))
}

// effectiveMutationRate applies the generation and mutation-history bonuses
// to the base rate and caps the result.
func effectiveMutationRate(gen1, gen2, mut1, mut2, baseRate int) int {
	rate := baseRate + 2*((gen1+gen2)/2) + 3*(mut1+mut2)
	if rate > MutationRateCap {
		rate = MutationRateCap
	}
	return rate
}

// mutationTypeFromRoll is the roll-driven core of the mutation type buckets.
func mutationTypeFromRoll(roll uint64) domain.MutationType {
	switch v := roll % 100; {
	case v < 40:
		return domain.MutationStats
	case v < 70:
		return domain.MutationElement
	case v < 90:
		return domain.MutationRarity
	default:
		return domain.MutationMultiple
	}
}

// Compatibility scores a prospective pairing on [10,100] and derives a bonus
// multiplier (percent, base 100).
//
// Additive model starting at 50: +20 for a shared element, +30 for a special
// combination, +10 for any other mixed pair; rarity gap 0 adds 15, gap 1
// adds 10, wider gaps subtract 5 per tier; a generation gap of at most 2
// adds 10, wider gaps subtract 2 per generation. The bonus multiplier gains
// +25 for special combinations, +20 at score 80+, else +10 at score 60+.
func Compatibility(e1, e2 domain.Element, r1, r2 domain.Rarity, gen1, gen2 int) (score, bonus int) {
	score = 50

	_, special := SpecialCombination(e1, e2)
	switch {
	case e1 == e2:
		score += 20
	case special:
		score += 30
	default:
		score += 10
	}

	switch rgap := absInt(int(r1) - int(r2)); rgap {
	case 0:
		score += 15
	case 1:
		score += 10
	default:
		score -= 5 * rgap
	}

	if ggap := absInt(gen1 - gen2); ggap <= 2 {
		score += 10
	} else {
		score -= 2 * ggap
	}

	score = clamp(score, 10, 100)

	bonus = 100
	if special {
		bonus += 25
	}
	switch {
	case score >= 80:
		bonus += 20
	case score >= 60:
		bonus += 10
	}
	return score, bonus
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
