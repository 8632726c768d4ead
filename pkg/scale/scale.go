// Package scale derives deterministic linear mappings from numeric data
// domains to fixed render ranges. The sign-aware axis scale guarantees that a
// zero-crossing in data space maps to true zero in render space, which a
// plain min-max scale would not preserve.
package scale

import (
	"strconv"
	"strings"

	"github.com/pointscape/pointscape/pkg/ingest"
)

// Branch identifies which mapping rule produced a Scale.
type Branch string

const (
	BranchSpansZero      Branch = "spansZero"
	BranchAllNonNegative Branch = "allNonNegative"
	BranchAllNonPositive Branch = "allNonPositive"
	BranchDegenerate     Branch = "degenerate"

	// BranchMinMax marks the plain min-max mapping used for the size
	// channel, which is not sign-aware.
	BranchMinMax Branch = "minMax"
)

// axisPad is the fractional padding applied to each side of the data domain.
const axisPad = 0.1

// Size-channel defaults: rendered point sizes are always non-negative, so the
// size scale has no zero-crossing requirement.
const (
	DefaultSizeMin = 0.03
	DefaultSizeMax = 0.4
)

// Scale is a pure linear mapping config from a data domain to a render range.
// It carries no mutable state; recompute it whenever the sample set changes.
type Scale struct {
	DomainMin float64 `json:"domainMin"`
	DomainMax float64 `json:"domainMax"`
	RangeMin  float64 `json:"rangeMin"`
	RangeMax  float64 `json:"rangeMax"`
	Branch    Branch  `json:"branch"`
}

// Compute derives the sign-aware axis scale for samples into the symmetric
// viewport [-targetHalfRange, targetHalfRange]. It is total over any finite
// sample set; the empty sequence is valid input. Branches are mutually
// exclusive and evaluated in order.
func Compute(samples []float64, targetHalfRange float64) Scale {
	if len(samples) == 0 {
		return Scale{
			DomainMin: 0, DomainMax: 1,
			RangeMin: -targetHalfRange, RangeMax: targetHalfRange,
			Branch: BranchDegenerate,
		}
	}

	min, max := samples[0], samples[0]
	for _, v := range samples[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	switch {
	case min == max:
		return Scale{
			DomainMin: min - 1, DomainMax: min + 1,
			RangeMin: -targetHalfRange, RangeMax: targetHalfRange,
			Branch: BranchDegenerate,
		}

	case min < 0 && max > 0:
		// Pad each side, then split the output range proportionally to the
		// padded magnitudes so data zero lands exactly at render zero.
		negPad := -min * (1 + axisPad)
		posPad := max * (1 + axisPad)
		total := negPad + posPad
		negRange := negPad / total * 2 * targetHalfRange
		posRange := posPad / total * 2 * targetHalfRange
		return Scale{
			DomainMin: -negPad, DomainMax: posPad,
			RangeMin: -negRange, RangeMax: posRange,
			Branch: BranchSpansZero,
		}

	case min >= 0:
		pad := (max - min) * axisPad
		lo := min - pad
		if lo < 0 {
			lo = 0
		}
		return Scale{
			DomainMin: lo, DomainMax: max + pad,
			RangeMin: 0, RangeMax: targetHalfRange,
			Branch: BranchAllNonNegative,
		}

	default: // max <= 0
		pad := (max - min) * axisPad
		hi := max + pad
		if hi > 0 {
			hi = 0
		}
		return Scale{
			DomainMin: min - pad, DomainMax: hi,
			RangeMin: -targetHalfRange, RangeMax: 0,
			Branch: BranchAllNonPositive,
		}
	}
}

// ComputeSize derives the plain min-max scale for the size channel into
// [sizeMin, sizeMax]. Non-positive bounds fall back to the defaults.
func ComputeSize(samples []float64, sizeMin, sizeMax float64) Scale {
	if sizeMax <= sizeMin {
		sizeMin, sizeMax = DefaultSizeMin, DefaultSizeMax
	}
	if len(samples) == 0 {
		return Scale{DomainMin: 0, DomainMax: 1, RangeMin: sizeMin, RangeMax: sizeMax, Branch: BranchDegenerate}
	}

	min, max := samples[0], samples[0]
	for _, v := range samples[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if min == max {
		return Scale{DomainMin: min - 1, DomainMax: min + 1, RangeMin: sizeMin, RangeMax: sizeMax, Branch: BranchDegenerate}
	}
	return Scale{DomainMin: min, DomainMax: max, RangeMin: sizeMin, RangeMax: sizeMax, Branch: BranchMinMax}
}

// Apply linearly interpolates v from the domain into the range. Degenerate
// domains are constructed with nonzero width, so there is no division by
// zero once Compute has run.
func (s Scale) Apply(v float64) float64 {
	return s.RangeMin + (v-s.DomainMin)/(s.DomainMax-s.DomainMin)*(s.RangeMax-s.RangeMin)
}

// Project extracts the numeric projection of one column from ingested
// records. String values are parsed as floats; non-numeric and missing
// values are skipped.
func Project(records []ingest.Record, column string) []float64 {
	out := make([]float64, 0, len(records))
	for _, rec := range records {
		raw, ok := rec[column]
		if !ok || raw == nil {
			continue
		}
		if v, ok := toFloat(raw); ok {
			out = append(out, v)
		}
	}
	return out
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	case interface{ Float64() (float64, error) }: // json.Number
		f, err := t.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
