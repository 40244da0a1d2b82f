package vector

import (
	"math"
	"strconv"

	"github.com/snarlhq/snarl/internal/patterns"
)

// SignatureDim is the dimensionality of pattern signatures.
const SignatureDim = 12

// Signature maps a finding onto a fixed-dimension feature vector. Features
// are purely structural, so identical findings always produce identical
// vectors. Layout:
//
//	0..3  pattern type one-hot (circular, orphaned, hub, dead code)
//	4     severity rank scaled to [0,1]
//	5     log-scaled node count
//	6     log-scaled edge count
//	7     log-scaled cycle length (circular only)
//	8     in/total degree balance (hub only)
//	9     threshold overload, capped at 4x (hub only)
//	10    unreachable ratio (dead code only)
//	11    isolation flags (orphan only)
func Signature(p patterns.DetectedPattern) []float32 {
	v := make([]float32, SignatureDim)

	v[4] = float32(p.Severity.Rank()) / 3
	v[5] = logScale(len(p.Nodes))
	v[6] = logScale(len(p.Edges))

	switch p.Type {
	case patterns.PatternCircular:
		v[0] = 1
		if p.Circular != nil {
			v[7] = logScale(p.Circular.Length)
		}
	case patterns.PatternOrphaned:
		v[1] = 1
		if p.Orphan != nil {
			if p.Orphan.NoIncoming {
				v[11] += 0.5
			}
			if p.Orphan.NoOutgoing {
				v[11] += 0.5
			}
		}
	case patterns.PatternHub:
		v[2] = 1
		if p.Hub != nil && p.Hub.Total > 0 {
			v[8] = float32(p.Hub.InDegree) / float32(p.Hub.Total)
		}
		if p.Hub != nil && p.Hub.Threshold > 0 {
			over := float64(p.Hub.Total) / float64(p.Hub.Threshold)
			if over > 4 {
				over = 4
			}
			v[9] = float32(over / 4)
		}
	case patterns.PatternDead:
		v[3] = 1
		v[10] = parseRatio(p.Metadata["unreachable_ratio"])
	}

	return v
}

// logScale compresses a count into [0,1]; counts beyond 2^16 saturate.
func logScale(n int) float32 {
	if n <= 0 {
		return 0
	}
	s := math.Log2(float64(n)+1) / 16
	if s > 1 {
		s = 1
	}
	return float32(s)
}

func parseRatio(s string) float32 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0
	}
	if f > 1 {
		f = 1
	}
	return float32(f)
}
