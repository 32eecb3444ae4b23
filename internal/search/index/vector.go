package index

import "math"

// SparseVector holds non-zero weights by ascending term index.
type SparseVector struct {
	Idx []int32
	Val []float64
}

// Len returns the number of non-zero entries.
func (v SparseVector) Len() int { return len(v.Idx) }

// Dot computes the dot product of two sparse vectors.
func Dot(a, b SparseVector) float64 {
	var dot float64
	i, j := 0, 0
	for i < len(a.Idx) && j < len(b.Idx) {
		switch {
		case a.Idx[i] == b.Idx[j]:
			dot += a.Val[i] * b.Val[j]
			i++
			j++
		case a.Idx[i] < b.Idx[j]:
			i++
		default:
			j++
		}
	}
	return dot
}

// Cosine computes the cosine similarity of two sparse vectors, clamped to
// [0, 1]. A zero vector has similarity 0 with everything.
func Cosine(a, b SparseVector) float64 {
	den := norm(a) * norm(b)
	if den == 0 {
		return 0
	}
	return clamp01(Dot(a, b) / den)
}

// NormalizeL2 scales v in place to unit L2 norm. Zero vectors are left as is.
func NormalizeL2(v SparseVector) SparseVector {
	n := norm(v)
	if n == 0 {
		return v
	}
	inv := 1.0 / n
	for i := range v.Val {
		v.Val[i] *= inv
	}
	return v
}

func norm(v SparseVector) float64 {
	var sum float64
	for _, x := range v.Val {
		sum += x * x
	}
	return math.Sqrt(sum)
}

func clamp01(x float64) float64 {
	switch {
	case x < 0 || math.IsNaN(x):
		return 0
	case x > 1:
		return 1
	default:
		return x
	}
}
