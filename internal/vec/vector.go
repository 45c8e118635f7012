package vec

import "math"

// Vector is a dense state vector. It is a plain slice so that wrapping
// external storage is a zero-copy operation: a Vector built with Wrap
// shares its buffer with the caller, and writes through either side are
// visible to both.
type Vector []float64

// New returns a zero vector of length n.
func New(n int) Vector {
	return make(Vector, n)
}

// Wrap aliases data without copying. The returned Vector and data share
// storage for their whole lifetime.
func Wrap(data []float64) Vector {
	return Vector(data)
}

// Data exposes the underlying buffer.
func (v Vector) Data() []float64 { return []float64(v) }

func (v Vector) Len() int { return len(v) }

func (v Vector) Clone() Vector {
	c := make(Vector, len(v))
	copy(c, v)
	return c
}

// CopyFrom copies src into v. Lengths must match.
func (v Vector) CopyFrom(src Vector) {
	copy(v, src)
}

func (v Vector) Fill(a float64) {
	for i := range v {
		v[i] = a
	}
}

func (v Vector) IsValid() bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

func (v Vector) Norm() float64 {
	sum := 0.0
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// WRMSNorm returns the weighted root-mean-square norm with weights
// w_i = 1/(rel*|ref_i| + abs). This is the norm error control works in.
func (v Vector) WRMSNorm(ref Vector, rel, abs float64) float64 {
	if len(v) == 0 {
		return 0
	}
	sum := 0.0
	for i, x := range v {
		w := 1.0 / (rel*math.Abs(ref[i]) + abs)
		sum += (x * w) * (x * w)
	}
	return math.Sqrt(sum / float64(len(v)))
}

// AXPY computes v += a*x in place.
func (v Vector) AXPY(a float64, x Vector) {
	for i := range v {
		v[i] += a * x[i]
	}
}

func (v Vector) Scale(a float64) {
	for i := range v {
		v[i] *= a
	}
}

func (v Vector) Add(other Vector) Vector {
	result := make(Vector, len(v))
	for i := range v {
		result[i] = v[i] + other[i]
	}
	return result
}

func (v Vector) Sub(other Vector) Vector {
	result := make(Vector, len(v))
	for i := range v {
		result[i] = v[i] - other[i]
	}
	return result
}
