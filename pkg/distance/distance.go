// Package distance provides similarity kernels for embedding vectors.
//
// The package dispatches at init time to the fastest implementation the CPU
// supports: Gonum's BLAS routines (SIMD) where vector extensions are present,
// the pure Go reference loops otherwise.
package distance

import (
	"errors"
	"fmt"
	"math"

	"github.com/klauspost/cpuid/v2"
	"gonum.org/v1/gonum/blas/gonum"
)

// Metric names a similarity function. Larger scores mean more similar.
type Metric string

const (
	// DotProduct is the raw inner product. On normalized vectors it equals cosine similarity.
	DotProduct Metric = "dot"
	// Cosine divides the inner product by both norms.
	Cosine Metric = "cosine"
)

// SimilarityFunc scores two vectors of equal length.
type SimilarityFunc func(v1, v2 []float32) (float64, error)

// ErrDimensionMismatch is returned when vectors have different lengths.
var ErrDimensionMismatch = errors.New("vectors must have the same length")

var (
	kernel    = "go"
	dotKernel = dotProductGo
)

func init() {
	if cpuid.CPU.Supports(cpuid.AVX) || cpuid.CPU.Supports(cpuid.ASIMD) {
		kernel = "gonum"
		dotKernel = dotProductGonum
	}
}

// Kernel reports which implementation was selected ("gonum" or "go").
func Kernel() string {
	return kernel
}

// Get returns the similarity function for metric.
func Get(metric Metric) (SimilarityFunc, error) {
	switch metric {
	case DotProduct, "":
		return dot, nil
	case Cosine:
		return cosine, nil
	default:
		return nil, fmt.Errorf("metric '%s' not supported", metric)
	}
}

func dot(v1, v2 []float32) (float64, error) {
	if len(v1) != len(v2) {
		return 0, ErrDimensionMismatch
	}
	return dotKernel(v1, v2), nil
}

func cosine(v1, v2 []float32) (float64, error) {
	if len(v1) != len(v2) {
		return 0, ErrDimensionMismatch
	}
	n1 := math.Sqrt(dotKernel(v1, v1))
	n2 := math.Sqrt(dotKernel(v2, v2))
	if n1 == 0 || n2 == 0 {
		return 0, nil
	}
	return dotKernel(v1, v2) / (n1 * n2), nil
}

// --- Reference implementation (pure Go) ---

func dotProductGo(v1, v2 []float32) float64 {
	var sum float32
	for i := range v1 {
		sum += v1[i] * v2[i]
	}
	return float64(sum)
}

// --- Gonum-based implementation ---

var gonumEngine = gonum.Implementation{}

func dotProductGonum(v1, v2 []float32) float64 {
	return float64(gonumEngine.Sdot(len(v1), v1, 1, v2, 1))
}
