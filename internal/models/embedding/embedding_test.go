package embedding

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestL2Normalize_UnitLength(t *testing.T) {
	v := l2Normalize([]float32{3, 4})
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-6)
}

func TestCombineEmbeddings_LengthWeightedThenNormalized(t *testing.T) {
	vectors := [][]float32{{1, 0}, {0, 1}}
	lengths := []int{3, 1}

	combined := combineEmbeddings(vectors, lengths)

	var sum float64
	for _, x := range combined {
		sum += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-6)
	// Weighted 3:1 toward the first vector before normalization, so the
	// first component should dominate.
	assert.Greater(t, combined[0], combined[1])
}

func TestCombineEmbeddings_SingleWindowPassesThroughNormalized(t *testing.T) {
	combined := combineEmbeddings([][]float32{{2, 0, 0}}, []int{10})
	assert.InDelta(t, 1.0, float64(combined[0]), 1e-6)
	assert.InDelta(t, 0.0, float64(combined[1]), 1e-6)
}
