package analysis

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutocorrelation(t *testing.T) {
	data := []float64{1, -1, 1, -1, 1, -1, 1, -1}
	acf := Autocorrelation(data, 3)
	require.Len(t, acf, 4)
	assert.InDelta(t, 1, acf[0], 1e-12)
	assert.InDelta(t, -7.0/8, acf[1], 1e-12)
	assert.InDelta(t, 6.0/8, acf[2], 1e-12)

	assert.Nil(t, Autocorrelation([]float64{2, 2, 2}, 2))
	assert.Nil(t, Autocorrelation([]float64{2}, 2))
}

func TestCorrelationTime(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	white := make([]float64, 4000)
	for i := range white {
		white[i] = rng.NormFloat64()
	}
	assert.InDelta(t, 0.5, CorrelationTime(white), 0.1)

	// AR(1) with phi 0.9 has tau = 1/2 + phi/(1-phi) = 9.5
	ar := make([]float64, 10000)
	for i := 1; i < len(ar); i++ {
		ar[i] = 0.9*ar[i-1] + rng.NormFloat64()
	}
	assert.InDelta(t, 9.5, CorrelationTime(ar), 3)
}

func TestBlockError(t *testing.T) {
	data := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9}
	mean, sem := BlockError(data, 2)
	// blocks {1..4} and {5..8}, means 2.5 and 6.5
	assert.InDelta(t, 4.5, mean, 1e-12)
	assert.InDelta(t, 2, sem, 1e-12)

	_, sem = BlockError(data, 1)
	assert.True(t, math.IsNaN(sem))
}

func TestPowerSpectrum(t *testing.T) {
	n := 64
	data := make([]float64, n)
	for i := range data {
		data[i] = 3 + math.Sin(2*math.Pi*float64(i)/8)
	}
	ps := PowerSpectrum(data)
	require.Len(t, ps, n/2+1)
	assert.InDelta(t, 0, ps[0], 1e-9)
	assert.InDelta(t, float64(n)/2, ps[8], 1e-9)
	assert.InDelta(t, 8, DominantPeriod(data), 1e-12)

	assert.Equal(t, 0.0, DominantPeriod([]float64{1, 1, 1, 1}))
}
