package analysis

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"
)

// Autocorrelation returns C(k)/C(0) for lags 0..maxLag of the mean-free
// series. A constant series gives nil.
func Autocorrelation(data []float64, maxLag int) []float64 {
	n := len(data)
	if n < 2 {
		return nil
	}
	maxLag = min(maxLag, n-1)
	mean := stat.Mean(data, nil)

	acf := make([]float64, maxLag+1)
	for k := 0; k <= maxLag; k++ {
		s := 0.0
		for i := 0; i+k < n; i++ {
			s += (data[i] - mean) * (data[i+k] - mean)
		}
		acf[k] = s / float64(n)
	}
	if acf[0] == 0 {
		return nil
	}
	c0 := acf[0]
	for k := range acf {
		acf[k] /= c0
	}
	return acf
}

// CorrelationTime integrates the autocorrelation up to its first
// non-positive value: tau = 1/2 + sum C(k)/C(0).
func CorrelationTime(data []float64) float64 {
	n := len(data)
	if n < 2 {
		return 0
	}
	mean := stat.Mean(data, nil)
	lag := func(k int) float64 {
		s := 0.0
		for i := 0; i+k < n; i++ {
			s += (data[i] - mean) * (data[i+k] - mean)
		}
		return s
	}
	c0 := lag(0)
	if c0 == 0 {
		return 0
	}
	tau := 0.5
	for k := 1; k < n/2; k++ {
		c := lag(k) / c0
		if c <= 0 {
			break
		}
		tau += c
	}
	return tau
}

// BlockError splits data into nblocks equal blocks and returns the mean
// and the standard error estimated from the block means. The tail that
// does not fill a block is dropped.
func BlockError(data []float64, nblocks int) (mean, sem float64) {
	if nblocks < 2 || len(data) < nblocks {
		return stat.Mean(data, nil), math.NaN()
	}
	size := len(data) / nblocks
	means := make([]float64, nblocks)
	for b := range means {
		means[b] = stat.Mean(data[b*size:(b+1)*size], nil)
	}
	mean, std := stat.MeanStdDev(means, nil)
	return mean, std / math.Sqrt(float64(nblocks))
}

// PowerSpectrum returns the amplitudes of the mean-free series at the
// frequencies k/n for k = 0..n/2.
func PowerSpectrum(data []float64) []float64 {
	n := len(data)
	if n < 2 {
		return nil
	}
	mean := stat.Mean(data, nil)
	seq := make([]float64, n)
	for i, v := range data {
		seq[i] = v - mean
	}

	coeff := fourier.NewFFT(n).Coefficients(nil, seq)
	ps := make([]float64, len(coeff))
	for i, c := range coeff {
		ps[i] = cmplx.Abs(c)
	}
	return ps
}

// DominantPeriod is the period in samples of the strongest non-zero
// frequency, or 0 when the spectrum is flat.
func DominantPeriod(data []float64) float64 {
	ps := PowerSpectrum(data)
	best, idx := 0.0, 0
	for k := 1; k < len(ps); k++ {
		if ps[k] > best {
			best, idx = ps[k], k
		}
	}
	if idx == 0 {
		return 0
	}
	return float64(len(data)) / float64(idx)
}
