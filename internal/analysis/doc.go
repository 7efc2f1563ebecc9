// Package analysis estimates statistics of correlated thermo series:
//
//   - [Autocorrelation]: normalized autocorrelation function
//   - [CorrelationTime]: integrated correlation time in samples
//   - [BlockError]: standard error of the mean by block averaging
//   - [PowerSpectrum]: one-sided amplitude spectrum of the fluctuations
//
// Consecutive MD samples are not independent, so the naive standard error
// underestimates the uncertainty of a mean pressure or energy:
//
//	mean, sem := analysis.BlockError(pressure, 8)
package analysis
