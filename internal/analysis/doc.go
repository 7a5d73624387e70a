// Package analysis post-processes recorded traces.
//
//   - [PowerSpectrum]: one-sided power spectrum of a uniformly sampled trace
//   - [Summarize]: mean, standard deviation, extrema and RMS
//
// A point record of the electric field is the typical input:
//
//	res, _ := rs.Get("e_middle")
//	spec, err := analysis.PowerSpectrum(res.Column(0), res.Interval)
package analysis
