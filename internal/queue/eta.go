package queue

import "github.com/eval-bench/eval-bench/pkg/api"

// defaultSampleCount stands in for "all available" when the submitter did
// not bound the sample size. The ETA is advisory only.
const defaultSampleCount = 100

// estimateSeconds is the per-item time heuristic: samples x benchmark count
// over an assumed constant throughput.
func estimateSeconds(config api.RunConfig, throughput float64) float64 {
	samples := config.SampleSize
	if samples <= 0 {
		samples = defaultSampleCount
	}
	return float64(samples*len(config.Benchmarks)) / throughput
}
