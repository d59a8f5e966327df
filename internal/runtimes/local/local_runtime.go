// Package local is the built-in job executor: it runs the sample benchmark
// suites against a model-serving endpoint, in process. Each run makes many
// sequential provider calls, so a single active run at a time is the right
// concurrency model for it.
package local

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/eval-bench/eval-bench/internal/abstractions"
	"github.com/eval-bench/eval-bench/internal/providers"
	"github.com/eval-bench/eval-bench/pkg/api"
)

type LocalExecutor struct {
	logger *slog.Logger
	// newClient is swappable for tests
	newClient func(api.RunConfig) providers.Client
}

func NewLocalExecutor(logger *slog.Logger) (abstractions.Executor, error) {
	return &LocalExecutor{logger: logger, newClient: providers.NewClient}, nil
}

func (e *LocalExecutor) Name() string {
	return "local"
}

// Execute runs every benchmark of the config in order, emitting the log
// lines the progress parser understands:
//
//	Starting <display name>...
//	Progress: <pct>% (<done>/<total>) Acc: <pct>%
//	<display name> finished: accuracy <pct>% (<correct>/<total>)
//
// The context is checked between provider calls; cancellation is
// cooperative and an in-flight call runs to completion first.
func (e *LocalExecutor) Execute(ctx context.Context, config api.RunConfig, log abstractions.LogFunc) (map[string]api.MetricBundle, error) {
	client := e.newClient(config)
	results := make(map[string]api.MetricBundle, len(config.Benchmarks))

	log(fmt.Sprintf("Evaluating %s via %s", config.Model, config.Provider))

	var aggregate float64
	for _, benchmarkID := range config.Benchmarks {
		bench, ok := lookupBenchmark(benchmarkID)
		if !ok {
			return nil, fmt.Errorf("unknown benchmark: %s", benchmarkID)
		}

		log(fmt.Sprintf("Starting %s...", bench.DisplayName))
		bundle, err := e.runBenchmark(ctx, client, bench, config.SampleSize, log)
		if err != nil {
			return nil, err
		}
		results[bench.ID] = bundle
		aggregate += bundle.Accuracy
		log(fmt.Sprintf("%s finished: accuracy %.1f%% (%d/%d)", bench.DisplayName, bundle.Accuracy*100, bundle.Correct, bundle.Total))
	}

	aggregate /= float64(len(config.Benchmarks))
	log(fmt.Sprintf("Evaluation complete. Aggregate score: %.1f%%", aggregate*100))
	results["aggregate"] = api.MetricBundle{Accuracy: aggregate}
	return results, nil
}

func (e *LocalExecutor) runBenchmark(ctx context.Context, client providers.Client, bench benchmark, sampleSize int, log abstractions.LogFunc) (api.MetricBundle, error) {
	questions := bench.Questions
	if sampleSize > 0 && sampleSize < len(questions) {
		questions = questions[:sampleSize]
	}

	correct := 0
	for i, q := range questions {
		if err := ctx.Err(); err != nil {
			// cancellation requested; stop before the next provider call
			log(fmt.Sprintf("%s interrupted after %d/%d questions", bench.DisplayName, i, len(questions)))
			return api.MetricBundle{}, err
		}

		response, err := client.Generate(ctx, q.Prompt)
		if err != nil {
			if ctx.Err() != nil {
				log(fmt.Sprintf("%s interrupted after %d/%d questions", bench.DisplayName, i, len(questions)))
				return api.MetricBundle{}, ctx.Err()
			}
			return api.MetricBundle{}, fmt.Errorf("%s question %d: %w", bench.DisplayName, i+1, err)
		}
		if q.Correct(response) {
			correct++
		}

		done := i + 1
		percent := float64(done) / float64(len(questions)) * 100
		accuracy := float64(correct) / float64(done) * 100
		log(fmt.Sprintf("Progress: %.0f%% (%d/%d) Acc: %.0f%%", percent, done, len(questions), accuracy))
	}

	return api.MetricBundle{
		Accuracy: float64(correct) / float64(len(questions)),
		Correct:  correct,
		Total:    len(questions),
	}, nil
}
