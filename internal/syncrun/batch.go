package syncrun

import (
	"context"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// TableJob names one source table's orchestrator for batch mode.
type TableJob struct {
	Name         string
	Orchestrator *Orchestrator
}

// BatchResult pairs a TableJob's name with its round outcome.
type BatchResult struct {
	Table  string
	Round  RoundResult
}

// RunBatch runs one Round per job concurrently — the coarse-grained
// parallelism the scheduling model exposes *across* source tables, each
// table's own round staying single-threaded cooperative internally.
// Grounded in the teacher's reader/writer goroutine-pair-plus-error-channel
// shape, generalized from two stages to N independent table jobs.
func RunBatch(ctx context.Context, jobs []TableJob, logger log.Logger) []BatchResult {
	if logger == nil {
		logger = log.NewNopLogger()
	}

	results := make([]BatchResult, len(jobs))
	var wg sync.WaitGroup
	for i, job := range jobs {
		wg.Add(1)
		go func(i int, job TableJob) {
			defer wg.Done()
			level.Info(logger).Log("msg", "starting sync round", "table", job.Name)
			round := job.Orchestrator.Round(ctx)
			if round.Failed() {
				level.Error(logger).Log("msg", "sync round had failures", "table", job.Name)
			}
			results[i] = BatchResult{Table: job.Name, Round: round}
		}(i, job)
	}
	wg.Wait()
	return results
}
