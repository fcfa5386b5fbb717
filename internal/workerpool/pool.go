// Package workerpool implements the worker pool (C8): it dispatches
// WorkerBatches to worker subprocesses through a runner.Strategy,
// bounding concurrency, applying a per-run timeout, and aggregating the
// resulting exit codes.
//
// The supervisor itself runs on a single coordinating goroutine's worth
// of control flow - it only ever blocks on context cancellation and on
// waiting for the fan-out to finish - while the spawned workers run in
// parallel OS processes, per spec.md §5. This mirrors the bounded
// active-count bookkeeping in the teacher's session.Spawner, generalized
// from a goroutine-per-subagent registry to an errgroup-bounded
// subprocess fan-out.
package workerpool

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"rtest/internal/logging"
	"rtest/internal/runner"
	"rtest/internal/schedule"
	"rtest/internal/subproject"
)

// Unit is one WorkerBatch bound to the subproject group it came from.
type Unit struct {
	Group subproject.Group
	Batch schedule.Batch
}

// Run dispatches units to strategy with at most maxConcurrent running at
// once, honoring ctx for cancellation/timeout. It always returns one
// runner.Outcome per unit, in input order, even when a unit's batch was
// never started because the context was already done - that outcome's
// Err reports the cancellation (spec.md §4.9 requires the partial
// result, not a cut off one, in a timeout or signal).
func Run(ctx context.Context, units []Unit, strategy runner.Strategy, env []string, maxConcurrent int) []runner.Outcome {
	runID := uuid.NewString()
	logging.WorkerpoolDebug("run %s: dispatching %d unit(s), concurrency %d", runID, len(units), maxConcurrent)

	outcomes := make([]runner.Outcome, len(units))

	g, gctx := errgroup.WithContext(ctx)
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	sem := make(chan struct{}, maxConcurrent)

	for i, u := range units {
		i, u := i, u
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-gctx.Done():
				outcomes[i] = runner.Outcome{
					Nodeids:          u.Batch.Nodeids,
					WorkingDirectory: u.Group.WorkingDirectory,
					ExitCode:         2,
					Err:              gctx.Err(),
				}
				return nil
			}
			defer func() { <-sem }()

			start := time.Now()
			out := strategy.RunBatch(gctx, u.Batch, u.Group.WorkingDirectory, env)
			logging.WorkerpoolDebug("run %s: unit %d finished in %v, exit=%d", runID, i, time.Since(start), out.ExitCode)
			outcomes[i] = out
			return nil
		})
	}

	// errgroup.Go never returns an error here (each goroutine always
	// returns nil and records its own outcome), so Wait's return is
	// intentionally ignored - cancellation is observed via gctx.Done()
	// inside each goroutine instead.
	_ = g.Wait()

	logging.Workerpool("run %s: complete, %d outcome(s)", runID, len(outcomes))
	return outcomes
}

// KnownExitCodes is the documented exit-code set spec.md §4.9 requires
// workers to fall within for a recognized, non-internal-error outcome.
var KnownExitCodes = map[int]bool{0: true, 1: true, 2: true, 3: true, 4: true, 5: true}

// AggregateExitCode folds a set of worker exit codes into one session
// exit code: the maximum of the known set {0..5}; any code outside that
// set maps to 3 (internal error) before the max is taken.
func AggregateExitCode(codes []int) int {
	if len(codes) == 0 {
		return 5 // no tests collected
	}
	max := 0
	for _, c := range codes {
		if !KnownExitCodes[c] {
			c = 3
		}
		if c > max {
			max = c
		}
	}
	return max
}
