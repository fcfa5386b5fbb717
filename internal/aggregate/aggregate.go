package aggregate

import (
	"context"
	"errors"

	"rtest/internal/collect"
	"rtest/internal/logging"
	"rtest/internal/runner"
	"rtest/internal/workerpool"
)

// Merge folds the worker pool's outcomes and the session's accumulated
// collection errors into one SessionOutcome, per spec.md §7's
// propagation policy: one worker's failure never aborts its peers, and
// the aggregated exit code reports the worst severity seen.
func Merge(outcomes []runner.Outcome, collectionErrors []collect.CollectionError) SessionOutcome {
	out := SessionOutcome{
		WorkerOutcomes:   outcomes,
		CollectionErrors: collectionErrors,
	}

	codes := make([]int, len(outcomes))
	for i, o := range outcomes {
		codes[i] = o.ExitCode
		if o.Err != nil && (errors.Is(o.Err, context.Canceled) || errors.Is(o.Err, context.DeadlineExceeded)) {
			if errors.Is(o.Err, context.DeadlineExceeded) {
				out.TimedOut = true
			} else {
				out.Cancelled = true
			}
		}
	}

	totalNodeids := 0
	for _, o := range outcomes {
		totalNodeids += len(o.Nodeids)
	}

	switch {
	case len(outcomes) == 0 || totalNodeids == 0:
		// spec.md §7: a run that discovers zero tests reports exit 5
		// even if collection errors occurred.
		out.ExitCode = 5
	default:
		out.ExitCode = workerpool.AggregateExitCode(codes)
	}

	logging.AggregateDebug(
		"merged %d worker outcome(s), %d collection error(s) -> exit %d (cancelled=%v, timedOut=%v)",
		len(outcomes), len(collectionErrors), out.ExitCode, out.Cancelled, out.TimedOut,
	)

	return out
}
