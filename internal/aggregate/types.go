// Package aggregate implements the result aggregator (C11): it merges
// per-worker outcomes, stdout/stderr, and the session's collection
// errors into a single SessionOutcome, and serializes that outcome to
// JUnit-XML and JSON for CI consumption.
package aggregate

import (
	"rtest/internal/collect"
	"rtest/internal/runner"
)

// SessionOutcome is the merged result of one run, per spec.md §6:
// {exit_code, worker_outcomes[], collection_errors[], cancelled, timed_out}.
type SessionOutcome struct {
	ExitCode         int
	WorkerOutcomes   []runner.Outcome
	CollectionErrors []collect.CollectionError
	Cancelled        bool
	TimedOut         bool
}

// Failed reports the nodeids any worker reported a non-zero exit
// against, in worker-arrival order. A worker that failed to spawn at
// all (runner.Outcome.Err set) contributes all of its batch's nodeids,
// since none of them could have run.
func (s SessionOutcome) Failed() []collect.Nodeid {
	var out []collect.Nodeid
	for _, o := range s.WorkerOutcomes {
		if o.ExitCode != 0 {
			out = append(out, o.Nodeids...)
		}
	}
	return out
}

// TotalNodeids counts every nodeid dispatched across all worker outcomes.
func (s SessionOutcome) TotalNodeids() int {
	total := 0
	for _, o := range s.WorkerOutcomes {
		total += len(o.Nodeids)
	}
	return total
}
