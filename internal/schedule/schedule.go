// Package schedule implements the scheduler (C7): it partitions one
// subproject's nodeid list into WorkerBatches according to a
// distribution policy.
package schedule

import (
	"fmt"
	"runtime"
	"sync"

	"rtest/internal/collect"
	"rtest/internal/logging"
)

// Batch is one worker's assigned nodeids, in the order they should be
// run.
type Batch struct {
	Nodeids []collect.Nodeid
}

// ResolveWorkerCount turns the configured worker count into a concrete
// N: -1 means auto (logical CPUs), 0 means sequential (one worker),
// and maxWorkers, if > 0, caps the result.
func ResolveWorkerCount(requested, maxWorkers int) int {
	n := requested
	switch {
	case n < 0:
		n = runtime.NumCPU()
	case n == 0:
		n = 1
	}
	if maxWorkers > 0 && n > maxWorkers {
		n = maxWorkers
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Schedule partitions nodeids into batches per policy ("load",
// "loadfile", "loadscope", "worksteal", "no") using workerCount
// workers. Every policy but "worksteal" is a pure function of its
// inputs (spec.md §8).
func Schedule(policy string, nodeids []collect.Nodeid, workerCount int) ([]Batch, error) {
	if workerCount < 1 {
		workerCount = 1
	}

	switch policy {
	case "no":
		return []Batch{{Nodeids: nodeids}}, nil
	case "load":
		return scheduleRoundRobin(nodeids, workerCount)
	case "loadfile":
		return scheduleByScope(nodeids, workerCount, func(p collect.Parsed) string { return p.ModulePath() })
	case "loadscope":
		return scheduleByScope(nodeids, workerCount, func(p collect.Parsed) string { return p.ScopeKey() })
	case "worksteal":
		return scheduleWorksteal(nodeids, workerCount), nil
	default:
		return nil, fmt.Errorf("unknown distribution policy: %q", policy)
	}
}

func scheduleRoundRobin(nodeids []collect.Nodeid, workerCount int) ([]Batch, error) {
	batches := make([]Batch, workerCount)
	for i, id := range nodeids {
		w := i % workerCount
		batches[w].Nodeids = append(batches[w].Nodeids, id)
	}
	return batches, nil
}

// scheduleByScope assigns every nodeid sharing the same scope key to
// the same worker; scopes are assigned to workers round-robin in
// first-appearance order, so nodeid order within a worker's batch
// matches discovery order (spec.md §8's tie-break rule).
func scheduleByScope(nodeids []collect.Nodeid, workerCount int, scopeKey func(collect.Parsed) string) ([]Batch, error) {
	batches := make([]Batch, workerCount)
	assigned := make(map[string]int)
	next := 0

	for _, id := range nodeids {
		parsed, err := collect.Parse(id)
		if err != nil {
			return nil, err
		}
		key := scopeKey(parsed)
		w, ok := assigned[key]
		if !ok {
			w = next % workerCount
			assigned[key] = w
			next++
		}
		batches[w].Nodeids = append(batches[w].Nodeids, id)
	}
	return batches, nil
}

// scheduleWorksteal seeds each worker with ceil(total/N) items from the
// front of the discovery-ordered list, then serves the remainder from
// a shared FIFO deque guarded by a mutex - the Open Question resolution
// documented in DESIGN.md: any implementation preserving "every nodeid
// consumed exactly once" and "idle-worker liveness" conforms, and a
// locked slice needs no lock-free structures this codebase doesn't use
// elsewhere.
func scheduleWorksteal(nodeids []collect.Nodeid, workerCount int) []Batch {
	batches := make([]Batch, workerCount)
	total := len(nodeids)
	if total == 0 {
		return batches
	}

	seedSize := (total + workerCount - 1) / workerCount
	pos := 0
	for w := 0; w < workerCount && pos < total; w++ {
		end := pos + seedSize
		if end > total {
			end = total
		}
		batches[w].Nodeids = append(batches[w].Nodeids, nodeids[pos:end]...)
		pos = end
	}

	if pos >= total {
		return batches
	}

	deque := &Deque{items: append([]collect.Nodeid(nil), nodeids[pos:]...)}
	logging.ScheduleDebug("worksteal: seeded %d workers, %d items remain in shared deque", workerCount, len(deque.items))

	var wg sync.WaitGroup
	for w := 0; w < workerCount; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for {
				id, ok := deque.Pop()
				if !ok {
					return
				}
				batches[w].Nodeids = append(batches[w].Nodeids, id)
			}
		}(w)
	}
	wg.Wait()

	return batches
}

// Deque is the shared FIFO structure worksteal workers pull from once
// their seeded batch is exhausted.
type Deque struct {
	mu    sync.Mutex
	items []collect.Nodeid
}

// Pop removes and returns the front item, reporting false once empty.
func (d *Deque) Pop() (collect.Nodeid, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.items) == 0 {
		return "", false
	}
	id := d.items[0]
	d.items = d.items[1:]
	return id, true
}
