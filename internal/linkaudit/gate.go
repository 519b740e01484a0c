package linkaudit

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Gate caps the number of tasks running at once. Tasks beyond the bound
// wait in FIFO order and are admitted as slots free up. Admitted tasks
// cannot be withdrawn.
type Gate struct {
	sem   *semaphore.Weighted
	limit int

	inFlight  atomic.Int64
	highWater atomic.Int64
	queued    atomic.Int64
	completed atomic.Int64
}

// GateStats is a snapshot of a Gate's counters.
type GateStats struct {
	Limit     int
	InFlight  int
	HighWater int
	Queued    int
	Completed int
}

// NewGate returns a Gate admitting at most limit concurrent tasks.
func NewGate(limit int) *Gate {
	limit = max(limit, 1)
	return &Gate{sem: semaphore.NewWeighted(int64(limit)), limit: limit}
}

// Stats returns the gate's current counters.
func (g *Gate) Stats() GateStats {
	return GateStats{
		Limit:     g.limit,
		InFlight:  int(g.inFlight.Load()),
		HighWater: int(g.highWater.Load()),
		Queued:    int(g.queued.Load()),
		Completed: int(g.completed.Load()),
	}
}

// Run submits tasks in order and blocks until every one has finished.
func (g *Gate) Run(tasks []func()) {
	var wg sync.WaitGroup
	g.queued.Add(int64(len(tasks)))

	for _, task := range tasks {
		// Acquire with a background context never fails.
		_ = g.sem.Acquire(context.Background(), 1)
		g.queued.Add(-1)
		g.enter()

		wg.Go(func() {
			defer g.leave()
			task()
		})
	}

	wg.Wait()
}

func (g *Gate) enter() {
	n := g.inFlight.Add(1)
	for {
		hw := g.highWater.Load()
		if n <= hw || g.highWater.CompareAndSwap(hw, n) {
			return
		}
	}
}

func (g *Gate) leave() {
	g.inFlight.Add(-1)
	g.completed.Add(1)
	g.sem.Release(1)
}

// RunEach applies fn to every item through the gate and returns the
// results in item order. A panic inside fn is turned into recovered's
// result for that item so sibling tasks are unaffected.
func RunEach[T, R any](g *Gate, items []T, fn func(T) R, recovered func(T, error) R) []R {
	results := make([]R, len(items))
	tasks := make([]func(), len(items))

	for i, item := range items {
		tasks[i] = func() {
			defer func() {
				if r := recover(); r != nil {
					results[i] = recovered(item, fmt.Errorf("task panicked: %v", r))
				}
			}()
			results[i] = fn(item)
		}
	}

	g.Run(tasks)
	return results
}
