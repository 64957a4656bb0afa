// Package batch runs tasks in fixed-size concurrent groups. Groups execute
// strictly one after another; tasks inside a group run concurrently.
//
// Two join policies are offered. RunAll stops at the first group containing
// a failed task and discards that group's values. RunSettled records every
// task's outcome and never aborts.
package batch

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Group is a half-open range [Start, End) of item positions.
type Group struct {
	Start int
	End   int
}

// Len returns the number of items in the group.
func (g Group) Len() int { return g.End - g.Start }

// Partition splits n items into contiguous groups of at most size items.
func Partition(n, size int) []Group {
	if n <= 0 {
		return nil
	}
	if size <= 0 {
		size = 1
	}
	groups := make([]Group, 0, (n+size-1)/size)
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		groups = append(groups, Group{Start: start, End: end})
	}
	return groups
}

// Task processes the item at position index.
type Task[T, R any] func(ctx context.Context, index int, item T) (R, error)

// RunAll runs every group and joins each one all-or-nothing: when a task
// fails, its siblings are still awaited but their values are dropped and no
// further group starts. The first error of the failing group is returned.
func RunAll[T, R any](ctx context.Context, items []T, concurrency int, task Task[T, R]) ([]R, error) {
	results := make([]R, len(items))
	for _, g := range Partition(len(items), concurrency) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		groupResults := make([]R, g.Len())
		var eg errgroup.Group
		for i := g.Start; i < g.End; i++ {
			i := i
			eg.Go(func() error {
				v, err := task(ctx, i, items[i])
				if err != nil {
					return err
				}
				groupResults[i-g.Start] = v
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return nil, err
		}
		copy(results[g.Start:g.End], groupResults)
	}
	return results, nil
}

// Outcome is the settled result of one task.
type Outcome[R any] struct {
	Value R
	Err   error
}

// OK reports whether the task succeeded.
func (o Outcome[R]) OK() bool { return o.Err == nil }

// RunSettled runs every group and records each task's outcome at its
// original position. A failing task never affects its siblings. Groups not
// started because ctx ended carry ctx's error.
func RunSettled[T, R any](ctx context.Context, items []T, concurrency int, task Task[T, R]) []Outcome[R] {
	outcomes := make([]Outcome[R], len(items))
	for _, g := range Partition(len(items), concurrency) {
		if err := ctx.Err(); err != nil {
			for i := g.Start; i < len(items); i++ {
				outcomes[i].Err = err
			}
			return outcomes
		}
		var wg sync.WaitGroup
		for i := g.Start; i < g.End; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				v, err := task(ctx, i, items[i])
				outcomes[i] = Outcome[R]{Value: v, Err: err}
			}(i)
		}
		wg.Wait()
	}
	return outcomes
}
