// Package workers runs independent jobs on a bounded pool and hands results
// back in submission order.
package workers

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
)

// Result is the outcome of one job.
type Result[R any] struct {
	Value R
	Err   error
}

// PanicError carries a value recovered from a panicking job.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string { return fmt.Sprintf("panic: %v", e.Value) }

// Map applies fn to every item using at most n goroutines. n <= 0 uses one
// worker per CPU. A panic in fn is recovered into a *PanicError for that item
// only. Items not yet started when ctx is cancelled get ctx.Err().
func Map[T, R any](ctx context.Context, n int, items []T, fn func(ctx context.Context, item T) (R, error)) []Result[R] {
	if n <= 0 {
		n = runtime.NumCPU()
	}
	if n > len(items) {
		n = len(items)
	}
	out := make([]Result[R], len(items))
	if len(items) == 0 {
		return out
	}

	jobs := make(chan int, n*2)
	var wg sync.WaitGroup
	worker := func() {
		defer wg.Done()
		for i := range jobs {
			if err := ctx.Err(); err != nil {
				out[i].Err = err
				continue
			}
			out[i] = run(ctx, items[i], fn)
		}
	}
	wg.Add(n)
	for range n {
		go worker()
	}
	for i := range items {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return out
}

func run[T, R any](ctx context.Context, item T, fn func(ctx context.Context, item T) (R, error)) (res Result[R]) {
	defer func() {
		if p := recover(); p != nil {
			res = Result[R]{Err: &PanicError{Value: p, Stack: debug.Stack()}}
		}
	}()
	v, err := fn(ctx, item)
	return Result[R]{Value: v, Err: err}
}
