// Package worker runs a function over a slice with a bounded number of
// goroutines, keeping results in input order.
package worker

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/rotisserie/eris"
)

// ErrStopped is returned by ProcessAll when the stop channel closed before
// every item was dispatched. Items already in flight still complete.
var ErrStopped = eris.New("worker: stopped before all items were processed")

// Options configures ProcessAll.
type Options struct {
	// Workers is the number of concurrent goroutines. Default: 4.
	Workers int

	// Stop, when closed, prevents further items from being handed out.
	// Unlike cancelling ctx it does not interrupt items already running.
	Stop <-chan struct{}

	// OnResult is called from a single goroutine as each item completes,
	// in completion order.
	OnResult func(idx int, err error)
}

// Result is the outcome for one input item.
type Result[In any, Out any] struct {
	Input  In
	Output Out
	Err    error
	// Done is false for items never dispatched because of Stop or ctx.
	Done bool
}

// PanicError is returned in Result.Err when the processor panicked.
type PanicError struct {
	Value any
	Stack string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// ProcessAll runs fn over items. out[i] always corresponds to items[i].
// A failing item never stops the others. It returns ctx.Err() if ctx was
// cancelled and ErrStopped if Stop closed early; the partial results are
// returned in both cases.
func ProcessAll[In any, Out any](
	ctx context.Context,
	items []In,
	fn func(context.Context, In) (Out, error),
	opts Options,
) ([]Result[In, Out], error) {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}

	out := make([]Result[In, Out], len(items))
	for i, it := range items {
		out[i].Input = it
	}

	type completion struct {
		idx int
		out Out
		err error
	}

	jobs := make(chan int)
	done := make(chan completion, opts.Workers)

	var wg sync.WaitGroup
	for w := 0; w < opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				o, err := runOne(ctx, items[idx], fn)
				done <- completion{idx: idx, out: o, err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := range items {
			// Check stop and ctx first so a closed Stop always wins over a
			// ready worker.
			select {
			case <-opts.Stop:
				return
			case <-ctx.Done():
				return
			default:
			}
			select {
			case jobs <- i:
			case <-opts.Stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(done)
	}()

	for c := range done {
		out[c.idx].Output = c.out
		out[c.idx].Err = c.err
		out[c.idx].Done = true
		if opts.OnResult != nil {
			opts.OnResult(c.idx, c.err)
		}
	}

	if err := ctx.Err(); err != nil {
		return out, err
	}
	for i := range out {
		if !out[i].Done {
			return out, ErrStopped
		}
	}
	return out, nil
}

func runOne[In any, Out any](ctx context.Context, item In, fn func(context.Context, In) (Out, error)) (o Out, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: string(debug.Stack())}
		}
	}()
	return fn(ctx, item)
}
