package pipeline

import (
	"context"
	"sync"

	"github.com/basalt-ai/basalt/core"
	"github.com/basalt-ai/basalt/schema"
)

// nodeWorker transforms one Node into zero or more output Nodes. An error
// terminates the whole stream.
type nodeWorker func(ctx context.Context, n schema.Node) ([]schema.Node, error)

// runStage fans src out across concurrency goroutines, each applying
// work to one Node at a time and feeding results into the returned
// Stream. It is the substrate for Then, Filter, ThenChunk, and
// FilterCached: all of them are "zero or more Nodes out per Node in".
//
// Ordering is not preserved when concurrency > 1: results are emitted as
// workers finish, not in input order.
func runStage(ctx context.Context, concurrency int, src core.Stream[schema.Node], work nodeWorker) core.Stream[schema.Node] {
	if concurrency < 1 {
		concurrency = 1
	}

	return func(yield func(core.Event[schema.Node], error) bool) {
		stageCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		sem := make(chan struct{}, concurrency)
		out := make(chan schema.Node)
		errCh := make(chan error, 1)
		var wg sync.WaitGroup

		go func() {
			defer close(out)
			for event, srcErr := range src {
				if srcErr != nil {
					reportErr(errCh, srcErr)
					return
				}
				select {
				case sem <- struct{}{}:
				case <-stageCtx.Done():
					return
				}

				wg.Add(1)
				go func(n schema.Node) {
					defer wg.Done()
					defer func() { <-sem }()

					results, err := work(stageCtx, n)
					if err != nil {
						reportErr(errCh, err)
						return
					}
					for _, r := range results {
						select {
						case out <- r:
						case <-stageCtx.Done():
							return
						}
					}
				}(event.Payload)
			}
			wg.Wait()
		}()

		for {
			select {
			case n, ok := <-out:
				if !ok {
					drainErr(yield, errCh)
					return
				}
				if !yield(core.Event[schema.Node]{Type: core.EventData, Payload: n}, nil) {
					cancel()
					return
				}
			case err := <-errCh:
				cancel()
				yield(core.Event[schema.Node]{}, err)
				return
			}
		}
	}
}

// batchWorker transforms one batch of Nodes into zero or more output
// Nodes. An error terminates the whole stream.
type batchWorker func(ctx context.Context, batch []schema.Node) ([]schema.Node, error)

// runBatchStage groups src into batches of up to batchSize Nodes (or
// whatever is available when src is exhausted), dispatching at most
// concurrency batches at once — one in-flight batch per concurrency
// slot, per the pipeline's batching contract.
func runBatchStage(ctx context.Context, concurrency, batchSize int, src core.Stream[schema.Node], work batchWorker) core.Stream[schema.Node] {
	if concurrency < 1 {
		concurrency = 1
	}
	if batchSize < 1 {
		batchSize = defaultBatchSize
	}

	return func(yield func(core.Event[schema.Node], error) bool) {
		stageCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		sem := make(chan struct{}, concurrency)
		out := make(chan schema.Node)
		errCh := make(chan error, 1)
		var wg sync.WaitGroup

		dispatch := func(batch []schema.Node) bool {
			select {
			case sem <- struct{}{}:
			case <-stageCtx.Done():
				return false
			}
			wg.Add(1)
			go func(b []schema.Node) {
				defer wg.Done()
				defer func() { <-sem }()

				results, err := work(stageCtx, b)
				if err != nil {
					reportErr(errCh, err)
					return
				}
				for _, r := range results {
					select {
					case out <- r:
					case <-stageCtx.Done():
						return
					}
				}
			}(batch)
			return true
		}

		go func() {
			defer close(out)
			batch := make([]schema.Node, 0, batchSize)
			for event, srcErr := range src {
				if srcErr != nil {
					reportErr(errCh, srcErr)
					return
				}
				batch = append(batch, event.Payload)
				if len(batch) >= batchSize {
					if !dispatch(batch) {
						return
					}
					batch = make([]schema.Node, 0, batchSize)
				}
			}
			if len(batch) > 0 {
				dispatch(batch)
			}
			wg.Wait()
		}()

		for {
			select {
			case n, ok := <-out:
				if !ok {
					drainErr(yield, errCh)
					return
				}
				if !yield(core.Event[schema.Node]{Type: core.EventData, Payload: n}, nil) {
					cancel()
					return
				}
			case err := <-errCh:
				cancel()
				yield(core.Event[schema.Node]{}, err)
				return
			}
		}
	}
}

func reportErr(errCh chan error, err error) {
	select {
	case errCh <- err:
	default:
	}
}

func drainErr(yield func(core.Event[schema.Node], error) bool, errCh chan error) {
	select {
	case err := <-errCh:
		yield(core.Event[schema.Node]{}, err)
	default:
	}
}
