package pipeline

import (
	"context"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/basalt-ai/basalt/core"
	"github.com/basalt-ai/basalt/schema"
)

// Transform maps one Node to one Node.
type Transform func(ctx context.Context, n schema.Node) (schema.Node, error)

// Then applies t to every Node at the pipeline's configured concurrency.
func (p *Pipeline) Then(t Transform) *Pipeline {
	concurrency := p.concurrency
	prev := p.build
	return p.derive(func(ctx context.Context) core.Stream[schema.Node] {
		return runStage(ctx, concurrency, prev(ctx), func(ctx context.Context, n schema.Node) ([]schema.Node, error) {
			out, err := t(ctx, n)
			if err != nil {
				return nil, err
			}
			return []schema.Node{out}, nil
		})
	})
}

// BatchTransform maps a batch of Nodes to a (possibly different length)
// batch of Nodes.
type BatchTransform func(ctx context.Context, batch []schema.Node) ([]schema.Node, error)

// ThenInBatch groups Nodes into batches of size batchSize (the
// pipeline's default if batchSize <= 0) and applies b to each batch, one
// in-flight batch per concurrency slot.
func (p *Pipeline) ThenInBatch(b BatchTransform, batchSize int) *Pipeline {
	if batchSize <= 0 {
		batchSize = p.batchSize
	}
	concurrency := p.concurrency
	prev := p.build
	return p.derive(func(ctx context.Context) core.Stream[schema.Node] {
		return runBatchStage(ctx, concurrency, batchSize, prev(ctx), batchWorker(b))
	})
}

// Chunker splits one Node into zero or more Nodes that inherit its
// metadata (a text splitter, most commonly).
type Chunker func(ctx context.Context, n schema.Node) ([]schema.Node, error)

// ThenChunk applies s to every Node at the pipeline's configured
// concurrency, replacing each input Node with the Nodes s produces.
func (p *Pipeline) ThenChunk(s Chunker) *Pipeline {
	concurrency := p.concurrency
	prev := p.build
	return p.derive(func(ctx context.Context) core.Stream[schema.Node] {
		return runStage(ctx, concurrency, prev(ctx), nodeWorker(s))
	})
}

// Predicate reports whether a Node should continue downstream.
type Predicate func(n schema.Node) bool

// Filter drops every Node for which p returns false.
func (p *Pipeline) Filter(pred Predicate) *Pipeline {
	concurrency := p.concurrency
	prev := p.build
	return p.derive(func(ctx context.Context) core.Stream[schema.Node] {
		return runStage(ctx, concurrency, prev(ctx), func(_ context.Context, n schema.Node) ([]schema.Node, error) {
			if !pred(n) {
				return nil, nil
			}
			return []schema.Node{n}, nil
		})
	})
}

// Cache is the deduplication contract FilterCached runs against: Seen
// reports whether a Node's id has already been processed, Mark records
// that it now has. Both adapt naturally onto cache.Cache (Get/Set keyed
// on the node id).
type Cache interface {
	Seen(ctx context.Context, id string) (bool, error)
	Mark(ctx context.Context, id string) error
}

// FilterCached drops every Node whose id c reports as already seen, and
// marks every Node that passes through as seen only once it has cleared
// every stage derived downstream of this call (mark-on-success), via a
// pipeline finalizer, so a failed run can be retried without skipping
// work it never actually completed. A Seen or Mark failure is logged and
// treated as a cache miss rather than a fatal stream error: the cache is
// an optimization, not a correctness dependency, and core.ErrCache is
// always non-fatal.
func (p *Pipeline) FilterCached(c Cache) *Pipeline {
	concurrency := p.concurrency
	prev := p.build
	logger := p.logger
	np := p.derive(func(ctx context.Context) core.Stream[schema.Node] {
		return runStage(ctx, concurrency, prev(ctx), func(ctx context.Context, n schema.Node) ([]schema.Node, error) {
			seen, err := c.Seen(ctx, n.ID())
			if err != nil {
				logCacheError(ctx, logger, "cache seen check failed, treating node as cache miss", n.ID(), err)
				return []schema.Node{n}, nil
			}
			if seen {
				return nil, nil
			}
			return []schema.Node{n}, nil
		})
	})
	return np.withFinalizer(func(ctx context.Context, n schema.Node) {
		if err := c.Mark(ctx, n.ID()); err != nil {
			logCacheError(ctx, logger, "cache mark failed, node may be reprocessed on retry", n.ID(), err)
		}
	})
}

func logCacheError(ctx context.Context, logger *slog.Logger, msg, nodeID string, err error) {
	if logger == nil {
		return
	}
	logger.ErrorContext(ctx, msg, "node_id", nodeID, "error", core.NewError("pipeline.FilterCached", core.ErrCache, msg, err))
}

// SplitBy partitions the pipeline into two: the first contains every
// Node for which pred returns true, the second every Node for which it
// returns false. Both sub-pipelines read the same upstream build, so
// only one of them should Run (use ThenStoreWith + Merge to recombine,
// or Run them concurrently with independent goroutines).
func (p *Pipeline) SplitBy(pred Predicate) (matched, unmatched *Pipeline) {
	return p.Filter(pred), p.Filter(func(n schema.Node) bool { return !pred(n) })
}

// Merge interleaves other's Nodes with p's, in whichever order each
// stream actually produces them.
func (p *Pipeline) Merge(other *Pipeline) *Pipeline {
	prevA, prevB := p.build, other.build
	return p.derive(func(ctx context.Context) core.Stream[schema.Node] {
		return core.MergeStreams(ctx, prevA(ctx), prevB(ctx))
	})
}

// Throttle rate-limits how fast Nodes leave this stage, via a
// token-bucket limiter accepting up to burst Nodes before blocking.
func (p *Pipeline) Throttle(r rate.Limit, burst int) *Pipeline {
	limiter := rate.NewLimiter(r, burst)
	prev := p.build
	return p.derive(func(ctx context.Context) core.Stream[schema.Node] {
		src := prev(ctx)
		return func(yield func(core.Event[schema.Node], error) bool) {
			for event, err := range src {
				if err == nil {
					if werr := limiter.Wait(ctx); werr != nil {
						yield(core.Event[schema.Node]{}, werr)
						return
					}
				}
				if !yield(event, err) {
					return
				}
				if err != nil {
					return
				}
			}
		}
	})
}

// Store is the write target ThenStoreWith persists Nodes to. Upsert must
// be idempotent, keyed by each Node's id.
type Store interface {
	Upsert(ctx context.Context, nodes []schema.Node) error
	// BatchSize reports the write batching window this store prefers.
	BatchSize() int
	// IsBatching reports whether this store benefits from batched
	// writes at all (false means every Upsert call should see exactly
	// one Node).
	IsBatching() bool
}

// ThenStoreWith fans every Node out to every store, in registration
// order with respect to that Node (but not across Nodes), and passes
// each Node through unchanged. The first store's BatchSize defines the
// batching window for all of them.
func (p *Pipeline) ThenStoreWith(stores ...Store) *Pipeline {
	if len(stores) == 0 {
		return p
	}
	batchSize := p.batchSize
	if stores[0].IsBatching() && stores[0].BatchSize() > 0 {
		batchSize = stores[0].BatchSize()
	}
	concurrency := p.concurrency
	prev := p.build
	return p.derive(func(ctx context.Context) core.Stream[schema.Node] {
		return runBatchStage(ctx, concurrency, batchSize, prev(ctx), func(ctx context.Context, batch []schema.Node) ([]schema.Node, error) {
			for _, s := range stores {
				if err := s.Upsert(ctx, batch); err != nil {
					return nil, err
				}
			}
			return batch, nil
		})
	})
}
