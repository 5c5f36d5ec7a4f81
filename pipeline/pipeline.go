// Package pipeline implements the indexing pipeline: a typed,
// asynchronous, concurrent composition of stages over schema.Nodes,
// generalized from core.Stream's iter.Seq2 event substrate and
// core.BatchInvoke's bounded-worker-pool concurrency model.
package pipeline

import (
	"context"
	"log/slog"
	"runtime"

	"github.com/basalt-ai/basalt/core"
	"github.com/basalt-ai/basalt/schema"
)

const defaultBatchSize = 256

// Loader produces the lazy stream of Nodes a pipeline starts from, e.g.
// a source document read, split into chunks.
type Loader interface {
	Load(ctx context.Context) core.Stream[schema.Node]
}

// LoaderFunc adapts a plain function to the Loader interface.
type LoaderFunc func(ctx context.Context) core.Stream[schema.Node]

func (f LoaderFunc) Load(ctx context.Context) core.Stream[schema.Node] { return f(ctx) }

// build lazily constructs the full composed Stream for a given run
// context; every combinator method returns a Pipeline whose build wraps
// the previous one.
type build func(ctx context.Context) core.Stream[schema.Node]

// Pipeline is an immutable, chainable composition of stages over a
// stream of Nodes. Every combinator method returns a new Pipeline;
// nothing runs until Run is called.
type Pipeline struct {
	build        build
	concurrency  int
	batchSize    int
	filterErrors bool
	logger       *slog.Logger
	finalizers   []func(ctx context.Context, n schema.Node)
}

// Option configures a Pipeline at construction or per-stage.
type Option func(*Pipeline)

// WithConcurrency overrides the pipeline's default stage concurrency
// (runtime.NumCPU() otherwise).
func WithConcurrency(n int) Option {
	return func(p *Pipeline) { p.concurrency = n }
}

// WithBatchSize overrides the pipeline's default batch size (256
// otherwise) for stages that batch.
func WithBatchSize(n int) Option {
	return func(p *Pipeline) { p.batchSize = n }
}

// FromLoader starts a Pipeline from l's lazy stream of Nodes.
func FromLoader(l Loader, opts ...Option) *Pipeline {
	p := &Pipeline{
		build:       l.Load,
		concurrency: runtime.NumCPU(),
		batchSize:   defaultBatchSize,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// derive returns a copy of p with build replaced, carrying forward every
// other setting.
func (p *Pipeline) derive(b build) *Pipeline {
	return &Pipeline{
		build:        b,
		concurrency:  p.concurrency,
		batchSize:    p.batchSize,
		filterErrors: p.filterErrors,
		logger:       p.logger,
		finalizers:   p.finalizers,
	}
}

// withFinalizer returns a copy of p that additionally invokes fn for every
// Node that reaches the end of the built stream, i.e. after it has cleared
// every stage derived downstream of the call site. FilterCached uses this
// to mark a Node seen only once it is known to have survived the rest of
// the pipeline, rather than the moment FilterCached's own stage admits it.
func (p *Pipeline) withFinalizer(fn func(ctx context.Context, n schema.Node)) *Pipeline {
	np := p.derive(p.build)
	np.finalizers = append(append([]func(ctx context.Context, n schema.Node){}, p.finalizers...), fn)
	return np
}

func (p *Pipeline) runFinalizers(ctx context.Context, n schema.Node) {
	for _, fn := range p.finalizers {
		fn(ctx, n)
	}
}

// FilterErrors drops stream errors instead of terminating Run on the
// first one.
func (p *Pipeline) FilterErrors() *Pipeline {
	np := p.derive(p.build)
	np.filterErrors = true
	return np
}

// LogErrors logs stream errors via logger (at Error level) and drops
// them instead of terminating Run on the first one.
func (p *Pipeline) LogErrors(logger *slog.Logger) *Pipeline {
	np := p.derive(p.build)
	np.logger = logger
	return np
}

// Run drains the pipeline to completion. It returns nil once every Node
// has flowed through every stage, or the first stage error encountered
// (unless FilterErrors/LogErrors was applied, in which case errors are
// dropped after being logged).
func (p *Pipeline) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream := p.build(runCtx)
	for event, err := range stream {
		if err != nil {
			if p.logger != nil {
				p.logger.ErrorContext(ctx, "pipeline stage error", "error", err)
			}
			if p.filterErrors || p.logger != nil {
				continue
			}
			return err
		}
		p.runFinalizers(runCtx, event.Payload)
	}
	return nil
}

// Collect drains the pipeline and returns every Node that reached the
// end, alongside the same error Run would have returned. It is meant for
// tests and small pipelines; production pipelines should end in
// ThenStoreWith and call Run.
func (p *Pipeline) Collect(ctx context.Context) ([]schema.Node, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var nodes []schema.Node
	stream := p.build(runCtx)
	for event, err := range stream {
		if err != nil {
			if p.logger != nil {
				p.logger.ErrorContext(ctx, "pipeline stage error", "error", err)
			}
			if p.filterErrors || p.logger != nil {
				continue
			}
			return nodes, err
		}
		p.runFinalizers(runCtx, event.Payload)
		nodes = append(nodes, event.Payload)
	}
	return nodes, nil
}
