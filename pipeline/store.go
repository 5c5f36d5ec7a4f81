package pipeline

import (
	"context"

	"github.com/basalt-ai/basalt/rag/vectorstore"
	"github.com/basalt-ai/basalt/schema"
)

// VectorStoreSink adapts a vectorstore.VectorStore, which persists
// schema.Documents, into the pipeline's Node-centric Store contract. It
// writes one dense vector per Node, taken from the tag named VectorTag
// (the "default" whole-chunk tag if unset).
type VectorStoreSink struct {
	Store     vectorstore.VectorStore
	VectorTag string
	batchSize int
}

// NewVectorStoreSink wraps store as a pipeline Store, batching writes in
// groups of batchSize.
func NewVectorStoreSink(store vectorstore.VectorStore, batchSize int) *VectorStoreSink {
	return &VectorStoreSink{Store: store, VectorTag: defaultEmbedTag, batchSize: batchSize}
}

func (s *VectorStoreSink) Upsert(ctx context.Context, nodes []schema.Node) error {
	tag := s.VectorTag
	if tag == "" {
		tag = defaultEmbedTag
	}

	docs := make([]schema.Document, len(nodes))
	vectors := make([][]float32, len(nodes))
	for i, n := range nodes {
		docs[i] = schema.Document{
			ID:       n.ID(),
			Content:  n.Chunk,
			Metadata: metadataToMap(n.Metadata),
		}
		vectors[i] = n.Vectors[tag]
	}
	return s.Store.Add(ctx, docs, vectors)
}

func (s *VectorStoreSink) BatchSize() int { return s.batchSize }

func (s *VectorStoreSink) IsBatching() bool { return s.batchSize > 1 }

func metadataToMap(m schema.Metadata) map[string]any {
	out := make(map[string]any, m.Len())
	m.Range(func(k string, v any) bool {
		out[k] = v
		return true
	})
	return out
}

var _ Store = (*VectorStoreSink)(nil)
