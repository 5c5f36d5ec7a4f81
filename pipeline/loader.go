package pipeline

import (
	"context"

	"github.com/basalt-ai/basalt/core"
	"github.com/basalt-ai/basalt/rag/loader"
	"github.com/basalt-ai/basalt/schema"
)

// DocumentLoader adapts a rag/loader.Loader into a pipeline Loader. The
// underlying Loader is not itself lazy, so Load reads path eagerly and
// streams one unchunked Node per Document produced, each carrying its
// Document's metadata and ready for a downstream ThenChunk stage.
type DocumentLoader struct {
	Loader loader.Loader
	Path   string
}

// NewDocumentLoader returns a DocumentLoader over l, reading path.
func NewDocumentLoader(l loader.Loader, path string) *DocumentLoader {
	return &DocumentLoader{Loader: l, Path: path}
}

func (l *DocumentLoader) Load(ctx context.Context) core.Stream[schema.Node] {
	return func(yield func(core.Event[schema.Node], error) bool) {
		docs, err := l.Loader.Load(ctx, l.Path)
		if err != nil {
			yield(core.Event[schema.Node]{}, err)
			return
		}
		for _, doc := range docs {
			n := schema.NewNodeBuilder().
				Chunk(doc.Content).
				Path(doc.ID).
				OriginalSize(len(doc.Content)).
				Build()
			for k, v := range doc.Metadata {
				n = n.WithMetadata(k, v)
			}
			if !yield(core.Event[schema.Node]{Type: core.EventData, Payload: n}, nil) {
				return
			}
		}
	}
}

var _ Loader = (*DocumentLoader)(nil)
