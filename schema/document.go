package schema

// Document is the retrieval-facing unit used by the rag/* packages: a flat
// chunk of text with metadata, an optional relevance score, and an optional
// embedding. It predates and is simpler than Node, which the indexing
// pipeline uses internally; loaders, embedders, and vector stores speak
// Document so they stay usable outside the pipeline.
type Document struct {
	ID        string
	Content   string
	Metadata  map[string]any
	Score     float64
	Embedding []float32
}
