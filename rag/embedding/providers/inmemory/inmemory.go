// Package inmemory registers a deterministic, hash-based embedder with no
// external dependency, useful for tests and local development.
package inmemory

import (
	"context"
	"hash/fnv"

	"github.com/basalt-ai/basalt/config"
	"github.com/basalt-ai/basalt/rag/embedding"
)

const defaultDimensions = 128

// Embedder hashes each text into a deterministic pseudo-random vector of
// fixed dimensionality. It never calls out to a network.
type Embedder struct {
	dimensions int
}

// New returns an Embedder producing dims-dimension vectors; dims <= 0
// falls back to defaultDimensions.
func New(dims int) *Embedder {
	if dims <= 0 {
		dims = defaultDimensions
	}
	return &Embedder{dimensions: dims}
}

func (e *Embedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = hashVector(text, e.dimensions)
	}
	return vectors, nil
}

func (e *Embedder) EmbedSingle(_ context.Context, text string) ([]float32, error) {
	return hashVector(text, e.dimensions), nil
}

func (e *Embedder) Dimensions() int { return e.dimensions }

// hashVector derives a deterministic vector from text by seeding an FNV
// hash per dimension with the dimension index, so identical text always
// produces the identical vector and distinct text (almost certainly)
// produces a distinct one.
func hashVector(text string, dims int) []float32 {
	vec := make([]float32, dims)
	for i := 0; i < dims; i++ {
		h := fnv.New32a()
		h.Write([]byte{byte(i), byte(i >> 8)})
		h.Write([]byte(text))
		v := h.Sum32()
		vec[i] = (float32(v%20000) - 10000) / 10000
	}
	return vec
}

var _ embedding.Embedder = (*Embedder)(nil)

func init() {
	embedding.Register("inmemory", func(cfg config.ProviderConfig) (embedding.Embedder, error) {
		dims := defaultDimensions
		if d, ok := config.GetOption[float64](cfg, "dimensions"); ok {
			dims = int(d)
		}
		return New(dims), nil
	})
}
