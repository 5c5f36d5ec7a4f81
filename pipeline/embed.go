package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/basalt-ai/basalt/rag/embedding"
	"github.com/basalt-ai/basalt/schema"
)

// defaultEmbedTag names the embedded-field tag a Node's whole chunk is
// stored under, as opposed to a per-metadata-field tag.
const defaultEmbedTag = "default"

// embedTags returns the embedded-field tags n should produce for its
// EmbedMode: the whole-chunk tag for SingleWithMetadata, the whole-chunk
// tag plus one tag per metadata key for PerField and Both alike — PerField
// still needs a whole-chunk vector alongside its per-field ones, it just
// omits the SingleWithMetadata combined-text encoding of that tag (see
// embedText).
func embedTags(n schema.Node) []string {
	switch n.EmbedMode {
	case schema.PerField, schema.Both:
		tags := []string{defaultEmbedTag}
		return append(tags, n.Metadata.Keys()...)
	default:
		return []string{defaultEmbedTag}
	}
}

// embedText returns the text embedded under tag for n. The whole-chunk tag
// is ambiguous on its own: under SingleWithMetadata and Both it is (or
// stands in for) the combined whole-chunk-with-metadata vector schema.Node
// documents those modes as producing, so it carries the chunk AND its
// metadata serialized inline. Under PerField, metadata already gets its
// own per-field tags, so the whole-chunk tag stays the bare chunk.
func embedText(n schema.Node, tag string) string {
	if tag == defaultEmbedTag {
		if n.EmbedMode == schema.PerField {
			return n.Chunk
		}
		return chunkWithMetadata(n)
	}
	if v, ok := n.Metadata.Get(tag); ok {
		return fmt.Sprintf("%v", v)
	}
	return ""
}

func chunkWithMetadata(n schema.Node) string {
	if n.Metadata.Len() == 0 {
		return n.Chunk
	}
	var b strings.Builder
	b.WriteString(n.Chunk)
	n.Metadata.Range(func(key string, value any) bool {
		fmt.Fprintf(&b, "\n%s: %v", key, value)
		return true
	})
	return b.String()
}

// ThenEmbed computes dense embeddings for every Node in the stream,
// batching across nodes AND their embedded-field tags in groups of
// batchSize (the pipeline default if <= 0), and distributes the
// resulting vectors back onto their originating (node, tag) pair. A
// batch fails atomically: one failed Embed call fails every Node in it,
// and after a successful batch each returned Node's vector count equals
// its tag count.
func (p *Pipeline) ThenEmbed(model embedding.Embedder, batchSize int) *Pipeline {
	return p.ThenInBatch(func(ctx context.Context, batch []schema.Node) ([]schema.Node, error) {
		type slot struct {
			nodeIdx int
			tag     string
		}
		var texts []string
		var slots []slot
		for i, n := range batch {
			for _, tag := range embedTags(n) {
				texts = append(texts, embedText(n, tag))
				slots = append(slots, slot{nodeIdx: i, tag: tag})
			}
		}
		if len(texts) == 0 {
			return batch, nil
		}

		vectors, err := model.Embed(ctx, texts)
		if err != nil {
			return nil, err
		}

		out := make([]schema.Node, len(batch))
		copy(out, batch)
		for i, s := range slots {
			out[s.nodeIdx] = out[s.nodeIdx].WithVector(s.tag, vectors[i])
		}
		return out, nil
	}, batchSize)
}
