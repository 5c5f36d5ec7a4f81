package schema

import (
	"fmt"

	"github.com/google/uuid"
)

// EmbedMode selects which embedded-field tags the embed pipeline stage
// produces for a Node.
type EmbedMode int

const (
	// SingleWithMetadata embeds the whole chunk together with its
	// metadata serialized inline, producing one vector per node.
	SingleWithMetadata EmbedMode = iota
	// PerField embeds the chunk and each metadata field independently.
	PerField
	// Both produces the SingleWithMetadata vector and the PerField
	// vectors together.
	Both
)

// SparseVector is a sparse embedding: parallel index/value slices, indices
// strictly ascending.
type SparseVector struct {
	Indices []int
	Values  []float32
}

// nodeNamespace anchors Node's content-derived id so it stays stable across
// processes and runs; any fixed UUID would do, this one is arbitrary.
var nodeNamespace = uuid.MustParse("c9c3c350-0a9d-4b1e-9c7e-5e9f9d2a7b41")

func deriveNodeID(path, chunk string, offset, originalSize int) string {
	canon := fmt.Sprintf("%s\x00%d\x00%d\x00%s", path, offset, originalSize, chunk)
	return uuid.NewMD5(nodeNamespace, []byte(canon)).String()
}

// metadataEntry is one ordered (key, value) pair in a Metadata.
type metadataEntry struct {
	key   string
	value any
}

// metadataData is the shared backing store for a Metadata value. Metadata
// never mutates it in place; Set clones into a new metadataData, which
// makes plain struct-copy cloning of a Node cheap (the copy shares the old
// backing store until the next Set).
type metadataData struct {
	entries []metadataEntry
	index   map[string]int
}

// Metadata is an insertion-order-preserving string-keyed map of arbitrary
// JSON-equivalent values. A bare Go map has no iteration-order guarantee,
// which the Node model requires for stable re-embedding and serialization.
type Metadata struct {
	data *metadataData
}

// NewMetadata returns an empty Metadata.
func NewMetadata() Metadata {
	return Metadata{}
}

// Get returns the value stored under key, if any.
func (m Metadata) Get(key string) (any, bool) {
	if m.data == nil {
		return nil, false
	}
	i, ok := m.data.index[key]
	if !ok {
		return nil, false
	}
	return m.data.entries[i].value, true
}

// Set returns a Metadata with key bound to value. An existing key is
// updated in place, preserving its original position; a new key is
// appended. The receiver is left unmodified.
func (m Metadata) Set(key string, value any) Metadata {
	nd := &metadataData{index: make(map[string]int, m.Len()+1)}
	if m.data != nil {
		nd.entries = append(nd.entries, m.data.entries...)
		for k, i := range m.data.index {
			nd.index[k] = i
		}
	}
	if i, ok := nd.index[key]; ok {
		nd.entries[i].value = value
	} else {
		nd.index[key] = len(nd.entries)
		nd.entries = append(nd.entries, metadataEntry{key: key, value: value})
	}
	return Metadata{data: nd}
}

// Keys returns the metadata keys in insertion order.
func (m Metadata) Keys() []string {
	if m.data == nil {
		return nil
	}
	keys := make([]string, len(m.data.entries))
	for i, e := range m.data.entries {
		keys[i] = e.key
	}
	return keys
}

// Len returns the number of entries.
func (m Metadata) Len() int {
	if m.data == nil {
		return 0
	}
	return len(m.data.entries)
}

// Range calls fn for each entry in insertion order, stopping early if fn
// returns false.
func (m Metadata) Range(fn func(key string, value any) bool) {
	if m.data == nil {
		return
	}
	for _, e := range m.data.entries {
		if !fn(e.key, e.value) {
			return
		}
	}
}

// Node is the unit that flows through the indexing pipeline and is
// ultimately written to a vector store: a chunk of text, its source
// locator, ordered metadata, and the vectors computed for it.
//
// A Node's id is derived from (path, chunk, offset, original size) and
// recomputed whenever any of those fields changes; metadata-only edits
// leave the id untouched. Construct and mutate a Node only through
// NodeBuilder / the With* methods so id derivation stays consistent.
type Node struct {
	id            string
	Chunk         string
	OriginalSize  int
	Offset        int
	Path          string
	Metadata      Metadata
	Vectors       map[string][]float32
	SparseVectors map[string]SparseVector
	EmbedMode     EmbedMode
}

// ID returns the node's content-derived identifier.
func (n Node) ID() string { return n.id }

func (n Node) recomputeID() Node {
	n.id = deriveNodeID(n.Path, n.Chunk, n.Offset, n.OriginalSize)
	return n
}

// WithChunk returns a copy of n with Chunk replaced and id recomputed.
func (n Node) WithChunk(chunk string) Node {
	n.Chunk = chunk
	return n.recomputeID()
}

// WithPath returns a copy of n with Path replaced and id recomputed.
func (n Node) WithPath(path string) Node {
	n.Path = path
	return n.recomputeID()
}

// WithOffset returns a copy of n with Offset replaced and id recomputed.
func (n Node) WithOffset(offset int) Node {
	n.Offset = offset
	return n.recomputeID()
}

// WithOriginalSize returns a copy of n with OriginalSize replaced and id
// recomputed.
func (n Node) WithOriginalSize(size int) Node {
	n.OriginalSize = size
	return n.recomputeID()
}

// WithMetadata returns a copy of n with key bound to value in its
// metadata. Metadata-only changes never alter id.
func (n Node) WithMetadata(key string, value any) Node {
	n.Metadata = n.Metadata.Set(key, value)
	return n
}

// WithVector attaches a dense vector under the given embedded-field tag.
func (n Node) WithVector(tag string, vec []float32) Node {
	vectors := make(map[string][]float32, len(n.Vectors)+1)
	for k, v := range n.Vectors {
		vectors[k] = v
	}
	vectors[tag] = vec
	n.Vectors = vectors
	return n
}

// WithSparseVector attaches a sparse vector under the given embedded-field
// tag.
func (n Node) WithSparseVector(tag string, vec SparseVector) Node {
	sparse := make(map[string]SparseVector, len(n.SparseVectors)+1)
	for k, v := range n.SparseVectors {
		sparse[k] = v
	}
	sparse[tag] = vec
	n.SparseVectors = sparse
	return n
}

// NodeBuilder constructs Nodes. It is the only way to obtain a Node with a
// populated id: the id is always derived, never set directly.
type NodeBuilder struct {
	node Node
}

// NewNodeBuilder returns a builder seeded with empty metadata and
// SingleWithMetadata embed mode.
func NewNodeBuilder() *NodeBuilder {
	return &NodeBuilder{node: Node{Metadata: NewMetadata(), EmbedMode: SingleWithMetadata}}
}

func (b *NodeBuilder) Chunk(chunk string) *NodeBuilder {
	b.node.Chunk = chunk
	return b
}

func (b *NodeBuilder) Path(path string) *NodeBuilder {
	b.node.Path = path
	return b
}

func (b *NodeBuilder) Offset(offset int) *NodeBuilder {
	b.node.Offset = offset
	return b
}

func (b *NodeBuilder) OriginalSize(size int) *NodeBuilder {
	b.node.OriginalSize = size
	return b
}

func (b *NodeBuilder) Metadata(key string, value any) *NodeBuilder {
	b.node.Metadata = b.node.Metadata.Set(key, value)
	return b
}

func (b *NodeBuilder) EmbedMode(mode EmbedMode) *NodeBuilder {
	b.node.EmbedMode = mode
	return b
}

// Build derives the node's id from its current fields and returns it.
func (b *NodeBuilder) Build() Node {
	return b.node.recomputeID()
}
