package testutil

import (
	"github.com/basalt-ai/basalt/internal/testutil/mockembedder"
	"github.com/basalt-ai/basalt/internal/testutil/mockstore"
	"github.com/basalt-ai/basalt/internal/testutil/mockworkflow"
	"github.com/basalt-ai/basalt/rag/embedding"
	"github.com/basalt-ai/basalt/rag/vectorstore"
	"github.com/basalt-ai/basalt/workflow"
)

// Compile-time interface checks to ensure mocks implement their target interfaces.
var (
	_ embedding.Embedder      = (*mockembedder.MockEmbedder)(nil)
	_ vectorstore.VectorStore = (*mockstore.MockVectorStore)(nil)
	_ workflow.WorkflowStore  = (*mockworkflow.MockWorkflowStore)(nil)
)
