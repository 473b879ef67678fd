package retrieval

import (
	"context"

	"github.com/rashee1997/orchestrator-sub000/types"
)

// CodeChunk is one hit from the embedding store.
type CodeChunk struct {
	FilePathRelative string
	EntityName       string
	ChunkText        string
	Score            float64
	Type             string
	Language         string
	Lines            string
}

// EmbeddingStore is the outbound contract for vector similarity search
// over an agent-scoped code corpus.
type EmbeddingStore interface {
	RetrieveSimilarCodeChunks(ctx context.Context, agentId types.AgentId, query string, topK int, targetPaths []string) ([]CodeChunk, error)
}

// KGNode is one knowledge-graph entity.
type KGNode struct {
	Name         string
	EntityType   string
	Observations []string
}

// KnowledgeGraph is the outbound contract for the code knowledge graph.
type KnowledgeGraph interface {
	// QueryNaturalLanguage translates a free-form query into KG
	// operations and executes them, returning matched nodes.
	QueryNaturalLanguage(ctx context.Context, agentId types.AgentId, query string) ([]KGNode, error)
	// SearchNodes runs a "key:value ..." structured query.
	SearchNodes(ctx context.Context, agentId types.AgentId, query string) ([]KGNode, error)
	// OpenNodes does a direct-by-name lookup.
	OpenNodes(ctx context.Context, agentId types.AgentId, names []string) ([]KGNode, error)
}

// TaskLogEntry is one historical task record.
type TaskLogEntry struct {
	Content   string
	Timestamp string
}

// TaskLogStore is the optional outbound contract for keyword search over
// an agent's task history. A nil TaskLogStore disables the source
// entirely — it is a plug-in, not a hard dependency.
type TaskLogStore interface {
	GetLogsByAgent(ctx context.Context, agentId types.AgentId, limit int) ([]TaskLogEntry, error)
}

// WebResult is one web search hit.
type WebResult struct {
	Title       string
	URL         string
	Snippet     string
	PublishedAt string
}

// WebSearch is the optional outbound contract for general web search,
// used by the controller's SEARCH_WEB action — never for queries
// classifiable as codebase introspection.
type WebSearch interface {
	Search(ctx context.Context, query string) ([]WebResult, error)
}
