package retrieval

import (
	"context"
	"encoding/json"
	"regexp"
	"sort"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/rashee1997/orchestrator-sub000/jsonrepair"
	"github.com/rashee1997/orchestrator-sub000/router"
	"github.com/rashee1997/orchestrator-sub000/rrf"
	"github.com/rashee1997/orchestrator-sub000/types"
	"go.uber.org/zap"
)

// Config bounds the retriever's top_k defaults and adaptive timeout
// budget.
type Config struct {
	DefaultTopKEmbeddings int
	DefaultTopKKG         int
	BaseTimeout           time.Duration
	PerCallExtra          time.Duration
	MaxTimeout            time.Duration
}

// DefaultConfig returns the documented defaults: 10+5 top_k,
// 120s+n·15s adaptive timeout capped at 10 minutes.
func DefaultConfig() Config {
	return Config{
		DefaultTopKEmbeddings: 10,
		DefaultTopKKG:         5,
		BaseTimeout:           120 * time.Second,
		PerCallExtra:          15 * time.Second,
		MaxTimeout:            10 * time.Minute,
	}
}

// Retriever implements component F. TaskLogStore and WebSearch are
// optional plug-ins; a nil value disables that source without affecting
// the rest of the pipeline.
type Retriever struct {
	embeddings EmbeddingStore
	kg         KnowledgeGraph
	taskLogs   TaskLogStore
	web        WebSearch
	router     *router.Router
	cache      *Cache
	cfg        Config
	logger     *zap.Logger
	probe      singleflight.Group
}

// NewRetriever wires the collaborators, router, and cache into one
// Retriever.
func NewRetriever(embeddings EmbeddingStore, kg KnowledgeGraph, taskLogs TaskLogStore, web WebSearch, rtr *router.Router, cache *Cache, cfg Config, logger *zap.Logger) *Retriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{embeddings: embeddings, kg: kg, taskLogs: taskLogs, web: web, router: rtr, cache: cache, cfg: cfg, logger: logger}
}

var wordTokenizer = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]{3,}`)

func tokenize(s string) []string {
	matches := wordTokenizer.FindAllString(s, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, strings.ToLower(m))
	}
	return out
}

func unique(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// adaptiveTimeout estimates the wall-clock budget from a call count:
// ≈10 base, +4 hybrid, +3 KG, +3 reranking, capped at cfg.MaxTimeout.
func (r *Retriever) adaptiveTimeout(opts types.RetrievalOptions) time.Duration {
	n := 10 + 4 + 3 + 3
	timeout := r.cfg.BaseTimeout + time.Duration(n)*r.cfg.PerCallExtra
	if timeout > r.cfg.MaxTimeout {
		timeout = r.cfg.MaxTimeout
	}
	if opts.Timeout > 0 && opts.Timeout < timeout {
		timeout = opts.Timeout
	}
	return timeout
}

// RetrieveForPrompt is the primary entrypoint: component F's eleven-step
// pipeline. It never returns an error to a well-behaved caller for
// recoverable failures — wall-clock exhaustion and uncaught internal
// errors both degrade to a stale cache hit or a synthetic fallback item.
func (r *Retriever) RetrieveForPrompt(ctx context.Context, agentId types.AgentId, prompt string, opts types.RetrievalOptions) []types.RetrievedContextItem {
	opts.AgentId = agentId
	key := Key(agentId, prompt, opts)

	entry, found, fresh := r.cache.Get(key)
	if found && fresh {
		return entry.Items
	}

	timeout := r.adaptiveTimeout(opts)
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Concurrent callers racing on the same cache-miss key collapse into a
	// single pipeline run; every waiter gets the one winner's result
	// instead of each driving its own redundant fan-out.
	raw, err, _ := r.probe.Do(key, func() (any, error) {
		return r.run(runCtx, agentId, prompt, opts)
	})
	items, _ := raw.([]types.RetrievedContextItem)
	if err != nil || runCtx.Err() != nil {
		r.logger.Warn("retrieval pipeline degraded", zap.Error(err), zap.Error(runCtx.Err()))
		if found {
			return entry.Items
		}
		return []types.RetrievedContextItem{syntheticFallback(err, runCtx.Err())}
	}

	r.cache.Set(key, items)
	return items
}

// RetrieveByEntityNames performs the direct-entity-lookup step in
// isolation, for callers (e.g. the KG-NL query tool) that already know
// which entities they want without running the full pipeline.
func (r *Retriever) RetrieveByEntityNames(ctx context.Context, agentId types.AgentId, names []string, opts types.RetrievalOptions) ([]types.RetrievedContextItem, error) {
	nodes, err := r.kg.OpenNodes(ctx, agentId, unique(names))
	if err != nil {
		return nil, err
	}
	return kgNodesToItems(nodes, 0.95, true), nil
}

func syntheticFallback(errs ...error) types.RetrievedContextItem {
	msg := "retrieval pipeline failed"
	for _, e := range errs {
		if e != nil {
			msg = e.Error()
			break
		}
	}
	return types.RetrievedContextItem{
		Source:  types.SourceKnowledge,
		Content: "Context retrieval failed: " + msg,
		Metadata: map[string]string{
			"retrieval_failure": "true",
			"error_type":        "wall_clock_exceeded_or_internal",
			"error_message":     msg,
		},
	}
}

func (r *Retriever) run(ctx context.Context, agentId types.AgentId, prompt string, opts types.RetrievalOptions) ([]types.RetrievedContextItem, error) {
	queryTerms := tokenize(prompt)

	intent, entities := r.analyze(ctx, prompt, queryTerms)
	if opts.Intent != "" {
		intent = opts.Intent
	}

	var directItems []types.RetrievedContextItem
	if len(entities) > 0 && r.kg != nil {
		if nodes, err := r.kg.OpenNodes(ctx, agentId, entities); err == nil {
			directItems = kgNodesToItems(nodes, 0.95, true)
		} else {
			r.logger.Warn("direct entity lookup failed", zap.Error(err))
		}
	}

	topKEmb := r.cfg.DefaultTopKEmbeddings
	if opts.TopK > 0 {
		topKEmb = opts.TopK
	}
	topKKG := r.cfg.DefaultTopKKG

	weights := WeightsFor(intent)
	semantic, kgList, docList, logList, webList := r.fanOutSources(ctx, agentId, prompt, opts, weights, topKEmb, topKKG)

	directRanked := itemsToRanked(directItems, string(types.SourceKnowledge))
	fused := rrf.Fuse(semantic, kgList, docList, logList, directRanked, webList)
	items := rankedToItems(fused)

	valid, ok := ValidateRelevance(items, queryTerms)
	working := valid
	if !ok {
		n := topKEmb + topKKG
		if n > len(items) {
			n = len(items)
		}
		working = items[:n]
	}

	working = r.aiFilter(ctx, working, intent, opts.TargetFilePaths)
	working = r.gapFill(ctx, agentId, prompt, working)
	working = r.expand(ctx, agentId, prompt, working)

	working = dedup(working)
	limit := topKEmb + topKKG
	if limit < len(working) {
		working = working[:limit]
	}
	return working, nil
}

type intentResult struct {
	Intent string `json:"intent"`
}

type entityResult struct {
	Entities []string `json:"entities"`
}

// analyze runs intent classification and entity extraction concurrently via
// errgroup; neither branch ever returns an error upward — a failed or
// unparseable call just degrades to the zero-value/fallback result — so the
// group's error return is always nil and exists only to get g.Wait()'s
// join-on-both-goroutines behavior for free.
func (r *Retriever) analyze(ctx context.Context, prompt string, fallbackTerms []string) (types.QueryIntent, []string) {
	var (
		intent   = types.IntentGeneralQuery
		entities []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if r.router == nil {
			return nil
		}
		result, err := r.router.Execute(gctx, types.TaskIntentClassify, prompt, router.ExecuteOptions{ForceJSON: true})
		if err != nil {
			return nil
		}
		var parsed intentResult
		if repaired, ok, _ := jsonrepair.Repair(gctx, result.Content, nil); ok {
			if json.Unmarshal([]byte(repaired), &parsed) == nil && parsed.Intent != "" {
				intent = types.QueryIntent(parsed.Intent)
			}
		}
		return nil
	})
	g.Go(func() error {
		if r.router == nil {
			entities = fallbackTerms
			return nil
		}
		result, err := r.router.Execute(gctx, types.TaskEntityExtraction, prompt, router.ExecuteOptions{ForceJSON: true})
		if err != nil {
			entities = fallbackTerms
			return nil
		}
		var parsed entityResult
		if repaired, ok, _ := jsonrepair.Repair(gctx, result.Content, nil); ok {
			if json.Unmarshal([]byte(repaired), &parsed) == nil && len(parsed.Entities) > 0 {
				entities = parsed.Entities
				return nil
			}
		}
		entities = fallbackTerms
		return nil
	})
	_ = g.Wait()

	return intent, unique(entities)
}

// fanOutSources launches the intent-weighted queries concurrently, plus a
// fifth web-search query when opts.IncludeWebSearch is set and a
// WebSearch collaborator is wired. Each source is isolated: a failure on
// one never aborts the others, and contributes an empty ranked list
// instead.
func (r *Retriever) fanOutSources(ctx context.Context, agentId types.AgentId, query string, opts types.RetrievalOptions, weights SourceWeights, topKEmb, topKKG int) (semantic, kg, doc, logs, web []rrf.RankedItem) {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		k := TopKFor(topKEmb, weights.Semantic)
		if k == 0 || r.embeddings == nil {
			return nil
		}
		chunks, err := r.embeddings.RetrieveSimilarCodeChunks(gctx, agentId, query, k, opts.TargetFilePaths)
		if err != nil {
			r.logger.Warn("semantic source failed", zap.Error(err))
			return nil
		}
		semantic = chunksToRanked(chunks)
		return nil
	})

	g.Go(func() error {
		k := TopKFor(topKKG, weights.KG)
		if k == 0 || r.kg == nil {
			return nil
		}
		nodes, err := r.kg.QueryNaturalLanguage(gctx, agentId, query)
		if err != nil {
			r.logger.Warn("kg source failed", zap.Error(err))
			return nil
		}
		if k < len(nodes) {
			nodes = nodes[:k]
		}
		kg = rankedFromNodes(nodes)
		return nil
	})

	g.Go(func() error {
		k := TopKFor(topKEmb, weights.Doc)
		if k == 0 || r.embeddings == nil {
			return nil
		}
		chunks, err := r.embeddings.RetrieveSimilarCodeChunks(gctx, agentId, query, k*3, opts.TargetFilePaths)
		if err != nil {
			r.logger.Warn("doc source failed", zap.Error(err))
			return nil
		}
		doc = chunksToRanked(filterDocChunks(chunks, k))
		return nil
	})

	g.Go(func() error {
		k := TopKFor(topKEmb, weights.TaskLogs)
		if k == 0 || r.taskLogs == nil {
			return nil
		}
		logsResult, err := r.taskLogs.GetLogsByAgent(gctx, agentId, 100)
		if err != nil {
			r.logger.Warn("task log source failed", zap.Error(err))
			return nil
		}
		logs = keywordMatchLogs(logsResult, query, k)
		return nil
	})

	g.Go(func() error {
		if !opts.IncludeWebSearch || r.web == nil {
			return nil
		}
		results, err := r.web.Search(gctx, query)
		if err != nil {
			r.logger.Warn("web source failed", zap.Error(err))
			return nil
		}
		web = webResultsToRanked(sanitizeWebResults(results))
		return nil
	})

	_ = g.Wait()
	return semantic, kg, doc, logs, web
}

func filterDocChunks(chunks []CodeChunk, limit int) []CodeChunk {
	docExt := []string{".md", ".rst", ".txt", "doc/", "docs/"}
	var out []CodeChunk
	for _, c := range chunks {
		lower := strings.ToLower(c.FilePathRelative)
		for _, ext := range docExt {
			if strings.Contains(lower, ext) {
				out = append(out, c)
				break
			}
		}
		if len(out) >= limit {
			break
		}
	}
	return out
}

func keywordMatchLogs(logs []TaskLogEntry, query string, limit int) []rrf.RankedItem {
	terms := tokenize(query)
	type scored struct {
		entry TaskLogEntry
		hits  int
	}
	var candidates []scored
	for _, l := range logs {
		content := strings.ToLower(l.Content)
		hits := 0
		for _, t := range terms {
			if strings.Contains(content, t) {
				hits++
			}
		}
		if hits > 0 {
			candidates = append(candidates, scored{entry: l, hits: hits})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].hits > candidates[j].hits })
	if limit < len(candidates) {
		candidates = candidates[:limit]
	}
	out := make([]rrf.RankedItem, 0, len(candidates))
	for i, c := range candidates {
		out = append(out, rrf.RankedItem{
			Type:       string(types.SourceTaskLog),
			SourcePath: c.entry.Timestamp,
			Content:    c.entry.Content,
			Rank:       i,
		})
	}
	return out
}

func chunksToRanked(chunks []CodeChunk) []rrf.RankedItem {
	out := make([]rrf.RankedItem, 0, len(chunks))
	for i, c := range chunks {
		out = append(out, rrf.RankedItem{
			Type:       string(types.SourceEmbedding),
			SourcePath: c.FilePathRelative,
			Content:    c.ChunkText,
			Rank:       i,
			Payload:    c,
		})
	}
	return out
}

// sanitizeWebResults strips HTML markup from every web result's title and
// snippet before it is ranked, since a search collaborator may hand back
// raw excerpted markup rather than plain text.
func sanitizeWebResults(results []WebResult) []WebResult {
	out := make([]WebResult, len(results))
	for i, res := range results {
		res.Title = stripHTML(res.Title)
		res.Snippet = stripHTML(res.Snippet)
		out[i] = res
	}
	return out
}

// stripHTML walks an HTML fragment's token stream and concatenates its text
// nodes, discarding tags and attributes. Malformed input degrades to the
// original string rather than an empty one.
func stripHTML(s string) string {
	if !strings.ContainsAny(s, "<>") {
		return s
	}
	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			text := strings.TrimSpace(b.String())
			if text == "" {
				return s
			}
			return text
		case html.TextToken:
			b.Write(z.Text())
			b.WriteByte(' ')
		}
	}
}

func webResultsToRanked(results []WebResult) []rrf.RankedItem {
	out := make([]rrf.RankedItem, 0, len(results))
	for i, res := range results {
		out = append(out, rrf.RankedItem{
			Type:       string(types.SourceWebSearch),
			SourcePath: res.URL,
			Content:    res.Title + "\n" + res.Snippet,
			Rank:       i,
			Payload:    res,
		})
	}
	return out
}

func rankedFromNodes(nodes []KGNode) []rrf.RankedItem {
	out := make([]rrf.RankedItem, 0, len(nodes))
	for i, n := range nodes {
		out = append(out, rrf.RankedItem{
			Type:       string(types.SourceKnowledge),
			SourcePath: n.Name,
			Content:    strings.Join(n.Observations, "\n"),
			Rank:       i,
			Payload:    n,
		})
	}
	return out
}

func kgNodesToItems(nodes []KGNode, score float64, retrievedByName bool) []types.RetrievedContextItem {
	out := make([]types.RetrievedContextItem, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, types.RetrievedContextItem{
			Source:     types.SourceKnowledge,
			Content:    strings.Join(n.Observations, "\n"),
			EntityName: n.Name,
			FilePath:   n.Name,
			Relevance:  score,
			FusedScore: score,
			Metadata:   map[string]string{"retrieved_by_name": boolStr(retrievedByName), "entity_type": n.EntityType},
		})
	}
	return out
}

func boolStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func itemsToRanked(items []types.RetrievedContextItem, itemType string) []rrf.RankedItem {
	out := make([]rrf.RankedItem, 0, len(items))
	for i, item := range items {
		out = append(out, rrf.RankedItem{
			Type:       itemType,
			SourcePath: item.FilePath,
			Content:    item.Content,
			Rank:       i,
			Payload:    item,
		})
	}
	return out
}

func rankedToItems(fused []rrf.FusedItem) []types.RetrievedContextItem {
	out := make([]types.RetrievedContextItem, 0, len(fused))
	for _, f := range fused {
		item := types.RetrievedContextItem{
			Source:     types.SourceKind(f.Type),
			Content:    f.Content,
			FilePath:   f.SourcePath,
			Relevance:  f.Score,
			FusedScore: f.Score,
		}
		switch p := f.Payload.(type) {
		case CodeChunk:
			item.EntityName = p.EntityName
			item.Metadata = map[string]string{"type": p.Type, "language": p.Language, "lines": p.Lines}
		case KGNode:
			item.EntityName = p.Name
			item.Metadata = map[string]string{"entity_type": p.EntityType}
		case WebResult:
			item.EntityName = p.Title
			item.Metadata = map[string]string{"url": p.URL, "published_at": p.PublishedAt}
		case types.RetrievedContextItem:
			item.EntityName = p.EntityName
			item.Metadata = p.Metadata
			if item.Relevance < p.Relevance {
				item.Relevance = p.Relevance
			}
		}
		out = append(out, item)
	}
	return out
}

func dedup(items []types.RetrievedContextItem) []types.RetrievedContextItem {
	seen := make(map[string]struct{}, len(items))
	out := make([]types.RetrievedContextItem, 0, len(items))
	for _, item := range items {
		snippet := item.Content
		if len(snippet) > 100 {
			snippet = snippet[:100]
		}
		k := item.FilePath + "::" + snippet
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, item)
	}
	return out
}
