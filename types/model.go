package types

import "time"

// AgentId opaquely scopes all retrieval and knowledge-graph operations; no
// cross-agent reads are permitted anywhere in the pipeline.
type AgentId string

// ComplexityTier groups TaskTypes by how capable a model must be to serve
// them.
type ComplexityTier string

const (
	TierSimple      ComplexityTier = "simple"
	TierMedium      ComplexityTier = "medium"
	TierComplex     ComplexityTier = "complex"
	TierSpecialized ComplexityTier = "specialized"
)

// TaskType is the closed enum of task kinds the router resolves a candidate
// model list for. Roughly 30 kinds grouped by ComplexityTier.
type TaskType string

const (
	// Simple tier.
	TaskJSONExtraction    TaskType = "json_extraction"
	TaskKeywordExtraction TaskType = "keyword_extraction"
	TaskIntentClassify    TaskType = "intent_classification"
	TaskEntityExtraction  TaskType = "entity_extraction"
	TaskRelevanceCheck    TaskType = "relevance_check"
	TaskSummarization     TaskType = "summarization"
	TaskTitleGeneration   TaskType = "title_generation"
	TaskSimpleQA          TaskType = "simple_qa"

	// Medium tier.
	TaskCodeExplanation  TaskType = "code_explanation"
	TaskQueryRewrite     TaskType = "query_rewrite"
	TaskDMQRGeneration   TaskType = "dmqr_generation"
	TaskGapAnalysis      TaskType = "gap_analysis"
	TaskExpansionSuggest TaskType = "expansion_suggestion"
	TaskAIFiltering      TaskType = "ai_filtering"
	TaskReflection       TaskType = "reflection"
	TaskCorrectiveSearch TaskType = "corrective_search"

	// Complex tier.
	TaskAnswerSynthesis TaskType = "answer_synthesis"
	TaskVerification    TaskType = "verification"
	TaskCodeGeneration  TaskType = "code_generation"
	TaskArchitectural   TaskType = "architectural_analysis"
	TaskDebugging       TaskType = "debugging_analysis"
	TaskRefactorPlan    TaskType = "refactor_planning"
	TaskSecurityReview  TaskType = "security_review"
	TaskDeepReasoning   TaskType = "deep_reasoning"

	// Specialized tier.
	TaskEmbedding      TaskType = "embedding"
	TaskSemanticSearch TaskType = "semantic_search"
	TaskKGTranslation  TaskType = "kg_nl_translation"
	TaskRerank         TaskType = "rerank"
)

// TaskTier reports the ComplexityTier a TaskType belongs to.
func TaskTier(t TaskType) ComplexityTier {
	switch t {
	case TaskJSONExtraction, TaskKeywordExtraction, TaskIntentClassify,
		TaskEntityExtraction, TaskRelevanceCheck, TaskSummarization,
		TaskTitleGeneration, TaskSimpleQA:
		return TierSimple
	case TaskCodeExplanation, TaskQueryRewrite, TaskDMQRGeneration,
		TaskGapAnalysis, TaskExpansionSuggest, TaskAIFiltering,
		TaskReflection, TaskCorrectiveSearch:
		return TierMedium
	case TaskEmbedding, TaskSemanticSearch, TaskKGTranslation, TaskRerank:
		return TierSpecialized
	default:
		return TierComplex
	}
}

// ProviderName is the closed set of LLM backends.
type ProviderName string

const (
	ProviderGemini     ProviderName = "gemini"
	ProviderMistral    ProviderName = "mistral"
	ProviderClaudeCode ProviderName = "claude_code"
	ProviderQwenCode   ProviderName = "qwen_code"
)

// CapabilityLevel ranks a model's usable tier.
type CapabilityLevel string

const (
	CapabilitySimple   CapabilityLevel = "simple"
	CapabilityMedium   CapabilityLevel = "medium"
	CapabilityComplex  CapabilityLevel = "complex"
	CapabilityFallback CapabilityLevel = "fallback"
)

// CostTier classifies how a model is billed.
type CostTier string

const (
	CostFree         CostTier = "free"
	CostPaid         CostTier = "paid"
	CostSubscription CostTier = "subscription"
)

// AuthMethod is how a provider proves it can be called.
type AuthMethod string

const (
	AuthOAuth        AuthMethod = "oauth"
	AuthAPIKey       AuthMethod = "api_key"
	AuthSubscription AuthMethod = "subscription"
	AuthCLI          AuthMethod = "cli"
)

// ModelInfo is one registry entry. Invariant: Available implies credentials
// were resolvable at process start — the registry never flips Available
// true after startup, only false on an auth failure observed at runtime.
type ModelInfo struct {
	Name         string
	Provider     ProviderName
	Capability   CapabilityLevel
	CostTier     CostTier
	RateLimitRPM int
	AuthMethod   AuthMethod
	Available    bool
}

// TaskDistributionRule maps a TaskType onto an ordered candidate list.
type TaskDistributionRule struct {
	TaskType         TaskType
	PreferredModel   string
	FallbackModels   []string
	MaxContextLength int
	Complexity       ComplexityTier
}

// ModelStats tracks rolling per-model outcomes. Invariant: AvgTimeMS is the
// running mean over Success+Failure calls.
type ModelStats struct {
	Success   int64
	Failure   int64
	AvgTimeMS float64
}

// Record folds one call outcome into the running mean, preserving the
// invariant that AvgTimeMS is the mean over all recorded calls.
func (s *ModelStats) Record(success bool, elapsed time.Duration) {
	total := s.Success + s.Failure
	ms := float64(elapsed.Milliseconds())
	if total == 0 {
		s.AvgTimeMS = ms
	} else {
		s.AvgTimeMS = (s.AvgTimeMS*float64(total) + ms) / float64(total+1)
	}
	if success {
		s.Success++
	} else {
		s.Failure++
	}
}
