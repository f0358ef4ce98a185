package knowledge

import (
	"context"
	"log/slog"
	"strings"
)

// RejectionMessage is the fixed reply for messages the gate refuses to pass
// to the external model.
const RejectionMessage = "I don't have that in my knowledge."

// DefaultScoreThreshold is the minimum retrieval score that counts as real
// knowledge coverage. Hand-tuned, kept configurable rather than hard-coded.
const DefaultScoreThreshold = 65.0

// Generic technical topics always allowed through, even without knowledge
// coverage: the model can answer these safely from general training.
var technicalKeywords = []string{
	"programming", "code", "coding", "software", "algorithm",
	"python", "java", "javascript", "golang", "sql", "database",
	"api", "git", "docker", "kubernetes", "cloud", "devops",
	"testing", "debugging", "machine learning", "data structure",
}

// Small talk that should never be rejected.
var basicConversational = []string{
	"hello", "hi", "hey", "good morning", "good afternoon", "good evening",
	"thank", "thanks", "appreciate",
	"bye", "goodbye", "see you",
	"who are you", "what can you do", "help",
}

// Searcher is the knowledge-lookup collaborator consumed by the gate.
type Searcher interface {
	Search(ctx context.Context, query string) (*SearchResult, error)
}

// Decision is the gate's verdict for one message.
type Decision struct {
	// Allowed reports whether the message may reach the external model.
	Allowed bool
	// ContextBlock is the assembled knowledge text to inject into the model's
	// instruction channel. Empty when no knowledge was retrieved.
	ContextBlock string
}

// Gate decides whether retrieved knowledge is relevant enough to permit a
// model-generated answer. It is a cost and hallucination control: topics the
// knowledge base has no coverage for never reach the model, while small talk
// and generic technical questions pass through regardless.
type Gate struct {
	searcher  Searcher
	threshold float64
}

// NewGate creates a gate over the given searcher. A non-positive threshold
// falls back to the default.
func NewGate(searcher Searcher, threshold float64) *Gate {
	if threshold <= 0 {
		threshold = DefaultScoreThreshold
	}
	return &Gate{searcher: searcher, threshold: threshold}
}

// Evaluate queries the knowledge base and gates the message. A failed search
// is fail-open: the gate falls through to the allowlist rules with no
// knowledge context rather than blocking the turn outright.
func (g *Gate) Evaluate(ctx context.Context, message string) Decision {
	result, err := g.searcher.Search(ctx, message)
	if err != nil {
		slog.Warn("knowledge: search unavailable, proceeding without knowledge", "error", err)
		result = &SearchResult{}
	}

	if !result.HasKnowledge || result.HighestScore < g.threshold {
		if isTechnical(message) || isBasicConversation(message) {
			return Decision{Allowed: true}
		}
		slog.Info("knowledge: message rejected as out-of-knowledge",
			"highest_score", result.HighestScore,
			"has_knowledge", result.HasKnowledge,
		)
		return Decision{Allowed: false}
	}

	return Decision{Allowed: true, ContextBlock: assembleContext(result.Results)}
}

// assembleContext concatenates retrieved titles and contents into the block
// injected into the model's system instructions.
func assembleContext(docs []Document) string {
	if len(docs) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Relevant knowledge base entries:\n")
	for _, doc := range docs {
		b.WriteString("\n")
		b.WriteString(doc.Title)
		b.WriteString("\n")
		b.WriteString(doc.Content)
		b.WriteString("\n---\n")
	}
	return b.String()
}

func isTechnical(message string) bool {
	lower := strings.ToLower(message)
	for _, kw := range technicalKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func isBasicConversation(message string) bool {
	lower := strings.ToLower(message)
	for _, phrase := range basicConversational {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
