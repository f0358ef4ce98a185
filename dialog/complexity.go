package dialog

import "strings"

// Substrings that force escalation to the external model. The case split is
// deliberate: the exact-case triggers match branded phrases as written, the
// folded ones match topics however they are typed.
var (
	complexExactTriggers = []string{
		"AI and Machine Learning",
		"DevSecOps",
		"traditional",
	}
	complexFoldedTriggers = []string{
		"data science",
		"career",
		"content",
	}
	complexPhrases = []string{
		"compare", "difference", "similar", "pros", "cons",
		"advantage", "disadvantage", "how would", "explain", "why",
		"multiple", "several", "various", "different", "ways",
		"also", "as well", "furthermore", "additional", "moreover",
		"career", "prospects", "future", "job", "work", "industry",
		"prioritize", "focus", "concentrate", "recommend", "suggest",
		"between", "among", "versus", "vs", "contrast", "relationship",
		"impact", "effect", "influence", "result", "outcome",
	}
)

// ComplexityClassifier decides whether a message should skip the canned flows
// and go straight to the external model. It is recall-biased: over-triggering
// on career and comparison topics is intended, false positives are acceptable.
type ComplexityClassifier struct {
	// WordLimit is the word count above which a message counts as complex.
	WordLimit int
}

// NewComplexityClassifier returns a classifier with the tuned default limit.
func NewComplexityClassifier() *ComplexityClassifier {
	return &ComplexityClassifier{WordLimit: 10}
}

// IsComplex reports whether the message should be escalated. Pure function of
// the message text, no context dependency.
func (c *ComplexityClassifier) IsComplex(message string) bool {
	for _, trigger := range complexExactTriggers {
		if strings.Contains(message, trigger) {
			return true
		}
	}

	lower := strings.ToLower(message)
	for _, trigger := range complexFoldedTriggers {
		if strings.Contains(lower, trigger) {
			return true
		}
	}

	if len(strings.Fields(message)) > c.WordLimit {
		return true
	}

	if strings.Count(message, "?") > 1 {
		return true
	}

	for _, phrase := range complexPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}

	return false
}
