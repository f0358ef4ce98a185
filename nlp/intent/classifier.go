// Package intent implements lexical pattern scoring over a fixed intent set.
package intent

import "regexp"

// Well-known intent names.
const (
	IntentGreeting         = "greeting"
	IntentFarewell         = "farewell"
	IntentHelp             = "help"
	IntentCourseInfo       = "course_info"
	IntentAssignment       = "assignment"
	IntentGrades           = "grades"
	IntentSchedule         = "schedule"
	IntentLearningMaterial = "learning_material"
	IntentUnknown          = "unknown"
)

type intentDef struct {
	name     string
	patterns []*regexp.Regexp
}

// Classifier scores text against per-intent regex lists. Scores are the match
// count divided by the pattern-list length, so intents with more patterns need
// more hits to reach the same score. Pure and deterministic.
type Classifier struct {
	intents []intentDef
}

func compileAll(exprs ...string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(exprs))
	for _, expr := range exprs {
		patterns = append(patterns, regexp.MustCompile(`(?i)`+expr))
	}
	return patterns
}

// NewClassifier builds the default classifier. Intents are held in a slice,
// not a map: ties are broken by registration order, first maximum wins.
func NewClassifier() *Classifier {
	return &Classifier{
		intents: []intentDef{
			{IntentGreeting, compileAll(
				`hello`, `hi`, `hey`, `greetings`, `good morning`,
				`good afternoon`, `good evening`,
			)},
			{IntentFarewell, compileAll(
				`bye`, `goodbye`, `see you`, `talk to you later`,
				`have a good day`,
			)},
			{IntentHelp, compileAll(
				`help`, `assist`, `support`, `guidance`, `how do I`,
			)},
			{IntentCourseInfo, compileAll(
				`course`, `class`, `module`, `subject`, `IS\d{3}`,
				`information about`, `tell me about`, `details on`,
			)},
			{IntentAssignment, compileAll(
				`assignment`, `homework`, `project`, `task`, `submission`,
				`deadline`, `due date`, `when is`, `submit`,
			)},
			{IntentGrades, compileAll(
				`grade`, `score`, `mark`, `performance`, `result`,
				`how did I do`, `passed`, `failed`,
			)},
			{IntentSchedule, compileAll(
				`schedule`, `timetable`, `calendar`, `when`, `what time`,
				`date`, `class time`, `lecture`, `session`,
			)},
			{IntentLearningMaterial, compileAll(
				`material`, `document`, `reading`, `textbook`, `note`,
				`slide`, `resource`, `learn`, `study`,
			)},
		},
	}
}

// Classify returns the best-guess intent and its normalized confidence score.
// Text with zero pattern hits across every intent yields ("unknown", 0.0).
func (c *Classifier) Classify(text string) (string, float64) {
	best := IntentUnknown
	bestScore := 0.0
	for _, def := range c.intents {
		score := c.score(text, def)
		if score > bestScore {
			best = def.name
			bestScore = score
		}
	}
	return best, bestScore
}

// AllScores returns every intent's score, zero-filled, for diagnostic use.
func (c *Classifier) AllScores(text string) map[string]float64 {
	scores := make(map[string]float64, len(c.intents))
	for _, def := range c.intents {
		scores[def.name] = c.score(text, def)
	}
	return scores
}

func (c *Classifier) score(text string, def intentDef) float64 {
	hits := 0
	for _, re := range def.patterns {
		hits += len(re.FindAllStringIndex(text, -1))
	}
	if hits == 0 {
		return 0
	}
	return float64(hits) / float64(len(def.patterns))
}
