// Package dialog implements the conversation engine: per-user context with
// expiry, slot-filling flows for structured intents, and escalation of
// complex or low-confidence messages to the external model behind the
// knowledge gate.
package dialog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/smuassist/learnmate/course"
	"github.com/smuassist/learnmate/knowledge"
	"github.com/smuassist/learnmate/llm"
	"github.com/smuassist/learnmate/nlp/entity"
	"github.com/smuassist/learnmate/nlp/intent"
)

// Fixed user-visible fallback replies. External failures are always recovered
// into one of these, never surfaced as errors or stack traces.
const (
	fallbackTimeout       = "I'm currently experiencing delays. Please try again in a moment."
	fallbackRequestError  = "I'm currently having trouble answering complex questions. Please try a simpler question or try again later."
	fallbackUnexpected    = "I encountered an unexpected error. Please try again with a different question."
	fallbackModelDisabled = "I'm not currently able to handle complex questions. Please try asking a more specific question about courses, assignments, or learning materials."
)

const defaultSystemPrompt = `You are an AI assistant for SMU Master's Program students. Your role is to provide helpful, accurate information about courses, assignments, and learning materials.

Focus on providing educational guidance and support. Keep your responses concise, informative, and tailored to academic contexts.

When you don't know specific information about SMU programs, you should indicate this clearly rather than making up information.

For course-specific queries, you have knowledge about the following courses:
- IS621: Agile and DevSecOps
- IS622: Cloud Computing and Container Architecture
- IS623: AI and Machine Learning
- IS624: Big Data and Analytics
- IS625: Software Quality Management`

// DefaultHistoryLimit caps the rolling model conversation at 5 exchanges.
const DefaultHistoryLimit = 10

// DefaultLowConfidence is the classification score below which unrecognized
// messages are escalated to the model.
const DefaultLowConfidence = 0.2

// Verifier checks whether a user has completed the login flow.
type Verifier interface {
	Verify(ctx context.Context, userID string) (bool, error)
	LoginURL(userID string) string
}

// Gate decides whether a message may be answered by the external model.
type Gate interface {
	Evaluate(ctx context.Context, message string) knowledge.Decision
}

// ModelClient is the external model collaborator.
type ModelClient interface {
	Complete(ctx context.Context, messages []llm.Message, system string) (string, error)
}

// Config wires a Handler's collaborators. Auth, Gate, and Model are optional:
// a nil Model disables escalation, a nil Gate lets every escalation through,
// a nil Auth skips the login check.
type Config struct {
	Contexts      *ContextManager
	Catalog       *course.Catalog
	Auth          Verifier
	Gate          Gate
	Model         ModelClient
	SystemPrompt  string
	HistoryLimit  int
	LowConfidence float64
}

// Handler processes one inbound message at a time and produces the reply
// text. All state lives in the ContextManager.
type Handler struct {
	contexts      *ContextManager
	intents       *intent.Classifier
	entities      *entity.Extractor
	complexity    *ComplexityClassifier
	flows         *flowEngine
	auth          Verifier
	gate          Gate
	model         ModelClient
	systemPrompt  string
	historyLimit  int
	lowConfidence float64
}

// NewHandler creates the dialog handler.
func NewHandler(cfg Config) *Handler {
	catalog := cfg.Catalog
	if catalog == nil {
		catalog = course.NewCatalog()
	}
	contexts := cfg.Contexts
	if contexts == nil {
		contexts = NewContextManager(DefaultContextExpiry)
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = defaultSystemPrompt
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}
	if cfg.LowConfidence <= 0 {
		cfg.LowConfidence = DefaultLowConfidence
	}

	extractor := entity.NewExtractor(catalog)
	return &Handler{
		contexts:      contexts,
		intents:       intent.NewClassifier(),
		entities:      extractor,
		complexity:    NewComplexityClassifier(),
		flows:         newFlowEngine(contexts, extractor, catalog),
		auth:          cfg.Auth,
		gate:          cfg.Gate,
		model:         cfg.Model,
		systemPrompt:  cfg.SystemPrompt,
		historyLimit:  cfg.HistoryLimit,
		lowConfidence: cfg.LowConfidence,
	}
}

// flowForIntent maps recognized intents onto the closed flow set. Intents
// without a flow (greeting, schedule, ...) return FlowNone.
func flowForIntent(name string) Flow {
	switch name {
	case intent.IntentCourseInfo:
		return FlowCourseInfo
	case intent.IntentAssignment:
		return FlowAssignment
	case intent.IntentGrades:
		return FlowGrades
	case intent.IntentLearningMaterial:
		return FlowLearningMaterial
	default:
		return FlowNone
	}
}

// ProcessMessage runs one full dialog turn. Unexpected panics are converted
// to the generic apology so the bot never exposes internals to the student.
func (h *Handler) ProcessMessage(ctx context.Context, userID, message string) (reply string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("dialog: panic while handling message", "user_id", userID, "panic", r)
			reply = fallbackUnexpected
		}
	}()

	if h.auth != nil {
		authenticated, err := h.auth.Verify(ctx, userID)
		if err != nil {
			// Fail-open: an unreachable auth service must not lock students
			// out of the canned flows.
			slog.Warn("dialog: auth service unreachable, assuming authenticated", "error", err)
			authenticated = true
		}
		if !authenticated {
			return fmt.Sprintf(
				"Welcome to the SMU Master's Program AI Assistant!\n\n"+
					"To use this bot, you need to authenticate with your SMU email address.\n\n"+
					"Please click this link to authenticate: %s", h.auth.LoginURL(userID))
		}
	}

	uc, found := h.contexts.Get(userID)
	if found && uc.ActiveFlow != FlowNone && uc.ActiveStep != 0 {
		return h.flows.run(uc.ActiveFlow, userID, message, uc)
	}

	if h.model != nil && h.complexity.IsComplex(message) {
		h.contexts.Update(userID, func(c *UserContext) {
			c.LastIntent = "complex_question"
		})
		return h.escalate(ctx, userID, message)
	}

	intentName, confidence := h.intents.Classify(message)
	entities := h.entities.Extract(message)
	h.contexts.Update(userID, func(c *UserContext) {
		c.LastIntent = intentName
		c.LastConfidence = confidence
		c.LastEntities = entities
	})

	if flow := flowForIntent(intentName); flow != FlowNone {
		current, _ := h.contexts.Get(userID)
		return h.flows.run(flow, userID, message, current)
	}

	if h.model != nil && confidence < h.lowConfidence {
		return h.escalate(ctx, userID, message)
	}

	return fmt.Sprintf("I understood that as a '%s' intent. How can I help you with your SMU courses?", intentName)
}

// escalate routes a message through the knowledge gate to the external model
// and folds the exchange back into the rolling conversation history.
func (h *Handler) escalate(ctx context.Context, userID, message string) string {
	if h.model == nil {
		return fallbackModelDisabled
	}

	decision := knowledge.Decision{Allowed: true}
	if h.gate != nil {
		decision = h.gate.Evaluate(ctx, message)
	}
	if !decision.Allowed {
		return knowledge.RejectionMessage
	}

	system := h.systemPrompt
	if decision.ContextBlock != "" {
		system += "\n\n" + decision.ContextBlock
	}

	uc, _ := h.contexts.Get(userID)
	messages := make([]llm.Message, 0, len(uc.Conversation)+1)
	messages = append(messages, uc.Conversation...)
	messages = append(messages, llm.UserMessage(message))

	reply, err := h.model.Complete(ctx, messages, system)
	switch {
	case errors.Is(err, llm.ErrTimeout):
		return fallbackTimeout
	case errors.Is(err, llm.ErrRequest):
		return fallbackRequestError
	case err != nil:
		slog.Error("dialog: unexpected model failure", "error", err)
		return fallbackUnexpected
	}

	h.contexts.Update(userID, func(c *UserContext) {
		c.Conversation = append(c.Conversation, llm.UserMessage(message), llm.AssistantMessage(reply))
		c.Conversation = llm.TruncateHistory(c.Conversation, h.historyLimit)
	})
	return reply
}
