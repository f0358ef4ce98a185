package dialog

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smuassist/learnmate/knowledge"
	"github.com/smuassist/learnmate/llm"
)

type fakeModel struct {
	reply        string
	err          error
	calls        int
	lastMessages []llm.Message
	lastSystem   string
}

func (f *fakeModel) Complete(_ context.Context, messages []llm.Message, system string) (string, error) {
	f.calls++
	f.lastMessages = messages
	f.lastSystem = system
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type fakeGate struct {
	decision knowledge.Decision
}

func (f *fakeGate) Evaluate(context.Context, string) knowledge.Decision {
	return f.decision
}

type fakeAuth struct {
	authenticated bool
	err           error
}

func (f *fakeAuth) Verify(context.Context, string) (bool, error) {
	return f.authenticated, f.err
}

func (f *fakeAuth) LoginURL(userID string) string {
	return "http://auth.local/login/" + userID
}

func newTestHandler(cfg Config) *Handler {
	return NewHandler(cfg)
}

func TestCourseInfoAnsweredImmediately(t *testing.T) {
	h := newTestHandler(Config{})

	reply := h.ProcessMessage(context.Background(), "u1", "Tell me about IS621")
	assert.Contains(t, reply, "IS621: Agile and DevSecOps")

	// Flow is cleared after a direct answer.
	uc, ok := h.contexts.Get("u1")
	require.True(t, ok)
	assert.Equal(t, FlowNone, uc.ActiveFlow)
	assert.Equal(t, 0, uc.ActiveStep)
}

func TestCourseInfoFlowRoundTrip(t *testing.T) {
	h := newTestHandler(Config{})
	ctx := context.Background()

	reply := h.ProcessMessage(ctx, "u1", "course details please")
	assert.Equal(t, promptCourseInfoCode, reply)

	uc, ok := h.contexts.Get("u1")
	require.True(t, ok)
	assert.Equal(t, FlowCourseInfo, uc.ActiveFlow)
	assert.Equal(t, 1, uc.ActiveStep)

	// An invalid code re-prompts without advancing.
	reply = h.ProcessMessage(ctx, "u1", "the cloud one")
	assert.Equal(t, retryInvalidCode, reply)
	uc, _ = h.contexts.Get("u1")
	assert.Equal(t, 1, uc.ActiveStep)

	// A valid code answers and resets the flow.
	reply = h.ProcessMessage(ctx, "u1", "IS622")
	assert.Contains(t, reply, "IS622: Cloud Computing and Container Architecture")
	uc, _ = h.contexts.Get("u1")
	assert.Equal(t, FlowNone, uc.ActiveFlow)
	assert.Equal(t, 0, uc.ActiveStep)
}

func TestAssignmentFlow(t *testing.T) {
	h := newTestHandler(Config{})
	ctx := context.Background()

	reply := h.ProcessMessage(ctx, "u1", "assignment deadlines for IS621")
	assert.Contains(t, reply, "For IS621, do you want to know about assignments, projects, or exams?")

	uc, ok := h.contexts.Get("u1")
	require.True(t, ok)
	assert.Equal(t, FlowAssignment, uc.ActiveFlow)
	assert.Equal(t, 2, uc.ActiveStep)
	assert.Equal(t, "IS621", uc.CurrentCourse)

	reply = h.ProcessMessage(ctx, "u1", "the project")
	assert.Contains(t, reply, "group project worth 35%")

	uc, _ = h.contexts.Get("u1")
	assert.Equal(t, FlowNone, uc.ActiveFlow)
}

func TestAssignmentFlowUnmatchedTypeShowsMenu(t *testing.T) {
	h := newTestHandler(Config{})
	ctx := context.Background()

	h.ProcessMessage(ctx, "u1", "assignment deadlines for IS621")
	reply := h.ProcessMessage(ctx, "u1", "everything")
	assert.Contains(t, reply, "assignments (20%), a group project (35%), and a final exam (45%)")

	// The flow is cleared even when the reply was a menu.
	uc, _ := h.contexts.Get("u1")
	assert.Equal(t, FlowNone, uc.ActiveFlow)
}

func TestGradesDeflection(t *testing.T) {
	h := newTestHandler(Config{})

	reply := h.ProcessMessage(context.Background(), "u1", "what is my grade")
	assert.Equal(t, gradesDeflection, reply)
}

func TestLearningMaterialFlow(t *testing.T) {
	h := newTestHandler(Config{})
	ctx := context.Background()

	reply := h.ProcessMessage(ctx, "u1", "show me the slides")
	assert.Equal(t, promptMaterialCode, reply)

	reply = h.ProcessMessage(ctx, "u1", "is625")
	assert.Contains(t, reply, "IS625 (Software Quality Management)")
	assert.Contains(t, reply, "SMU eLearning portal")
}

func TestUnknownIntentWithoutModel(t *testing.T) {
	h := newTestHandler(Config{})

	reply := h.ProcessMessage(context.Background(), "u1", "xyzzy qwerty")
	assert.Contains(t, reply, "'unknown' intent")
}

func TestComplexMessageEscalatesToModel(t *testing.T) {
	model := &fakeModel{reply: "a thoughtful answer"}
	gate := &fakeGate{decision: knowledge.Decision{Allowed: true, ContextBlock: "IS621 syllabus notes"}}
	h := newTestHandler(Config{Model: model, Gate: gate})

	reply := h.ProcessMessage(context.Background(), "u1", "How does DevSecOps compare with traditional approaches?")
	assert.Equal(t, "a thoughtful answer", reply)
	require.Equal(t, 1, model.calls)

	// Knowledge context rides along in the instruction channel.
	assert.Contains(t, model.lastSystem, "IS621 syllabus notes")
	assert.Contains(t, model.lastSystem, "SMU Master's Program")

	// The exchange lands in the rolling history.
	uc, _ := h.contexts.Get("u1")
	require.Len(t, uc.Conversation, 2)
	assert.Equal(t, llm.RoleUser, uc.Conversation[0].Role)
	assert.Equal(t, llm.RoleAssistant, uc.Conversation[1].Role)
}

func TestGateRejectionShortCircuits(t *testing.T) {
	model := &fakeModel{reply: "should never be used"}
	gate := &fakeGate{decision: knowledge.Decision{Allowed: false}}
	h := newTestHandler(Config{Model: model, Gate: gate})

	reply := h.ProcessMessage(context.Background(), "u1", "compare the housing markets")
	assert.Equal(t, knowledge.RejectionMessage, reply)
	assert.Equal(t, 0, model.calls)
}

func TestModelFailureFallbacks(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"timeout", llm.ErrTimeout, fallbackTimeout},
		{"request error", llm.ErrRequest, fallbackRequestError},
		{"unexpected", errors.New("boom"), fallbackUnexpected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := &fakeModel{err: tt.err}
			gate := &fakeGate{decision: knowledge.Decision{Allowed: true}}
			h := newTestHandler(Config{Model: model, Gate: gate})

			reply := h.ProcessMessage(context.Background(), "u1", "compare A and B please")
			assert.Equal(t, tt.want, reply)

			// Failed calls never touch the history.
			uc, _ := h.contexts.Get("u1")
			assert.Empty(t, uc.Conversation)
		})
	}
}

func TestConversationHistoryNeverExceedsLimit(t *testing.T) {
	model := &fakeModel{reply: "ok"}
	gate := &fakeGate{decision: knowledge.Decision{Allowed: true}}
	h := newTestHandler(Config{Model: model, Gate: gate})
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		h.ProcessMessage(ctx, "u1", fmt.Sprintf("compare option %d with the others", i))
	}

	uc, _ := h.contexts.Get("u1")
	assert.Len(t, uc.Conversation, DefaultHistoryLimit)

	// Oldest entries were evicted first.
	assert.Contains(t, uc.Conversation[0].Content, "option 7")
}

func TestLowConfidenceEscalates(t *testing.T) {
	model := &fakeModel{reply: "general answer"}
	gate := &fakeGate{decision: knowledge.Decision{Allowed: true}}
	h := newTestHandler(Config{Model: model, Gate: gate})

	reply := h.ProcessMessage(context.Background(), "u1", "xyzzy qwerty")
	assert.Equal(t, "general answer", reply)
	assert.Equal(t, 1, model.calls)
}

func TestUnauthenticatedUserGetsLoginLink(t *testing.T) {
	h := newTestHandler(Config{Auth: &fakeAuth{authenticated: false}})

	reply := h.ProcessMessage(context.Background(), "u42", "Tell me about IS621")
	assert.Contains(t, reply, "http://auth.local/login/u42")
}

func TestAuthFailureIsFailOpen(t *testing.T) {
	h := newTestHandler(Config{Auth: &fakeAuth{err: errors.New("connection refused")}})

	reply := h.ProcessMessage(context.Background(), "u1", "Tell me about IS621")
	assert.Contains(t, reply, "IS621: Agile and DevSecOps")
}
