package dialog

import (
	"sync"
	"time"

	"github.com/smuassist/learnmate/llm"
)

// Flow identifies a multi-step conversation flow. The set is closed; dispatch
// is a switch over these values.
type Flow int

const (
	FlowNone Flow = iota
	FlowCourseInfo
	FlowAssignment
	FlowGrades
	FlowLearningMaterial
)

// String returns the flow name.
func (f Flow) String() string {
	switch f {
	case FlowCourseInfo:
		return "course_info"
	case FlowAssignment:
		return "assignment"
	case FlowGrades:
		return "grades"
	case FlowLearningMaterial:
		return "learning_material"
	default:
		return "none"
	}
}

// UserContext is the per-user conversational state. One record per user,
// owned exclusively by ContextManager; callers only ever see copies.
type UserContext struct {
	ActiveFlow     Flow
	ActiveStep     int // 0 means the flow has not advanced past its first turn
	LastIntent     string
	LastConfidence float64
	LastEntities   map[string][]string
	CurrentCourse  string
	Conversation   []llm.Message
}

func (c *UserContext) clone() UserContext {
	out := *c
	if c.LastEntities != nil {
		out.LastEntities = make(map[string][]string, len(c.LastEntities))
		for k, v := range c.LastEntities {
			values := make([]string, len(v))
			copy(values, v)
			out.LastEntities[k] = values
		}
	}
	if c.Conversation != nil {
		out.Conversation = make([]llm.Message, len(c.Conversation))
		copy(out.Conversation, c.Conversation)
	}
	return out
}

// clearFlow resets the active flow and step.
func (c *UserContext) clearFlow() {
	c.ActiveFlow = FlowNone
	c.ActiveStep = 0
}

type contextRecord struct {
	ctx         UserContext
	lastUpdated time.Time
}

// ContextManager owns all per-user conversational state. Records expire
// lazily on read; there is no background sweep. All operations are guarded by
// a single mutex so concurrent messages for the same user degrade to
// last-writer-wins rather than lost updates.
type ContextManager struct {
	mu      sync.Mutex
	records map[string]*contextRecord
	expiry  time.Duration
	now     func() time.Time
}

// DefaultContextExpiry is the window after which an untouched context is
// treated as absent.
const DefaultContextExpiry = 600 * time.Second

// NewContextManager creates a manager with the given expiry window.
// Non-positive expiry falls back to the default.
func NewContextManager(expiry time.Duration) *ContextManager {
	if expiry <= 0 {
		expiry = DefaultContextExpiry
	}
	return &ContextManager{
		records: make(map[string]*contextRecord),
		expiry:  expiry,
		now:     time.Now,
	}
}

// Get returns a copy of the user's context. Expired records are physically
// removed and reported as absent; a context is never returned past its expiry.
func (m *ContextManager) Get(userID string) (UserContext, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[userID]
	if !ok {
		return UserContext{}, false
	}
	if m.now().Sub(rec.lastUpdated) > m.expiry {
		delete(m.records, userID)
		return UserContext{}, false
	}
	return rec.ctx.clone(), true
}

// Update applies fn to the user's context, creating an empty record first if
// none exists, and refreshes the expiry clock. Fields fn does not touch are
// preserved.
func (m *ContextManager) Update(userID string, fn func(*UserContext)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[userID]
	if !ok {
		rec = &contextRecord{}
		m.records[userID] = rec
	}
	fn(&rec.ctx)
	rec.lastUpdated = m.now()
}

// UpdateExisting applies fn only if the user already has a record. For absent
// users it is a silent no-op, which callers must tolerate; it never creates
// state. Returns whether a record was updated.
func (m *ContextManager) UpdateExisting(userID string, fn func(*UserContext)) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[userID]
	if !ok {
		return false
	}
	fn(&rec.ctx)
	rec.lastUpdated = m.now()
	return true
}

// Clear removes the user's context unconditionally.
func (m *ContextManager) Clear(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, userID)
}
