package dialog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smuassist/learnmate/llm"
)

func TestContextManagerMerge(t *testing.T) {
	m := NewContextManager(time.Minute)

	m.Update("u1", func(c *UserContext) { c.LastIntent = "greeting" })
	m.Update("u1", func(c *UserContext) { c.CurrentCourse = "IS621" })

	ctx, ok := m.Get("u1")
	require.True(t, ok)
	assert.Equal(t, "greeting", ctx.LastIntent)
	assert.Equal(t, "IS621", ctx.CurrentCourse)
}

func TestContextManagerExpiry(t *testing.T) {
	m := NewContextManager(time.Minute)
	now := time.Now()
	m.now = func() time.Time { return now }

	m.Update("u1", func(c *UserContext) { c.LastIntent = "greeting" })

	// Within the window the record is visible.
	now = now.Add(30 * time.Second)
	_, ok := m.Get("u1")
	assert.True(t, ok)

	// Past the window it is treated as absent and removed.
	now = now.Add(31 * time.Second)
	_, ok = m.Get("u1")
	assert.False(t, ok)

	// The record is physically gone, not merely hidden.
	m.mu.Lock()
	_, exists := m.records["u1"]
	m.mu.Unlock()
	assert.False(t, exists)
}

func TestContextManagerUpdateRefreshesExpiry(t *testing.T) {
	m := NewContextManager(time.Minute)
	now := time.Now()
	m.now = func() time.Time { return now }

	m.Update("u1", func(c *UserContext) { c.LastIntent = "greeting" })

	now = now.Add(50 * time.Second)
	m.Update("u1", func(c *UserContext) { c.CurrentCourse = "IS622" })

	now = now.Add(50 * time.Second)
	ctx, ok := m.Get("u1")
	require.True(t, ok)
	assert.Equal(t, "greeting", ctx.LastIntent)
}

func TestContextManagerUpdateExisting(t *testing.T) {
	m := NewContextManager(time.Minute)

	// Silent no-op for users without a record.
	updated := m.UpdateExisting("ghost", func(c *UserContext) { c.LastIntent = "x" })
	assert.False(t, updated)
	_, ok := m.Get("ghost")
	assert.False(t, ok)

	m.Update("u1", func(c *UserContext) { c.LastIntent = "greeting" })
	updated = m.UpdateExisting("u1", func(c *UserContext) { c.ActiveFlow = FlowCourseInfo })
	assert.True(t, updated)

	ctx, _ := m.Get("u1")
	assert.Equal(t, FlowCourseInfo, ctx.ActiveFlow)
}

func TestContextManagerGetReturnsCopy(t *testing.T) {
	m := NewContextManager(time.Minute)

	m.Update("u1", func(c *UserContext) {
		c.LastEntities = map[string][]string{"course_code": {"621"}}
		c.Conversation = []llm.Message{llm.UserMessage("hi")}
	})

	ctx, _ := m.Get("u1")
	ctx.LastEntities["course_code"][0] = "mutated"
	ctx.Conversation[0].Content = "mutated"

	fresh, _ := m.Get("u1")
	assert.Equal(t, "621", fresh.LastEntities["course_code"][0])
	assert.Equal(t, "hi", fresh.Conversation[0].Content)
}

func TestContextManagerClear(t *testing.T) {
	m := NewContextManager(time.Minute)

	m.Update("u1", func(c *UserContext) { c.LastIntent = "greeting" })
	m.Clear("u1")

	_, ok := m.Get("u1")
	assert.False(t, ok)

	// Clearing an absent user is fine.
	m.Clear("u1")
}
