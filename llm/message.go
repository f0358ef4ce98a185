package llm

// Message roles accepted by the model API.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a single role-tagged conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// UserMessage creates a user turn.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage creates an assistant turn.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// TruncateHistory drops the oldest turns so at most limit remain. Eviction is
// FIFO, irrespective of content.
func TruncateHistory(history []Message, limit int) []Message {
	if limit <= 0 || len(history) <= limit {
		return history
	}
	return history[len(history)-limit:]
}
