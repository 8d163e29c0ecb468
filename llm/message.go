package llm

// Role represents the role of a message sender in a conversation.
type Role string

const (
	// RoleSystem represents system-level instructions or context.
	RoleSystem Role = "system"

	// RoleUser represents messages from the user.
	RoleUser Role = "user"

	// RoleAssistant represents messages from the AI assistant.
	RoleAssistant Role = "assistant"
)

// String returns a string representation of the role.
func (r Role) String() string {
	return string(r)
}

// IsValid checks if the role is a recognized value.
func (r Role) IsValid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	default:
		return false
	}
}

// Message represents a single message in a conversation.
type Message struct {
	// Role indicates who sent the message.
	Role Role `json:"role"`

	// Content is the text content of the message.
	Content string `json:"content"`
}

// IsValid validates that the message has a recognized role and content.
func (m Message) IsValid() bool {
	return m.Role.IsValid() && m.Content != ""
}

// SystemMessage constructs a system-role message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage constructs a user-role message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage constructs an assistant-role message.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}
