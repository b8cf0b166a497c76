// Package convo holds the Runner's per-cycle conversation state and the
// system-prompt assembly: SYSTEM.md, a rendered environment snapshot, and
// COMMS.md, joined by "\n\n---\n\n" delimiters. Conversations are
// ephemeral; nothing survives the cycle.
package convo

// ToolCallFunction is the {name, arguments} pair inside one tool call, the
// JSON shape the chat-completions API emits.
type ToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolCall is one model-requested tool invocation.
type ToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function ToolCallFunction `json:"function"`
}

// Message is one entry in the ephemeral, per-cycle conversation: role is
// one of system/user/assistant/tool. ToolCalls is set only on
// an assistant message that invoked tools; ToolCallID is set only on the
// tool-result message answering one of them.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// NewSystemMessage returns a {role: "system"} message.
func NewSystemMessage(content string) Message {
	return Message{Role: "system", Content: content}
}

// NewUserMessage returns a {role: "user"} message.
func NewUserMessage(content string) Message {
	return Message{Role: "user", Content: content}
}

// NewToolResultMessage returns a {role: "tool"} message answering callID.
func NewToolResultMessage(callID, content string) Message {
	return Message{Role: "tool", Content: content, ToolCallID: callID}
}

// InitialMessages builds the conversation the Runner opens every cycle
// with: the system prompt followed by a fixed "Continue." user turn.
func InitialMessages(systemPrompt string) []Message {
	return []Message{
		NewSystemMessage(systemPrompt),
		NewUserMessage("Continue."),
	}
}
