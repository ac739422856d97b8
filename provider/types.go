package provider

import "encoding/json"

// Role represents the message sender.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one conversation turn.
// Content is either plain text (Text) or a list of blocks (Blocks);
// Blocks takes precedence when non-empty.
type Message struct {
	Role   Role
	Text   string
	Blocks []ContentBlock
}

// BlockType discriminates the ContentBlock union.
type BlockType string

const (
	BlockText             BlockType = "text"
	BlockToolUse          BlockType = "tool_use"
	BlockToolResult       BlockType = "tool_result"
	BlockThinking         BlockType = "thinking"
	BlockRedactedThinking BlockType = "redacted_thinking"
)

// ContentBlock is a tagged union; only the fields for Type are meaningful.
type ContentBlock struct {
	Type BlockType

	// text
	Text string

	// tool_use
	ID    string
	Name  string
	Input map[string]any

	// tool_result
	ToolUseID string
	Content   string
	IsError   bool

	// thinking / redacted_thinking. Signature and Data are opaque and
	// must be replayed unmodified.
	Thinking  string
	Signature string
	Data      string
}

// IsThinking reports whether the block carries reasoning content.
func (b ContentBlock) IsThinking() bool {
	return b.Type == BlockThinking || b.Type == BlockRedactedThinking
}

// TextBlock creates a text block.
func TextBlock(text string) ContentBlock {
	return ContentBlock{Type: BlockText, Text: text}
}

// ToolUseBlock creates a tool_use block.
func ToolUseBlock(id, name string, input map[string]any) ContentBlock {
	return ContentBlock{Type: BlockToolUse, ID: id, Name: name, Input: input}
}

// ToolResultBlock creates a tool_result block.
func ToolResultBlock(toolUseID, content string, isError bool) ContentBlock {
	return ContentBlock{Type: BlockToolResult, ToolUseID: toolUseID, Content: content, IsError: isError}
}

// ThinkingBlock creates a thinking block.
func ThinkingBlock(thinking, signature string) ContentBlock {
	return ContentBlock{Type: BlockThinking, Thinking: thinking, Signature: signature}
}

// RedactedThinkingBlock creates a redacted_thinking block.
func RedactedThinkingBlock(data string) ContentBlock {
	return ContentBlock{Type: BlockRedactedThinking, Data: data}
}

// UserMessage creates a plain-text user message.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Text: text}
}

// AssistantMessage creates a plain-text assistant message.
func AssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Text: text}
}

// ToolCall is a completed, fully parsed tool invocation.
type ToolCall struct {
	ID    string
	Name  string
	Input map[string]any
}

// ToolResult is the outcome of executing a ToolCall.
type ToolResult struct {
	ToolUseID string
	Content   string
	IsError   bool
}

// ToolDefinition describes a tool the model can call.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema json.RawMessage // JSON Schema
}

// StopReason is the normalized cause for a stream ending.
// The empty value means the vendor never reported one.
type StopReason string

const (
	StopEndTurn   StopReason = "end_turn"
	StopToolUse   StopReason = "tool_use"
	StopCancelled StopReason = "cancelled"
	StopMaxTokens StopReason = "max_tokens"
)

// Usage contains token usage statistics.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// StreamResult is the terminal value of one Stream call.
type StreamResult struct {
	Text           string
	ToolCalls      []ToolCall
	ThinkingBlocks []ContentBlock
	StopReason     StopReason
	Usage          *Usage
}

// ThinkingConfig enables extended reasoning.
type ThinkingConfig struct {
	Type         string // always "enabled"
	BudgetTokens int
}

// EnableThinking returns a ThinkingConfig with the given budget.
func EnableThinking(budgetTokens int) *ThinkingConfig {
	return &ThinkingConfig{Type: "enabled", BudgetTokens: budgetTokens}
}
