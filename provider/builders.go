package provider

import (
	"encoding/json"
	"strings"
)

// BuildAssistantMessage rebuilds an assistant turn in the order vendors
// require: reasoning blocks, then text, then tool_use blocks.
func BuildAssistantMessage(text string, toolCalls []ToolCall, thinking []ContentBlock) Message {
	blocks := make([]ContentBlock, 0, len(thinking)+1+len(toolCalls))

	for _, b := range thinking {
		if b.IsThinking() {
			blocks = append(blocks, b)
		}
	}

	if text != "" {
		blocks = append(blocks, TextBlock(text))
	}

	for _, tc := range toolCalls {
		input := tc.Input
		if input == nil {
			input = map[string]any{}
		}
		blocks = append(blocks, ToolUseBlock(tc.ID, tc.Name, input))
	}

	return Message{Role: RoleAssistant, Blocks: blocks}
}

// BuildToolResultMessage returns one user message holding a tool_result block
// per result, in input order.
func BuildToolResultMessage(results []ToolResult) Message {
	blocks := make([]ContentBlock, len(results))
	for i, r := range results {
		blocks[i] = ToolResultBlock(r.ToolUseID, r.Content, r.IsError)
	}
	return Message{Role: RoleUser, Blocks: blocks}
}

// ParseOrDefault parses streamed tool arguments. Blank input is a valid empty
// object; malformed input yields an empty object and ok == false so the call
// can still reach the caller and be reported as a tool error.
func ParseOrDefault(text string) (args map[string]any, ok bool) {
	if strings.TrimSpace(text) == "" {
		return map[string]any{}, true
	}
	if err := json.Unmarshal([]byte(text), &args); err != nil || args == nil {
		return map[string]any{}, false
	}
	return args, true
}
