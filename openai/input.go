package openai

import (
	"encoding/json"
	"strings"

	"github.com/i2y/llmstream/provider"
)

// InputFromMessages flattens a conversation into Responses API input items.
// Text becomes a role message item, each tool_use block a function_call item
// and each tool_result block a function_call_output item, in message order.
// Thinking blocks are not sent to this vendor.
func InputFromMessages(messages []provider.Message) []InputItem {
	items := make([]InputItem, 0, len(messages))
	for _, msg := range messages {
		if len(msg.Blocks) == 0 {
			items = append(items, InputItem{Type: ItemMessage, Role: string(msg.Role), Content: msg.Text})
			continue
		}

		var text []string
		for _, b := range msg.Blocks {
			if b.Type == provider.BlockText {
				text = append(text, b.Text)
			}
		}
		if len(text) > 0 {
			items = append(items, InputItem{Type: ItemMessage, Role: string(msg.Role), Content: strings.Join(text, "")})
		}

		for _, b := range msg.Blocks {
			switch b.Type {
			case provider.BlockToolUse:
				items = append(items, InputItem{
					Type:      ItemFunctionCall,
					CallID:    b.ID,
					Name:      b.Name,
					Arguments: encodeArguments(b.Input),
				})
			case provider.BlockToolResult:
				items = append(items, InputItem{
					Type:   ItemFunctionCallOutput,
					CallID: b.ToolUseID,
					Output: b.Content,
				})
			}
		}
	}
	return items
}

func encodeArguments(input map[string]any) string {
	if input == nil {
		return "{}"
	}
	data, err := json.Marshal(input)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// MessagesFromInput regroups flattened input items into messages. An
// assistant message item absorbs the function_call items that follow it and
// consecutive function_call_output items form one tool result message.
// Flattening the result again yields the same items, with arguments
// re-encoded in canonical key order.
func MessagesFromInput(items []InputItem) []provider.Message {
	var (
		messages  []provider.Message
		assistant bool
		text      string
		calls     []provider.ToolCall
		results   []provider.ToolResult
	)

	flush := func() {
		if assistant {
			messages = append(messages, provider.BuildAssistantMessage(text, calls, nil))
			assistant, text, calls = false, "", nil
		}
		if len(results) > 0 {
			messages = append(messages, provider.BuildToolResultMessage(results))
			results = nil
		}
	}

	for _, it := range items {
		switch it.Type {
		case ItemFunctionCall:
			if len(results) > 0 {
				flush()
			}
			assistant = true
			input, _ := provider.ParseOrDefault(it.Arguments)
			calls = append(calls, provider.ToolCall{ID: it.CallID, Name: it.Name, Input: input})

		case ItemFunctionCallOutput:
			if assistant {
				flush()
			}
			results = append(results, provider.ToolResult{ToolUseID: it.CallID, Content: it.Output})

		default:
			flush()
			if it.Role == string(provider.RoleAssistant) {
				assistant, text = true, it.Content
				continue
			}
			messages = append(messages, provider.Message{Role: provider.Role(it.Role), Text: it.Content})
		}
	}
	flush()

	return messages
}
