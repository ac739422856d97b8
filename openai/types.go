package openai

import "encoding/json"

// Input item types.
const (
	ItemMessage            = "message"
	ItemFunctionCall       = "function_call"
	ItemFunctionCallOutput = "function_call_output"
)

// responsesRequest represents a Responses API request.
type responsesRequest struct {
	Model             string      `json:"model"`
	Instructions      string      `json:"instructions,omitempty"`
	Input             []InputItem `json:"input"`
	Stream            bool        `json:"stream"`
	Tools             []toolDef   `json:"tools,omitempty"`
	ToolChoice        string      `json:"tool_choice,omitempty"`
	ParallelToolCalls bool        `json:"parallel_tool_calls"`
	MaxOutputTokens   int         `json:"max_output_tokens,omitempty"`
}

// InputItem is one entry of the flattened Responses API input list. Which
// fields are meaningful depends on Type.
type InputItem struct {
	Type string `json:"type"`

	// message
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`

	// function_call and function_call_output
	CallID    string `json:"call_id,omitempty"`
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
	Output    string `json:"output,omitempty"`
}

// MarshalJSON writes only the fields of the item's type. Arguments and output
// are always present on call items, even when empty.
func (it InputItem) MarshalJSON() ([]byte, error) {
	switch it.Type {
	case ItemFunctionCall:
		return json.Marshal(struct {
			Type      string `json:"type"`
			CallID    string `json:"call_id"`
			Name      string `json:"name"`
			Arguments string `json:"arguments"`
		}{it.Type, it.CallID, it.Name, it.Arguments})
	case ItemFunctionCallOutput:
		return json.Marshal(struct {
			Type   string `json:"type"`
			CallID string `json:"call_id"`
			Output string `json:"output"`
		}{it.Type, it.CallID, it.Output})
	default:
		return json.Marshal(struct {
			Type    string `json:"type"`
			Role    string `json:"role"`
			Content string `json:"content"`
		}{ItemMessage, it.Role, it.Content})
	}
}

// toolDef represents a function tool. The Responses API flattens the
// function fields into the tool itself.
type toolDef struct {
	Type        string          `json:"type"` // "function"
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters"`
}

// Streaming event types

// responseEvent is one decoded "data:" payload. The stream is flat: every
// event carries its own type and the fields it needs.
type responseEvent struct {
	Type        string `json:"type"`
	ItemID      string `json:"item_id,omitempty"`
	OutputIndex int    `json:"output_index,omitempty"`

	// *.delta events
	Delta string `json:"delta,omitempty"`

	// response.function_call_arguments.done
	Arguments string `json:"arguments,omitempty"`
	CallID    string `json:"call_id,omitempty"`
	Name      string `json:"name,omitempty"`

	// response.output_item.added / response.output_item.done
	Item *outputItem `json:"item,omitempty"`

	// response.completed, response.done, response.incomplete, response.failed
	Response *responseBody `json:"response,omitempty"`

	// error
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// outputItem is an item of the response output list.
type outputItem struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Status    string `json:"status,omitempty"`
	CallID    string `json:"call_id,omitempty"`
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

// responseBody is the response object carried by the summary events.
type responseBody struct {
	ID                string             `json:"id"`
	Status            string             `json:"status"`
	Output            []outputItem       `json:"output,omitempty"`
	Usage             *responsesUsage    `json:"usage,omitempty"`
	Error             *apiError          `json:"error,omitempty"`
	IncompleteDetails *incompleteDetails `json:"incomplete_details,omitempty"`
}

type incompleteDetails struct {
	Reason string `json:"reason"`
}

// responsesUsage represents token usage information.
type responsesUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// errorResponse represents an API error response.
type errorResponse struct {
	Error apiError `json:"error"`
}

// apiError represents the error details.
type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}
