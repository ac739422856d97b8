package provider

import (
	"fmt"
	"strings"
)

// Family is the closed set of vendor families an adapter can implement.
type Family int

const (
	// FamilyAnthropic is the block-oriented native event stream. It is the
	// baseline family for unrecognized model identifiers.
	FamilyAnthropic Family = iota
	// FamilyOpenAI is the flat delta SSE stream of the Responses API.
	FamilyOpenAI
)

// Families lists every known family.
var Families = []Family{FamilyAnthropic, FamilyOpenAI}

func (f Family) String() string {
	switch f {
	case FamilyAnthropic:
		return "anthropic"
	case FamilyOpenAI:
		return "openai"
	default:
		return fmt.Sprintf("family(%d)", int(f))
	}
}

// ParseFamily maps a family name to a Family.
func ParseFamily(name string) (Family, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "anthropic", "claude":
		return FamilyAnthropic, nil
	case "openai":
		return FamilyOpenAI, nil
	default:
		return 0, fmt.Errorf("unknown provider family: %q", name)
	}
}

var openAIModelPrefixes = []string{"gpt-", "o1", "o3", "o4", "codex", "chatgpt"}

// FamilyForModel picks the family for a model identifier. Unknown models fall
// back to FamilyAnthropic so new model names work without a code change.
func FamilyForModel(modelID string) Family {
	id := strings.ToLower(strings.TrimSpace(modelID))
	if strings.HasPrefix(id, "claude") {
		return FamilyAnthropic
	}
	for _, prefix := range openAIModelPrefixes {
		if strings.HasPrefix(id, prefix) {
			return FamilyOpenAI
		}
	}
	return FamilyAnthropic
}
