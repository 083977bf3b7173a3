// Package vision is the client for the vision-inference API: it downloads
// platform-hosted images, posts them to a capability endpoint, and formats
// results for chat display.
package vision

import "fmt"

// AgentType identifies an inference capability. The set is closed: adding a
// capability means adding a constant here plus a branch in Slug and Format.
type AgentType string

const (
	AgentCounting       AgentType = "counting"
	AgentValidation     AgentType = "validation"
	AgentLabelMatching  AgentType = "label-matching"
	AgentDamage         AgentType = "damage-detection"
	AgentCleanliness    AgentType = "cleanliness-scoring"
	AgentTextExtraction AgentType = "text-extraction"
	AgentReceipt        AgentType = "receipt-processor"
)

// AgentTypes lists every supported capability.
var AgentTypes = []AgentType{
	AgentCounting,
	AgentValidation,
	AgentLabelMatching,
	AgentDamage,
	AgentCleanliness,
	AgentTextExtraction,
	AgentReceipt,
}

// ParseAgentType resolves a configured capability name.
func ParseAgentType(s string) (AgentType, error) {
	for _, a := range AgentTypes {
		if string(a) == s {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown vision agent: %q", s)
}

// Slug returns the endpoint path segment for the capability.
func (a AgentType) Slug() string {
	switch a {
	case AgentCounting:
		return "product-counting"
	case AgentValidation:
		return "product-validation"
	case AgentLabelMatching:
		return "label-matching"
	case AgentDamage:
		return "damage-detection"
	case AgentCleanliness:
		return "cleanliness-scoring"
	case AgentTextExtraction:
		return "text-extraction"
	case AgentReceipt:
		return "receipt-processor"
	}
	return string(a)
}

// Params carries per-call inference parameters. Only the counting capability
// reads ObjectNames and DisableDefaultDetection.
type Params struct {
	Instruction             string
	ObjectNames             []string
	DisableDefaultDetection bool
}
