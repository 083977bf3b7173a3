package vision

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Format renders an inference result as a chat message. It never fails: a
// result that does not match the expected shape is rendered as a visible
// error string, and an unrecognized capability falls back to a raw dump.
func Format(agent AgentType, raw json.RawMessage) string {
	switch agent {
	case AgentCounting:
		return formatCounting(raw)
	case AgentValidation:
		return formatValidation(raw)
	case AgentLabelMatching:
		return formatLabelMatching(raw)
	case AgentDamage:
		return formatDamage(raw)
	case AgentCleanliness:
		return formatCleanliness(raw)
	case AgentTextExtraction:
		return formatTextExtraction(raw)
	case AgentReceipt:
		return formatReceipt(raw)
	}
	return formatRaw(raw)
}

func formatError(agent AgentType, err error) string {
	return fmt.Sprintf(":x: Could not parse %s result: %v", agent, err)
}

func formatCounting(raw json.RawMessage) string {
	var r struct {
		ObjectCounts map[string]int `json:"object_counts"`
		TotalObjects int            `json:"total_objects"`
	}
	if err := json.Unmarshal(raw, &r); err != nil {
		return formatError(AgentCounting, err)
	}
	names := make([]string, 0, len(r.ObjectCounts))
	for name := range r.ObjectCounts {
		names = append(names, name)
	}
	sort.Strings(names)
	var b strings.Builder
	b.WriteString(":bar_chart: *Object Counts:*\n")
	if len(names) == 0 {
		b.WriteString("_No objects detected._\n")
	}
	for _, name := range names {
		fmt.Fprintf(&b, "• %s: *%d*\n", name, r.ObjectCounts[name])
	}
	fmt.Fprintf(&b, "\nTotal objects: *%d*", r.TotalObjects)
	return b.String()
}

func formatValidation(raw json.RawMessage) string {
	var r struct {
		IsValid bool   `json:"is_valid"`
		Reason  string `json:"reason"`
	}
	if err := json.Unmarshal(raw, &r); err != nil {
		return formatError(AgentValidation, err)
	}
	verdict := ":white_check_mark: *Product valid.*"
	if !r.IsValid {
		verdict = ":x: *Product invalid.*"
	}
	if strings.TrimSpace(r.Reason) != "" {
		return verdict + "\nReason: " + strings.TrimSpace(r.Reason)
	}
	return verdict
}

func formatLabelMatching(raw json.RawMessage) string {
	var r struct {
		Match         bool    `json:"match"`
		ExpectedLabel string  `json:"expected_label"`
		DetectedLabel string  `json:"detected_label"`
		Confidence    float64 `json:"confidence"`
	}
	if err := json.Unmarshal(raw, &r); err != nil {
		return formatError(AgentLabelMatching, err)
	}
	verdict := ":white_check_mark: *Label matches.*"
	if !r.Match {
		verdict = ":x: *Label mismatch.*"
	}
	return fmt.Sprintf("%s\n- Expected: *%s*\n- Detected: *%s*\n- Confidence: %.0f%%",
		verdict, r.ExpectedLabel, r.DetectedLabel, r.Confidence*100)
}

func formatDamage(raw json.RawMessage) string {
	var r struct {
		DamageDetected bool     `json:"damage_detected"`
		DamageTypes    []string `json:"damage_types"`
		Severity       string   `json:"severity"`
	}
	if err := json.Unmarshal(raw, &r); err != nil {
		return formatError(AgentDamage, err)
	}
	if !r.DamageDetected {
		return ":white_check_mark: *No damage detected.*"
	}
	out := ":warning: *Damage detected.*"
	if len(r.DamageTypes) > 0 {
		out += "\n- Types: " + strings.Join(r.DamageTypes, ", ")
	}
	if strings.TrimSpace(r.Severity) != "" {
		out += "\n- Severity: *" + strings.TrimSpace(r.Severity) + "*"
	}
	return out
}

func formatCleanliness(raw json.RawMessage) string {
	var r struct {
		Score      float64 `json:"score"`
		Assessment string  `json:"assessment"`
	}
	if err := json.Unmarshal(raw, &r); err != nil {
		return formatError(AgentCleanliness, err)
	}
	out := fmt.Sprintf(":sparkles: *Cleanliness score:* %.1f/10", r.Score)
	if strings.TrimSpace(r.Assessment) != "" {
		out += "\n" + strings.TrimSpace(r.Assessment)
	}
	return out
}

func formatTextExtraction(raw json.RawMessage) string {
	var r struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &r); err != nil {
		return formatError(AgentTextExtraction, err)
	}
	text := strings.TrimSpace(r.Text)
	if text == "" {
		return ":page_facing_up: _No text detected._"
	}
	return ":page_facing_up: *Extracted text:*\n```" + text + "```"
}

func formatReceipt(raw json.RawMessage) string {
	// Amount fields arrive as either strings or numbers depending on the
	// endpoint version, so they decode as any and render via asText.
	var r struct {
		Merchant string `json:"merchant"`
		Total    any    `json:"total"`
		Date     string `json:"date"`
		Address  string `json:"address"`
		Currency string `json:"currency"`
		Items    []struct {
			Name  string `json:"name"`
			Price any    `json:"price"`
		} `json:"items"`
	}
	if err := json.Unmarshal(raw, &r); err != nil {
		return formatError(AgentReceipt, err)
	}
	if r.Merchant == "" {
		r.Merchant = "Unknown"
	}
	if r.Date == "" {
		r.Date = "N/A"
	}
	itemLines := "_No items detected._"
	if len(r.Items) > 0 {
		lines := make([]string, 0, len(r.Items))
		for _, item := range r.Items {
			name := item.Name
			if name == "" {
				name = "Unnamed"
			}
			lines = append(lines, fmt.Sprintf("• %s — %s%s", name, asText(item.Price), r.Currency))
		}
		itemLines = strings.Join(lines, "\n")
	}
	return fmt.Sprintf(
		":receipt: *Receipt Details:*\n"+
			"- Merchant: *%s*\n"+
			"- Date: *%s*\n"+
			"- Total: *%s%s*\n"+
			"- Address: %s\n\n"+
			":shopping_trolley: *Items:*\n%s",
		r.Merchant, r.Date, asText(r.Total), r.Currency, r.Address, itemLines)
}

func asText(v any) string {
	switch t := v.(type) {
	case nil:
		return "N/A"
	case string:
		if strings.TrimSpace(t) == "" {
			return "N/A"
		}
		return t
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%.2f", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func formatRaw(raw json.RawMessage) string {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Sprintf(":x: Could not parse result: %v", err)
	}
	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf(":x: Could not render result: %v", err)
	}
	return "```" + string(pretty) + "```"
}
