package classifier

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/harunnryd/denrei/internal/domain"
)

type classificationPayload struct {
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
	Title      string  `json:"title"`
	Reasoning  string  `json:"reasoning"`
}

// parseClassification validates raw model output into a typed classification.
// Any structural violation is a malformed response; "unclassified" with low
// confidence is a valid terminal result, not an error.
func parseClassification(raw string) (*domain.Classification, error) {
	normalized := cleanModelJSON(raw)
	if normalized == "" {
		return nil, fmt.Errorf("malformed response: empty model output")
	}

	var payload classificationPayload
	if err := json.Unmarshal([]byte(normalized), &payload); err != nil {
		extracted := extractFirstBalancedJSON(normalized, '{', '}')
		if extracted == "" {
			return nil, fmt.Errorf("malformed response: no JSON object in model output")
		}
		if err := json.Unmarshal([]byte(extracted), &payload); err != nil {
			return nil, fmt.Errorf("malformed response: %w", err)
		}
	}

	actionType, err := domain.ParseActionType(payload.Type)
	if err != nil {
		return nil, fmt.Errorf("malformed response: %w", err)
	}

	return &domain.Classification{
		Type:       actionType,
		Confidence: domain.ClampConfidence(payload.Confidence),
		Title:      strings.TrimSpace(payload.Title),
		Reasoning:  strings.TrimSpace(payload.Reasoning),
	}, nil
}

func cleanModelJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func extractFirstBalancedJSON(input string, open, close byte) string {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(input); i++ {
		ch := input[i]
		if inString {
			if escaped {
				escaped = false
				continue
			}
			if ch == '\\' {
				escaped = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case open:
			if depth == 0 {
				start = i
			}
			depth++
		case close:
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 && start >= 0 {
				return strings.TrimSpace(input[start : i+1])
			}
		}
	}
	return ""
}
