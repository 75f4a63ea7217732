package classifier

import "strings"

// providerKeywords maps phrases users drop into a command ("research this
// with gemini") to a provider name. Extraction is a pure function over the
// text; it never blocks or fails classification.
var providerKeywords = map[string]string{
	"gemini":     "gemini",
	"google":     "gemini",
	"claude":     "anthropic",
	"anthropic":  "anthropic",
	"gpt":        "openai",
	"openai":     "openai",
	"chatgpt":    "openai",
	"perplexity": "perplexity",
}

var hintMarkers = []string{"with ", "using ", "via ", "use ", "on "}

// ExtractProviderHint scans text for a preferred-provider phrase and returns
// the normalized provider name, or "" when no hint is present.
func ExtractProviderHint(text string) string {
	lower := strings.ToLower(text)

	for _, marker := range hintMarkers {
		idx := 0
		for {
			pos := strings.Index(lower[idx:], marker)
			if pos < 0 {
				break
			}
			rest := lower[idx+pos+len(marker):]
			word := rest
			if end := strings.IndexAny(word, " \t\n.,;:!?"); end >= 0 {
				word = word[:end]
			}
			if provider, ok := providerKeywords[word]; ok {
				return provider
			}
			idx += pos + len(marker)
		}
	}
	return ""
}
