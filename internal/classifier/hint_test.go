package classifier

import "testing"

func TestExtractProviderHint(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"research quantum computing with gemini", "gemini"},
		{"summarize this using Claude", "anthropic"},
		{"ask via chatgpt what the capital is", "openai"},
		{"look this up on perplexity.", "perplexity"},
		{"use gpt for this one", "openai"},
		{"buy milk tomorrow", ""},
		{"meet with Sarah at 3pm", ""},
		{"", ""},
	}

	for _, tc := range cases {
		if got := ExtractProviderHint(tc.text); got != tc.want {
			t.Errorf("ExtractProviderHint(%q) = %q, want %q", tc.text, got, tc.want)
		}
	}
}
