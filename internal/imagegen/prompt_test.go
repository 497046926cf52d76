package imagegen

import (
	"reflect"
	"strings"
	"testing"
)

func TestEnhancePrompt(t *testing.T) {
	tests := []struct {
		name     string
		prompt   string
		modelTag string
		style    string
		want     string
	}{
		{
			name:     "style and model modifiers plus quality suffix",
			prompt:   "a cat",
			modelTag: "raphael-anime",
			style:    "vivid",
			want:     "a cat, vibrant colors, high contrast, dramatic lighting, anime artwork, manga style, Japanese animation, high quality, detailed",
		},
		{
			name:     "unknown style and model contribute nothing",
			prompt:   "a dog",
			modelTag: "unknown-model",
			style:    "unknown-style",
			want:     "a dog, high quality, detailed",
		},
		{
			name:     "trailing comma in prompt collapses",
			prompt:   "a bird,",
			modelTag: "",
			style:    "",
			want:     "a bird, high quality, detailed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EnhancePrompt(tt.prompt, tt.modelTag, tt.style)
			if got != tt.want {
				t.Errorf("EnhancePrompt() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEnhancePromptNoDoubleCommas(t *testing.T) {
	got := EnhancePrompt("weird,, prompt, , here", "raphael-creative", "natural")
	if strings.Contains(got, ",,") || strings.Contains(got, ", ,") {
		t.Errorf("EnhancePrompt() = %q, contains duplicate commas", got)
	}
}

func TestKeywords(t *testing.T) {
	tests := []struct {
		name   string
		prompt string
		want   []string
	}{
		{
			name:   "basic extraction drops stop words and short tokens",
			prompt: "a majestic dragon flying over the mountains",
			want:   []string{"majestic", "dragon", "flying", "over", "mountains"},
		},
		{
			name:   "only stop words yields defaults",
			prompt: "the a an",
			want:   []string{"abstract", "art", "creative"},
		},
		{
			name:   "empty prompt yields defaults",
			prompt: "",
			want:   []string{"abstract", "art", "creative"},
		},
		{
			name:   "punctuation splits and lowercase applies",
			prompt: "Sunset, Beach! Ocean-Waves",
			want:   []string{"sunset", "beach", "ocean", "waves"},
		},
		{
			name:   "caps at five keywords",
			prompt: "one1 two2 three3 four4 five5 six6 seven7",
			want:   []string{"one1", "two2", "three3", "four4", "five5"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Keywords(tt.prompt)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Keywords(%q) = %v, want %v", tt.prompt, got, tt.want)
			}
		})
	}
}
