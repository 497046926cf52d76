package imagegen

import "strings"

// stopWords are filtered out of prompts before keyword selection.
var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {},
	"in": {}, "on": {}, "at": {}, "to": {}, "for": {}, "of": {},
	"with": {}, "by": {}, "is": {}, "are": {}, "was": {}, "were": {},
	"be": {}, "been": {}, "being": {}, "have": {}, "has": {}, "had": {},
	"do": {}, "does": {}, "did": {}, "will": {}, "would": {}, "should": {},
	"could": {}, "can": {}, "may": {}, "might": {}, "must": {},
}

// defaultKeywords is returned when nothing in the prompt survives filtering.
var defaultKeywords = []string{"abstract", "art", "creative"}

// Keywords derives up to five topical keywords from a prompt for services
// that want a topic instead of a free-form prompt. Lower-cases, strips
// punctuation, drops stop words and tokens of length <= 2, and keeps the
// survivors in original order. Never returns an empty slice.
func Keywords(prompt string) []string {
	if prompt == "" {
		return defaultKeywords
	}

	cleaned := strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_' {
			return r
		}
		return ' '
	}, strings.ToLower(prompt))

	var keywords []string
	for _, word := range strings.Fields(cleaned) {
		if len(word) <= 2 {
			continue
		}
		if _, stop := stopWords[word]; stop {
			continue
		}
		keywords = append(keywords, word)
		if len(keywords) == 5 {
			break
		}
	}

	if len(keywords) == 0 {
		return defaultKeywords
	}
	return keywords
}
