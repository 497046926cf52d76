// Package imagegen provides prompt enhancement, keyword extraction, the
// image service adapters, and the fallback orchestrator that drives them.
package imagegen

import "strings"

// styleModifiers and modelModifiers are appended to the raw prompt before it
// reaches any image service. Unrecognized keys contribute nothing.
var styleModifiers = map[string]string{
	"natural":      "natural lighting, realistic colors",
	"vivid":        "vibrant colors, high contrast, dramatic lighting",
	"artistic":     "artistic style, painterly, creative composition",
	"photographic": "photorealistic, high resolution, professional photography",
	"anime":        "anime style, manga art, cel shading",
	"cartoon":      "cartoon style, illustrated, colorful, whimsical",
}

var modelModifiers = map[string]string{
	"raphael-creative":  "creative artwork, imaginative design",
	"raphael-realistic": "photorealistic, lifelike, detailed textures",
	"raphael-artistic":  "fine art style, masterpiece quality",
	"raphael-anime":     "anime artwork, manga style, Japanese animation",
}

const qualitySuffix = "high quality, detailed"

// EnhancePrompt appends the style modifier, the model modifier, and an
// unconditional quality suffix to the raw prompt, collapsing any duplicate
// comma sequences the concatenation produced. Pure string work; no failure
// mode.
func EnhancePrompt(prompt, modelTag, style string) string {
	enhanced := prompt

	if mod, ok := styleModifiers[style]; ok {
		enhanced += ", " + mod
	}
	if mod, ok := modelModifiers[modelTag]; ok {
		enhanced += ", " + mod
	}
	enhanced += ", " + qualitySuffix

	for strings.Contains(enhanced, ",,") {
		enhanced = strings.ReplaceAll(enhanced, ",,", ",")
	}
	for strings.Contains(enhanced, ", ,") {
		enhanced = strings.ReplaceAll(enhanced, ", ,", ",")
	}
	return strings.TrimSpace(enhanced)
}
