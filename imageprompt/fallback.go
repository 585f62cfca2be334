package imageprompt

import (
	"regexp"
	"strings"
)

// Fixed vocabularies for visual element extraction. Matching is lexical
// on the lowercased scene text.
var (
	lightingKeywords = []string{
		"light", "shadow", "bright", "dark", "glow", "shimmer", "filtering",
		"dappled", "harsh", "soft", "ambient", "dramatic", "sunlight", "mist", "spray",
	}
	environmentKeywords = []string{
		"forest", "jungle", "desert", "mountain", "ocean", "city", "room",
		"cave", "valley", "field", "river", "lake", "beach", "garden", "clearing",
		"canopy", "undergrowth", "waterfall", "trees", "thicket",
	}

	colorPattern   = regexp.MustCompile(`\b(green|blue|red|yellow|purple|orange|black|white|brown|golden|silver|emerald|crimson|azure|crystal-clear)\b`)
	texturePattern = regexp.MustCompile(`\b(leather|metal|wood|stone|fabric|silk|rough|smooth|worn|weathered|damp|wet|dry|thick|intricate)\b`)
	objectPattern  = regexp.MustCompile(`\b(jacket|boots|machete|leaves|vines|flowers|waterfall|canopy|shadows|earth|roots|fungi|trunk|tendrils|spray|droplets)\b`)
	weatherPattern = regexp.MustCompile(`\b(humidity|mist|misty|fog|rain|wind|humid|cool|warm|deafening)\b`)
)

// sceneElements holds visual elements extracted from a scene description.
type sceneElements struct {
	Lighting    []string
	Environment []string
	Colors      []string
	Textures    []string
	Objects     []string
	Weather     []string
}

// styleTemplate and quality/technical modifiers layered onto every
// fallback prompt.
const (
	styleTemplate    = "cinematic lighting, professional photography, high quality, detailed"
	qualityModifiers = "ultra high quality, extremely detailed, 8k resolution"
)

var technicalParams = []string{
	"sharp focus",
	"perfect composition",
	"trending on artstation",
	"masterpiece",
}

// extractElements pulls visual elements out of a scene description using
// the fixed vocabularies.
func extractElements(sceneText string) sceneElements {
	text := strings.ToLower(sceneText)

	var el sceneElements
	for _, kw := range lightingKeywords {
		if strings.Contains(text, kw) {
			el.Lighting = append(el.Lighting, kw)
		}
	}
	for _, kw := range environmentKeywords {
		if strings.Contains(text, kw) {
			el.Environment = append(el.Environment, kw)
		}
	}
	el.Colors = matchAll(colorPattern, text)
	el.Textures = matchAll(texturePattern, text)
	el.Objects = matchAll(objectPattern, text)
	el.Weather = matchAll(weatherPattern, text)
	return el
}

func matchAll(re *regexp.Regexp, text string) []string {
	var out []string
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		out = append(out, m[1])
	}
	return out
}

// dedupe removes duplicates preserving first-occurrence order.
func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// Fallback assembles a prompt deterministically from the scene text, the
// style template, quality and technical modifiers, and extracted visual
// elements. It always produces a non-empty, syntactically valid prompt.
func (g *Generator) Fallback(sceneText, triggerWord string) string {
	elements := extractElements(sceneText)

	var parts []string
	if triggerWord != "" {
		parts = append(parts, triggerWord)
	}
	parts = append(parts, sceneText, styleTemplate, qualityModifiers)
	parts = append(parts, technicalParams...)

	if lighting := dedupe(elements.Lighting); len(lighting) > 0 {
		parts = append(parts, "beautiful "+strings.Join(lighting, ", "))
	}
	if colors := dedupe(elements.Colors); len(colors) > 0 {
		parts = append(parts, "rich "+strings.Join(colors, ", ")+" tones")
	}

	return strings.Join(parts, ", ")
}

// VideoPrompt augments an image prompt with motion and continuity cues
// for text-plus-image to video generation.
func VideoPrompt(imagePrompt string) string {
	if imagePrompt == "" {
		return "smooth cinematic camera motion, natural movement, high quality video"
	}
	return imagePrompt + ", smooth cinematic camera motion, natural movement, consistent subject, high quality video"
}
