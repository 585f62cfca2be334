// Package imageprompt turns finalized scene text into image generation
// prompts. The primary path asks the LLM to enrich the scene with
// cinematic styling; when that fails a deterministic template assembly
// guarantees a usable prompt is still produced.
package imageprompt

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/envisionhq/sceneflow/llm"
)

// ScenePrompt is the per-scene output of prompt generation.
type ScenePrompt struct {
	SceneNumber    int    `json:"scene_number"`
	SceneTitle     string `json:"scene_title"`
	ImagePrompt    string `json:"image_prompt"`
	NegativePrompt string `json:"negative_prompt"`
}

// NegativePrompt is the constant list of undesired-quality tokens,
// identical for every scene.
const NegativePrompt = "blurry, low quality, pixelated, distorted, ugly, " +
	"bad anatomy, deformed, duplicate, cropped, out of frame, watermark, " +
	"text, logo, signature, low resolution, worst quality, bad hands, " +
	"extra limbs, mutated"

const enrichmentTemperature = 0.7
const enrichmentMaxTokens = 1000

// Generator produces image prompts from scene descriptions.
type Generator struct {
	llm    llm.TextGenerator
	logger *slog.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets the logger for prompt generation.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) { g.logger = logger }
}

// NewGenerator creates a Generator backed by the given text generation
// client. A nil client disables enrichment; every prompt comes from the
// fallback assembly.
func NewGenerator(client llm.TextGenerator, opts ...Option) *Generator {
	g := &Generator{
		llm:    client,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

const enrichmentSystemPrompt = `You are an expert AI image prompt engineer specializing in creating detailed, cinematic prompts for high-quality image generation.

Your task: Transform scene descriptions into comprehensive image generation prompts.

STYLING GUIDELINES - Always incorporate these elements:
- Cinematic lighting and composition (dramatic lighting, golden hour, soft shadows, etc.)
- Professional photography terms (8K resolution, shallow depth of field, bokeh, etc.)
- Camera angles and perspectives (low-angle, wide shot, close-up, etc.)
- High-quality modifiers (ultra-detailed, masterpiece, professional photography)
- Atmospheric descriptors (moody, ethereal, immersive, etc.)
- Technical excellence terms (sharp focus, perfect composition, HDR)

RULES:
1. Create detailed, visual descriptions suitable for AI image generation
2. Include lighting, composition, camera angles, and artistic style details
3. If a trigger word is provided, incorporate it naturally into the prompt
4. Focus on visual elements: colors, textures, atmosphere, mood
5. Add technical photography and cinematic terms for better quality
6. Always include quality and style modifiers naturally within the description

IMPORTANT: Return ONLY the detailed image prompt text with integrated styling - no JSON, no explanations, no formatting, just the complete cinematic prompt.`

func enrichmentUserPrompt(sceneTitle, sceneText, triggerWord string) string {
	trigger := triggerWord
	if trigger == "" {
		trigger = "none"
	}
	return fmt.Sprintf(`Transform this scene description into a detailed, cinematic image generation prompt:

Scene Title: %q
Scene Description: %s
Trigger Word: %s

Requirements:
- Make it highly visual and cinematic with professional photography styling
- Include lighting, camera angle, and composition details naturally
- Integrate quality modifiers (8K, professional photography, etc.) seamlessly
- If trigger word is provided, incorporate it naturally in the prompt
- Focus on what can be visually seen in the image
- Add atmospheric and mood descriptors
- Include cinematic and technical terms throughout the description

Create a complete, cinematic image prompt that includes all styling elements naturally integrated into the description.`, sceneTitle, sceneText, trigger)
}

// Generate produces an image prompt for one scene. It never returns an
// empty string: LLM failures fall back to template assembly.
func (g *Generator) Generate(ctx context.Context, sceneText, sceneTitle, triggerWord string) string {
	if g.llm == nil {
		return g.Fallback(sceneText, triggerWord)
	}

	temp := enrichmentTemperature
	resp, err := g.llm.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: enrichmentSystemPrompt},
			{Role: "user", Content: enrichmentUserPrompt(sceneTitle, sceneText, triggerWord)},
		},
		Temperature: &temp,
		MaxTokens:   enrichmentMaxTokens,
	})
	if err != nil {
		g.logger.Warn("prompt enrichment failed, using fallback",
			"scene_title", sceneTitle,
			"error", err)
		return g.Fallback(sceneText, triggerWord)
	}

	cleaned := CleanResponse(resp.Content)
	if cleaned == "" {
		return sceneText + ", cinematic, high quality, detailed, professional photography, 8K resolution"
	}
	return cleaned
}

var (
	jsonBlockPattern = regexp.MustCompile("(?s)```json.*?```")
	codeBlockPattern = regexp.MustCompile("(?s)```.*?```")
	preamblePattern  = regexp.MustCompile(`(?is)Here is.*?prompt:`)
	trailerPattern   = regexp.MustCompile(`(?is)This prompt.*`)
)

// CleanResponse strips code fences, explanatory preambles, surrounding
// quotes and escape characters from an enrichment response and collapses
// whitespace. Models wrap prompts in commentary often enough that this
// is part of the contract.
func CleanResponse(s string) string {
	s = jsonBlockPattern.ReplaceAllString(s, "")
	s = codeBlockPattern.ReplaceAllString(s, "")
	s = preamblePattern.ReplaceAllString(s, "")
	s = trailerPattern.ReplaceAllString(s, "")

	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'`)
	s = strings.ReplaceAll(s, `\"`, `"`)
	s = strings.ReplaceAll(s, `\'`, `'`)

	return strings.Join(strings.Fields(s), " ")
}
