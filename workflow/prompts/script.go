// Package prompts builds the system and user instructions sent to the
// text generation service. The scene block layout demanded here is the
// same wire format the script parser consumes, so these texts and the
// parser must change together.
package prompts

import "fmt"

const storySystem = `You are a master storyteller creating visual narratives for single character stories. Your task is to create scene summaries that will be used for image and video generation.

CRITICAL RULES:
1. Create stories with exactly ONE character
2. Use {character} placeholder in ALL scene summaries - NEVER use actual character names
3. Focus on visual storytelling - describe what happens, not dialogue
4. Keep scenes cinematic and suitable for video generation
5. NO character reference sheets needed

SCENE FORMAT:
**Scene #: "TITLE"**
[Summary of what happens in the scene using {character} placeholder - focus on actions, emotions, and visual elements]
`

const commercialSystem = `You are a creative director making commercials, adverts, or promos for products. Your task is to create scene summaries for a visual commercial, always using the {product} keyword instead of any real product name.

CRITICAL RULES:
1. The commercial must focus on a single product, always referenced as {product}
2. Use {product} in ALL scene summaries - NEVER use actual product names
3. Focus on visual storytelling for advertising - show the product in action, benefits, emotions, and appeal
4. No reference sheets or product details section
5. Each scene should be cinematic and suitable for video generation

SCENE FORMAT:
**Scene #: "TITLE"**
[Summary of what happens in the scene using {product} placeholder - focus on actions, emotions, and visual elements]
`

// ScriptSystem returns the system instruction for initial script
// generation.
func ScriptSystem(commercial bool) string {
	if commercial {
		return commercialSystem
	}
	return storySystem
}

// ScriptUser returns the user instruction for initial script generation.
// description is the creativity description, e.g. "balanced blend of
// realism and creativity". previousContext, when non-empty, prepends a
// continuation preamble so regenerated scenes stay consistent with
// already-finalized ones.
func ScriptUser(concept string, numScenes int, description string, commercial bool, previousContext string) string {
	var prompt string
	if commercial {
		prompt = fmt.Sprintf(`Create a visual commercial titled %q with exactly %d scenes.

Create exactly %d scenes. Each scene should be a visual summary using {product} placeholder.

IMPORTANT RULES:
- Use {product} instead of any actual product name
- Focus on visual actions, benefits, and emotions
- Describe what can be seen in each scene
- NO dialogue, just visual storytelling
- Each scene should be suitable for image/video generation
- The commercial must be %s and focus on the concept: %s
`, concept, numScenes, numScenes, description, concept)
		if previousContext != "" {
			prompt = fmt.Sprintf(`Previous context (IMPORTANT: carry over any environmental, setting, or character changes, such as weather, ground conditions, mood or environment, into this next scene):
%s

Continue the story with the next scene, making sure that any changes (for example, if the ground became damp, or the weather changed, or a character was injured) are reflected and persist in this and all following scenes.
%s`, previousContext, prompt)
		}
		return prompt
	}

	prompt = fmt.Sprintf(`Create a visual story titled %q with exactly %d scenes.

Create exactly %d scenes. Each scene should be a visual summary using {character} placeholder.

IMPORTANT RULES:
- Use {character} instead of any actual character name
- Focus on visual actions and emotions
- Describe what can be seen in each scene
- NO dialogue, just visual storytelling
- Each scene should be suitable for image/video generation
- Include only ONE character throughout the story

Format:
**Scene 1: "Title of Scene"**
{character} [describe what the character is doing, feeling, or experiencing visually]. [Describe the environment, actions, and visual elements without using any actual character name].

**Scene 2: "Title of Scene"**
{character} [continue the story visually]...

Continue for all %d scenes, maintaining visual continuity and using {character} placeholder throughout.

The story should be %s and focus on the concept: %s
`, concept, numScenes, numScenes, numScenes, description, concept)
	if previousContext != "" {
		prompt = fmt.Sprintf(`Previous context:
%s

Continue the story with the next scene, ensuring it is consistent with the previous context.
%s`, previousContext, prompt)
	}
	return prompt
}
