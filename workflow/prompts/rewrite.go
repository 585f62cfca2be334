package prompts

import "fmt"

// RewriteSingleSystem returns the system instruction for a single-scene
// rewrite. The character name replaces placeholders so edits keep the
// recurring identity stable.
func RewriteSingleSystem(triggerWord string) string {
	return fmt.Sprintf(`You are a master storyteller and expert scene editor. Your job is to make scene edits that OBEY the user's EDIT REQUEST, even if it means changing the setting, weather, or time of day.
You MUST prioritize the EDIT REQUEST over the original context. If the edit request requires a new setting, change it completely.

IMPORTANT: Always use the character name %q (exactly as written) in your scenes instead of placeholders.
`, triggerWord)
}

// RewriteSingleUser returns the user instruction for rewriting one
// scene. storyContext is every scene rendered in block format with the
// target marked [TO BE EDITED].
func RewriteSingleUser(concept, instructions, triggerWord, storyContext string, target int) string {
	return fmt.Sprintf(`WARNING: If you do not change the scene according to the EDIT REQUEST, your output will be rejected.

STORY CONCEPT: %q
EDIT REQUEST: %q
CHARACTER NAME: %q (use this exact name, not placeholders)

CURRENT STORY CONTEXT:
%s

Your task:
- You MUST rewrite Scene %d so that it reflects the edit request above.
- The new scene should CLEARLY show the changes described in the edit request, even if it means changing the setting, weather, or time of day.
- Do NOT simply repeat the previous scene. Make the changes OBVIOUS and VISIBLE.
- If the edit request says "character is walking on beautiful sunny morning day", the scene MUST be set in a sunny morning, NOT a forest or rainy setting, unless the user specifically requests a forest.

IMPORTANT REQUIREMENTS:
- Use the character name %q (exactly as written) throughout the scene
- DO NOT use {character} or any placeholders - use the actual name %q
- Ensure the edited scene flows naturally from the previous scene
- Make sure the edited scene sets up the next scene appropriately
- Maintain the visual storytelling approach

Return ONLY the edited scene in this exact format:
**Scene %d: "Title"**
[Scene content using the character name %q]
`, concept, instructions, triggerWord, storyContext, target, triggerWord, triggerWord, target, triggerWord)
}

// RewriteAllSystem returns the system instruction for rewriting every
// scene with one edit request.
func RewriteAllSystem(triggerWord string) string {
	return fmt.Sprintf(`You are a master storyteller and expert script editor. Your job is to rewrite ALL scenes in the story to incorporate the user's edit request while maintaining narrative coherence.

IMPORTANT RULES:
1. You MUST apply the edit request to ALL scenes, not just one
2. Always use the character name %q (exactly as written) instead of placeholders
3. Maintain story flow and coherence between scenes
4. Make the changes OBVIOUS and VISIBLE in all scenes
5. Each scene should clearly reflect the edit request while building upon the previous scene

The edit request should transform the ENTIRE story, not just individual scenes.
`, triggerWord)
}

// RewriteAllUser returns the user instruction for an all-scenes rewrite.
// storyContext is every current scene in block format.
func RewriteAllUser(concept, instructions, triggerWord, storyContext string, numScenes int) string {
	return fmt.Sprintf(`CRITICAL: Rewrite ALL scenes to incorporate the edit request. Do not leave any scene unchanged.

STORY CONCEPT: %q
EDIT REQUEST FOR ALL SCENES: %q
CHARACTER NAME: %q (use this exact name, not placeholders)

CURRENT STORY (ALL SCENES):
%s

Your task:
- Rewrite ALL %d scenes to incorporate the edit request
- Each scene must clearly show the changes described in the edit request
- Maintain narrative flow between scenes
- If edit request changes setting/weather/time, apply it to ALL scenes consistently
- Make sure each scene builds upon the previous one naturally

IMPORTANT REQUIREMENTS:
- Use the character name %q throughout all scenes
- DO NOT use {character} or any placeholders
- Return ALL scenes, even if slightly modified
- Ensure visual storytelling approach for each scene

Return all scenes in this exact format:
**Scene 1: "Title"**
[Scene 1 content using character name %q]

**Scene 2: "Title"**
[Scene 2 content using character name %q]

[Continue for all scenes...]
`, concept, instructions, triggerWord, storyContext, numScenes, triggerWord, triggerWord, triggerWord)
}
