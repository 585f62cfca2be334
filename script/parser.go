package script

import (
	"regexp"
	"strconv"
	"strings"
)

// blockMarker matches the scene header line. Titles may or may not be
// quoted; matching is case-insensitive. The body runs from the end of
// one marker to the start of the next marker or end of text.
var blockMarker = regexp.MustCompile(`(?i)\*\*Scene\s+(\d+):\s*"?([^"\n]+?)"?\*\*`)

// Parse extracts all scene blocks from generated text, in document
// order. Titles are captured without surrounding quotes and bodies are
// trimmed of leading and trailing whitespace. Text with no markers
// yields an empty slice.
func Parse(text string) []Scene {
	locs := blockMarker.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return nil
	}

	scenes := make([]Scene, 0, len(locs))
	for i, loc := range locs {
		number, err := strconv.Atoi(text[loc[2]:loc[3]])
		if err != nil {
			continue
		}
		title := strings.TrimSpace(text[loc[4]:loc[5]])

		bodyEnd := len(text)
		if i+1 < len(locs) {
			bodyEnd = locs[i+1][0]
		}
		body := strings.TrimSpace(text[loc[1]:bodyEnd])

		scenes = append(scenes, Scene{
			Number: number,
			Title:  title,
			Story:  body,
		})
	}
	return scenes
}

// ParseOne extracts exactly one scene block. It returns false when the
// text contains no scene marker.
func ParseOne(text string) (Scene, bool) {
	scenes := Parse(text)
	if len(scenes) == 0 {
		return Scene{}, false
	}
	return scenes[0], true
}
