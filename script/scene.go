// Package script defines the scene model and the literal scene-block
// wire format exchanged with the text generation service. The format is
// bidirectional: prompts demand it and responses are parsed against it.
package script

import (
	"fmt"
	"sort"
	"strings"
)

// Scene is a single narrative unit of a script.
type Scene struct {
	Number int    `json:"scene_number"`
	Title  string `json:"title"`
	Story  string `json:"story"`
}

// Block renders a scene in the literal block format:
//
//	**Scene N: "Title"**
//	body text
func (s Scene) Block() string {
	return fmt.Sprintf("**Scene %d: %q**\n%s", s.Number, s.Title, s.Story)
}

// Render concatenates scenes in ascending scene number order, one block
// per scene separated by blank lines. The result re-parses to an
// equivalent scene list.
func Render(scenes []Scene) string {
	ordered := make([]Scene, len(scenes))
	copy(ordered, scenes)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Number < ordered[j].Number })

	blocks := make([]string, len(ordered))
	for i, s := range ordered {
		blocks[i] = s.Block()
	}
	return strings.Join(blocks, "\n\n")
}

// SortByNumber orders scenes in place by ascending scene number.
func SortByNumber(scenes []Scene) {
	sort.Slice(scenes, func(i, j int) bool { return scenes[i].Number < scenes[j].Number })
}
