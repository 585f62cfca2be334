package script

import (
	"regexp"
	"strings"
)

// CharacterPlaceholder is the stable identity token used in generated
// scene text in place of a concrete character name.
const CharacterPlaceholder = "{character}"

// ProductPlaceholder is the identity token used in commercial scenes.
const ProductPlaceholder = "{product}"

var (
	possessivePattern = regexp.MustCompile(`(?i)\b(the )?character['\x{2019}]s\b`)
	characterPattern  = regexp.MustCompile(`(?i)\b(the )?character\b`)
)

// EnforcePlaceholder rewrites literal references to "the character"
// back into the {character} placeholder so stored scene text stays
// substitutable. Existing placeholders are left intact, and possessive
// forms are handled before the bare form so the apostrophe survives.
func EnforcePlaceholder(text string) string {
	const mark = "\x00ph\x00"
	text = strings.ReplaceAll(text, CharacterPlaceholder, mark)
	text = possessivePattern.ReplaceAllString(text, mark+"'s")
	text = characterPattern.ReplaceAllString(text, mark)
	return strings.ReplaceAll(text, mark, CharacterPlaceholder)
}

// ApplyTriggerWord substitutes the identity placeholders with a
// concrete trigger word. Empty trigger words leave the text unchanged.
func ApplyTriggerWord(text, triggerWord string) string {
	if triggerWord == "" {
		return text
	}
	text = strings.ReplaceAll(text, CharacterPlaceholder, triggerWord)
	text = strings.ReplaceAll(text, ProductPlaceholder, triggerWord)
	return text
}
