package views

import (
	"strings"
	"unicode"
)

// sanitizeForTerminal prepares text from other users for a tview cell. It
// drops runes tcell renders badly (skin tone modifiers, zero width joiners,
// variation selectors, so 👍🏻 shows as 👍), bidi controls that could
// reorder the line, and control characters other than newline and tab.
func sanitizeForTerminal(s string) string {
	return strings.Map(func(r rune) rune {
		if dropRune(r) {
			return -1
		}
		return r
	}, s)
}

// singleLine sanitizes s and folds line breaks into spaces, for table cells
// and titles.
func singleLine(s string) string {
	return strings.Join(strings.Fields(sanitizeForTerminal(s)), " ")
}

func dropRune(r rune) bool {
	switch {
	case r == '\n' || r == '\t':
		return false
	case r >= 0x1F3FB && r <= 0x1F3FF, // skin tone modifiers
		r == 0x200D,                  // zero width joiner
		r >= 0xFE00 && r <= 0xFE0F,   // variation selectors
		r >= 0xE0100 && r <= 0xE01EF: // variation selectors supplement
		return true
	case r >= 0x202A && r <= 0x202E, r >= 0x2066 && r <= 0x2069: // bidi embeddings and isolates
		return true
	default:
		return unicode.IsControl(r)
	}
}
