package voice

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	markupFence    = regexp.MustCompile("(?s)```.*?```")
	markupInline   = regexp.MustCompile("`[^`]*`")
	markupLink     = regexp.MustCompile(`\[(.*?)\]\((.*?)\)`)
	markupURL      = regexp.MustCompile(`https?://\S+`)
	markupReplacer = strings.NewReplacer("*", " ", "_", " ", "#", " ", "|", " ", "~", " ", "<", " ", ">", " ", "\\", " ")
)

// Speakable strips markdown, links and emoji that language models sometimes
// emit so the voice does not read them aloud. Whitespace is collapsed.
func Speakable(raw string) string {
	raw = markupFence.ReplaceAllString(raw, " ")
	raw = markupInline.ReplaceAllString(raw, " ")
	raw = markupLink.ReplaceAllString(raw, "$1")
	raw = markupURL.ReplaceAllString(raw, " ")
	raw = markupReplacer.Replace(raw)

	var b strings.Builder
	b.Grow(len(raw))
	space := true
	for _, r := range raw {
		switch {
		case r == '\u200d' || r == '\ufe0f' || r == '\u20e3':
		case unicode.IsSpace(r):
			if !space {
				b.WriteByte(' ')
				space = true
			}
		case unicode.IsControl(r), unicode.In(r, unicode.So, unicode.Sm, unicode.Sk):
		default:
			b.WriteRune(r)
			space = false
		}
	}
	return strings.TrimSpace(b.String())
}
