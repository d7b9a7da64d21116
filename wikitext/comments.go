package wikitext

import (
	"github.com/dlclark/regexp2"
	"golang.org/x/net/html"
)

var (
	// Wikitext entities always end in a semicolon.
	entityRe = regexp2.MustCompile(`&[#0-9a-zA-Z]+;`, regexp2.None)
	// "-->" and its escaped forms inside a comment body.
	commentCloseRe = regexp2.MustCompile(`--(&(amp;)*gt;|>)`, regexp2.None)
)

// DecodeEntities decodes semicolon-terminated character references.
func DecodeEntities(text string) string {
	out, err := entityRe.ReplaceFunc(text, func(m regexp2.Match) string {
		return html.UnescapeString(m.String())
	}, -1, -1)
	if err != nil {
		return text
	}
	return out
}

// DecodeComment returns the wikitext form of an HTML comment body: entities
// are decoded and the result re-encoded so that "-->" never appears.
func DecodeComment(comment string) string {
	trueValue := DecodeEntities(comment)
	out, err := commentCloseRe.ReplaceFunc(trueValue, func(m regexp2.Match) string {
		s := m.String()
		if s == "-->" {
			return "--&gt;"
		}
		return "--&amp;" + s[3:]
	}, -1, -1)
	if err != nil {
		return trueValue
	}
	return out
}

// DecodedCommentLength is the byte width of a comment in wikitext,
// including the "<!--" and "-->" delimiters.
func DecodedCommentLength(comment string) int {
	return len(DecodeComment(comment)) + 7
}
