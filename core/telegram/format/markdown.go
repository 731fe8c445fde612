package format

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// MarkdownV1 denotes Telegram markdown version 1.
	MarkdownV1 = 1
	// MarkdownV2 denotes Telegram markdown version 2.
	MarkdownV2 = 2
)

const (
	mdV1Specials     = "_*`["
	mdV2Specials     = "\\_*[]()~`>#+-=|{}.!"
	mdV2CodeSpecials = "\\`"
	mdV2LinkSpecials = "\\)"
)

var (
	mdV1Re     = classRegexp(mdV1Specials)
	mdV2Re     = classRegexp(mdV2Specials)
	mdV2CodeRe = classRegexp(mdV2CodeSpecials)
	mdV2LinkRe = classRegexp(mdV2LinkSpecials)
)

// classRegexp matches any single rune of chars, each escaped so that no
// pair of them can form a range inside the class.
func classRegexp(chars string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString("([")
	for _, r := range chars {
		b.WriteByte('\\')
		b.WriteRune(r)
	}
	b.WriteString("])")
	return regexp.MustCompile(b.String())
}

// EscapeMarkdown escapes special characters for MarkdownV1 or V2.
// For V2, entityType "pre" or "code" and "text_link" select the reduced
// escaping Telegram applies inside those entities.
func EscapeMarkdown(text string, version int, entityType string) (string, error) {
	switch version {
	case MarkdownV1:
		return mdV1Re.ReplaceAllString(text, `\${1}`), nil
	case MarkdownV2:
		re := mdV2Re
		switch entityType {
		case "pre", "code":
			re = mdV2CodeRe
		case "text_link", "url":
			re = mdV2LinkRe
		}
		return re.ReplaceAllString(text, `\${1}`), nil
	}
	return "", fmt.Errorf("unsupported markdown version: %d", version)
}

// MDV2 escapes plain text for a MarkdownV2 message body.
func MDV2(text string) string {
	return mdV2Re.ReplaceAllString(text, `\${1}`)
}
