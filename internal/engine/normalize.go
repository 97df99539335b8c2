package engine

import (
	"strings"
	"unicode"

	"github.com/zeebo/xxh3"
)

// NormalizeBody canonicalizes a code body for change detection. The rule,
// applied identically to both sides of every comparison:
//
//  1. line comments (// …) and block comments (/* … */) are removed,
//     except inside string or template literals;
//  2. every run of whitespace collapses to a single space;
//  3. leading and trailing whitespace is trimmed.
//
// Two bodies differing only in comments or formatting therefore normalize to
// the same string and classify as MATCHING.
func NormalizeBody(body string) string {
	var sb strings.Builder
	sb.Grow(len(body))

	const (
		code = iota
		lineComment
		blockComment
		inString
	)
	state := code
	var quote byte
	pendingSpace := false
	runes := []byte(body)

	writeByte := func(b byte) {
		if pendingSpace && sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		pendingSpace = false
		sb.WriteByte(b)
	}

	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch state {
		case code:
			switch {
			case c == '/' && i+1 < len(runes) && runes[i+1] == '/':
				state = lineComment
				i++
			case c == '/' && i+1 < len(runes) && runes[i+1] == '*':
				state = blockComment
				i++
			case c == '"' || c == '\'' || c == '`':
				state = inString
				quote = c
				writeByte(c)
			case unicode.IsSpace(rune(c)):
				pendingSpace = true
			default:
				writeByte(c)
			}
		case lineComment:
			if c == '\n' {
				state = code
				pendingSpace = true
			}
		case blockComment:
			if c == '*' && i+1 < len(runes) && runes[i+1] == '/' {
				state = code
				pendingSpace = true
				i++
			}
		case inString:
			if c == '\\' && i+1 < len(runes) {
				writeByte(c)
				i++
				writeByte(runes[i])
				continue
			}
			writeByte(c)
			if c == quote {
				state = code
			}
		}
	}
	return sb.String()
}

// normalizedHash is the comparison key for body equality: the xxh3 hash of
// the normalized body.
func normalizedHash(body string) uint64 {
	return xxh3.HashString(NormalizeBody(body))
}
