package jsonutils

import (
	"regexp"
	"strings"
)

var (
	reFence  = regexp.MustCompile("(?s)```(?:json)?(.*?)```")
	reObject = regexp.MustCompile(`(?s)\{.*\}`)
)

// ExtractJSON pulls a JSON object out of LLM output.
//
// Priority:
// 1. Triple-backtick fenced ```json ... ```
// 2. Outermost {...} object
//
// Only whitespace and invisible characters are normalized. Malformed JSON is
// returned as-is so the decoder rejects it.
func ExtractJSON(input string) string {
	// Remove BOMs and zero-width characters
	input = strings.TrimSpace(strings.Map(func(r rune) rune {
		if r == '\uFEFF' || r == '\u200B' || r == '\u200C' || r == '\u200D' {
			return -1
		}
		return r
	}, input))

	if match := reFence.FindStringSubmatch(input); len(match) > 1 {
		input = strings.TrimSpace(match[1])
	}
	if match := reObject.FindString(input); match != "" {
		input = match
	}

	// CRLF and non-breaking spaces are the only structural whitespace fixes.
	input = strings.ReplaceAll(input, "\r\n", "\n")
	input = strings.ReplaceAll(input, "\u00a0", " ")

	return strings.TrimSpace(input)
}
