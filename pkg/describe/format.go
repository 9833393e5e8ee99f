package describe

import (
	"strings"

	jiberrors "thoreinstein.com/jib/pkg/errors"
)

// MinDescriptionLines is the minimum number of lines a change description
// must have before it can drive a pull request: title, separator, body.
const MinDescriptionLines = 3

// ParseDescription splits a change description into a PR title and body.
// The title is the first line. The body is everything from the third line
// on. The second line is discarded unconditionally, even when it is not
// blank, so descriptions written before jib follow the same convention as
// freshly authored ones.
func ParseDescription(text string) (title, body string) {
	lines := splitLines(text)
	if len(lines) == 0 {
		return "", ""
	}

	title = lines[0]
	if len(lines) > 2 {
		body = strings.Join(lines[2:], "\n")
	}
	return title, body
}

// SerializeDescription is the inverse of ParseDescription for freshly
// authored text: title, blank separator line, body.
func SerializeDescription(title, body string) string {
	return title + "\n\n" + body
}

// ValidateDescription rejects descriptions too short to produce a usable
// pull request. It must pass before any remote mutation is attempted; a
// short description is an error, never silently padded. Trailing newlines
// do not count as lines.
func ValidateDescription(text string) error {
	lines := splitLines(strings.TrimRight(text, "\r\n"))
	if len(lines) < MinDescriptionLines {
		return jiberrors.NewPreconditionError("description",
			"description must have at least 3 lines (title, blank line, body); run 'jib describe' to draft one")
	}
	return nil
}

// splitLines splits on newlines, tolerating CRLF line endings.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.Split(text, "\n")
}
