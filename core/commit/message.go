package commit

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"
)

// MaxMessageLength is the longest commit subject the reactor produces.
const MaxMessageLength = 72

// Ellipsis marks a truncated message.
const Ellipsis = "..."

var (
	// ErrEmptyMessage indicates a message with no body.
	ErrEmptyMessage = errors.New("commit message is empty")

	// ErrMessageTooLong indicates a message over MaxMessageLength.
	ErrMessageTooLong = errors.New("commit message too long")

	// ErrMissingPrefix indicates a message without its type prefix.
	ErrMissingPrefix = errors.New("commit message missing type prefix")
)

// Message is a conventional commit subject.
type Message struct {
	Type Classification
	Body string
}

// String renders the message as "type: body".
func (m Message) String() string {
	return string(m.Type) + ": " + m.Body
}

// typePrefixRegex matches a leading conventional-commit prefix, with
// optional scope and breaking marker, e.g. "feat(api)!: ".
var typePrefixRegex = regexp.MustCompile(`(?i)^(feat|fix|docs|style|refactor|test|tests|chore|perf|build|ci|revert)(\([^)]*\))?!?\s*:\s*`)

// FallbackMessage is the deterministic message used when generation fails.
func FallbackMessage(c Classification, now time.Time) string {
	return fmt.Sprintf("%s: Update project files (%s)", c, now.Format("2006-01-02"))
}

// SanitizeMessage turns a raw generated message into a commit subject:
// control bytes removed, code fences and backticks unwrapped, any type prefix
// replaced by c, and the result truncated to MaxMessageLength at a word
// boundary. Returns "" when nothing usable remains.
func SanitizeMessage(c Classification, raw string) string {
	text := stripControl(raw)
	text = unwrapFences(text)
	line := firstLine(text)

	line = unwrapDelimiters(strings.TrimSpace(line))
	line = typePrefixRegex.ReplaceAllString(line, "")
	line = unwrapDelimiters(strings.TrimSpace(line))
	if line == "" {
		return ""
	}

	return truncateAtWord(Message{Type: c, Body: line}.String(), MaxMessageLength)
}

// ValidateMessage checks a sanitized message for type c.
func ValidateMessage(c Classification, msg string) error {
	prefix := string(c) + ": "
	if strings.TrimSpace(msg) == "" {
		return ErrEmptyMessage
	}
	if len([]rune(msg)) > MaxMessageLength {
		return fmt.Errorf("%w: %d > %d", ErrMessageTooLong, len([]rune(msg)), MaxMessageLength)
	}
	if !strings.HasPrefix(msg, prefix) {
		return ErrMissingPrefix
	}
	if strings.TrimSpace(strings.TrimPrefix(msg, prefix)) == "" {
		return ErrEmptyMessage
	}
	return nil
}

// stripControl removes control characters other than newlines.
func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' {
			return r
		}
		if r == '\t' {
			return ' '
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

// unwrapFences drops markdown code-fence lines, keeping their contents.
func unwrapFences(s string) string {
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// firstLine returns the first non-blank line, trimmed.
func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// truncateAtWord cuts msg to at most limit runes, preferring the last space
// before the cut, and appends Ellipsis.
func truncateAtWord(msg string, limit int) string {
	runes := []rune(msg)
	if len(runes) <= limit {
		return msg
	}

	cut := string(runes[:limit-len(Ellipsis)])
	colon := strings.Index(cut, ": ")
	if i := strings.LastIndex(cut, " "); i > colon+1 {
		cut = cut[:i]
	}
	cut = strings.TrimRight(cut, " ,.;:-")
	return cut + Ellipsis
}

// unwrapDelimiters removes backticks or quotes that wrap the whole line. A
// delimiter is stripped only when it opens and closes the line and appears
// nowhere else, so inline code and quoted words survive.
func unwrapDelimiters(line string) string {
	for len(line) > 1 {
		d := line[0]
		if d != '`' && d != '"' && d != '\'' {
			break
		}
		if line[len(line)-1] != d || strings.Count(line, string(d)) != 2 {
			break
		}
		line = strings.TrimSpace(line[1 : len(line)-1])
	}
	return line
}
