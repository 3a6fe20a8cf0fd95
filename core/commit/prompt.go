package commit

import (
	"fmt"
	"unicode/utf8"
)

// SystemRole is the system prompt sent to the generator.
const SystemRole = "commit message generator"

// DefaultDiffLimit bounds the diff passed to the generator, in bytes.
const DefaultDiffLimit = 4000

// TruncationMarker is appended to a diff that was cut.
const TruncationMarker = "\n... [diff truncated]"

// TruncateDiff cuts diff to at most limit bytes on a rune boundary and marks
// the cut. It reports whether the diff was truncated.
func TruncateDiff(diff string, limit int) (string, bool) {
	if limit <= 0 || len(diff) <= limit {
		return diff, false
	}

	cut := limit
	for cut > 0 && !utf8.RuneStart(diff[cut]) {
		cut--
	}
	return diff[:cut] + TruncationMarker, true
}

// BuildPrompt asks for a single-line subject of type c describing diff.
func BuildPrompt(c Classification, diff string) string {
	return fmt.Sprintf(`Write a git commit message for the staged changes below.

Rules:
- Use the conventional commit type %q.
- Reply with exactly one line of the form "%s: <summary>".
- Keep the whole line under %d characters.
- Use the imperative mood. No code fences, quotes or trailing period.

Staged diff:
%s`, string(c), string(c), MaxMessageLength, diff)
}
