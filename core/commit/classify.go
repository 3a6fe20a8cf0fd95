// Package commit stages repository changes, derives a conventional-commit
// type from the staged diff, obtains a short message from a generator with a
// deterministic fallback, and commits.
package commit

import (
	"strings"
	"unicode"
)

// Classification is a conventional-commit type.
type Classification string

const (
	Feat     Classification = "feat"
	Fix      Classification = "fix"
	Docs     Classification = "docs"
	Style    Classification = "style"
	Refactor Classification = "refactor"
	Test     Classification = "test"
	Chore    Classification = "chore"
)

// Classifications lists every type, in no particular order.
var Classifications = []Classification{Feat, Fix, Docs, Style, Refactor, Test, Chore}

// IsValid reports whether c is a known type.
func (c Classification) IsValid() bool {
	for _, known := range Classifications {
		if c == known {
			return true
		}
	}
	return false
}

// classificationRules holds the keyword sets in precedence order: the first
// rule with a matching token wins. Chore is the default.
var classificationRules = []struct {
	class    Classification
	keywords []string
}{
	{Test, []string{"test", "tests", "testing", "spec", "specs"}},
	{Fix, []string{"fix", "fixes", "fixed", "bug", "bugfix", "hotfix", "patch"}},
	{Docs, []string{"docs", "doc", "documentation", "readme", "changelog"}},
	{Style, []string{"style", "format", "formatting", "lint", "whitespace"}},
	{Refactor, []string{"refactor", "refactoring", "restructure", "rename", "cleanup"}},
	{Feat, []string{"feat", "feature", "features", "implement", "implements", "introduce"}},
}

// Classify derives the commit type from diff text. Only added and removed
// content lines are considered; file headers and hunk markers are skipped so
// file names of the tracked documents do not decide the type. Matching is
// token based and case-insensitive.
func Classify(diff string) Classification {
	tokens := diffTokens(diff)
	for _, rule := range classificationRules {
		for _, kw := range rule.keywords {
			if tokens[kw] {
				return rule.class
			}
		}
	}
	return Chore
}

// diffTokens collects lowercase alphanumeric tokens of changed lines. Text
// without any diff structure is tokenized whole.
func diffTokens(diff string) map[string]bool {
	lines := strings.Split(diff, "\n")
	structured := hasDiffStructure(lines)

	tokens := make(map[string]bool)
	for _, line := range lines {
		if structured {
			if !isChangedLine(line) {
				continue
			}
			line = line[1:]
		}
		for _, tok := range strings.FieldsFunc(strings.ToLower(line), isTokenSeparator) {
			tokens[tok] = true
		}
	}
	return tokens
}

// hasDiffStructure reports whether any line looks like unified diff syntax.
func hasDiffStructure(lines []string) bool {
	for _, line := range lines {
		if strings.HasPrefix(line, "diff --git") || strings.HasPrefix(line, "@@") ||
			strings.HasPrefix(line, "+++") || isChangedLine(line) {
			return true
		}
	}
	return false
}

// isChangedLine reports whether a diff line is an added or removed content line.
func isChangedLine(line string) bool {
	if strings.HasPrefix(line, "+++") || strings.HasPrefix(line, "---") {
		return false
	}
	return strings.HasPrefix(line, "+") || strings.HasPrefix(line, "-")
}

func isTokenSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
