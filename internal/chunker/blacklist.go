package chunker

import (
	"regexp"
	"strings"
	"unicode"
)

// sqlCypherKeywordRe, propertySyntaxRe and dollarQuoteRe are the defensive
// code-stripping signals: a line
// matching any of these is treated as leaked code rather than prose.
var (
	sqlCypherKeywordRe = regexp.MustCompile(`(?i)\b(SELECT|INSERT|UPDATE|DELETE|MATCH|MERGE|CREATE|RETURN|WHERE)\s*\(`)
	propertySyntaxRe   = regexp.MustCompile(`\{\s*\w+\s*:\s*'[^']*'\s*\}`)
	dollarQuoteRe      = regexp.MustCompile(`\$\$.*\$\$`)
)

// codeLinePredicates are composable line predicates; a line matching any
// one of them is stripped from a translated code-block description.
var codeLinePredicates = []func(line string) bool{
	func(line string) bool { return sqlCypherKeywordRe.MatchString(line) },
	func(line string) bool { return propertySyntaxRe.MatchString(line) },
	func(line string) bool { return strings.HasSuffix(strings.TrimRight(line, " \t"), ";") },
	func(line string) bool {
		trimmed := strings.TrimSpace(line)
		return strings.HasPrefix(trimmed, "(") || strings.HasPrefix(trimmed, "{") ||
			strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, ";")
	},
	func(line string) bool { return strings.Contains(line, "->") || strings.Contains(line, "=>") },
	func(line string) bool { return dollarQuoteRe.MatchString(line) },
	tooManySpecialCharsPerWord,
}

// tooManySpecialCharsPerWord flags lines whose non-alphanumeric,
// non-whitespace character density is high enough to look like code rather
// than prose.
func tooManySpecialCharsPerWord(line string) bool {
	words := strings.Fields(line)
	if len(words) == 0 {
		return false
	}
	var special int
	for _, r := range line {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsSpace(r) {
			special++
		}
	}
	return float64(special)/float64(len(words)) > 2.0
}

// StripCode removes any line matching a code-line predicate from text,
// the defensive pass applied to LLM-translated code-block descriptions and
// again when a node's text is folded into a final chunk.
func StripCode(text string) string {
	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if isCodeLine(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

func isCodeLine(line string) bool {
	for _, predicate := range codeLinePredicates {
		if predicate(line) {
			return true
		}
	}
	return false
}
