package usecase

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// denseCodeSuffix marks article codes packed without separators, e.g. "123EA456EA"
const denseCodeSuffix = "EA"

// longInputThreshold is the length in characters above which space separated input is split on whitespace
const longInputThreshold = 50

// Compiled patterns for term parsing
var (
	// Matches a digit run followed by the dense-code suffix
	denseCodePattern = regexp.MustCompile(`(\d+` + denseCodeSuffix + `)`)

	// Matches a dense code standing as a whole word
	denseCodeWordPattern = regexp.MustCompile(`\b\d+` + denseCodeSuffix + `\b`)

	// Comma or newline separators
	separatorPattern = regexp.MustCompile(`[,\n]`)
)

// ParsedTerms is the outcome of splitting raw search input
type ParsedTerms struct {
	Terms              []string
	DuplicateCount     int
	ContainsDenseCodes bool
	Duplicates         []string
}

// ParseTerms splits raw input into an ordered list of unique search terms.
// The first matching rule wins: comma/newline separators, whole-word dense
// codes, whitespace for long inputs, otherwise the input is a single term.
func ParseTerms(input string) ParsedTerms {
	var result ParsedTerms

	if strings.Contains(input, denseCodeSuffix) {
		input = denseCodePattern.ReplaceAllString(input, "$1 ")
		result.ContainsDenseCodes = true
	}

	var candidates []string
	switch {
	case strings.ContainsAny(input, ",\n"):
		candidates = separatorPattern.Split(input, -1)
	case denseCodeWordPattern.MatchString(input):
		candidates = denseCodeWordPattern.FindAllString(input, -1)
		result.ContainsDenseCodes = true
	case utf8.RuneCountInString(input) > longInputThreshold && strings.Contains(input, " "):
		candidates = strings.Fields(input)
	default:
		candidates = []string{input}
	}

	terms := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c = strings.TrimSpace(c); c != "" {
			terms = append(terms, c)
		}
	}

	seen := make(map[string]struct{}, len(terms))
	result.Terms = make([]string, 0, len(terms))
	result.Duplicates = []string{}
	for _, term := range terms {
		if _, dup := seen[term]; dup {
			result.Duplicates = append(result.Duplicates, term)
			continue
		}
		seen[term] = struct{}{}
		result.Terms = append(result.Terms, term)
	}
	result.DuplicateCount = len(terms) - len(result.Terms)

	return result
}
