// Package oracle decides whether an event's markets are mutually exclusive
// and exhaustive. A cheap structural pre-filter answers the obvious cases;
// everything else goes to an external natural-language classifier whose
// verdicts are cached in memory and persisted to an append-only ledger so
// restarts do not re-spend classification cost.
package oracle

import (
	"regexp"
	"strings"
)

// exclusivePatterns match event titles whose structure implies a single
// winner without needing the classifier.
var exclusivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^who will win\b`),
	regexp.MustCompile(`(?i)^which .* will win\b`),
	regexp.MustCompile(`(?i)\bwinner\b.*\?$`),
	regexp.MustCompile(`(?i)^what will .* be\b`),
	regexp.MustCompile(`(?i)\bnext (president|prime minister|pope|mayor|governor|chancellor)\b`),
	regexp.MustCompile(`(?i)\b(nominee|champion)\b`),
}

// exclusiveTags are event tags the exchange applies to single-winner
// competitions.
var exclusiveTags = map[string]bool{
	"elections":    true,
	"primaries":    true,
	"awards":       true,
	"tournaments":  true,
	"single-elim":  true,
	"winner-take":  true,
}

// nonExclusiveHints appear in titles of multi-independent-outcome events
// ("will X AND Y happen"-style groupings) where several legs can resolve yes.
var nonExclusiveHints = []string{
	"how many",
	"which of these",
	"any of",
	"at least",
}

// LooksObviouslyExclusive reports whether an event's title and tags match
// the structural patterns of a mutually exclusive, exhaustive market set.
// A false result means "not obvious", not "not exclusive"; the caller
// should fall through to the classifier.
func LooksObviouslyExclusive(title string, tags []string) bool {
	lower := strings.ToLower(title)
	for _, hint := range nonExclusiveHints {
		if strings.Contains(lower, hint) {
			return false
		}
	}

	for _, tag := range tags {
		if exclusiveTags[strings.ToLower(strings.TrimSpace(tag))] {
			return true
		}
	}
	for _, re := range exclusivePatterns {
		if re.MatchString(title) {
			return true
		}
	}
	return false
}
