package coherence

import (
	"regexp"
	"strings"

	"github.com/rcliao/story-memory/internal/model"
)

// Keyword patterns. Matching is deliberately lexical: "is not alive" still
// matches alivePattern.
var (
	deadPattern      = regexp.MustCompile(`(?i)\b(dead|died|dies|killed|slain|perished|deceased)\b`)
	alivePattern     = regexp.MustCompile(`(?i)\b(alive|living|lives|survived|survives|revived)\b`)
	destroyedPattern = regexp.MustCompile(`(?i)\b(destroyed|ruined|razed|demolished|collapsed)\b`)
	intactPattern    = regexp.MustCompile(`(?i)\b(intact|standing|undamaged|rebuilt)\b`)
	isPattern        = regexp.MustCompile(`(?i)^\s*(.+?)\s+is\s+(not\s+)?(.+?)[.!]?\s*$`)
)

// opposites are keyword pattern pairs that cannot both hold.
var opposites = [][2]*regexp.Regexp{
	{deadPattern, alivePattern},
	{destroyedPattern, intactPattern},
}

func isDead(f model.Fact) bool  { return deadPattern.MatchString(f.Content) }
func isAlive(f model.Fact) bool { return alivePattern.MatchString(f.Content) }

// statement is the "<subject> is [not] <predicate>" reading of a fact.
type statement struct {
	negated   bool
	predicate string
}

func parseStatement(content string) (statement, bool) {
	m := isPattern.FindStringSubmatch(content)
	if m == nil {
		return statement{}, false
	}
	return statement{
		negated:   m[2] != "",
		predicate: strings.ToLower(strings.TrimSpace(m[3])),
	}, true
}

// contentsOppose reports whether two contents match an opposite pattern pair
// in either order, or read as "is X" and "is not X".
func contentsOppose(a, b string) bool {
	for _, pair := range opposites {
		if pair[0].MatchString(a) && pair[1].MatchString(b) {
			return true
		}
		if pair[1].MatchString(a) && pair[0].MatchString(b) {
			return true
		}
	}
	sa, okA := parseStatement(a)
	sb, okB := parseStatement(b)
	return okA && okB && sa.negated != sb.negated && sa.predicate == sb.predicate
}
