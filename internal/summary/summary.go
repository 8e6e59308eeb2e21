// Package summary aggregates facts into human-readable summaries at
// increasing narrative scale: chapter, arc and world.
//
// Every ordering used here is total (ties end in an id or plain string
// comparison), so summaries are identical for any permutation of the input.
package summary

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"

	"github.com/rcliao/story-memory/internal/model"
)

// Separators and limits.
const (
	ChapterSeparator = " | "
	ArcSeparator     = " → "
	Ellipsis         = "..."

	MaxChapterFacts  = 5
	MaxChapterLength = 300
	MaxArcPoints     = 10
	MaxArcLength     = 500
	MaxMajorEvents   = 5
)

// Sentinels returned for empty input.
const (
	NoEvents            = "[No events]"
	NoSignificantEvents = "[No significant events]"
	NoChapters          = "[No chapters]"
	EmptyWorldHistory   = "[Empty world history]"
)

// kindPriority ranks fact kinds, lower first.
var kindPriority = map[model.FactKind]int{
	model.KindCharacterState: 0,
	model.KindLocationState:  1,
	model.KindEvent:          2,
	model.KindRelationship:   3,
	model.KindKnowledge:      4,
}

func priority(k model.FactKind) int {
	if p, ok := kindPriority[k]; ok {
		return p
	}
	return len(kindPriority)
}

// FilterImportantFacts returns at most max facts ordered by confidence
// (descending), kind priority, creation time and id. Blank facts are dropped.
func FilterImportantFacts(facts []model.Fact, max int) []model.Fact {
	if max <= 0 {
		return []model.Fact{}
	}
	candidates := make([]model.Fact, 0, len(facts))
	for _, f := range facts {
		if strings.TrimSpace(f.Content) == "" {
			continue
		}
		candidates = append(candidates, f)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if pa, pb := priority(a.Kind), priority(b.Kind); pa != pb {
			return pa < pb
		}
		if ta, tb := a.CreatedTime(), b.CreatedTime(); !ta.Equal(tb) {
			return ta.Before(tb)
		}
		if a.ID != b.ID {
			return a.ID < b.ID
		}
		return a.Content < b.Content
	})

	if len(candidates) > max {
		candidates = candidates[:max]
	}
	return candidates
}

// SummarizeChapter joins the most important facts in creation order.
func SummarizeChapter(facts []model.Fact) string {
	if len(facts) == 0 {
		return NoEvents
	}
	important := FilterImportantFacts(facts, MaxChapterFacts)
	if len(important) == 0 {
		return NoSignificantEvents
	}

	sort.SliceStable(important, func(i, j int) bool {
		a, b := important[i], important[j]
		if ta, tb := a.CreatedTime(), b.CreatedTime(); !ta.Equal(tb) {
			return ta.Before(tb)
		}
		if a.ID != b.ID {
			return a.ID < b.ID
		}
		return a.Content < b.Content
	})

	parts := make([]string, len(important))
	for i, f := range important {
		parts[i] = strings.TrimSpace(f.Content)
	}
	return Truncate(strings.Join(parts, ChapterSeparator), MaxChapterLength)
}

// SummarizeArc merges the key points of chapter summaries.
func SummarizeArc(chapterSummaries []string) string {
	if len(chapterSummaries) == 0 {
		return NoChapters
	}
	var points []string
	for _, s := range chapterSummaries {
		points = append(points, ExtractKeyPoints(s)...)
	}
	points = dedupeSorted(points)
	if len(points) == 0 {
		return NoSignificantEvents
	}
	if len(points) > MaxArcPoints {
		points = points[:MaxArcPoints]
	}
	return Truncate(strings.Join(points, ArcSeparator), MaxArcLength)
}

// SummarizeWorld renders a numbered section per arc followed by the major
// events drawn from all arcs.
func SummarizeWorld(arcSummaries []string) string {
	if len(arcSummaries) == 0 {
		return EmptyWorldHistory
	}

	var b strings.Builder
	var points []string
	for i, arc := range arcSummaries {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "## Arc %d\n%s\n", i+1, strings.TrimSpace(arc))
		points = append(points, ExtractKeyPoints(arc)...)
	}

	points = dedupeSorted(points)
	if len(points) > MaxMajorEvents {
		points = points[:MaxMajorEvents]
	}
	if len(points) > 0 {
		b.WriteString("\n## Major Events\n")
		for _, p := range points {
			fmt.Fprintf(&b, "- %s\n", p)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// ExtractKeyPoints splits a summary on the arc separator when present, else
// on the chapter separator. Points are trimmed, deduplicated ignoring case
// and sorted. Sentinel summaries yield no points.
func ExtractKeyPoints(summary string) []string {
	sep := ChapterSeparator
	if strings.Contains(summary, ArcSeparator) {
		sep = ArcSeparator
	}
	var points []string
	for _, p := range strings.Split(summary, sep) {
		p = strings.TrimSpace(p)
		if p == "" || isSentinel(p) {
			continue
		}
		points = append(points, p)
	}
	return dedupeSorted(points)
}

// Truncate shortens s to at most max characters, ending in an ellipsis when
// anything was cut.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	if max <= len(Ellipsis) {
		return string(runes[:max])
	}
	return string(runes[:max-len(Ellipsis)]) + Ellipsis
}

// dedupeSorted sorts points and keeps the first of each case-folded value.
// Sorting first makes the kept spelling independent of input order.
func dedupeSorted(points []string) []string {
	sorted := append([]string(nil), points...)
	sort.Strings(sorted)
	fold := cases.Fold()
	seen := make(map[string]bool, len(sorted))
	out := make([]string, 0, len(sorted))
	for _, p := range sorted {
		key := fold.String(p)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	return out
}

func isSentinel(p string) bool {
	switch p {
	case NoEvents, NoSignificantEvents, NoChapters, EmptyWorldHistory:
		return true
	}
	return false
}
