package model

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Namespaces for name-based ids. Fixed so ids are stable across runs.
var (
	factNamespace      = uuid.NewSHA1(uuid.NameSpaceURL, []byte("story-memory/fact"))
	violationNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("story-memory/violation"))
)

// FactID derives a deterministic id from the fact's identifying fields.
func FactID(f Fact) string {
	var at string
	if f.CreatedAt != nil {
		at = f.CreatedAt.UTC().Format(time.RFC3339Nano)
	}
	name := strings.Join([]string{string(f.Kind), f.Content, f.SourceID, f.TimeContext, at}, "\x1f")
	return uuid.NewSHA1(factNamespace, []byte(name)).String()
}

// ViolationID derives a deterministic id for a violation over the given facts.
func ViolationID(kind ViolationKind, description string, factIDs []string) string {
	ids := append([]string(nil), factIDs...)
	sort.Strings(ids)
	name := string(kind) + "\x1f" + description + "\x1f" + strings.Join(ids, ",")
	return uuid.NewSHA1(violationNamespace, []byte(name)).String()
}
