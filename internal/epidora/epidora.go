// Package epidora is the advisory text linter. It flags phrasing
// patterns that suggest structural errors in an observation: language
// that freezes a dynamic process into a static category, or forces a
// continuum into a binary. Findings are advisory and never block
// adoption; the orchestrator turns them into an alignment facet and a
// reflective question.
package epidora

import (
	"regexp"

	"github.com/HendryAvila/episodic/internal/engine"
)

// Finding ids match the alignment facet values they map to.
const (
	FindingFixedLanguage  = 1
	FindingDiscretization = 4
)

type rule struct {
	id         int
	descriptor string
	question   string
	patterns   []*regexp.Regexp
}

func compile(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(`(?i)` + e)
	}
	return out
}

var rules = []rule{
	{
		id:         FindingFixedLanguage,
		descriptor: "fixed language: dynamic process stated as an immutable category",
		question:   "Does this definition hold true in all contexts, or is it evolving?",
		patterns: compile(
			`\b(is|are) always\b`,
			`\b(is|are) never\b`,
			`\bcannot change\b`,
			`\bmust always be\b`,
			`\bimmutable\b`,
			`\bfixed forever\b`,
		),
	},
	{
		id:         FindingDiscretization,
		descriptor: "discretization: continuous process forced into a binary",
		question:   "Are these the only two options, or is there a transition between them?",
		patterns: compile(
			`\b(either|neither)\b.+\bor\b`,
			`\bis (this|it|that) .+ or .+\?`,
			`\b(is|are) (good|bad)\b`,
			`\b(good|bad) or (good|bad)\b`,
			`\b(true|false)\b`,
			`\b(0|1)\b`,
			`\b(black|white)\b`,
		),
	},
}

// Linter is the regex-backed advisory linter. The zero value is ready
// to use.
type Linter struct{}

// New returns a ready linter.
func New() *Linter {
	return &Linter{}
}

// Lint scans text against every rule and reports at most one finding
// per rule, no matter how many of its patterns match.
func (l *Linter) Lint(text string) []engine.Finding {
	var findings []engine.Finding
	for _, r := range rules {
		for _, p := range r.patterns {
			if p.MatchString(text) {
				findings = append(findings, engine.Finding{
					ID:         r.id,
					Descriptor: r.descriptor,
					Suggestion: r.question,
				})
				break
			}
		}
	}
	return findings
}
