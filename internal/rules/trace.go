package rules

import (
	"fmt"
	"sort"
	"strings"
)

// Explanation describes, for one window and one rule table, which rule
// won each action category and why. Surfaced over the control socket so
// a user can ask "why is this window where it is".
type Explanation struct {
	Attrs      Attrs             `json:"attrs"`
	Candidates []CandidateTrace  `json:"candidates"`
	Resolved   Resolved          `json:"resolved"`
}

// CandidateTrace is one rule that matched, in evaluation order.
type CandidateTrace struct {
	RuleName    string   `json:"ruleName"`
	Specificity int      `json:"specificity"`
	Categories  []string `json:"categories"`
}

// Explain runs the same matching and resolution pass as Resolve, but
// additionally records which rule contributed which category so the
// decision can be rendered back to a human.
func (t *Table) Explain(a Attrs) Explanation {
	exp := Explanation{Attrs: a}
	for _, r := range t.Matching(a) {
		exp.Candidates = append(exp.Candidates, CandidateTrace{
			RuleName:    r.Name,
			Specificity: r.Matchers.Specificity(),
			Categories:  categoriesOf(r.Action),
		})
	}
	exp.Resolved = t.Resolve(a)
	return exp
}

func categoriesOf(a Action) []string {
	var cats []string
	if a.Ignore != nil {
		cats = append(cats, "ignore")
	}
	if a.Float != nil {
		cats = append(cats, "float")
	}
	if a.Tags != nil {
		cats = append(cats, "tags")
	}
	if a.Display != nil {
		cats = append(cats, "display")
	}
	if a.X != nil && a.Y != nil {
		cats = append(cats, "position")
	}
	if a.Width != nil && a.Height != nil {
		cats = append(cats, "dimensions")
	}
	sort.Strings(cats)
	return cats
}

// Summarize renders an Explanation as human-readable lines, one per
// candidate rule, in evaluation order, followed by the resolved action.
func Summarize(exp Explanation) []string {
	lines := make([]string, 0, len(exp.Candidates)+1)
	for _, c := range exp.Candidates {
		lines = append(lines, fmt.Sprintf("%s (specificity=%d) -> %s",
			c.RuleName, c.Specificity, strings.Join(c.Categories, ",")))
	}
	lines = append(lines, fmt.Sprintf("resolved: %+v", exp.Resolved))
	return lines
}
