package rules

import "sort"

// Action is the action a matched rule contributes. Each rule may set any
// subset of these fields; a nil field means "this rule is silent on that
// category" rather than "false"/"zero". Float=false represents the
// explicit "no-float" action, distinct from Float being unset.
type Action struct {
	Ignore  *bool
	Float   *bool
	Tags    *uint8
	Display *string // display id or name to move the window to
	X, Y    *int
	Width   *int
	Height  *int
}

// Rule is one entry of the flat, specificity-sorted rule table.
type Rule struct {
	Name     string
	Matchers Matchers
	Action   Action
}

// Table holds rules sorted by descending matcher specificity, with
// insertion order as the stable tiebreaker (sort.SliceStable preserves
// this automatically).
type Table struct {
	rules []Rule
}

// NewTable builds a Table from rules in configuration order and sorts
// them by specificity.
func NewTable(rules []Rule) *Table {
	t := &Table{rules: append([]Rule(nil), rules...)}
	t.resort()
	return t
}

// Add appends a rule and re-sorts.
func (t *Table) Add(r Rule) {
	t.rules = append(t.rules, r)
	t.resort()
}

// Remove deletes the first rule with the given name, reporting whether
// one was found.
func (t *Table) Remove(name string) bool {
	for i, r := range t.rules {
		if r.Name == name {
			t.rules = append(t.rules[:i], t.rules[i+1:]...)
			return true
		}
	}
	return false
}

func (t *Table) resort() {
	sort.SliceStable(t.rules, func(i, j int) bool {
		return t.rules[i].Matchers.Specificity() > t.rules[j].Matchers.Specificity()
	})
}

// Rules returns the rule table in evaluation order.
func (t *Table) Rules() []Rule {
	return t.rules
}

// Matching returns every rule whose matchers all match the given window
// attributes, in evaluation order (highest specificity first, ties
// broken by insertion order).
func (t *Table) Matching(a Attrs) []Rule {
	out := make([]Rule, 0)
	for _, r := range t.rules {
		if r.Matchers.Matches(a) {
			out = append(out, r)
		}
	}
	return out
}

// Resolved is the first-match-per-category result of applying every
// matching rule to one window.
type Resolved struct {
	Ignore    bool
	IgnoreSet bool

	Float    bool
	FloatSet bool

	Tags    uint8
	TagsSet bool

	Display    string
	DisplaySet bool

	X, Y        int
	PositionSet bool

	Width, Height int
	DimensionsSet bool
}

// HasMatchingNonIgnoreRule reports whether any matching rule speaks on a
// category other than Ignore. Used to distinguish "no rule cares about
// this window" from "a rule explicitly wants it ignored".
func (t *Table) HasMatchingNonIgnoreRule(a Attrs) bool {
	for _, r := range t.Matching(a) {
		act := r.Action
		if act.Float != nil || act.Tags != nil || act.Display != nil ||
			(act.X != nil && act.Y != nil) || (act.Width != nil && act.Height != nil) {
			return true
		}
	}
	return false
}

// Resolve walks matching rules in specificity order and, for each action
// category, keeps the first rule's value: the highest-specificity
// matching rule that speaks on a category wins that category. This also
// gives "no-float" the override-a-less-specific-"float"-behaviour the
// rules engine requires, since Float and its FloatSet flag are set
// together from whichever rule is encountered first.
func (t *Table) Resolve(a Attrs) Resolved {
	var res Resolved
	for _, r := range t.Matching(a) {
		act := r.Action
		if act.Ignore != nil && !res.IgnoreSet {
			res.Ignore, res.IgnoreSet = *act.Ignore, true
		}
		if act.Float != nil && !res.FloatSet {
			res.Float, res.FloatSet = *act.Float, true
		}
		if act.Tags != nil && !res.TagsSet {
			res.Tags, res.TagsSet = *act.Tags, true
		}
		if act.Display != nil && !res.DisplaySet {
			res.Display, res.DisplaySet = *act.Display, true
		}
		if act.X != nil && act.Y != nil && !res.PositionSet {
			res.X, res.Y, res.PositionSet = *act.X, *act.Y, true
		}
		if act.Width != nil && act.Height != nil && !res.DimensionsSet {
			res.Width, res.Height, res.DimensionsSet = *act.Width, *act.Height, true
		}
	}
	return res
}
