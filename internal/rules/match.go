// Package rules implements window-matching and the rule table that maps
// matched windows to tag/display/floating/ignore actions. Matching
// operates on plain values (Attrs) rather than on *state.Window so the
// state package can depend on rules without creating an import cycle.
package rules

import (
	"strings"

	"github.com/tilewm/tilewm/internal/platform"
)

// Attrs is the full set of window attributes a rule's matchers can test
// against.
type Attrs struct {
	AppName string
	AppID   string
	Title   string
	AXID    string // "" means absent
	Subrole string // "" means absent

	WindowLevel int

	CloseButton      platform.ButtonState
	FullscreenButton platform.ButtonState
	MinimizeButton   platform.ButtonState
	ZoomButton       platform.ButtonState
}

// GlobMatcher matches a plain string attribute (app name, app id, title)
// with a restricted glob dialect: "*" matches any run of characters, and
// there is no absence semantics — an empty pattern matches only an empty
// value, never a missing one.
type GlobMatcher struct {
	Pattern string
}

func (m GlobMatcher) matches(value string) bool { return globMatch(m.Pattern, value) }

func (m GlobMatcher) specificity() int { return globSpecificity(m.Pattern) }

// IdentityMatcher matches an ax-id or subrole attribute. The literal
// pattern "none" matches an absent attribute (empty value) and nothing
// else; any other pattern is a glob match against the actual value.
type IdentityMatcher struct {
	Pattern string
	// NormalizeAXPrefix strips a leading "AX" from both sides before
	// comparing, used for subrole (per the rules DSL's normalisation of
	// e.g. "AXStandardWindow" vs "StandardWindow").
	NormalizeAXPrefix bool
}

func (m IdentityMatcher) matches(value string) bool {
	if m.Pattern == "none" {
		return value == ""
	}
	pattern := m.Pattern
	if m.NormalizeAXPrefix {
		pattern = strings.TrimPrefix(pattern, "AX")
		value = strings.TrimPrefix(value, "AX")
	}
	return globMatch(pattern, value)
}

func (m IdentityMatcher) specificity() int { return globSpecificity(m.Pattern) }

// WindowLevelMatcher matches a window's numeric level either by a
// symbolic class or by an exact numeric value.
type WindowLevelMatcher struct {
	// Class is one of "normal", "floating", "modal", "utility", "popup",
	// "other" (any non-zero level). Ignored if Numeric is non-nil.
	Class   string
	Numeric *int
}

const (
	LevelNormal   = 0
	LevelFloating = 3
	LevelModal    = 8
	LevelUtility  = 19
	LevelPopup    = 101
)

func (m WindowLevelMatcher) matches(level int) bool {
	if m.Numeric != nil {
		return level == *m.Numeric
	}
	switch m.Class {
	case "normal":
		return level == LevelNormal
	case "floating":
		return level == LevelFloating
	case "modal":
		return level == LevelModal
	case "utility":
		return level == LevelUtility
	case "popup":
		return level == LevelPopup
	case "other":
		return level != LevelNormal
	default:
		return false
	}
}

const windowLevelMatcherSpecificity = 4

// ButtonMatcher matches one of a window's titlebar buttons against a
// symbolic state.
type ButtonMatcher struct {
	// Want is one of "exists", "none", "enabled", "disabled".
	Want string
}

func (m ButtonMatcher) matches(s platform.ButtonState) bool {
	switch m.Want {
	case "exists":
		return s != platform.ButtonAbsent
	case "none":
		return s == platform.ButtonAbsent
	case "enabled":
		return s == platform.ButtonEnabled
	case "disabled":
		return s == platform.ButtonDisabled
	default:
		return false
	}
}

// buttonMatcherSpecificity is the fixed additive specificity each
// present button matcher contributes.
const buttonMatcherSpecificity = 2

// Matchers is the full set of optional matchers a Rule may declare. A
// rule matches a window iff every present (non-nil) matcher matches.
type Matchers struct {
	AppName *GlobMatcher
	AppID   *GlobMatcher
	Title   *GlobMatcher
	AXID    *IdentityMatcher
	Subrole *IdentityMatcher

	WindowLevel *WindowLevelMatcher

	CloseButton      *ButtonMatcher
	FullscreenButton *ButtonMatcher
	MinimizeButton   *ButtonMatcher
	ZoomButton       *ButtonMatcher
}

// Matches reports whether every present matcher matches the attributes.
func (m Matchers) Matches(a Attrs) bool {
	if m.AppName != nil && !m.AppName.matches(a.AppName) {
		return false
	}
	if m.AppID != nil && !m.AppID.matches(a.AppID) {
		return false
	}
	if m.Title != nil && !m.Title.matches(a.Title) {
		return false
	}
	if m.AXID != nil && !m.AXID.matches(a.AXID) {
		return false
	}
	if m.Subrole != nil && !m.Subrole.matches(a.Subrole) {
		return false
	}
	if m.WindowLevel != nil && !m.WindowLevel.matches(a.WindowLevel) {
		return false
	}
	if m.CloseButton != nil && !m.CloseButton.matches(a.CloseButton) {
		return false
	}
	if m.FullscreenButton != nil && !m.FullscreenButton.matches(a.FullscreenButton) {
		return false
	}
	if m.MinimizeButton != nil && !m.MinimizeButton.matches(a.MinimizeButton) {
		return false
	}
	if m.ZoomButton != nil && !m.ZoomButton.matches(a.ZoomButton) {
		return false
	}
	return true
}

// Specificity sums the specificity contribution of every present
// matcher. A rule with no matchers at all has specificity 0 (matches
// everything, evaluated last among rules that share that property).
func (m Matchers) Specificity() int {
	total := 0
	if m.AppName != nil {
		total += m.AppName.specificity()
	}
	if m.AppID != nil {
		total += m.AppID.specificity()
	}
	if m.Title != nil {
		total += m.Title.specificity()
	}
	if m.AXID != nil {
		total += m.AXID.specificity()
	}
	if m.Subrole != nil {
		total += m.Subrole.specificity()
	}
	if m.WindowLevel != nil {
		total += windowLevelMatcherSpecificity
	}
	if m.CloseButton != nil {
		total += buttonMatcherSpecificity
	}
	if m.FullscreenButton != nil {
		total += buttonMatcherSpecificity
	}
	if m.MinimizeButton != nil {
		total += buttonMatcherSpecificity
	}
	if m.ZoomButton != nil {
		total += buttonMatcherSpecificity
	}
	return total
}

// globSpecificity ranks a single glob pattern: an exact literal
// outranks a prefix-only wildcard, which outranks a suffix-only
// wildcard, which outranks a contains ("*...*") wildcard, which
// outranks a bare "*". An absent matcher (handled by the caller, not
// here) contributes nothing.
func globSpecificity(p string) int {
	n := len(p)
	switch {
	case p == "*":
		return 0
	case !strings.Contains(p, "*"):
		return n * 4
	case strings.HasPrefix(p, "*") && strings.HasSuffix(p, "*") && n > 2:
		return n - 2
	case strings.HasSuffix(p, "*"):
		return (n - 1) * 2
	case strings.HasPrefix(p, "*"):
		return (n-1)*2 - 1
	default:
		return n - 2
	}
}

// globMatch implements the restricted glob dialect: "*" is the only
// metacharacter, matching zero or more characters.
func globMatch(pattern, value string) bool {
	parts := strings.Split(pattern, "*")
	if len(parts) == 1 {
		return pattern == value
	}
	if !strings.HasPrefix(value, parts[0]) {
		return false
	}
	value = value[len(parts[0]):]
	last := len(parts) - 1
	if !strings.HasSuffix(value, parts[last]) {
		return false
	}
	if last > 0 {
		value = value[:len(value)-len(parts[last])]
	}
	for _, mid := range parts[1:last] {
		if mid == "" {
			continue
		}
		idx := strings.Index(value, mid)
		if idx < 0 {
			return false
		}
		value = value[idx+len(mid):]
	}
	return true
}
