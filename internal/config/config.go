// Package config loads the daemon's declarative YAML configuration: rule
// definitions, default/per-tag layouts, gaps, cursor-warp mode, the
// layout-engine exec path, and a static hotkey seed.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tilewm/tilewm/internal/hotkey"
	"github.com/tilewm/tilewm/internal/rules"
	"github.com/tilewm/tilewm/internal/state"
)

// Config is the top-level configuration document.
type Config struct {
	RuleConfigs    []RuleConfig    `yaml:"rules"`
	DefaultLayout  string          `yaml:"defaultLayout"`
	TagLayouts     map[int]string  `yaml:"tagLayouts"`
	OuterGap       GapConfig       `yaml:"outerGap"`
	CursorWarp     string          `yaml:"cursorWarp"`
	LayoutExecPath []string        `yaml:"layoutExecPath"`
	Bindings       []BindingConfig `yaml:"bindings"`
}

// UnmarshalYAML applies field defaulting and accepts the legacy
// "execPath" alias for layoutExecPath, kept for configs written before
// the field was renamed to make its scope explicit.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	type rawConfig struct {
		Rules          []RuleConfig    `yaml:"rules"`
		DefaultLayout  string          `yaml:"defaultLayout"`
		TagLayouts     map[int]string  `yaml:"tagLayouts"`
		OuterGap       GapConfig       `yaml:"outerGap"`
		CursorWarp     string          `yaml:"cursorWarp"`
		LayoutExecPath []string        `yaml:"layoutExecPath"`
		LegacyExecPath []string        `yaml:"execPath"`
		Bindings       []BindingConfig `yaml:"bindings"`
	}

	var raw rawConfig
	if err := value.Decode(&raw); err != nil {
		return err
	}

	c.RuleConfigs = raw.Rules
	c.TagLayouts = raw.TagLayouts
	c.OuterGap = raw.OuterGap
	c.CursorWarp = raw.CursorWarp
	c.Bindings = raw.Bindings

	c.DefaultLayout = raw.DefaultLayout
	if c.DefaultLayout == "" {
		c.DefaultLayout = "tatami"
	}

	switch {
	case len(raw.LayoutExecPath) > 0:
		c.LayoutExecPath = raw.LayoutExecPath
	case len(raw.LegacyExecPath) > 0:
		c.LayoutExecPath = raw.LegacyExecPath
	}

	return nil
}

// GapConfig is the CSS-style four-integer outer gap.
type GapConfig struct {
	Top    int `yaml:"top"`
	Right  int `yaml:"right"`
	Bottom int `yaml:"bottom"`
	Left   int `yaml:"left"`
}

func (g GapConfig) toInsets() state.Insets {
	return state.Insets{Top: g.Top, Right: g.Right, Bottom: g.Bottom, Left: g.Left}
}

// BindingConfig is one static hotkey seed entry.
type BindingConfig struct {
	Chord   string `yaml:"chord"`
	Command string `yaml:"command"`
}

// RuleConfig is the YAML form of a rules.Rule: a named matcher set plus
// one action.
type RuleConfig struct {
	Name   string       `yaml:"name"`
	Match  MatchConfig  `yaml:"match"`
	Action ActionConfig `yaml:"action"`
}

// MatchConfig mirrors rules.Matchers field-for-field in string form.
type MatchConfig struct {
	AppName string `yaml:"appName"`
	AppID   string `yaml:"appId"`
	Title   string `yaml:"title"`
	AXID    string `yaml:"axId"`
	Subrole string `yaml:"subrole"`
	Level   string `yaml:"level"`

	CloseButton      string `yaml:"closeButton"`
	FullscreenButton string `yaml:"fullscreenButton"`
	MinimizeButton   string `yaml:"minimizeButton"`
	ZoomButton       string `yaml:"zoomButton"`
}

// ActionConfig mirrors rules.Action in string/scalar form. The boolean and
// numeric fields are pointers so an absent YAML key decodes as "this rule
// is silent on that category", matching rules.Action's own nil-means-unset
// semantics; Tags and Output are strings, where "" means unset.
type ActionConfig struct {
	Ignore  *bool  `yaml:"ignore"`
	Float   *bool  `yaml:"float"`
	NoFloat *bool  `yaml:"noFloat"`
	Tags    string `yaml:"tags"`
	Output  string `yaml:"output"`

	X             *int `yaml:"x"`
	Y             *int `yaml:"y"`
	Width  *int `yaml:"width"`
	Height *int `yaml:"height"`
}

// Load reads, decodes, validates, and compiles a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate performs structural sanity checks independent of compilation,
// so config errors are reported before anything touches live state.
func (c *Config) Validate() error {
	if c.OuterGap.Top < 0 || c.OuterGap.Right < 0 || c.OuterGap.Bottom < 0 || c.OuterGap.Left < 0 {
		return fmt.Errorf("outerGap values cannot be negative")
	}
	switch c.CursorWarp {
	case "", "disabled", "on-output-change", "on-focus-change":
	default:
		return fmt.Errorf("cursorWarp: unknown mode %q", c.CursorWarp)
	}
	names := map[string]struct{}{}
	for _, r := range c.RuleConfigs {
		if r.Name == "" {
			return fmt.Errorf("rule name cannot be empty")
		}
		if _, exists := names[r.Name]; exists {
			return fmt.Errorf("duplicate rule name %q", r.Name)
		}
		names[r.Name] = struct{}{}
	}
	for tag := range c.TagLayouts {
		if tag < 1 || tag > 8 {
			return fmt.Errorf("tagLayouts: tag %d out of range 1-8", tag)
		}
	}
	for _, b := range c.Bindings {
		if _, err := hotkey.ParseChord(b.Chord); err != nil {
			return fmt.Errorf("binding %q: %w", b.Chord, err)
		}
		if b.Command == "" {
			return fmt.Errorf("binding %q: command cannot be empty", b.Chord)
		}
	}
	return nil
}

// CursorWarpMode compiles the CursorWarp string into state's enum,
// defaulting to disabled.
func (c *Config) CursorWarpMode() state.CursorWarpMode {
	switch c.CursorWarp {
	case "on-output-change":
		return state.CursorWarpOnOutputChange
	case "on-focus-change":
		return state.CursorWarpOnFocusChange
	default:
		return state.CursorWarpDisabled
	}
}

// OuterGapInsets compiles the configured gap into state.Insets.
func (c *Config) OuterGapInsets() state.Insets {
	return c.OuterGap.toInsets()
}

// TagLayoutOverrides compiles the tagLayouts map into state's
// tag-bitmask-keyed form.
func (c *Config) TagLayoutOverrides() map[state.Tags]string {
	out := make(map[state.Tags]string, len(c.TagLayouts))
	for tag, layout := range c.TagLayouts {
		out[state.Tag(tag)] = layout
	}
	return out
}

// CompiledBindings parses every binding's chord string into a
// hotkey.Binding, assuming Validate has already rejected malformed
// chords.
func (c *Config) CompiledBindings() ([]hotkey.Binding, error) {
	out := make([]hotkey.Binding, 0, len(c.Bindings))
	for _, b := range c.Bindings {
		chord, err := hotkey.ParseChord(b.Chord)
		if err != nil {
			return nil, err
		}
		out = append(out, hotkey.Binding{Chord: chord, Command: b.Command})
	}
	return out, nil
}

// Rules compiles every RuleConfig into a rules.Rule, in file order; the
// caller passes the result to rules.NewTable, which re-sorts by
// specificity.
func (c *Config) Rules() ([]rules.Rule, error) {
	out := make([]rules.Rule, 0, len(c.RuleConfigs))
	for _, rc := range c.RuleConfigs {
		rule, err := rc.compile()
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", rc.Name, err)
		}
		out = append(out, rule)
	}
	return out, nil
}

func (rc RuleConfig) compile() (rules.Rule, error) {
	matchers, err := rc.Match.compile()
	if err != nil {
		return rules.Rule{}, err
	}
	action, err := rc.Action.compile()
	if err != nil {
		return rules.Rule{}, err
	}
	return rules.Rule{Name: rc.Name, Matchers: matchers, Action: action}, nil
}

func (mc MatchConfig) compile() (rules.Matchers, error) {
	var m rules.Matchers
	if mc.AppName != "" {
		m.AppName = &rules.GlobMatcher{Pattern: mc.AppName}
	}
	if mc.AppID != "" {
		m.AppID = &rules.GlobMatcher{Pattern: mc.AppID}
	}
	if mc.Title != "" {
		m.Title = &rules.GlobMatcher{Pattern: mc.Title}
	}
	if mc.AXID != "" {
		m.AXID = &rules.IdentityMatcher{Pattern: mc.AXID}
	}
	if mc.Subrole != "" {
		m.Subrole = &rules.IdentityMatcher{Pattern: mc.Subrole, NormalizeAXPrefix: true}
	}
	if mc.Level != "" {
		level, err := parseLevel(mc.Level)
		if err != nil {
			return rules.Matchers{}, err
		}
		m.WindowLevel = &level
	}
	var err error
	if m.CloseButton, err = compileButton(mc.CloseButton); err != nil {
		return rules.Matchers{}, fmt.Errorf("closeButton: %w", err)
	}
	if m.FullscreenButton, err = compileButton(mc.FullscreenButton); err != nil {
		return rules.Matchers{}, fmt.Errorf("fullscreenButton: %w", err)
	}
	if m.MinimizeButton, err = compileButton(mc.MinimizeButton); err != nil {
		return rules.Matchers{}, fmt.Errorf("minimizeButton: %w", err)
	}
	if m.ZoomButton, err = compileButton(mc.ZoomButton); err != nil {
		return rules.Matchers{}, fmt.Errorf("zoomButton: %w", err)
	}
	return m, nil
}

func parseLevel(s string) (rules.WindowLevelMatcher, error) {
	switch s {
	case "normal", "floating", "modal", "utility", "popup", "other":
		return rules.WindowLevelMatcher{Class: s}, nil
	default:
		n, err := strconv.Atoi(s)
		if err != nil {
			return rules.WindowLevelMatcher{}, fmt.Errorf("level: unknown class or number %q", s)
		}
		return rules.WindowLevelMatcher{Numeric: &n}, nil
	}
}

func compileButton(s string) (*rules.ButtonMatcher, error) {
	if s == "" {
		return nil, nil
	}
	switch s {
	case "exists", "none", "enabled", "disabled":
		return &rules.ButtonMatcher{Want: s}, nil
	default:
		return nil, fmt.Errorf("unknown button state %q", s)
	}
}

func (ac ActionConfig) compile() (rules.Action, error) {
	var a rules.Action
	a.Ignore = ac.Ignore
	switch {
	case ac.NoFloat != nil && *ac.NoFloat:
		no := false
		a.Float = &no
	case ac.Float != nil:
		a.Float = ac.Float
	}
	if ac.Tags != "" {
		mask, err := parseTagMask(ac.Tags)
		if err != nil {
			return rules.Action{}, err
		}
		a.Tags = &mask
	}
	if ac.Output != "" {
		a.Display = &ac.Output
	}
	if ac.X != nil && ac.Y != nil {
		a.X, a.Y = ac.X, ac.Y
	}
	if ac.Width != nil && ac.Height != nil {
		a.Width, a.Height = ac.Width, ac.Height
	}
	return a, nil
}

// parseTagMask parses a "+"-separated set of 1-indexed tag numbers (e.g.
// "1+3") into a uint8 bitmask.
func parseTagMask(s string) (uint8, error) {
	var mask uint8
	for _, part := range strings.Split(s, "+") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 1 || n > 8 {
			return 0, fmt.Errorf("tags: invalid tag %q", part)
		}
		mask |= uint8(state.Tag(n))
	}
	return mask, nil
}
