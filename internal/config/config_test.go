package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tilewm/tilewm/internal/state"
)

const sampleYAML = `
defaultLayout: tatami
tagLayouts:
  2: monocle
outerGap:
  top: 4
  right: 4
  bottom: 4
  left: 4
cursorWarp: on-focus-change
layoutExecPath:
  - /opt/tilewm/engines
bindings:
  - chord: cmd+t
    command: retile
  - chord: cmd+shift+1
    command: tag-view-1
rules:
  - name: dock-to-right
    match:
      appName: "Dock*"
    action:
      tags: "2+3"
      float: true
  - name: ignore-launcher
    match:
      appId: com.example.launcher
    action:
      ignore: true
  - name: modal-no-float
    match:
      level: modal
    action:
      noFloat: true
`

func writeSample(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "tilewm.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write sample config: %v", err)
	}
	return path
}

func TestLoadParsesAndCompiles(t *testing.T) {
	path := writeSample(t, sampleYAML)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.DefaultLayout != "tatami" {
		t.Fatalf("DefaultLayout = %q", cfg.DefaultLayout)
	}
	if cfg.CursorWarpMode() != state.CursorWarpOnFocusChange {
		t.Fatalf("CursorWarpMode = %v", cfg.CursorWarpMode())
	}
	gap := cfg.OuterGapInsets()
	if gap.Top != 4 || gap.Right != 4 || gap.Bottom != 4 || gap.Left != 4 {
		t.Fatalf("OuterGapInsets = %#v", gap)
	}
	overrides := cfg.TagLayoutOverrides()
	if overrides[state.Tag(2)] != "monocle" {
		t.Fatalf("TagLayoutOverrides = %#v", overrides)
	}

	bindings, err := cfg.CompiledBindings()
	if err != nil {
		t.Fatalf("CompiledBindings: %v", err)
	}
	if len(bindings) != 2 {
		t.Fatalf("expected 2 bindings, got %d", len(bindings))
	}

	compiled, err := cfg.Rules()
	if err != nil {
		t.Fatalf("Rules: %v", err)
	}
	if len(compiled) != 3 {
		t.Fatalf("expected 3 rules, got %d", len(compiled))
	}

	for _, r := range compiled {
		if r.Name == "dock-to-right" {
			if r.Action.Tags == nil || *r.Action.Tags != 0b0000_0110 {
				t.Fatalf("dock-to-right tags = %#v", r.Action.Tags)
			}
			if r.Action.Float == nil || *r.Action.Float != true {
				t.Fatalf("dock-to-right float = %#v", r.Action.Float)
			}
		}
		if r.Name == "ignore-launcher" {
			if r.Action.Ignore == nil || *r.Action.Ignore != true {
				t.Fatalf("ignore-launcher ignore = %#v", r.Action.Ignore)
			}
		}
		if r.Name == "modal-no-float" {
			if r.Action.Float == nil || *r.Action.Float != false {
				t.Fatalf("modal-no-float float = %#v", r.Action.Float)
			}
		}
	}
}

func TestLoadRejectsDuplicateRuleNames(t *testing.T) {
	path := writeSample(t, `
rules:
  - name: dup
    match:
      appName: "A"
    action:
      ignore: true
  - name: dup
    match:
      appName: "B"
    action:
      ignore: true
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for duplicate rule names")
	}
}

func TestLoadRejectsBadChord(t *testing.T) {
	path := writeSample(t, `
bindings:
  - chord: "cmd+"
    command: retile
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for malformed chord")
	}
}

func TestLoadRejectsNegativeGap(t *testing.T) {
	path := writeSample(t, `
outerGap:
  top: -1
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for negative gap")
	}
}

func TestLoadRejectsOutOfRangeTag(t *testing.T) {
	path := writeSample(t, `
tagLayouts:
  9: monocle
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for out-of-range tag")
	}
}
