package hotkey

import "testing"

func TestParseChord(t *testing.T) {
	cases := []struct {
		in   string
		want Chord
	}{
		{"t", Chord{Key: "t"}},
		{"cmd+t", Chord{Mods: ModCmd, Key: "t"}},
		{"Cmd+Shift+T", Chord{Mods: ModCmd | ModShift, Key: "t"}},
		{"ctrl+alt+space", Chord{Mods: ModCtrl | ModAlt, Key: "space"}},
	}
	for _, tc := range cases {
		got, err := ParseChord(tc.in)
		if err != nil {
			t.Fatalf("ParseChord(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseChord(%q) = %#v, want %#v", tc.in, got, tc.want)
		}
	}
}

func TestParseChordErrors(t *testing.T) {
	for _, in := range []string{"", "cmd+", "cmd+unknownmod+t", "+t"} {
		if _, err := ParseChord(in); err == nil {
			t.Fatalf("ParseChord(%q): expected error", in)
		}
	}
}

func TestChordString(t *testing.T) {
	c := Chord{Mods: ModCmd | ModShift, Key: "t"}
	if got, want := c.String(), "cmd+shift+t"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}
