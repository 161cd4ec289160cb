package state

import "testing"

func TestRectShrinkClampsToZero(t *testing.T) {
	r := Rect{X: 0, Y: 0, Width: 10, Height: 10}
	got := r.Shrink(Insets{Top: 20, Right: 20, Bottom: 20, Left: 20})
	if got.Width != 0 || got.Height != 0 {
		t.Fatalf("shrink past zero should clamp, got %+v", got)
	}
}

func TestRectShrinkInsetsEachSide(t *testing.T) {
	r := Rect{X: 0, Y: 0, Width: 100, Height: 100}
	got := r.Shrink(Insets{Top: 1, Right: 2, Bottom: 3, Left: 4})
	want := Rect{X: 4, Y: 1, Width: 94, Height: 96}
	if got != want {
		t.Fatalf("got %+v want %+v", got, want)
	}
}

func TestRectCenter(t *testing.T) {
	r := Rect{X: 10, Y: 20, Width: 100, Height: 50}
	x, y := r.Center()
	if x != 60 || y != 45 {
		t.Fatalf("center got (%d,%d) want (60,45)", x, y)
	}
}

func TestRectIntersects(t *testing.T) {
	a := Rect{X: 0, Y: 0, Width: 10, Height: 10}
	cases := []struct {
		name string
		b    Rect
		want bool
	}{
		{"overlapping", Rect{X: 5, Y: 5, Width: 10, Height: 10}, true},
		{"touching edge only", Rect{X: 10, Y: 0, Width: 10, Height: 10}, false},
		{"disjoint", Rect{X: 100, Y: 100, Width: 10, Height: 10}, false},
		{"zero width", Rect{X: 0, Y: 0, Width: 0, Height: 10}, false},
	}
	for _, c := range cases {
		if got := a.Intersects(c.b); got != c.want {
			t.Errorf("%s: got %v want %v", c.name, got, c.want)
		}
	}
}

func TestDisplayTileableRect(t *testing.T) {
	d := &Display{UsableBounds: Rect{X: 0, Y: 0, Width: 1920, Height: 1080}}
	got := d.TileableRect(Insets{Top: 10, Right: 10, Bottom: 10, Left: 10})
	want := Rect{X: 10, Y: 10, Width: 1900, Height: 1060}
	if got != want {
		t.Fatalf("got %+v want %+v", got, want)
	}
}
