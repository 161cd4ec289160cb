package state

import (
	"time"

	"github.com/tilewm/tilewm/internal/platform"
	"github.com/tilewm/tilewm/internal/rules"
)

// CursorWarpMode controls whether a focus change warps the OS cursor.
type CursorWarpMode string

const (
	CursorWarpDisabled       CursorWarpMode = "disabled"
	CursorWarpOnOutputChange CursorWarpMode = "on-output-change"
	CursorWarpOnFocusChange  CursorWarpMode = "on-focus-change"
)

// focusIntentTTL is how long a deliberate focus assignment suppresses
// spurious OS focus callbacks for the same process.
const focusIntentTTL = 200 * time.Millisecond

// FocusIntent records the window the core last deliberately focused, so
// that OS focus callbacks for a different window of the same process can
// be recognised as spurious and corrected.
type FocusIntent struct {
	TargetID  platform.WindowID
	TargetPID int
	At        time.Time
}

// Valid reports whether the intent is still within its suppression
// window at the given instant.
func (fi *FocusIntent) Valid(now time.Time) bool {
	if fi == nil {
		return false
	}
	return now.Sub(fi.At) < focusIntentTTL
}

// State is the process-wide state the core owns and mutates from its
// single event-loop thread. No field here is touched by any goroutine
// other than the core loop; helper threads communicate only through
// channels and never see a *State directly.
type State struct {
	Displays map[platform.DisplayID]*Display
	Windows  map[platform.WindowID]*Window

	Rules   *rules.Table
	Ignored map[platform.WindowID]*IgnoredWindow

	// SavedDisplayTags preserves a disconnected display's visible tags
	// so a reconnect can restore them.
	SavedDisplayTags map[platform.DisplayID]Tags

	// PreviousTags is each display's visible-tags value prior to its
	// most recent change, used to implement tag-view-last.
	PreviousTags map[platform.DisplayID]Tags

	FocusedDisplay platform.DisplayID
	// FocusedWindow is the core's notion of which window currently holds
	// focus, kept in sync with OS focus callbacks via ReconcileExternalFocus.
	FocusedWindow platform.WindowID

	DefaultLayout string
	// TagLayouts maps a tag number (1..=8) to a layout engine name
	// override.
	TagLayouts map[int]string

	CursorWarpMode CursorWarpMode
	OuterGap       Insets

	FocusIntent *FocusIntent

	// WindowOrder is the focus stack: most-recently-focused window ids
	// are nearer the front. Used to order tiled windows sent to a
	// layout engine and as the tiebreak for window-next/prev.
	WindowOrder []platform.WindowID
}

// New returns an empty process-wide state with its maps initialised.
func New() *State {
	return &State{
		Displays:         make(map[platform.DisplayID]*Display),
		Windows:          make(map[platform.WindowID]*Window),
		Rules:            rules.NewTable(nil),
		Ignored:          make(map[platform.WindowID]*IgnoredWindow),
		SavedDisplayTags: make(map[platform.DisplayID]Tags),
		PreviousTags:     make(map[platform.DisplayID]Tags),
		TagLayouts:       make(map[int]string),
		CursorWarpMode:   CursorWarpOnFocusChange,
		DefaultLayout:    "tatami",
	}
}

// LayoutForTags returns the layout engine name that should tile a
// display currently showing the given tags: the display's own current
// layout if set, else the first matching tag override, else the default.
func (s *State) LayoutForTags(display *Display, tags Tags) string {
	if display.CurrentLayout != "" {
		return display.CurrentLayout
	}
	for n := 1; n <= 8; n++ {
		if tags.Intersects(Tag(n)) {
			if name, ok := s.TagLayouts[n]; ok {
				return name
			}
		}
	}
	return s.DefaultLayout
}

// AddToWindowOrder moves id to the front of the focus stack, inserting
// it if absent.
func (s *State) AddToWindowOrder(id platform.WindowID) {
	s.RemoveFromWindowOrder(id)
	s.WindowOrder = append([]platform.WindowID{id}, s.WindowOrder...)
}

// RemoveFromWindowOrder drops id from the focus stack.
func (s *State) RemoveFromWindowOrder(id platform.WindowID) {
	for i, existing := range s.WindowOrder {
		if existing == id {
			s.WindowOrder = append(s.WindowOrder[:i], s.WindowOrder[i+1:]...)
			return
		}
	}
}

// orderIndex returns id's position in the focus stack, or -1.
func (s *State) orderIndex(id platform.WindowID) int {
	for i, existing := range s.WindowOrder {
		if existing == id {
			return i
		}
	}
	return -1
}

// SortedDisplayIDs returns every display id in ascending order.
func (s *State) SortedDisplayIDs() []platform.DisplayID {
	ids := make([]platform.DisplayID, 0, len(s.Displays))
	for id := range s.Displays {
		ids = append(ids, id)
	}
	sortDisplayIDs(ids)
	return ids
}

func sortDisplayIDs(ids []platform.DisplayID) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
}

// MainOrFirstDisplay returns the preferred fallback display: the
// current main display if known, else the lowest-id display. isMain is
// supplied by the caller (the sync layer), since State itself does not
// retain which display the OS reports as main once the OS-visible
// DisplayInfo is discarded.
func (s *State) MainOrFirstDisplay(mainID platform.DisplayID, mainKnown bool) (platform.DisplayID, bool) {
	if mainKnown {
		if _, ok := s.Displays[mainID]; ok {
			return mainID, true
		}
	}
	ids := s.SortedDisplayIDs()
	if len(ids) == 0 {
		return 0, false
	}
	return ids[0], true
}
