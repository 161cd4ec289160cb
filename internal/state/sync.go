package state

import (
	"context"
	"time"

	"github.com/tilewm/tilewm/internal/platform"
)

// SyncResult is the return shape common to every sync entry point.
type SyncResult struct {
	// Changed is true iff any window was added or removed during this
	// pass; callers must treat a true Changed as a retile obligation.
	Changed      bool
	NewWindowIDs []platform.WindowID
	WindowMoves  []WindowMove
}

func (r *SyncResult) merge(o SyncResult) {
	r.Changed = r.Changed || o.Changed
	r.NewWindowIDs = append(r.NewWindowIDs, o.NewWindowIDs...)
	r.WindowMoves = append(r.WindowMoves, o.WindowMoves...)
}

// SyncAll reads the full on-screen window list from the platform and
// reconciles it against state. Display reconciliation (connect/disconnect,
// orphaning) is handled separately by HandleDisplayChange.
func (s *State) SyncAll(ctx context.Context, ws platform.WindowSystem) (SyncResult, error) {
	infos, err := ws.ListWindows(ctx)
	if err != nil {
		return SyncResult{}, err
	}
	return s.SyncWithWindowInfos(ctx, ws, infos)
}

// SyncPID reads the on-screen windows owned by a single process and
// reconciles only that process's windows against state, leaving every
// other window untouched. Used on app-launch and focus-change events.
func (s *State) SyncPID(ctx context.Context, ws platform.WindowSystem, pid int) (SyncResult, error) {
	infos, err := ws.ListWindowsForPID(ctx, pid)
	if err != nil {
		return SyncResult{}, err
	}
	return s.syncScoped(ctx, ws, infos, func(w *Window) bool { return w.PID == pid }, func(iw *IgnoredWindow) bool { return iw.PID == pid })
}

// SyncWithWindowInfos reconciles a pre-fetched window list against the
// full managed and ignored sets.
func (s *State) SyncWithWindowInfos(ctx context.Context, ws platform.WindowSystem, infos []platform.WindowInfo) (SyncResult, error) {
	return s.syncScoped(ctx, ws, infos, func(*Window) bool { return true }, func(*IgnoredWindow) bool { return true })
}

// syncScoped implements the shared reconciliation algorithm. scope
// restricts which existing managed/ignored windows are candidates for
// removal or re-evaluation: SyncAll and SyncWithWindowInfos pass a scope
// that includes everything, SyncPID restricts to one process.
func (s *State) syncScoped(ctx context.Context, ws platform.WindowSystem, infos []platform.WindowInfo, inManagedScope func(*Window) bool, inIgnoredScope func(*IgnoredWindow) bool) (SyncResult, error) {
	var result SyncResult

	observed := make(map[platform.WindowID]platform.WindowInfo, len(infos))
	for _, info := range infos {
		observed[info.ID] = info
	}

	if s.removeGoneWindows(ctx, ws, observed, inManagedScope) {
		result.Changed = true
	}
	s.removeGoneIgnored(ctx, ws, observed, inIgnoredScope)

	promoted := s.reevaluateIgnored(observed, inIgnoredScope)
	result.merge(promoted)

	s.updateFrames(observed, &result, time.Now())

	added := s.addNewWindows(ctx, ws, observed)
	result.merge(added)

	return result, nil
}

// isGenuinelyGone applies the two-phase AX-liveness check: a window is
// only removed when the owning process still answers AX queries at all
// AND the specific window id is no longer in that process's AX window
// list. Either signal failing means "defer", the primary defence
// against ghost windows during native-fullscreen transitions.
func isGenuinelyGone(ctx context.Context, ws platform.WindowSystem, pid int, id platform.WindowID) bool {
	if !ws.IsProcessAXAccessible(ctx, pid) {
		return false
	}
	return !ws.IsWindowStillInAX(ctx, pid, id)
}

func (s *State) removeGoneWindows(ctx context.Context, ws platform.WindowSystem, observed map[platform.WindowID]platform.WindowInfo, inScope func(*Window) bool) bool {
	changed := false
	for id, w := range s.Windows {
		if !inScope(w) {
			continue
		}
		if _, stillOnScreen := observed[id]; stillOnScreen {
			continue
		}
		if isGenuinelyGone(ctx, ws, w.PID, id) {
			delete(s.Windows, id)
			s.RemoveFromWindowOrder(id)
			changed = true
		}
	}
	return changed
}

func (s *State) removeGoneIgnored(ctx context.Context, ws platform.WindowSystem, observed map[platform.WindowID]platform.WindowInfo, inScope func(*IgnoredWindow) bool) {
	for id, iw := range s.Ignored {
		if !inScope(iw) {
			continue
		}
		if _, stillOnScreen := observed[id]; stillOnScreen {
			continue
		}
		if isGenuinelyGone(ctx, ws, iw.PID, id) {
			delete(s.Ignored, id)
		}
	}
}

// reevaluateIgnored re-checks every ignored window still on-screen
// against the current rule table. A window that no longer matches an
// ignore rule, and either is at the normal window level or now matches a
// non-ignore rule, is promoted to managed.
func (s *State) reevaluateIgnored(observed map[platform.WindowID]platform.WindowInfo, inScope func(*IgnoredWindow) bool) SyncResult {
	var result SyncResult
	for id, iw := range s.Ignored {
		if !inScope(iw) {
			continue
		}
		info, stillOnScreen := observed[id]
		if !stillOnScreen {
			continue
		}
		attrs := iw.RuleAttrs()
		if s.Rules.Resolve(attrs).Ignore || s.nonNormalUnmanaged(attrs) {
			continue
		}
		w, moves := s.promoteIgnored(iw)
		w.Frame = Rect{X: info.Bounds.X, Y: info.Bounds.Y, Width: info.Bounds.Width, Height: info.Bounds.Height}
		delete(s.Ignored, id)
		result.Changed = true
		result.NewWindowIDs = append(result.NewWindowIDs, id)
		result.WindowMoves = append(result.WindowMoves, moves...)
	}
	return result
}

// updateFrames updates the current frame of every already-managed
// window that is still on-screen. A visible window's frame is simply
// replaced by the observed bounds. A hidden window's frame holds its
// hide position, not its real on-screen geometry as far as state is
// concerned; if the OS has moved it off that computed position, a move
// back is queued here (re-hide detection), unless a still-valid focus
// intent for the same process is suppressing it.
func (s *State) updateFrames(observed map[platform.WindowID]platform.WindowInfo, result *SyncResult, now time.Time) {
	for id, w := range s.Windows {
		info, ok := observed[id]
		if !ok {
			continue
		}
		frame := Rect{X: info.Bounds.X, Y: info.Bounds.Y, Width: info.Bounds.Width, Height: info.Bounds.Height}
		if !w.Hidden() {
			w.Frame = frame
			continue
		}
		if frame.X == w.Frame.X && frame.Y == w.Frame.Y && frame.Width == w.Frame.Width && frame.Height == w.Frame.Height {
			continue
		}
		if s.focusIntentSuppressesReHide(w.PID, now) {
			continue
		}
		x, y := s.computeHideForWindow(w)
		w.Frame.Width, w.Frame.Height = frame.Width, frame.Height
		w.Frame.X, w.Frame.Y = x, y
		result.WindowMoves = append(result.WindowMoves, WindowMove{ID: w.ID, PID: w.PID, X: x, Y: y})
	}
}

// focusIntentSuppressesReHide reports whether a still-valid (within its
// 200ms TTL) focus intent for pid should suppress re-hide detection for
// one of its windows.
func (s *State) focusIntentSuppressesReHide(pid int, now time.Time) bool {
	return s.FocusIntent != nil && s.FocusIntent.TargetPID == pid && s.FocusIntent.Valid(now)
}

// addNewWindows classifies every on-screen window not yet known to
// state. A transient failure fetching extended attributes leaves the
// window unclassified for this pass; it is retried on the next sync. A
// non-normal-level window with no matching non-ignore rule is parked in
// the ignored set alongside windows an explicit ignore rule excludes,
// since both are re-evaluated identically on the next sync pass.
func (s *State) addNewWindows(ctx context.Context, ws platform.WindowSystem, observed map[platform.WindowID]platform.WindowInfo) SyncResult {
	var result SyncResult
	for id, info := range observed {
		if _, managed := s.Windows[id]; managed {
			continue
		}
		if _, ignored := s.Ignored[id]; ignored {
			continue
		}
		ext, err := ws.ExtendedAttributesFor(ctx, info.PID, id)
		if err != nil {
			continue // transient: retry next sync pass
		}
		attrs := windowInfoRuleAttrs(info, ext)
		if s.nonNormalUnmanaged(attrs) || s.ShouldIgnoreWindow(attrs) {
			s.Ignored[id] = &IgnoredWindow{
				ID: id, PID: info.PID, Owner: info.Owner, BundleID: info.BundleID, Title: info.Title,
				AXID: ext.AXID, Subrole: ext.Subrole, WindowLevel: ext.WindowLevel,
				CloseButton: ext.CloseButton, FullscreenButton: ext.FullscreenBtn,
				MinimizeButton: ext.MinimizeBtn, ZoomButton: ext.ZoomButton,
			}
			continue
		}
		_, moves := s.ApplyRulesToNewWindow(info, ext)
		result.Changed = true
		result.NewWindowIDs = append(result.NewWindowIDs, id)
		result.WindowMoves = append(result.WindowMoves, moves...)
	}
	return result
}
