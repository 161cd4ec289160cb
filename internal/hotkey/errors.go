package hotkey

import "errors"

// ErrUnavailable is returned by Unavailable for every call; see its
// doc comment.
var ErrUnavailable = errors.New("hotkey: global event tap not available")
