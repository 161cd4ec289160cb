package platform

import "errors"

// ErrTransient marks a platform failure that should be retried on the next
// sync pass rather than treated as a removal or a fatal error.
var ErrTransient = errors.New("platform: transient failure")

// ErrPermanentDenial marks a platform failure the daemon cannot recover
// from at runtime (for example, no accessibility permission at start-up).
var ErrPermanentDenial = errors.New("platform: permanent denial")
