package context

import "errors"

// Brief building errors
var (
	// ErrBriefTooLarge indicates the brief exceeds size limits.
	ErrBriefTooLarge = errors.New("brief too large")
)
