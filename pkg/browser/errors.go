package browser

import "errors"

// Sentinel failure kinds returned by Page implementations. Drivers wrap
// them with detail; the engine matches with errors.Is.
var (
	ErrElementNotFound   = errors.New("element not found")
	ErrNavigationTimeout = errors.New("navigation timeout")
	ErrActionTimeout     = errors.New("action timeout")
	ErrWaitTimeout       = errors.New("wait timeout")
	ErrScript            = errors.New("script evaluation failed")
)
