// Package warmup advances accounts through day-indexed phases of
// increasing activity, with hybrid cookie/credential login and a polling
// scheduler that decides when each day is due.
package warmup

import "errors"

var (
	ErrPhaseNotFound      = errors.New("no phase found for day")
	ErrLoginFailed        = errors.New("login failed")
	ErrNoValidLoginMethod = errors.New("no valid login method")
	ErrUnknownPlatform    = errors.New("unknown platform")
	ErrAlreadyRunning     = errors.New("warmup execution already in flight")
)
