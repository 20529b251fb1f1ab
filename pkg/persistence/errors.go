package persistence

import "errors"

var (
	ErrNotFound               = errors.New("not found")
	ErrWorkflowNotFound       = errors.New("workflow not found")
	ErrWarmupTemplateNotFound = errors.New("warmup template not found")
	ErrWarmupProgressNotFound = errors.New("warmup progress not found")
	ErrCookiesNotFound        = errors.New("cookies not found")
	ErrExecutionNotFound      = errors.New("execution not found")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrWorkflowNotFound) ||
		errors.Is(err, ErrWarmupTemplateNotFound) ||
		errors.Is(err, ErrWarmupProgressNotFound) ||
		errors.Is(err, ErrCookiesNotFound) ||
		errors.Is(err, ErrExecutionNotFound)
}

func IsWorkflowNotFound(err error) bool       { return errors.Is(err, ErrWorkflowNotFound) }
func IsWarmupTemplateNotFound(err error) bool { return errors.Is(err, ErrWarmupTemplateNotFound) }
func IsWarmupProgressNotFound(err error) bool { return errors.Is(err, ErrWarmupProgressNotFound) }
func IsCookiesNotFound(err error) bool        { return errors.Is(err, ErrCookiesNotFound) }
func IsExecutionNotFound(err error) bool      { return errors.Is(err, ErrExecutionNotFound) }
