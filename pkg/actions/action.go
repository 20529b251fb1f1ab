// Package actions implements the sealed catalog of workflow action kinds.
// Each handler validates its own configuration and performs one unit of
// work against a browser session. Control-flow kinds (condition, loops,
// try-catch, break, continue, stop) are declared here for validation but
// interpreted by the workflow executor.
package actions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/emberflow/emberflow/pkg/browser"
	"github.com/emberflow/emberflow/pkg/models"
)

var (
	ErrUnknownKind     = errors.New("unknown action kind")
	ErrInvalidConfig   = errors.New("invalid action configuration")
	ErrAssertionFailed = errors.New("assertion failed")
)

// Handler executes one action kind. Execute receives the step
// configuration with variables already resolved.
type Handler interface {
	Kind() string
	Validate(config map[string]any) error
	Execute(ctx context.Context, session browser.Session, config map[string]any, ectx *models.ExecutionContext, logger *slog.Logger) (any, error)
}

// Action kind identifiers. The catalog is closed: a step with a type
// outside this list fails validation before execution starts.
const (
	KindNavigate = "navigate"
	KindGoBack   = "go-back"
	KindForward  = "go-forward"
	KindRefresh  = "refresh"
	KindNewTab   = "new-tab"
	KindCloseTab = "close-tab"

	KindClick    = "click"
	KindType     = "type"
	KindFill     = "fill"
	KindSelect   = "select"
	KindHover    = "hover"
	KindScroll   = "scroll"
	KindPressKey = "press-key"
	KindUpload   = "upload"

	KindWaitElement     = "wait-element"
	KindWaitTime        = "wait-time"
	KindWaitNavigation  = "wait-navigation"
	KindWaitNetworkIdle = "wait-network-idle"
	KindWaitText        = "wait-text"
	KindWaitURL         = "wait-url"
	KindWaitFunction    = "wait-function"

	KindGetText       = "get-text"
	KindGetAttribute  = "get-attribute"
	KindCountElements = "count-elements"
	KindSetVariable   = "set-variable"
	KindCalculate     = "calculate"
	KindScreenshot    = "screenshot"
	KindGetCookies    = "get-cookies"
	KindSetCookies    = "set-cookies"
	KindClearCookies  = "clear-cookies"
	KindLog           = "log"

	KindJavascript  = "javascript"
	KindHTTPRequest = "http-request"
	KindAssert      = "assert"

	KindCondition    = "condition"
	KindLoopCount    = "loop-count"
	KindLoopArray    = "loop-array"
	KindLoopElements = "loop-elements"
	KindLoopWhile    = "loop-while"
	KindTryCatch     = "try-catch"
	KindBreak        = "break"
	KindContinue     = "continue"
	KindStop         = "stop"
)

// IsControl reports whether kind is interpreted by the executor rather
// than dispatched to a handler.
func IsControl(kind string) bool {
	switch kind {
	case KindCondition, KindLoopCount, KindLoopArray, KindLoopElements,
		KindLoopWhile, KindTryCatch, KindBreak, KindContinue, KindStop:
		return true
	}

	return false
}

// IsLoop reports whether kind pushes a loop frame.
func IsLoop(kind string) bool {
	switch kind {
	case KindLoopCount, KindLoopArray, KindLoopElements, KindLoopWhile:
		return true
	}

	return false
}

const defaultTimeoutSeconds = 30

// configString fetches an optional string value.
func configString(config map[string]any, key string) string {
	value, _ := config[key].(string)

	return value
}

// requireString fetches a mandatory string value.
func requireString(config map[string]any, key string) (string, error) {
	value, ok := config[key].(string)
	if !ok || value == "" {
		return "", fmt.Errorf("%w: missing %q", ErrInvalidConfig, key)
	}

	return value, nil
}

// configInt fetches an integer, accepting the float64 that JSON decoding
// produces.
func configInt(config map[string]any, key string, fallback int) int {
	switch value := config[key].(type) {
	case int:
		return value
	case int64:
		return int(value)
	case float64:
		return int(value)
	default:
		return fallback
	}
}

// configTimeout reads "timeout" in seconds.
func configTimeout(config map[string]any) time.Duration {
	return time.Duration(configInt(config, "timeout", defaultTimeoutSeconds)) * time.Second
}

func actionOptions(config map[string]any) browser.ActionOptions {
	return browser.ActionOptions{Timeout: configTimeout(config)}
}

// storeOutput writes an action output into the context when the step
// declared an output name.
func storeOutput(config map[string]any, ectx *models.ExecutionContext, value any) {
	if name := configString(config, "output"); name != "" {
		ectx.SetVariable(name, value)
	}
}
