package actions

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/emberflow/emberflow/pkg/browser"
	"github.com/emberflow/emberflow/pkg/models"
)

// Wait handlers carry their predicate in the returned error so a timeout
// is diagnosable without replaying the run.

type waitElementAction struct{}

func (a *waitElementAction) Kind() string { return KindWaitElement }

func (a *waitElementAction) Validate(config map[string]any) error {
	_, err := requireString(config, "selector")

	return err
}

func (a *waitElementAction) Execute(ctx context.Context, session browser.Session, config map[string]any, _ *models.ExecutionContext, _ *slog.Logger) (any, error) {
	selector, err := requireString(config, "selector")
	if err != nil {
		return nil, err
	}

	if err := session.Page().WaitForSelector(ctx, selector, configTimeout(config)); err != nil {
		return nil, fmt.Errorf("wait for element %q: %w", selector, err)
	}

	return nil, nil
}

type waitTimeAction struct{}

func (a *waitTimeAction) Kind() string { return KindWaitTime }

func (a *waitTimeAction) Validate(config map[string]any) error {
	if configInt(config, "duration", -1) < 0 {
		return fmt.Errorf("%w: wait-time needs a non-negative %q in milliseconds", ErrInvalidConfig, "duration")
	}

	return nil
}

func (a *waitTimeAction) Execute(ctx context.Context, _ browser.Session, config map[string]any, _ *models.ExecutionContext, _ *slog.Logger) (any, error) {
	duration := time.Duration(configInt(config, "duration", 0)) * time.Millisecond

	select {
	case <-time.After(duration):
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type waitNavigationAction struct{}

func (a *waitNavigationAction) Kind() string                    { return KindWaitNavigation }
func (a *waitNavigationAction) Validate(_ map[string]any) error { return nil }

func (a *waitNavigationAction) Execute(ctx context.Context, session browser.Session, config map[string]any, _ *models.ExecutionContext, _ *slog.Logger) (any, error) {
	if err := session.Page().WaitForNavigation(ctx, configTimeout(config)); err != nil {
		return nil, fmt.Errorf("wait for navigation: %w", err)
	}

	return nil, nil
}

type waitNetworkIdleAction struct{}

func (a *waitNetworkIdleAction) Kind() string                    { return KindWaitNetworkIdle }
func (a *waitNetworkIdleAction) Validate(_ map[string]any) error { return nil }

func (a *waitNetworkIdleAction) Execute(ctx context.Context, session browser.Session, config map[string]any, _ *models.ExecutionContext, _ *slog.Logger) (any, error) {
	if err := session.Page().WaitForNetworkIdle(ctx, configTimeout(config)); err != nil {
		return nil, fmt.Errorf("wait for network idle: %w", err)
	}

	return nil, nil
}

type waitTextAction struct{}

func (a *waitTextAction) Kind() string { return KindWaitText }

func (a *waitTextAction) Validate(config map[string]any) error {
	_, err := requireString(config, "text")

	return err
}

func (a *waitTextAction) Execute(ctx context.Context, session browser.Session, config map[string]any, _ *models.ExecutionContext, _ *slog.Logger) (any, error) {
	text, err := requireString(config, "text")
	if err != nil {
		return nil, err
	}

	if err := session.Page().WaitForText(ctx, text, configTimeout(config)); err != nil {
		return nil, fmt.Errorf("wait for text %q: %w", text, err)
	}

	return nil, nil
}

type waitURLAction struct{}

func (a *waitURLAction) Kind() string { return KindWaitURL }

func (a *waitURLAction) Validate(config map[string]any) error {
	_, err := requireString(config, "pattern")

	return err
}

func (a *waitURLAction) Execute(ctx context.Context, session browser.Session, config map[string]any, _ *models.ExecutionContext, _ *slog.Logger) (any, error) {
	pattern, err := requireString(config, "pattern")
	if err != nil {
		return nil, err
	}

	if err := session.Page().WaitForURL(ctx, pattern, configTimeout(config)); err != nil {
		return nil, fmt.Errorf("wait for url %q: %w", pattern, err)
	}

	return nil, nil
}

type waitFunctionAction struct{}

func (a *waitFunctionAction) Kind() string { return KindWaitFunction }

func (a *waitFunctionAction) Validate(config map[string]any) error {
	_, err := requireString(config, "script")

	return err
}

func (a *waitFunctionAction) Execute(ctx context.Context, session browser.Session, config map[string]any, _ *models.ExecutionContext, _ *slog.Logger) (any, error) {
	script, err := requireString(config, "script")
	if err != nil {
		return nil, err
	}

	if err := session.Page().WaitForFunction(ctx, script, configTimeout(config)); err != nil {
		return nil, fmt.Errorf("wait for function %q: %w", script, err)
	}

	return nil, nil
}
