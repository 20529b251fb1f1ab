package actions

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/emberflow/emberflow/pkg/browser"
	"github.com/emberflow/emberflow/pkg/models"
)

// Interaction handlers wait for the target element to be actionable
// before acting; that waiting is the driver's responsibility, surfaced
// here as ErrElementNotFound vs ErrActionTimeout.

type clickAction struct{}

func (a *clickAction) Kind() string { return KindClick }

func (a *clickAction) Validate(config map[string]any) error {
	_, err := requireString(config, "selector")

	return err
}

func (a *clickAction) Execute(ctx context.Context, session browser.Session, config map[string]any, _ *models.ExecutionContext, logger *slog.Logger) (any, error) {
	selector, err := requireString(config, "selector")
	if err != nil {
		return nil, err
	}

	logger.DebugContext(ctx, "Clicking", "selector", selector)

	if err := session.Page().Click(ctx, selector, actionOptions(config)); err != nil {
		return nil, fmt.Errorf("click %s: %w", selector, err)
	}

	return nil, nil
}

type typeAction struct{}

func (a *typeAction) Kind() string { return KindType }

func (a *typeAction) Validate(config map[string]any) error {
	if _, err := requireString(config, "selector"); err != nil {
		return err
	}

	if _, ok := config["text"]; !ok {
		return fmt.Errorf("%w: missing %q", ErrInvalidConfig, "text")
	}

	return nil
}

func (a *typeAction) Execute(ctx context.Context, session browser.Session, config map[string]any, _ *models.ExecutionContext, _ *slog.Logger) (any, error) {
	selector, err := requireString(config, "selector")
	if err != nil {
		return nil, err
	}

	text := configString(config, "text")

	if err := session.Page().Type(ctx, selector, text, actionOptions(config)); err != nil {
		return nil, fmt.Errorf("type into %s: %w", selector, err)
	}

	return nil, nil
}

type fillAction struct{}

func (a *fillAction) Kind() string { return KindFill }

func (a *fillAction) Validate(config map[string]any) error {
	_, err := requireString(config, "selector")

	return err
}

func (a *fillAction) Execute(ctx context.Context, session browser.Session, config map[string]any, _ *models.ExecutionContext, _ *slog.Logger) (any, error) {
	selector, err := requireString(config, "selector")
	if err != nil {
		return nil, err
	}

	if err := session.Page().Fill(ctx, selector, configString(config, "value"), actionOptions(config)); err != nil {
		return nil, fmt.Errorf("fill %s: %w", selector, err)
	}

	return nil, nil
}

type selectAction struct{}

func (a *selectAction) Kind() string { return KindSelect }

func (a *selectAction) Validate(config map[string]any) error {
	if _, err := requireString(config, "selector"); err != nil {
		return err
	}

	_, err := requireString(config, "value")

	return err
}

func (a *selectAction) Execute(ctx context.Context, session browser.Session, config map[string]any, _ *models.ExecutionContext, _ *slog.Logger) (any, error) {
	selector, err := requireString(config, "selector")
	if err != nil {
		return nil, err
	}

	value, err := requireString(config, "value")
	if err != nil {
		return nil, err
	}

	if err := session.Page().SelectOption(ctx, selector, value, actionOptions(config)); err != nil {
		return nil, fmt.Errorf("select %s on %s: %w", value, selector, err)
	}

	return nil, nil
}

type hoverAction struct{}

func (a *hoverAction) Kind() string { return KindHover }

func (a *hoverAction) Validate(config map[string]any) error {
	_, err := requireString(config, "selector")

	return err
}

func (a *hoverAction) Execute(ctx context.Context, session browser.Session, config map[string]any, _ *models.ExecutionContext, _ *slog.Logger) (any, error) {
	selector, err := requireString(config, "selector")
	if err != nil {
		return nil, err
	}

	if err := session.Page().Hover(ctx, selector, actionOptions(config)); err != nil {
		return nil, fmt.Errorf("hover %s: %w", selector, err)
	}

	return nil, nil
}

type scrollAction struct{}

func (a *scrollAction) Kind() string                    { return KindScroll }
func (a *scrollAction) Validate(_ map[string]any) error { return nil }

func (a *scrollAction) Execute(ctx context.Context, session browser.Session, config map[string]any, _ *models.ExecutionContext, _ *slog.Logger) (any, error) {
	x := configInt(config, "x", 0)
	y := configInt(config, "y", 500)

	return nil, session.Page().Scroll(ctx, x, y)
}

type pressKeyAction struct{}

func (a *pressKeyAction) Kind() string { return KindPressKey }

func (a *pressKeyAction) Validate(config map[string]any) error {
	_, err := requireString(config, "key")

	return err
}

func (a *pressKeyAction) Execute(ctx context.Context, session browser.Session, config map[string]any, _ *models.ExecutionContext, _ *slog.Logger) (any, error) {
	key, err := requireString(config, "key")
	if err != nil {
		return nil, err
	}

	return nil, session.Page().PressKey(ctx, key)
}

type uploadAction struct{}

func (a *uploadAction) Kind() string { return KindUpload }

func (a *uploadAction) Validate(config map[string]any) error {
	if _, err := requireString(config, "selector"); err != nil {
		return err
	}

	if _, ok := config["files"]; !ok {
		return fmt.Errorf("%w: missing %q", ErrInvalidConfig, "files")
	}

	return nil
}

func (a *uploadAction) Execute(ctx context.Context, session browser.Session, config map[string]any, _ *models.ExecutionContext, _ *slog.Logger) (any, error) {
	selector, err := requireString(config, "selector")
	if err != nil {
		return nil, err
	}

	var files []string

	switch typed := config["files"].(type) {
	case string:
		files = []string{typed}
	case []any:
		for _, item := range typed {
			if path, ok := item.(string); ok {
				files = append(files, path)
			}
		}
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %q is empty", ErrInvalidConfig, "files")
	}

	if err := session.Page().Upload(ctx, selector, files, actionOptions(config)); err != nil {
		return nil, fmt.Errorf("upload to %s: %w", selector, err)
	}

	return nil, nil
}
