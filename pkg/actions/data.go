package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dop251/goja"
	"github.com/emberflow/emberflow/pkg/browser"
	"github.com/emberflow/emberflow/pkg/models"
)

type getTextAction struct{}

func (a *getTextAction) Kind() string { return KindGetText }

func (a *getTextAction) Validate(config map[string]any) error {
	_, err := requireString(config, "selector")

	return err
}

func (a *getTextAction) Execute(ctx context.Context, session browser.Session, config map[string]any, ectx *models.ExecutionContext, _ *slog.Logger) (any, error) {
	selector, err := requireString(config, "selector")
	if err != nil {
		return nil, err
	}

	text, err := session.Page().Text(ctx, selector)
	if err != nil {
		return nil, fmt.Errorf("get text of %s: %w", selector, err)
	}

	storeOutput(config, ectx, text)

	return text, nil
}

type getAttributeAction struct{}

func (a *getAttributeAction) Kind() string { return KindGetAttribute }

func (a *getAttributeAction) Validate(config map[string]any) error {
	if _, err := requireString(config, "selector"); err != nil {
		return err
	}

	_, err := requireString(config, "attribute")

	return err
}

func (a *getAttributeAction) Execute(ctx context.Context, session browser.Session, config map[string]any, ectx *models.ExecutionContext, _ *slog.Logger) (any, error) {
	selector, err := requireString(config, "selector")
	if err != nil {
		return nil, err
	}

	attribute, err := requireString(config, "attribute")
	if err != nil {
		return nil, err
	}

	value, err := session.Page().Attribute(ctx, selector, attribute)
	if err != nil {
		return nil, fmt.Errorf("get attribute %s of %s: %w", attribute, selector, err)
	}

	storeOutput(config, ectx, value)

	return value, nil
}

type countElementsAction struct{}

func (a *countElementsAction) Kind() string { return KindCountElements }

func (a *countElementsAction) Validate(config map[string]any) error {
	_, err := requireString(config, "selector")

	return err
}

func (a *countElementsAction) Execute(ctx context.Context, session browser.Session, config map[string]any, ectx *models.ExecutionContext, _ *slog.Logger) (any, error) {
	selector, err := requireString(config, "selector")
	if err != nil {
		return nil, err
	}

	count, err := session.Page().Count(ctx, selector)
	if err != nil {
		return nil, fmt.Errorf("count %s: %w", selector, err)
	}

	storeOutput(config, ectx, count)

	return count, nil
}

type setVariableAction struct{}

func (a *setVariableAction) Kind() string { return KindSetVariable }

func (a *setVariableAction) Validate(config map[string]any) error {
	_, err := requireString(config, "name")

	return err
}

func (a *setVariableAction) Execute(_ context.Context, _ browser.Session, config map[string]any, ectx *models.ExecutionContext, _ *slog.Logger) (any, error) {
	name, err := requireString(config, "name")
	if err != nil {
		return nil, err
	}

	value := config["value"]
	ectx.SetVariable(name, value)

	return value, nil
}

type calculateAction struct{}

func (a *calculateAction) Kind() string { return KindCalculate }

func (a *calculateAction) Validate(config map[string]any) error {
	_, err := requireString(config, "expression")

	return err
}

// Execute evaluates an arithmetic expression with the run's variables
// bound, out of the page context.
func (a *calculateAction) Execute(_ context.Context, _ browser.Session, config map[string]any, ectx *models.ExecutionContext, _ *slog.Logger) (any, error) {
	expression, err := requireString(config, "expression")
	if err != nil {
		return nil, err
	}

	vm := goja.New()
	for name, value := range ectx.Variables {
		if setErr := vm.Set(name, value); setErr != nil {
			return nil, fmt.Errorf("bind variable %s: %w", name, setErr)
		}
	}

	value, err := vm.RunString(expression)
	if err != nil {
		return nil, fmt.Errorf("%w: calculate %q: %v", browser.ErrScript, expression, err)
	}

	result := value.Export()
	storeOutput(config, ectx, result)

	return result, nil
}

type screenshotAction struct{}

func (a *screenshotAction) Kind() string { return KindScreenshot }

func (a *screenshotAction) Validate(config map[string]any) error {
	_, err := requireString(config, "path")

	return err
}

func (a *screenshotAction) Execute(ctx context.Context, session browser.Session, config map[string]any, _ *models.ExecutionContext, logger *slog.Logger) (any, error) {
	path, err := requireString(config, "path")
	if err != nil {
		return nil, err
	}

	logger.DebugContext(ctx, "Taking screenshot", "path", path)

	if err := session.Page().Screenshot(ctx, path); err != nil {
		return nil, fmt.Errorf("screenshot to %s: %w", path, err)
	}

	return map[string]any{"path": path}, nil
}

type getCookiesAction struct{}

func (a *getCookiesAction) Kind() string                    { return KindGetCookies }
func (a *getCookiesAction) Validate(_ map[string]any) error { return nil }

func (a *getCookiesAction) Execute(ctx context.Context, session browser.Session, config map[string]any, ectx *models.ExecutionContext, _ *slog.Logger) (any, error) {
	cookies, err := session.Page().Cookies(ctx)
	if err != nil {
		return nil, fmt.Errorf("get cookies: %w", err)
	}

	storeOutput(config, ectx, cookies)

	return cookies, nil
}

type setCookiesAction struct{}

func (a *setCookiesAction) Kind() string { return KindSetCookies }

func (a *setCookiesAction) Validate(config map[string]any) error {
	if _, ok := config["cookies"]; !ok {
		return fmt.Errorf("%w: missing %q", ErrInvalidConfig, "cookies")
	}

	return nil
}

func (a *setCookiesAction) Execute(ctx context.Context, session browser.Session, config map[string]any, _ *models.ExecutionContext, _ *slog.Logger) (any, error) {
	data, err := json.Marshal(config["cookies"])
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not cookie-shaped", ErrInvalidConfig, "cookies")
	}

	var cookies []browser.Cookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		return nil, fmt.Errorf("%w: %q is not cookie-shaped", ErrInvalidConfig, "cookies")
	}

	if err := session.Page().SetCookies(ctx, cookies); err != nil {
		return nil, fmt.Errorf("set cookies: %w", err)
	}

	return nil, nil
}

type clearCookiesAction struct{}

func (a *clearCookiesAction) Kind() string                    { return KindClearCookies }
func (a *clearCookiesAction) Validate(_ map[string]any) error { return nil }

func (a *clearCookiesAction) Execute(ctx context.Context, session browser.Session, _ map[string]any, _ *models.ExecutionContext, _ *slog.Logger) (any, error) {
	return nil, session.Page().ClearCookies(ctx)
}

type logAction struct{}

func (a *logAction) Kind() string { return KindLog }

func (a *logAction) Validate(config map[string]any) error {
	_, err := requireString(config, "message")

	return err
}

func (a *logAction) Execute(ctx context.Context, _ browser.Session, config map[string]any, ectx *models.ExecutionContext, logger *slog.Logger) (any, error) {
	message, err := requireString(config, "message")
	if err != nil {
		return nil, err
	}

	level := configString(config, "level")
	if level == "" {
		level = "info"
	}

	ectx.Log(level, message)
	logger.InfoContext(ctx, "Workflow log step", "message", message)

	return message, nil
}
