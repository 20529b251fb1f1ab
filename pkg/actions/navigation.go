package actions

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/emberflow/emberflow/pkg/browser"
	"github.com/emberflow/emberflow/pkg/models"
)

type navigateAction struct{}

func (a *navigateAction) Kind() string { return KindNavigate }

func (a *navigateAction) Validate(config map[string]any) error {
	_, err := requireString(config, "url")

	return err
}

func (a *navigateAction) Execute(ctx context.Context, session browser.Session, config map[string]any, _ *models.ExecutionContext, logger *slog.Logger) (any, error) {
	targetURL, err := requireString(config, "url")
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "Navigating", "url", targetURL)

	if err := session.Page().Navigate(ctx, targetURL); err != nil {
		return nil, fmt.Errorf("navigate to %s: %w", targetURL, err)
	}

	return map[string]any{"url": targetURL}, nil
}

type goBackAction struct{}

func (a *goBackAction) Kind() string                       { return KindGoBack }
func (a *goBackAction) Validate(_ map[string]any) error    { return nil }

func (a *goBackAction) Execute(ctx context.Context, session browser.Session, _ map[string]any, _ *models.ExecutionContext, _ *slog.Logger) (any, error) {
	return nil, session.Page().Back(ctx)
}

type goForwardAction struct{}

func (a *goForwardAction) Kind() string                    { return KindForward }
func (a *goForwardAction) Validate(_ map[string]any) error { return nil }

func (a *goForwardAction) Execute(ctx context.Context, session browser.Session, _ map[string]any, _ *models.ExecutionContext, _ *slog.Logger) (any, error) {
	return nil, session.Page().Forward(ctx)
}

type refreshAction struct{}

func (a *refreshAction) Kind() string                    { return KindRefresh }
func (a *refreshAction) Validate(_ map[string]any) error { return nil }

func (a *refreshAction) Execute(ctx context.Context, session browser.Session, _ map[string]any, _ *models.ExecutionContext, _ *slog.Logger) (any, error) {
	return nil, session.Page().Refresh(ctx)
}

type newTabAction struct{}

func (a *newTabAction) Kind() string                    { return KindNewTab }
func (a *newTabAction) Validate(_ map[string]any) error { return nil }

func (a *newTabAction) Execute(ctx context.Context, session browser.Session, config map[string]any, _ *models.ExecutionContext, _ *slog.Logger) (any, error) {
	page, err := session.NewTab(ctx)
	if err != nil {
		return nil, fmt.Errorf("open tab: %w", err)
	}

	if targetURL := configString(config, "url"); targetURL != "" {
		if err := page.Navigate(ctx, targetURL); err != nil {
			return nil, fmt.Errorf("navigate new tab to %s: %w", targetURL, err)
		}
	}

	return nil, nil
}

type closeTabAction struct{}

func (a *closeTabAction) Kind() string                    { return KindCloseTab }
func (a *closeTabAction) Validate(_ map[string]any) error { return nil }

func (a *closeTabAction) Execute(ctx context.Context, session browser.Session, _ map[string]any, _ *models.ExecutionContext, _ *slog.Logger) (any, error) {
	return nil, session.CloseTab(ctx)
}
