package actions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/emberflow/emberflow/pkg/browser"
	"github.com/emberflow/emberflow/pkg/models"
)

type javascriptAction struct{}

func (a *javascriptAction) Kind() string { return KindJavascript }

func (a *javascriptAction) Validate(config map[string]any) error {
	_, err := requireString(config, "script")

	return err
}

// Execute evaluates arbitrary script in the page context and captures its
// return value as the step output.
func (a *javascriptAction) Execute(ctx context.Context, session browser.Session, config map[string]any, ectx *models.ExecutionContext, logger *slog.Logger) (any, error) {
	script, err := requireString(config, "script")
	if err != nil {
		return nil, err
	}

	logger.DebugContext(ctx, "Evaluating script in page context")

	result, err := session.Page().Evaluate(ctx, script)
	if err != nil {
		if errors.Is(err, browser.ErrScript) {
			return nil, err
		}

		return nil, fmt.Errorf("%w: %v", browser.ErrScript, err)
	}

	storeOutput(config, ectx, result)

	return result, nil
}

type httpRequestAction struct{}

// RetryConfig defines retry behavior for HTTP request steps.
type RetryConfig struct {
	Attempts int
	Delay    int
}

func (a *httpRequestAction) Kind() string { return KindHTTPRequest }

func (a *httpRequestAction) Validate(config map[string]any) error {
	_, err := requireString(config, "url")

	return err
}

// Execute performs a conventional out-of-band HTTP call, independent of
// the page, with retry on transport errors and 5xx responses.
func (a *httpRequestAction) Execute(ctx context.Context, _ browser.Session, config map[string]any, ectx *models.ExecutionContext, logger *slog.Logger) (any, error) {
	requestURL, err := requireString(config, "url")
	if err != nil {
		return nil, err
	}

	method := strings.ToUpper(configString(config, "method"))
	if method == "" {
		method = http.MethodGet
	}

	body := configString(config, "body")
	headers := parseHeaders(config)
	retry := parseRetryConfig(config["retry"])
	timeout := configTimeout(config)

	logger = logger.With("method", method, "url", requestURL)

	var (
		lastErr error
		resp    *http.Response
	)

	for attempt := 1; attempt <= retry.Attempts; attempt++ {
		if attempt > 1 {
			logger.InfoContext(ctx, fmt.Sprintf("HTTP request retry attempt %d/%d", attempt, retry.Attempts))
			time.Sleep(time.Duration(retry.Delay) * time.Second)
		}

		var bodyReader io.Reader
		if body != "" {
			bodyReader = strings.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, requestURL, bodyReader)
		if err != nil {
			lastErr = fmt.Errorf("build http request: %w", err)

			continue
		}

		for key, value := range headers {
			req.Header.Set(key, value)
		}

		client := &http.Client{Timeout: timeout}

		resp, err = client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request failed: %w", err)

			continue
		}

		if resp.StatusCode >= http.StatusInternalServerError && attempt < retry.Attempts {
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("server error (status %d), retrying", resp.StatusCode)
			resp = nil

			continue
		}

		break
	}

	if resp == nil {
		return nil, fmt.Errorf("all retry attempts failed, last error: %w", lastErr)
	}

	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	var parsedBody any
	if err := json.Unmarshal(bodyBytes, &parsedBody); err != nil {
		parsedBody = string(bodyBytes)
	}

	result := map[string]any{
		"status_code": resp.StatusCode,
		"body":        parsedBody,
		"headers":     flattenHeaders(resp.Header),
	}

	storeOutput(config, ectx, result)
	logger.InfoContext(ctx, "HTTP request completed", "status", resp.StatusCode, "body_length", len(bodyBytes))

	return result, nil
}

func parseHeaders(config map[string]any) map[string]string {
	headers := make(map[string]string)

	headersConfig, ok := config["headers"].(map[string]any)
	if !ok {
		return headers
	}

	for key, value := range headersConfig {
		if strVal, ok := value.(string); ok {
			headers[key] = strVal
		}
	}

	return headers
}

func parseRetryConfig(retryConfig any) RetryConfig {
	retry := RetryConfig{Attempts: 1, Delay: 0}

	retryMap, ok := retryConfig.(map[string]any)
	if !ok {
		return retry
	}

	if attempts, ok := retryMap["attempts"].(float64); ok {
		retry.Attempts = int(attempts)
	}

	if delay, ok := retryMap["delay"].(float64); ok {
		retry.Delay = int(delay)
	}

	return retry
}

func flattenHeaders(header http.Header) map[string]string {
	flat := make(map[string]string, len(header))
	for key := range header {
		flat[key] = header.Get(key)
	}

	return flat
}

type assertAction struct{}

func (a *assertAction) Kind() string { return KindAssert }

func (a *assertAction) Validate(config map[string]any) error {
	_, err := requireString(config, "expression")

	return err
}

// Execute raises a typed failure when its condition is false, distinct
// from action-execution failures.
func (a *assertAction) Execute(ctx context.Context, session browser.Session, config map[string]any, ectx *models.ExecutionContext, _ *slog.Logger) (any, error) {
	expression, err := requireString(config, "expression")
	if err != nil {
		return nil, err
	}

	ok, err := EvaluatePredicate(ctx, session, expression, "", ectx)
	if err != nil {
		return nil, err
	}

	if !ok {
		message := configString(config, "message")
		if message == "" {
			message = expression
		}

		return nil, fmt.Errorf("%w: %s", ErrAssertionFailed, message)
	}

	return true, nil
}
