// Package browser defines the capability interfaces the automation core
// consumes. The actual anti-detect browser driver lives outside the core
// and is injected through these interfaces.
package browser

import (
	"context"
	"time"
)

// Cookie is one browser cookie as handed over the session boundary.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path,omitempty"`
	Expires  float64 `json:"expires,omitempty"`
	HTTPOnly bool    `json:"http_only,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
	SameSite string  `json:"same_site,omitempty"`
}

// Profile carries the facts about one browser profile the core needs:
// identity for warm-up login and metadata exposed to variable resolution.
type Profile struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Platform   string         `json:"platform,omitempty"`
	Username   string         `json:"username,omitempty"`
	Password   string         `json:"password,omitempty"`
	TOTPSecret string         `json:"totp_secret,omitempty"`
	Cookies    []Cookie       `json:"cookies,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// ActionOptions tune a single page interaction.
type ActionOptions struct {
	Timeout time.Duration
}

// Page is one live browser page. Every call blocks until the operation
// settles or its timeout elapses, returning one of the sentinel failure
// kinds from this package.
type Page interface {
	Navigate(ctx context.Context, url string) error
	Back(ctx context.Context) error
	Forward(ctx context.Context) error
	Refresh(ctx context.Context) error
	URL(ctx context.Context) (string, error)

	Click(ctx context.Context, selector string, opts ActionOptions) error
	Type(ctx context.Context, selector, text string, opts ActionOptions) error
	Fill(ctx context.Context, selector, value string, opts ActionOptions) error
	SelectOption(ctx context.Context, selector, value string, opts ActionOptions) error
	Hover(ctx context.Context, selector string, opts ActionOptions) error
	Scroll(ctx context.Context, x, y int) error
	PressKey(ctx context.Context, key string) error
	Upload(ctx context.Context, selector string, files []string, opts ActionOptions) error

	WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error
	WaitForNavigation(ctx context.Context, timeout time.Duration) error
	WaitForNetworkIdle(ctx context.Context, timeout time.Duration) error
	WaitForText(ctx context.Context, text string, timeout time.Duration) error
	WaitForURL(ctx context.Context, pattern string, timeout time.Duration) error
	WaitForFunction(ctx context.Context, script string, timeout time.Duration) error

	Text(ctx context.Context, selector string) (string, error)
	Attribute(ctx context.Context, selector, name string) (string, error)
	Count(ctx context.Context, selector string) (int, error)
	Evaluate(ctx context.Context, script string) (any, error)
	Screenshot(ctx context.Context, path string) error

	Cookies(ctx context.Context) ([]Cookie, error)
	SetCookies(ctx context.Context, cookies []Cookie) error
	ClearCookies(ctx context.Context) error
}

// Session is one exclusive browser context for one profile. The executor
// driving it owns it for the whole run; tabs are managed through the
// session, with Page returning the active tab.
type Session interface {
	Page() Page
	NewTab(ctx context.Context) (Page, error)
	CloseTab(ctx context.Context) error
	Close(ctx context.Context) error
}

// Manager creates browser sessions. The caller is responsible for closing
// every session it acquires, regardless of outcome.
type Manager interface {
	CreateContext(ctx context.Context, profile Profile) (Session, error)
}
