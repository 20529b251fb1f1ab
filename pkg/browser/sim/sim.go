// Package sim provides a deterministic in-memory browser used for
// workflow dry runs and tests. Pages hold scriptable content instead of a
// rendered DOM; script evaluation runs on a real JavaScript interpreter
// so evaluate steps behave like they would against a live page.
package sim

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"
	"github.com/emberflow/emberflow/pkg/browser"
)

// Manager creates simulated sessions. Zero value is usable.
type Manager struct {
	mu         sync.Mutex
	FailCreate error
	sessions   []*Session
}

func NewManager() *Manager {
	return &Manager{}
}

func (m *Manager) CreateContext(_ context.Context, profile browser.Profile) (browser.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailCreate != nil {
		return nil, m.FailCreate
	}

	session := &Session{profile: profile, pages: []*Page{NewPage()}}
	m.sessions = append(m.sessions, session)

	return session, nil
}

// Sessions returns every session created so far, closed or not.
func (m *Manager) Sessions() []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]*Session(nil), m.sessions...)
}

// Session is one simulated browser context.
type Session struct {
	mu      sync.Mutex
	profile browser.Profile
	pages   []*Page
	active  int
	closed  bool
}

func (s *Session) Page() browser.Page {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.pages[s.active]
}

// ActivePage returns the active tab with its concrete type, for tests
// that need to seed content mid-run.
func (s *Session) ActivePage() *Page {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.pages[s.active]
}

func (s *Session) NewTab(_ context.Context) (browser.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	page := NewPage()
	s.pages = append(s.pages, page)
	s.active = len(s.pages) - 1

	return page, nil
}

func (s *Session) CloseTab(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pages) == 1 {
		return fmt.Errorf("cannot close the last tab")
	}

	s.pages = append(s.pages[:s.active], s.pages[s.active+1:]...)
	if s.active >= len(s.pages) {
		s.active = len(s.pages) - 1
	}

	return nil
}

func (s *Session) Close(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true

	return nil
}

// Closed reports whether Close was called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closed
}

// Page is one simulated tab. Content, Attributes, Counts and Fail are
// seeded by callers; every interaction is appended to Actions.
type Page struct {
	mu sync.Mutex

	Content     map[string]string
	Attributes  map[string]map[string]string
	Counts      map[string]int
	Fail        map[string]error
	EvalResults map[string]any

	url     string
	history []string
	forward []string
	cookies []browser.Cookie

	Actions []string
}

func NewPage() *Page {
	return &Page{
		Content:     make(map[string]string),
		Attributes:  make(map[string]map[string]string),
		Counts:      make(map[string]int),
		Fail:        make(map[string]error),
		EvalResults: make(map[string]any),
	}
}

func (p *Page) record(format string, args ...any) {
	p.Actions = append(p.Actions, fmt.Sprintf(format, args...))
}

// failFor returns the seeded error for a selector, if any.
func (p *Page) failFor(selector string) error {
	if err, ok := p.Fail[selector]; ok {
		return err
	}

	return nil
}

func (p *Page) Navigate(_ context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.record("navigate:%s", url)

	if err := p.failFor(url); err != nil {
		return err
	}

	if p.url != "" {
		p.history = append(p.history, p.url)
	}

	p.url = url
	p.forward = nil

	return nil
}

func (p *Page) Back(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.record("back")

	if len(p.history) == 0 {
		return nil
	}

	p.forward = append(p.forward, p.url)
	p.url = p.history[len(p.history)-1]
	p.history = p.history[:len(p.history)-1]

	return nil
}

func (p *Page) Forward(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.record("forward")

	if len(p.forward) == 0 {
		return nil
	}

	p.history = append(p.history, p.url)
	p.url = p.forward[len(p.forward)-1]
	p.forward = p.forward[:len(p.forward)-1]

	return nil
}

func (p *Page) Refresh(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.record("refresh")

	return nil
}

func (p *Page) URL(_ context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.url, nil
}

func (p *Page) interact(op, selector string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.record("%s:%s", op, selector)

	return p.failFor(selector)
}

func (p *Page) Click(_ context.Context, selector string, _ browser.ActionOptions) error {
	return p.interact("click", selector)
}

func (p *Page) Type(_ context.Context, selector, text string, _ browser.ActionOptions) error {
	if err := p.interact("type", selector); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.Content[selector] += text

	return nil
}

func (p *Page) Fill(_ context.Context, selector, value string, _ browser.ActionOptions) error {
	if err := p.interact("fill", selector); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.Content[selector] = value

	return nil
}

func (p *Page) SelectOption(_ context.Context, selector, value string, _ browser.ActionOptions) error {
	if err := p.interact("select", selector); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.Content[selector] = value

	return nil
}

func (p *Page) Hover(_ context.Context, selector string, _ browser.ActionOptions) error {
	return p.interact("hover", selector)
}

func (p *Page) Scroll(_ context.Context, x, y int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.record("scroll:%d,%d", x, y)

	return nil
}

func (p *Page) PressKey(_ context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.record("press:%s", key)

	return nil
}

func (p *Page) Upload(_ context.Context, selector string, files []string, _ browser.ActionOptions) error {
	if err := p.interact("upload", selector); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.Content[selector] = strings.Join(files, ",")

	return nil
}

func (p *Page) WaitForSelector(_ context.Context, selector string, _ time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.record("wait-selector:%s", selector)

	if err := p.failFor(selector); err != nil {
		return err
	}

	if _, ok := p.Content[selector]; ok {
		return nil
	}

	if _, ok := p.Counts[selector]; ok {
		return nil
	}

	return fmt.Errorf("selector %q: %w", selector, browser.ErrWaitTimeout)
}

func (p *Page) WaitForNavigation(_ context.Context, _ time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.record("wait-navigation")

	return nil
}

func (p *Page) WaitForNetworkIdle(_ context.Context, _ time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.record("wait-network-idle")

	return nil
}

func (p *Page) WaitForText(_ context.Context, text string, _ time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.record("wait-text:%s", text)

	for _, content := range p.Content {
		if strings.Contains(content, text) {
			return nil
		}
	}

	return fmt.Errorf("text %q: %w", text, browser.ErrWaitTimeout)
}

func (p *Page) WaitForURL(_ context.Context, pattern string, _ time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.record("wait-url:%s", pattern)

	if strings.Contains(p.url, pattern) {
		return nil
	}

	return fmt.Errorf("url pattern %q: %w", pattern, browser.ErrWaitTimeout)
}

func (p *Page) WaitForFunction(ctx context.Context, script string, _ time.Duration) error {
	result, err := p.Evaluate(ctx, script)
	if err != nil {
		return err
	}

	if truthy, ok := result.(bool); ok && truthy {
		return nil
	}

	return fmt.Errorf("function predicate %q: %w", script, browser.ErrWaitTimeout)
}

func (p *Page) Text(_ context.Context, selector string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.failFor(selector); err != nil {
		return "", err
	}

	text, ok := p.Content[selector]
	if !ok {
		return "", fmt.Errorf("selector %q: %w", selector, browser.ErrElementNotFound)
	}

	return text, nil
}

func (p *Page) Attribute(_ context.Context, selector, name string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.failFor(selector); err != nil {
		return "", err
	}

	attrs, ok := p.Attributes[selector]
	if !ok {
		return "", fmt.Errorf("selector %q: %w", selector, browser.ErrElementNotFound)
	}

	return attrs[name], nil
}

func (p *Page) Count(_ context.Context, selector string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.Counts[selector], nil
}

func (p *Page) Evaluate(_ context.Context, script string) (any, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.record("evaluate")

	if result, ok := p.EvalResults[script]; ok {
		return result, nil
	}

	vm := goja.New()

	value, err := vm.RunString(script)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", browser.ErrScript, err)
	}

	return value.Export(), nil
}

func (p *Page) Screenshot(_ context.Context, path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.record("screenshot:%s", path)

	return nil
}

func (p *Page) Cookies(_ context.Context) ([]browser.Cookie, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]browser.Cookie(nil), p.cookies...), nil
}

func (p *Page) SetCookies(_ context.Context, cookies []browser.Cookie) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.record("set-cookies:%d", len(cookies))
	p.cookies = append(p.cookies, cookies...)

	return nil
}

func (p *Page) ClearCookies(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.record("clear-cookies")
	p.cookies = nil

	return nil
}
