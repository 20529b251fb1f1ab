package warmup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/emberflow/emberflow/pkg/browser"
	"github.com/emberflow/emberflow/pkg/persistence"
	"github.com/emberflow/emberflow/pkg/totp"
)

// Login methods, in fallback order.
const (
	MethodResourceCookies = "cookies_resource"
	MethodCachedCookies   = "cookies_cached"
	MethodCredentials     = "credentials"
)

const (
	cookieCacheTTL   = 30 * time.Minute
	cookieCacheSweep = 10 * time.Minute
	loginWaitTimeout = 30 * time.Second
)

// LoginResult reports which method established the session.
type LoginResult struct {
	Method string `json:"method"`
}

// LoginHandler establishes an authenticated session for a profile using
// the hybrid chain: cookies attached to the profile resource, then the
// in-process cookie cache, then cookies persisted from earlier runs, and
// finally a credential form login. Fresh cookies from a credential login
// are cached and persisted for the next day.
type LoginHandler struct {
	cookies persistence.CookieRepository
	cache   *gocache.Cache
	totp    totp.Generator
	logger  *slog.Logger
}

func NewLoginHandler(cookies persistence.CookieRepository, generator totp.Generator, logger *slog.Logger) *LoginHandler {
	return &LoginHandler{
		cookies: cookies,
		cache:   gocache.New(cookieCacheTTL, cookieCacheSweep),
		totp:    generator,
		logger:  logger,
	}
}

// Login works through the method chain until one leaves the session
// authenticated. It returns ErrNoValidLoginMethod when every applicable
// method has been tried and failed.
func (h *LoginHandler) Login(ctx context.Context, session browser.Session, profile browser.Profile) (*LoginResult, error) {
	flow, err := flowFor(profile.Platform)
	if err != nil {
		return nil, err
	}

	logger := h.logger.With("profile_id", profile.ID, "platform", profile.Platform)

	if len(profile.Cookies) > 0 {
		if err := h.loginWithCookies(ctx, session, flow, profile.Cookies); err == nil {
			logger.Info("logged in with profile cookies")

			return &LoginResult{Method: MethodResourceCookies}, nil
		}

		logger.Warn("profile cookies rejected, falling back")
	}

	if cached, ok := h.cache.Get(cookieKey(profile)); ok {
		if err := h.loginWithCookies(ctx, session, flow, cached.([]browser.Cookie)); err == nil {
			logger.Info("logged in with cached cookies")

			return &LoginResult{Method: MethodCachedCookies}, nil
		}

		h.cache.Delete(cookieKey(profile))
		logger.Warn("cached cookies rejected, falling back")
	}

	if stored, err := h.cookies.Get(ctx, profile.ID, profile.Platform); err == nil && len(stored) > 0 {
		if err := h.loginWithCookies(ctx, session, flow, stored); err == nil {
			logger.Info("logged in with persisted cookies")

			return &LoginResult{Method: MethodCachedCookies}, nil
		}

		logger.Warn("persisted cookies rejected, falling back")
	}

	if profile.Username == "" || profile.Password == "" {
		return nil, fmt.Errorf("%w: no cookies accepted and no credentials on profile", ErrNoValidLoginMethod)
	}

	if err := h.loginWithCredentials(ctx, session, flow, profile); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoValidLoginMethod, err)
	}

	logger.Info("logged in with credentials")
	h.storeFreshCookies(ctx, session, profile, logger)

	return &LoginResult{Method: MethodCredentials}, nil
}

// loginWithCookies installs a cookie jar, loads the home page and checks
// for the logged-in marker.
func (h *LoginHandler) loginWithCookies(ctx context.Context, session browser.Session, flow platformFlow, cookies []browser.Cookie) error {
	page := session.Page()

	if err := page.ClearCookies(ctx); err != nil {
		return err
	}

	if err := page.SetCookies(ctx, cookies); err != nil {
		return err
	}

	if err := page.Navigate(ctx, flow.HomeURL); err != nil {
		return err
	}

	return page.WaitForSelector(ctx, flow.LoggedInSelector, loginWaitTimeout)
}

// loginWithCredentials drives the platform's login form, including
// two-step identifier flows and an optional TOTP challenge.
func (h *LoginHandler) loginWithCredentials(ctx context.Context, session browser.Session, flow platformFlow, profile browser.Profile) error {
	page := session.Page()
	opts := browser.ActionOptions{Timeout: loginWaitTimeout}

	if err := page.Navigate(ctx, flow.LoginURL); err != nil {
		return fmt.Errorf("%w: open login page: %w", ErrLoginFailed, err)
	}

	if err := page.Fill(ctx, flow.IdentifierSelector, profile.Username, opts); err != nil {
		return fmt.Errorf("%w: fill identifier: %w", ErrLoginFailed, err)
	}

	if flow.IdentifierNext != "" {
		if err := page.Click(ctx, flow.IdentifierNext, opts); err != nil {
			return fmt.Errorf("%w: advance past identifier: %w", ErrLoginFailed, err)
		}
	}

	if err := page.Fill(ctx, flow.PasswordSelector, profile.Password, opts); err != nil {
		return fmt.Errorf("%w: fill password: %w", ErrLoginFailed, err)
	}

	if err := page.Click(ctx, flow.SubmitSelector, opts); err != nil {
		return fmt.Errorf("%w: submit: %w", ErrLoginFailed, err)
	}

	if profile.TOTPSecret != "" {
		if err := h.solveTwoFactor(ctx, page, flow, profile); err != nil {
			return err
		}
	}

	if err := page.WaitForSelector(ctx, flow.LoggedInSelector, loginWaitTimeout); err != nil {
		return fmt.Errorf("%w: logged-in marker never appeared: %w", ErrLoginFailed, err)
	}

	return nil
}

func (h *LoginHandler) solveTwoFactor(ctx context.Context, page browser.Page, flow platformFlow, profile browser.Profile) error {
	opts := browser.ActionOptions{Timeout: loginWaitTimeout}

	// The challenge only appears for enrolled accounts; a missing input
	// means the platform skipped it and login continues normally.
	if err := page.WaitForSelector(ctx, flow.TwoFactorSelector, 10*time.Second); err != nil {
		return nil
	}

	code, err := h.totp.Code(profile.TOTPSecret, time.Now())
	if err != nil {
		return fmt.Errorf("%w: generate totp code: %w", ErrLoginFailed, err)
	}

	if err := page.Fill(ctx, flow.TwoFactorSelector, code, opts); err != nil {
		return fmt.Errorf("%w: fill totp code: %w", ErrLoginFailed, err)
	}

	if err := page.Click(ctx, flow.TwoFactorSubmit, opts); err != nil {
		return fmt.Errorf("%w: submit totp code: %w", ErrLoginFailed, err)
	}

	return nil
}

// storeFreshCookies captures the authenticated jar for reuse. Failures
// here never fail the login; the session is already established.
func (h *LoginHandler) storeFreshCookies(ctx context.Context, session browser.Session, profile browser.Profile, logger *slog.Logger) {
	fresh, err := session.Page().Cookies(ctx)
	if err != nil {
		logger.Warn("could not capture session cookies", "error", err)

		return
	}

	h.cache.Set(cookieKey(profile), fresh, gocache.DefaultExpiration)

	if err := h.cookies.Save(ctx, profile.ID, profile.Platform, fresh); err != nil {
		logger.Warn("could not persist session cookies", "error", err)
	}
}

func cookieKey(profile browser.Profile) string {
	return profile.ID + "/" + profile.Platform
}
