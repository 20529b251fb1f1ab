package warmup

import (
	"context"
	"fmt"
	"time"

	"github.com/emberflow/emberflow/pkg/browser"
)

// platformFlow carries the site-specific configuration for one platform:
// login URLs, form selectors (including two-step identifier-then-password
// flows) and the selectors the daily actions drive. Values live here as
// configuration data; the engine logic is platform-agnostic.
type platformFlow struct {
	HomeURL      string
	LoginURL     string
	CookieDomain string

	// Two-step flows fill IdentifierSelector, click IdentifierNext and
	// only then see the password field. Single-form flows leave
	// IdentifierNext empty.
	IdentifierSelector string
	IdentifierNext     string
	PasswordSelector   string
	SubmitSelector     string

	TwoFactorSelector string
	TwoFactorSubmit   string

	// LoggedInSelector appears only for authenticated users.
	LoggedInSelector string

	FeedSelector    string
	PostSelector    string
	LikeSelector    string
	FollowSelector  string
	StorySelector   string
	ProfileSelector string
	SearchSelector  string
}

var platformFlows = map[string]platformFlow{
	"twitter": {
		HomeURL:            "https://x.com/home",
		LoginURL:           "https://x.com/i/flow/login",
		CookieDomain:       ".x.com",
		IdentifierSelector: `input[autocomplete="username"]`,
		IdentifierNext:     `button:has-text("Next")`,
		PasswordSelector:   `input[name="password"]`,
		SubmitSelector:     `button[data-testid="LoginForm_Login_Button"]`,
		TwoFactorSelector:  `input[data-testid="ocfEnterTextTextInput"]`,
		TwoFactorSubmit:    `button[data-testid="ocfEnterTextNextButton"]`,
		LoggedInSelector:   `a[data-testid="AppTabBar_Home_Link"]`,
		FeedSelector:       `div[data-testid="primaryColumn"]`,
		PostSelector:       `article[data-testid="tweet"]`,
		LikeSelector:       `button[data-testid="like"]`,
		FollowSelector:     `button[data-testid$="-follow"]`,
		ProfileSelector:    `div[data-testid="UserAvatar-Container-unknown"]`,
		SearchSelector:     `input[data-testid="SearchBox_Search_Input"]`,
	},
	"instagram": {
		HomeURL:            "https://www.instagram.com/",
		LoginURL:           "https://www.instagram.com/accounts/login/",
		CookieDomain:       ".instagram.com",
		IdentifierSelector: `input[name="username"]`,
		PasswordSelector:   `input[name="password"]`,
		SubmitSelector:     `button[type="submit"]`,
		TwoFactorSelector:  `input[name="verificationCode"]`,
		TwoFactorSubmit:    `button[type="button"]`,
		LoggedInSelector:   `svg[aria-label="Home"]`,
		FeedSelector:       `main[role="main"]`,
		PostSelector:       `article`,
		LikeSelector:       `svg[aria-label="Like"]`,
		FollowSelector:     `button:has-text("Follow")`,
		StorySelector:      `div[role="presentation"] canvas`,
		ProfileSelector:    `header section`,
		SearchSelector:     `input[aria-label="Search input"]`,
	},
	"facebook": {
		HomeURL:            "https://www.facebook.com/",
		LoginURL:           "https://www.facebook.com/login/",
		CookieDomain:       ".facebook.com",
		IdentifierSelector: `input[name="email"]`,
		PasswordSelector:   `input[name="pass"]`,
		SubmitSelector:     `button[name="login"]`,
		TwoFactorSelector:  `input[name="approvals_code"]`,
		TwoFactorSubmit:    `button[type="submit"]`,
		LoggedInSelector:   `div[aria-label="Your profile"]`,
		FeedSelector:       `div[role="feed"]`,
		PostSelector:       `div[role="article"]`,
		LikeSelector:       `div[aria-label="Like"]`,
		FollowSelector:     `div[aria-label="Follow"]`,
		StorySelector:      `div[aria-label="Stories"]`,
		ProfileSelector:    `div[role="banner"]`,
		SearchSelector:     `input[aria-label="Search Facebook"]`,
	},
}

// flowFor resolves a platform, tolerating the twitter/x rename.
func flowFor(platform string) (platformFlow, error) {
	if platform == "x" {
		platform = "twitter"
	}

	flow, ok := platformFlows[platform]
	if !ok {
		return platformFlow{}, fmt.Errorf("%w: %q", ErrUnknownPlatform, platform)
	}

	return flow, nil
}

// ActionFunc performs one repetition of a daily warm-up action.
type ActionFunc func(ctx context.Context, session browser.Session) error

const actionStepTimeout = 10 * time.Second

// actionHandlers builds the daily-action lookup for one platform. A
// warm-up template may name actions outside this map; those are logged
// and skipped by the executor.
func actionHandlers(flow platformFlow) map[string]ActionFunc {
	opts := browser.ActionOptions{Timeout: actionStepTimeout}

	handlers := map[string]ActionFunc{
		"browse_feed": func(ctx context.Context, session browser.Session) error {
			page := session.Page()
			if err := page.Navigate(ctx, flow.HomeURL); err != nil {
				return err
			}

			return page.Scroll(ctx, 0, 800)
		},
		"scroll_feed": func(ctx context.Context, session browser.Session) error {
			return session.Page().Scroll(ctx, 0, 600)
		},
		"like_posts": func(ctx context.Context, session browser.Session) error {
			return session.Page().Click(ctx, flow.LikeSelector, opts)
		},
		"follow_users": func(ctx context.Context, session browser.Session) error {
			return session.Page().Click(ctx, flow.FollowSelector, opts)
		},
		"view_profiles": func(ctx context.Context, session browser.Session) error {
			page := session.Page()
			if err := page.Click(ctx, flow.ProfileSelector, opts); err != nil {
				return err
			}

			return page.Back(ctx)
		},
	}

	if flow.StorySelector != "" {
		handlers["watch_stories"] = func(ctx context.Context, session browser.Session) error {
			return session.Page().Click(ctx, flow.StorySelector, opts)
		}
	}

	if flow.SearchSelector != "" {
		handlers["search"] = func(ctx context.Context, session browser.Session) error {
			return session.Page().Click(ctx, flow.SearchSelector, opts)
		}
	}

	return handlers
}
