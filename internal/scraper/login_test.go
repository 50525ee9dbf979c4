package scraper_test

import (
	"context"
	"errors"
	"testing"

	"CampaignScraper/internal/scraper"
	"CampaignScraper/internal/scraper/scrapertest"
	"CampaignScraper/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginSuccess(t *testing.T) {
	site := config.DefaultSite()
	sess := &scrapertest.Session{}

	err := scraper.Login(context.Background(), sess, site, "me@example.com", "secret", 0)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"navigate " + site.SignInURL,
		"wait " + site.SignInForm,
		"input " + site.EmailInput + " me@example.com",
		"input " + site.PasswordInput + " secret",
		"shadow " + site.CookieHost + " " + site.CookieDismiss,
		"click " + site.SubmitButton,
		"html",
	}, sess.Calls())
}

func TestLoginRejected(t *testing.T) {
	site := config.DefaultSite()
	sess := &scrapertest.Session{
		HTMLFn: func(context.Context) (string, error) {
			return `<div class="Toastify__toast">Invalid email or password</div>`, nil
		},
	}

	err := scraper.Login(context.Background(), sess, site, "me@example.com", "wrong", 0)
	assert.ErrorIs(t, err, scraper.ErrLoginFailed)
}

func TestLoginIgnoresUnrelatedToast(t *testing.T) {
	site := config.DefaultSite()
	sess := &scrapertest.Session{
		HTMLFn: func(context.Context) (string, error) {
			return `<div class="Toastify__toast">Welcome back</div>`, nil
		},
	}
	assert.NoError(t, scraper.Login(context.Background(), sess, site, "me@example.com", "secret", 0))
}

func TestLoginCookieBannerIsOptional(t *testing.T) {
	site := config.DefaultSite()
	sess := &scrapertest.Session{
		ClickShadowFn: func(context.Context, string, string) error {
			return scraper.ErrElementNotFound
		},
	}
	assert.NoError(t, scraper.Login(context.Background(), sess, site, "me@example.com", "secret", 0))
}

func TestLoginMissingCredentials(t *testing.T) {
	sess := &scrapertest.Session{}
	err := scraper.Login(context.Background(), sess, config.DefaultSite(), "", "", 0)
	assert.ErrorIs(t, err, scraper.ErrLoginFailed)
	assert.Empty(t, sess.Calls())
}

func TestLoginFormTimeout(t *testing.T) {
	timeout := &scraper.ErrTimeout{Op: "wait for form", Err: context.DeadlineExceeded}
	sess := &scrapertest.Session{
		WaitForFn: func(context.Context, string) error { return timeout },
	}

	err := scraper.Login(context.Background(), sess, config.DefaultSite(), "me@example.com", "secret", 0)
	require.Error(t, err)
	assert.True(t, scraper.IsTimeout(err))
	assert.False(t, errors.Is(err, scraper.ErrLoginFailed))
}

func TestIsTimeout(t *testing.T) {
	wrapped := errors.Join(errors.New("other"), &scraper.ErrTimeout{Op: "x", Err: context.DeadlineExceeded})
	assert.True(t, scraper.IsTimeout(wrapped))
	assert.True(t, errors.Is(wrapped, context.DeadlineExceeded))
	assert.False(t, scraper.IsTimeout(errors.New("boom")))
}
