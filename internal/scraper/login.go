package scraper

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"CampaignScraper/pkg/config"
	"CampaignScraper/utils"

	"github.com/PuerkitoBio/goquery"
)

// Login signs in on the session's main page. A recognizable failure toast
// yields ErrLoginFailed; the cookie banner is dismissed when present.
func Login(ctx context.Context, sess Session, site config.SiteConfig, username, password string, stepDelay time.Duration) error {
	if username == "" || password == "" {
		return fmt.Errorf("%w: missing credentials", ErrLoginFailed)
	}

	log.Println("Opening sign-in page...")
	if err := sess.Navigate(ctx, site.SignInURL); err != nil {
		return fmt.Errorf("failed to open sign-in page: %w", err)
	}
	if err := sess.WaitFor(ctx, site.SignInForm); err != nil {
		return fmt.Errorf("sign-in form did not render: %w", err)
	}
	if err := sess.Input(ctx, site.EmailInput, username); err != nil {
		return fmt.Errorf("failed to type email: %w", err)
	}
	if err := sess.Input(ctx, site.PasswordInput, password); err != nil {
		return fmt.Errorf("failed to type password: %w", err)
	}
	if !utils.Sleep(ctx, stepDelay) {
		return ctx.Err()
	}

	if site.CookieHost != "" && site.CookieDismiss != "" {
		if err := sess.ClickShadow(ctx, site.CookieHost, site.CookieDismiss); err != nil {
			log.Printf("Cookie banner not dismissed: %v", err)
		}
	}

	if err := sess.Click(ctx, site.SubmitButton); err != nil {
		return fmt.Errorf("failed to submit credentials: %w", err)
	}
	if !utils.Sleep(ctx, stepDelay) {
		return ctx.Err()
	}

	html, err := sess.HTML(ctx)
	if err != nil {
		return fmt.Errorf("failed to read page after sign-in: %w", err)
	}
	rejected, err := loginRejected(html, site)
	if err != nil {
		return err
	}
	if rejected {
		return ErrLoginFailed
	}
	log.Println("Signed in")
	return nil
}

func loginRejected(html string, site config.SiteConfig) (bool, error) {
	if site.LoginErrorToast == "" {
		return false, nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false, fmt.Errorf("failed to parse page after sign-in: %w", err)
	}
	want := strings.ToLower(site.LoginErrorText)
	rejected := false
	doc.Find(site.LoginErrorToast).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if want == "" || strings.Contains(strings.ToLower(s.Text()), want) {
			rejected = true
			return false
		}
		return true
	})
	return rejected, nil
}
