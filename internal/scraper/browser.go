package scraper

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// RodLauncher launches a local Chromium through rod.
type RodLauncher struct {
	UserAgent      string
	ElementTimeout time.Duration
	// NavigationTimeout bounds page loads. Zero means three element timeouts.
	NavigationTimeout time.Duration
}

// Launch starts a browser and opens the stealth page used for the listing.
func (l *RodLauncher) Launch(_ context.Context, headless bool) (Session, error) {
	lnch := launcher.New().Headless(headless)
	u, err := lnch.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	// Pages get a context per call; the browser itself outlives run cancellation
	// until Close so in-flight orders can settle.
	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		lnch.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	s := &rodSession{
		browser:  browser,
		launcher: lnch,
		timeout:  l.ElementTimeout,
		navTime:  l.NavigationTimeout,
		ua:       l.UserAgent,
	}
	if s.timeout <= 0 {
		s.timeout = 10 * time.Second
	}
	if s.navTime <= 0 {
		s.navTime = 3 * s.timeout
	}

	page, err := s.newPage()
	if err != nil {
		s.Close()
		return nil, err
	}
	s.page = page
	return s, nil
}

type rodSession struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	page     *rod.Page
	timeout  time.Duration
	navTime  time.Duration
	ua       string
}

func (s *rodSession) newPage() (*rod.Page, error) {
	page, err := stealth.Page(s.browser)
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	if s.ua != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: s.ua}); err != nil {
			log.Printf("Could not set user agent: %v", err)
		}
	}
	if err := (proto.NetworkSetCacheDisabled{CacheDisabled: true}).Call(page); err != nil {
		log.Printf("Could not disable cache: %v", err)
	}
	return page, nil
}

func (s *rodSession) Navigate(ctx context.Context, url string) error {
	return navigate(ctx, s.page, url, s.navTime)
}

func (s *rodSession) Reload(ctx context.Context) error {
	p := s.page.Context(ctx).Timeout(s.navTime)
	if err := p.Reload(); err != nil {
		return wrapErr("reload", err)
	}
	return wrapErr("reload", p.WaitLoad())
}

func (s *rodSession) WaitFor(ctx context.Context, selector string) error {
	return waitVisible(ctx, s.page, selector, s.timeout)
}

func (s *rodSession) HTML(ctx context.Context) (string, error) {
	html, err := s.page.Context(ctx).Timeout(s.timeout).HTML()
	return html, wrapErr("read page", err)
}

func (s *rodSession) Input(ctx context.Context, selector, text string) error {
	el, err := s.page.Context(ctx).Timeout(s.timeout).Element(selector)
	if err != nil {
		return wrapErr("find "+selector, err)
	}
	return wrapErr("type into "+selector, el.Input(text))
}

func (s *rodSession) Click(ctx context.Context, selector string) error {
	return click(ctx, s.page, selector, s.timeout)
}

func (s *rodSession) ClickShadow(ctx context.Context, host, selector string) error {
	hostEl, err := s.page.Context(ctx).Timeout(s.timeout).Element(host)
	if err != nil {
		return wrapErr("find "+host, err)
	}
	root, err := hostEl.ShadowRoot()
	if err != nil {
		return wrapErr("open shadow root of "+host, err)
	}
	btn, err := root.Element(selector)
	if err != nil {
		return wrapErr("find "+selector, err)
	}
	return wrapErr("click "+selector, btn.Click(proto.InputMouseButtonLeft, 1))
}

func (s *rodSession) OpenDetail(ctx context.Context, url string) (Page, error) {
	page, err := s.newPage()
	if err != nil {
		return nil, err
	}
	if err := navigate(ctx, page, url, s.navTime); err != nil {
		page.Close()
		return nil, err
	}
	return &rodPage{page: page, timeout: s.timeout}, nil
}

func (s *rodSession) Close() error {
	var errs []error
	if s.browser != nil {
		errs = append(errs, s.browser.Close())
	}
	if s.launcher != nil {
		s.launcher.Kill()
	}
	return errors.Join(errs...)
}

type rodPage struct {
	page    *rod.Page
	timeout time.Duration
}

func (p *rodPage) Text(ctx context.Context, selector string) (string, error) {
	el, err := p.page.Context(ctx).Timeout(p.timeout).Element(selector)
	if err != nil {
		return "", wrapErr("find "+selector, err)
	}
	text, err := el.Text()
	return text, wrapErr("read "+selector, err)
}

func (p *rodPage) Attribute(ctx context.Context, selector, name string) (string, error) {
	el, err := p.page.Context(ctx).Timeout(p.timeout).Element(selector)
	if err != nil {
		return "", wrapErr("find "+selector, err)
	}
	v, err := el.Attribute(name)
	if err != nil {
		return "", wrapErr("read "+selector, err)
	}
	if v == nil {
		return "", fmt.Errorf("%s has no %s attribute: %w", selector, name, ErrElementNotFound)
	}
	return *v, nil
}

func (p *rodPage) Click(ctx context.Context, selector string) error {
	return click(ctx, p.page, selector, p.timeout)
}

func (p *rodPage) ClickIfPresent(ctx context.Context, selector string) (bool, error) {
	has, el, err := p.page.Context(ctx).Timeout(p.timeout).Has(selector)
	if err != nil {
		return false, wrapErr("look for "+selector, err)
	}
	if !has {
		return false, nil
	}
	if checked, err := el.Property("checked"); err == nil && checked.Bool() {
		return true, nil
	}
	return true, wrapErr("click "+selector, el.Click(proto.InputMouseButtonLeft, 1))
}

func (p *rodPage) WaitVisible(ctx context.Context, selector string) error {
	return waitVisible(ctx, p.page, selector, p.timeout)
}

func (p *rodPage) Close() error {
	return p.page.Close()
}

func navigate(ctx context.Context, page *rod.Page, url string, timeout time.Duration) error {
	p := page.Context(ctx).Timeout(timeout)
	if err := p.Navigate(url); err != nil {
		return wrapErr("navigate to "+url, err)
	}
	return wrapErr("load "+url, p.WaitLoad())
}

func waitVisible(ctx context.Context, page *rod.Page, selector string, timeout time.Duration) error {
	el, err := page.Context(ctx).Timeout(timeout).Element(selector)
	if err != nil {
		return wrapErr("wait for "+selector, err)
	}
	return wrapErr("wait for "+selector, el.WaitVisible())
}

func click(ctx context.Context, page *rod.Page, selector string, timeout time.Duration) error {
	el, err := page.Context(ctx).Timeout(timeout).Element(selector)
	if err != nil {
		return wrapErr("find "+selector, err)
	}
	return wrapErr("click "+selector, el.Click(proto.InputMouseButtonLeft, 1))
}

// wrapErr classifies rod errors: expired waits become *ErrTimeout.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &ErrTimeout{Op: op, Err: err}
	}
	var notFound *rod.ErrElementNotFound
	if errors.As(err, &notFound) {
		return fmt.Errorf("%s: %w", op, ErrElementNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}
