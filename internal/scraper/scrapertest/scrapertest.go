// Package scrapertest provides in-memory scraper.Session and scraper.Page
// implementations for tests.
package scrapertest

import (
	"context"
	"fmt"
	"sync"

	"CampaignScraper/internal/scraper"
)

// Session is a scripted scraper.Session. Nil hooks succeed.
type Session struct {
	NavigateFn    func(ctx context.Context, url string) error
	ReloadFn      func(ctx context.Context) error
	WaitForFn     func(ctx context.Context, selector string) error
	HTMLFn        func(ctx context.Context) (string, error)
	OpenDetailFn  func(ctx context.Context, url string) (scraper.Page, error)
	ClickShadowFn func(ctx context.Context, host, selector string) error

	mu     sync.Mutex
	calls  []string
	closed int
}

func (s *Session) record(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, fmt.Sprintf(format, args...))
}

// Calls returns the recorded calls in order, e.g. "navigate https://x" or "reload".
func (s *Session) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// Count returns how many recorded calls equal call.
func (s *Session) Count(call string) int {
	n := 0
	for _, c := range s.Calls() {
		if c == call {
			n++
		}
	}
	return n
}

// Closed returns how many times Close was called.
func (s *Session) Closed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	s.record("navigate %s", url)
	if s.NavigateFn != nil {
		return s.NavigateFn(ctx, url)
	}
	return nil
}

func (s *Session) Reload(ctx context.Context) error {
	s.record("reload")
	if s.ReloadFn != nil {
		return s.ReloadFn(ctx)
	}
	return nil
}

func (s *Session) WaitFor(ctx context.Context, selector string) error {
	s.record("wait %s", selector)
	if s.WaitForFn != nil {
		return s.WaitForFn(ctx, selector)
	}
	return nil
}

func (s *Session) HTML(ctx context.Context) (string, error) {
	s.record("html")
	if s.HTMLFn != nil {
		return s.HTMLFn(ctx)
	}
	return "<html><body></body></html>", nil
}

func (s *Session) Input(_ context.Context, selector, text string) error {
	s.record("input %s %s", selector, text)
	return nil
}

func (s *Session) Click(_ context.Context, selector string) error {
	s.record("click %s", selector)
	return nil
}

func (s *Session) ClickShadow(ctx context.Context, host, selector string) error {
	s.record("shadow %s %s", host, selector)
	if s.ClickShadowFn != nil {
		return s.ClickShadowFn(ctx, host, selector)
	}
	return nil
}

func (s *Session) OpenDetail(ctx context.Context, url string) (scraper.Page, error) {
	s.record("detail %s", url)
	if s.OpenDetailFn != nil {
		return s.OpenDetailFn(ctx, url)
	}
	return &Page{}, nil
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	s.calls = append(s.calls, "close")
	return nil
}

// Page is a scripted scraper.Page. Selectors in Texts and Attrs exist;
// Missing selectors are absent; anything else can be clicked.
type Page struct {
	Texts   map[string]string
	Attrs   map[string]string // keyed by selector + "@" + attribute name
	Missing map[string]bool
	ClickFn func(ctx context.Context, selector string) error

	mu     sync.Mutex
	clicks []string
	closed bool
}

func (p *Page) Text(_ context.Context, selector string) (string, error) {
	if text, ok := p.Texts[selector]; ok && !p.Missing[selector] {
		return text, nil
	}
	return "", fmt.Errorf("find %s: %w", selector, scraper.ErrElementNotFound)
}

func (p *Page) Attribute(_ context.Context, selector, name string) (string, error) {
	if v, ok := p.Attrs[selector+"@"+name]; ok && !p.Missing[selector] {
		return v, nil
	}
	return "", fmt.Errorf("find %s: %w", selector, scraper.ErrElementNotFound)
}

func (p *Page) Click(ctx context.Context, selector string) error {
	if p.Missing[selector] {
		return &scraper.ErrTimeout{Op: "find " + selector, Err: context.DeadlineExceeded}
	}
	if p.ClickFn != nil {
		if err := p.ClickFn(ctx, selector); err != nil {
			return err
		}
	}
	p.mu.Lock()
	p.clicks = append(p.clicks, selector)
	p.mu.Unlock()
	return nil
}

func (p *Page) ClickIfPresent(ctx context.Context, selector string) (bool, error) {
	if p.Missing[selector] {
		return false, nil
	}
	return true, p.Click(ctx, selector)
}

func (p *Page) WaitVisible(_ context.Context, selector string) error {
	if p.Missing[selector] {
		return &scraper.ErrTimeout{Op: "wait for " + selector, Err: context.DeadlineExceeded}
	}
	return nil
}

func (p *Page) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// Clicks returns the clicked selectors in order.
func (p *Page) Clicks() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.clicks...)
}

// IsClosed reports whether Close was called.
func (p *Page) IsClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Launcher hands out Session, or fails with Err.
type Launcher struct {
	Session *Session
	Err     error

	mu       sync.Mutex
	launched int
}

func (l *Launcher) Launch(context.Context, bool) (scraper.Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.launched++
	if l.Err != nil {
		return nil, l.Err
	}
	return l.Session, nil
}

// Launched returns the number of Launch calls.
func (l *Launcher) Launched() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.launched
}
