package scraper

import (
	"context"
	"errors"
	"fmt"

	"CampaignScraper/internal/models"
)

// Page is an independent browser view, used for product detail pages so that
// orders never navigate the listing page the poll loop is driving.
type Page interface {
	Text(ctx context.Context, selector string) (string, error)
	Attribute(ctx context.Context, selector, name string) (string, error)
	Click(ctx context.Context, selector string) error
	// ClickIfPresent clicks selector when it exists and is not already checked.
	// It reports whether the element was there.
	ClickIfPresent(ctx context.Context, selector string) (bool, error)
	WaitVisible(ctx context.Context, selector string) error
	Close() error
}

// Session is the browser owned by one run. Its main page shows the listing.
type Session interface {
	Navigate(ctx context.Context, url string) error
	Reload(ctx context.Context) error
	WaitFor(ctx context.Context, selector string) error
	HTML(ctx context.Context) (string, error)
	Input(ctx context.Context, selector, text string) error
	Click(ctx context.Context, selector string) error
	// ClickShadow clicks selector inside the shadow root of host.
	ClickShadow(ctx context.Context, host, selector string) error
	OpenDetail(ctx context.Context, url string) (Page, error)
	Close() error
}

// Launcher starts browser sessions.
type Launcher interface {
	Launch(ctx context.Context, headless bool) (Session, error)
}

// ListingAdapter reads the product cards currently shown on the listing.
// It is the only site specific part of the poll loop.
type ListingAdapter interface {
	ExtractListing(ctx context.Context, sess Session) ([]models.ProductSnapshot, error)
}

var (
	// ErrLoginFailed means the site rejected the credentials. It is not retried.
	ErrLoginFailed = errors.New("login failed")
	// ErrElementNotFound means an optional element is absent from the page.
	ErrElementNotFound = errors.New("element not found")
)

// ErrTimeout is returned when a bounded wait for an element or a navigation expires.
type ErrTimeout struct {
	Op  string
	Err error
}

func (e *ErrTimeout) Error() string {
	return fmt.Sprintf("timeout during %s: %v", e.Op, e.Err)
}

func (e *ErrTimeout) Unwrap() error {
	return e.Err
}

// IsTimeout reports whether err is, or wraps, an *ErrTimeout.
func IsTimeout(err error) bool {
	var t *ErrTimeout
	return errors.As(err, &t)
}
