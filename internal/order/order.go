// Package order runs the per-product ordering workflow: read the detail view,
// decide between auto-order and asking a human, then finalize the order.
package order

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"CampaignScraper/internal/models"
	"CampaignScraper/internal/notify"
	"CampaignScraper/internal/scraper"
	"CampaignScraper/pkg/config"
	"CampaignScraper/utils"
)

// maxStepTimeout bounds every wait of the finalize sequence.
const maxStepTimeout = 10 * time.Second

// Workflow orders products on the detail view of a session.
type Workflow struct {
	Site        config.SiteConfig
	Sink        notify.Sink
	StepTimeout time.Duration
}

// New creates a workflow reporting to sink.
func New(site config.SiteConfig, sink notify.Sink, stepTimeout time.Duration) *Workflow {
	return &Workflow{Site: site, Sink: sink, StepTimeout: stepTimeout}
}

// Order runs the workflow for one in-stock product. It never panics or
// returns an error: every failure becomes a Failed outcome plus a notification.
//
// Browser work runs on a context detached from ctx so an order that already
// started settles after cancellation; only the confirmation prompt is cut short.
func (w *Workflow) Order(ctx context.Context, product models.ProductSnapshot, sess scraper.Session, settings models.ScraperSettings) models.OrderOutcome {
	browserCtx := context.WithoutCancel(ctx)

	href := w.resolve(product.Href)
	if href == "" {
		return w.fail(ctx, product.Title, fmt.Errorf("product has no link"))
	}

	page, err := sess.OpenDetail(browserCtx, href)
	if err != nil {
		return w.fail(ctx, product.Title, fmt.Errorf("open detail view: %w", err))
	}
	defer func() {
		if err := page.Close(); err != nil {
			log.Printf("Failed to close detail view of %q: %v", product.Title, err)
		}
	}()

	details := w.extractDetails(browserCtx, page, product, href)
	attachment := &models.EventProduct{
		Title:    details.Title,
		ImageURL: details.ImageURL,
		Price:    details.PriceText,
		Href:     details.Href,
	}

	if w.shouldAutoOrder(details, settings) {
		w.Sink.Notify(ctx, notify.Message{
			Kind:    models.KindInStock,
			Text:    fmt.Sprintf("**%s** is available (%s), auto-ordering", product.Title, priceOrNA(details)),
			Product: attachment,
		})
		return w.complete(ctx, browserCtx, page, product.Title)
	}

	yes := w.Sink.PromptConfirmation(ctx, notify.Prompt{
		Text:    fmt.Sprintf("**Available:** %s\n**Price:** %s\nDo you want to order it?", product.Title, priceOrNA(details)),
		Product: *attachment,
	})
	if !yes {
		w.Sink.Notify(ctx, notify.Message{Text: fmt.Sprintf("Skipped **%s**", product.Title)})
		return models.OrderOutcome{Result: models.Skipped}
	}

	w.Sink.Notify(ctx, notify.Message{Text: fmt.Sprintf("Ordering **%s**...", product.Title)})
	return w.complete(ctx, browserCtx, page, product.Title)
}

func (w *Workflow) complete(ctx, browserCtx context.Context, page scraper.Page, title string) models.OrderOutcome {
	if err := w.Finalize(browserCtx, page); err != nil {
		return w.fail(ctx, title, err)
	}
	w.Sink.Notify(ctx, notify.Message{Text: fmt.Sprintf("**%s** has been ordered", title)})
	return models.OrderOutcome{Result: models.Ordered}
}

func (w *Workflow) fail(ctx context.Context, title string, err error) models.OrderOutcome {
	log.Printf("Order for %q failed: %v", title, err)
	w.Sink.Notify(ctx, notify.Message{
		Kind: models.KindError,
		Text: fmt.Sprintf("Failed to order **%s**: %v", title, err),
	})
	return models.OrderOutcome{Result: models.Failed, Reason: err.Error()}
}

// Finalize opens the order dialog, ticks the required checkboxes that are
// present and submits. Each step waits at most the step timeout.
func (w *Workflow) Finalize(ctx context.Context, page scraper.Page) error {
	if err := w.step(ctx, func(ctx context.Context) error { return page.Click(ctx, w.Site.OrderButton) }); err != nil {
		return fmt.Errorf("click order button: %w", err)
	}
	if err := w.step(ctx, func(ctx context.Context) error { return page.WaitVisible(ctx, w.Site.OrderDialog) }); err != nil {
		return fmt.Errorf("wait for order dialog: %w", err)
	}
	for _, sel := range w.Site.OrderCheckboxes {
		err := w.step(ctx, func(ctx context.Context) error {
			found, err := page.ClickIfPresent(ctx, sel)
			if err == nil && !found {
				log.Printf("Checkbox %s not present, treating as confirmed", sel)
			}
			return err
		})
		if err != nil {
			return fmt.Errorf("confirm %s: %w", sel, err)
		}
	}
	if err := w.step(ctx, func(ctx context.Context) error { return page.Click(ctx, w.Site.OrderSubmitButton) }); err != nil {
		return fmt.Errorf("submit order: %w", err)
	}
	return nil
}

func (w *Workflow) step(ctx context.Context, fn func(context.Context) error) error {
	timeout := w.StepTimeout
	if timeout <= 0 || timeout > maxStepTimeout {
		timeout = maxStepTimeout
	}
	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(stepCtx)
}

func (w *Workflow) extractDetails(ctx context.Context, page scraper.Page, product models.ProductSnapshot, href string) models.ProductDetails {
	details := models.ProductDetails{Title: product.Title, Href: href}

	var priceText string
	err := w.step(ctx, func(ctx context.Context) error {
		var err error
		priceText, err = page.Text(ctx, w.Site.DetailPrice)
		return err
	})
	if err != nil {
		log.Printf("Could not find price element for %s: %v", product.Title, err)
	} else {
		if w.Site.DetailPriceLabel != "" {
			priceText = strings.ReplaceAll(priceText, w.Site.DetailPriceLabel, "")
		}
		details.PriceText = utils.CleanText(priceText)
		details.Price, details.HasPrice = utils.ParsePrice(details.PriceText)
	}

	var src string
	err = w.step(ctx, func(ctx context.Context) error {
		var err error
		src, err = page.Attribute(ctx, w.Site.DetailImage, "src")
		return err
	})
	if err != nil {
		log.Printf("Could not find image for %s: %v", product.Title, err)
	} else {
		details.ImageURL = w.resolve(src)
	}
	return details
}

// shouldAutoOrder: auto-order must be enabled, and either the price reaches the
// minimum or the title matches a keyword. An unknown price never reaches the minimum.
func (w *Workflow) shouldAutoOrder(details models.ProductDetails, settings models.ScraperSettings) bool {
	if !settings.AutoOrder {
		return false
	}
	if details.HasPrice && details.Price >= settings.MinPrice {
		return true
	}
	return utils.MatchesAnyKeyword(details.Title, settings.Keywords)
}

func (w *Workflow) resolve(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	base, err := url.Parse(w.Site.BaseURL)
	if err != nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}

func priceOrNA(d models.ProductDetails) string {
	if d.PriceText == "" {
		return "N/A"
	}
	return d.PriceText
}
