package order

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"CampaignScraper/internal/models"
	"CampaignScraper/internal/notify"
	"CampaignScraper/internal/scraper"
	"CampaignScraper/internal/scraper/scrapertest"
	"CampaignScraper/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu       sync.Mutex
	messages []notify.Message
	prompts  []notify.Prompt
	answer   bool
}

func (s *recordingSink) Notify(_ context.Context, msg notify.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
}

func (s *recordingSink) PromptConfirmation(ctx context.Context, p notify.Prompt) bool {
	s.mu.Lock()
	s.prompts = append(s.prompts, p)
	s.mu.Unlock()
	if ctx.Err() != nil {
		return false
	}
	return s.answer
}

func (s *recordingSink) CleanupStale(context.Context) {}

func (s *recordingSink) texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, m := range s.messages {
		out = append(out, m.Text)
	}
	return out
}

var product = models.ProductSnapshot{Title: "Vitamin C Serum", Href: "/campaigns/101", Status: models.StatusInStock}

func detailPage(site config.SiteConfig, price string) *scrapertest.Page {
	page := &scrapertest.Page{
		Texts: map[string]string{},
		Attrs: map[string]string{site.DetailImage + "@src": "/img/serum.png"},
	}
	if price != "" {
		page.Texts[site.DetailPrice] = "Retail price " + price
	}
	return page
}

func sessionWith(page *scrapertest.Page) *scrapertest.Session {
	return &scrapertest.Session{
		OpenDetailFn: func(context.Context, string) (scraper.Page, error) { return page, nil },
	}
}

func finalizeClicks(site config.SiteConfig) []string {
	clicks := []string{site.OrderButton}
	clicks = append(clicks, site.OrderCheckboxes...)
	return append(clicks, site.OrderSubmitButton)
}

func TestAutoOrderByPrice(t *testing.T) {
	site := config.DefaultSite()
	page := detailPage(site, "$25.00")
	sess := sessionWith(page)
	sink := &recordingSink{}

	outcome := New(site, sink, time.Second).Order(context.Background(), product, sess,
		models.ScraperSettings{AutoOrder: true, MinPrice: 20})

	assert.Equal(t, models.Ordered, outcome.Result)
	texts := sink.texts()
	require.Len(t, texts, 2)
	assert.Contains(t, texts[0], "auto-ordering")
	assert.Contains(t, texts[1], "has been ordered")
	assert.Empty(t, sink.prompts)
	assert.Equal(t, finalizeClicks(site), page.Clicks())
	assert.True(t, page.IsClosed())
	assert.Equal(t, []string{"detail https://creator.im.skeepers.io/campaigns/101"}, sess.Calls())

	attached := sink.messages[0].Product
	require.NotNil(t, attached)
	assert.Equal(t, "$25.00", attached.Price)
	assert.Equal(t, "https://creator.im.skeepers.io/img/serum.png", attached.ImageURL)
}

func TestManualSkip(t *testing.T) {
	site := config.DefaultSite()
	page := detailPage(site, "$25.00")
	sink := &recordingSink{answer: false}

	outcome := New(site, sink, time.Second).Order(context.Background(), product, sessionWith(page),
		models.ScraperSettings{AutoOrder: false})

	assert.Equal(t, models.Skipped, outcome.Result)
	assert.Len(t, sink.prompts, 1)
	assert.Equal(t, []string{"Skipped **Vitamin C Serum**"}, sink.texts())
	assert.Empty(t, page.Clicks(), "a skipped order must not touch the finalize sequence")
	assert.True(t, page.IsClosed())
}

func TestManualConfirm(t *testing.T) {
	site := config.DefaultSite()
	page := detailPage(site, "$5.00")
	sink := &recordingSink{answer: true}

	outcome := New(site, sink, time.Second).Order(context.Background(), product, sessionWith(page),
		models.ScraperSettings{AutoOrder: true, MinPrice: 20})

	assert.Equal(t, models.Ordered, outcome.Result)
	require.Len(t, sink.prompts, 1)
	assert.Contains(t, sink.prompts[0].Text, "$5.00")
	assert.Equal(t, []string{"Ordering **Vitamin C Serum**...", "**Vitamin C Serum** has been ordered"}, sink.texts())
	assert.Equal(t, finalizeClicks(site), page.Clicks())
}

func TestAutoOrderByKeywordWithoutPrice(t *testing.T) {
	site := config.DefaultSite()
	page := detailPage(site, "")
	sink := &recordingSink{}

	outcome := New(site, sink, time.Second).Order(context.Background(), product, sessionWith(page),
		models.ScraperSettings{AutoOrder: true, MinPrice: 20, Keywords: []string{"serum"}})

	assert.Equal(t, models.Ordered, outcome.Result)
	assert.Empty(t, sink.prompts)
	assert.Contains(t, sink.texts()[0], "(N/A)")
}

func TestUnknownPriceFallsBackToPrompt(t *testing.T) {
	site := config.DefaultSite()
	page := detailPage(site, "")
	sink := &recordingSink{answer: false}

	outcome := New(site, sink, time.Second).Order(context.Background(), product, sessionWith(page),
		models.ScraperSettings{AutoOrder: true, MinPrice: 0})

	assert.Equal(t, models.Skipped, outcome.Result)
	assert.Len(t, sink.prompts, 1)
}

func TestFinalizeTimeoutFails(t *testing.T) {
	site := config.DefaultSite()
	page := detailPage(site, "$25.00")
	page.Missing = map[string]bool{site.OrderDialog: true}
	sink := &recordingSink{}

	outcome := New(site, sink, time.Second).Order(context.Background(), product, sessionWith(page),
		models.ScraperSettings{AutoOrder: true, MinPrice: 20})

	assert.Equal(t, models.Failed, outcome.Result)
	assert.Contains(t, outcome.Reason, "order dialog")
	texts := sink.texts()
	require.Len(t, texts, 2)
	assert.True(t, strings.HasPrefix(texts[1], "Failed to order **Vitamin C Serum**"))
	assert.Equal(t, models.KindError, sink.messages[1].Kind)
	assert.Equal(t, []string{site.OrderButton}, page.Clicks())
	assert.True(t, page.IsClosed())
}

func TestMissingCheckboxIsNotAnError(t *testing.T) {
	site := config.DefaultSite()
	page := detailPage(site, "")
	page.Missing = map[string]bool{"#requestedViewCount": true}

	err := New(site, &recordingSink{}, time.Second).Finalize(context.Background(), page)
	require.NoError(t, err)
	assert.Equal(t, []string{site.OrderButton, "#checkAddress", "#licensing_checkbox", site.OrderSubmitButton}, page.Clicks())
}

func TestFinalizeStepIsBounded(t *testing.T) {
	site := config.DefaultSite()
	page := &scrapertest.Page{
		ClickFn: func(ctx context.Context, _ string) error {
			<-ctx.Done()
			return &scraper.ErrTimeout{Op: "click", Err: ctx.Err()}
		},
	}

	start := time.Now()
	err := New(site, &recordingSink{}, 20*time.Millisecond).Finalize(context.Background(), page)
	assert.True(t, scraper.IsTimeout(err))
	assert.Less(t, time.Since(start), time.Second)
}

func TestOrderWithoutLink(t *testing.T) {
	sess := &scrapertest.Session{}
	sink := &recordingSink{}

	outcome := New(config.DefaultSite(), sink, time.Second).Order(context.Background(),
		models.ProductSnapshot{Title: "Lip Balm"}, sess, models.ScraperSettings{})

	assert.Equal(t, models.Failed, outcome.Result)
	assert.Empty(t, sess.Calls())
	assert.Len(t, sink.texts(), 1)
}

func TestOrderDetailViewError(t *testing.T) {
	sess := &scrapertest.Session{
		OpenDetailFn: func(context.Context, string) (scraper.Page, error) {
			return nil, errors.New("browser gone")
		},
	}
	sink := &recordingSink{}

	outcome := New(config.DefaultSite(), sink, time.Second).Order(context.Background(), product, sess, models.ScraperSettings{})

	assert.Equal(t, models.Failed, outcome.Result)
	assert.Contains(t, outcome.Reason, "browser gone")
}

func TestAutoOrderSettlesAfterCancellation(t *testing.T) {
	site := config.DefaultSite()
	page := detailPage(site, "$25.00")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome := New(site, &recordingSink{}, time.Second).Order(ctx, product, sessionWith(page),
		models.ScraperSettings{AutoOrder: true, MinPrice: 20})

	assert.Equal(t, models.Ordered, outcome.Result)
	assert.Equal(t, finalizeClicks(site), page.Clicks())
}

func TestManualPromptCancelled(t *testing.T) {
	site := config.DefaultSite()
	page := detailPage(site, "$5.00")
	sink := &recordingSink{answer: true}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome := New(site, sink, time.Second).Order(ctx, product, sessionWith(page), models.ScraperSettings{})

	assert.Equal(t, models.Skipped, outcome.Result)
	assert.Empty(t, page.Clicks())
}
