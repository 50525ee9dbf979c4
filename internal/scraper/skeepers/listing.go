// Package skeepers reads the campaign listing of creator.im.skeepers.io.
package skeepers

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"

	"CampaignScraper/internal/models"
	"CampaignScraper/internal/scraper"
	"CampaignScraper/pkg/config"
	"CampaignScraper/utils"

	"github.com/PuerkitoBio/goquery"
)

// Listing is the scraper.ListingAdapter for the campaign search page.
type Listing struct {
	site config.SiteConfig
	base *url.URL
}

// NewListing builds the adapter from the site selectors.
func NewListing(site config.SiteConfig) (*Listing, error) {
	base, err := url.Parse(site.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	return &Listing{site: site, base: base}, nil
}

// ExtractListing waits for the product grid and reads every card on it.
func (l *Listing) ExtractListing(ctx context.Context, sess scraper.Session) ([]models.ProductSnapshot, error) {
	if err := sess.WaitFor(ctx, l.site.ListingReady); err != nil {
		return nil, err
	}
	if err := sess.WaitFor(ctx, l.site.ProductCard); err != nil {
		return nil, err
	}
	html, err := sess.HTML(ctx)
	if err != nil {
		return nil, err
	}
	return l.Parse(html)
}

// Parse reads the product cards from listing HTML. Status precedence is
// sold out, then ordered, then a buy button meaning in stock.
func (l *Listing) Parse(html string) ([]models.ProductSnapshot, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse listing: %w", err)
	}

	var products []models.ProductSnapshot
	doc.Find(l.site.ProductCard).Each(func(_ int, card *goquery.Selection) {
		title := utils.CleanText(card.Find(l.site.CardTitle).First().Text())
		if title == "" {
			return
		}

		status := models.StatusUnknown
		switch {
		case card.Find(l.site.CardSoldOut).Length() > 0:
			status = models.StatusSoldOut
		case card.Find(l.site.CardOrdered).Length() > 0:
			status = models.StatusOrdered
		case card.Find(l.site.CardBuy).Length() > 0:
			status = models.StatusInStock
		}

		href, _ := card.Find(l.site.CardLink).First().Attr("href")
		products = append(products, models.ProductSnapshot{
			Title:  title,
			Href:   l.resolve(href),
			Status: status,
		})
	})

	log.Printf("Found %d products on the listing", len(products))
	return products, nil
}

func (l *Listing) resolve(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return l.base.ResolveReference(ref).String()
}
