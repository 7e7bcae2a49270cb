package parser

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/itcaat/kufarwatch/internal/models"
)

const (
	containerSelector = "div.styles_cards__bBppJ"
	itemSelector      = `a[data-testid="kufar-ad"]`
)

// ErrNoContainer means the page does not contain the listings grid
var ErrNoContainer = errors.New("listings container not found")

// ParseListings extracts listings from a search results page.
// Cards that cannot be normalized are logged and skipped.
func ParseListings(htmlContent, base string, now time.Time) ([]models.Listing, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("error parsing HTML: %w", err)
	}

	container := doc.Find(containerSelector).First()
	if container.Length() == 0 {
		return nil, ErrNoContainer
	}

	var listings []models.Listing
	skipped := 0

	container.Find("section").Each(func(i int, section *goquery.Selection) {
		item := section.Find(itemSelector).First()
		if item.Length() == 0 {
			// Ad banners and placeholders share the grid with real cards
			return
		}

		listing, err := parseCard(item, base, now)
		if err != nil {
			log.Printf("Skipping card %d: %v", i, err)
			skipped++
			return
		}
		listings = append(listings, listing)
	})

	log.Printf("Parsed %d listings, skipped %d\n", len(listings), skipped)
	return listings, nil
}

// parseCard keeps one broken card from taking the whole page down
func parseCard(item *goquery.Selection, base string, now time.Time) (listing models.Listing, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while parsing card: %v", r)
		}
	}()
	return NormalizeFragment(item, base, now)
}
