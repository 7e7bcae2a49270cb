package parser

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/itcaat/kufarwatch/internal/models"
)

const (
	// BaseURL is the site root used to resolve relative listing links
	BaseURL = "https://www.kufar.by/"

	// Card selectors inside a[data-testid="kufar-ad"]
	titleSelector  = "h3.styles_title__F3uIe"
	priceSelector  = "p.styles_price__aVxZc"
	regionSelector = "p.styles_region__qCRbf"
	timeSelector   = "span.styles_secondary__MzdEb"

	currencySuffix  = "р."
	capitalPrefix   = "Минск, "
	todayPrefix     = "Сегодня"
	yesterdayPrefix = "Вчера"
)

// ErrEmptyLink is returned for a card without an href
var ErrEmptyLink = errors.New("listing has no link")

// ParsePrice converts a price label like "1 234 р." into an integer.
// Anything that is not a plain number after cleanup yields nil.
func ParsePrice(priceText string) *int {
	// Drop every kind of whitespace, Kufar uses NBSP as a thousands separator
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, priceText)
	cleaned = strings.ReplaceAll(cleaned, currencySuffix, "")

	if cleaned == "" {
		return nil
	}

	value, err := strconv.Atoi(cleaned)
	if err != nil {
		return nil
	}
	return &value
}

// ParseTime resolves a publication label against now.
// Supported forms are "Сегодня, HH:MM", "Вчера, HH:MM" and "DD.MM.YYYY HH:MM".
func ParseTime(timeText string, now time.Time) *time.Time {
	timeText = strings.TrimSpace(timeText)
	if timeText == "" {
		return nil
	}

	var day time.Time
	switch {
	case strings.HasPrefix(timeText, todayPrefix):
		day = now
	case strings.HasPrefix(timeText, yesterdayPrefix):
		day = now.AddDate(0, 0, -1)
	default:
		t, err := time.ParseInLocation(models.TimeLayout, timeText, now.Location())
		if err != nil {
			log.Printf("Could not parse publication time %q: %v", timeText, err)
			return nil
		}
		return &t
	}

	// "Сегодня, 14:05" -> "14:05"
	_, clock, found := strings.Cut(timeText, ",")
	if !found {
		log.Printf("Could not parse publication time %q: no clock part", timeText)
		return nil
	}

	hm, err := time.Parse("15:04", strings.TrimSpace(clock))
	if err != nil {
		log.Printf("Could not parse publication time %q: %v", timeText, err)
		return nil
	}

	t := time.Date(day.Year(), day.Month(), day.Day(), hm.Hour(), hm.Minute(), 0, 0, now.Location())
	return &t
}

// NormalizeRegion strips the capital city prefix and fills in a placeholder
func NormalizeRegion(region string) string {
	region = strings.TrimSpace(region)
	region = strings.TrimPrefix(region, capitalPrefix)
	if region == "" {
		return models.DefaultRegion
	}
	return region
}

// NormalizeLink drops the query string and resolves href against base
func NormalizeLink(href, base string) (string, error) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", ErrEmptyLink
	}

	if i := strings.Index(href, "?"); i >= 0 {
		href = href[:i]
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", base, err)
	}

	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("invalid link %q: %w", href, err)
	}

	return baseURL.ResolveReference(ref).String(), nil
}

// NormalizeFragment builds a Listing from one a[data-testid="kufar-ad"] card
func NormalizeFragment(item *goquery.Selection, base string, now time.Time) (models.Listing, error) {
	href, _ := item.Attr("href")
	link, err := NormalizeLink(href, base)
	if err != nil {
		return models.Listing{}, err
	}

	listing := models.Listing{
		Title:  models.DefaultTitle,
		Region: models.DefaultRegion,
		Link:   link,
	}

	if title := item.Find(titleSelector).First(); title.Length() > 0 {
		if text := strings.TrimSpace(title.Text()); text != "" {
			listing.Title = text
		}
	}

	if price := item.Find(priceSelector).First(); price.Length() > 0 {
		listing.Price = ParsePrice(price.Text())
	}

	if region := item.Find(regionSelector).First(); region.Length() > 0 {
		listing.Region = NormalizeRegion(region.Text())
	}

	if published := item.Find(timeSelector).First(); published.Length() > 0 {
		listing.PublishedAt = ParseTime(published.Text(), now)
	}

	return listing, nil
}
