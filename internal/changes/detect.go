// Package changes compares two snapshots of listings.
package changes

import (
	"log"

	"github.com/itcaat/kufarwatch/internal/models"
)

// Detect returns listings from current that are absent from previous (new)
// or present with a different price, title or region (updated).
// Results follow the order of current. Listings that disappeared are not reported.
// A link repeated in current is reported once, see Dedupe.
func Detect(previous, current []models.Listing) models.Changes {
	old := make(map[string]models.Listing, len(previous))
	for _, l := range previous {
		old[l.Link] = l
	}

	var result models.Changes

	for _, l := range Dedupe(current) {
		prev, ok := old[l.Link]
		if !ok {
			result.New = append(result.New, l)
			continue
		}
		if Changed(prev, l) {
			result.Updated = append(result.Updated, l)
		}
	}

	log.Printf("Found %d new listings, %d updated\n", len(result.New), len(result.Updated))
	return result
}

// Changed reports whether any tracked field differs between two versions of a listing
func Changed(prev, cur models.Listing) bool {
	return !samePrice(prev.Price, cur.Price) ||
		prev.Title != cur.Title ||
		prev.Region != cur.Region
}

func samePrice(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Dedupe collapses listings sharing a link into one entry.
// The entry stays where the link first appeared and carries the values of its last occurrence.
func Dedupe(listings []models.Listing) []models.Listing {
	index := make(map[string]int, len(listings))
	out := make([]models.Listing, 0, len(listings))

	for _, l := range listings {
		if i, ok := index[l.Link]; ok {
			out[i] = l
			continue
		}
		index[l.Link] = len(out)
		out = append(out, l)
	}
	return out
}
