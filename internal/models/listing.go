package models

import (
	"encoding/json"
	"log"
	"time"
)

// TimeLayout is the format used for publication times in the snapshot file,
// notifications and the spreadsheet
const TimeLayout = "02.01.2006 15:04"

const (
	// DefaultTitle is used when a listing card has no title
	DefaultTitle = "Без названия"
	// DefaultRegion is used when a listing card has no region
	DefaultRegion = "Не указан"
)

// Listing represents an individual listing from Kufar.
// Link is the identity key: two listings with the same link are the same ad.
type Listing struct {
	Title       string
	Price       *int
	Region      string
	PublishedAt *time.Time
	Link        string
}

// listingJSON is the on-disk representation of a Listing
type listingJSON struct {
	Title  string  `json:"title"`
	Price  *int    `json:"price"`
	Region string  `json:"region"`
	Time   *string `json:"time"`
	Link   string  `json:"link"`
}

// MarshalJSON encodes the listing with the publication time as DD.MM.YYYY HH:MM
func (l Listing) MarshalJSON() ([]byte, error) {
	out := listingJSON{
		Title:  l.Title,
		Price:  l.Price,
		Region: l.Region,
		Link:   l.Link,
	}
	if l.PublishedAt != nil {
		s := l.PublishedAt.Format(TimeLayout)
		out.Time = &s
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a listing written by MarshalJSON.
// Times are interpreted in the local time zone; an unreadable time leaves PublishedAt nil.
func (l *Listing) UnmarshalJSON(data []byte) error {
	var in listingJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	*l = Listing{
		Title:  in.Title,
		Price:  in.Price,
		Region: in.Region,
		Link:   in.Link,
	}

	if in.Time != nil && *in.Time != "" {
		t, err := time.ParseInLocation(TimeLayout, *in.Time, time.Local)
		if err != nil {
			log.Printf("Ignoring invalid time %q for %s: %v", *in.Time, in.Link, err)
			return nil
		}
		l.PublishedAt = &t
	}

	return nil
}

// IntPtr is a small helper for building listings with a known price
func IntPtr(v int) *int {
	return &v
}
