package parser

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/itcaat/kufarwatch/internal/models"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want *int
	}{
		{name: "spaces and suffix", in: "1 234 р.", want: models.IntPtr(1234)},
		{name: "nbsp separator", in: "2\u00a0500\u00a0р.", want: models.IntPtr(2500)},
		{name: "plain number", in: "950", want: models.IntPtr(950)},
		{name: "garbage", in: "???", want: nil},
		{name: "negotiable", in: "Договорная", want: nil},
		{name: "empty", in: "", want: nil},
		{name: "only suffix", in: " р.", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParsePrice(tt.in)
			switch {
			case tt.want == nil && got != nil:
				t.Fatalf("ParsePrice(%q) = %d, want nil", tt.in, *got)
			case tt.want != nil && got == nil:
				t.Fatalf("ParsePrice(%q) = nil, want %d", tt.in, *tt.want)
			case tt.want != nil && *got != *tt.want:
				t.Fatalf("ParsePrice(%q) = %d, want %d", tt.in, *got, *tt.want)
			}
		})
	}
}

func TestParseTime(t *testing.T) {
	now := time.Date(2024, time.March, 10, 18, 30, 45, 123, time.UTC)

	tests := []struct {
		name string
		in   string
		now  time.Time
		want *time.Time
	}{
		{
			name: "today",
			in:   "Сегодня, 14:05",
			now:  now,
			want: ptr(time.Date(2024, time.March, 10, 14, 5, 0, 0, time.UTC)),
		},
		{
			name: "yesterday",
			in:   "Вчера, 09:00",
			now:  now,
			want: ptr(time.Date(2024, time.March, 9, 9, 0, 0, 0, time.UTC)),
		},
		{
			name: "yesterday across month boundary",
			in:   "Вчера, 23:59",
			now:  time.Date(2024, time.March, 1, 0, 10, 0, 0, time.UTC),
			want: ptr(time.Date(2024, time.February, 29, 23, 59, 0, 0, time.UTC)),
		},
		{
			name: "absolute",
			in:   "01.02.2024 10:00",
			now:  now,
			want: ptr(time.Date(2024, time.February, 1, 10, 0, 0, 0, time.UTC)),
		},
		{name: "garbage", in: "недавно", now: now, want: nil},
		{name: "today without clock", in: "Сегодня", now: now, want: nil},
		{name: "today with bad clock", in: "Сегодня, 25:99", now: now, want: nil},
		{name: "empty", in: "", now: now, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseTime(tt.in, tt.now)
			switch {
			case tt.want == nil && got != nil:
				t.Fatalf("ParseTime(%q) = %v, want nil", tt.in, *got)
			case tt.want != nil && got == nil:
				t.Fatalf("ParseTime(%q) = nil, want %v", tt.in, *tt.want)
			case tt.want != nil && !got.Equal(*tt.want):
				t.Fatalf("ParseTime(%q) = %v, want %v", tt.in, *got, *tt.want)
			}
		})
	}
}

func TestNormalizeRegion(t *testing.T) {
	tests := map[string]string{
		"Минск, Фрунзенский": "Фрунзенский",
		"Гродно":             "Гродно",
		"  ":                 models.DefaultRegion,
	}
	for in, want := range tests {
		if got := NormalizeRegion(in); got != want {
			t.Errorf("NormalizeRegion(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeLink(t *testing.T) {
	tests := []struct {
		href string
		base string
		want string
	}{
		{href: "/item/123?ref=xyz", base: "https://example.test/", want: "https://example.test/item/123"},
		{href: "https://www.kufar.by/item/987?searchId=1", base: BaseURL, want: "https://www.kufar.by/item/987"},
		{href: "item/5", base: BaseURL, want: "https://www.kufar.by/item/5"},
	}

	for _, tt := range tests {
		got, err := NormalizeLink(tt.href, tt.base)
		if err != nil {
			t.Fatalf("NormalizeLink(%q): unexpected error: %v", tt.href, err)
		}
		if got != tt.want {
			t.Errorf("NormalizeLink(%q, %q) = %q, want %q", tt.href, tt.base, got, tt.want)
		}
	}

	if _, err := NormalizeLink("  ", BaseURL); !errors.Is(err, ErrEmptyLink) {
		t.Fatalf("expected ErrEmptyLink, got %v", err)
	}
}

func TestNormalizeFragmentDefaults(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<a data-testid="kufar-ad" href="/item/42?rank=3"><p class="styles_price__aVxZc">Договорная</p></a>`))
	if err != nil {
		t.Fatal(err)
	}

	listing, err := NormalizeFragment(doc.Find("a").First(), BaseURL, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if listing.Title != models.DefaultTitle {
		t.Errorf("Title = %q, want %q", listing.Title, models.DefaultTitle)
	}
	if listing.Region != models.DefaultRegion {
		t.Errorf("Region = %q, want %q", listing.Region, models.DefaultRegion)
	}
	if listing.Price != nil {
		t.Errorf("Price = %d, want nil", *listing.Price)
	}
	if listing.PublishedAt != nil {
		t.Errorf("PublishedAt = %v, want nil", *listing.PublishedAt)
	}
	if listing.Link != "https://www.kufar.by/item/42" {
		t.Errorf("Link = %q", listing.Link)
	}
}

func ptr(t time.Time) *time.Time {
	return &t
}
