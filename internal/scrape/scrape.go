// Package scrape turns the upstream calendar markup into typed
// festival records, grouped by month or classified into religion
// categories via the inline color styling the source uses.
package scrape

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/panchang-io/festivals-api/internal/festival"
)

// Scraper extracts festival data from the upstream calendar for a
// single year. The fetched document is parsed once and reused across
// calls, so the month and religion views never trigger a second fetch.
// A Scraper is meant for single-goroutine use within one request.
type Scraper struct {
	year    int
	fetcher festival.Fetcher
	doc     *goquery.Document
}

// NewScraper builds a Scraper for the given year.
func NewScraper(fetcher festival.Fetcher, year int) *Scraper {
	return &Scraper{year: year, fetcher: fetcher}
}

// Festivals returns records grouped by month name in source table
// order. Month zero means the whole year; otherwise extraction covers
// only the target month's table. Months with no valid rows are
// omitted from the result.
func (s *Scraper) Festivals(ctx context.Context, month int) (*festival.Grouping, error) {
	doc, err := s.document(ctx)
	if err != nil {
		return nil, err
	}
	return extractByMonth(doc, monthName(month)), nil
}

// ReligiousFestivals returns records bucketed into the fixed religion
// categories. Every category is present in the result even when empty.
// Records carry their month name only when no month filter is applied;
// a filtered request implies the month.
func (s *Scraper) ReligiousFestivals(ctx context.Context, month int) (*festival.Grouping, error) {
	doc, err := s.document(ctx)
	if err != nil {
		return nil, err
	}
	return classifyByReligion(doc, monthName(month)), nil
}

func (s *Scraper) document(ctx context.Context) (*goquery.Document, error) {
	if s.doc != nil {
		return s.doc, nil
	}
	body, err := s.fetcher.Fetch(ctx, s.year)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse calendar markup: %w", err)
	}
	s.doc = doc
	return doc, nil
}

// monthName maps 1..12 to the English month name used in table
// headers. Anything else means no filter and yields the empty string.
func monthName(m int) string {
	if m < 1 || m > 12 {
		return ""
	}
	return time.Month(m).String()
}
