// Package service coordinates cache lookups and upstream calendar scrapes.
package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/panchang-io/festivals-api/internal/cache"
	"github.com/panchang-io/festivals-api/internal/festival"
	"github.com/panchang-io/festivals-api/internal/metrics"
	"github.com/panchang-io/festivals-api/internal/scrape"
)

// Service answers festival queries from cache, scraping upstream on a
// miss. Concurrent misses for the same query share a single scrape.
type Service struct {
	store   *cache.Store
	fetcher festival.Fetcher
	ttl     time.Duration
	logger  *zap.Logger
	flights singleflight.Group
}

// New constructs a Service.
func New(store *cache.Store, fetcher festival.Fetcher, ttl time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:   store,
		fetcher: fetcher,
		ttl:     ttl,
		logger:  logger,
	}
}

// Festivals returns month-grouped festivals for a year. A month of zero
// covers the whole year.
func (s *Service) Festivals(ctx context.Context, year, month int) (*festival.Grouping, error) {
	return s.get(ctx, festival.Query{Kind: festival.KindFestivals, Year: year, Month: month})
}

// ReligiousFestivals returns religion-grouped festivals for a year. A
// month of zero covers the whole year.
func (s *Service) ReligiousFestivals(ctx context.Context, year, month int) (*festival.Grouping, error) {
	return s.get(ctx, festival.Query{Kind: festival.KindReligious, Year: year, Month: month})
}

func (s *Service) get(ctx context.Context, q festival.Query) (*festival.Grouping, error) {
	key := q.Fingerprint()
	if cached, ok := s.store.Get(key); ok {
		metrics.ObserveCacheLookup(string(q.Kind), true)
		s.logger.Debug("cache hit",
			zap.String("kind", string(q.Kind)),
			zap.Int("year", q.Year),
			zap.Int("month", q.Month),
		)
		return cached, nil
	}
	metrics.ObserveCacheLookup(string(q.Kind), false)

	result, err, _ := s.flights.Do(key, func() (any, error) {
		// A concurrent miss may have filled the cache while this call
		// waited for the flight slot.
		if cached, ok := s.store.Get(key); ok {
			return cached, nil
		}

		grouping, err := s.scrape(ctx, q)
		if err != nil {
			return nil, err
		}

		// Empty results are cached too, so a year the upstream has no
		// data for is not scraped again until the entry expires.
		s.store.Set(key, grouping, s.ttl)
		metrics.SetCacheEntries(s.store.Len())
		return grouping, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*festival.Grouping), nil
}

func (s *Service) scrape(ctx context.Context, q festival.Query) (*festival.Grouping, error) {
	start := time.Now()
	scraper := scrape.NewScraper(s.fetcher, q.Year)

	var (
		grouping *festival.Grouping
		err      error
	)
	switch q.Kind {
	case festival.KindReligious:
		grouping, err = scraper.ReligiousFestivals(ctx, q.Month)
	default:
		grouping, err = scraper.Festivals(ctx, q.Month)
	}

	metrics.ObserveScrape(string(q.Kind), err == nil, time.Since(start))
	if err != nil {
		s.logger.Error("calendar scrape failed",
			zap.String("kind", string(q.Kind)),
			zap.Int("year", q.Year),
			zap.Int("month", q.Month),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("calendar scraped",
		zap.String("kind", string(q.Kind)),
		zap.Int("year", q.Year),
		zap.Int("month", q.Month),
		zap.Int("groups", grouping.Len()),
		zap.Duration("duration", time.Since(start)),
	)
	return grouping, nil
}
