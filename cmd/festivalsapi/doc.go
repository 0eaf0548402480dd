// Package main hosts the festivals service entrypoint.
//
// Architecture overview:
//   - HTTP API: internal/api.Server exposes the festival endpoints plus health and metrics. Year and month
//     parameters are validated against configured bounds before any scrape is attempted, and every error
//     response carries a JSON detail message.
//   - Scrape pipeline: internal/service resolves each query through a TTL cache first; misses are collapsed
//     with singleflight and delegated to internal/scrape, which parses the upstream calendar HTML fetched by
//     the Colly-based fetcher and groups festivals by month or by religion.
//   - Caching: results (including empty ones) are memoized in an in-memory store keyed by a fingerprint of
//     the query. A background sweeper evicts expired entries and prunes idle rate limiter clients.
//   - Configuration & plumbing: Viper populates config from env/files; zap provides structured logging;
//     Prometheus metrics are exported via the metrics middleware and the /metrics handler.
//
// Operational notes:
//   - Concurrency model: each upstream calendar page is fetched at most once per cache window regardless of
//     concurrent demand. Shutdown is coordinated via context cancellation propagated from main through the
//     server into in-flight scrapes.
//   - Rate limiting: a per-client token bucket guards the API route group; the root, health, and metrics
//     endpoints are exempt so probes keep working under load.
//   - Observability: zap logs carry request IDs and timing at key transitions; Prometheus counters and
//     histograms track HTTP, scrape, cache, and rate limit activity.
//
// Quick checklist:
//   - Configure env vars with the FESTIVALS prefix: FESTIVALS_SERVER_PORT, FESTIVALS_SCRAPER_BASE_URL,
//     FESTIVALS_CACHE_TTL_SECONDS, FESTIVALS_RATE_LIMIT_ENABLED, and so on; or pass -config config.yaml.
//   - Run locally: go run ./cmd/festivalsapi -config config.yaml (or rely solely on env overrides).
package main
