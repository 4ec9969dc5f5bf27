package domain

import (
	"context"
	"time"
)

// Credentials are the decrypted provider tokens used for one fetch.
type Credentials struct {
	AccessToken  string
	RefreshToken string
}

// FetchResult carries the daily candidates produced by one provider call,
// plus rotated credentials when the provider refreshed them mid-call.
// Rotated fields are plaintext; the orchestrator re-encrypts before storing.
type FetchResult struct {
	Metrics             []DailyMetric
	RotatedAccessToken  string
	RotatedRefreshToken string
}

// Fetcher pulls daily metric buckets from one provider. Implementations must
// not mutate shared state between calls; a failed attempt returns an error
// alongside whatever partial credential-refresh information is available.
type Fetcher interface {
	FetchDailyMetrics(ctx context.Context, creds Credentials, start, end time.Time, userID string) (FetchResult, error)
}
