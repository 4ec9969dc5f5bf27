package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/guddu1cse/health-sync-engine/internal/domain"
)

const defaultFitbitBaseURL = "https://api.fitbit.com/1"

// FitbitConfig tunes the Fitbit fetcher.
type FitbitConfig struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *log.Logger
}

// FitbitFetcher pulls one daily activity summary per calendar day. A failure
// for one day must not abort the remaining days; only a 401 (authorization
// revoked) ends the whole attempt.
type FitbitFetcher struct {
	baseURL string
	client  *http.Client
	logger  *log.Logger
}

// NewFitbitFetcher constructs a FitbitFetcher.
func NewFitbitFetcher(cfg FitbitConfig) *FitbitFetcher {
	f := &FitbitFetcher{
		baseURL: cfg.BaseURL,
		client:  cfg.HTTPClient,
		logger:  cfg.Logger,
	}
	if f.baseURL == "" {
		f.baseURL = defaultFitbitBaseURL
	}
	if f.client == nil {
		f.client = defaultHTTPClient()
	}
	if f.logger == nil {
		f.logger = log.New(log.Writer(), "[fitbit] ", log.LstdFlags|log.Lshortfile)
	}
	return f
}

type fitbitSummaryResponse struct {
	Summary *fitbitSummary `json:"summary"`
}

type fitbitSummary struct {
	Steps               int      `json:"steps"`
	CaloriesOut         float64  `json:"caloriesOut"`
	VeryActiveMinutes   int      `json:"veryActiveMinutes"`
	FairlyActiveMinutes int      `json:"fairlyActiveMinutes"`
	RestingHeartRate    *float64 `json:"restingHeartRate"`
	Distances           []struct {
		Activity string  `json:"activity"`
		Distance float64 `json:"distance"`
	} `json:"distances"`
}

// FetchDailyMetrics iterates each calendar day in [start, end] and fetches
// its activity summary.
func (f *FitbitFetcher) FetchDailyMetrics(ctx context.Context, creds domain.Credentials, start, end time.Time, userID string) (domain.FetchResult, error) {
	var result domain.FetchResult

	for day := domain.DayOf(start); !day.After(domain.DayOf(end)); day = day.AddDate(0, 0, 1) {
		metric, err := f.fetchDailySummary(ctx, creds.AccessToken, day, userID)
		if err != nil {
			if errors.Is(err, ErrAuthorizationRevoked) {
				return result, err
			}
			f.logger.Printf("failed to fetch day %s (user=%s): %v", day.Format("2006-01-02"), userID, err)
			continue
		}
		if metric != nil {
			result.Metrics = append(result.Metrics, *metric)
		}
	}
	return result, nil
}

func (f *FitbitFetcher) fetchDailySummary(ctx context.Context, accessToken string, day time.Time, userID string) (*domain.DailyMetric, error) {
	url := fmt.Sprintf("%s/user/-/activities/date/%s.json", f.baseURL, day.Format("2006-01-02"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return nil, fmt.Errorf("%w: daily summary returned 401", ErrAuthorizationRevoked)
	default:
		return nil, fmt.Errorf("daily summary returned status %d", resp.StatusCode)
	}

	var parsed fitbitSummaryResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	if parsed.Summary == nil {
		return nil, nil
	}

	summary := parsed.Summary
	metric := &domain.DailyMetric{
		UserID:        userID,
		Date:          day,
		Provider:      domain.ProviderFitbit,
		Steps:         summary.Steps,
		Calories:      summary.CaloriesOut,
		ActiveMinutes: summary.VeryActiveMinutes + summary.FairlyActiveMinutes,
		HeartRate:     summary.RestingHeartRate,
	}
	for _, d := range summary.Distances {
		if d.Activity == "total" {
			metric.Distance = d.Distance
			break
		}
	}
	return metric, nil
}
