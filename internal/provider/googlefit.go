package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/guddu1cse/health-sync-engine/internal/domain"
)

const (
	defaultGoogleFitBaseURL = "https://www.googleapis.com/fitness/v1"
	defaultGoogleTokenURL   = "https://oauth2.googleapis.com/token"

	// One calendar day, the aggregate bucket width.
	dayBucketMillis = 86_400_000

	dataTypeDistance = "com.google.distance.delta"
)

// googleFitDataTypes is the full requested-metric set for an aggregate call.
// The narrowing retry shrinks a copy of this set, never the slice itself.
var googleFitDataTypes = []string{
	"com.google.step_count.delta",
	"com.google.calories.expended",
	dataTypeDistance,
	"com.google.active_minutes",
	"com.google.heart_rate.bpm",
	"com.google.oxygen_saturation",
}

// GoogleFitConfig tunes the Google Fit fetcher.
type GoogleFitConfig struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	HTTPClient   *http.Client
	Logger       *log.Logger
}

// GoogleFitFetcher pulls daily buckets through the aggregate API. A partial
// permission denial (403 while more than one metric type is requested) is
// recovered locally by retrying with a reduced type set.
type GoogleFitFetcher struct {
	baseURL      string
	tokenURL     string
	clientID     string
	clientSecret string
	client       *http.Client
	logger       *log.Logger
}

// NewGoogleFitFetcher constructs a GoogleFitFetcher.
func NewGoogleFitFetcher(cfg GoogleFitConfig) *GoogleFitFetcher {
	f := &GoogleFitFetcher{
		baseURL:      cfg.BaseURL,
		tokenURL:     cfg.TokenURL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		client:       cfg.HTTPClient,
		logger:       cfg.Logger,
	}
	if f.baseURL == "" {
		f.baseURL = defaultGoogleFitBaseURL
	}
	if f.tokenURL == "" {
		f.tokenURL = defaultGoogleTokenURL
	}
	if f.client == nil {
		f.client = defaultHTTPClient()
	}
	if f.logger == nil {
		f.logger = log.New(log.Writer(), "[googlefit] ", log.LstdFlags|log.Lshortfile)
	}
	return f
}

type aggregateRequest struct {
	AggregateBy     []aggregateBy `json:"aggregateBy"`
	BucketByTime    bucketByTime  `json:"bucketByTime"`
	StartTimeMillis int64         `json:"startTimeMillis"`
	EndTimeMillis   int64         `json:"endTimeMillis"`
}

type aggregateBy struct {
	DataTypeName string `json:"dataTypeName"`
}

type bucketByTime struct {
	DurationMillis int64 `json:"durationMillis"`
}

type aggregateResponse struct {
	Bucket []aggregateBucket `json:"bucket"`
}

type aggregateBucket struct {
	StartTimeMillis string `json:"startTimeMillis"`
	Dataset         []struct {
		DataSourceID string      `json:"dataSourceId"`
		Point        []dataPoint `json:"point"`
	} `json:"dataset"`
}

type dataPoint struct {
	DataTypeName string `json:"dataTypeName"`
	Value        []struct {
		IntVal int64   `json:"intVal"`
		FpVal  float64 `json:"fpVal"`
	} `json:"value"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// FetchDailyMetrics issues one aggregate request spanning the whole range,
// bucketed by calendar day, narrowing the requested type set on partial
// permission denials. A 401 triggers a single credential refresh when a
// refresh token is available; rotated tokens are reported in the result.
func (f *GoogleFitFetcher) FetchDailyMetrics(ctx context.Context, creds domain.Credentials, start, end time.Time, userID string) (domain.FetchResult, error) {
	var result domain.FetchResult

	accessToken := creds.AccessToken
	refreshed := false
	types := append([]string(nil), googleFitDataTypes...)

	for {
		status, body, err := f.aggregate(ctx, accessToken, start, end, types)
		if err != nil {
			return result, err
		}

		switch {
		case status == http.StatusOK:
			var resp aggregateResponse
			if err := json.Unmarshal(body, &resp); err != nil {
				return result, fmt.Errorf("decode aggregate response: %w", err)
			}
			result.Metrics = buildDailyMetrics(resp, userID)
			return result, nil

		case status == http.StatusForbidden && len(types) > 1:
			message := errorMessage(body)
			f.logger.Printf("permission denied for some data types (user=%s): %s; retrying with fewer types", userID, message)
			recordNarrowingRetry(string(domain.ProviderGoogleFit))
			types = narrowTypes(types, message)

		case status == http.StatusUnauthorized && !refreshed && creds.RefreshToken != "":
			rotated, err := f.refreshAccessToken(ctx, creds.RefreshToken)
			if err != nil {
				return result, fmt.Errorf("%w: %v", ErrAuthorizationRevoked, err)
			}
			accessToken = rotated
			result.RotatedAccessToken = rotated
			refreshed = true

		case status == http.StatusUnauthorized:
			return result, fmt.Errorf("%w: aggregate request returned 401", ErrAuthorizationRevoked)

		default:
			return result, fmt.Errorf("googlefit aggregate request failed: status %d: %s", status, errorMessage(body))
		}
	}
}

func (f *GoogleFitFetcher) aggregate(ctx context.Context, accessToken string, start, end time.Time, types []string) (int, []byte, error) {
	reqBody := aggregateRequest{
		BucketByTime:    bucketByTime{DurationMillis: dayBucketMillis},
		StartTimeMillis: start.UnixMilli(),
		EndTimeMillis:   end.UnixMilli(),
	}
	for _, t := range types {
		reqBody.AggregateBy = append(reqBody.AggregateBy, aggregateBy{DataTypeName: t})
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return 0, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+"/users/me/dataset:aggregate", bytes.NewReader(payload))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}

func (f *GoogleFitFetcher) refreshAccessToken(ctx context.Context, refreshToken string) (string, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {f.clientID},
		"client_secret": {f.clientSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token refresh returned status %d", resp.StatusCode)
	}

	var parsed struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	if parsed.AccessToken == "" {
		return "", fmt.Errorf("token refresh response missing access_token")
	}
	return parsed.AccessToken, nil
}

// narrowTypes removes the first requested type named in the rejection
// message, falling back to distance (the most commonly restricted
// permission). The returned set is always strictly smaller, so the retry
// loop converges even under adversarial error messages.
func narrowTypes(types []string, message string) []string {
	for i, t := range types {
		if strings.Contains(message, t) {
			return append(types[:i:i], types[i+1:]...)
		}
	}
	for i, t := range types {
		if t == dataTypeDistance {
			return append(types[:i:i], types[i+1:]...)
		}
	}
	return types[:len(types)-1]
}

func buildDailyMetrics(resp aggregateResponse, userID string) []domain.DailyMetric {
	metrics := make([]domain.DailyMetric, 0, len(resp.Bucket))

	for _, bucket := range resp.Bucket {
		startMillis, err := strconv.ParseInt(bucket.StartTimeMillis, 10, 64)
		if err != nil {
			continue
		}

		metric := domain.DailyMetric{
			UserID:   userID,
			Date:     domain.DayOf(time.UnixMilli(startMillis)),
			Provider: domain.ProviderGoogleFit,
		}

		for _, dataset := range bucket.Dataset {
			for _, point := range dataset.Point {
				typeName := point.DataTypeName
				if typeName == "" {
					typeName = dataset.DataSourceID
				}
				if len(point.Value) == 0 {
					continue
				}
				accumulate(&metric, typeName, point.Value[0].IntVal, point.Value[0].FpVal)
			}
		}

		metrics = append(metrics, metric)
	}
	return metrics
}

// accumulate sums cumulative quantities into the matching field by type-name
// substring; heart rate and blood oxygen are point-in-time readings, latest
// observed wins.
func accumulate(metric *domain.DailyMetric, typeName string, intVal int64, fpVal float64) {
	switch {
	case strings.Contains(typeName, "step_count"):
		metric.Steps += int(intVal)
	case strings.Contains(typeName, "calories"):
		metric.Calories += fpVal
	case strings.Contains(typeName, "distance"):
		metric.Distance += fpVal
	case strings.Contains(typeName, "active_minutes"):
		metric.ActiveMinutes += int(intVal)
	case strings.Contains(typeName, "heart_rate"):
		v := fpVal
		metric.HeartRate = &v
	case strings.Contains(typeName, "oxygen_saturation"):
		v := fpVal
		metric.BloodOxygen = &v
	}
}

func errorMessage(body []byte) string {
	var parsed apiError
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	return strings.TrimSpace(string(body))
}
