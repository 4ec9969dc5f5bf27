package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Merger reconciles fetched daily metric candidates against stored rows.
type Merger struct {
	metrics MetricRepository
	now     func() time.Time
}

// NewMerger constructs a Merger.
func NewMerger(metrics MetricRepository) *Merger {
	return &Merger{metrics: metrics, now: time.Now}
}

// Merge upserts a single candidate by its (userID, date, provider) key.
// An existing row's accumulators are replaced in full: the provider's latest
// totals win over any previously stored partial values for that day. Heart
// rate and blood oxygen are point-in-time readings and only overwrite when
// the candidate carries one, so a fetch that could not request them (a
// narrowed permission set) keeps the stored reading. CreatedAt is preserved,
// UpdatedAt refreshed. Merging the same candidate twice is idempotent.
func (m *Merger) Merge(ctx context.Context, candidate DailyMetric) error {
	day := DayOf(candidate.Date)

	existing, err := m.metrics.FindByUserDateProvider(ctx, candidate.UserID, day, candidate.Provider)
	if err != nil {
		return err
	}

	now := m.now().UTC()

	if existing != nil {
		existing.Steps = candidate.Steps
		existing.Calories = candidate.Calories
		existing.Distance = candidate.Distance
		existing.ActiveMinutes = candidate.ActiveMinutes
		if candidate.HeartRate != nil {
			existing.HeartRate = candidate.HeartRate
		}
		if candidate.BloodOxygen != nil {
			existing.BloodOxygen = candidate.BloodOxygen
		}
		existing.UpdatedAt = now
		return m.metrics.Update(ctx, existing)
	}

	candidate.ID = uuid.NewString()
	candidate.Date = day
	candidate.CreatedAt = now
	candidate.UpdatedAt = now
	return m.metrics.Create(ctx, &candidate)
}
