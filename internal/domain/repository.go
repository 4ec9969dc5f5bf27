package domain

import (
	"context"
	"time"
)

// ConnectionRepository captures persistence operations for connections.
// Lookup methods return (nil, nil) when no row matches.
type ConnectionRepository interface {
	FindByUserAndProvider(ctx context.Context, userID string, provider Provider) (*Connection, error)
	ListByStatus(ctx context.Context, status ConnectionStatus) ([]Connection, error)
	Update(ctx context.Context, conn *Connection) error
}

// MetricRepository captures persistence operations for daily metrics.
type MetricRepository interface {
	FindByUserDateProvider(ctx context.Context, userID string, date time.Time, provider Provider) (*DailyMetric, error)
	Create(ctx context.Context, metric *DailyMetric) error
	Update(ctx context.Context, metric *DailyMetric) error
}
