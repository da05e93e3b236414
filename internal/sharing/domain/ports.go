package domain

import (
	"context"
	"time"
)

// Watch is a handle to an active position watch or reporting clock. Stop
// blocks until no further callbacks can fire; it is safe to call once from
// any goroutine other than the one delivering callbacks.
type Watch interface {
	Stop()
}

// PositionSource wraps the device's continuous position-sampling facility.
// Callbacks are delivered from the watch's own goroutine, never from inside
// Watch itself, and never after Stop returns. Reading frequency is
// device-determined.
type PositionSource interface {
	Watch(ctx context.Context, opts SampleOptions, onReading func(PositionReading), onError func(*ShareError)) (Watch, error)
}

// ReportingClock fires at a fixed period regardless of source activity. Its
// sole purpose is to bound the silence window between reports when the
// device is stationary.
type ReportingClock interface {
	Start(period time.Duration, onTick func()) Watch
}

// Reporter transmits one reading to the remote service. It re-reads the
// credential on every call and never retries internally; retry belongs to
// the caller's next natural trigger. On success it returns the send time.
type Reporter interface {
	Send(ctx context.Context, reading PositionReading) (time.Time, error)
}

// CredentialProvider yields the current bearer credential from persisted
// storage at the moment of each send.
type CredentialProvider interface {
	Credential(ctx context.Context) (Credential, error)
}

// ReadingJournal is the optional local persistence for sampled readings.
type ReadingJournal interface {
	Append(ctx context.Context, r PositionReading) (int64, error)
	MarkReported(ctx context.Context, id int64, at time.Time) error
	UnreportedCount(ctx context.Context) (int, error)
	Close() error
}

// TelemetryPublisher mirrors successfully reported readings to the
// deployment's message fabric. Best-effort only.
type TelemetryPublisher interface {
	PublishReading(ctx context.Context, sessionID string, r PositionReading) error
}
