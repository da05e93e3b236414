package domain

import "time"

// PositionReading is one sampled device position. Readings are produced only
// by a PositionSource and are immutable once created.
type PositionReading struct {
	Latitude       float64
	Longitude      float64
	AccuracyMeters float64
	HeadingDegrees *float64
	SpeedMps       *float64
	CapturedAt     time.Time
}

// SampleOptions is passed to the position source when a watch starts.
// MaxCachedAge of zero means every reading must be freshly measured.
type SampleOptions struct {
	HighAccuracy bool
	Timeout      time.Duration
	MaxCachedAge time.Duration
}

// Fixed sampling and reporting policy. Not runtime-configurable.
var DefaultSampleOptions = SampleOptions{
	HighAccuracy: true,
	Timeout:      10 * time.Second,
	MaxCachedAge: 0,
}

const DefaultReportPeriod = 10 * time.Second

type SessionStatus string

const (
	StatusIdle    SessionStatus = "IDLE"
	StatusSharing SessionStatus = "SHARING"
	StatusError   SessionStatus = "ERROR"
)

// SessionSnapshot is the read-only view of the session exposed to the
// presentation layer.
type SessionSnapshot struct {
	SessionID   string
	Status      SessionStatus
	Sharing     bool
	LastReading *PositionReading
	LastError   *ShareError
	LastSentAt  time.Time
}

// Credential is an opaque bearer token plus the rider it names. It is re-read
// from persisted storage at every send, never cached across sends.
type Credential struct {
	Token   string
	RiderID string
}
