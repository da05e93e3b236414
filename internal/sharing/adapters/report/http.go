package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"rider-agent/internal/sharing/domain"
)

// Ensure HTTPReporter implements the domain.Reporter interface.
var _ domain.Reporter = (*HTTPReporter)(nil)

// HTTPReporter transmits a single location update to the ride-hail backend:
// PUT /riders/{riderId}/location with a bearer credential. The credential is
// re-read from the provider on every send so a credential change mid-session
// takes effect on the next report. No retry happens here; the next position
// event or clock tick is the retry.
type HTTPReporter struct {
	baseURL string
	creds   domain.CredentialProvider
	client  *http.Client
	logger  *slog.Logger
}

func NewHTTPReporter(baseURL string, timeout time.Duration, creds domain.CredentialProvider, logger *slog.Logger) *HTTPReporter {
	return &HTTPReporter{
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type locationUpdate struct {
	Lat       float64  `json:"lat"`
	Lng       float64  `json:"lng"`
	Accuracy  float64  `json:"accuracy"`
	Heading   *float64 `json:"heading"`
	Speed     *float64 `json:"speed"`
	Timestamp string   `json:"timestamp"`
}

func (r *HTTPReporter) Send(ctx context.Context, reading domain.PositionReading) (time.Time, error) {
	cred, err := r.creds.Credential(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", domain.ErrNoCredential, err)
	}
	if cred.Token == "" || cred.RiderID == "" {
		return time.Time{}, domain.ErrNoCredential
	}

	body, err := json.Marshal(locationUpdate{
		Lat:       reading.Latitude,
		Lng:       reading.Longitude,
		Accuracy:  reading.AccuracyMeters,
		Heading:   reading.HeadingDegrees,
		Speed:     reading.SpeedMps,
		Timestamp: reading.CapturedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("marshal update: %w", err)
	}

	url := fmt.Sprintf("%s/riders/%s/location", r.baseURL, cred.RiderID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return time.Time{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cred.Token)

	resp, err := r.client.Do(req)
	if err != nil {
		return time.Time{}, fmt.Errorf("send update: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return time.Time{}, fmt.Errorf("%w: status %d", domain.ErrRemoteRejected, resp.StatusCode)
	}

	sentAt := time.Now().UTC()
	r.logger.Debug("location_reported", "action", "send_update", "rider_id", cred.RiderID, "status", resp.StatusCode)
	return sentAt, nil
}
