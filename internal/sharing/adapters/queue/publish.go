package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"rider-agent/internal/sharing/domain"
)

// ExchangeLocationFanout is the deployment-wide exchange every location
// consumer (ride service, dispatch dashboards) is bound to.
const ExchangeLocationFanout = "location_fanout"

type rmqChanneler interface {
	Channel() (*amqp.Channel, error)
}

// Ensure LocationPublisher implements the domain.TelemetryPublisher interface.
var _ domain.TelemetryPublisher = (*LocationPublisher)(nil)

// LocationPublisher mirrors successfully reported readings to the location
// fanout exchange. It is strictly best-effort; the session controller logs
// and ignores its failures.
type LocationPublisher struct {
	rmq    rmqChanneler
	creds  domain.CredentialProvider
	logger *slog.Logger
}

func NewLocationPublisher(rmq rmqChanneler, creds domain.CredentialProvider, logger *slog.Logger) *LocationPublisher {
	return &LocationPublisher{rmq: rmq, creds: creds, logger: logger}
}

func (p *LocationPublisher) PublishReading(ctx context.Context, sessionID string, r domain.PositionReading) error {
	cred, err := p.creds.Credential(ctx)
	if err != nil {
		return fmt.Errorf("resolve rider: %w", err)
	}

	ch, err := p.rmq.Channel()
	if err != nil {
		return fmt.Errorf("channel: %w", err)
	}

	msg := map[string]any{
		"rider_id":        cred.RiderID,
		"session_id":      sessionID,
		"lat":             r.Latitude,
		"lng":             r.Longitude,
		"accuracy_meters": r.AccuracyMeters,
		"heading_degrees": r.HeadingDegrees,
		"speed_mps":       r.SpeedMps,
		"captured_at":     r.CapturedAt.UTC().Format(time.RFC3339),
		"producer":        "rider-agent",
		"sent_at":         time.Now().UTC().Format(time.RFC3339),
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	if err := ch.PublishWithContext(ctx,
		ExchangeLocationFanout,
		"",
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	); err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	p.logger.Debug("location_mirrored", "action", "publish_reading", "rider_id", cred.RiderID, "session_id", sessionID)
	return nil
}
