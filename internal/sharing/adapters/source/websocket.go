package source

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"rider-agent/internal/sharing/domain"
)

// Ensure FeedSource implements the domain.PositionSource interface.
var _ domain.PositionSource = (*FeedSource)(nil)

// FeedSource samples positions from the device's position-feed daemon, a
// local WebSocket endpoint that pushes readings at its own rate. Activating a
// watch sends the sampling options; the feed answers with position and error
// messages. Acquisition timeouts are enforced by the feed itself and arrive
// as error code 3.
//
// A feed that cannot be reached at activation means the device has no
// position-sampling capability. A feed that drops mid-watch is a transient
// condition: the watch surfaces it as PositionUnavailable and redials until
// stopped.
type FeedSource struct {
	url        string
	logger     *slog.Logger
	dialer     *websocket.Dialer
	redialWait time.Duration
}

func NewFeedSource(url string, logger *slog.Logger) *FeedSource {
	return &FeedSource{
		url:        url,
		logger:     logger,
		dialer:     websocket.DefaultDialer,
		redialWait: 5 * time.Second,
	}
}

type watchRequest struct {
	Type         string `json:"type"`
	HighAccuracy bool   `json:"high_accuracy"`
	TimeoutMs    int64  `json:"timeout_ms"`
	MaxAgeMs     int64  `json:"max_age_ms"`
}

type feedMessage struct {
	Type           string    `json:"type"`
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	AccuracyMeters float64   `json:"accuracy_meters"`
	HeadingDegrees *float64  `json:"heading_degrees"`
	SpeedMps       *float64  `json:"speed_mps"`
	CapturedAt     time.Time `json:"captured_at"`
	Code           int       `json:"code"`
	Message        string    `json:"message"`
}

func (s *FeedSource) Watch(ctx context.Context, opts domain.SampleOptions, onReading func(domain.PositionReading), onError func(*domain.ShareError)) (domain.Watch, error) {
	conn, err := s.dial(ctx, opts)
	if err != nil {
		return nil, &domain.ShareError{Kind: domain.KindUnsupported, Message: "position feed unreachable: " + err.Error()}
	}

	// Redials outlive the activation call; their dials are bound to the
	// watch's own lifetime so Stop aborts a handshake in flight.
	wctx, cancel := context.WithCancel(context.Background())
	w := &feedWatch{
		src:    s,
		opts:   opts,
		conn:   conn,
		ctx:    wctx,
		cancel: cancel,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go w.run(onReading, onError)
	return w, nil
}

func (s *FeedSource) dial(ctx context.Context, opts domain.SampleOptions) (*websocket.Conn, error) {
	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return nil, err
	}

	req := watchRequest{
		Type:         "watch",
		HighAccuracy: opts.HighAccuracy,
		TimeoutMs:    opts.Timeout.Milliseconds(),
		MaxAgeMs:     opts.MaxCachedAge.Milliseconds(),
	}
	if err := conn.WriteJSON(req); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

type feedWatch struct {
	src    *FeedSource
	opts   domain.SampleOptions
	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	conn *websocket.Conn

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

func (w *feedWatch) run(onReading func(domain.PositionReading), onError func(*domain.ShareError)) {
	defer close(w.done)

	for {
		var msg feedMessage
		if err := w.current().ReadJSON(&msg); err != nil {
			if w.stopped() {
				return
			}
			onError(&domain.ShareError{Kind: domain.KindPositionUnavailable, Message: "position feed lost: " + err.Error()})
			if !w.redial() {
				return
			}
			continue
		}

		switch msg.Type {
		case "position":
			if msg.Latitude < -90 || msg.Latitude > 90 || msg.Longitude < -180 || msg.Longitude > 180 {
				onError(&domain.ShareError{Kind: domain.KindUnknown, Message: "feed reported invalid coordinates"})
				continue
			}
			capturedAt := msg.CapturedAt
			if capturedAt.IsZero() {
				capturedAt = time.Now().UTC()
			}
			onReading(domain.PositionReading{
				Latitude:       msg.Latitude,
				Longitude:      msg.Longitude,
				AccuracyMeters: msg.AccuracyMeters,
				HeadingDegrees: msg.HeadingDegrees,
				SpeedMps:       msg.SpeedMps,
				CapturedAt:     capturedAt,
			})
		case "error":
			onError(domain.ClassifySourceError(msg.Code, msg.Message))
		default:
			w.src.logger.Debug("feed_message_ignored", "action", "read_feed", "type", msg.Type)
		}
	}
}

// redial reconnects with a fixed backoff until it succeeds or the watch is
// stopped. Returns false when the watch stopped while waiting.
func (w *feedWatch) redial() bool {
	for {
		select {
		case <-w.stop:
			return false
		case <-time.After(w.src.redialWait):
		}

		conn, err := w.src.dial(w.ctx, w.opts)
		if err != nil {
			w.src.logger.Warn("feed_redial_fail", "action", "redial_feed", "error", err.Error())
			continue
		}

		w.mu.Lock()
		w.conn = conn
		w.mu.Unlock()

		// Stop may have closed the previous conn while the swap was in
		// flight; re-check so the fresh conn is not leaked.
		if w.stopped() {
			_ = conn.Close()
			return false
		}
		w.src.logger.Info("feed_reconnected", "action", "redial_feed")
		return true
	}
}

func (w *feedWatch) current() *websocket.Conn {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn
}

func (w *feedWatch) stopped() bool {
	select {
	case <-w.stop:
		return true
	default:
		return false
	}
}

// Stop cancels the watch and waits until the read loop has exited, so no
// callback can fire after it returns.
func (w *feedWatch) Stop() {
	w.once.Do(func() {
		w.cancel()
		close(w.stop)
		_ = w.current().Close()
	})
	<-w.done
}
