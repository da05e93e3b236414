package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"rider-agent/internal/common/contextx"
	"rider-agent/internal/common/log"
	"rider-agent/internal/sharing/domain"
)

// SessionController owns the sharing session state machine. It wires the
// position source and the reporting clock into a single outbound reporting
// stream and keeps resource activation in lockstep with the Sharing state:
// the source and the clock are active iff the session is Sharing.
//
// All state transitions are serialized through one mutex. Callbacks from the
// source and the clock carry the generation they were registered under; a
// callback that acquires the mutex after the session it belongs to ended sees
// a stale generation and does nothing. That is what makes Stop's guarantee
// hold: once Stop returns, late callbacks are inert and the reporter is never
// invoked again.
type SessionController struct {
	source    domain.PositionSource
	clock     domain.ReportingClock
	reporter  domain.Reporter
	journal   domain.ReadingJournal     // optional
	telemetry domain.TelemetryPublisher // optional
	logger    *slog.Logger

	opts   domain.SampleOptions
	period time.Duration

	mu sync.Mutex
	// inflight tracks report dispatches of the current session. A fresh
	// WaitGroup per Start keeps Add and Wait scoped to one session, so a
	// Start racing a still-waiting Stop never reuses its WaitGroup.
	inflight      *sync.WaitGroup
	gen           uint64
	sessionID     string
	status        domain.SessionStatus
	lastReading   *domain.PositionReading
	lastReadingID int64
	lastErr       *domain.ShareError
	lastSentAt    time.Time
	srcWatch      domain.Watch
	clockWatch    domain.Watch
	baseCtx       context.Context
}

func NewSessionController(
	source domain.PositionSource,
	clock domain.ReportingClock,
	reporter domain.Reporter,
	journal domain.ReadingJournal,
	telemetry domain.TelemetryPublisher,
	logger *slog.Logger,
) *SessionController {
	return &SessionController{
		source:    source,
		clock:     clock,
		reporter:  reporter,
		journal:   journal,
		telemetry: telemetry,
		logger:    logger,
		opts:      domain.DefaultSampleOptions,
		period:    domain.DefaultReportPeriod,
		status:    domain.StatusIdle,
		baseCtx:   context.Background(),
	}
}

// Start activates position sampling and the reporting clock. It is a no-op
// when already sharing and fails fast, staying Idle, when the device has no
// position-sampling capability.
func (c *SessionController) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status == domain.StatusSharing {
		return nil
	}

	if c.source == nil {
		c.lastErr = &domain.ShareError{Kind: domain.KindUnsupported, Message: "no position source available"}
		c.status = domain.StatusIdle
		log.Error(ctx, c.logger, "share_start_unsupported", "Position sampling not available on this device", c.lastErr)
		return c.lastErr
	}

	c.gen++
	gen := c.gen
	c.inflight = &sync.WaitGroup{}
	c.baseCtx = context.WithoutCancel(ctx)

	srcWatch, err := c.source.Watch(ctx, c.opts,
		func(r domain.PositionReading) { c.onReading(gen, r) },
		func(e *domain.ShareError) { c.onSourceError(gen, e) },
	)
	if err != nil {
		shareErr := asShareError(err)
		c.lastErr = shareErr
		c.status = domain.StatusIdle
		log.Error(ctx, c.logger, "share_start_fail", "Failed to activate position source", err)
		return shareErr
	}

	c.srcWatch = srcWatch
	c.clockWatch = c.clock.Start(c.period, func() { c.onTick(gen) })

	c.sessionID = uuid.NewString()
	c.status = domain.StatusSharing
	c.lastErr = nil
	c.lastReading = nil
	c.lastReadingID = 0
	c.lastSentAt = time.Time{}

	log.Info(contextx.WithSessionID(ctx, c.sessionID), c.logger, "share_started", "Location sharing session started")
	return nil
}

// Stop is idempotent: it deactivates the source and the clock
// unconditionally, clears the cache and all auxiliary state, and transitions
// to Idle. When Stop returns, no further reporter invocation can occur.
func (c *SessionController) Stop() {
	c.mu.Lock()
	c.gen++ // invalidates every callback registered before this point
	src, clk := c.srcWatch, c.clockWatch
	inflight := c.inflight
	sessionID := c.sessionID
	c.srcWatch, c.clockWatch = nil, nil
	c.sessionID = ""
	c.status = domain.StatusIdle
	c.lastReading = nil
	c.lastReadingID = 0
	c.lastErr = nil
	c.lastSentAt = time.Time{}
	c.mu.Unlock()

	if src != nil {
		src.Stop()
	}
	if clk != nil {
		clk.Stop()
	}
	// In-flight dispatches either fail their generation check or complete
	// their send here; either way the reporter is silent once Stop returns.
	if inflight != nil {
		inflight.Wait()
	}
	if sessionID != "" {
		ctx := contextx.WithSessionID(context.Background(), sessionID)
		log.Info(ctx, c.logger, "share_stopped", "Location sharing session stopped")
	}
}

// Snapshot returns the current observable session state.
func (c *SessionController) Snapshot() domain.SessionSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := domain.SessionSnapshot{
		SessionID:  c.sessionID,
		Status:     c.status,
		Sharing:    c.status == domain.StatusSharing,
		LastSentAt: c.lastSentAt,
	}
	if c.lastReading != nil {
		r := *c.lastReading
		snap.LastReading = &r
	}
	if c.lastErr != nil {
		e := *c.lastErr
		snap.LastError = &e
	}
	return snap
}

// onReading stores the reading as the last known position, clears any
// transient error, and reports immediately.
func (c *SessionController) onReading(gen uint64, r domain.PositionReading) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}

	reading := r
	c.lastReading = &reading
	c.lastErr = nil
	c.lastReadingID = 0

	if c.journal != nil {
		id, err := c.journal.Append(c.baseCtx, reading)
		if err != nil {
			log.Warn(c.logCtx(), c.logger, "journal_append_fail", "Failed to journal reading", err)
		} else {
			c.lastReadingID = id
		}
	}

	c.dispatchSend(gen, reading, c.lastReadingID)
	c.mu.Unlock()
}

// onSourceError classifies a sampling error. Transient kinds only update the
// displayed error; fatal kinds tear the session down, leaving the observable
// state Error with the remembered kind rather than silently Idle.
func (c *SessionController) onSourceError(gen uint64, e *domain.ShareError) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}

	if !e.Kind.Fatal() {
		c.lastErr = e
		ctx := c.logCtx()
		c.mu.Unlock()
		log.Warn(ctx, c.logger, "position_error_transient", "Transient position error, session continues", e)
		return
	}

	c.gen++
	src, clk := c.srcWatch, c.clockWatch
	inflight := c.inflight
	c.srcWatch, c.clockWatch = nil, nil
	c.lastReading = nil
	c.lastReadingID = 0
	c.lastSentAt = time.Time{}
	c.status = domain.StatusError
	c.lastErr = e
	ctx := c.logCtx()
	c.mu.Unlock()

	log.Error(ctx, c.logger, "position_error_fatal", "Fatal position error, session terminated", e)

	// Teardown must not run on the callback goroutine itself: the source's
	// Stop waits for that goroutine to exit. The generation bump above has
	// already made every outstanding callback inert.
	go func() {
		if src != nil {
			src.Stop()
		}
		if clk != nil {
			clk.Stop()
		}
		if inflight != nil {
			inflight.Wait()
		}
	}()
}

// onTick reports the cached last reading. Ticks arriving while the cache is
// empty are dropped, not buffered.
func (c *SessionController) onTick(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || c.lastReading == nil {
		c.mu.Unlock()
		return
	}
	c.dispatchSend(gen, *c.lastReading, c.lastReadingID)
	c.mu.Unlock()
}

// dispatchSend invokes the reporter without blocking the event path. The
// outcome re-enters through onReportOutcome under the same generation check.
//
// Must be called with c.mu held: the in-flight registration has to happen
// while gen is still current, so that Stop's Wait covers every dispatch that
// could reach the reporter. The goroutine re-checks the generation before
// sending; a dispatch that lost the race to a stop never invokes the reporter.
func (c *SessionController) dispatchSend(gen uint64, reading domain.PositionReading, journalID int64) {
	wg := c.inflight
	wg.Add(1)
	go func() {
		defer wg.Done()

		c.mu.Lock()
		if gen != c.gen {
			c.mu.Unlock()
			return
		}
		ctx := c.baseCtx
		c.mu.Unlock()

		sentAt, err := c.reporter.Send(ctx, reading)
		c.onReportOutcome(gen, journalID, reading, sentAt, err)
	}()
}

// onReportOutcome records the send result. A failed send never alters the
// Sharing status; it only surfaces as a non-blocking error indicator.
func (c *SessionController) onReportOutcome(gen uint64, journalID int64, reading domain.PositionReading, sentAt time.Time, err error) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}

	if err != nil {
		c.lastErr = &domain.ShareError{Kind: domain.KindNetworkSendFailed, Message: err.Error()}
		ctx := c.logCtx()
		c.mu.Unlock()
		log.Warn(ctx, c.logger, "report_send_fail", "Location report failed, session continues", err)
		return
	}

	c.lastSentAt = sentAt
	sessionID := c.sessionID
	ctx := c.logCtx()
	c.mu.Unlock()

	if c.journal != nil && journalID > 0 {
		if jerr := c.journal.MarkReported(c.baseCtx, journalID, sentAt); jerr != nil {
			log.Warn(ctx, c.logger, "journal_mark_fail", "Failed to mark reading reported", jerr)
		}
	}
	if c.telemetry != nil {
		if terr := c.telemetry.PublishReading(c.baseCtx, sessionID, reading); terr != nil {
			log.Warn(ctx, c.logger, "telemetry_publish_fail", "Failed to mirror reading to telemetry", terr)
		}
	}
}

// logCtx must be called with c.mu held.
func (c *SessionController) logCtx() context.Context {
	return contextx.WithSessionID(context.Background(), c.sessionID)
}

func asShareError(err error) *domain.ShareError {
	var se *domain.ShareError
	if errors.As(err, &se) {
		return se
	}
	return &domain.ShareError{Kind: domain.KindUnsupported, Message: err.Error()}
}
