package clock

import (
	"sync"
	"time"

	"rider-agent/internal/sharing/domain"
)

// Ensure TickerClock implements the domain.ReportingClock interface.
var _ domain.ReportingClock = (*TickerClock)(nil)

// TickerClock drives the reporting cadence off a time.Ticker. Each Start
// spawns one goroutine; Stop tears it down and waits for it to exit, so no
// tick callback can fire after Stop returns.
type TickerClock struct{}

func New() *TickerClock {
	return &TickerClock{}
}

func (TickerClock) Start(period time.Duration, onTick func()) domain.Watch {
	w := &tickerWatch{
		ticker: time.NewTicker(period),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go w.run(onTick)
	return w
}

type tickerWatch struct {
	ticker *time.Ticker
	stop   chan struct{}
	done   chan struct{}
	once   sync.Once
}

func (w *tickerWatch) run(onTick func()) {
	defer close(w.done)
	for {
		select {
		case <-w.stop:
			return
		case <-w.ticker.C:
			onTick()
		}
	}
}

func (w *tickerWatch) Stop() {
	w.once.Do(func() {
		w.ticker.Stop()
		close(w.stop)
	})
	<-w.done
}
