package balance

import (
	"sync"
	"time"
)

// Timer is a handle to a repeating callback
type Timer interface {
	Stop()
}

// Scheduler arms repeating callbacks
type Scheduler interface {
	Every(interval time.Duration, fn func()) Timer
}

// TickerScheduler runs each callback on its own goroutine driven by a time.Ticker
type TickerScheduler struct{}

// NewTickerScheduler creates the production scheduler
func NewTickerScheduler() *TickerScheduler {
	return &TickerScheduler{}
}

// Every starts a ticker that calls fn every interval until the returned Timer is stopped
func (s *TickerScheduler) Every(interval time.Duration, fn func()) Timer {
	t := &tickerTimer{
		ticker:   time.NewTicker(interval),
		stopChan: make(chan struct{}),
	}
	go t.run(fn)
	return t
}

type tickerTimer struct {
	ticker   *time.Ticker
	stopChan chan struct{}
	once     sync.Once
}

func (t *tickerTimer) run(fn func()) {
	defer t.ticker.Stop()
	for {
		select {
		case <-t.ticker.C:
			fn()
		case <-t.stopChan:
			return
		}
	}
}

// Stop is safe to call more than once
func (t *tickerTimer) Stop() {
	t.once.Do(func() {
		close(t.stopChan)
	})
}
