package balance

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"cryptodash/internal/format"
	"cryptodash/internal/models"

	"go.uber.org/zap"
)

// DefaultSeedBalance is the balance shown when the session starts
const DefaultSeedBalance = 12345.67

// Bounds of the per-tick percentage move
const (
	minDeltaPercent = -2.0
	maxDeltaPercent = 2.0
)

var ErrAlreadyRunning = errors.New("balance engine already running")

// ReferenceMode selects the baseline used for the displayed percentage change
type ReferenceMode string

const (
	// ReferenceFrame refreshes the baseline to the current balance on every frame selection
	ReferenceFrame ReferenceMode = "frame"
	// ReferenceSession freezes the baseline at the seed balance
	ReferenceSession ReferenceMode = "session"
)

// ParseReferenceMode validates a configured reference mode
func ParseReferenceMode(s string) (ReferenceMode, error) {
	switch ReferenceMode(s) {
	case ReferenceFrame, ReferenceSession:
		return ReferenceMode(s), nil
	default:
		return "", fmt.Errorf("invalid reference mode %q (must be frame or session)", s)
	}
}

type Options struct {
	SeedBalance   float64
	InitialFrame  models.TimeFrame
	ReferenceMode ReferenceMode
	Now           func() time.Time
}

// Engine owns the simulated balance, its history window and the tick timer.
// Tick and SelectFrame each run to completion under mu, so exactly one timer
// drives the history at any moment.
type Engine struct {
	mu         sync.Mutex
	balance    float64
	reference  float64
	history    []float64
	frame      models.TimeFrame
	timer      Timer
	generation uint64 // Bumped whenever the timer is replaced
	running    bool

	referenceMode ReferenceMode
	scheduler     Scheduler
	random        RandomSource
	renderer      Renderer
	now           func() time.Time
	logger        *zap.Logger
}

// NewEngine creates a stopped engine whose history holds only the seed balance
func NewEngine(opts Options, scheduler Scheduler, random RandomSource, renderer Renderer, logger *zap.Logger) (*Engine, error) {
	if opts.SeedBalance < 0 {
		return nil, fmt.Errorf("seed balance must not be negative: %v", opts.SeedBalance)
	}
	if opts.InitialFrame == "" {
		opts.InitialFrame = models.DefaultTimeFrame
	}
	if !opts.InitialFrame.Valid() {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidFrame, opts.InitialFrame)
	}
	if opts.ReferenceMode == "" {
		opts.ReferenceMode = ReferenceFrame
	}
	if _, err := ParseReferenceMode(string(opts.ReferenceMode)); err != nil {
		return nil, err
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if renderer == nil {
		renderer = RendererFunc(func(models.BalanceUpdate) {})
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Engine{
		balance:       opts.SeedBalance,
		reference:     opts.SeedBalance,
		history:       []float64{opts.SeedBalance},
		frame:         opts.InitialFrame,
		referenceMode: opts.ReferenceMode,
		scheduler:     scheduler,
		random:        random,
		renderer:      renderer,
		now:           opts.Now,
		logger:        logger,
	}, nil
}

// Start arms the tick timer for the active frame
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return ErrAlreadyRunning
	}
	e.running = true
	e.armTimerLocked()

	e.logger.Info("Balance engine started",
		zap.String("frame", string(e.frame)),
		zap.Duration("interval", e.frame.Interval()),
		zap.Float64("balance", e.balance))

	e.renderer.Render(e.snapshotLocked())
	return nil
}

// Stop cancels the tick timer. Calling Stop on a stopped engine is a no-op.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return
	}
	e.releaseTimerLocked()
	e.running = false
	e.logger.Info("Balance engine stopped", zap.Float64("balance", e.balance))
}

// Tick applies one random move to the balance and renders the result
func (e *Engine) Tick() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tickLocked()
}

// tickFromTimer ignores callbacks from a timer that has since been replaced
func (e *Engine) tickFromTimer(generation uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if generation != e.generation || !e.running {
		e.logger.Debug("Ignoring stale tick", zap.Uint64("generation", generation))
		return
	}
	e.tickLocked()
}

func (e *Engine) tickLocked() {
	delta := drawDelta(e.random)

	e.balance += e.balance * delta / 100
	if e.balance < 0 {
		e.balance = 0
	}

	e.history = append(e.history, e.balance)
	if limit := e.frame.Retention(); len(e.history) > limit {
		// Copy so the evicted prefix is not pinned by the backing array
		e.history = append([]float64(nil), e.history[len(e.history)-limit:]...)
	}

	e.renderer.Render(e.snapshotLocked())
}

// drawDelta maps a uniform draw to a percentage move in [-2, +2]
func drawDelta(random RandomSource) float64 {
	u := random.Float64()
	if u < 0 {
		u = 0
	} else if u > 1 {
		u = 1
	}
	return minDeltaPercent + u*(maxDeltaPercent-minDeltaPercent)
}

// SelectFrame switches the active frame. On an invalid label the frame,
// history and timer are left untouched and an error wrapping
// models.ErrInvalidFrame is returned. Every successful call resets the
// history to the current balance, including a repeat of the active frame.
func (e *Engine) SelectFrame(label string) error {
	_, err := e.SelectFrameSnapshot(label)
	return err
}

// SelectFrameSnapshot is SelectFrame returning the snapshot rendered for the
// new frame, taken in the same critical section so no tick can slip in.
func (e *Engine) SelectFrameSnapshot(label string) (models.BalanceUpdate, error) {
	frame, err := models.ParseTimeFrame(label)
	if err != nil {
		return models.BalanceUpdate{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	previous := e.frame
	e.releaseTimerLocked()

	e.frame = frame
	e.history = []float64{e.balance}
	if e.referenceMode == ReferenceFrame {
		e.reference = e.balance
	}

	if e.running {
		e.armTimerLocked()
	}

	e.logger.Info("Time frame selected",
		zap.String("from", string(previous)),
		zap.String("to", string(frame)),
		zap.Duration("interval", frame.Interval()),
		zap.Int("retention", frame.Retention()))

	update := e.snapshotLocked()
	e.renderer.Render(update)
	return update, nil
}

// releaseTimerLocked stops the live timer and invalidates any callback it already dispatched
func (e *Engine) releaseTimerLocked() {
	e.generation++
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

func (e *Engine) armTimerLocked() {
	if e.timer != nil {
		e.releaseTimerLocked()
	}
	generation := e.generation
	e.timer = e.scheduler.Every(e.frame.Interval(), func() {
		e.tickFromTimer(generation)
	})
}

// Snapshot returns a copy of the current state
func (e *Engine) Snapshot() models.BalanceUpdate {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Frame returns the active time frame
func (e *Engine) Frame() models.TimeFrame {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frame
}

// Running reports whether the tick timer is armed
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

func (e *Engine) snapshotLocked() models.BalanceUpdate {
	change := changePercent(e.balance, e.reference)
	history := make([]float64, len(e.history))
	copy(history, e.history)

	return models.BalanceUpdate{
		Balance:          e.balance,
		FormattedBalance: format.Currency(e.balance),
		Reference:        e.reference,
		ChangePercent:    change,
		FormattedChange:  format.SignedPercent(change),
		Positive:         change >= 0,
		History:          history,
		Frame:            e.frame,
		IntervalMs:       e.frame.Interval().Milliseconds(),
		Retention:        e.frame.Retention(),
		Timestamp:        e.now().UnixMilli(),
	}
}

func changePercent(balance, reference float64) float64 {
	if reference == 0 {
		return 0
	}
	return (balance - reference) / reference * 100
}
