package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/deckbridge/internal/metrics"
	"github.com/dgnsrekt/deckbridge/internal/screen"
)

// DefaultPlaceholder is the text the deck shows while a track loads.
const DefaultPlaceholder = "Loading..."

// errReadInFlight means an earlier, timed-out read has not returned yet.
var errReadInFlight = errors.New("previous screen read still in flight")

// Poller runs the fixed-interval tick: play state first, then one screen
// read of the current master deck.
type Poller struct {
	source      screen.Source
	reconciler  *Reconciler
	interval    time.Duration
	readTimeout time.Duration
	placeholder string
	metrics     metrics.Collector
	logger      *zap.Logger

	// reading is set while a bounded read goroutine is running.
	reading atomic.Bool
}

// PollerConfig holds the tick parameters.
type PollerConfig struct {
	Interval    time.Duration
	ReadTimeout time.Duration
	Placeholder string
}

// NewPoller creates a Poller.
func NewPoller(source screen.Source, reconciler *Reconciler, cfg PollerConfig, m metrics.Collector, logger *zap.Logger) *Poller {
	if m == nil {
		m = metrics.NewNop()
	}
	return &Poller{
		source:      source,
		reconciler:  reconciler,
		interval:    cfg.Interval,
		readTimeout: cfg.ReadTimeout,
		placeholder: cfg.Placeholder,
		metrics:     m,
		logger:      logger,
	}
}

// Run ticks until ctx is cancelled. Call in a goroutine.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("poller started",
		zap.Duration("interval", p.interval),
		zap.Duration("readTimeout", p.readTimeout),
	)

	p.Tick(ctx)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("poller stopping")
			return

		case <-ticker.C:
			p.Tick(ctx)
		}
	}
}

// Tick runs one poll cycle. Failures end the tick quietly; a panic is
// logged and the loop carries on with the next tick.
func (p *Poller) Tick(ctx context.Context) {
	defer func() {
		if rec := recover(); rec != nil {
			p.logger.Error("poll tick panicked", zap.Any("panic", rec), zap.Stack("stack"))
			p.metrics.IncrementTickSkipped("panic")
		}
	}()

	p.metrics.IncrementTick()
	p.reconciler.EvaluatePlayState(ctx)

	// Always the current deck, never one captured earlier.
	deck := p.reconciler.MasterDeck()

	res, err := p.read(ctx, deck)
	if errors.Is(err, errReadInFlight) {
		p.logger.Debug("screen read still in flight, skipping tick", zap.Int("deck", deck+1))
		p.metrics.IncrementTickSkipped("busy")
		return
	}
	if err != nil {
		p.logger.Debug("screen read timed out", zap.Int("deck", deck+1), zap.Error(err))
		p.metrics.IncrementTickSkipped("timeout")
		return
	}

	if res.Status != screen.StatusOK {
		p.logger.Debug("screen not readable",
			zap.Int("deck", deck+1),
			zap.Stringer("status", res.Status),
			zap.String("reason", res.Reason),
		)
		p.metrics.IncrementTickSkipped(res.Status.String())
		return
	}

	artist, title, ok := Normalize(res.Artist, res.Title, p.placeholder)
	if !ok {
		p.metrics.IncrementTickSkipped("placeholder")
		return
	}

	p.reconciler.OfferTrack(ctx, deck, artist, title)
}

// read queries the source with a bounded wait. A read that outlives the
// timeout is abandoned; its result is dropped when it eventually returns.
// At most one read runs at a time: until an abandoned read returns, later
// ticks get errReadInFlight instead of starting another.
func (p *Poller) read(ctx context.Context, deck int) (screen.Result, error) {
	if p.readTimeout <= 0 {
		return p.source.TrackInfo(ctx, deck), nil
	}

	if !p.reading.CompareAndSwap(false, true) {
		return screen.Result{}, errReadInFlight
	}

	ctx, cancel := context.WithTimeout(ctx, p.readTimeout)
	defer cancel()

	done := make(chan screen.Result, 1)
	go func() {
		var res screen.Result
		defer func() {
			if rec := recover(); rec != nil {
				res = screen.Unavailable(fmt.Sprintf("reader panic: %v", rec))
			}
			// Cleared before delivery so the next tick never sees a
			// finished read as busy.
			p.reading.Store(false)
			done <- res
		}()
		res = p.source.TrackInfo(ctx, deck)
	}()

	select {
	case res := <-done:
		return res, nil
	case <-ctx.Done():
		return screen.Result{}, ctx.Err()
	}
}
