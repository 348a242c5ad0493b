package bridge

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/deckbridge/internal/emitter"
	"github.com/dgnsrekt/deckbridge/internal/metrics"
)

// DeckCount is the number of decks the feed reports on; valid master deck
// indices are 0 and 1.
const DeckCount = 2

// Reconciler owns the shared bridge state and decides what gets emitted.
// All four state fields are read and written together under mu.
type Reconciler struct {
	emitter   emitter.Emitter
	threshold time.Duration
	now       func() time.Time
	metrics   metrics.Collector
	logger    *zap.Logger

	mu               sync.Mutex
	masterDeck       int
	lastHeartbeat    time.Time
	lastEmittedTrack string
	playing          bool
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) {
		r.now = now
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m metrics.Collector) Option {
	return func(r *Reconciler) {
		r.metrics = m
	}
}

// NewReconciler creates a Reconciler on deck 0, paused, with nothing emitted.
func NewReconciler(em emitter.Emitter, threshold time.Duration, logger *zap.Logger, opts ...Option) *Reconciler {
	if threshold <= 0 {
		threshold = DefaultLivenessThreshold
	}

	r := &Reconciler{
		emitter:   em,
		threshold: threshold,
		now:       time.Now,
		metrics:   metrics.NewNop(),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(r)
	}

	r.metrics.SetMasterDeck(0)
	r.metrics.SetPlaying(false)
	return r
}

// MasterDeckChanged switches the master deck. Out-of-range decks and
// repeats of the current deck are ignored. A real switch clears the
// consumer's track right away, before any further poll result counts.
func (r *Reconciler) MasterDeckChanged(ctx context.Context, deck int) {
	if deck < 0 || deck >= DeckCount {
		r.logger.Debug("ignoring out-of-range master deck", zap.Int("deck", deck))
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if deck == r.masterDeck {
		return
	}

	previous := r.masterDeck
	r.masterDeck = deck
	r.lastEmittedTrack = ""
	r.metrics.SetMasterDeck(deck)

	r.logger.Info("master deck changed",
		zap.Int("from", previous+1),
		zap.Int("to", deck+1),
	)

	// The clear is recorded even if the send fails: the new deck's track
	// must be re-sent either way.
	if err := r.emitter.SendTrack(ctx, "", ""); err != nil {
		r.logger.Warn("failed to send track clear", zap.Error(err))
		r.metrics.IncrementEmitError(metrics.KindClear)
		return
	}
	r.metrics.IncrementEmission(metrics.KindClear)
}

// Heartbeat records feed liveness. Nothing is emitted here; the next
// EvaluatePlayState picks the change up.
func (r *Reconciler) Heartbeat(_ context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastHeartbeat = r.now()
}

// EvaluatePlayState recomputes the play state from heartbeat recency and
// emits only when it flips. It reports whether an event was sent.
func (r *Reconciler) EvaluatePlayState(ctx context.Context) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	playing := IsPlaying(r.now(), r.lastHeartbeat, r.threshold)
	if playing == r.playing {
		return false
	}

	if err := r.emitter.SendPlayState(ctx, playing); err != nil {
		r.logger.Warn("failed to send play state", zap.Bool("playing", playing), zap.Error(err))
		r.metrics.IncrementEmitError(metrics.KindPlayState)
		return false
	}

	r.playing = playing
	r.metrics.IncrementEmission(metrics.KindPlayState)
	r.metrics.SetPlaying(playing)

	state := "paused"
	if playing {
		state = "playing"
	}
	r.logger.Info("play state changed", zap.String("state", state))
	return true
}

// MasterDeck returns the current master deck.
func (r *Reconciler) MasterDeck() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.masterDeck
}

// OfferTrack emits a normalized track read from deck if it is still the
// master deck and the track differs from the last one sent. It reports
// whether an event was sent.
func (r *Reconciler) OfferTrack(ctx context.Context, deck int, artist, title string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if deck != r.masterDeck {
		r.logger.Debug("discarding read for previous master deck",
			zap.Int("readDeck", deck),
			zap.Int("masterDeck", r.masterDeck),
		)
		r.metrics.IncrementTickSkipped("stale_deck")
		return false
	}

	track := Canonical(artist, title)
	if track == r.lastEmittedTrack {
		return false
	}

	if err := r.emitter.SendTrack(ctx, artist, title); err != nil {
		r.logger.Warn("failed to send track", zap.String("track", track), zap.Error(err))
		r.metrics.IncrementEmitError(metrics.KindTrack)
		return false
	}

	r.lastEmittedTrack = track
	r.metrics.IncrementEmission(metrics.KindTrack)
	r.logger.Info("new track detected", zap.String("track", track), zap.Int("deck", deck+1))
	return true
}

// Snapshot is a consistent copy of the reconciler state.
type Snapshot struct {
	MasterDeck    int
	Playing       bool
	LastTrack     string
	LastHeartbeat time.Time
	TakenAt       time.Time
}

// HeartbeatAge returns the time since the last heartbeat, or false if none
// was ever received.
func (s Snapshot) HeartbeatAge() (time.Duration, bool) {
	if s.LastHeartbeat.IsZero() {
		return 0, false
	}
	return s.TakenAt.Sub(s.LastHeartbeat), true
}

// Snapshot returns the current state.
func (r *Reconciler) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	return Snapshot{
		MasterDeck:    r.masterDeck,
		Playing:       r.playing,
		LastTrack:     r.lastEmittedTrack,
		LastHeartbeat: r.lastHeartbeat,
		TakenAt:       r.now(),
	}
}
