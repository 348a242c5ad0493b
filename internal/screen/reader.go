package screen

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/dgnsrekt/deckbridge/internal/config"
)

// Layout locates the deck fields inside the anchored container.
type Layout struct {
	Anchor      string
	MinChildren int
	Decks       [2]config.DeckLayout
}

// Reader implements Source over a Driver. It caches the window and
// container between reads and reconnects when either goes stale.
type Reader struct {
	driver       Driver
	title        *regexp.Regexp
	layout       Layout
	limiter      *rate.Limiter
	restoreDelay time.Duration
	logger       *zap.Logger

	mu        sync.Mutex
	window    Window
	container Container
}

var _ Source = (*Reader)(nil)

// NewReader creates a Reader. Connect attempts are limited to
// reconnectPerSecond so a missing window does not get hammered every tick.
func NewReader(driver Driver, title *regexp.Regexp, layout Layout, reconnectPerSecond float64, restoreDelay time.Duration, logger *zap.Logger) *Reader {
	burst := int(math.Ceil(reconnectPerSecond))
	if burst < 1 {
		burst = 1
	}

	return &Reader{
		driver:       driver,
		title:        title,
		layout:       layout,
		limiter:      rate.NewLimiter(rate.Limit(reconnectPerSecond), burst),
		restoreDelay: restoreDelay,
		logger:       logger,
	}
}

// New builds the Reader described by the screen config.
func New(cfg config.ScreenConfig, logger *zap.Logger) (*Reader, error) {
	title, err := regexp.Compile(cfg.WindowTitle)
	if err != nil {
		return nil, fmt.Errorf("compiling window title pattern: %w", err)
	}

	var driver Driver
	switch cfg.Driver {
	case "snapshot":
		driver = NewSnapshotDriver(cfg.SnapshotPath)
	default:
		return nil, fmt.Errorf("unknown screen driver: %s", cfg.Driver)
	}

	layout := Layout{
		Anchor:      cfg.Layout.Anchor,
		MinChildren: cfg.Layout.MinChildren,
		Decks:       [2]config.DeckLayout{cfg.Layout.Deck0, cfg.Layout.Deck1},
	}

	return NewReader(driver, title, layout, cfg.ReconnectPerSecond, cfg.RestoreDelay, logger), nil
}

// Connect finds the window, restores it if minimized and anchors on the
// layout container. Attempts beyond the reconnect rate fail fast.
func (r *Reader) Connect(ctx context.Context) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connect(ctx)
}

// TrackInfo reads the title and artist fields of the given deck.
func (r *Reader) TrackInfo(ctx context.Context, deck int) Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	if deck < 0 || deck >= len(r.layout.Decks) {
		return Unavailable(fmt.Sprintf("no layout for deck %d", deck))
	}

	if !r.checkWindow(ctx) && !r.connect(ctx) {
		return Unavailable("window not connected")
	}
	if r.container == nil && !r.connect(ctx) {
		return Unavailable("layout container not found")
	}

	children, err := r.container.Children()
	if err != nil {
		r.logger.Debug("container read failed", zap.Error(err))
		r.container = nil
		return Unavailable(fmt.Sprintf("read error: %v", err))
	}

	if len(children) < r.layout.MinChildren {
		r.logger.Info("layout changed or incomplete, reconnecting",
			zap.Int("children", len(children)),
			zap.Int("minChildren", r.layout.MinChildren),
		)
		r.connect(ctx)
		return NotReady("layout incomplete")
	}

	fields := r.layout.Decks[deck]
	if fields.TitleIndex >= len(children) || fields.ArtistIndex >= len(children) {
		r.logger.Warn("deck field indices out of range",
			zap.Int("titleIndex", fields.TitleIndex),
			zap.Int("artistIndex", fields.ArtistIndex),
			zap.Int("children", len(children)),
		)
		return Unavailable("field index out of range")
	}

	return OK(children[fields.ArtistIndex], children[fields.TitleIndex])
}

// checkWindow verifies the cached window is still alive and restores it
// when minimized. A failing window handle is dropped.
func (r *Reader) checkWindow(ctx context.Context) bool {
	if r.window == nil {
		return false
	}

	minimized, err := r.window.IsMinimized()
	if err != nil {
		r.logger.Debug("window handle lost", zap.Error(err))
		r.window = nil
		r.container = nil
		return false
	}

	if minimized {
		r.logger.Info("window minimized, restoring")
		if err := r.window.Restore(); err != nil {
			r.logger.Warn("failed to restore window", zap.Error(err))
		}
		r.sleep(ctx, r.restoreDelay/2)
	}
	return true
}

func (r *Reader) connect(ctx context.Context) bool {
	if !r.limiter.Allow() {
		r.logger.Debug("reconnect throttled")
		return false
	}

	window, err := r.driver.FindWindow(ctx, r.title)
	if err != nil {
		r.logger.Debug("window lookup failed", zap.Error(err))
		r.window = nil
		r.container = nil
		return false
	}
	r.window = window

	minimized, err := window.IsMinimized()
	if err == nil && minimized {
		r.logger.Info("window is minimized, restoring to find elements")
		if err := window.Restore(); err != nil {
			r.logger.Warn("failed to restore window", zap.Error(err))
		}
		r.sleep(ctx, r.restoreDelay)
	}

	container, err := window.Container(r.layout.Anchor)
	if err != nil {
		r.logger.Debug("layout anchor lookup failed",
			zap.String("anchor", r.layout.Anchor),
			zap.Error(err),
		)
		r.container = nil
		return false
	}
	r.container = container

	r.logger.Info("connected to application window", zap.String("anchor", r.layout.Anchor))
	return true
}

func (r *Reader) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
