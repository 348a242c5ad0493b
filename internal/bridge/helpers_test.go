package bridge

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/dgnsrekt/deckbridge/internal/screen"
)

type event struct {
	kind    string // "track" or "play"
	artist  string
	title   string
	playing bool
}

func trackEvent(artist, title string) event { return event{kind: "track", artist: artist, title: title} }
func playEvent(playing bool) event          { return event{kind: "play", playing: playing} }

type recordingEmitter struct {
	mu     sync.Mutex
	events []event
	err    error
}

func (e *recordingEmitter) SendTrack(_ context.Context, artist, title string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.events = append(e.events, trackEvent(artist, title))
	return nil
}

func (e *recordingEmitter) SendPlayState(_ context.Context, playing bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.events = append(e.events, playEvent(playing))
	return nil
}

func (e *recordingEmitter) Close() error { return nil }

func (e *recordingEmitter) setErr(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.err = err
}

func (e *recordingEmitter) Events() []event {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]event(nil), e.events...)
}

type fakeClock struct {
	mu   sync.Mutex
	base time.Time
	now  time.Time
}

func newFakeClock() *fakeClock {
	base := time.Date(2026, 10, 18, 21, 0, 0, 0, time.UTC)
	return &fakeClock{base: base, now: base}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// At moves the clock to base+offset.
func (c *fakeClock) At(offset time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.base.Add(offset)
}

// fakeSource returns a fixed result per deck.
type fakeSource struct {
	mu      sync.Mutex
	results map[int]screen.Result
	reads   []int
	onRead  func(deck int)
}

func newFakeSource() *fakeSource {
	return &fakeSource{results: make(map[int]screen.Result)}
}

func (s *fakeSource) Connect(_ context.Context) bool { return true }

func (s *fakeSource) TrackInfo(_ context.Context, deck int) screen.Result {
	s.mu.Lock()
	res, ok := s.results[deck]
	s.reads = append(s.reads, deck)
	hook := s.onRead
	s.mu.Unlock()

	if hook != nil {
		hook(deck)
	}
	if !ok {
		return screen.Unavailable("no fixture")
	}
	return res
}

func (s *fakeSource) set(deck int, res screen.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[deck] = res
}

func newTestReconciler(t *testing.T) (*Reconciler, *recordingEmitter, *fakeClock) {
	t.Helper()
	em := &recordingEmitter{}
	clock := newFakeClock()
	r := NewReconciler(em, DefaultLivenessThreshold, zaptest.NewLogger(t), WithClock(clock.Now))
	return r, em, clock
}
