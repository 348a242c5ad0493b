package feed

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/hypebeast/go-osc/osc"
	"go.uber.org/zap"

	"github.com/dgnsrekt/deckbridge/internal/metrics"
)

// maxDatagram is the largest UDP payload.
const maxDatagram = 65535

var errEmptyDatagram = errors.New("empty datagram")

// Handler receives decoded feed events. Calls are made one at a time from
// the listener goroutine and must return quickly.
type Handler interface {
	MasterDeckChanged(ctx context.Context, deck int)
	Heartbeat(ctx context.Context)
}

// Paths are the OSC addresses the listener routes.
type Paths struct {
	Deck      string
	Heartbeat string
}

// Listener reads OSC datagrams from the upstream feed and dispatches them.
// A bad datagram is logged and dropped; only a socket failure ends Serve.
type Listener struct {
	paths   Paths
	handler Handler
	metrics metrics.Collector
	logger  *zap.Logger
}

// NewListener creates a Listener.
func NewListener(paths Paths, handler Handler, m metrics.Collector, logger *zap.Logger) *Listener {
	if m == nil {
		m = metrics.NewNop()
	}
	return &Listener{
		paths:   paths,
		handler: handler,
		metrics: m,
		logger:  logger,
	}
}

// ListenAndServe binds addr and serves until ctx is cancelled.
func (l *Listener) ListenAndServe(ctx context.Context, addr string) error {
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	return l.Serve(ctx, conn)
}

// Serve reads from conn until ctx is cancelled or the socket fails. It
// closes conn on return.
func (l *Listener) Serve(ctx context.Context, conn net.PacketConn) error {
	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})
	defer stop()
	defer conn.Close()

	l.logger.Info("listening for deck info and time",
		zap.String("addr", conn.LocalAddr().String()),
		zap.String("deckPath", l.paths.Deck),
		zap.String("heartbeatPath", l.paths.Heartbeat),
	)

	buf := make([]byte, maxDatagram)
	for {
		n, from, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				l.logger.Info("feed listener stopping")
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return fmt.Errorf("reading feed: %w", err)
		}

		l.handleDatagram(ctx, buf[:n], from)
	}
}

// handleDatagram decodes and dispatches one datagram. It never panics.
func (l *Listener) handleDatagram(ctx context.Context, data []byte, from net.Addr) {
	defer func() {
		if rec := recover(); rec != nil {
			l.logger.Error("feed handler panicked",
				zap.Any("panic", rec),
				zap.Stack("stack"),
			)
		}
	}()

	var packet osc.Packet
	err := errEmptyDatagram
	if len(data) > 0 {
		packet, err = osc.ParsePacket(string(data))
	}
	if err != nil {
		l.metrics.IncrementFeedMessage(metrics.FeedMalformed)
		l.logger.Warn("dropping malformed feed datagram",
			zap.Stringer("from", from),
			zap.Int("bytes", len(data)),
			zap.Error(err),
		)
		return
	}

	for _, msg := range messages(packet) {
		l.dispatch(ctx, msg)
	}
}

func (l *Listener) dispatch(ctx context.Context, msg *osc.Message) {
	switch msg.Address {
	case l.paths.Heartbeat:
		l.metrics.IncrementFeedMessage(metrics.FeedHeartbeat)
		l.handler.Heartbeat(ctx)

	case l.paths.Deck:
		deck, err := DeckArgument(msg)
		if err != nil {
			l.metrics.IncrementFeedMessage(metrics.FeedMalformed)
			l.logger.Warn("dropping malformed deck change",
				zap.String("address", msg.Address),
				zap.Error(err),
			)
			return
		}
		l.metrics.IncrementFeedMessage(metrics.FeedDeck)
		l.handler.MasterDeckChanged(ctx, deck)

	default:
		l.metrics.IncrementFeedMessage(metrics.FeedUnknown)
		l.logger.Debug("ignoring unknown feed address", zap.String("address", msg.Address))
	}
}
