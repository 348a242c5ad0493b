package emitter

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/hypebeast/go-osc/osc"
	"go.uber.org/zap"

	"github.com/dgnsrekt/deckbridge/internal/config"
)

// Emitter sends reconciled state to the downstream display consumer.
type Emitter interface {
	SendTrack(ctx context.Context, artist, title string) error
	SendPlayState(ctx context.Context, playing bool) error
	Close() error
}

// Client sends OSC messages over a single UDP socket.
// Sends are fire-and-forget: no buffering, no retries.
type Client struct {
	conn   net.Conn
	paths  config.ConsumerConfig
	logger *zap.Logger

	mu sync.Mutex
}

// NewClient dials the consumer. UDP dialing only binds the local socket,
// so it succeeds whether or not anything is listening yet.
func NewClient(cfg config.ConsumerConfig, logger *zap.Logger) (*Client, error) {
	conn, err := net.Dial("udp", cfg.Addr())
	if err != nil {
		return nil, fmt.Errorf("dialing consumer %s: %w", cfg.Addr(), err)
	}

	return &Client{
		conn:   conn,
		paths:  cfg,
		logger: logger,
	}, nil
}

// SendTrack sends artist then title as one logical track update.
func (c *Client) SendTrack(ctx context.Context, artist, title string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.send(ctx, osc.NewMessage(c.paths.ArtistPath, artist)); err != nil {
		return fmt.Errorf("sending artist: %w", err)
	}
	if err := c.send(ctx, osc.NewMessage(c.paths.TitlePath, title)); err != nil {
		return fmt.Errorf("sending title: %w", err)
	}

	c.logger.Debug("track sent", zap.String("artist", artist), zap.String("title", title))
	return nil
}

// SendPlayState sends 1 for playing, 0 for paused.
func (c *Client) SendPlayState(ctx context.Context, playing bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var v int32
	if playing {
		v = 1
	}
	if err := c.send(ctx, osc.NewMessage(c.paths.PlayingPath, v)); err != nil {
		return fmt.Errorf("sending play state: %w", err)
	}

	c.logger.Debug("play state sent", zap.Bool("playing", playing))
	return nil
}

func (c *Client) send(ctx context.Context, msg *osc.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := msg.MarshalBinary()
	if err != nil {
		return fmt.Errorf("encoding %s: %w", msg.Address, err)
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Time{}
	}
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("setting write deadline: %w", err)
	}

	if _, err := c.conn.Write(data); err != nil {
		return err
	}
	return nil
}

// Close releases the UDP socket.
func (c *Client) Close() error {
	return c.conn.Close()
}

// LogEmitter only logs what would have been sent. Used for dry runs.
type LogEmitter struct {
	logger *zap.Logger
}

// NewLogEmitter creates a dry-run emitter.
func NewLogEmitter(logger *zap.Logger) *LogEmitter {
	return &LogEmitter{logger: logger}
}

// SendTrack logs the track update.
func (l *LogEmitter) SendTrack(_ context.Context, artist, title string) error {
	l.logger.Info("dry-run: track", zap.String("artist", artist), zap.String("title", title))
	return nil
}

// SendPlayState logs the play state.
func (l *LogEmitter) SendPlayState(_ context.Context, playing bool) error {
	l.logger.Info("dry-run: play state", zap.Bool("playing", playing))
	return nil
}

// Close is a no-op.
func (l *LogEmitter) Close() error {
	return nil
}

// New creates the appropriate emitter based on config.
func New(cfg config.ConsumerConfig, logger *zap.Logger) (Emitter, error) {
	if cfg.DryRun {
		return NewLogEmitter(logger), nil
	}
	return NewClient(cfg, logger)
}
