package main

import (
	"fmt"
	"net"
	"time"

	"github.com/hypebeast/go-osc/osc"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func feedCmd() *cobra.Command {
	var (
		host       string
		deck       int
		heartbeats int
		every      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Send test feed messages to a running bridge",
		Long: `Send a master-deck change or a burst of heartbeats to the bridge's feed
port, standing in for the upstream feed.

Examples:
  deckbridge feed --deck 1
  deckbridge feed --heartbeats 20 --every 100ms`,
		RunE: func(cmd *cobra.Command, args []string) error {
			deckSet := cmd.Flags().Changed("deck")
			if deckSet == (heartbeats > 0) {
				return fmt.Errorf("specify exactly one of --deck or --heartbeats")
			}
			if every <= 0 {
				return fmt.Errorf("--every must be > 0")
			}

			addr := fmt.Sprintf("%s:%d", host, cfg.Feed.Port)
			conn, err := net.Dial("udp", addr)
			if err != nil {
				return fmt.Errorf("dialing feed %s: %w", addr, err)
			}
			defer conn.Close()

			if deckSet {
				if err := sendPacket(conn, osc.NewMessage(cfg.Feed.DeckPath, int32(deck))); err != nil {
					return err
				}
				logger.Info("sent master deck change", zap.String("addr", addr), zap.Int("deck", deck))
				return nil
			}

			ctx := cmd.Context()
			ticker := time.NewTicker(every)
			defer ticker.Stop()

			for i := 0; i < heartbeats; i++ {
				if i > 0 {
					select {
					case <-ctx.Done():
						logger.Info("heartbeat burst interrupted", zap.Int("sent", i))
						return nil
					case <-ticker.C:
					}
				}
				if err := sendPacket(conn, osc.NewMessage(cfg.Feed.HeartbeatPath)); err != nil {
					return err
				}
			}
			logger.Info("sent heartbeats",
				zap.String("addr", addr),
				zap.Int("count", heartbeats),
				zap.Duration("every", every),
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "bridge host")
	cmd.Flags().IntVar(&deck, "deck", 0, "master deck index to announce (0 or 1)")
	cmd.Flags().IntVar(&heartbeats, "heartbeats", 0, "number of heartbeats to send")
	cmd.Flags().DurationVar(&every, "every", 100*time.Millisecond, "interval between heartbeats")

	return cmd
}

func sendPacket(conn net.Conn, packet osc.Packet) error {
	data, err := packet.MarshalBinary()
	if err != nil {
		return fmt.Errorf("encoding OSC packet: %w", err)
	}
	if _, err := conn.Write(data); err != nil {
		return fmt.Errorf("sending OSC packet: %w", err)
	}
	return nil
}
