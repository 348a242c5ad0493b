package bridge

import "time"

// DefaultLivenessThreshold is the heartbeat gap at which playback is
// considered paused.
const DefaultLivenessThreshold = 300 * time.Millisecond

// IsPlaying reports whether the feed is alive: a heartbeat was received and
// the gap since it is below threshold. Before the first heartbeat the gap
// is treated as infinite.
func IsPlaying(now, lastHeartbeat time.Time, threshold time.Duration) bool {
	if lastHeartbeat.IsZero() {
		return false
	}
	return now.Sub(lastHeartbeat) < threshold
}
