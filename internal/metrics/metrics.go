// Package metrics records bridge activity: emissions, skipped poll ticks and
// inbound feed traffic.
package metrics

// Emission kinds.
const (
	KindTrack     = "track"
	KindClear     = "clear"
	KindPlayState = "play_state"
)

// Feed message kinds.
const (
	FeedDeck      = "deck"
	FeedHeartbeat = "heartbeat"
	FeedUnknown   = "unknown"
	FeedMalformed = "malformed"
)

// Collector is the metrics surface used by the bridge components.
type Collector interface {
	IncrementEmission(kind string)
	IncrementEmitError(kind string)
	IncrementTick()
	IncrementTickSkipped(reason string)
	IncrementFeedMessage(kind string)
	SetMasterDeck(deck int)
	SetPlaying(playing bool)
}

// Nop discards every metric.
type Nop struct{}

var _ Collector = (*Nop)(nil)

// NewNop creates a new no-op collector.
func NewNop() *Nop {
	return &Nop{}
}

func (n *Nop) IncrementEmission(_ string)    {}
func (n *Nop) IncrementEmitError(_ string)   {}
func (n *Nop) IncrementTick()                {}
func (n *Nop) IncrementTickSkipped(_ string) {}
func (n *Nop) IncrementFeedMessage(_ string) {}
func (n *Nop) SetMasterDeck(_ int)           {}
func (n *Nop) SetPlaying(_ bool)             {}
