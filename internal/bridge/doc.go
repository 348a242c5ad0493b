// Package bridge reconciles the deck feed and the screen reads into one
// deduplicated event stream.
//
// A Reconciler owns the shared state: master deck, last heartbeat time,
// last emitted track and play state. Every rule that decides whether an
// event goes to the consumer runs under its single lock, and it is the only
// code that calls the Emitter.
//
// Two activities drive it concurrently:
//
//   - the feed listener calls MasterDeckChanged and Heartbeat per message;
//   - the Poller calls EvaluatePlayState and OfferTrack once per tick.
//
// Deck changes clear the consumer immediately. A track read that was in
// flight for the previous deck is discarded when it lands, because
// OfferTrack checks the deck it was read for against the current one.
package bridge
