package feed

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/hypebeast/go-osc/osc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var testPaths = Paths{Deck: "/deck/master", Heartbeat: "/time/master"}

type recordingHandler struct {
	mu         sync.Mutex
	decks      []int
	heartbeats int
	panicOn    int
}

func (h *recordingHandler) MasterDeckChanged(_ context.Context, deck int) {
	if h.panicOn != 0 && deck == h.panicOn {
		panic("handler exploded")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.decks = append(h.decks, deck)
}

func (h *recordingHandler) Heartbeat(context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.heartbeats++
}

func (h *recordingHandler) snapshot() ([]int, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]int(nil), h.decks...), h.heartbeats
}

func startListener(t *testing.T, h Handler) (net.Conn, <-chan error) {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	l := NewListener(testPaths, h, nil, zaptest.NewLogger(t))

	done := make(chan error, 1)
	go func() { done <- l.Serve(ctx, pc) }()

	client, err := net.Dial("udp", pc.LocalAddr().String())
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = client.Close()
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("listener did not stop")
		}
	})
	return client, done
}

func send(t *testing.T, conn net.Conn, packet osc.Packet) {
	t.Helper()
	data, err := packet.MarshalBinary()
	require.NoError(t, err)
	_, err = conn.Write(data)
	require.NoError(t, err)
}

func TestListenerDispatches(t *testing.T) {
	h := &recordingHandler{}
	client, _ := startListener(t, h)

	send(t, client, osc.NewMessage("/deck/master", int32(1)))
	send(t, client, osc.NewMessage("/time/master", float32(12.5)))
	send(t, client, osc.NewMessage("/time/master"))
	send(t, client, osc.NewMessage("/deck/master", "0"))

	require.Eventually(t, func() bool {
		decks, beats := h.snapshot()
		return len(decks) == 2 && beats == 2
	}, 2*time.Second, 10*time.Millisecond)

	decks, _ := h.snapshot()
	assert.Equal(t, []int{1, 0}, decks)
}

func TestListenerSurvivesGarbage(t *testing.T) {
	h := &recordingHandler{}
	client, _ := startListener(t, h)

	for _, junk := range [][]byte{
		[]byte("not osc at all"),
		{0x00, 0x01, 0x02},
		[]byte("/deck/master\x00\x00\x00\x00,i\x00\x00"),
	} {
		_, err := client.Write(junk)
		require.NoError(t, err)
	}
	send(t, client, osc.NewMessage("/deck/master", "left"))
	send(t, client, osc.NewMessage("/unknown/path", int32(1)))
	send(t, client, osc.NewMessage("/deck/master", int32(1)))

	require.Eventually(t, func() bool {
		decks, _ := h.snapshot()
		return len(decks) == 1
	}, 2*time.Second, 10*time.Millisecond)

	decks, _ := h.snapshot()
	assert.Equal(t, []int{1}, decks)
}

func TestListenerRecoversHandlerPanic(t *testing.T) {
	h := &recordingHandler{panicOn: 9}
	client, _ := startListener(t, h)

	send(t, client, osc.NewMessage("/deck/master", int32(9)))
	send(t, client, osc.NewMessage("/deck/master", int32(0)))

	require.Eventually(t, func() bool {
		decks, _ := h.snapshot()
		return len(decks) == 1 && decks[0] == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestListenerBundle(t *testing.T) {
	h := &recordingHandler{}
	client, _ := startListener(t, h)

	bundle := osc.NewBundle(time.Now())
	require.NoError(t, bundle.Append(osc.NewMessage("/time/master")))
	require.NoError(t, bundle.Append(osc.NewMessage("/deck/master", int32(1))))
	send(t, client, bundle)

	require.Eventually(t, func() bool {
		decks, beats := h.snapshot()
		return len(decks) == 1 && beats == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestListenerStopsOnCancel(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	l := NewListener(testPaths, &recordingHandler{}, nil, zaptest.NewLogger(t))

	done := make(chan error, 1)
	go func() { done <- l.Serve(ctx, pc) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
