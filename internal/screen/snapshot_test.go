package screen

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/dgnsrekt/deckbridge/internal/config"
)

func writeSnapshot(t *testing.T, path string, snap Snapshot) {
	t.Helper()
	raw, err := json.Marshal(snap)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0600))
}

func TestSnapshotDriver(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ui.json")
	writeSnapshot(t, path, Snapshot{
		Title: "rekordbox 6.8",
		Containers: []SnapshotContainer{
			{Children: []string{"Browse", "Playlists"}},
			{Children: deckChildren()},
		},
	})

	d := NewSnapshotDriver(path)
	w, err := d.FindWindow(context.Background(), regexp.MustCompile(".*rekordbox.*"))
	require.NoError(t, err)

	minimized, err := w.IsMinimized()
	require.NoError(t, err)
	assert.False(t, minimized)

	c, err := w.Container("4Deck Horizontal")
	require.NoError(t, err)

	children, err := c.Children()
	require.NoError(t, err)
	assert.Equal(t, deckChildren(), children)

	_, err = w.Container("2Deck Vertical")
	assert.ErrorIs(t, err, ErrAnchorNotFound)
}

func TestSnapshotDriverFollowsUpdates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ui.json")
	writeSnapshot(t, path, Snapshot{Title: "rekordbox", Containers: []SnapshotContainer{{Children: deckChildren()}}})

	d := NewSnapshotDriver(path)
	w, err := d.FindWindow(context.Background(), regexp.MustCompile("rekordbox"))
	require.NoError(t, err)
	c, err := w.Container("4Deck Horizontal")
	require.NoError(t, err)

	updated := deckChildren()
	updated[1] = "Song C"
	writeSnapshot(t, path, Snapshot{Title: "rekordbox", Minimized: true, Containers: []SnapshotContainer{{Children: updated}}})

	children, err := c.Children()
	require.NoError(t, err)
	assert.Equal(t, "Song C", children[1])

	minimized, err := w.IsMinimized()
	require.NoError(t, err)
	assert.True(t, minimized)

	writeSnapshot(t, path, Snapshot{Title: "Finder"})
	_, err = c.Children()
	assert.ErrorIs(t, err, ErrWindowNotFound)
}

func TestSnapshotDriverMissingOrBadFile(t *testing.T) {
	dir := t.TempDir()

	_, err := NewSnapshotDriver(filepath.Join(dir, "missing.json")).FindWindow(context.Background(), regexp.MustCompile(".*"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0600))
	_, err = NewSnapshotDriver(bad).FindWindow(context.Background(), regexp.MustCompile(".*"))
	assert.Error(t, err)

	other := filepath.Join(dir, "other.json")
	writeSnapshot(t, other, Snapshot{Title: "Finder"})
	_, err = NewSnapshotDriver(other).FindWindow(context.Background(), regexp.MustCompile("rekordbox"))
	assert.True(t, errors.Is(err, ErrWindowNotFound))
}

func TestNewFromConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ui.json")
	children := make([]string, 160)
	children[0] = "4Deck Horizontal"
	children[133] = "Strobe"
	children[135] = "deadmau5"
	children[156] = "Loading..."
	children[158] = ""
	writeSnapshot(t, path, Snapshot{Title: "rekordbox", Containers: []SnapshotContainer{{Children: children}}})

	r, err := New(config.ScreenConfig{
		Driver:             "snapshot",
		SnapshotPath:       path,
		WindowTitle:        ".*rekordbox.*",
		ReconnectPerSecond: 100,
		Layout: config.LayoutConfig{
			Anchor:      "4Deck Horizontal",
			MinChildren: 160,
			Deck0:       config.DeckLayout{TitleIndex: 133, ArtistIndex: 135},
			Deck1:       config.DeckLayout{TitleIndex: 156, ArtistIndex: 158},
		},
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.Equal(t, OK("deadmau5", "Strobe"), r.TrackInfo(context.Background(), 0))
	assert.Equal(t, OK("", "Loading..."), r.TrackInfo(context.Background(), 1))
}

func TestNewUnknownDriver(t *testing.T) {
	_, err := New(config.ScreenConfig{Driver: "uia", WindowTitle: ".*"}, zaptest.NewLogger(t))
	assert.Error(t, err)
}
