package screen

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"slices"
)

// Snapshot is the JSON document an accessibility helper writes for the
// application window. Each container lists its children's texts in order.
type Snapshot struct {
	Title      string              `json:"title"`
	Minimized  bool                `json:"minimized"`
	Containers []SnapshotContainer `json:"containers"`
}

type SnapshotContainer struct {
	Children []string `json:"children"`
}

// SnapshotDriver reads window state from a snapshot file. The file is
// re-read on every call so the driver follows the helper's updates.
type SnapshotDriver struct {
	path string
}

var _ Driver = (*SnapshotDriver)(nil)

func NewSnapshotDriver(path string) *SnapshotDriver {
	return &SnapshotDriver{path: path}
}

func (d *SnapshotDriver) load() (*Snapshot, error) {
	raw, err := os.ReadFile(d.path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("parsing snapshot %s: %w", d.path, err)
	}
	return &snap, nil
}

// FindWindow returns the snapshot window if its title matches.
func (d *SnapshotDriver) FindWindow(_ context.Context, title *regexp.Regexp) (Window, error) {
	snap, err := d.load()
	if err != nil {
		return nil, err
	}
	if !title.MatchString(snap.Title) {
		return nil, fmt.Errorf("%w: %q does not match %s", ErrWindowNotFound, snap.Title, title)
	}
	return &snapshotWindow{driver: d, title: title}, nil
}

type snapshotWindow struct {
	driver *SnapshotDriver
	title  *regexp.Regexp
}

// current reloads the snapshot and fails once the window is gone.
func (w *snapshotWindow) current() (*Snapshot, error) {
	snap, err := w.driver.load()
	if err != nil {
		return nil, err
	}
	if !w.title.MatchString(snap.Title) {
		return nil, ErrWindowNotFound
	}
	return snap, nil
}

func (w *snapshotWindow) IsMinimized() (bool, error) {
	snap, err := w.current()
	if err != nil {
		return false, err
	}
	return snap.Minimized, nil
}

// Restore is a no-op: the helper that writes the snapshot owns the real
// window and keeps it restored.
func (w *snapshotWindow) Restore() error {
	return nil
}

func (w *snapshotWindow) Container(anchor string) (Container, error) {
	snap, err := w.current()
	if err != nil {
		return nil, err
	}
	if findAnchored(snap, anchor) == nil {
		return nil, ErrAnchorNotFound
	}
	return &snapshotContainer{window: w, anchor: anchor}, nil
}

type snapshotContainer struct {
	window *snapshotWindow
	anchor string
}

func (c *snapshotContainer) Children() ([]string, error) {
	snap, err := c.window.current()
	if err != nil {
		return nil, err
	}
	container := findAnchored(snap, c.anchor)
	if container == nil {
		return nil, ErrAnchorNotFound
	}
	return container.Children, nil
}

func findAnchored(snap *Snapshot, anchor string) *SnapshotContainer {
	for i := range snap.Containers {
		if slices.Contains(snap.Containers[i].Children, anchor) {
			return &snap.Containers[i]
		}
	}
	return nil
}
