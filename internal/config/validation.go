package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Drivers lists the screen drivers the bridge knows how to build.
var Drivers = map[string]bool{
	"snapshot": true,
}

// FieldError is a single invalid configuration key.
type FieldError struct {
	Key     string
	Problem string
}

// ValidationErrors collects all validation errors
type ValidationErrors struct {
	Fields []FieldError
}

// HasErrors returns true if any validation errors exist
func (e *ValidationErrors) HasErrors() bool {
	return len(e.Fields) > 0
}

// Error formats all validation errors into a clear message
func (e *ValidationErrors) Error() string {
	var sb strings.Builder
	sb.WriteString("configuration validation failed:\n")

	for _, f := range e.Fields {
		sb.WriteString(fmt.Sprintf("  - %s: %s\n", f.Key, f.Problem))
	}

	return sb.String()
}

func (e *ValidationErrors) add(key, problem string) {
	e.Fields = append(e.Fields, FieldError{Key: key, Problem: problem})
}

func validatePort(errs *ValidationErrors, key string, port int) {
	if port < 1 || port > 65535 {
		errs.add(key, fmt.Sprintf("%d is not a valid port (1-65535)", port))
	}
}

// OSC address patterns always start with a slash.
func validatePath(errs *ValidationErrors, key, path string) {
	if !strings.HasPrefix(path, "/") {
		errs.add(key, fmt.Sprintf("%q must start with /", path))
	}
}

func validatePositive(errs *ValidationErrors, key string, d time.Duration) {
	if d <= 0 {
		errs.add(key, fmt.Sprintf("%s must be > 0", d))
	}
}

func validateScreen(errs *ValidationErrors, sc ScreenConfig) {
	if !Drivers[sc.Driver] {
		errs.add("screen.driver", fmt.Sprintf("unknown driver %q (valid: snapshot)", sc.Driver))
	}
	if sc.Driver == "snapshot" && sc.SnapshotPath == "" {
		errs.add("screen.snapshot_path", "is required for the snapshot driver")
	}
	if _, err := regexp.Compile(sc.WindowTitle); err != nil {
		errs.add("screen.window_title", fmt.Sprintf("invalid pattern: %v", err))
	}
	if sc.ReconnectPerSecond <= 0 {
		errs.add("screen.reconnect_per_second", "must be > 0")
	}
	if sc.RestoreDelay < 0 {
		errs.add("screen.restore_delay", "must be >= 0")
	}
	if sc.Layout.Anchor == "" {
		errs.add("screen.layout.anchor", "is required")
	}
	if sc.Layout.MinChildren < 1 {
		errs.add("screen.layout.min_children", "must be >= 1")
	}

	validateDeckLayout(errs, "screen.layout.deck0", sc.Layout.Deck0, sc.Layout.MinChildren)
	validateDeckLayout(errs, "screen.layout.deck1", sc.Layout.Deck1, sc.Layout.MinChildren)
}

func validateDeckLayout(errs *ValidationErrors, key string, dl DeckLayout, minChildren int) {
	for _, idx := range []struct {
		name  string
		value int
	}{
		{"title_index", dl.TitleIndex},
		{"artist_index", dl.ArtistIndex},
	} {
		if idx.value < 0 || idx.value >= minChildren {
			errs.add(key+"."+idx.name, fmt.Sprintf("%d must be in [0, min_children)", idx.value))
		}
	}
	if dl.TitleIndex == dl.ArtistIndex {
		errs.add(key, "title_index and artist_index must differ")
	}
}
