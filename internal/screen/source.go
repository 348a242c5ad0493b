package screen

import (
	"context"
	"errors"
	"regexp"
)

var (
	ErrWindowNotFound = errors.New("window not found")
	ErrAnchorNotFound = errors.New("layout anchor not found")
)

// Status is the outcome of a single read.
type Status int

const (
	StatusOK Status = iota
	StatusNotReady
	StatusUnavailable
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNotReady:
		return "not_ready"
	case StatusUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Result is what a read of one deck produced. Artist and Title are only
// meaningful when Status is StatusOK; Reason explains the other two.
type Result struct {
	Status Status
	Artist string
	Title  string
	Reason string
}

// OK builds a successful result.
func OK(artist, title string) Result {
	return Result{Status: StatusOK, Artist: artist, Title: title}
}

// NotReady builds a result for a window that is present but not usable yet.
func NotReady(reason string) Result {
	return Result{Status: StatusNotReady, Reason: reason}
}

// Unavailable builds a result for a window or field that cannot be read.
func Unavailable(reason string) Result {
	return Result{Status: StatusUnavailable, Reason: reason}
}

// Source is the screen-reading capability used by the poller.
type Source interface {
	// Connect attaches to the application window. It reports whether a
	// usable window was found.
	Connect(ctx context.Context) bool

	// TrackInfo reads artist and title for the given deck index.
	TrackInfo(ctx context.Context, deck int) Result
}

// Driver is the platform accessibility backend.
type Driver interface {
	FindWindow(ctx context.Context, title *regexp.Regexp) (Window, error)
}

// Window is a handle on the application's top-level window.
type Window interface {
	IsMinimized() (bool, error)
	Restore() error
	// Container returns the element that holds anchor among its children.
	Container(anchor string) (Container, error)
}

// Container exposes the texts of its direct children, in layout order.
type Container interface {
	Children() ([]string, error)
}
