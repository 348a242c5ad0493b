package feed

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/hypebeast/go-osc/osc"
)

var (
	ErrMissingArgument = errors.New("missing argument")
	ErrBadArgument     = errors.New("unsupported argument")
)

// DeckArgument decodes the deck index carried by a deck-change message.
// Integers are taken as-is; floats only when integral; numeric strings are
// parsed. Range checking is left to the handler.
func DeckArgument(msg *osc.Message) (int, error) {
	if len(msg.Arguments) == 0 {
		return 0, ErrMissingArgument
	}

	switch v := msg.Arguments[0].(type) {
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case float32:
		return integral(float64(v))
	case float64:
		return integral(v)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrBadArgument, v)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%w: %T", ErrBadArgument, v)
	}
}

func integral(f float64) (int, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: non-integral %v", ErrBadArgument, f)
	}
	return int(f), nil
}

// messages flattens a decoded packet into its messages, walking bundles.
func messages(packet osc.Packet) []*osc.Message {
	switch p := packet.(type) {
	case *osc.Message:
		return []*osc.Message{p}
	case *osc.Bundle:
		out := append([]*osc.Message(nil), p.Messages...)
		for _, b := range p.Bundles {
			out = append(out, messages(b)...)
		}
		return out
	default:
		return nil
	}
}
