package terminal

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Kind identifies the backend tier serving a session.
type Kind string

const (
	KindNativePTY   Kind = "native-pty"
	KindEmulatedPTY Kind = "emulated-pty"
	KindPlainPipe   Kind = "plain-pipe"
)

// ParseKind converts a configuration value into a Kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.TrimSpace(strings.ToLower(s))); k {
	case KindNativePTY, KindEmulatedPTY, KindPlainPipe:
		return k, nil
	default:
		return "", fmt.Errorf("%w: unknown backend %q", ErrInvalidArgument, s)
	}
}

// ParseKinds converts an ordered list of configuration values.
func ParseKinds(values []string) ([]Kind, error) {
	kinds := make([]Kind, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		k, err := ParseKind(v)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	if len(kinds) == 0 {
		return nil, fmt.Errorf("%w: no backends configured", ErrInvalidArgument)
	}
	return kinds, nil
}

// Status is a session lifecycle state. Transitions only move forward.
type Status string

const (
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusExited   Status = "exited"
)

// MaxDimension is the largest column or row count a terminal window size
// can carry.
const MaxDimension = math.MaxUint16

// Dimensions is a terminal size in character cells.
type Dimensions struct {
	Cols int `json:"cols"`
	Rows int `json:"rows"`
}

// Info is the public snapshot of a session.
type Info struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"backend_kind"`
	Label      string    `json:"backend_label"`
	Shell      string    `json:"shell_path"`
	WorkingDir string    `json:"working_dir"`
	Cols       int       `json:"cols"`
	Rows       int       `json:"rows"`
	Status     Status    `json:"status"`
	ExitCode   *int      `json:"exit_code,omitempty"`
	PID        int       `json:"pid,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Dimensions returns the recorded terminal size.
func (i Info) Dimensions() Dimensions {
	return Dimensions{Cols: i.Cols, Rows: i.Rows}
}
