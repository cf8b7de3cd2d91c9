// Package clipboard wraps the shared system clipboard: a write-only text
// sink that may be denied by the host environment.
package clipboard

import (
	"errors"
	"fmt"

	atotto "github.com/atotto/clipboard"
)

// ErrPermissionDenied is returned when the host refuses clipboard access.
var ErrPermissionDenied = errors.New("clipboard access denied")

// Clipboard is the shared clipboard resource. Write copies text; Probe
// checks access without disturbing the current contents.
type Clipboard interface {
	Write(text string) error
	Probe() error
}

// System talks to the real OS clipboard.
type System struct{}

// NewSystem returns the OS-backed clipboard.
func NewSystem() System {
	return System{}
}

func (System) Write(text string) error {
	if atotto.Unsupported {
		return fmt.Errorf("%w: no clipboard utility available", ErrPermissionDenied)
	}
	if err := atotto.WriteAll(text); err != nil {
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}
	return nil
}

// Probe verifies write access by reading the current contents and writing
// them straight back.
func (System) Probe() error {
	if atotto.Unsupported {
		return fmt.Errorf("%w: no clipboard utility available", ErrPermissionDenied)
	}
	current, err := atotto.ReadAll()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}
	if err := atotto.WriteAll(current); err != nil {
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}
	return nil
}
