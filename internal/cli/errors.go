package cli

import (
	"errors"
	"fmt"

	"stacks-cli/internal/backlog"
)

type usageError struct {
	msg string
}

func (e usageError) Error() string { return e.msg }

func errUsage(format string, args ...any) error {
	return usageError{msg: fmt.Sprintf(format, args...)}
}

// outcomeError turns a failed gesture into a command error. Resynced batches
// say so, since the local view already matches the store again.
func outcomeError(o backlog.Outcome) error {
	if o.Err == nil {
		return nil
	}
	var berr *backlog.BatchError
	if errors.As(o.Err, &berr) && o.Resynced {
		return fmt.Errorf("%w (view resynced)", o.Err)
	}
	return o.Err
}
