package circuit

import (
	"errors"
	"fmt"

	"github.com/Roshan-Thomas/scqubits/internal/linalg"
	"github.com/Roshan-Thomas/scqubits/internal/registry"
)

// ConfigurationError is fatal for the configure call that raised it: the
// caller observes the unchanged pre-call object.
type ConfigurationError struct {
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("configuration error: %s", e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func configErrorf(format string, args ...interface{}) error {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}

// ValidationError rejects a single parameter write; re-exported from the
// registry so callers only deal with this package's taxonomy.
type ValidationError = registry.ValidationError

// StructuralSyncError is returned when an operator or Hamiltonian is
// requested from a subsystem that a structural broadcast has marked
// out-of-sync and that has not been rebuilt yet.
type StructuralSyncError struct {
	SubsystemID string
}

func (e *StructuralSyncError) Error() string {
	return fmt.Sprintf("subsystem %s is out of sync; rebuild the parent before requesting operators", e.SubsystemID)
}

// NumericalError wraps a diagonalization failure after the fallback strategy
// has also failed.
type NumericalError struct {
	Err *linalg.SolveError
}

func (e *NumericalError) Error() string { return e.Err.Error() }

func (e *NumericalError) Unwrap() error { return e.Err }

func asNumericalError(err error) error {
	var solveErr *linalg.SolveError
	if errors.As(err, &solveErr) {
		return &NumericalError{Err: solveErr}
	}
	return err
}
