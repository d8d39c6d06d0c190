// Package errs implements the error taxonomy of spec §7, adapted from the
// teacher's category-tagged InterpreterError (internal/interp/errors).
// Unsat is deliberately absent here: it is not an error, it is the empty
// optional returned by find/maximize/minimize (spec §7).
package errs

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// Kind tags which branch of the §7 taxonomy an error belongs to.
type Kind string

const (
	// Unsupported: the chosen backend cannot encode a required operator.
	Unsupported Kind = "Unsupported"
	// Timeout: the solver did not finish within the caller's deadline.
	Timeout Kind = "Timeout"
	// SolverFailure: the backend reported an internal error.
	SolverFailure Kind = "SolverFailure"
	// InvariantViolated: a programming error — malformed DAG, a merge
	// across variants, an unbound argument. Fatal, never retried.
	InvariantViolated Kind = "InvariantViolated"
)

// ModelCheckError is the single error type this module returns from any
// query-facing operation. Callers distinguish cases by Kind, not by type
// assertion.
type ModelCheckError struct {
	Kind     Kind
	Message  string
	Backend  string // set for Unsupported/SolverFailure when backend-specific
	Operator string // set for Unsupported, names the offending operator
	Err      error  // wrapped cause, if any
}

func (e *ModelCheckError) Error() string {
	switch {
	case e.Operator != "" && e.Backend != "":
		return fmt.Sprintf("%s: backend %q cannot encode %q: %s", e.Kind, e.Backend, e.Operator, e.Message)
	case e.Backend != "":
		return fmt.Sprintf("%s: backend %q: %s", e.Kind, e.Backend, e.Message)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
}

func (e *ModelCheckError) Unwrap() error { return e.Err }

// IsKind reports whether the first *ModelCheckError found by walking err's
// Unwrap chain has kind k.
func IsKind(err error, k Kind) bool {
	var mce *ModelCheckError
	for err != nil {
		if m, ok := err.(*ModelCheckError); ok {
			mce = m
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return mce != nil && mce.Kind == k
}

// NewUnsupported reports that backend cannot encode operator.
func NewUnsupported(backend, operator, message string) *ModelCheckError {
	return &ModelCheckError{Kind: Unsupported, Backend: backend, Operator: operator, Message: message}
}

// NewTimeout reports that the solver missed its deadline.
func NewTimeout(backend string) *ModelCheckError {
	return &ModelCheckError{Kind: Timeout, Backend: backend, Message: "deadline exceeded"}
}

// NewSolverFailure wraps a backend-reported internal error, surfaced verbatim.
func NewSolverFailure(backend string, cause error) *ModelCheckError {
	return &ModelCheckError{Kind: SolverFailure, Backend: backend, Message: cause.Error(), Err: cause}
}

// NewInvariantViolated reports a programming error: malformed DAG, a merge
// across symbolic-value variants, or an unbound argument reference.
func NewInvariantViolated(format string, args ...any) *ModelCheckError {
	return &ModelCheckError{Kind: InvariantViolated, Message: fmt.Sprintf(format, args...)}
}

// Collector accumulates independent, non-fatal problems found by a single
// pre-pass (the interleaving analyzer meeting node kinds it does not handle,
// the constant-key collector meeting ConstMap literals of an unexpected Go
// shape) so the pass can keep walking the DAG instead of aborting at the
// first issue. The pass returns every recorded entry as one multierror, and
// the façade returns that error unchanged as the query's fatal error,
// matching spec §7's "nothing is recovered locally" propagation policy
// applied at the pass boundary rather than per-node.
type Collector struct {
	errs *multierror.Error
}

// Add records err if it is non-nil.
func (c *Collector) Add(err error) {
	if err == nil {
		return
	}
	c.errs = multierror.Append(c.errs, err)
}

// ErrorOrNil returns the accumulated error, or nil if nothing was recorded.
func (c *Collector) ErrorOrNil() error {
	if c.errs == nil {
		return nil
	}
	return c.errs.ErrorOrNil()
}
