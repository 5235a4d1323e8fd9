package eval

import (
	"errors"
	"fmt"

	"github.com/jwebster45206/constraint/pkg/rng"
	"github.com/jwebster45206/constraint/pkg/scenario"
)

var (
	// ErrUnboundVariable is returned when odds name a variable that has not
	// been set yet.
	ErrUnboundVariable = errors.New("unbound variable")

	// ErrInvalidInstruction is returned for instructions whose fields have the
	// wrong shape, including odds variables that do not hold a number.
	ErrInvalidInstruction = scenario.ErrInvalidInstruction

	// ErrInternalInvariant signals a weighted pick that ran past its total.
	ErrInternalInvariant = rng.ErrInternalInvariant
)

// UnboundVariableError names the variable that was missing.
type UnboundVariableError struct {
	Name string
}

func (e *UnboundVariableError) Error() string {
	return fmt.Sprintf("odds variable %q is not set", e.Name)
}

func (e *UnboundVariableError) Unwrap() error {
	return ErrUnboundVariable
}
