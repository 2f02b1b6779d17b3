package fakersql

import (
	"errors"
	"fmt"
)

// ProcedureName is the name of a backing-store procedure.
// Only the constants below are accepted; names are never derived from request input.
type ProcedureName string

const (
	// ProcGetAvailableLocales enumerates the locales, no arguments, rows of {code, name}.
	ProcGetAvailableLocales ProcedureName = "get_available_locales"

	// ProcGenerateFakeUsers generates one batch: (locale, seed, batch_index, batch_size, include_bio).
	ProcGenerateFakeUsers ProcedureName = "generate_fake_users"

	// ProcBenchmarkGeneration runs a generation benchmark: (locale, iterations), one row.
	ProcBenchmarkGeneration ProcedureName = "benchmark_generation"
)

// procedureArity maps every known procedure to its number of positional arguments.
var procedureArity = map[ProcedureName]int{
	ProcGetAvailableLocales: 0,
	ProcGenerateFakeUsers:   5,
	ProcBenchmarkGeneration: 2,
}

// IsKnown reports whether the name belongs to the procedure enumeration.
func (n ProcedureName) IsKnown() bool {
	_, ok := procedureArity[n]
	return ok
}

// ProcedureCall is a named, argument-bound invocation against the backing store.
type ProcedureCall struct {
	Name ProcedureName
	Args []any
}

// NewProcedureCall creates a ProcedureCall after checking the name and the number of arguments.
func NewProcedureCall(name ProcedureName, args ...any) (ProcedureCall, error) {
	if err := checkProcedure(name, len(args)); err != nil {
		return ProcedureCall{}, err
	}

	return ProcedureCall{Name: name, Args: args}, nil
}

// Check validates a ProcedureCall that was built without NewProcedureCall.
func (c ProcedureCall) Check() error {
	return checkProcedure(c.Name, len(c.Args))
}

func checkProcedure(name ProcedureName, argCount int) error {
	arity, ok := procedureArity[name]
	if !ok {
		return errors.Join(ErrUnknownProcedure, fmt.Errorf("name %q", string(name)))
	}

	if arity != argCount {
		return errors.Join(
			ErrUnknownProcedure,
			fmt.Errorf("%s expects %d arguments, got %d", name, arity, argCount),
		)
	}

	return nil
}
