package assembler

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrStagePrecondition indicates a stage ran before the keys it reads existed.
	ErrStagePrecondition = errors.New("stage precondition not met")
	// ErrKeyCollision indicates a stage wrote a key another stage owns.
	ErrKeyCollision = errors.New("resolved key collision")
	// ErrUndeclaredKey indicates a stage contributed a key it does not declare.
	ErrUndeclaredKey = errors.New("stage contributed undeclared key")
	// ErrNotAssembled is returned by accessors used before Assemble succeeded.
	ErrNotAssembled = errors.New("configuration not assembled")
	// ErrAlreadyAssembled is returned for operations only valid before assembly.
	ErrAlreadyAssembled = errors.New("configuration already assembled")
	// ErrInvalidVerbosity is returned for levels outside 0..5.
	ErrInvalidVerbosity = errors.New("invalid verbosity")
	// ErrGlobExpansion marks wildcard path entries that matched nothing.
	ErrGlobExpansion = errors.New("glob expansion matched no files")
)

// StageError wraps a failure with the stage that produced it.
type StageError struct {
	Stage string
	Index int
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %d (%s): %v", e.Index, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// GlobError lists every wildcard entry that matched nothing, keyed by the
// resolved key it came from.
type GlobError struct {
	Patterns map[string][]string
}

func (e *GlobError) Error() string {
	keys := sortedKeys(e.Patterns)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(e.Patterns[k], ", ")))
	}
	return fmt.Sprintf("%v: %s", ErrGlobExpansion, strings.Join(parts, "; "))
}

func (e *GlobError) Is(target error) bool { return target == ErrGlobExpansion }
