package core

import (
	"errors"
	"fmt"
	"strings"
)

// Load-time data errors. They are wrapped with the offending ids.
var (
	ErrEmptyGraph        = errors.New("graph has no nodes")
	ErrDanglingNeighbor  = errors.New("neighbor does not exist")
	ErrAsymmetricEdge    = errors.New("adjacency is not symmetric")
	ErrSelfLoop          = errors.New("node lists itself as neighbor")
	ErrUnknownNode       = errors.New("unknown node")
	ErrUnknownAgent      = errors.New("unknown agent")
	ErrDuplicateAgent    = errors.New("agent already registered")
	ErrDuplicateStart    = errors.New("start node shared by several agents")
	ErrEmptyPlan         = errors.New("plan is empty")
	ErrPlanOrderMismatch = errors.New("plan and order lengths differ")
	ErrPlanStep          = errors.New("consecutive plan nodes are not adjacent")
	ErrNoGoal            = errors.New("agent has no goal")
	ErrDuplicateGoal     = errors.New("goal node shared by several agents")
	ErrUnreachableGoal   = errors.New("goal is not reachable from start")
	ErrUnknownPlanner    = errors.New("unknown planner")
)

// ValidationError collects every problem found while validating input.
type ValidationError struct {
	Problems []error
}

// Add records one problem.
func (e *ValidationError) Add(err error) {
	e.Problems = append(e.Problems, err)
}

// Err returns e if it holds problems, nil otherwise.
func (e *ValidationError) Err() error {
	if len(e.Problems) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 1 {
		return e.Problems[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d validation errors:", len(e.Problems))
	for i, p := range e.Problems {
		fmt.Fprintf(&b, "\n  %d. %s", i+1, p)
	}
	return b.String()
}

// Unwrap exposes the individual problems to errors.Is / errors.As.
func (e *ValidationError) Unwrap() []error {
	return e.Problems
}

// InvariantError reports a broken core invariant. It signals a logic defect,
// never a data problem, and is raised with panic by the ledger.
type InvariantError struct {
	Msg string
}

func (e *InvariantError) Error() string {
	return "invariant violated: " + e.Msg
}

func invariant(format string, args ...any) {
	panic(&InvariantError{Msg: fmt.Sprintf(format, args...)})
}
