package exec

import (
	"context"

	"github.com/elektrokombinacija/mapf-exec/internal/core"
)

// Actuator drives agents. Move is a fire-and-forget request: it returns once
// the command is handed off, not when the agent arrives.
type Actuator interface {
	Move(ctx context.Context, id core.AgentID, target core.Pos) error
}

// ActuatorFunc adapts a function to Actuator.
type ActuatorFunc func(ctx context.Context, id core.AgentID, target core.Pos) error

func (f ActuatorFunc) Move(ctx context.Context, id core.AgentID, target core.Pos) error {
	return f(ctx, id, target)
}
