package widgets

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/elektrokombinacija/mapf-exec/internal/core"
)

func TestInspectorLines(t *testing.T) {
	snap := &core.Snapshot{Agents: []core.AgentView{
		{ID: "a", Current: "3", Pending: "4", Phase: "moving", Goal: "9", Priority: 2.5},
		{ID: "m", Current: "1", Phase: "settled", Cursor: 1, PlanLen: 4, HasPos: true, Pos: core.Pos{X: 10, Y: 2}},
	}}
	i := NewInspector(nil)

	assert.Equal(t, []string{
		"agent a", "node 3", "phase moving", "pending 4", "goal 9", "priority 2.50",
	}, i.Lines(snap, "a"))

	assert.Equal(t, []string{
		"agent m", "node 1", "phase settled", "plan 2/4", "pos 10.0, 2.0",
	}, i.Lines(snap, "m"))

	assert.Nil(t, i.Lines(snap, "ghost"))
	assert.Nil(t, i.Lines(snap, ""))
	assert.Nil(t, i.Lines(nil, "a"))
}
