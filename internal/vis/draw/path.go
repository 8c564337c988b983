package draw

import (
	"image/color"

	"gioui.org/layout"

	"github.com/elektrokombinacija/mapf-exec/internal/core"
	"github.com/elektrokombinacija/mapf-exec/internal/vis/interact"
)

// DrawTrail draws a fading trail through recent positions, oldest first.
func DrawTrail(gtx layout.Context, history []core.Pos, camera *interact.Camera, base color.NRGBA, maxWidth float32) {
	n := len(history)
	for i := 0; i < n-1; i++ {
		col := base
		col.A = uint8(50 + float64(i)/float64(n)*150)
		w := maxWidth * (0.3 + 0.7*float32(i)/float32(n))

		x1, y1 := camera.WorldToScreen(history[i])
		x2, y2 := camera.WorldToScreen(history[i+1])
		drawSegment(gtx, x1, y1, x2, y2, w, col)
	}
}
