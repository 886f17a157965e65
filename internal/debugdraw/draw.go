// Package debugdraw renders a detection scene to a PNG for visual
// debugging: input boxes colored by connected component, collision links
// between pair centers, and the spatial grid lines. Not a hot path;
// clarity over speed.
package debugdraw

import (
	"bytes"
	"math"

	"github.com/fogleman/gg"

	"collision-engine/internal/engine"
	"collision-engine/internal/geom"
)

const (
	maxImageDim = 900
	margin      = 20.0
)

// componentPalette cycles across components; isolated boxes share the
// last, muted entry.
var componentPalette = [][3]float64{
	{0.91, 0.30, 0.24},
	{0.18, 0.55, 0.91},
	{0.15, 0.68, 0.38},
	{0.95, 0.61, 0.07},
	{0.56, 0.27, 0.68},
	{0.10, 0.74, 0.61},
}

var isolatedColor = [3]float64{0.55, 0.57, 0.60}

// RenderScene draws the boxes and detection result to a PNG. cellSize
// zero suppresses the grid lines (the engine picked a per-call size that
// is not known here).
func RenderScene(boxes []geom.AABB, res *engine.Result, cellSize float64) ([]byte, error) {
	minX, minY, maxX, maxY := sceneBounds(boxes)
	worldW := maxX - minX
	worldH := maxY - minY
	if worldW <= 0 {
		worldW = 1
	}
	if worldH <= 0 {
		worldH = 1
	}

	scale := (maxImageDim - 2*margin) / math.Max(worldW, worldH)
	imgW := int(worldW*scale + 2*margin)
	imgH := int(worldH*scale + 2*margin)

	dc := gg.NewContext(imgW, imgH)
	dc.SetRGB(0.08, 0.09, 0.11)
	dc.Clear()

	toPx := func(x, y float64) (float64, float64) {
		return (x-minX)*scale + margin, (y-minY)*scale + margin
	}

	if cellSize > 0 {
		drawGridLines(dc, minX, minY, maxX, maxY, cellSize, scale, toPx)
	}

	componentOf := componentIndex(res)

	// Boxes first, then pair links on top.
	for i, b := range boxes {
		c := isolatedColor
		if ci, ok := componentOf[i]; ok {
			c = componentPalette[ci%len(componentPalette)]
		}
		px, py := toPx(b.X, b.Y)
		dc.SetRGBA(c[0], c[1], c[2], 0.35)
		dc.DrawRectangle(px, py, b.Width*scale, b.Height*scale)
		dc.Fill()
		dc.SetRGB(c[0], c[1], c[2])
		dc.SetLineWidth(1.5)
		dc.DrawRectangle(px, py, b.Width*scale, b.Height*scale)
		dc.Stroke()
	}

	dc.SetRGBA(1, 1, 1, 0.7)
	dc.SetLineWidth(1)
	for _, p := range res.Pairs {
		a, b := boxes[p.A], boxes[p.B]
		ax, ay := toPx(a.X+a.Width/2, a.Y+a.Height/2)
		bx, by := toPx(b.X+b.Width/2, b.Y+b.Height/2)
		dc.DrawLine(ax, ay, bx, by)
		dc.Stroke()
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// componentIndex maps box index -> component ordinal for multi-member
// components. Singletons are left out so they render muted.
func componentIndex(res *engine.Result) map[int]int {
	out := make(map[int]int)
	if res == nil {
		return out
	}
	ci := 0
	for _, comp := range res.Components {
		if len(comp) < 2 {
			continue
		}
		for _, idx := range comp {
			out[idx] = ci
		}
		ci++
	}
	return out
}

func drawGridLines(dc *gg.Context, minX, minY, maxX, maxY, cellSize, scale float64, toPx func(x, y float64) (float64, float64)) {
	dc.SetRGBA(1, 1, 1, 0.08)
	dc.SetLineWidth(1)

	for x := math.Floor(minX/cellSize) * cellSize; x <= maxX; x += cellSize {
		x0, y0 := toPx(x, minY)
		x1, y1 := toPx(x, maxY)
		dc.DrawLine(x0, y0, x1, y1)
		dc.Stroke()
	}
	for y := math.Floor(minY/cellSize) * cellSize; y <= maxY; y += cellSize {
		x0, y0 := toPx(minX, y)
		x1, y1 := toPx(maxX, y)
		dc.DrawLine(x0, y0, x1, y1)
		dc.Stroke()
	}
}

func sceneBounds(boxes []geom.AABB) (minX, minY, maxX, maxY float64) {
	if len(boxes) == 0 {
		return 0, 0, 1, 1
	}
	minX, minY = boxes[0].X, boxes[0].Y
	maxX, maxY = boxes[0].MaxX(), boxes[0].MaxY()
	for _, b := range boxes[1:] {
		minX = math.Min(minX, b.X)
		minY = math.Min(minY, b.Y)
		maxX = math.Max(maxX, b.MaxX())
		maxY = math.Max(maxY, b.MaxY())
	}
	return
}
