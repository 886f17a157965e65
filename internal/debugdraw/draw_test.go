package debugdraw

import (
	"bytes"
	"testing"

	"collision-engine/internal/engine"
	"collision-engine/internal/geom"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func TestRenderScene(t *testing.T) {
	boxes := []geom.AABB{
		{X: 0, Y: 0, Width: 20, Height: 20},
		{X: 10, Y: 10, Width: 20, Height: 20},
		{X: 200, Y: 50, Width: 15, Height: 15},
	}
	res := &engine.Result{
		Pairs:      []engine.Pair{{A: 0, B: 1}},
		Components: [][]int{{0, 1}, {2}},
	}

	png, err := RenderScene(boxes, res, 64)
	if err != nil {
		t.Fatalf("RenderScene: %v", err)
	}
	if !bytes.HasPrefix(png, pngMagic) {
		t.Error("output is not a PNG")
	}
}

func TestRenderSceneEmpty(t *testing.T) {
	png, err := RenderScene(nil, &engine.Result{Pairs: []engine.Pair{}}, 0)
	if err != nil {
		t.Fatalf("RenderScene: %v", err)
	}
	if !bytes.HasPrefix(png, pngMagic) {
		t.Error("output is not a PNG")
	}
}

func TestRenderSceneDegenerateBoxes(t *testing.T) {
	// Zero-extent boxes must not produce a zero-sized canvas.
	boxes := []geom.AABB{{X: 5, Y: 5}, {X: 5, Y: 5}}
	if _, err := RenderScene(boxes, &engine.Result{}, 1); err != nil {
		t.Fatalf("RenderScene: %v", err)
	}
}
