package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"collision-engine/internal/config"
	"collision-engine/internal/engine"
	"collision-engine/internal/geom"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	eng, err := engine.New(config.DefaultEngine())
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}

	rl := NewIPRateLimiter(RateLimitConfig{
		RequestsPerSecond: 10000,
		Burst:             10000,
	})
	t.Cleanup(rl.Stop)

	router := NewRouter(RouterConfig{
		Engine:         eng,
		RateLimiter:    rl,
		DisableLogging: true,
	})

	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()

	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func TestHandleDetect(t *testing.T) {
	ts := newTestServer(t)

	boxes := []geom.AABB{
		{X: 0, Y: 0, Width: 10, Height: 10},
		{X: 5, Y: 5, Width: 10, Height: 10},
		{X: 100, Y: 100, Width: 10, Height: 10},
	}

	resp := postJSON(t, ts.URL+"/api/detect", detectRequest{AABBs: boxes})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var res engine.Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(res.Pairs) != 1 {
		t.Fatalf("pairs = %v, want exactly one", res.Pairs)
	}
	if res.Pairs[0].A != 0 || res.Pairs[0].B != 1 {
		t.Errorf("pair = %+v, want (0, 1)", res.Pairs[0])
	}
}

func TestHandleDetectForcedStrategy(t *testing.T) {
	ts := newTestServer(t)

	boxes := []geom.AABB{
		{X: 0, Y: 0, Width: 10, Height: 10},
		{X: 5, Y: 5, Width: 10, Height: 10},
	}

	for _, name := range []string{"naive", "spatial_hash", "spatial_hash_union_find", "sweep_and_prune"} {
		resp := postJSON(t, ts.URL+"/api/detect", detectRequest{AABBs: boxes, Strategy: name})
		var res engine.Result
		if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
			t.Fatalf("%s: decode: %v", name, err)
		}
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: status = %d, want 200", name, resp.StatusCode)
		}
		if len(res.Pairs) != 1 {
			t.Errorf("%s: pairs = %v, want one", name, res.Pairs)
		}
	}
}

func TestHandleDetectUnknownStrategy(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/detect", detectRequest{
		AABBs:    []geom.AABB{{Width: 1, Height: 1}, {Width: 1, Height: 1}},
		Strategy: "quadtree",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestHandleDetectInvalidInput(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/detect", detectRequest{
		AABBs: []geom.AABB{{X: 0, Y: 0, Width: -5, Height: 10}},
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", resp.StatusCode)
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body["error"] == "" {
		t.Error("expected error message in body")
	}
}

func TestHandleDetectMalformedBody(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/detect", "application/json", bytes.NewReader([]byte("{not json")))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestHandleComponents(t *testing.T) {
	ts := newTestServer(t)

	// Chain 0-1-2 plus isolated 3.
	boxes := []geom.AABB{
		{X: 0, Y: 0, Width: 10, Height: 10},
		{X: 5, Y: 0, Width: 10, Height: 10},
		{X: 12, Y: 0, Width: 10, Height: 10},
		{X: 500, Y: 500, Width: 10, Height: 10},
	}

	resp := postJSON(t, ts.URL+"/api/components", detectRequest{AABBs: boxes})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var res engine.Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(res.Components) != 2 {
		t.Fatalf("components = %v, want 2 groups", res.Components)
	}

	seen := make(map[int]bool)
	for _, comp := range res.Components {
		for _, idx := range comp {
			if seen[idx] {
				t.Fatalf("index %d appears in multiple components", idx)
			}
			seen[idx] = true
		}
	}
	if len(seen) != len(boxes) {
		t.Errorf("components cover %d indices, want %d", len(seen), len(boxes))
	}
}

func TestHandleGetStats(t *testing.T) {
	ts := newTestServer(t)

	// Run one detection so stats are non-trivial.
	resp := postJSON(t, ts.URL+"/api/detect", detectRequest{
		AABBs: []geom.AABB{{Width: 1, Height: 1}, {Width: 1, Height: 1}},
	})
	resp.Body.Close()

	resp, err := http.Get(ts.URL + "/api/stats")
	if err != nil {
		t.Fatalf("GET stats: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		Engine struct {
			Calls uint64 `json:"calls"`
		} `json:"engine"`
		RateLimit RateLimitStats `json:"rateLimit"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Engine.Calls == 0 {
		t.Error("expected at least one recorded call")
	}
}

func TestHandleGetHistory(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/detect", detectRequest{
		AABBs: []geom.AABB{{Width: 1, Height: 1}, {X: 100, Width: 1, Height: 1}},
	})
	resp.Body.Close()

	resp, err := http.Get(ts.URL + "/api/history")
	if err != nil {
		t.Fatalf("GET history: %v", err)
	}
	defer resp.Body.Close()

	var history []map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&history); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(history) == 0 {
		t.Fatal("expected at least one history entry")
	}
	if history[0]["strategy"] == "" {
		t.Error("history entry missing strategy")
	}
}

func TestHandleDebugScene(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/debug/scene.png", detectRequest{
		AABBs: []geom.AABB{
			{X: 0, Y: 0, Width: 20, Height: 20},
			{X: 10, Y: 10, Width: 20, Height: 20},
			{X: 200, Y: 50, Width: 15, Height: 15},
		},
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q, want image/png", ct)
	}
}

func TestHandleHealth(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET health: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestBodySizeLimit(t *testing.T) {
	eng, err := engine.New(config.DefaultEngine())
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	rl := NewIPRateLimiter(RateLimitConfig{RequestsPerSecond: 10000, Burst: 10000})
	t.Cleanup(rl.Stop)

	router := NewRouter(RouterConfig{
		Engine:         eng,
		Server:         config.ServerConfig{Port: 0, MaxBodyBytes: 64},
		RateLimiter:    rl,
		DisableLogging: true,
	})
	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)

	boxes := make([]geom.AABB, 100)
	for i := range boxes {
		boxes[i] = geom.AABB{X: float64(i) * 20, Width: 10, Height: 10}
	}
	resp := postJSON(t, ts.URL+"/api/detect", detectRequest{AABBs: boxes})
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		t.Fatal("oversized body was accepted")
	}
}

func TestRateLimitRejects(t *testing.T) {
	eng, err := engine.New(config.DefaultEngine())
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	rl := NewIPRateLimiter(RateLimitConfig{RequestsPerSecond: 1, Burst: 2})
	t.Cleanup(rl.Stop)

	router := NewRouter(RouterConfig{
		Engine:         eng,
		RateLimiter:    rl,
		DisableLogging: true,
	})
	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)

	limited := false
	for i := 0; i < 10; i++ {
		resp, err := http.Get(ts.URL + "/api/health")
		if err != nil {
			t.Fatalf("GET: %v", err)
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			limited = true
		}
		resp.Body.Close()
	}
	if !limited {
		t.Error("expected at least one 429 after burst exhaustion")
	}
}
