package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"collision-engine/internal/debugdraw"
	"collision-engine/internal/engine"
	"collision-engine/internal/geom"
)

// detectRequest is the body of the detection endpoints.
type detectRequest struct {
	AABBs []geom.AABB `json:"aabbs"`

	// Strategy optionally forces an algorithm (values as reported in
	// stats: "naive", "spatial_hash", "spatial_hash_union_find",
	// "sweep_and_prune"). Empty selects adaptively.
	Strategy string `json:"strategy,omitempty"`
}

// decodeDetectRequest parses and bounds-checks the request body shared by
// the detect, components, and debug-scene handlers.
func (h *routerHandlers) decodeDetectRequest(w http.ResponseWriter, r *http.Request) (*detectRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.server.MaxBodyBytes)

	var req detectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return nil, false
	}
	return &req, true
}

// runDetection executes the request, honoring a forced strategy.
func (h *routerHandlers) runDetection(req *detectRequest, wantComponents bool) (*engine.Result, error) {
	if req.Strategy != "" {
		strategy, ok := engine.ParseStrategy(req.Strategy)
		if !ok {
			return nil, errors.New("unknown strategy " + req.Strategy)
		}
		return h.engine.DetectWithStrategy(req.AABBs, strategy)
	}
	if wantComponents {
		return h.engine.DetectComponents(req.AABBs)
	}
	return h.engine.Detect(req.AABBs)
}

func (h *routerHandlers) handleDetect(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeDetectRequest(w, r)
	if !ok {
		return
	}

	res, err := h.runDetection(req, false)
	if err != nil {
		writeDetectionError(w, err)
		return
	}
	writeJSON(w, res)
}

func (h *routerHandlers) handleComponents(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeDetectRequest(w, r)
	if !ok {
		return
	}

	res, err := h.engine.DetectComponents(req.AABBs)
	if err != nil {
		writeDetectionError(w, err)
		return
	}
	writeJSON(w, res)
}

func (h *routerHandlers) handleGetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"engine":    h.engine.Stats(),
		"rateLimit": h.rl.Stats(),
	})
}

func (h *routerHandlers) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	history := h.engine.SelectionHistory()
	out := make([]map[string]interface{}, 0, len(history))
	for _, d := range history {
		out = append(out, map[string]interface{}{
			"strategy":  d.Strategy.String(),
			"workload":  d.Workload,
			"latencyUs": d.Latency.Microseconds(),
		})
	}
	writeJSON(w, out)
}

// handleDebugScene renders the posted boxes, their collisions, and the
// grid occupancy to a PNG.
func (h *routerHandlers) handleDebugScene(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeDetectRequest(w, r)
	if !ok {
		return
	}

	res, err := h.engine.DetectComponents(req.AABBs)
	if err != nil {
		writeDetectionError(w, err)
		return
	}

	png, err := debugdraw.RenderScene(req.AABBs, res, h.engine.Config().CellSize)
	if err != nil {
		writeError(w, "Render failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

func (h *routerHandlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// writeDetectionError maps engine errors to HTTP statuses: rejected
// input is the caller's fault, anything else is ours.
func writeDetectionError(w http.ResponseWriter, err error) {
	if errors.Is(err, engine.ErrInvalidInput) {
		writeError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	writeError(w, err.Error(), http.StatusBadRequest)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Encoding error", http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, msg string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
