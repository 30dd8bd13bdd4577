package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dandantas/tendril/internal/fractal"
	"github.com/dandantas/tendril/internal/model"
	"github.com/dandantas/tendril/internal/service"
	"github.com/dandantas/tendril/pkg/middleware"
)

// GenerationHandler handles job creation and progress polling
type GenerationHandler struct {
	generator *service.Generator
}

// NewGenerationHandler creates a new generation handler
func NewGenerationHandler(generator *service.Generator) *GenerationHandler {
	return &GenerationHandler{
		generator: generator,
	}
}

// ShapeResponse is returned by GET /generate/{kind}
type ShapeResponse struct {
	ShapeID string `json:"shape_id"`
}

// ShapeProgress is returned by GET /progress/{id}
type ShapeProgress struct {
	Iteration     int     `json:"iteration"`
	MaxIterations int     `json:"max_iterations"`
	Percentage    float64 `json:"percentage"`
	Image         *string `json:"image"`
	Complete      bool    `json:"complete"`
}

// CreateRequest is the body of POST /api/v1/generations
type CreateRequest struct {
	Kind   string         `json:"kind"`
	Params map[string]any `json:"params,omitempty"`
}

// CreateResponse is returned by POST /api/v1/generations
type CreateResponse struct {
	JobID      string       `json:"job_id"`
	Kind       fractal.Kind `json:"kind"`
	TotalSteps int          `json:"total_steps"`
	Status     string       `json:"status"`
}

// KindInfo describes one curve kind
type KindInfo struct {
	Kind     fractal.Kind     `json:"kind"`
	Cadence  int              `json:"cadence"`
	View     fractal.ViewMode `json:"view"`
	Lines    bool             `json:"lines"`
	Defaults map[string]any   `json:"defaults"`
}

// Generate handles GET /generate/{kind}. Query parameters are passed on as
// job parameters.
func (h *GenerationHandler) Generate(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	kind, ok := pathID(r, "/generate/")
	if !ok {
		writeError(w, http.StatusBadRequest, "Shape kind is required")
		return
	}

	var params map[string]any
	if query := r.URL.Query(); len(query) > 0 {
		params = make(map[string]any, len(query))
		for key := range query {
			params[key] = query.Get(key)
		}
	}

	state, err := h.start(w, r, kind, params)
	if err != nil {
		return
	}

	writeJSON(w, http.StatusOK, ShapeResponse{ShapeID: state.ID})
}

// Progress handles GET /progress/{id}
func (h *GenerationHandler) Progress(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	id, _ := pathID(r, "/progress/")
	p, err := h.generator.Progress(id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "Shape ID not found"})
		return
	}

	writeJSON(w, http.StatusOK, ShapeProgress{
		Iteration:     p.Iteration,
		MaxIterations: p.MaxIterations,
		Percentage:    p.Percentage,
		Image:         p.Image,
		Complete:      p.Complete,
	})
}

// Create handles POST /api/v1/generations
func (h *GenerationHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req CreateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	state, err := h.start(w, r, req.Kind, req.Params)
	if err != nil {
		return
	}

	writeJSON(w, http.StatusAccepted, CreateResponse{
		JobID:      state.ID,
		Kind:       state.Kind,
		TotalSteps: state.Total,
		Status:     "running",
	})
}

// Get handles GET /api/v1/generations/{id}
func (h *GenerationHandler) Get(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	id, ok := pathID(r, "/api/v1/generations/")
	if !ok {
		writeError(w, http.StatusNotFound, "Generation not found")
		return
	}

	p, err := h.generator.Progress(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// Kinds handles GET /api/v1/kinds
func (h *GenerationHandler) Kinds(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	defaults := h.generator.Defaults()
	kinds := fractal.Kinds()
	infos := make([]KindInfo, 0, len(kinds))

	for _, k := range kinds {
		policy, err := fractal.PolicyFor(k)
		if err != nil {
			continue
		}
		view := policy.View(fractal.NewBuffer(0))

		info := KindInfo{
			Kind:     k,
			Cadence:  policy.Cadence(0),
			View:     view.Mode,
			Lines:    view.Lines,
			Defaults: map[string]any{service.ParamTotalSteps: defaults.TotalSteps},
		}
		switch k {
		case fractal.KindRose:
			info.Defaults[service.ParamRoseN] = defaults.RoseN
			info.Defaults[service.ParamRoseD] = defaults.RoseD
			info.Defaults[service.ParamRoseA] = defaults.RoseA
		case fractal.KindDragon:
			info.Defaults[service.ParamDepth] = defaults.DragonDepth
		}
		infos = append(infos, info)
	}

	writeJSON(w, http.StatusOK, infos)
}

// start launches a job and writes the error response when that fails
func (h *GenerationHandler) start(w http.ResponseWriter, r *http.Request, kind string, params map[string]any) (model.JobState, error) {
	correlationID := middleware.GetCorrelationID(r.Context())

	state, err := h.generator.Start(r.Context(), service.StartRequest{
		Kind:          kind,
		Params:        params,
		CorrelationID: correlationID,
	})
	if err != nil {
		switch {
		case errors.Is(err, fractal.ErrInvalidKind), errors.Is(err, fractal.ErrInvalidOptions):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			slog.Error("Failed to start generation",
				"kind", kind,
				"correlation_id", correlationID,
				"error", err,
			)
			writeError(w, http.StatusServiceUnavailable, "Failed to start generation")
		}
		return model.JobState{}, err
	}

	return state, nil
}
