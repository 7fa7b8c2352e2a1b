package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/inkmath/equation-solver/internal/models"
	"github.com/inkmath/equation-solver/internal/normalize"
	"github.com/inkmath/equation-solver/internal/ocr"
	"github.com/inkmath/equation-solver/internal/session"
	"github.com/inkmath/equation-solver/internal/solver"
	"github.com/inkmath/equation-solver/internal/typeset"
)

const (
	MaxUploadSize = 10 * 1024 * 1024 // 10MB
	MaxJSONSize   = 1 << 20
	Version       = "1.0.0"
)

var log = logrus.WithField("component", "api")

// BackendFactory resolves a backend name; an empty name means the
// configured default
type BackendFactory func(name string) (session.Backend, error)

// Handler handles HTTP requests for equation solving
type Handler struct {
	config     *models.Config
	backends   BackendFactory
	sessions   *session.Manager
	normalizer *normalize.Normalizer
	solver     *solver.Solver
	typesetter *typeset.Adapter
}

// NewHandler creates a new API handler
func NewHandler(config *models.Config, backends BackendFactory) *Handler {
	return &Handler{
		config:   config,
		backends: backends,
		sessions: session.NewManager(config.Sessions),
		normalizer: normalize.New(normalize.Policy{
			EquationAware:      config.Normalize.EquationAware,
			SplitFunctionNames: config.Normalize.SplitFunctionNames,
		}),
		solver:     solver.New(config.Solver),
		typesetter: typeset.NewAdapter(nil),
	}
}

// SetupRoutes configures the HTTP routes
func (h *Handler) SetupRoutes() *mux.Router {
	router := mux.NewRouter()

	// One-shot solve of an uploaded image
	router.HandleFunc("/api/solve", h.SolveImage).Methods("POST")

	// Drawing sessions
	router.HandleFunc("/api/sessions", h.CreateSession).Methods("POST")
	router.HandleFunc("/api/sessions/{id}", h.GetSession).Methods("GET")
	router.HandleFunc("/api/sessions/{id}", h.DeleteSession).Methods("DELETE")
	router.HandleFunc("/api/sessions/{id}/strokes", h.AddStrokes).Methods("POST")
	router.HandleFunc("/api/sessions/{id}/solve", h.SolveSession).Methods("POST")
	router.HandleFunc("/api/sessions/{id}/clear", h.ClearSession).Methods("POST")
	router.HandleFunc("/api/sessions/{id}/canvas.png", h.CanvasImage).Methods("GET")

	// Text-only stages
	router.HandleFunc("/api/normalize", h.Normalize).Methods("POST")
	router.HandleFunc("/api/evaluate", h.Evaluate).Methods("POST")
	router.HandleFunc("/api/render", h.Render).Methods("POST")

	// Health check
	router.HandleFunc("/health", h.Health).Methods("GET")

	return router
}

// HealthResponse represents the health check response structure
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Timestamp string            `json:"timestamp"`
	Uptime    string            `json:"uptime"`
	Memory    MemoryStats       `json:"memory"`
	Tesseract ServiceStatus     `json:"tesseract"`
	Sessions  int               `json:"sessions"`
	Pipeline  map[string]string `json:"pipeline"`
}

// MemoryStats represents memory usage statistics
type MemoryStats struct {
	Allocated string `json:"allocated"`
	Total     string `json:"total"`
	System    string `json:"system"`
}

// ServiceStatus represents the status of a service dependency
type ServiceStatus struct {
	Available bool   `json:"available"`
	Version   string `json:"version,omitempty"`
	Error     string `json:"error,omitempty"`
}

var startTime = time.Now()

// Health reports process and dependency status. The service is degraded
// only when the local OCR backend is selected and tesseract is missing.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	tesseractStatus := checkTesseract()

	response := HealthResponse{
		Status:    "healthy",
		Version:   Version,
		Timestamp: time.Now().Format(time.RFC3339),
		Uptime:    time.Since(startTime).String(),
		Memory: MemoryStats{
			Allocated: fmt.Sprintf("%.2f MB", float64(m.Alloc)/1024/1024),
			Total:     fmt.Sprintf("%.2f MB", float64(m.TotalAlloc)/1024/1024),
			System:    fmt.Sprintf("%.2f MB", float64(m.Sys)/1024/1024),
		},
		Tesseract: tesseractStatus,
		Sessions:  h.sessions.Len(),
		Pipeline: map[string]string{
			"backend":         h.config.Recognition.Backend,
			"strategy":        h.config.Preprocess.Strategy,
			"defaultProvider": h.config.AI.DefaultProvider,
		},
	}

	if h.config.Recognition.Backend == models.BackendOCR && !tesseractStatus.Available {
		response.Status = "degraded"
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	json.NewEncoder(w).Encode(response)
}

// checkTesseract verifies the tesseract binary is available
func checkTesseract() ServiceStatus {
	output, err := exec.Command("tesseract", "--version").CombinedOutput()
	if err != nil {
		return ServiceStatus{
			Available: false,
			Error:     "tesseract not found or not executable",
		}
	}

	version := "unknown"
	lines := strings.Split(string(output), "\n")
	if len(lines) > 0 {
		version = strings.TrimSpace(lines[0])
	}
	return ServiceStatus{Available: true, Version: version}
}

// StateResponse wraps a session state
type StateResponse struct {
	Success bool          `json:"success"`
	ID      string        `json:"id,omitempty"`
	State   session.State `json:"state"`
	Error   string        `json:"error,omitempty"`
}

func stateResponse(id string, st session.State) StateResponse {
	return StateResponse{
		Success: st.Phase == session.Done,
		ID:      id,
		State:   st,
		Error:   st.Message,
	}
}

// SolveImage runs one attempt over an uploaded image
func (h *Handler) SolveImage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		h.sendError(w, http.StatusBadRequest, "File too large or invalid form data")
		return
	}

	// Accept both "image" and "file" field names
	file, _, err := r.FormFile("image")
	if err != nil {
		file, _, err = r.FormFile("file")
		if err != nil {
			h.sendError(w, http.StatusBadRequest, "No image provided (use 'image' or 'file' field)")
			return
		}
	}
	defer file.Close()

	imageData, err := io.ReadAll(file)
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, "Failed to read file")
		return
	}

	img, err := ocr.DecodeImage(imageData)
	if err != nil {
		h.sendError(w, http.StatusBadRequest, err.Error())
		return
	}

	pipeline, err := h.pipeline(r.FormValue("backend"), r.FormValue("strategy"))
	if err != nil {
		h.sendFailure(w, err)
		return
	}

	st, err := session.SolveImage(r.Context(), pipeline, img)
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, err.Error())
		return
	}

	log.WithFields(logrus.Fields{
		"backend": st.Backend,
		"phase":   st.Phase.String(),
		"bytes":   len(imageData),
	}).Info("image solved")

	json.NewEncoder(w).Encode(stateResponse("", st))
}

// Normalize runs the rewrite table over raw text
func (h *Handler) Normalize(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req models.NormalizeRequest
	if !h.decode(w, r, &req) {
		return
	}

	normalized, steps := h.normalizer.Trace(req.Text)
	resp := models.NormalizeResponse{Input: req.Text, Normalized: normalized}
	for _, s := range steps {
		resp.Steps = append(resp.Steps, models.NormalizeStep{Rule: s.Rule, Text: s.Text})
	}
	json.NewEncoder(w).Encode(resp)
}

// Evaluate solves a typed expression
func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	start := time.Now()

	var req models.EvaluateRequest
	if !h.decode(w, r, &req) {
		return
	}

	expr := req.Expression
	if req.Normalize {
		expr = h.normalizer.Normalize(expr)
	}
	if strings.TrimSpace(expr) == "" {
		h.sendError(w, http.StatusBadRequest, "expression is required")
		return
	}

	result := h.solver.Solve(expr)
	resp := models.EvaluateResponse{
		Success:    result.Kind != models.ResultFailure,
		Input:      req.Expression,
		Expression: expr,
		Result:     result,
	}
	if tex, err := solver.TeX(expr); err == nil {
		resp.TeX = tex
	}
	if resp.Success {
		resp.Solution = typeset.ResultTeX(result)
		resp.Markup = h.typesetter.ToDisplayMarkup(resp.Solution)
	}
	resp.Duration = time.Since(start).Seconds()
	json.NewEncoder(w).Encode(resp)
}

// Render turns LaTeX into display markup
func (h *Handler) Render(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req models.RenderRequest
	if !h.decode(w, r, &req) {
		return
	}

	adapter := h.typesetter
	if req.Inline {
		adapter = adapter.WithOptions(typeset.Options{DisplayMode: false, ErrorTolerant: true})
	}
	json.NewEncoder(w).Encode(models.RenderResponse{Markup: adapter.ToDisplayMarkup(req.TeX)})
}

// pipeline builds a pipeline for the requested backend and strategy,
// falling back to configuration for empty values
func (h *Handler) pipeline(backendName, strategy string) (*session.Pipeline, error) {
	cfg := *h.config
	if strategy != "" {
		cfg.Preprocess.Strategy = strategy
	}
	b, err := h.backends(backendName)
	if err != nil {
		return nil, err
	}
	return session.NewPipeline(&cfg, b)
}

// decode reads a JSON body, answering 400 itself on failure
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxJSONSize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// sendFailure maps pipeline setup errors to status codes
func (h *Handler) sendFailure(w http.ResponseWriter, err error) {
	var f *models.Failure
	if errors.As(err, &f) && (f.Kind == models.ConfigError || f.Kind == models.InputError) {
		h.sendError(w, http.StatusBadRequest, f.Message)
		return
	}
	h.sendError(w, http.StatusInternalServerError, err.Error())
}

// sendError sends an error response
func (h *Handler) sendError(w http.ResponseWriter, statusCode int, message string) {
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}
