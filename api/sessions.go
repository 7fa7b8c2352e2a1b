package api

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/inkmath/equation-solver/internal/canvas"
	"github.com/inkmath/equation-solver/internal/models"
	"github.com/inkmath/equation-solver/internal/ocr"
	"github.com/inkmath/equation-solver/internal/session"
)

// StrokesRequest appends pen strokes to a session canvas
type StrokesRequest struct {
	Strokes []canvas.Stroke `json:"strokes"`
}

// CreateSession opens a drawing session with an empty canvas
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req models.CreateSessionRequest
	r.Body = http.MaxBytesReader(w, r.Body, MaxJSONSize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.sendError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	pipeline, err := h.pipeline(req.Backend, req.Strategy)
	if err != nil {
		h.sendFailure(w, err)
		return
	}

	s := h.sessions.Create(canvas.New(h.config.Canvas), pipeline)
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(StateResponse{ID: s.ID, State: s.State()})
}

// GetSession returns the latest state of a session
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	json.NewEncoder(w).Encode(stateResponse(s.ID, s.State()))
}

// DeleteSession cancels any attempt and forgets the session
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	id := mux.Vars(r)["id"]
	if err := h.sessions.Delete(id); err != nil {
		h.sendError(w, http.StatusNotFound, err.Error())
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"id":      id,
	})
}

// AddStrokes appends strokes to the session canvas
func (h *Handler) AddStrokes(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	c, ok := s.Surface().(*canvas.Canvas)
	if !ok {
		h.sendError(w, http.StatusConflict, "session has no drawing canvas")
		return
	}

	var req StrokesRequest
	if !h.decode(w, r, &req) {
		return
	}
	c.AddStrokes(req.Strokes...)

	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"strokes": c.StrokeCount(),
	})
}

// SolveSession runs an attempt on the session canvas. With async=true it
// returns 202 immediately and the outcome is read with GetSession.
func (h *Handler) SolveSession(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	s, ok := h.lookup(w, r)
	if !ok {
		return
	}

	if r.URL.Query().Get("async") == "true" {
		// the attempt outlives the request; Clear or Delete cancels it
		token, err := s.Start(context.Background())
		if err != nil {
			h.sendSessionError(w, err)
			return
		}
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"id":      s.ID,
			"attempt": token,
		})
		return
	}

	st, err := s.Solve(r.Context())
	if err != nil {
		h.sendSessionError(w, err)
		return
	}
	json.NewEncoder(w).Encode(stateResponse(s.ID, st))
}

// ClearSession cancels any attempt and wipes the canvas
func (h *Handler) ClearSession(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	s.Clear()
	json.NewEncoder(w).Encode(StateResponse{Success: true, ID: s.ID, State: s.State()})
}

// CanvasImage returns the canvas preview as PNG
func (h *Handler) CanvasImage(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var img image.Image
	if c, ok := s.Surface().(*canvas.Canvas); ok {
		img = c.Preview()
	} else {
		img = s.Surface().Bitmap()
	}
	if img == nil {
		w.Header().Set("Content-Type", "application/json")
		h.sendError(w, http.StatusNotFound, "no image")
		return
	}

	data, err := ocr.EncodePNG(img)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		h.sendError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(data)
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, err := h.sessions.Get(mux.Vars(r)["id"])
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		h.sendError(w, http.StatusNotFound, err.Error())
		return nil, false
	}
	return s, true
}

// sendSessionError maps attempt errors: both busy and superseded are
// conflicts with the session's current state
func (h *Handler) sendSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrBusy), errors.Is(err, session.ErrSuperseded):
		h.sendError(w, http.StatusConflict, err.Error())
	default:
		h.sendError(w, http.StatusInternalServerError, err.Error())
	}
}
