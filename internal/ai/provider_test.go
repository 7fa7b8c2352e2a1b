package ai

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/inkmath/equation-solver/internal/models"
)

func TestCleanSolution(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"x = 2", "x = 2"},
		{"$x = 2$", "x = 2"},
		{"$$x = \\pm 2$$", "x = \\pm 2"},
		{"```latex\nx = 2\n```", "x = 2"},
		{"```\n$x = 3$\n```", "x = 3"},
		{"\\[x = 4\\]", "x = 4"},
		{"  \\(y = 1\\)  ", "y = 1"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := CleanSolution(tt.in); got != tt.want {
			t.Errorf("CleanSolution(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMissingCredentialFailsBeforeNetwork(t *testing.T) {
	providers := []Provider{
		NewGeminiProvider("", "gemini-2.5-flash"),
		NewOpenAIProvider("  ", "http://127.0.0.1:1", "gpt-4o-mini"),
	}
	for _, p := range providers {
		_, err := p.Solve(context.Background(), []byte{1}, "image/png", DefaultPrompt)
		var f *models.Failure
		if !errors.As(err, &f) || f.Kind != models.ConfigError {
			t.Fatalf("%s: err = %v, want config failure", p.Name(), err)
		}
		if !strings.Contains(f.Message, "missing credential") {
			t.Fatalf("%s: message = %q", p.Name(), f.Message)
		}
	}
}

func TestNewProvider(t *testing.T) {
	cfg := models.DefaultConfig().AI
	for _, name := range []string{"gemini", "openai", "ollama"} {
		p, err := NewProvider(cfg, name, "")
		if err != nil || p.Name() != name {
			t.Fatalf("NewProvider(%s) = %v, %v", name, p, err)
		}
	}
	p, err := NewProvider(cfg, "gemini", "gemini-custom")
	if err != nil || p.Model() != "gemini-custom" {
		t.Fatalf("model override = %v, %v", p, err)
	}
	if _, err := NewProvider(cfg, "claude", ""); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestOpenAICompatibleSolve(t *testing.T) {
	var gotModel string
	var gotImage bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Content []struct {
					Type     string `json:"type"`
					ImageURL *struct {
						URL string `json:"url"`
					} `json:"image_url"`
				} `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		gotModel = req.Model
		for _, m := range req.Messages {
			for _, c := range m.Content {
				if c.ImageURL != nil && strings.HasPrefix(c.ImageURL.URL, "data:image/png;base64,") {
					gotImage = true
				}
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"$x = 2$"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	solver := NewVisionSolver(NewOllamaProvider(srv.URL, "llava"), "")
	got, err := solver.SolveImage(context.Background(), image.NewRGBA(image.Rect(0, 0, 4, 4)))
	if err != nil {
		t.Fatal(err)
	}
	if got != "x = 2" {
		t.Fatalf("solution = %q", got)
	}
	if gotModel != "llava" || !gotImage {
		t.Fatalf("request model=%q image=%v", gotModel, gotImage)
	}
	if solver.Name() != "ollama/llava" {
		t.Fatalf("name = %q", solver.Name())
	}
}

type stubProvider struct{ answer string }

func (s stubProvider) Name() string  { return "stub" }
func (s stubProvider) Model() string { return "m" }
func (s stubProvider) Solve(context.Context, []byte, string, string) (string, error) {
	return s.answer, nil
}

func TestVisionSolverEmptyAnswer(t *testing.T) {
	_, err := NewVisionSolver(stubProvider{answer: "$$"}, "").SolveImage(context.Background(), image.NewRGBA(image.Rect(0, 0, 1, 1)))
	var f *models.Failure
	if !errors.As(err, &f) || f.Kind != models.RecognitionError {
		t.Fatalf("err = %v, want recognition failure", err)
	}
}
