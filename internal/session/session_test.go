package session

import (
	"context"
	"errors"
	"image"
	"image/color"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/inkmath/equation-solver/internal/models"
	"github.com/inkmath/equation-solver/internal/ocr"
)

// drawing returns a black bitmap with a white mark, like the canvas
func drawing() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 20, 10))
	for i := range img.Pix {
		if i%4 == 3 {
			img.Pix[i] = 255
		}
	}
	img.Set(5, 5, color.White)
	return img
}

type fakeSurface struct {
	mu      sync.Mutex
	img     image.Image
	cleared int
}

func (f *fakeSurface) Bitmap() image.Image {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.img
}

func (f *fakeSurface) IsEmpty() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.img == nil
}

func (f *fakeSurface) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.img = nil
	f.cleared++
}

type fakeOCR struct {
	text       string
	confidence float64
	err        error
	calls      int
}

func (f *fakeOCR) Recognize(ctx context.Context, img image.Image) (ocr.Result, error) {
	f.calls++
	return ocr.Result{Text: f.text, Confidence: f.confidence}, f.err
}

// blockingOCR waits for release or for its context to end
type blockingOCR struct {
	started chan struct{}
	release chan struct{}
	text    string
}

func newBlockingOCR(text string) *blockingOCR {
	return &blockingOCR{started: make(chan struct{}, 1), release: make(chan struct{}), text: text}
}

func (b *blockingOCR) Recognize(ctx context.Context, img image.Image) (ocr.Result, error) {
	b.started <- struct{}{}
	select {
	case <-b.release:
		return ocr.Result{Text: b.text, Confidence: 1}, nil
	case <-ctx.Done():
		return ocr.Result{}, ctx.Err()
	}
}

type fakeVision struct {
	answer string
	err    error
}

func (f *fakeVision) Name() string { return "fake/vision" }

func (f *fakeVision) SolveImage(ctx context.Context, img image.Image) (string, error) {
	return f.answer, f.err
}

func newPipeline(t *testing.T, b Backend) *Pipeline {
	t.Helper()
	p, err := NewPipeline(models.DefaultConfig(), b)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	return p
}

func newSession(t *testing.T, b Backend) (*Session, *fakeSurface) {
	surface := &fakeSurface{img: drawing()}
	return New("test", surface, newPipeline(t, b)), surface
}

func TestSolveLocalOCR(t *testing.T) {
	s, _ := newSession(t, Backend{Name: "ocr", Text: &fakeOCR{text: "2x + 3 = 7", confidence: 0.9}})

	st, err := s.Solve(context.Background())
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if st.Phase != Done {
		t.Fatalf("phase = %s, want done (error %v)", st.Phase, st.Error)
	}
	if st.Expression != "2*x+3=7" {
		t.Errorf("expression = %q", st.Expression)
	}
	if st.Result == nil || st.Result.Kind != models.ResultAssignment || len(st.Result.Roots) != 1 || st.Result.Roots[0] != "2" {
		t.Errorf("result = %+v", st.Result)
	}
	if st.Solution == "" || st.Markup == "" {
		t.Errorf("solution %q markup %q should be set", st.Solution, st.Markup)
	}
	if len(st.Transcript) == 0 || st.Transcript[0] != "Preprocessing image..." {
		t.Errorf("transcript = %v", st.Transcript)
	}
	if got := s.State(); got.Phase != Done || got.Attempt != st.Attempt {
		t.Errorf("published state = %s/%d", got.Phase, got.Attempt)
	}
}

func TestSolveVisionBackend(t *testing.T) {
	s, _ := newSession(t, Backend{Name: "gemini", Vision: &fakeVision{answer: "x = 2"}})

	st, err := s.Solve(context.Background())
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if st.Phase != Done || st.Solution != "x = 2" {
		t.Fatalf("state = %s %q", st.Phase, st.Solution)
	}
	if st.Expression != "" || st.Result != nil {
		t.Errorf("vision path should skip normalize/solve, got %q %+v", st.Expression, st.Result)
	}
	var sawSending, sawResponse bool
	for _, line := range st.Transcript {
		sawSending = sawSending || strings.HasPrefix(line, "Sending to fake/vision")
		sawResponse = sawResponse || line == "AI Response: x = 2"
	}
	if !sawSending || !sawResponse {
		t.Errorf("transcript = %v", st.Transcript)
	}
}

func TestSolveEmptySurface(t *testing.T) {
	rec := &fakeOCR{text: "1+1"}
	s, surface := newSession(t, Backend{Name: "ocr", Text: rec})
	surface.img = nil

	st, err := s.Solve(context.Background())
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if st.Phase != Failed || st.Error == nil || st.Error.Kind != models.InputError {
		t.Fatalf("state = %s %+v", st.Phase, st.Error)
	}
	if st.Message != "Please draw something first!" {
		t.Errorf("message = %q", st.Message)
	}
	if rec.calls != 0 {
		t.Errorf("recognizer called %d times on empty input", rec.calls)
	}
}

func TestSolveMissingCredential(t *testing.T) {
	cause := models.NewFailure(models.ConfigError, "missing credential: gemini API key is not set")
	s, _ := newSession(t, Backend{Name: "gemini", Vision: &fakeVision{err: cause}})

	st, _ := s.Solve(context.Background())
	if st.Phase != Failed || st.Error == nil || st.Error.Kind != models.ConfigError {
		t.Fatalf("state = %s %+v", st.Phase, st.Error)
	}
	if !strings.Contains(st.Message, "API key") {
		t.Errorf("message = %q", st.Message)
	}
}

func TestSolveTimeout(t *testing.T) {
	rec := newBlockingOCR("1+1")
	s, _ := newSession(t, Backend{Name: "ocr", Text: rec})
	s.pipeline.Timeout = 20 * time.Millisecond

	st, err := s.Solve(context.Background())
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if st.Phase != Failed || st.Error == nil || st.Error.Kind != models.TimeoutError {
		t.Fatalf("state = %s %+v", st.Phase, st.Error)
	}
	if st.Error.Message != "timeout" {
		t.Errorf("message = %q", st.Error.Message)
	}
}

func TestSolveLowConfidence(t *testing.T) {
	s, _ := newSession(t, Backend{Name: "ocr", Text: &fakeOCR{text: "1+1", confidence: 0.2}})
	s.pipeline.MinConfidence = 0.5

	st, _ := s.Solve(context.Background())
	if st.Phase != Failed || st.Error.Kind != models.RecognitionError {
		t.Fatalf("state = %s %+v", st.Phase, st.Error)
	}
	if st.RawText != "1+1" {
		t.Errorf("raw text should be kept, got %q", st.RawText)
	}
}

func TestSolveParseFailureKeepsExpression(t *testing.T) {
	s, _ := newSession(t, Backend{Name: "ocr", Text: &fakeOCR{text: "2x+=7", confidence: 1}})

	st, _ := s.Solve(context.Background())
	if st.Phase != Failed || st.Error.Kind != models.ParseError {
		t.Fatalf("state = %s %+v", st.Phase, st.Error)
	}
	if st.Expression != "2*x+=7" {
		t.Errorf("expression = %q", st.Expression)
	}
}

func TestSolveBlankRecognition(t *testing.T) {
	s, _ := newSession(t, Backend{Name: "ocr", Text: &fakeOCR{text: "  "}})

	st, _ := s.Solve(context.Background())
	if st.Phase != Failed || st.Error.Kind != models.RecognitionError {
		t.Fatalf("state = %s %+v", st.Phase, st.Error)
	}
}

func TestPhasesMoveForward(t *testing.T) {
	s, _ := newSession(t, Backend{Name: "ocr", Text: &fakeOCR{text: "3+4", confidence: 1}})
	var phases []Phase
	s.Observe(func(st State) { phases = append(phases, st.Phase) })

	if _, err := s.Solve(context.Background()); err != nil {
		t.Fatalf("Solve: %v", err)
	}
	want := []Phase{Capturing, Preprocessing, Recognizing, Normalizing, Solving, Done}
	if len(phases) != len(want) {
		t.Fatalf("phases = %v, want %v", phases, want)
	}
	for i := range want {
		if phases[i] != want[i] {
			t.Errorf("phase %d = %s, want %s", i, phases[i], want[i])
		}
	}
}

func TestClearSupersedesInFlightAttempt(t *testing.T) {
	rec := newBlockingOCR("1+1")
	s, surface := newSession(t, Backend{Name: "ocr", Text: rec})

	type outcome struct {
		st  State
		err error
	}
	out := make(chan outcome, 1)
	go func() {
		st, err := s.Solve(context.Background())
		out <- outcome{st, err}
	}()

	<-rec.started
	s.Clear()

	res := <-out
	if !errors.Is(res.err, ErrSuperseded) {
		t.Fatalf("err = %v, want ErrSuperseded", res.err)
	}
	st := s.State()
	if st.Phase != Idle || st.Result != nil || st.Error != nil {
		t.Errorf("state after clear = %+v", st)
	}
	if surface.cleared != 1 {
		t.Errorf("surface cleared %d times", surface.cleared)
	}
}

func TestSolveWhileBusy(t *testing.T) {
	rec := newBlockingOCR("1+1")
	s, _ := newSession(t, Backend{Name: "ocr", Text: rec})

	token, err := s.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	<-rec.started

	if _, err := s.Solve(context.Background()); !errors.Is(err, ErrBusy) {
		t.Fatalf("second Solve err = %v, want ErrBusy", err)
	}

	close(rec.release)
	st, err := s.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if st.Attempt != token || st.Phase != Done {
		t.Errorf("state = %s attempt %d, want done attempt %d", st.Phase, st.Attempt, token)
	}
	if s.Running() {
		t.Error("session still running after Wait")
	}
}

func TestNewAttemptAfterClear(t *testing.T) {
	s, surface := newSession(t, Backend{Name: "ocr", Text: &fakeOCR{text: "5-2", confidence: 1}})
	first, _ := s.Solve(context.Background())
	s.Clear()
	surface.img = drawing()

	second, err := s.Solve(context.Background())
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if second.Attempt <= first.Attempt {
		t.Errorf("attempt tokens %d then %d", first.Attempt, second.Attempt)
	}
	if second.Result == nil || second.Result.Display != "3" {
		t.Errorf("result = %+v", second.Result)
	}
}

func TestNewPipelineRequiresBackend(t *testing.T) {
	if _, err := NewPipeline(models.DefaultConfig(), Backend{Name: "none"}); err == nil {
		t.Fatal("expected error for empty backend")
	}
}

func TestImageSurfaceIsEmpty(t *testing.T) {
	blank := image.NewRGBA(image.Rect(0, 0, 8, 8))
	tests := []struct {
		name string
		img  image.Image
		want bool
	}{
		{"nil", nil, true},
		{"zero size", image.NewRGBA(image.Rect(0, 0, 0, 0)), true},
		{"uniform", blank, true},
		{"drawing", drawing(), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewImageSurface(tt.img).IsEmpty(); got != tt.want {
				t.Errorf("IsEmpty() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestManager(t *testing.T) {
	m := NewManager(models.SessionsConfig{})
	p := newPipeline(t, Backend{Name: "ocr", Text: &fakeOCR{text: "1"}})
	s := m.Create(&fakeSurface{}, p)

	got, err := m.Get(s.ID)
	if err != nil || got != s {
		t.Fatalf("Get(%q) = %v, %v", s.ID, got, err)
	}
	if m.Len() != 1 {
		t.Errorf("Len = %d", m.Len())
	}
	if err := m.Delete(s.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := m.Get(s.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete err = %v", err)
	}
	if err := m.Delete(s.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete err = %v", err)
	}
}

func TestManagerEvictsLeastRecentlyUsed(t *testing.T) {
	m := NewManager(models.SessionsConfig{MaxSessions: 2})
	clock := time.Unix(0, 0)
	m.now = func() time.Time { return clock }
	p := newPipeline(t, Backend{Name: "ocr", Text: &fakeOCR{text: "1"}})

	a := m.Create(&fakeSurface{}, p)
	clock = clock.Add(time.Second)
	b := m.Create(&fakeSurface{}, p)
	clock = clock.Add(time.Second)
	if _, err := m.Get(a.ID); err != nil {
		t.Fatal(err)
	}
	clock = clock.Add(time.Second)
	c := m.Create(&fakeSurface{}, p)

	if m.Len() != 2 {
		t.Fatalf("Len = %d, want 2", m.Len())
	}
	if _, err := m.Get(b.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(b) err = %v, want ErrNotFound", err)
	}
	for _, s := range []*Session{a, c} {
		if _, err := m.Get(s.ID); err != nil {
			t.Errorf("Get(%s): %v", s.ID, err)
		}
	}
}

func TestManagerExpiresIdleSessions(t *testing.T) {
	m := NewManager(models.SessionsConfig{IdleMinutes: 5})
	clock := time.Unix(0, 0)
	m.now = func() time.Time { return clock }
	p := newPipeline(t, Backend{Name: "ocr", Text: &fakeOCR{text: "1"}})

	old := m.Create(&fakeSurface{}, p)
	clock = clock.Add(10 * time.Minute)
	m.Create(&fakeSurface{}, p)

	if _, err := m.Get(old.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("idle session still present: %v", err)
	}
	if m.Len() != 1 {
		t.Errorf("Len = %d, want 1", m.Len())
	}
}

func TestManagerGetOrCreate(t *testing.T) {
	m := NewManager(models.SessionsConfig{})
	p := newPipeline(t, Backend{Name: "ocr", Text: &fakeOCR{text: "1"}})
	calls := 0
	create := func(id string) *Session {
		calls++
		return New(id, &fakeSurface{}, p)
	}
	s1 := m.GetOrCreate("chat-1", create)
	s2 := m.GetOrCreate("chat-1", create)
	if s1 != s2 || calls != 1 {
		t.Fatalf("GetOrCreate created %d sessions", calls)
	}
	if s1.ID != "chat-1" {
		t.Errorf("ID = %q", s1.ID)
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		f    *models.Failure
		want string
	}{
		{nil, ""},
		{models.NewFailure(models.InputError, emptyInput), "Please draw something first!"},
		{models.NewFailure(models.TimeoutError, "timeout"), "Recognition timed out. Please try again."},
		{models.NewFailure(models.EvaluationError, "division by zero"), "Could not solve: division by zero"},
		{models.NewFailure(models.ConfigError, "unknown backend"), "Configuration error: unknown backend"},
	}
	for _, tt := range tests {
		if got := UserMessage(tt.f); got != tt.want {
			t.Errorf("UserMessage(%v) = %q, want %q", tt.f, got, tt.want)
		}
	}
}
