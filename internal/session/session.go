package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/inkmath/equation-solver/internal/models"
	"github.com/inkmath/equation-solver/internal/solver"
	"github.com/inkmath/equation-solver/internal/typeset"
)

var log = logrus.WithField("component", "session")

var (
	// ErrBusy is returned when Solve is called while an attempt is in flight
	ErrBusy = errors.New("a recognition attempt is already in progress")
	// ErrSuperseded is returned when Clear or a newer attempt invalidated
	// the result of an attempt before it could be committed
	ErrSuperseded = errors.New("attempt superseded")
)

// Phase is the position of an attempt in the pipeline
type Phase int

const (
	Idle Phase = iota
	Capturing
	Preprocessing
	Recognizing
	Normalizing
	Solving
	Done
	Failed
)

var phaseNames = [...]string{"idle", "capturing", "preprocessing", "recognizing", "normalizing", "solving", "done", "failed"}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// MarshalText encodes the phase by name
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Terminal reports whether no further transition happens in this attempt
func (p Phase) Terminal() bool {
	return p == Done || p == Failed
}

// State is a snapshot of a session. It is replaced wholesale on every
// transition and never mutated after publication.
type State struct {
	Phase         Phase               `json:"phase"`
	Attempt       uint64              `json:"attempt"`
	Backend       string              `json:"backend,omitempty"`
	RawText       string              `json:"rawText,omitempty"`
	Confidence    float64             `json:"confidence,omitempty"`
	Expression    string              `json:"expression,omitempty"`
	ExpressionTeX string              `json:"expressionTex,omitempty"`
	Result        *models.SolveResult `json:"result,omitempty"`
	Solution      string              `json:"solution,omitempty"`
	Markup        string              `json:"markup,omitempty"`
	Error         *models.Failure     `json:"error,omitempty"`
	Message       string              `json:"message,omitempty"`
	Transcript    []string            `json:"transcript"`
	StartedAt     time.Time           `json:"startedAt,omitempty"`
	FinishedAt    time.Time           `json:"finishedAt,omitempty"`
}

func (s State) clone() State {
	s.Transcript = append([]string(nil), s.Transcript...)
	return s
}

// Session couples a surface with a pipeline and runs at most one
// recognition attempt at a time. Every attempt carries a token; only the
// holder of the current token may publish state.
type Session struct {
	ID string

	surface  Surface
	pipeline *Pipeline
	log      *logrus.Entry

	mu       sync.Mutex
	state    State
	attempt  uint64
	running  bool
	cancel   context.CancelFunc
	done     chan struct{}
	observer func(State)
}

// New creates an idle session
func New(id string, surface Surface, pipeline *Pipeline) *Session {
	return &Session{
		ID:       id,
		surface:  surface,
		pipeline: pipeline,
		log:      log.WithField("session", id),
		state:    State{Phase: Idle},
	}
}

// Surface returns the session's input surface
func (s *Session) Surface() Surface {
	return s.surface
}

// Observe registers fn to receive every published state
func (s *Session) Observe(fn func(State)) {
	s.mu.Lock()
	s.observer = fn
	s.mu.Unlock()
}

// State returns the latest published snapshot
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Running reports whether an attempt is in flight
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Solve runs one attempt and blocks until it finishes. It returns ErrBusy
// if another attempt is in flight and ErrSuperseded if the session was
// cleared before the result could be committed.
func (s *Session) Solve(ctx context.Context) (State, error) {
	token, actx, done, err := s.begin(ctx)
	if err != nil {
		return s.State(), err
	}
	defer s.end(token, done)

	st := s.run(actx, token)
	if !s.publish(token, st) {
		return s.State(), ErrSuperseded
	}
	return st.clone(), nil
}

// Start runs one attempt in the background and returns its token. Use
// Wait or State to observe the outcome.
func (s *Session) Start(ctx context.Context) (uint64, error) {
	token, actx, done, err := s.begin(ctx)
	if err != nil {
		return 0, err
	}
	go func() {
		defer s.end(token, done)
		s.publish(token, s.run(actx, token))
	}()
	return token, nil
}

// Wait blocks until the in-flight attempt, if any, has finished
func (s *Session) Wait(ctx context.Context) (State, error) {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return s.State(), ctx.Err()
		}
	}
	return s.State(), nil
}

// Clear cancels any in-flight attempt, invalidates its token, resets the
// state to Idle and clears the surface.
func (s *Session) Clear() {
	s.mu.Lock()
	s.attempt++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.running = false
	s.state = State{Phase: Idle, Attempt: s.attempt}
	obs, st := s.observer, s.state.clone()
	s.mu.Unlock()

	s.surface.Clear()
	s.log.WithField("attempt", st.Attempt).Info("session cleared")
	if obs != nil {
		obs(st)
	}
}

func (s *Session) begin(ctx context.Context) (uint64, context.Context, chan struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return 0, nil, nil, ErrBusy
	}
	s.attempt++
	actx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.done = make(chan struct{})
	return s.attempt, actx, s.done, nil
}

func (s *Session) end(token uint64, done chan struct{}) {
	s.mu.Lock()
	if s.attempt == token {
		s.running = false
		if s.cancel != nil {
			s.cancel()
			s.cancel = nil
		}
	}
	s.mu.Unlock()
	close(done)
}

// publish replaces the state if token is still current
func (s *Session) publish(token uint64, st State) bool {
	s.mu.Lock()
	if token != s.attempt {
		s.mu.Unlock()
		s.log.WithField("attempt", token).Debug("dropping stale state")
		return false
	}
	s.state = st.clone()
	obs := s.observer
	s.mu.Unlock()
	if obs != nil {
		obs(st.clone())
	}
	return true
}

// run executes the pipeline for one attempt. The returned state is
// terminal unless the attempt was superseded midway.
func (s *Session) run(ctx context.Context, token uint64) State {
	p := s.pipeline
	logger := s.log.WithField("attempt", token)
	st := State{Phase: Capturing, Attempt: token, Backend: p.Backend.Name, StartedAt: time.Now()}

	say := func(format string, args ...interface{}) {
		line := fmt.Sprintf(format, args...)
		st.Transcript = append(st.Transcript, line)
		logger.Debug(line)
	}
	advance := func(phase Phase) bool {
		st.Phase = phase
		return s.publish(token, st)
	}
	fail := func(f *models.Failure) State {
		st.Phase = Failed
		st.Error = f
		st.Message = UserMessage(f)
		st.FinishedAt = time.Now()
		say("Error: %s", st.Message)
		logger.WithField("kind", f.Kind).Warn(f.Message)
		return st
	}

	if !advance(Capturing) {
		return st
	}
	if s.surface.IsEmpty() {
		return fail(models.NewFailure(models.InputError, emptyInput))
	}
	bitmap := s.surface.Bitmap()

	if !advance(Preprocessing) {
		return st
	}
	say("Preprocessing image...")
	processed := p.Preprocessor.Process(bitmap)

	if !advance(Recognizing) {
		return st
	}
	recCtx, cancel := withTimeout(ctx, p.Timeout)
	defer cancel()

	if p.Backend.Vision != nil {
		say("Sending to %s...", p.Backend.Vision.Name())
		solution, err := p.Backend.Vision.SolveImage(recCtx, processed)
		if err != nil {
			return fail(classify(recCtx, err))
		}
		say("AI Response: %s", solution)
		st.Solution = solution
		st.Markup = p.Typesetter.ToDisplayMarkup(solution)
		return s.finish(st, logger)
	}

	say("Running OCR...")
	res, err := p.Backend.Text.Recognize(recCtx, processed)
	if err != nil {
		return fail(classify(recCtx, err))
	}
	st.RawText = res.Text
	st.Confidence = res.Confidence
	say("OCR text: %q (confidence %.2f)", res.Text, res.Confidence)
	if strings.TrimSpace(res.Text) == "" {
		return fail(models.NewFailure(models.RecognitionError, "no text recognized"))
	}
	if p.MinConfidence > 0 && res.Confidence < p.MinConfidence {
		return fail(models.NewFailure(models.RecognitionError,
			fmt.Sprintf("confidence %.2f below minimum %.2f", res.Confidence, p.MinConfidence)))
	}

	if !advance(Normalizing) {
		return st
	}
	st.Expression = p.Normalizer.Normalize(res.Text)
	say("Normalized: %s", st.Expression)
	if st.Expression == "" {
		return fail(models.NewFailure(models.ParseError, "nothing recognizable to solve"))
	}
	if tex, err := solver.TeX(st.Expression); err == nil {
		st.ExpressionTeX = tex
	}

	if !advance(Solving) {
		return st
	}
	result := p.Solver.Solve(st.Expression)
	st.Result = &result
	if result.Failure != nil {
		return fail(result.Failure)
	}
	say("Result: %s", result.String())
	st.Solution = typeset.ResultTeX(result)
	st.Markup = p.Typesetter.ToDisplayMarkup(st.Solution)
	return s.finish(st, logger)
}

func (s *Session) finish(st State, logger *logrus.Entry) State {
	st.Phase = Done
	st.FinishedAt = time.Now()
	logger.WithFields(logrus.Fields{
		"backend":  st.Backend,
		"duration": st.FinishedAt.Sub(st.StartedAt).String(),
	}).Info("attempt finished")
	return st
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// classify maps a backend error to a failure. A deadline on the attempt
// context is reported as a timeout even if the backend wrapped it.
func classify(ctx context.Context, err error) *models.Failure {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return models.WrapFailure(models.TimeoutError, "timeout", err)
	}
	return models.AsFailure(err, models.RecognitionError)
}
