// Package solver parses normalized expressions, evaluates arithmetic and
// solves single-variable equations.
package solver

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/inkmath/equation-solver/internal/models"
)

var (
	ErrParse          = errors.New("parse error")
	ErrEval           = errors.New("evaluation error")
	ErrDivisionByZero = fmt.Errorf("%w: division by zero", ErrEval)
)

var log = logrus.WithField("component", "solver")

// Solver turns a normalized expression into a SolveResult
type Solver struct {
	cfg models.SolverConfig
}

// New creates a solver; zero config fields fall back to defaults
func New(cfg models.SolverConfig) *Solver {
	def := models.DefaultConfig().Solver
	if cfg.ScanMin == 0 && cfg.ScanMax == 0 {
		cfg.ScanMin, cfg.ScanMax = def.ScanMin, def.ScanMax
	}
	if cfg.ScanSteps == 0 {
		cfg.ScanSteps = def.ScanSteps
	}
	if cfg.MaxRoots == 0 {
		cfg.MaxRoots = def.MaxRoots
	}
	return &Solver{cfg: cfg}
}

// Solve never panics and never returns an error: every problem becomes a
// failure result.
func (s *Solver) Solve(expr string) (result models.SolveResult) {
	defer func() {
		if r := recover(); r != nil {
			log.WithField("expression", expr).Errorf("solver panic: %v", r)
			result = models.FailureResult(models.EvaluationError, fmt.Sprint(r))
		}
	}()

	expr = strings.TrimSpace(expr)
	if expr == "" {
		return models.FailureResult(models.ParseError, "empty expression")
	}

	zero, err := zeroForm(expr)
	if err != nil {
		return failure(err)
	}

	vars := freeVars(zero)
	switch len(vars) {
	case 0:
		v, err := evaluate(zero)
		if err != nil {
			return failure(err)
		}
		return v
	case 1:
		return s.solveFor(zero, vars[0])
	default:
		return models.FailureResult(models.UnsupportedError, "multiple variables: "+strings.Join(vars, ", "))
	}
}

// zeroForm parses expr; an equation "lhs=rhs" (split at the first "=")
// becomes lhs-(rhs). Both sides are parsed separately so a dangling
// operator on either side is a parse error.
func zeroForm(expr string) (node, error) {
	lhsText, rhsText, isEquation := strings.Cut(expr, "=")
	lhs, err := parse(lhsText)
	if err != nil {
		return nil, err
	}
	if !isEquation {
		return lhs, nil
	}
	rhs, err := parse(rhsText)
	if err != nil {
		return nil, err
	}
	return nodeBinary{op: '-', left: lhs, right: nodeParen{x: rhs}}, nil
}

// evaluate reduces a variable-free tree to a value, exactly when the tree
// is rational arithmetic.
func evaluate(n node) (models.SolveResult, error) {
	p, ok, err := polyFromNode(n, "")
	if err != nil {
		return models.SolveResult{}, err
	}
	if ok {
		c := p.coeff(0)
		f, _ := c.Float64()
		return models.ValueResult(f, formatRatDecimal(c)), nil
	}
	f, err := evalNode(n, nil)
	if err != nil {
		return models.SolveResult{}, err
	}
	return models.ValueResult(f, FormatNumber(f)), nil
}

func (s *Solver) solveFor(zero node, variable string) models.SolveResult {
	p, ok, err := polyFromNode(zero, variable)
	if err != nil {
		return failure(err)
	}
	if ok {
		switch p.degree() {
		case -1:
			return models.FailureResult(models.EvaluationError, "identity: every value of "+variable+" is a solution")
		case 0:
			return models.FailureResult(models.EvaluationError, "no solution")
		}
		roots, err := solvePolynomial(p)
		if err != nil {
			return failure(err)
		}
		texts := make([]string, len(roots))
		for i, r := range roots {
			texts[i] = r.text
		}
		return models.AssignmentResult(variable, texts)
	}

	f := func(x float64) (float64, error) {
		return evalNode(zero, map[string]float64{variable: x})
	}
	found, identity := scanRoots(f, s.cfg.ScanMin, s.cfg.ScanMax, s.cfg.ScanSteps, s.cfg.MaxRoots)
	if identity {
		return models.FailureResult(models.EvaluationError, "identity: every value of "+variable+" is a solution")
	}
	if len(found) == 0 {
		return models.FailureResult(models.EvaluationError, fmt.Sprintf("no solution found for %s in [%s, %s]",
			variable, FormatNumber(s.cfg.ScanMin), FormatNumber(s.cfg.ScanMax)))
	}
	texts := make([]string, len(found))
	for i, x := range found {
		texts[i] = FormatNumber(x)
	}
	return models.AssignmentResult(variable, dedupeStrings(texts))
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// failure classifies solver errors
func failure(err error) models.SolveResult {
	kind := models.EvaluationError
	if errors.Is(err, ErrParse) {
		kind = models.ParseError
	}
	return models.SolveResult{Kind: models.ResultFailure, Failure: models.WrapFailure(kind, err.Error(), err)}
}

// Evaluate computes a variable-free expression
func Evaluate(expr string) (float64, error) {
	n, err := parse(expr)
	if err != nil {
		return 0, err
	}
	if vars := freeVars(n); len(vars) > 0 {
		return 0, fmt.Errorf("%w: undefined variable %s", ErrEval, vars[0])
	}
	return evalNode(n, nil)
}

// FreeVariables lists the distinct variables of an expression or equation
func FreeVariables(expr string) ([]string, error) {
	n, err := zeroForm(expr)
	if err != nil {
		return nil, err
	}
	return freeVars(n), nil
}

// TeX renders a normalized expression or equation as LaTeX
func TeX(expr string) (string, error) {
	lhsText, rhsText, isEquation := strings.Cut(expr, "=")
	lhs, err := parse(lhsText)
	if err != nil {
		return "", err
	}
	if !isEquation {
		return texNode(lhs), nil
	}
	rhs, err := parse(rhsText)
	if err != nil {
		return "", err
	}
	return texNode(lhs) + " = " + texNode(rhs), nil
}
