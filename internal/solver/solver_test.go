package solver

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/inkmath/equation-solver/internal/models"
)

func TestSolveValues(t *testing.T) {
	s := New(models.SolverConfig{})
	tests := []struct {
		expr    string
		value   float64
		display string
	}{
		{"2+2", 4, "4"},
		{"0.1+0.2", 0.3, "0.3"},
		{"1/3", 1.0 / 3, "0.3333333333"},
		{"2^(10)", 1024, "1024"},
		{"-3*(2-5)", 9, "9"},
		{"-2^(2)", -4, "-4"},
		{"2^-1", 0.5, "0.5"},
		{"2=2", 0, "0"},
		{"3=2", 1, "1"},
		{"sqrt(16)+1", 5, "5"},
		{"pi", math.Pi, "3.1415926536"},
	}
	for _, tt := range tests {
		got := s.Solve(tt.expr)
		if got.Kind != models.ResultValue {
			t.Errorf("Solve(%q) kind = %s (%v), want value", tt.expr, got.Kind, got.Err())
			continue
		}
		if math.Abs(got.Value-tt.value) > 1e-9 || got.Display != tt.display {
			t.Errorf("Solve(%q) = %v %q, want %v %q", tt.expr, got.Value, got.Display, tt.value, tt.display)
		}
	}
}

func TestSolveAssignments(t *testing.T) {
	s := New(models.SolverConfig{})
	tests := []struct {
		expr     string
		variable string
		roots    []string
	}{
		{"2*x+3=7", "x", []string{"2"}},
		{"x*0.5=1", "x", []string{"2"}},
		{"3*y=1", "y", []string{"1/3"}},
		{"x^(2)-4=0", "x", []string{"-2", "2"}},
		{"x^(2)=0", "x", []string{"0"}},
		{"-x^(2)+4=0", "x", []string{"-2", "2"}},
		{"x^(2)+1=0", "x", []string{"-i", "i"}},
		{"x^(2)-2=0", "x", []string{"-sqrt(2)", "sqrt(2)"}},
		{"x^(2)-x-1=0", "x", []string{"1/2 - sqrt(5)/2", "1/2 + sqrt(5)/2"}},
		{"x^(2)+2*x+5=0", "x", []string{"-1 - 2*i", "-1 + 2*i"}},
		{"x^(3)-6*x^(2)+11*x-6=0", "x", []string{"1", "2", "3"}},
		{"x^(3)-x=0", "x", []string{"-1", "0", "1"}},
		{"x^(2)-5*x+6", "x", []string{"2", "3"}},
		{"2(x+1)=8", "x", []string{"3"}},
		{"sqrt(x)=3", "x", []string{"9"}},
		{"2^x=8", "x", []string{"3"}},
		{"1/x=2", "x", []string{"0.5"}},
	}
	for _, tt := range tests {
		got := s.Solve(tt.expr)
		if got.Kind != models.ResultAssignment {
			t.Errorf("Solve(%q) kind = %s (%v), want assignment", tt.expr, got.Kind, got.Err())
			continue
		}
		if got.Variable != tt.variable || !reflect.DeepEqual(got.Roots, tt.roots) {
			t.Errorf("Solve(%q) = %s %v, want %s %v", tt.expr, got.Variable, got.Roots, tt.variable, tt.roots)
		}
	}
}

func TestSolveCubicNumeric(t *testing.T) {
	got := New(models.SolverConfig{}).Solve("x^(3)=2")
	if got.Kind != models.ResultAssignment || len(got.Roots) != 3 {
		t.Fatalf("Solve(x^3=2) = %+v", got)
	}
	if got.Roots[0] != "1.2599210499" {
		t.Fatalf("real root = %q, want 1.2599210499", got.Roots[0])
	}
}

func TestSolvePeriodicKeepsRootsNearZero(t *testing.T) {
	got := New(models.SolverConfig{}).Solve("sin(x)=0")
	if got.Kind != models.ResultAssignment {
		t.Fatalf("Solve(sin(x)=0) = %+v", got)
	}
	if n := len(got.Roots); n == 0 || n > 16 {
		t.Fatalf("got %d roots, want 1..16", n)
	}
	found := false
	for _, r := range got.Roots {
		if r == "0" {
			found = true
		}
	}
	if !found {
		t.Fatalf("roots %v do not include 0", got.Roots)
	}
}

func TestPowPolyBoundsCoefficientSize(t *testing.T) {
	tests := []struct {
		expr string
		ok   bool
	}{
		{"2^(10)", true},
		{"3^(1000)", true},
		{"99^(1024)", false},
		{"(2*x+3)^(1024)", false},
	}
	for _, tt := range tests {
		n, err := parse(tt.expr)
		if err != nil {
			t.Fatalf("parse %q: %v", tt.expr, err)
		}
		_, ok, err := polyFromNode(n, "x")
		if err != nil {
			t.Fatalf("polyFromNode(%q): %v", tt.expr, err)
		}
		if ok != tt.ok {
			t.Errorf("polyFromNode(%q) ok = %v, want %v", tt.expr, ok, tt.ok)
		}
	}
}

func TestClosestToZero(t *testing.T) {
	got := closestToZero([]float64{-9, -3, -1, 2, 5, 8}, 3)
	want := []float64{-3, -1, 2}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("closestToZero = %v, want %v", got, want)
	}
}

func TestAssignmentString(t *testing.T) {
	got := New(models.SolverConfig{}).Solve("x^(2)-4=0")
	if s := got.String(); s != "x = -2 or 2" {
		t.Fatalf("String() = %q", s)
	}
}

func TestSolveFailures(t *testing.T) {
	s := New(models.SolverConfig{})
	tests := []struct {
		expr string
		kind models.FailureKind
		msg  string
	}{
		{"", models.ParseError, "empty expression"},
		{"2*x+=7", models.ParseError, ""},
		{"(2+3", models.ParseError, ""},
		{"2+3)", models.ParseError, ""},
		{"x+y=5", models.UnsupportedError, "multiple variables: x, y"},
		{"a*b*c=1", models.UnsupportedError, "multiple variables: a, b, c"},
		{"1/0", models.EvaluationError, ""},
		{"x/0=1", models.EvaluationError, ""},
		{"x-x=0", models.EvaluationError, "identity: every value of x is a solution"},
		{"x-x=1", models.EvaluationError, "no solution"},
		{"x/x=1", models.EvaluationError, "identity: every value of x is a solution"},
		{"sin(x)-sin(x)=0", models.EvaluationError, "identity: every value of x is a solution"},
		{"sin(x)=2", models.EvaluationError, ""},
		{"sqrt(0-1)", models.EvaluationError, ""},
		{"(99^1024)^1024", models.EvaluationError, ""},
		{"(7^(900))^(900)", models.EvaluationError, ""},
	}
	for _, tt := range tests {
		got := s.Solve(tt.expr)
		if got.Kind != models.ResultFailure || got.Failure == nil {
			t.Errorf("Solve(%q) = %+v, want failure", tt.expr, got)
			continue
		}
		if got.Failure.Kind != tt.kind {
			t.Errorf("Solve(%q) failure kind = %s, want %s", tt.expr, got.Failure.Kind, tt.kind)
		}
		if tt.msg != "" && got.Failure.Message != tt.msg {
			t.Errorf("Solve(%q) message = %q, want %q", tt.expr, got.Failure.Message, tt.msg)
		}
	}
}

func TestSolveNeverPanics(t *testing.T) {
	s := New(models.SolverConfig{ScanSteps: 200})
	inputs := []string{
		"=", "==", "x=", "=x", "((((", "))", ")(", "^^^", "*", "1..2", ".", "x^", "^2",
		"sin", "sin()", "sin(", "2^(99999)", "x^(99999)=1", "0^(0-1)", "x^(1/2)=2",
		"9999999999999999999999*x=1", "abc", "=====", "-", "+-+-", "x=y=z",
	}
	for _, in := range inputs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Fatalf("Solve(%q) panicked: %v", in, r)
				}
			}()
			got := s.Solve(in)
			if got.Kind == "" {
				t.Errorf("Solve(%q) returned an untagged result", in)
			}
		}()
	}
}

func TestEvaluate(t *testing.T) {
	v, err := Evaluate("2*3+1")
	if err != nil || v != 7 {
		t.Fatalf("Evaluate = %v, %v", v, err)
	}
	if _, err := Evaluate("x+1"); !errors.Is(err, ErrEval) {
		t.Fatalf("Evaluate(x+1) err = %v, want ErrEval", err)
	}
	if _, err := Evaluate("2/(1-1)"); !errors.Is(err, ErrDivisionByZero) {
		t.Fatalf("Evaluate(2/0) err = %v, want ErrDivisionByZero", err)
	}
	if _, err := Evaluate("2+"); !errors.Is(err, ErrParse) {
		t.Fatalf("Evaluate(2+) err = %v, want ErrParse", err)
	}
}

func TestFreeVariables(t *testing.T) {
	tests := []struct {
		expr string
		want []string
	}{
		{"2+2", []string{}},
		{"2*x+3=7", []string{"x"}},
		{"y*x=x", []string{"x", "y"}},
		{"pi*r^(2)", []string{"r"}},
		{"sin(t)", []string{"t"}},
	}
	for _, tt := range tests {
		got, err := FreeVariables(tt.expr)
		if err != nil {
			t.Fatalf("FreeVariables(%q): %v", tt.expr, err)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("FreeVariables(%q) = %v, want %v", tt.expr, got, tt.want)
		}
	}
}

func TestTeX(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"2*x+3=7", "2x + 3 = 7"},
		{"x^(2)-4=0", "x^{2} - 4 = 0"},
		{"1/2", `\frac{1}{2}`},
		{"sqrt(x)=3", `\sqrt{x} = 3`},
		{"2*sin(x)", `2\sin\left(x\right)`},
		{"3*4", `3 \cdot 4`},
		{"(x+1)^(2)", `\left(x + 1\right)^{2}`},
		{"pi*r", `\pi \cdot r`},
	}
	for _, tt := range tests {
		got, err := TeX(tt.expr)
		if err != nil {
			t.Fatalf("TeX(%q): %v", tt.expr, err)
		}
		if got != tt.want {
			t.Errorf("TeX(%q) = %q, want %q", tt.expr, got, tt.want)
		}
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{2, "2"},
		{2.0000000000004, "2"},
		{-0.5, "-0.5"},
		{1e-12, "0"},
		{math.NaN(), "undefined"},
	}
	for _, tt := range tests {
		if got := FormatNumber(tt.in); got != tt.want {
			t.Errorf("FormatNumber(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
