package solver

import (
	"fmt"
	"math"
	"math/big"
	"sort"
)

type node interface{}

type nodeNumber struct {
	text string
	rat  *big.Rat
	f    float64
}

type nodeIdent struct {
	name string
}

type nodeUnary struct {
	op byte
	x  node
}

type nodeBinary struct {
	op          byte
	left, right node
}

type nodeCall struct {
	name string
	arg  node
}

type nodeParen struct {
	x node
}

var functions = map[string]func(float64) float64{
	"sin":  math.Sin,
	"cos":  math.Cos,
	"tan":  math.Tan,
	"asin": math.Asin,
	"acos": math.Acos,
	"atan": math.Atan,
	"sqrt": math.Sqrt,
	"exp":  math.Exp,
	"abs":  math.Abs,
	"ln":   math.Log,
	"log":  math.Log,
}

// evalNode evaluates with float64 arithmetic. Unbound variables, division
// by zero and non-finite results are errors.
func evalNode(n node, vars map[string]float64) (float64, error) {
	switch n := n.(type) {
	case nodeNumber:
		return n.f, nil
	case nodeIdent:
		if n.name == constPi {
			return math.Pi, nil
		}
		v, ok := vars[n.name]
		if !ok {
			return 0, fmt.Errorf("%w: undefined variable %s", ErrEval, n.name)
		}
		return v, nil
	case nodeParen:
		return evalNode(n.x, vars)
	case nodeUnary:
		x, err := evalNode(n.x, vars)
		if err != nil {
			return 0, err
		}
		return -x, nil
	case nodeCall:
		x, err := evalNode(n.arg, vars)
		if err != nil {
			return 0, err
		}
		fn, ok := functions[n.name]
		if !ok {
			return 0, fmt.Errorf("%w: unknown function %s", ErrEval, n.name)
		}
		return finite(fn(x))
	case nodeBinary:
		l, err := evalNode(n.left, vars)
		if err != nil {
			return 0, err
		}
		r, err := evalNode(n.right, vars)
		if err != nil {
			return 0, err
		}
		switch n.op {
		case '+':
			return finite(l + r)
		case '-':
			return finite(l - r)
		case '*':
			return finite(l * r)
		case '/':
			if r == 0 {
				return 0, ErrDivisionByZero
			}
			return finite(l / r)
		case '^':
			return finite(math.Pow(l, r))
		}
		return 0, fmt.Errorf("%w: unknown operator %q", ErrEval, n.op)
	}
	return 0, fmt.Errorf("%w: unknown node %T", ErrEval, n)
}

func finite(v float64) (float64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: undefined result", ErrEval)
	}
	return v, nil
}

// freeVars returns the sorted, distinct variable names in n
func freeVars(n node) []string {
	seen := make(map[string]bool)
	var walk func(node)
	walk = func(n node) {
		switch n := n.(type) {
		case nodeIdent:
			if n.name != constPi {
				seen[n.name] = true
			}
		case nodeParen:
			walk(n.x)
		case nodeUnary:
			walk(n.x)
		case nodeCall:
			walk(n.arg)
		case nodeBinary:
			walk(n.left)
			walk(n.right)
		}
	}
	walk(n)

	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

const (
	precSum = iota + 1
	precProduct
	precUnary
	precPower
	precAtom
)

func precedence(n node) int {
	switch n := n.(type) {
	case nodeBinary:
		switch n.op {
		case '+', '-':
			return precSum
		case '*':
			return precProduct
		case '/':
			return precAtom // rendered as \frac
		case '^':
			return precPower
		}
	case nodeUnary:
		return precUnary
	}
	return precAtom
}

var texFunctions = map[string]string{
	"sin":  `\sin`,
	"cos":  `\cos`,
	"tan":  `\tan`,
	"asin": `\arcsin`,
	"acos": `\arccos`,
	"atan": `\arctan`,
	"exp":  `\exp`,
	"ln":   `\ln`,
	"log":  `\log`,
}

// texNode renders n as LaTeX
func texNode(n node) string {
	switch n := n.(type) {
	case nodeNumber:
		return n.text
	case nodeIdent:
		if n.name == constPi {
			return `\pi`
		}
		return n.name
	case nodeParen:
		return `\left(` + texNode(n.x) + `\right)`
	case nodeUnary:
		return "-" + texWrap(n.x, precUnary)
	case nodeCall:
		switch n.name {
		case "sqrt":
			return `\sqrt{` + texNode(n.arg) + `}`
		case "abs":
			return `\left|` + texNode(n.arg) + `\right|`
		}
		return texFunctions[n.name] + `\left(` + texNode(unparen(n.arg)) + `\right)`
	case nodeBinary:
		switch n.op {
		case '+':
			return texNode(n.left) + " + " + texWrap(n.right, precProduct)
		case '-':
			return texNode(n.left) + " - " + texWrap(n.right, precProduct)
		case '*':
			l := texWrap(n.left, precProduct)
			r := texWrap(n.right, precPower)
			if implicitProduct(n) {
				return l + r
			}
			return l + ` \cdot ` + r
		case '/':
			return `\frac{` + texNode(unparen(n.left)) + `}{` + texNode(unparen(n.right)) + `}`
		case '^':
			return texWrap(n.left, precAtom) + "^{" + texNode(unparen(n.right)) + "}"
		}
	}
	return ""
}

// texWrap parenthesizes n when it binds looser than min
func texWrap(n node, min int) string {
	if precedence(n) < min {
		return `\left(` + texNode(n) + `\right)`
	}
	return texNode(n)
}

// implicitProduct reports whether a product reads naturally without a dot,
// as in 2x, 3\sin(x) or x^{2}y.
func implicitProduct(n nodeBinary) bool {
	switch l := n.left.(type) {
	case nodeNumber:
	case nodeIdent:
		if l.name == constPi {
			return false
		}
	default:
		return false
	}
	switch r := n.right.(type) {
	case nodeIdent, nodeCall, nodeParen:
		return true
	case nodeBinary:
		if r.op == '^' {
			_, ok := r.left.(nodeIdent)
			return ok
		}
	}
	return false
}

func unparen(n node) node {
	for {
		p, ok := n.(nodeParen)
		if !ok {
			return n
		}
		n = p.x
	}
}
