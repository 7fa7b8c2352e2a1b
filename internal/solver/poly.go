package solver

import (
	"fmt"
	"math/big"
)

// maxDegree bounds symbolic expansion of powers; maxExponent bounds exact
// powers of constants; maxCoeffBits bounds the size of a powered coefficient.
const (
	maxDegree    = 64
	maxExponent  = 1024
	maxCoeffBits = 4096
)

// poly is a univariate polynomial with exact rational coefficients:
// p(x) = c0 + c1*x + c2*x^2 + ...
type poly []*big.Rat

func constPoly(r *big.Rat) poly {
	return poly{new(big.Rat).Set(r)}
}

func (p poly) degree() int {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i].Sign() != 0 {
			return i
		}
	}
	return -1
}

// coeffBits is the widest numerator or denominator among p's coefficients.
func (p poly) coeffBits() int {
	bits := 0
	for _, c := range p {
		if b := c.Num().BitLen(); b > bits {
			bits = b
		}
		if b := c.Denom().BitLen(); b > bits {
			bits = b
		}
	}
	return bits
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func (p poly) trim() poly {
	return p[:p.degree()+1]
}

func (p poly) coeff(i int) *big.Rat {
	if i < len(p) {
		return p[i]
	}
	return new(big.Rat)
}

func (p poly) add(q poly, sign int) poly {
	n := len(p)
	if len(q) > n {
		n = len(q)
	}
	out := make(poly, n)
	for i := range out {
		b := new(big.Rat).Set(q.coeff(i))
		if sign < 0 {
			b.Neg(b)
		}
		out[i] = b.Add(b, p.coeff(i))
	}
	return out.trim()
}

func (p poly) mul(q poly) poly {
	if len(p) == 0 || len(q) == 0 {
		return poly{}
	}
	out := make(poly, len(p)+len(q)-1)
	for i := range out {
		out[i] = new(big.Rat)
	}
	t := new(big.Rat)
	for i, a := range p {
		for j, b := range q {
			out[i+j].Add(out[i+j], t.Mul(a, b))
		}
	}
	return out.trim()
}

func (p poly) scale(r *big.Rat) poly {
	out := make(poly, len(p))
	for i, c := range p {
		out[i] = new(big.Rat).Mul(c, r)
	}
	return out.trim()
}

func (p poly) pow(n int) poly {
	out := poly{big.NewRat(1, 1)}
	for i := 0; i < n; i++ {
		out = out.mul(p)
	}
	return out
}

// eval evaluates p exactly at r (Horner)
func (p poly) eval(r *big.Rat) *big.Rat {
	v := new(big.Rat)
	for i := len(p) - 1; i >= 0; i-- {
		v.Mul(v, r)
		v.Add(v, p[i])
	}
	return v
}

// deflate divides p by (x - r), assuming r is a root
func (p poly) deflate(r *big.Rat) poly {
	n := len(p) - 1
	if n < 1 {
		return poly{}
	}
	out := make(poly, n)
	carry := new(big.Rat).Set(p[n])
	for i := n - 1; i >= 0; i-- {
		out[i] = new(big.Rat).Set(carry)
		carry.Mul(carry, r)
		carry.Add(carry, p[i])
	}
	return out.trim()
}

func (p poly) floats() []float64 {
	out := make([]float64, len(p))
	for i, c := range p {
		out[i], _ = c.Float64()
	}
	return out
}

// polyFromNode expands n as a polynomial in variable. ok is false when n is
// not a polynomial with rational coefficients (calls, pi, symbolic
// division, non-integer exponents); err is set for hard failures such as
// division by a zero constant.
func polyFromNode(n node, variable string) (p poly, ok bool, err error) {
	switch n := n.(type) {
	case nodeNumber:
		return constPoly(n.rat).trim(), true, nil
	case nodeIdent:
		if n.name == variable {
			return poly{new(big.Rat), big.NewRat(1, 1)}, true, nil
		}
		return nil, false, nil
	case nodeParen:
		return polyFromNode(n.x, variable)
	case nodeUnary:
		x, ok, err := polyFromNode(n.x, variable)
		if !ok || err != nil {
			return nil, ok, err
		}
		return x.scale(big.NewRat(-1, 1)), true, nil
	case nodeBinary:
		l, ok, err := polyFromNode(n.left, variable)
		if !ok || err != nil {
			return nil, ok, err
		}
		if n.op == '^' {
			return powPoly(l, n.right, variable)
		}
		r, ok, err := polyFromNode(n.right, variable)
		if !ok || err != nil {
			return nil, ok, err
		}
		switch n.op {
		case '+':
			return l.add(r, 1), true, nil
		case '-':
			return l.add(r, -1), true, nil
		case '*':
			return l.mul(r), true, nil
		case '/':
			switch r.degree() {
			case -1:
				return nil, false, ErrDivisionByZero
			case 0:
				return l.scale(new(big.Rat).Inv(r[0])), true, nil
			}
			return nil, false, nil
		}
	}
	return nil, false, nil
}

func powPoly(base poly, exp node, variable string) (poly, bool, error) {
	e, ok, err := polyFromNode(exp, variable)
	if !ok || err != nil {
		return nil, ok, err
	}
	if e.degree() > 0 {
		return nil, false, nil
	}
	k := e.coeff(0)
	if !k.IsInt() || k.Num().BitLen() > 16 {
		return nil, false, nil
	}
	n := int(k.Num().Int64())
	if n > maxExponent || n < -maxExponent {
		return nil, false, nil
	}
	if base.coeffBits()*abs(n) > maxCoeffBits {
		return nil, false, nil
	}
	if n >= 0 {
		if base.degree()*n > maxDegree {
			return nil, false, nil
		}
		return base.pow(n), true, nil
	}
	// Negative powers only stay polynomial for non-zero constants.
	switch base.degree() {
	case -1:
		return nil, false, fmt.Errorf("%w: zero to a negative power", ErrDivisionByZero)
	case 0:
		inv := new(big.Rat).Inv(base[0])
		return constPoly(inv).pow(-n), true, nil
	}
	return nil, false, nil
}
