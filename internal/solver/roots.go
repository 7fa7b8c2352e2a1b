package solver

import (
	"fmt"
	"math"
	"math/big"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// root is one solution with its display text and numeric value
type root struct {
	text   string
	re, im float64
}

func ratRoot(r *big.Rat) root {
	f, _ := r.Float64()
	return root{text: formatRat(r), re: f}
}

// solvePolynomial finds the distinct roots of p (degree >= 1). Zero and
// rational roots are found exactly and divided out; a remaining quadratic
// is solved in closed form and anything higher numerically.
func solvePolynomial(p poly) ([]root, error) {
	var out []root

	if p.degree() >= 1 && p[0].Sign() == 0 {
		out = append(out, ratRoot(new(big.Rat)))
		for p.degree() >= 1 && p[0].Sign() == 0 {
			p = p[1:]
		}
	}

	if p.degree() >= 3 {
		for _, r := range rationalCandidates(p) {
			if p.degree() < 1 {
				break
			}
			if p.eval(r).Sign() != 0 {
				continue
			}
			out = append(out, ratRoot(r))
			for p.degree() >= 1 && p.eval(r).Sign() == 0 {
				p = p.deflate(r)
			}
		}
	}

	switch d := p.degree(); {
	case d == 1:
		r := new(big.Rat).Quo(p[0], p[1])
		out = append(out, ratRoot(r.Neg(r)))
	case d == 2:
		out = append(out, quadraticRoots(p[2], p[1], p[0])...)
	case d >= 3:
		rs, err := eigenRoots(p)
		if err != nil {
			return nil, err
		}
		out = append(out, rs...)
	}

	return sortRoots(dedupe(out)), nil
}

// rationalCandidates lists ±a/b for a dividing the constant term and b
// dividing the leading coefficient of p scaled to integers. Returns nil
// when the coefficients are too large to factor cheaply.
func rationalCandidates(p poly) []*big.Rat {
	lcm := big.NewInt(1)
	for _, c := range p {
		d := c.Denom()
		g := new(big.Int).GCD(nil, nil, lcm, d)
		lcm.Mul(lcm, new(big.Int).Quo(d, g))
	}
	scale := new(big.Rat).SetInt(lcm)
	lead := new(big.Rat).Mul(p[p.degree()], scale).Num()
	constant := new(big.Rat).Mul(p[0], scale).Num()
	if lead.BitLen() > 30 || constant.BitLen() > 30 || constant.Sign() == 0 {
		return nil
	}

	var out []*big.Rat
	for _, a := range divisors(abs64(constant.Int64())) {
		for _, b := range divisors(abs64(lead.Int64())) {
			out = append(out, big.NewRat(a, b), big.NewRat(-a, b))
		}
	}
	return out
}

func divisors(n int64) []int64 {
	var small, large []int64
	for i := int64(1); i*i <= n; i++ {
		if n%i == 0 {
			small = append(small, i)
			if i != n/i {
				large = append(large, n/i)
			}
		}
	}
	for i := len(large) - 1; i >= 0; i-- {
		small = append(small, large[i])
	}
	return small
}

func abs64(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}

// quadraticRoots solves a*x^2 + b*x + c = 0 exactly. Irrational roots are
// written with sqrt, complex ones with i.
func quadraticRoots(a, b, c *big.Rat) []root {
	// disc = b^2 - 4ac
	disc := new(big.Rat).Mul(b, b)
	disc.Sub(disc, new(big.Rat).Mul(big.NewRat(4, 1), new(big.Rat).Mul(a, c)))

	twoA := new(big.Rat).Mul(big.NewRat(2, 1), a)
	center := new(big.Rat).Quo(b, twoA)
	center.Neg(center)

	if disc.Sign() == 0 {
		return []root{ratRoot(center)}
	}

	// sqrt(|disc|) / |2a| = k*sqrt(s) / (den*|2a|) with s square-free
	m := new(big.Int).Mul(new(big.Int).Abs(disc.Num()), disc.Denom())
	if m.BitLen() > 62 {
		return numericQuadratic(a, b, c)
	}
	k, s := squareFree(m.Int64())
	offset := new(big.Rat).SetFrac(big.NewInt(k), disc.Denom())
	offset.Quo(offset, new(big.Rat).Abs(twoA))

	cf, _ := center.Float64()
	of, _ := offset.Float64()
	of *= math.Sqrt(float64(s))

	if disc.Sign() > 0 {
		if s == 1 {
			lo := new(big.Rat).Sub(center, offset)
			hi := new(big.Rat).Add(center, offset)
			return []root{ratRoot(lo), ratRoot(hi)}
		}
		term := coefText(offset, fmt.Sprintf("sqrt(%d)", s))
		return []root{
			{text: joinTerms(center, "-", term), re: cf - of},
			{text: joinTerms(center, "+", term), re: cf + of},
		}
	}

	unit := "i"
	if s != 1 {
		unit = fmt.Sprintf("sqrt(%d)*i", s)
	}
	term := coefText(offset, unit)
	return []root{
		{text: joinTerms(center, "-", term), re: cf, im: -of},
		{text: joinTerms(center, "+", term), re: cf, im: of},
	}
}

// coefText writes q*unit as "unit", "3*unit", "unit/2" or "3*unit/2"
func coefText(q *big.Rat, unit string) string {
	text := unit
	if q.Num().Cmp(big.NewInt(1)) != 0 {
		text = q.Num().String() + "*" + unit
	}
	if !q.IsInt() {
		text += "/" + q.Denom().String()
	}
	return text
}

func joinTerms(center *big.Rat, sign, term string) string {
	if center.Sign() == 0 {
		if sign == "-" {
			return "-" + term
		}
		return term
	}
	return formatRat(center) + " " + sign + " " + term
}

// squareFree splits n = k^2 * s with s square-free
func squareFree(n int64) (k, s int64) {
	k, s = 1, 1
	for f := int64(2); f*f <= n; f++ {
		for n%(f*f) == 0 {
			k *= f
			n /= f * f
		}
		if n%f == 0 {
			s *= f
			n /= f
		}
	}
	return k, s * n
}

func numericQuadratic(a, b, c *big.Rat) []root {
	af, _ := a.Float64()
	bf, _ := b.Float64()
	cf, _ := c.Float64()
	disc := complex(bf*bf-4*af*cf, 0)
	sq := complexSqrt(disc)
	r1 := (complex(-bf, 0) - sq) / complex(2*af, 0)
	r2 := (complex(-bf, 0) + sq) / complex(2*af, 0)
	return []root{numericRoot(r1), numericRoot(r2)}
}

func complexSqrt(c complex128) complex128 {
	if imag(c) == 0 && real(c) < 0 {
		return complex(0, math.Sqrt(-real(c)))
	}
	return complex(math.Sqrt(real(c)), 0)
}

func numericRoot(c complex128) root {
	r := root{text: formatComplex(c), re: real(c), im: imag(c)}
	if math.Abs(r.im) < 1e-9 {
		r.im = 0
	}
	return r
}

// eigenRoots computes the roots of p as eigenvalues of its companion matrix
func eigenRoots(p poly) ([]root, error) {
	coeffs := p.floats()
	n := len(coeffs) - 1
	lead := coeffs[n]

	data := make([]float64, n*n)
	for i := 0; i < n; i++ {
		if i > 0 {
			data[i*n+i-1] = 1
		}
		data[i*n+n-1] = -coeffs[i] / lead
	}

	var eig mat.Eigen
	if ok := eig.Factorize(mat.NewDense(n, n, data), mat.EigenNone); !ok {
		return nil, fmt.Errorf("%w: eigenvalue decomposition did not converge", ErrEval)
	}

	var out []root
	for _, v := range eig.Values(nil) {
		out = append(out, numericRoot(v))
	}
	return out, nil
}

func dedupe(roots []root) []root {
	seen := make(map[string]bool)
	out := roots[:0]
	for _, r := range roots {
		if seen[r.text] {
			continue
		}
		seen[r.text] = true
		out = append(out, r)
	}
	return out
}

// sortRoots orders real roots ascending, then complex roots by real and
// imaginary part.
func sortRoots(roots []root) []root {
	sort.SliceStable(roots, func(i, j int) bool {
		a, b := roots[i], roots[j]
		if (a.im == 0) != (b.im == 0) {
			return a.im == 0
		}
		if a.re != b.re {
			return a.re < b.re
		}
		return a.im < b.im
	})
	return roots
}

// scanRoots finds sign changes of f on [lo, hi] sampled at steps points and
// refines each by bisection. Sign changes where |f| does not shrink (poles)
// are dropped. When more than limit roots exist the limit closest to zero
// are kept. identity reports that every finite sample was exactly zero.
func scanRoots(f func(float64) (float64, error), lo, hi float64, steps, limit int) (roots []float64, identity bool) {
	if steps < 2 {
		steps = 2
	}
	const tol = 1e-7
	var out []float64
	last := math.NaN()
	add := func(x float64) {
		if math.IsNaN(last) || math.Abs(x-last) > 1e-6 {
			out = append(out, x)
			last = x
		}
	}

	finite, zeros := 0, 0
	var prevX, prevV float64
	prevOK := false
	for i := 0; i < steps; i++ {
		x := lo + float64(i)*(hi-lo)/float64(steps-1)
		v, err := f(x)
		if err != nil {
			prevOK = false
			continue
		}
		finite++
		if v == 0 {
			zeros++
			add(x)
			prevOK = false
			continue
		}
		if prevOK && (prevV < 0) != (v < 0) {
			a, b, fa := prevX, x, prevV
			m := (a + b) / 2
			for iter := 0; iter < 64; iter++ {
				m = (a + b) / 2
				fm, err := f(m)
				if err != nil || fm == 0 {
					break
				}
				if (fa < 0) != (fm < 0) {
					b = m
				} else {
					a, fa = m, fm
				}
			}
			if fm, err := f(m); err == nil && math.Abs(fm) <= tol {
				add(m)
			}
		}
		prevX, prevV, prevOK = x, v, true
	}
	if finite > 0 && zeros == finite {
		return nil, true
	}
	return closestToZero(out, limit), false
}

// closestToZero keeps the limit roots of smallest magnitude, in ascending order
func closestToZero(roots []float64, limit int) []float64 {
	if limit <= 0 || len(roots) <= limit {
		return roots
	}
	sort.SliceStable(roots, func(i, j int) bool {
		return math.Abs(roots[i]) < math.Abs(roots[j])
	})
	roots = roots[:limit]
	sort.Float64s(roots)
	return roots
}
