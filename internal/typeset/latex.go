package typeset

import (
	"strings"

	"github.com/inkmath/equation-solver/internal/models"
	"github.com/inkmath/equation-solver/internal/solver"
)

// ResultTeX renders a solve result as LaTeX. Failures have no math form
// and render as an empty string.
func ResultTeX(r models.SolveResult) string {
	switch r.Kind {
	case models.ResultValue:
		return exprTeX(r.Display)
	case models.ResultAssignment:
		roots := make([]string, len(r.Roots))
		for i, root := range r.Roots {
			roots[i] = exprTeX(root)
		}
		return r.Variable + " = " + strings.Join(roots, ` \;\text{or}\; `)
	}
	return ""
}

// exprTeX renders a root or value in expression syntax, falling back to
// the text itself when it does not parse
func exprTeX(s string) string {
	compact := strings.ReplaceAll(s, " ", "")
	tex, err := solver.TeX(compact)
	if err != nil {
		return s
	}
	return tex
}
