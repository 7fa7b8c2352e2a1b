// Package normalize rewrites raw OCR text into a canonical expression
// string through an ordered table of regular-expression rules.
package normalize

import (
	"regexp"
	"strings"
)

// Rule is one rewrite step. Repeat rules are applied until the text stops
// changing, for patterns whose matches overlap (e.g. "3x4x5"). A rule with a
// Transform ignores Pattern and Replacement.
type Rule struct {
	Name        string
	Pattern     *regexp.Regexp
	Replacement string
	Repeat      bool
	Transform   func(string) string
}

// Apply runs the rule once (or to a fixed point for Repeat rules)
func (r Rule) Apply(s string) string {
	if r.Transform != nil {
		return r.Transform(s)
	}
	out := r.Pattern.ReplaceAllString(s, r.Replacement)
	if !r.Repeat {
		return out
	}
	for out != s {
		s = out
		out = r.Pattern.ReplaceAllString(s, r.Replacement)
	}
	return out
}

// Policy selects optional rules
type Policy struct {
	// EquationAware also maps T/t to "+" and Eq/eq to "=".
	EquationAware bool
	// SplitFunctionNames disables protection of sin, cos, log... so their
	// letters are rewritten like any other.
	SplitFunctionNames bool
}

// Step records the text after one rule ran
type Step struct {
	Rule string `json:"rule"`
	Text string `json:"text"`
}

// Normalizer applies a fixed rule table in order
type Normalizer struct {
	policy Policy
	rules  []Rule
}

// functionNames are kept intact when protection is on. Longer names first
// so "asin" is not consumed as "a" + "sin".
var functionNames = []string{"asin", "acos", "atan", "sqrt", "sin", "cos", "tan", "log", "exp", "abs", "ln", "pi"}

// placeholderBase is the first private-use rune standing in for a protected name
const placeholderBase = 0xE000

// ident matches a letter or a protected-name placeholder
const ident = `[a-zA-Z\x{E000}-\x{E0FF}]`

// New builds a normalizer for the given policy
func New(policy Policy) *Normalizer {
	n := &Normalizer{policy: policy}

	// whitespace goes first so "s in" is protected as "sin"
	n.rules = append(n.rules, Rule{Name: "strip whitespace", Pattern: regexp.MustCompile(`\s+`), Replacement: ""})

	if !policy.SplitFunctionNames {
		for i, name := range functionNames {
			n.rules = append(n.rules, Rule{
				Name:        "protect " + name,
				Pattern:     regexp.MustCompile(`(?i)` + name),
				Replacement: string(rune(placeholderBase + i)),
			})
		}
	}

	n.rules = append(n.rules,
		Rule{Name: "multiplication sign", Pattern: regexp.MustCompile(`[×·∙]`), Replacement: "*"},
		Rule{Name: "x between digits", Pattern: regexp.MustCompile(`(\d)[xX](\d)`), Replacement: "${1}*${2}", Repeat: true},
		Rule{Name: "division sign", Pattern: regexp.MustCompile(`÷`), Replacement: "/"},
		Rule{Name: "minus sign", Pattern: regexp.MustCompile(`[−–—]`), Replacement: "-"},
		Rule{Name: "digit before letter", Pattern: regexp.MustCompile(`(\d)(` + ident + `)`), Replacement: "${1}*${2}"},
		Rule{Name: "letter before digit", Pattern: regexp.MustCompile(`([a-zA-Z])(\d)`), Replacement: "${1}*${2}"},
		Rule{Name: "bare exponent", Pattern: regexp.MustCompile(`\^(\d+(?:\.\d+)?)`), Replacement: "^(${1})"},
		Rule{Name: "letter before paren", Pattern: regexp.MustCompile(`([a-zA-Z])\(`), Replacement: "${1}*("},
		Rule{Name: "paren before letter", Pattern: regexp.MustCompile(`\)(` + ident + `)`), Replacement: ")*${1}"},
		Rule{Name: "strip quotes and brackets", Pattern: regexp.MustCompile(`["'` + "`" + `\[\]{}]`), Replacement: ""},
		Rule{Name: "o to zero", Pattern: regexp.MustCompile(`[oO]`), Replacement: "0"},
		Rule{Name: "l to one", Pattern: regexp.MustCompile(`[lI]`), Replacement: "1"},
		Rule{Name: "S to five", Pattern: regexp.MustCompile(`S`), Replacement: "5"},
		Rule{Name: "B to eight", Pattern: regexp.MustCompile(`B`), Replacement: "8"},
		Rule{Name: "Z to two", Pattern: regexp.MustCompile(`Z`), Replacement: "2"},
	)

	// The earlier boundary rules may already have wrapped these letters in
	// multiplication markers; the operator replaces them.
	if policy.EquationAware {
		n.rules = append(n.rules,
			Rule{Name: "eq to equals", Pattern: regexp.MustCompile(`\*?[Ee]q\*?`), Replacement: "="},
			Rule{Name: "T to plus", Pattern: regexp.MustCompile(`\*?[Tt]\*?`), Replacement: "+"},
		)
	}

	if !policy.SplitFunctionNames {
		for i, name := range functionNames {
			n.rules = append(n.rules, Rule{
				Name:        "restore " + name,
				Pattern:     regexp.MustCompile(string(rune(placeholderBase + i))),
				Replacement: name,
			})
		}
	}

	n.rules = append(n.rules,
		Rule{Name: "lowercase", Transform: strings.ToLower},
		Rule{Name: "drop unknown characters", Pattern: regexp.MustCompile(`[^0-9a-z+\-*/^().=]`), Replacement: ""},
	)
	return n
}

// Default returns the normalizer for the default policy
func Default() *Normalizer {
	return New(Policy{})
}

// Rules returns the ordered rule table
func (n *Normalizer) Rules() []Rule {
	out := make([]Rule, len(n.rules))
	copy(out, n.rules)
	return out
}

// Normalize runs every rule in order. It never fails; unparseable garbage
// comes out as garbage over the allowed character set.
func (n *Normalizer) Normalize(raw string) string {
	s := raw
	for _, r := range n.rules {
		s = r.Apply(s)
	}
	return s
}

// Trace is Normalize with the intermediate text after every rule that
// changed it.
func (n *Normalizer) Trace(raw string) (string, []Step) {
	var steps []Step
	s := raw
	for _, r := range n.rules {
		next := r.Apply(s)
		if next != s {
			steps = append(steps, Step{Rule: r.Name, Text: placeholders.Replace(next)})
		}
		s = next
	}
	return s, steps
}

// placeholders shows protected names in traces
var placeholders = func() *strings.Replacer {
	var pairs []string
	for i, name := range functionNames {
		pairs = append(pairs, string(rune(placeholderBase+i)), name)
	}
	return strings.NewReplacer(pairs...)
}()
