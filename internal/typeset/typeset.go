// Package typeset turns LaTeX into display markup. Rendering never fails
// from the caller's point of view: anything the backend rejects is shown
// as raw text.
package typeset

import (
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "typeset")

// Options controls a single render
type Options struct {
	DisplayMode   bool
	ErrorTolerant bool
}

// Renderer is a pure, synchronous LaTeX backend
type Renderer interface {
	Render(tex string, opts Options) (string, error)
}

// ErrMalformed reports LaTeX the renderer cannot lay out
var ErrMalformed = errors.New("malformed latex")

// HTMLRenderer validates LaTeX structure and wraps it in markup that the
// browser-side KaTeX auto-render picks up.
type HTMLRenderer struct{}

// Render implements Renderer
func (HTMLRenderer) Render(tex string, opts Options) (string, error) {
	if err := Validate(tex); err != nil {
		if !opts.ErrorTolerant {
			return "", err
		}
		return fmt.Sprintf(`<span class="math-error" title="%s">%s</span>`,
			html.EscapeString(err.Error()), html.EscapeString(tex)), nil
	}
	if opts.DisplayMode {
		return `<div class="math math-display">\[` + html.EscapeString(tex) + `\]</div>`, nil
	}
	return `<span class="math math-inline">\(` + html.EscapeString(tex) + `\)</span>`, nil
}

// Validate checks brace and \left/\right balance
func Validate(tex string) error {
	depth := 0
	for i := 0; i < len(tex); i++ {
		switch tex[i] {
		case '\\':
			i++ // skip the escaped character
		case '{':
			depth++
		case '}':
			depth--
			if depth < 0 {
				return fmt.Errorf("%w: unexpected '}' at %d", ErrMalformed, i)
			}
		}
	}
	if depth != 0 {
		return fmt.Errorf("%w: %d unclosed '{'", ErrMalformed, depth)
	}
	if l, r := strings.Count(tex, `\left`), strings.Count(tex, `\right`); l != r {
		return fmt.Errorf("%w: %d \\left but %d \\right", ErrMalformed, l, r)
	}
	return nil
}

// Adapter renders LaTeX for display with a raw-text fallback
type Adapter struct {
	renderer Renderer
	opts     Options
}

// NewAdapter wraps a renderer; a nil renderer uses HTMLRenderer
func NewAdapter(r Renderer) *Adapter {
	if r == nil {
		r = HTMLRenderer{}
	}
	return &Adapter{
		renderer: r,
		opts:     Options{DisplayMode: true, ErrorTolerant: true},
	}
}

// WithOptions returns a copy of the adapter using opts
func (a *Adapter) WithOptions(opts Options) *Adapter {
	c := *a
	c.opts = opts
	return &c
}

// ToDisplayMarkup renders tex; on any renderer error or panic it returns
// the input, escaped and unrendered. Non-empty input never yields empty
// output.
func (a *Adapter) ToDisplayMarkup(tex string) (markup string) {
	defer func() {
		if r := recover(); r != nil {
			log.WithField("tex", tex).Warnf("renderer panic: %v", r)
			markup = raw(tex)
		}
	}()

	out, err := a.renderer.Render(tex, a.opts)
	if err != nil {
		log.WithError(err).WithField("tex", tex).Debug("falling back to raw text")
		return raw(tex)
	}
	if out == "" && tex != "" {
		return raw(tex)
	}
	return out
}

func raw(tex string) string {
	return `<span class="math-raw">` + html.EscapeString(tex) + `</span>`
}
