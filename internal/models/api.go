package models

// CreateSessionRequest selects the pipeline of a new drawing session
type CreateSessionRequest struct {
	Backend  string `json:"backend,omitempty"`
	Strategy string `json:"strategy,omitempty"`
}

// NormalizeRequest carries raw recognizer text
type NormalizeRequest struct {
	Text string `json:"text"`
}

// NormalizeStep is the text after one rewrite rule
type NormalizeStep struct {
	Rule string `json:"rule"`
	Text string `json:"text"`
}

// NormalizeResponse is the normalized text and how it got there
type NormalizeResponse struct {
	Input      string          `json:"input"`
	Normalized string          `json:"normalized"`
	Steps      []NormalizeStep `json:"steps,omitempty"`
}

// EvaluateRequest asks to solve a typed expression
type EvaluateRequest struct {
	Expression string `json:"expression"`
	Normalize  bool   `json:"normalize"` // run the normalizer first
}

// EvaluateResponse is the solver outcome with its presentation
type EvaluateResponse struct {
	Success    bool        `json:"success"`
	Input      string      `json:"input"`
	Expression string      `json:"expression"`
	TeX        string      `json:"tex,omitempty"`
	Result     SolveResult `json:"result"`
	Solution   string      `json:"solution,omitempty"`
	Markup     string      `json:"markup,omitempty"`
	Duration   float64     `json:"duration"`
}

// RenderRequest asks for display markup of a LaTeX string
type RenderRequest struct {
	TeX    string `json:"tex"`
	Inline bool   `json:"inline,omitempty"`
}

// RenderResponse is the rendered markup
type RenderResponse struct {
	Markup string `json:"markup"`
}
