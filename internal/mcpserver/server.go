// Package mcpserver exposes the text stages of the pipeline as MCP tools.
package mcpserver

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/inkmath/equation-solver/internal/models"
	"github.com/inkmath/equation-solver/internal/normalize"
	"github.com/inkmath/equation-solver/internal/solver"
	"github.com/inkmath/equation-solver/internal/typeset"
)

// Version is reported to MCP clients
const Version = "v1.0.0"

// Server holds the MCP server and the stages its tools call
type Server struct {
	McpServer  *server.MCPServer
	normalizer *normalize.Normalizer
	solver     *solver.Solver
	typesetter *typeset.Adapter
}

// Request types for MCP tools
type NormalizeTextRequest struct {
	Text  string `json:"text"`
	Trace bool   `json:"trace,omitempty"`
}

type SolveExpressionRequest struct {
	Expression string `json:"expression"`
	Normalize  bool   `json:"normalize,omitempty"`
}

type RenderLatexRequest struct {
	Tex    string `json:"tex"`
	Inline bool   `json:"inline,omitempty"`
}

// New creates the server and registers its tools
func New(cfg *models.Config) *Server {
	s := &Server{
		normalizer: normalize.New(normalize.Policy{
			EquationAware:      cfg.Normalize.EquationAware,
			SplitFunctionNames: cfg.Normalize.SplitFunctionNames,
		}),
		solver:     solver.New(cfg.Solver),
		typesetter: typeset.NewAdapter(nil),
	}
	s.McpServer = server.NewMCPServer("equation-solver", Version,
		server.WithToolCapabilities(true))
	s.addTools()
	return s
}

func (s *Server) addTools() {
	normalizeTool := mcp.NewTool(
		"normalize_text",
		mcp.WithDescription("Rewrite raw OCR text of a handwritten expression into a solvable expression"),
		mcp.WithString("text", mcp.Description("Raw recognized text, e.g. '2x + 3 = 7'"), mcp.Required()),
		mcp.WithBoolean("trace", mcp.Description("Also return the text after every rewrite rule")),
	)
	s.McpServer.AddTool(normalizeTool, mcp.NewTypedToolHandler(s.NormalizeText))

	solveTool := mcp.NewTool(
		"solve_expression",
		mcp.WithDescription("Evaluate an arithmetic expression or solve a single-variable equation"),
		mcp.WithString("expression", mcp.Description("Expression over 0-9 a-z + - * / ^ ( ) . ="), mcp.Required()),
		mcp.WithBoolean("normalize", mcp.Description("Normalize the expression first")),
	)
	s.McpServer.AddTool(solveTool, mcp.NewTypedToolHandler(s.SolveExpression))

	renderTool := mcp.NewTool(
		"render_latex",
		mcp.WithDescription("Render LaTeX as display markup; malformed input comes back as escaped raw text"),
		mcp.WithString("tex", mcp.Description("LaTeX source"), mcp.Required()),
		mcp.WithBoolean("inline", mcp.Description("Inline instead of display mode")),
	)
	s.McpServer.AddTool(renderTool, mcp.NewTypedToolHandler(s.RenderLatex))
}

// NormalizeText handles normalize_text
func (s *Server) NormalizeText(ctx context.Context, request mcp.CallToolRequest, params NormalizeTextRequest) (*mcp.CallToolResult, error) {
	if !params.Trace {
		return mcp.NewToolResultText(s.normalizer.Normalize(params.Text)), nil
	}
	normalized, steps := s.normalizer.Trace(params.Text)
	resp := models.NormalizeResponse{Input: params.Text, Normalized: normalized}
	for _, st := range steps {
		resp.Steps = append(resp.Steps, models.NormalizeStep{Rule: st.Rule, Text: st.Text})
	}
	return jsonResult(resp)
}

// SolveExpression handles solve_expression. Solver failures are tool
// errors carrying the failure kind and message.
func (s *Server) SolveExpression(ctx context.Context, request mcp.CallToolRequest, params SolveExpressionRequest) (*mcp.CallToolResult, error) {
	expr := params.Expression
	if params.Normalize {
		expr = s.normalizer.Normalize(expr)
	}
	if strings.TrimSpace(expr) == "" {
		return mcp.NewToolResultError("expression is required"), nil
	}

	result := s.solver.Solve(expr)
	if result.Failure != nil {
		return mcp.NewToolResultError(result.Failure.Error()), nil
	}

	resp := models.EvaluateResponse{
		Success:    true,
		Input:      params.Expression,
		Expression: expr,
		Result:     result,
		Solution:   typeset.ResultTeX(result),
	}
	if tex, err := solver.TeX(expr); err == nil {
		resp.TeX = tex
	}
	return jsonResult(resp)
}

// RenderLatex handles render_latex
func (s *Server) RenderLatex(ctx context.Context, request mcp.CallToolRequest, params RenderLatexRequest) (*mcp.CallToolResult, error) {
	adapter := s.typesetter
	if params.Inline {
		adapter = adapter.WithOptions(typeset.Options{DisplayMode: false, ErrorTolerant: true})
	}
	return mcp.NewToolResultText(adapter.ToDisplayMarkup(params.Tex)), nil
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}
