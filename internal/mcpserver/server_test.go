package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/inkmath/equation-solver/internal/models"
)

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want TextContent", res.Content[0])
	}
	return text.Text
}

func TestNormalizeText(t *testing.T) {
	s := New(models.DefaultConfig())

	res, err := s.NormalizeText(context.Background(), mcp.CallToolRequest{}, NormalizeTextRequest{Text: "2x + 3 = 7"})
	if err != nil {
		t.Fatal(err)
	}
	if got := resultText(t, res); got != "2*x+3=7" {
		t.Errorf("normalized = %q", got)
	}

	res, err = s.NormalizeText(context.Background(), mcp.CallToolRequest{}, NormalizeTextRequest{Text: "3x", Trace: true})
	if err != nil {
		t.Fatal(err)
	}
	var traced models.NormalizeResponse
	if err := json.Unmarshal([]byte(resultText(t, res)), &traced); err != nil {
		t.Fatal(err)
	}
	if traced.Normalized != "3*x" || len(traced.Steps) == 0 {
		t.Errorf("trace = %+v", traced)
	}
}

func TestSolveExpression(t *testing.T) {
	s := New(models.DefaultConfig())

	res, err := s.SolveExpression(context.Background(), mcp.CallToolRequest{}, SolveExpressionRequest{Expression: "x^2 = 9", Normalize: true})
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}
	var resp models.EvaluateResponse
	if err := json.Unmarshal([]byte(resultText(t, res)), &resp); err != nil {
		t.Fatal(err)
	}
	if got := resp.Result.String(); got != "x = -3 or 3" {
		t.Errorf("result = %q", got)
	}

	res, _ = s.SolveExpression(context.Background(), mcp.CallToolRequest{}, SolveExpressionRequest{Expression: "1/0"})
	if !res.IsError || !strings.Contains(resultText(t, res), "division by zero") {
		t.Errorf("division by zero result = %+v", res)
	}

	res, _ = s.SolveExpression(context.Background(), mcp.CallToolRequest{}, SolveExpressionRequest{Expression: " "})
	if !res.IsError {
		t.Error("empty expression should be a tool error")
	}
}

func TestRenderLatex(t *testing.T) {
	s := New(models.DefaultConfig())

	res, _ := s.RenderLatex(context.Background(), mcp.CallToolRequest{}, RenderLatexRequest{Tex: `\frac{1}{2}`})
	if got := resultText(t, res); !strings.Contains(got, "math-display") {
		t.Errorf("markup = %q", got)
	}

	res, _ = s.RenderLatex(context.Background(), mcp.CallToolRequest{}, RenderLatexRequest{Tex: `\frac{1}{2`})
	if got := resultText(t, res); got == "" || strings.Contains(got, "math-display") {
		t.Errorf("malformed markup = %q", got)
	}
}
