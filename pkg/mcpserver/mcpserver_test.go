package mcpserver

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

func TestHandleAnalyseCode_MissingCode(t *testing.T) {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{}

	result, err := handleAnalyseCode(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsError {
		t.Error("expected error for missing code")
	}
}

func TestHandleAnalyseCode_ReturnsCounts(t *testing.T) {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{"code": "def f(n):\n    for i in range(n):\n        x = i\n"}

	result, err := handleAnalyseCode(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if result.IsError {
		t.Errorf("unexpected error result")
	}
	if len(result.Content) == 0 {
		t.Fatal("expected content")
	}
}

func TestHandleAnalyseCode_ParseErrorReported(t *testing.T) {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{"code": "func f(n) {"}

	result, err := handleAnalyseCode(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsError {
		t.Error("expected an error result for unparseable source")
	}
}

func TestHandleGenerateQuestion_MissingRequiredArgs(t *testing.T) {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{"code": "func f(n) { return n }"}

	result, err := handleGenerateQuestion(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsError {
		t.Error("expected error when entry_function/target/output_type are missing")
	}
}

func TestHandleGenerateQuestion_InvalidTargetJSON(t *testing.T) {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{
		"code":           "func f(n) { return n }",
		"entry_function": "f",
		"target":         "not json",
		"output_type":    "count",
	}

	result, err := handleGenerateQuestion(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsError {
		t.Error("expected error for malformed target JSON")
	}
}

func TestHandleGenerateQuestion_LoopCountEndToEnd(t *testing.T) {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{
		"code": "def f(n):\n    total = 0\n    for i in range(n):\n        total = total + i\n    return total\n",
		"entry_function": "f",
		"target":         `[{"type":"loop"}]`,
		"output_type":    "count",
		"test_data":      `{"n": 3}`,
	}

	result, err := handleGenerateQuestion(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result, content: %+v", result.Content)
	}
	if len(result.Content) == 0 {
		t.Fatal("expected content")
	}
}
