// Package mcpserver exposes the question-generation pipeline as MCP tools
// for AI agents, so a model can analyse source, run an algorithm, and
// receive a generated exam question without going through the HTTP API.
//
// Grounded on pkg/ecosystem/mcp/{server.go,handlers.go}: the same
// mcp.NewTool/mcp.WithDescription/mcp.WithString tool-registration shape
// and CallToolResult/errorResult/textResult handler pattern, adapted from
// runbook validate/exec/test/schema verbs to analyse-code/
// generate-question verbs.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/algotrace/tracequery/pkg/lang/parser"
	"github.com/algotrace/tracequery/pkg/querycompile"
	"github.com/algotrace/tracequery/pkg/questionspec"
	"github.com/algotrace/tracequery/pkg/questiontext"
	"github.com/algotrace/tracequery/pkg/staticanalyser"
	"github.com/algotrace/tracequery/pkg/stepdriver"
)

// NewServer builds an MCP server exposing the analyse-code and
// generate-question tools under the "examgen" namespace.
func NewServer(version string) *server.MCPServer {
	s := server.NewMCPServer(
		"examgen",
		version,
		server.WithToolCapabilities(true),
	)

	s.AddTool(
		mcp.NewTool("examgen/analyse-code",
			mcp.WithDescription("Parse a source snippet and list its functions, loops, branches and variables"),
			mcp.WithString("code", mcp.Required(), mcp.Description("Source code to analyse")),
		),
		handleAnalyseCode,
	)

	s.AddTool(
		mcp.NewTool("examgen/generate-question",
			mcp.WithDescription("Run a traced algorithm and generate an exam question from a captured execution"),
			mcp.WithString("code", mcp.Required(), mcp.Description("Source code defining the traced algorithm")),
			mcp.WithString("entry_function", mcp.Required(), mcp.Description("Name of the function to run")),
			mcp.WithString("target", mcp.Required(), mcp.Description("JSON-encoded target element chain, e.g. [{\"type\":\"loop\"}]")),
			mcp.WithString("output_type", mcp.Required(), mcp.Description("count | list | first | last")),
			mcp.WithString("question_type", mcp.Description("mcq | mrq | written (default written)")),
			mcp.WithString("test_data", mcp.Description("JSON-encoded map of argument name to value for the entry function")),
		),
		handleGenerateQuestion,
	)

	return s
}

func handleAnalyseCode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	code, _ := args["code"].(string)
	if code == "" {
		return errorResult("code argument is required"), nil
	}

	prog, err := parser.Parse(code)
	if err != nil {
		return errorResult(fmt.Sprintf("parse error: %s", err)), nil
	}
	analysis := staticanalyser.Analyse(prog)

	summary := map[string]any{
		"functions": len(analysis.Functions),
		"loops":     len(analysis.Loops),
		"branches":  len(analysis.Branches),
		"variables": analysis.Variables(),
	}
	data, _ := json.MarshalIndent(summary, "", "  ")
	return textResult(string(data)), nil
}

func handleGenerateQuestion(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	code, _ := args["code"].(string)
	entryFunction, _ := args["entry_function"].(string)
	targetRaw, _ := args["target"].(string)
	outputType, _ := args["output_type"].(string)
	questionType, _ := args["question_type"].(string)
	testDataRaw, _ := args["test_data"].(string)

	if code == "" || entryFunction == "" || targetRaw == "" || outputType == "" {
		return errorResult("code, entry_function, target and output_type are all required"), nil
	}

	var targetSpecs []questionspec.TargetElement
	if err := json.Unmarshal([]byte(targetRaw), &targetSpecs); err != nil {
		return errorResult(fmt.Sprintf("invalid target JSON: %s", err)), nil
	}

	testData := map[string]any{}
	if testDataRaw != "" {
		if err := json.Unmarshal([]byte(testDataRaw), &testData); err != nil {
			return errorResult(fmt.Sprintf("invalid test_data JSON: %s", err)), nil
		}
	}

	run, err := stepdriver.Run(stepdriver.RunConfig{
		Source:        code,
		EntryFunction: entryFunction,
		TestData:      testData,
	})
	if err != nil {
		return errorResult(fmt.Sprintf("running algorithm: %s", err)), nil
	}

	target := make([]querycompile.TargetElement, len(targetSpecs))
	for i, t := range targetSpecs {
		target[i] = t.Compile()
	}

	outType := querycompile.OutputType(outputType)
	generator := querycompile.NewGenerator(run.Context)
	q, err := generator.GenerateQuery(target, outType)
	if err != nil {
		return errorResult(fmt.Sprintf("compiling query: %s", err)), nil
	}
	rows, err := q.Execute()
	if err != nil {
		return errorResult(fmt.Sprintf("executing query: %s", err)), nil
	}

	qt := questiontext.QuestionWritten
	if questionType != "" {
		qt = questiontext.QuestionType(questionType)
	}
	text, err := questiontext.Generate(target, outType, qt, testData)
	if err != nil {
		return errorResult(fmt.Sprintf("rendering question text: %s", err)), nil
	}

	response := map[string]any{
		"question": text,
		"answer":   rows,
	}
	data, _ := json.MarshalIndent(response, "", "  ")
	return textResult(string(data)), nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(text)},
	}
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(msg)},
		IsError: true,
	}
}
