// Package httpapi exposes the minimal HTTP boundary described as an
// external collaborator: POST /question-generation/analyse-code and
// POST /question-generation/generate-question.
//
// Grounded on pkg/schema/export.go (invopop/jsonschema.Reflector.Reflect
// for response schema export) and pkg/schema/validate.go (compile a
// schema document with santhosh-tekuri/jsonschema/v6's NewCompiler +
// AddResource + Compile, then Validate the decoded request body before
// it reaches domain code) — the same semantic/structural split the
// teacher applies to runbook validation, here applied to one request
// struct instead of three validation phases.
package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/invopop/jsonschema"
	sjsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/algotrace/tracequery/pkg/distractor"
	"github.com/algotrace/tracequery/pkg/lang/parser"
	"github.com/algotrace/tracequery/pkg/query"
	"github.com/algotrace/tracequery/pkg/querycompile"
	"github.com/algotrace/tracequery/pkg/questionspec"
	"github.com/algotrace/tracequery/pkg/questiontext"
	"github.com/algotrace/tracequery/pkg/staticanalyser"
	"github.com/algotrace/tracequery/pkg/stepdriver"
)

// AnalyseCodeRequest is the body of POST /question-generation/analyse-code.
type AnalyseCodeRequest struct {
	Code string `json:"code"`
}

// AnalyseCodeResponse is the static-analysis form schema a client uses to
// build a "pick a loop/function/branch/variable" question-spec form.
type AnalyseCodeResponse struct {
	Functions []ElementSummary `json:"functions"`
	Loops     []ElementSummary `json:"loops"`
	Branches  []ElementSummary `json:"branches"`
	Variables []string         `json:"variables"`
}

// ElementSummary is one selectable code element offered to the form.
type ElementSummary struct {
	Line       int      `json:"line"`
	Name       string   `json:"name,omitempty"`
	Parameters []string `json:"parameters,omitempty"`
	LoopType   string   `json:"loop_type,omitempty"`
	Condition  string   `json:"condition,omitempty"`
}

// AlgorithmInput carries the entry-function call and its keyword
// arguments, spliced into the traced program as
// "entry_function(**test_data)".
type AlgorithmInput struct {
	EntryFunction string         `json:"entry_function"`
	TestData      map[string]any `json:"test_data,omitempty"`
}

// GenerateQuestionRequest is the body of
// POST /question-generation/generate-question.
type GenerateQuestionRequest struct {
	Code           string                       `json:"code"`
	Target         []questionspec.TargetElement `json:"target"`
	OutputType     string                       `json:"output_type"`
	QuestionType   string                       `json:"question_type"`
	AlgorithmInput AlgorithmInput               `json:"algorithm_input"`
	NumDistractors int                          `json:"num_distractors,omitempty"`
}

// GenerateQuestionResponse is the rendered question plus its answer and,
// for mcq/mrq question types, the distractor options.
type GenerateQuestionResponse struct {
	Question       string `json:"question"`
	Answer         any    `json:"answer"`
	Options        []any  `json:"options,omitempty"`
	CorrectIndices []int  `json:"correct_indices,omitempty"`
}

// errorResponse is what every non-2xx handler response body looks like.
type errorResponse struct {
	Error string `json:"error"`
}

// Server holds the compiled request schema so it's built once, not on
// every request.
type Server struct {
	requestSchema *sjsonschema.Schema
}

// NewServer builds the generate-question request schema from
// GenerateQuestionRequest via reflection and compiles it, the same
// reflect-then-compile sequence pkg/schema uses for runbooks.
func NewServer() (*Server, error) {
	r := new(jsonschema.Reflector)
	r.DoNotReference = false
	s := r.Reflect(&GenerateQuestionRequest{})
	s.ID = "https://algotrace/schemas/generate-question-request.json"
	s.Title = "Generate Question Request"

	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("httpapi: marshal request schema: %w", err)
	}
	var schemaDoc any
	if err := json.Unmarshal(data, &schemaDoc); err != nil {
		return nil, fmt.Errorf("httpapi: unmarshal request schema: %w", err)
	}

	c := sjsonschema.NewCompiler()
	if err := c.AddResource("generate-question-request.json", schemaDoc); err != nil {
		return nil, fmt.Errorf("httpapi: add request schema resource: %w", err)
	}
	sch, err := c.Compile("generate-question-request.json")
	if err != nil {
		return nil, fmt.Errorf("httpapi: compile request schema: %w", err)
	}
	return &Server{requestSchema: sch}, nil
}

// RegisterRoutes wires both endpoints onto mux, the way pkg/serve
// registers one handler per JSON-RPC method, adapted for HTTP routes.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /question-generation/analyse-code", s.handleAnalyseCode)
	mux.HandleFunc("POST /question-generation/generate-question", s.handleGenerateQuestion)
}

func (s *Server) handleAnalyseCode(w http.ResponseWriter, r *http.Request) {
	var req AnalyseCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	code, err := unescapeCode(req.Code)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode code field: %w", err))
		return
	}

	prog, err := parser.Parse(code)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, &query.InvalidSourceError{Detail: err.Error()})
		return
	}

	analysis := staticanalyser.Analyse(prog)
	resp := AnalyseCodeResponse{
		Variables: sortedKeys(analysis.Variables()),
	}
	for _, fn := range analysis.Functions {
		resp.Functions = append(resp.Functions, ElementSummary{Line: fn.Line, Name: fn.Name, Parameters: fn.Parameters})
	}
	for _, loop := range analysis.Loops {
		resp.Loops = append(resp.Loops, ElementSummary{Line: loop.Line, LoopType: loop.LoopType})
	}
	for _, branch := range analysis.Branches {
		resp.Branches = append(resp.Branches, ElementSummary{Line: branch.Line, Condition: branch.Condition})
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGenerateQuestion(w http.ResponseWriter, r *http.Request) {
	var raw any
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if err := s.requestSchema.Validate(raw); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("request failed schema validation: %w", err))
		return
	}

	var req GenerateQuestionRequest
	reencoded, _ := json.Marshal(raw)
	if err := json.Unmarshal(reencoded, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	code, err := unescapeCode(req.Code)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode code field: %w", err))
		return
	}

	target := make([]querycompile.TargetElement, len(req.Target))
	for i, t := range req.Target {
		target[i] = t.Compile()
	}
	outputType := querycompile.OutputType(req.OutputType)

	run, err := stepdriver.Run(stepdriver.RunConfig{
		Source:        code,
		EntryFunction: req.AlgorithmInput.EntryFunction,
		TestData:      req.AlgorithmInput.TestData,
	})
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	gen := querycompile.NewGenerator(run.Context)
	q, err := gen.GenerateQuery(target, outputType)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	answerRows, err := q.Execute()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	question, err := questiontext.Generate(target, outputType, questiontext.QuestionType(req.QuestionType), req.AlgorithmInput.TestData)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	resp := GenerateQuestionResponse{Question: question}
	if len(answerRows) == 1 {
		resp.Answer = answerRows[0]
	} else {
		resp.Answer = answerRows
	}

	if req.QuestionType == "mcq" || req.QuestionType == "mrq" {
		genForDistractors := querycompile.NewGenerator(run.Context)
		opts := distractor.Generate(answerRows, target, outputType, genForDistractors, req.NumDistractors)

		// correct answer goes first; a client is free to shuffle its own
		// rendering order, it only needs to know which index(es) are right.
		options := make([]any, 0, len(opts)+1)
		options = append(options, resp.Answer)
		for _, o := range opts {
			options = append(options, o.Value)
		}
		resp.Options = options
		resp.CorrectIndices = []int{0}
	}

	writeJSON(w, http.StatusOK, resp)
}

// unescapeCode reverses the extra layer of backslash-escaping the code
// field arrives with, e.g. a caller that JSON-encoded already-escaped
// source text. strconv.Unquote expects a quoted Go string literal, so the
// field is wrapped in quotes first; unescapable text (genuinely plain
// source with literal backslashes) is returned unchanged.
func unescapeCode(code string) (string, error) {
	if !strings.Contains(code, "\\") {
		return code, nil
	}
	unquoted, err := strconv.Unquote(`"` + strings.ReplaceAll(code, `"`, `\"`) + `"`)
	if err != nil {
		return code, nil
	}
	return unquoted, nil
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
