// Package mcp exposes the investigation loop as MCP tools, so an agent can
// drive a session: capture an error, pull ranked hypotheses, submit test
// evidence, report fix outcomes, and fetch the final report.
package mcp

import (
	"context"
	"fmt"
	"sync"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"sleuth/adapters/store"
	"sleuth/internal/capture"
	"sleuth/internal/format"
	"sleuth/internal/logging"
	"sleuth/internal/session"
)

// DefaultSessionTTL closes a session abandoned by its agent.
var DefaultSessionTTL = 30 * time.Minute

// Server wraps the MCP SDK server and manages one investigation session at a
// time. The agent on the other end runs tests and applies fixes; the server
// owns all session state.
type Server struct {
	MCPServer *sdkmcp.Server
	Store     store.Store

	// SessionTTL bounds agent inactivity before a session is closed as
	// blocked. Set before the first start_investigation call.
	SessionTTL time.Duration

	mu      sync.Mutex
	session *Session
}

// NewServer creates an MCP server backed by the given store (nil gets an
// in-memory store).
func NewServer(st store.Store) *Server {
	if st == nil {
		st = store.NewMemStore()
	}
	s := &Server{Store: st, SessionTTL: DefaultSessionTTL}
	s.MCPServer = sdkmcp.NewServer(
		&sdkmcp.Implementation{Name: "sleuth", Version: "dev"},
		nil,
	)
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "start_investigation",
		Description: "Capture an error, extract its templates, seed ranked hypotheses, and return prior sessions with the same error shape.",
	}, s.handleStartInvestigation)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "get_next_hypothesis",
		Description: "Get the hypothesis to test now. Returns done=true when the session reached a terminal status.",
	}, s.handleGetNextHypothesis)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "submit_test_result",
		Description: "Submit an executed test with its evidence. The evidence tier is derived from each source kind; the hypothesis status follows the strongest tier.",
	}, s.handleSubmitTestResult)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "submit_fix_outcome",
		Description: "Report the fix applied for the confirmed hypothesis and the re-verification outcome (pass, partial, fail).",
	}, s.handleSubmitFixOutcome)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "get_report",
		Description: "Get the session report: templates, hypotheses with evidence, tests, and the phase timeline.",
	}, s.handleGetReport)
}

// --- Tool input/output types ---

type startInvestigationInput struct {
	ErrorText  string            `json:"error_text" jsonschema:"the raw error output to investigate"`
	StackTrace string            `json:"stack_trace,omitempty" jsonschema:"stack trace if separate from the error text"`
	ExitCode   int               `json:"exit_code,omitempty" jsonschema:"process exit code"`
	Command    string            `json:"command,omitempty" jsonschema:"command that produced the failure"`
	Env        map[string]string `json:"env,omitempty" jsonschema:"environment snapshot; credential-shaped entries are dropped at capture"`
	Force      bool              `json:"force,omitempty" jsonschema:"cancel any existing session and start fresh"`
}

type templateOutput struct {
	Text        string `json:"text"`
	Fingerprint string `json:"fingerprint"`
	Ambiguous   bool   `json:"ambiguous,omitempty"`
}

type hypothesisOutput struct {
	ID                 string `json:"id"`
	Description        string `json:"description"`
	Category           string `json:"category"`
	Likelihood         string `json:"likelihood"`
	Status             string `json:"status"`
	NeedsDiscriminator bool   `json:"needs_discriminator,omitempty"`
}

type recalledOutput struct {
	SessionID string `json:"session_id"`
	Terminal  string `json:"terminal"`
	ErrorHead string `json:"error_head"`
	ClosedAt  string `json:"closed_at,omitempty"`
}

type startInvestigationOutput struct {
	SessionID  string             `json:"session_id"`
	Phase      string             `json:"phase"`
	Templates  []templateOutput   `json:"templates"`
	Hypotheses []hypothesisOutput `json:"hypotheses"`
	Recalled   []recalledOutput   `json:"recalled,omitempty"`
}

type getNextHypothesisInput struct {
	SessionID string `json:"session_id" jsonschema:"session ID from start_investigation"`
}

type getNextHypothesisOutput struct {
	Done       bool              `json:"done"`
	Terminal   string            `json:"terminal,omitempty"`
	Hypothesis *hypothesisOutput `json:"hypothesis,omitempty"`
}

type submitTestResultInput struct {
	SessionID    string          `json:"session_id" jsonschema:"session ID from start_investigation"`
	HypothesisID string          `json:"hypothesis_id" jsonschema:"hypothesis the test targeted"`
	Procedure    string          `json:"procedure" jsonschema:"what was executed"`
	Expected     string          `json:"expected,omitempty" jsonschema:"outcome predicted if the hypothesis is true"`
	Actual       string          `json:"actual" jsonschema:"what actually happened"`
	Evidence     []EvidenceInput `json:"evidence" jsonschema:"derived evidence; source_kind one of direct-execution, official-doc, working-example, issue-report, speculation"`
}

type submitTestResultOutput struct {
	Status             string `json:"status"`
	NeedsDiscriminator bool   `json:"needs_discriminator,omitempty"`
}

type submitFixOutcomeInput struct {
	SessionID    string `json:"session_id" jsonschema:"session ID from start_investigation"`
	HypothesisID string `json:"hypothesis_id" jsonschema:"the confirmed hypothesis the fix addresses"`
	FixRef       string `json:"fix_ref" jsonschema:"reference describing the applied fix"`
	Outcome      string `json:"outcome" jsonschema:"verification outcome: pass, partial, or fail"`
	Detail       string `json:"detail,omitempty" jsonschema:"free-form verification detail"`
}

type submitFixOutcomeOutput struct {
	Terminal string `json:"terminal,omitempty"`
	Phase    string `json:"phase"`
}

type getReportInput struct {
	SessionID string `json:"session_id" jsonschema:"session ID from start_investigation"`
}

type getReportOutput struct {
	Report   string          `json:"report"`
	Record   *session.Report `json:"record"`
	Terminal string          `json:"terminal,omitempty"`
}

// --- Tool handlers ---

func (s *Server) handleStartInvestigation(ctx context.Context, _ *sdkmcp.CallToolRequest, input startInvestigationInput) (*sdkmcp.CallToolResult, startInvestigationOutput, error) {
	logger := logging.New("mcp")
	if input.ErrorText == "" {
		return nil, startInvestigationOutput{}, fmt.Errorf("error_text is required")
	}

	s.mu.Lock()
	if s.session != nil {
		if s.session.Terminal() == "" && !input.Force {
			id := s.session.ID
			s.mu.Unlock()
			return nil, startInvestigationOutput{}, fmt.Errorf("an investigation is already running (id=%s); pass force to replace it", id)
		}
		logger.Info("replacing session", "old_id", s.session.ID)
		s.session.Cancel()
		s.session = nil
	}
	s.mu.Unlock()

	sess, err := NewSession(capture.ErrorReport{
		RawText:    input.ErrorText,
		StackTrace: input.StackTrace,
		ExitCode:   input.ExitCode,
		Command:    input.Command,
	}, input.Env, s.Store)
	if err != nil {
		return nil, startInvestigationOutput{}, fmt.Errorf("start investigation: %w", err)
	}
	sess.SetTTL(s.SessionTTL)

	s.mu.Lock()
	s.session = sess
	s.mu.Unlock()

	rec := sess.Snapshot()
	out := startInvestigationOutput{
		SessionID: sess.ID,
		Phase:     string(session.PhaseHypothesisTesting),
	}
	for _, tmpl := range rec.Templates {
		out.Templates = append(out.Templates, templateOutput{
			Text:        tmpl.Text,
			Fingerprint: tmpl.Fingerprint,
			Ambiguous:   tmpl.Ambiguous,
		})
	}
	for _, h := range rec.Hypotheses {
		out.Hypotheses = append(out.Hypotheses, hypothesisOutput{
			ID:          h.ID,
			Description: h.Description,
			Category:    string(h.Category),
			Likelihood:  string(h.Likelihood),
			Status:      string(h.Status),
		})
	}
	out.Recalled = s.recall(rec, sess.ID)
	return nil, out, nil
}

// recall surfaces prior sessions sharing any template fingerprint; a
// resolved one hands the agent the likely cause before any test runs.
func (s *Server) recall(rec *session.Report, selfID string) []recalledOutput {
	var out []recalledOutput
	seen := map[string]bool{selfID: true}
	for _, tmpl := range rec.Templates {
		sums, err := s.Store.Recall(tmpl.Fingerprint)
		if err != nil {
			logging.New("mcp").Warn("recall failed", "fingerprint", tmpl.Fingerprint, "error", err)
			continue
		}
		for _, sum := range sums {
			if seen[sum.ID] {
				continue
			}
			seen[sum.ID] = true
			out = append(out, recalledOutput{
				SessionID: sum.ID,
				Terminal:  sum.Terminal,
				ErrorHead: sum.ErrorHead,
				ClosedAt:  sum.ClosedAt,
			})
		}
	}
	return out
}

func (s *Server) handleGetNextHypothesis(_ context.Context, _ *sdkmcp.CallToolRequest, input getNextHypothesisInput) (*sdkmcp.CallToolResult, getNextHypothesisOutput, error) {
	sess, err := s.getSession(input.SessionID)
	if err != nil {
		return nil, getNextHypothesisOutput{}, err
	}

	h, done, err := sess.NextHypothesis()
	if err != nil {
		return nil, getNextHypothesisOutput{}, fmt.Errorf("get_next_hypothesis: %w", err)
	}
	out := getNextHypothesisOutput{Done: done, Terminal: string(sess.Terminal())}
	if h != nil {
		out.Hypothesis = &hypothesisOutput{
			ID:                 h.ID,
			Description:        h.Description,
			Category:           string(h.Category),
			Likelihood:         string(h.Likelihood),
			Status:             string(h.Status),
			NeedsDiscriminator: h.NeedsDiscriminator,
		}
	}
	return nil, out, nil
}

func (s *Server) handleSubmitTestResult(_ context.Context, _ *sdkmcp.CallToolRequest, input submitTestResultInput) (*sdkmcp.CallToolResult, submitTestResultOutput, error) {
	sess, err := s.getSession(input.SessionID)
	if err != nil {
		return nil, submitTestResultOutput{}, err
	}
	if input.HypothesisID == "" {
		return nil, submitTestResultOutput{}, fmt.Errorf("hypothesis_id is required")
	}
	if len(input.Evidence) == 0 {
		return nil, submitTestResultOutput{}, fmt.Errorf("at least one evidence entry is required")
	}

	h, err := sess.SubmitTestResult(input.HypothesisID, input.Procedure, input.Expected, input.Actual, input.Evidence)
	if err != nil {
		return nil, submitTestResultOutput{}, fmt.Errorf("submit_test_result: %w", err)
	}
	return nil, submitTestResultOutput{
		Status:             string(h.Status),
		NeedsDiscriminator: h.NeedsDiscriminator,
	}, nil
}

func (s *Server) handleSubmitFixOutcome(_ context.Context, _ *sdkmcp.CallToolRequest, input submitFixOutcomeInput) (*sdkmcp.CallToolResult, submitFixOutcomeOutput, error) {
	sess, err := s.getSession(input.SessionID)
	if err != nil {
		return nil, submitFixOutcomeOutput{}, err
	}

	terminal, err := sess.SubmitFixOutcome(input.HypothesisID, input.FixRef, input.Outcome, input.Detail)
	if err != nil {
		return nil, submitFixOutcomeOutput{}, fmt.Errorf("submit_fix_outcome: %w", err)
	}
	rec := sess.Snapshot()
	return nil, submitFixOutcomeOutput{
		Terminal: string(terminal),
		Phase:    string(rec.Timeline[len(rec.Timeline)-1].To),
	}, nil
}

func (s *Server) handleGetReport(_ context.Context, _ *sdkmcp.CallToolRequest, input getReportInput) (*sdkmcp.CallToolResult, getReportOutput, error) {
	sess, err := s.getSession(input.SessionID)
	if err != nil {
		return nil, getReportOutput{}, err
	}

	rec := sess.Snapshot()
	return nil, getReportOutput{
		Report:   format.RenderReport(format.Markdown, rec),
		Record:   rec,
		Terminal: string(rec.Terminal),
	}, nil
}

// SessionID returns the current session's ID, or empty string if none.
func (s *Server) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != nil {
		return s.session.ID
	}
	return ""
}

// Shutdown cancels any active session watchdog.
func (s *Server) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != nil {
		s.session.Cancel()
		s.session = nil
	}
}

func (s *Server) getSession(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return nil, fmt.Errorf("no active session (call start_investigation first)")
	}
	if s.session.ID != id {
		return nil, fmt.Errorf("session_id mismatch: have %s, got %s", s.session.ID, id)
	}
	return s.session, nil
}
