package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"sleuth/adapters/docfetch"
	"sleuth/adapters/store"
	"sleuth/internal/capture"
	"sleuth/internal/format"
	"sleuth/internal/hypothesis"
	"sleuth/internal/logging"
	"sleuth/internal/orchestrate"
	"sleuth/internal/research"
	"sleuth/internal/session"
)

var investigateFlags struct {
	capturePath string
	scriptPath  string
	dbPath      string
	docsURL     string
	markdown    bool
}

var investigateCmd = &cobra.Command{
	Use:   "investigate",
	Short: "Run a full diagnosis over a captured error (scripted replay)",
	Long: `Drives the escalation state machine over a captured error without an
interactive agent. Test outcomes, fix effects and verification results come
from a replay script, so a recorded incident can be re-diagnosed
deterministically. The finished report is persisted and printed.

For live, agent-driven investigations use 'sleuth serve' instead.`,
	RunE: runInvestigate,
}

func init() {
	f := investigateCmd.Flags()
	f.StringVarP(&investigateFlags.capturePath, "capture", "c", "", "JSON file with the captured error (required)")
	f.StringVarP(&investigateFlags.scriptPath, "script", "s", "", "YAML replay script with test and verify outcomes (required)")
	f.StringVar(&investigateFlags.dbPath, "db", store.DefaultDBPath, "Path to the session database")
	f.StringVar(&investigateFlags.docsURL, "docs-url", "", "Documentation search URL with one %s placeholder; enables browser-backed research")
	f.BoolVar(&investigateFlags.markdown, "markdown", false, "Render the report as Markdown tables")

	_ = investigateCmd.MarkFlagRequired("capture")
	_ = investigateCmd.MarkFlagRequired("script")
}

// captureFile is the on-disk shape of a captured error. Env is the raw
// environment at capture time; secrets are dropped when the snapshot is
// built, never stored.
type captureFile struct {
	ErrorText  string            `json:"error_text"`
	StackTrace string            `json:"stack_trace,omitempty"`
	ExitCode   int               `json:"exit_code,omitempty"`
	Command    string            `json:"command,omitempty"`
	Env        map[string]string `json:"env,omitempty"`
}

// scriptedTest is one recorded probe outcome, keyed by hypothesis id.
type scriptedTest struct {
	Procedure string `yaml:"procedure"`
	Expected  string `yaml:"expected"`
	Actual    string `yaml:"actual"`
	Success   bool   `yaml:"success"`
}

// replayScript supplies every external observation the orchestrator would
// otherwise request from a live executor.
type replayScript struct {
	SelfExplanatory bool   `yaml:"self_explanatory"`
	QuickFixAction  string `yaml:"quick_fix_action"`

	// Verify outcomes are consumed in order; the last one repeats if the
	// orchestrator verifies more often than the script anticipated.
	Verify []string `yaml:"verify"`

	Tests map[string]scriptedTest `yaml:"tests"`

	// Fixes maps hypothesis id to the fix reference recorded when that
	// hypothesis is confirmed and fixed.
	Fixes map[string]string `yaml:"fixes"`
}

func runInvestigate(cmd *cobra.Command, _ []string) error {
	capData, err := os.ReadFile(investigateFlags.capturePath)
	if err != nil {
		return fmt.Errorf("read capture: %w", err)
	}
	var capd captureFile
	if err := json.Unmarshal(capData, &capd); err != nil {
		return fmt.Errorf("parse capture: %w", err)
	}
	if capd.ErrorText == "" {
		return fmt.Errorf("capture %s has no error_text", investigateFlags.capturePath)
	}

	scriptData, err := os.ReadFile(investigateFlags.scriptPath)
	if err != nil {
		return fmt.Errorf("read script: %w", err)
	}
	var script replayScript
	if err := yaml.Unmarshal(scriptData, &script); err != nil {
		return fmt.Errorf("parse script: %w", err)
	}

	st, err := store.Open(investigateFlags.dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	log := logging.New("investigate")

	env, dropped := capture.NewEnvSnapshot(capd.Env)
	if len(dropped) > 0 {
		log.Info("dropped secret-like env keys from snapshot", "keys", dropped)
	}

	s := session.New(capture.ErrorReport{
		RawText:    capd.ErrorText,
		StackTrace: capd.StackTrace,
		ExitCode:   capd.ExitCode,
		Command:    capd.Command,
		CapturedAt: time.Now().UTC().Format(time.RFC3339),
	}, env)

	replay := &replayer{script: script}
	policy := orchestrate.NewPolicy(replay, replay, replay)
	if investigateFlags.docsURL != "" {
		policy.Research = research.NewPool(0, docfetch.New(investigateFlags.docsURL))
	}

	report, err := policy.Run(cmd.Context(), s, orchestrate.ClaritySignal{
		SelfExplanatory: script.SelfExplanatory,
		QuickFixAction:  script.QuickFixAction,
	})
	if err != nil {
		return fmt.Errorf("investigate: %w", err)
	}

	if err := st.SaveReport(report); err != nil {
		return fmt.Errorf("persist report: %w", err)
	}

	mode := format.ASCII
	if investigateFlags.markdown {
		mode = format.Markdown
	}
	fmt.Fprintln(cmd.OutOrStdout(), format.RenderReport(mode, report))
	return nil
}

// replayer backs all three orchestrator collaborators with the replay
// script. Applied actions accumulate in state so snapshot/revert behave like
// a real mutable environment.
type replayer struct {
	script      replayScript
	state       []byte
	verifyCalls int
}

func (r *replayer) RunTest(_ context.Context, tst *hypothesis.Test) (string, bool, error) {
	entry, ok := r.script.Tests[tst.HypothesisID]
	if !ok {
		return "no recorded observation", false, nil
	}
	return entry.Actual, entry.Success, nil
}

func (r *replayer) Verify(_ context.Context) (orchestrate.VerifyOutcome, string, error) {
	if len(r.script.Verify) == 0 {
		return orchestrate.VerifyFail, "script has no verify outcomes", nil
	}
	i := r.verifyCalls
	if i >= len(r.script.Verify) {
		i = len(r.script.Verify) - 1
	}
	r.verifyCalls++
	switch v := r.script.Verify[i]; v {
	case "pass":
		return orchestrate.VerifyPass, "scripted verification passed", nil
	case "partial":
		return orchestrate.VerifyPartial, "scripted verification partially passed", nil
	case "fail":
		return orchestrate.VerifyFail, "scripted verification failed", nil
	default:
		return orchestrate.VerifyFail, "", fmt.Errorf("script verify outcome %q: want pass, partial or fail", v)
	}
}

func (r *replayer) Snapshot(context.Context) ([]byte, error) {
	snap := make([]byte, len(r.state))
	copy(snap, r.state)
	return snap, nil
}

func (r *replayer) ApplyQuickFix(_ context.Context, action string) error {
	r.state = append(r.state, []byte(action+"\n")...)
	return nil
}

func (r *replayer) ApplyFix(_ context.Context, hyp *hypothesis.Hypothesis) (string, error) {
	ref := r.script.Fixes[hyp.ID]
	if ref == "" {
		ref = "fix:" + hyp.ID
	}
	r.state = append(r.state, []byte(ref+"\n")...)
	return ref, nil
}

func (r *replayer) Revert(_ context.Context, snapshot []byte) error {
	r.state = make([]byte, len(snapshot))
	copy(r.state, snapshot)
	return nil
}

func (r *replayer) PlanTest(_ context.Context, hyp *hypothesis.Hypothesis) (*hypothesis.Test, error) {
	entry, ok := r.script.Tests[hyp.ID]
	if !ok {
		return &hypothesis.Test{
			HypothesisID: hyp.ID,
			Procedure:    "probe for: " + hyp.Description,
			Expected:     "observation consistent with the hypothesis",
		}, nil
	}
	return &hypothesis.Test{
		HypothesisID: hyp.ID,
		Procedure:    entry.Procedure,
		Expected:     entry.Expected,
	}, nil
}
