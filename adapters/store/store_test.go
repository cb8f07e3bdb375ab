package store

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"sleuth/internal/capture"
	"sleuth/internal/session"
	"sleuth/internal/template"
)

func report(id, created string, terminal session.TerminalStatus, raw string) *session.Report {
	return &session.Report{
		ID:        id,
		CreatedAt: created,
		Terminal:  terminal,
		Error:     capture.ErrorReport{RawText: raw},
		Templates: template.ExtractTemplates(raw),
	}
}

// runStoreTests exercises the Store contract against an implementation.
func runStoreTests(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("round trip", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		want := report("s-1", "2026-08-29T10:00:00Z", session.StatusResolved,
			"ModuleNotFoundError: No module named 'pandas'")
		want.TerminalReason = "quick fix resolved the failure"
		if err := s.SaveReport(want); err != nil {
			t.Fatalf("SaveReport: %v", err)
		}

		got, err := s.GetReport("s-1")
		if err != nil {
			t.Fatalf("GetReport: %v", err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("report mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("missing report is nil", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		got, err := s.GetReport("nope")
		if err != nil {
			t.Fatalf("GetReport: %v", err)
		}
		if got != nil {
			t.Errorf("got %+v, want nil", got)
		}
	})

	t.Run("list newest first", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		old := report("s-old", "2026-08-28T09:00:00Z", session.StatusBlocked, "boom")
		recent := report("s-new", "2026-08-29T09:00:00Z", session.StatusResolved, "boom")
		for _, r := range []*session.Report{old, recent} {
			if err := s.SaveReport(r); err != nil {
				t.Fatalf("SaveReport(%s): %v", r.ID, err)
			}
		}

		list, err := s.ListReports()
		if err != nil {
			t.Fatalf("ListReports: %v", err)
		}
		var ids []string
		for _, sum := range list {
			ids = append(ids, sum.ID)
		}
		if diff := cmp.Diff([]string{"s-new", "s-old"}, ids); diff != "" {
			t.Errorf("order mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("recall by fingerprint", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		// pandas and numpy generalize to the same template, the network
		// error does not.
		prior := report("s-pandas", "2026-08-28T09:00:00Z", session.StatusResolved,
			"ModuleNotFoundError: No module named 'pandas'")
		other := report("s-net", "2026-08-28T10:00:00Z", session.StatusBlocked,
			"dial tcp 10.0.0.5:8080: connection refused")
		for _, r := range []*session.Report{prior, other} {
			if err := s.SaveReport(r); err != nil {
				t.Fatalf("SaveReport(%s): %v", r.ID, err)
			}
		}

		fresh := template.ExtractTemplates("ModuleNotFoundError: No module named 'numpy'")
		got, err := s.Recall(fresh[0].Fingerprint)
		if err != nil {
			t.Fatalf("Recall: %v", err)
		}
		if len(got) != 1 || got[0].ID != "s-pandas" {
			t.Fatalf("recall = %+v, want only s-pandas", got)
		}
		if got[0].Terminal != string(session.StatusResolved) {
			t.Errorf("recalled terminal = %q, want resolved", got[0].Terminal)
		}
	})

	t.Run("save is an upsert", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		r := report("s-1", "2026-08-29T10:00:00Z", "", "boom")
		if err := s.SaveReport(r); err != nil {
			t.Fatalf("SaveReport: %v", err)
		}
		r.Terminal = session.StatusResolved
		r.ClosedAt = "2026-08-29T10:05:00Z"
		if err := s.SaveReport(r); err != nil {
			t.Fatalf("SaveReport update: %v", err)
		}

		list, err := s.ListReports()
		if err != nil {
			t.Fatalf("ListReports: %v", err)
		}
		if len(list) != 1 {
			t.Fatalf("got %d reports, want 1", len(list))
		}
		if list[0].Terminal != string(session.StatusResolved) {
			t.Errorf("terminal = %q, want resolved after upsert", list[0].Terminal)
		}
	})

	t.Run("rejects empty id", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		if err := s.SaveReport(&session.Report{}); err == nil {
			t.Error("want error for report without id")
		}
	})
}

func TestMemStore(t *testing.T) {
	runStoreTests(t, func(t *testing.T) Store {
		return NewMemStore()
	})
}

func TestSqlStore(t *testing.T) {
	runStoreTests(t, func(t *testing.T) Store {
		s, err := OpenMemory()
		if err != nil {
			t.Fatalf("OpenMemory: %v", err)
		}
		return s
	})
}

func TestSqlStoreOpenCreatesParentDir(t *testing.T) {
	path := t.TempDir() + "/nested/sleuth.db"
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if err := s.SaveReport(report("s-1", "2026-08-29T10:00:00Z", "", "boom")); err != nil {
		t.Fatalf("SaveReport: %v", err)
	}
	got, err := s.GetReport("s-1")
	if err != nil || got == nil {
		t.Fatalf("GetReport = %v, %v; want stored report", got, err)
	}
}
