package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"sleuth/internal/session"
)

// MemStore is an in-memory Store for tests and ephemeral sessions.
// Implements Store.
type MemStore struct {
	mu      sync.Mutex
	reports map[string][]byte // id -> marshaled report
	byFP    map[string][]string
}

// NewMemStore returns a new in-memory Store.
func NewMemStore() *MemStore {
	return &MemStore{
		reports: make(map[string][]byte),
		byFP:    make(map[string][]string),
	}
}

func (m *MemStore) Close() error { return nil }

func (m *MemStore) SaveReport(r *session.Report) error {
	if r == nil || r.ID == "" {
		return errors.New("report with session id required")
	}
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.reports[r.ID]; exists {
		for fp, ids := range m.byFP {
			m.byFP[fp] = removeID(ids, r.ID)
		}
	}
	m.reports[r.ID] = payload
	for _, tmpl := range r.Templates {
		ids := m.byFP[tmpl.Fingerprint]
		if !containsID(ids, r.ID) {
			m.byFP[tmpl.Fingerprint] = append(ids, r.ID)
		}
	}
	return nil
}

func (m *MemStore) GetReport(id string) (*session.Report, error) {
	m.mu.Lock()
	payload, ok := m.reports[id]
	m.mu.Unlock()
	if !ok {
		return nil, nil
	}
	var r session.Report
	if err := json.Unmarshal(payload, &r); err != nil {
		return nil, fmt.Errorf("unmarshal report: %w", err)
	}
	return &r, nil
}

func (m *MemStore) ListReports() ([]*Summary, error) {
	m.mu.Lock()
	ids := make([]string, 0, len(m.reports))
	for id := range m.reports {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	return m.summarize(ids)
}

func (m *MemStore) Recall(fingerprint string) ([]*Summary, error) {
	m.mu.Lock()
	ids := append([]string(nil), m.byFP[fingerprint]...)
	m.mu.Unlock()
	return m.summarize(ids)
}

func (m *MemStore) summarize(ids []string) ([]*Summary, error) {
	var list []*Summary
	for _, id := range ids {
		r, err := m.GetReport(id)
		if err != nil {
			return nil, err
		}
		if r == nil {
			continue
		}
		list = append(list, &Summary{
			ID:             r.ID,
			Terminal:       string(r.Terminal),
			TerminalReason: r.TerminalReason,
			ErrorHead:      errorHead(r),
			CreatedAt:      r.CreatedAt,
			ClosedAt:       r.ClosedAt,
		})
	}
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].CreatedAt != list[j].CreatedAt {
			return list[i].CreatedAt > list[j].CreatedAt
		}
		return list[i].ID < list[j].ID
	})
	return list, nil
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
