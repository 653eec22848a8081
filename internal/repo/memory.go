package repo

import (
	"context"
	"sync"
)

// Memory is an in-process ledger store. Fail, when set, is returned from
// every call to simulate an outage.
type Memory struct {
	mu   sync.RWMutex
	rows [][]string
	Fail error
}

func NewMemory(rows ...[]string) *Memory {
	m := &Memory{}
	for _, r := range rows {
		m.rows = append(m.rows, cloneRow(r))
	}
	return m
}

func (m *Memory) Append(_ context.Context, row []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	m.rows = append(m.rows, cloneRow(row))
	return nil
}

func (m *Memory) ReadAll(_ context.Context) ([][]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Fail != nil {
		return nil, m.Fail
	}
	out := make([][]string, 0, len(m.rows))
	for _, r := range m.rows {
		out = append(out, cloneRow(r))
	}
	return out, nil
}

// Len returns the number of stored rows, headers included.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rows)
}

// SetStatus edits the reviewer column of row i, the way a human would in the
// spreadsheet.
func (m *Memory) SetStatus(i int, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row := m.rows[i]
	for len(row) <= statusCol {
		row = append(row, "")
	}
	row[statusCol] = status
	m.rows[i] = row
}

func cloneRow(r []string) []string {
	return append([]string(nil), r...)
}
