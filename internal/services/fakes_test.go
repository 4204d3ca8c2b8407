package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/markdave123-py/genai-chat/internal/core"
	"github.com/markdave123-py/genai-chat/internal/errs"
	"github.com/markdave123-py/genai-chat/internal/models"
)

// memTable is an in-memory core.TableStore with exact-match filters.
type memTable struct {
	mu     sync.Mutex
	tables map[string][]models.Row
	fail   error
}

func newMemTable() *memTable { return &memTable{tables: map[string][]models.Row{}} }

func copyRow(r models.Row) models.Row {
	out := make(models.Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func matches(r, where models.Row) bool {
	for k, v := range where {
		if r[k] != v {
			return false
		}
	}
	return true
}

func (m *memTable) CreateRow(_ context.Context, table string, fields models.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.tables[table] = append(m.tables[table], copyRow(fields))
	return nil
}

func (m *memTable) ReadAllRows(_ context.Context, table string) ([]models.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	out := make([]models.Row, 0, len(m.tables[table]))
	for _, r := range m.tables[table] {
		out = append(out, copyRow(r))
	}
	return out, nil
}

func (m *memTable) UpdateRows(_ context.Context, table string, set, where models.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	for _, r := range m.tables[table] {
		if matches(r, where) {
			for k, v := range set {
				r[k] = v
			}
		}
	}
	return nil
}

func (m *memTable) DeleteRows(_ context.Context, table string, where models.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	kept := m.tables[table][:0]
	for _, r := range m.tables[table] {
		if !matches(r, where) {
			kept = append(kept, r)
		}
	}
	m.tables[table] = kept
	return nil
}

func (m *memTable) rows(table string) []models.Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Row(nil), m.tables[table]...)
}

// memObjects is an in-memory core.ObjectClient storing JSON bytes.
type memObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	writes  int
	failGet error
}

func newMemObjects() *memObjects { return &memObjects{objects: map[string][]byte{}} }

func (o *memObjects) Exists(_ context.Context, key string) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.objects[key]
	return ok, nil
}

func (o *memObjects) ReadJSON(_ context.Context, key string, v any) (map[string]string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.failGet != nil {
		return nil, o.failGet
	}
	b, ok := o.objects[key]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", key, errs.ErrNotFound)
	}
	return map[string]string{}, json.Unmarshal(b, v)
}

func (o *memObjects) WriteJSON(_ context.Context, key string, v any, _ map[string]string) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.objects[key] = b
	o.writes++
	return nil
}

func (o *memObjects) DeleteFile(_ context.Context, key string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.objects, key)
	return nil
}

func (o *memObjects) ListKeys(_ context.Context, prefix string) ([]string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	var keys []string
	for k := range o.objects {
		if strings.HasPrefix(k, prefix) && k != prefix {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// fakeLLM echoes the new turn and records what it was given.
type fakeLLM struct {
	mu      sync.Mutex
	calls   int
	system  string
	history [][]models.Turn
	cfg     core.GenerationConfig
	err     error
}

func (f *fakeLLM) Generate(_ context.Context, systemPrompt string, history []models.Turn, newTurn models.Turn, cfg core.GenerationConfig) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.system = systemPrompt
	f.history = append(f.history, append([]models.Turn(nil), history...))
	f.cfg = cfg
	if f.err != nil {
		return "", f.err
	}
	return "reply to " + newTurn.Text, nil
}

// fakeClock is a settable time source.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

var _ core.TableStore = (*memTable)(nil)
var _ core.ObjectClient = (*memObjects)(nil)
var _ core.LLMProvider = (*fakeLLM)(nil)
