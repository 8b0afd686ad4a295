package store

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/igorsal/routewarden/internal/interfaces"
	pkgerrors "github.com/igorsal/routewarden/pkg/errors"
)

// MemoryStore is an in-process RecordStore. It backs sessions that run
// without a database file and the tests.
type MemoryStore struct {
	mu   sync.RWMutex
	rows map[string][]interfaces.Row
	now  func() time.Time
}

var _ interfaces.RecordStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rows: make(map[string][]interfaces.Row),
		now:  time.Now,
	}
}

func (s *MemoryStore) List(_ context.Context, tableName string, filter interfaces.Row, order interfaces.Order, limit int) ([]interfaces.Row, error) {
	t, err := lookupTable(tableName)
	if err != nil {
		return nil, err
	}
	if err := t.validateOrder(order); err != nil {
		return nil, err
	}
	where, err := t.normalize(filter)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	var out []interfaces.Row
	for _, row := range s.rows[t.name] {
		if matches(row, where) {
			out = append(out, copyRow(t, row))
		}
	}
	s.mu.RUnlock()

	if order.Column != "" {
		sort.SliceStable(out, func(i, j int) bool {
			c := compare(out[i][order.Column], out[j][order.Column])
			if c == 0 {
				c = strings.Compare(out[i]["id"].(string), out[j]["id"].(string))
			}
			if order.Descending {
				return c > 0
			}
			return c < 0
		})
	}

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Insert(_ context.Context, tableName string, row interfaces.Row) (interfaces.Row, error) {
	t, err := lookupTable(tableName)
	if err != nil {
		return nil, err
	}
	stored, err := t.prepareInsert(row, s.now())
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.rows[t.name] {
		if existing["id"] == stored["id"] {
			return nil, fmt.Errorf("insert into %s failed: duplicate id %v", t.name, stored["id"])
		}
	}
	s.rows[t.name] = append(s.rows[t.name], stored)

	return copyRow(t, stored), nil
}

func (s *MemoryStore) Update(_ context.Context, tableName string, id string, patch interfaces.Row) error {
	t, err := lookupTable(tableName)
	if err != nil {
		return err
	}
	values, err := t.normalize(patch)
	if err != nil {
		return err
	}
	delete(values, "id")

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, row := range s.rows[t.name] {
		if row["id"] == id {
			for k, v := range values {
				row[k] = v
			}
			return nil
		}
	}
	return pkgerrors.NewNotFoundError(fmt.Sprintf("%s %s not found", t.name, id))
}

func (s *MemoryStore) Delete(_ context.Context, tableName string, id string) error {
	t, err := lookupTable(tableName)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows := s.rows[t.name]
	for i, row := range rows {
		if row["id"] == id {
			s.rows[t.name] = append(rows[:i:i], rows[i+1:]...)
			if t.name == TableCollections {
				s.cascade(TableCollectionItems, "collection_id", id)
			}
			return nil
		}
	}
	return pkgerrors.NewNotFoundError(fmt.Sprintf("%s %s not found", t.name, id))
}

func (s *MemoryStore) cascade(tableName, column, id string) {
	kept := s.rows[tableName][:0:0]
	for _, row := range s.rows[tableName] {
		if row[column] != id {
			kept = append(kept, row)
		}
	}
	s.rows[tableName] = kept
}

func matches(row, where interfaces.Row) bool {
	for k, v := range where {
		if compare(row[k], v) != 0 {
			return false
		}
	}
	return true
}

// copyRow returns every column of the table, absent ones as nil
func copyRow(t table, row interfaces.Row) interfaces.Row {
	out := make(interfaces.Row, len(t.columns))
	for _, col := range t.columns {
		v := row[col.name]
		if raw, ok := v.(json.RawMessage); ok {
			v = cloneRaw(raw)
		}
		out[col.name] = v
	}
	return out
}

func compare(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}

	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv)
		}
	case int64:
		if bv, ok := b.(int64); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
			return 0
		}
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Compare(bv)
		}
	case json.RawMessage:
		if bv, ok := b.(json.RawMessage); ok {
			return strings.Compare(string(av), string(bv))
		}
	}

	if reflect.DeepEqual(a, b) {
		return 0
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}
