// Package store implements the record store behind history, collections and
// environments. Rows are plain column maps; every backend accepts and returns
// the same value shapes:
//
//	text  string
//	int   int64
//	json  json.RawMessage
//	time  time.Time (UTC)
package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/igorsal/routewarden/internal/interfaces"
	"github.com/igorsal/routewarden/internal/models"
	pkgerrors "github.com/igorsal/routewarden/pkg/errors"
)

const (
	TableHistory         = "request_history"
	TableCollections     = "collections"
	TableCollectionItems = "collection_items"
	TableEnvironments    = "environments"
)

type kind int

const (
	kindText kind = iota
	kindInt
	kindJSON
	kindTime
)

type column struct {
	name string
	kind kind
}

type table struct {
	name    string
	columns []column
}

func (t table) column(name string) (column, bool) {
	for _, c := range t.columns {
		if c.name == name {
			return c, true
		}
	}
	return column{}, false
}

func (t table) names() []string {
	out := make([]string, len(t.columns))
	for i, c := range t.columns {
		out[i] = c.name
	}
	return out
}

var requestColumns = []column{
	{"url", kindText},
	{"method", kindText},
	{"headers", kindJSON},
	{"query_params", kindJSON},
	{"body", kindText},
}

var tables = map[string]table{
	TableHistory: {
		name: TableHistory,
		columns: concat(
			[]column{{"id", kindText}, {"user_id", kindText}},
			requestColumns,
			[]column{{"status", kindInt}, {"duration_ms", kindInt}, {"created_at", kindTime}},
		),
	},
	TableCollections: {
		name: TableCollections,
		columns: []column{
			{"id", kindText},
			{"user_id", kindText},
			{"name", kindText},
			{"created_at", kindTime},
		},
	},
	TableCollectionItems: {
		name: TableCollectionItems,
		columns: concat(
			[]column{{"id", kindText}, {"collection_id", kindText}, {"name", kindText}},
			requestColumns,
			[]column{{"created_at", kindTime}},
		),
	},
	TableEnvironments: {
		name: TableEnvironments,
		columns: []column{
			{"id", kindText},
			{"user_id", kindText},
			{"name", kindText},
			{"variables", kindJSON},
			{"created_at", kindTime},
		},
	},
}

func concat(parts ...[]column) []column {
	var out []column
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func lookupTable(name string) (table, error) {
	t, ok := tables[name]
	if !ok {
		return table{}, pkgerrors.NewValidationError(fmt.Sprintf("unknown table %q", name))
	}
	return t, nil
}

// normalize converts row values to their canonical shapes and rejects
// unknown columns
func (t table) normalize(row interfaces.Row) (interfaces.Row, error) {
	out := make(interfaces.Row, len(row))
	for name, v := range row {
		col, ok := t.column(name)
		if !ok {
			return nil, pkgerrors.NewValidationError(fmt.Sprintf("unknown column %q in %s", name, t.name))
		}
		nv, err := convert(col, v)
		if err != nil {
			return nil, pkgerrors.NewValidationError(fmt.Sprintf("column %s.%s", t.name, name)).WithCause(err)
		}
		out[name] = nv
	}
	return out, nil
}

// prepareInsert normalizes row and fills id and created_at when absent
func (t table) prepareInsert(row interfaces.Row, now time.Time) (interfaces.Row, error) {
	out, err := t.normalize(row)
	if err != nil {
		return nil, err
	}
	if id, _ := out["id"].(string); id == "" {
		out["id"] = models.NewID()
	}
	if _, ok := out["created_at"]; !ok {
		out["created_at"] = now.UTC()
	}
	return out, nil
}

func (t table) validateOrder(order interfaces.Order) error {
	if order.Column == "" {
		return nil
	}
	if _, ok := t.column(order.Column); !ok {
		return pkgerrors.NewValidationError(fmt.Sprintf("unknown order column %q in %s", order.Column, t.name))
	}
	return nil
}

func convert(col column, v any) (any, error) {
	if v == nil {
		return nil, nil
	}

	switch col.kind {
	case kindText:
		switch s := v.(type) {
		case string:
			return s, nil
		case models.Method:
			return string(s), nil
		case fmt.Stringer:
			return s.String(), nil
		}
	case kindInt:
		switch n := v.(type) {
		case int:
			return int64(n), nil
		case int32:
			return int64(n), nil
		case int64:
			return n, nil
		case float64:
			return int64(n), nil
		}
	case kindJSON:
		switch raw := v.(type) {
		case json.RawMessage:
			return cloneRaw(raw), nil
		case []byte:
			return cloneRaw(raw), nil
		default:
			b, err := json.Marshal(v)
			if err != nil {
				return nil, err
			}
			return json.RawMessage(b), nil
		}
	case kindTime:
		if ts, ok := v.(time.Time); ok {
			return ts.UTC(), nil
		}
	}
	return nil, fmt.Errorf("unsupported value of type %T", v)
}

func cloneRaw(b []byte) json.RawMessage {
	out := make(json.RawMessage, len(b))
	copy(out, b)
	return out
}
