package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	// SQLite driver
	_ "modernc.org/sqlite"

	"github.com/igorsal/routewarden/internal/interfaces"
	pkgerrors "github.com/igorsal/routewarden/pkg/errors"
)

// timeLayout sorts lexically in chronological order
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const schema = `
CREATE TABLE IF NOT EXISTS request_history (
	id           TEXT PRIMARY KEY,
	user_id      TEXT NOT NULL,
	url          TEXT NOT NULL DEFAULT '',
	method       TEXT NOT NULL DEFAULT 'GET',
	headers      TEXT NOT NULL DEFAULT '[]',
	query_params TEXT NOT NULL DEFAULT '[]',
	body         TEXT NOT NULL DEFAULT '',
	status       INTEGER,
	duration_ms  INTEGER,
	created_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_request_history_user ON request_history (user_id, created_at);

CREATE TABLE IF NOT EXISTS collections (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	name       TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS collection_items (
	id            TEXT PRIMARY KEY,
	collection_id TEXT NOT NULL REFERENCES collections (id) ON DELETE CASCADE,
	name          TEXT NOT NULL,
	url           TEXT NOT NULL DEFAULT '',
	method        TEXT NOT NULL DEFAULT 'GET',
	headers       TEXT NOT NULL DEFAULT '[]',
	query_params  TEXT NOT NULL DEFAULT '[]',
	body          TEXT NOT NULL DEFAULT '',
	created_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_collection_items_collection ON collection_items (collection_id, created_at);

CREATE TABLE IF NOT EXISTS environments (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	name       TEXT NOT NULL,
	variables  TEXT NOT NULL DEFAULT '[]',
	created_at TEXT NOT NULL
);
`

// SQLiteStore is a RecordStore backed by a local SQLite file
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ interfaces.RecordStore = (*SQLiteStore)(nil)

// OpenSQLite opens (creating if needed) the database at path and applies the schema
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context, tableName string, filter interfaces.Row, order interfaces.Order, limit int) ([]interfaces.Row, error) {
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

	var (
		query strings.Builder
		args  []any
	)
	fmt.Fprintf(&query, "SELECT %s FROM %s", strings.Join(t.names(), ", "), t.name)

	if len(where) > 0 {
		keys := sortedKeys(where)
		conds := make([]string, len(keys))
		for i, k := range keys {
			conds[i] = k + " = ?"
			col, _ := t.column(k)
			args = append(args, toSQL(col, where[k]))
		}
		query.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}

	if order.Column != "" {
		dir := "ASC"
		if order.Descending {
			dir = "DESC"
		}
		fmt.Fprintf(&query, " ORDER BY %s %s, id %s", order.Column, dir, dir)
	}

	if limit > 0 {
		fmt.Fprintf(&query, " LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var out []interfaces.Row
	for rows.Next() {
		values := make([]any, len(t.columns))
		valuePtrs := make([]any, len(t.columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(interfaces.Row, len(t.columns))
		for i, col := range t.columns {
			v, err := fromSQL(col, values[i])
			if err != nil {
				return nil, fmt.Errorf("column %s.%s: %w", t.name, col.name, err)
			}
			row[col.name] = v
		}
		out = append(out, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return out, nil
}

func (s *SQLiteStore) Insert(ctx context.Context, tableName string, row interfaces.Row) (interfaces.Row, error) {
	t, err := lookupTable(tableName)
	if err != nil {
		return nil, err
	}
	stored, err := t.prepareInsert(row, s.now())
	if err != nil {
		return nil, err
	}

	keys := sortedKeys(stored)
	placeholders := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, k := range keys {
		col, _ := t.column(k)
		placeholders[i] = "?"
		args[i] = toSQL(col, stored[k])
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		t.name, strings.Join(keys, ", "), strings.Join(placeholders, ", "))
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("insert into %s failed: %w", t.name, err)
	}

	return stored, nil
}

func (s *SQLiteStore) Update(ctx context.Context, tableName string, id string, patch interfaces.Row) error {
	t, err := lookupTable(tableName)
	if err != nil {
		return err
	}
	values, err := t.normalize(patch)
	if err != nil {
		return err
	}
	delete(values, "id")
	if len(values) == 0 {
		return nil
	}

	keys := sortedKeys(values)
	sets := make([]string, len(keys))
	args := make([]any, 0, len(keys)+1)
	for i, k := range keys {
		col, _ := t.column(k)
		sets[i] = k + " = ?"
		args = append(args, toSQL(col, values[k]))
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", t.name, strings.Join(sets, ", "))
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update of %s failed: %w", t.name, err)
	}
	return requireAffected(res, t.name, id)
}

func (s *SQLiteStore) Delete(ctx context.Context, tableName string, id string) error {
	t, err := lookupTable(tableName)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", t.name), id)
	if err != nil {
		return fmt.Errorf("delete from %s failed: %w", t.name, err)
	}
	return requireAffected(res, t.name, id)
}

func requireAffected(res sql.Result, tableName, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return pkgerrors.NewNotFoundError(fmt.Sprintf("%s %s not found", tableName, id))
	}
	return nil
}

func toSQL(col column, v any) any {
	if v == nil {
		return nil
	}
	switch col.kind {
	case kindJSON:
		return string(v.(json.RawMessage))
	case kindTime:
		return v.(time.Time).UTC().Format(timeLayout)
	}
	return v
}

func fromSQL(col column, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if b, ok := v.([]byte); ok {
		v = string(b)
	}

	switch col.kind {
	case kindJSON:
		s, _ := v.(string)
		return json.RawMessage(s), nil
	case kindTime:
		s, _ := v.(string)
		return time.Parse(timeLayout, s)
	case kindInt:
		if n, ok := v.(int64); ok {
			return n, nil
		}
		return nil, fmt.Errorf("unexpected %T", v)
	}
	return v, nil
}

func sortedKeys(row interfaces.Row) []string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
