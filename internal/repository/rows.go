// Package repository maps record store rows to domain models.
package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/igorsal/routewarden/internal/interfaces"
	"github.com/igorsal/routewarden/internal/models"
)

func str(row interfaces.Row, col string) string {
	s, _ := row[col].(string)
	return s
}

func int64Of(row interfaces.Row, col string) int64 {
	switch n := row[col].(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}

func timeOf(row interfaces.Row, col string) time.Time {
	t, _ := row[col].(time.Time)
	return t
}

// keyValues decodes a JSON column. A missing, null or non-array value
// becomes an empty set.
func keyValues(row interfaces.Row, col string) (models.KeyValueSet, error) {
	var raw []byte
	switch v := row[col].(type) {
	case json.RawMessage:
		raw = v
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	case models.KeyValueSet:
		return v.Clone(), nil
	}

	set := models.KeyValueSet{}
	if len(raw) == 0 || raw[0] != '[' {
		return set, nil
	}
	if err := json.Unmarshal(raw, &set); err != nil {
		return nil, fmt.Errorf("decode %s: %w", col, err)
	}
	return set, nil
}

func nonNil(set models.KeyValueSet) models.KeyValueSet {
	if set == nil {
		return models.KeyValueSet{}
	}
	return set
}
