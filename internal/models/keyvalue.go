package models

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// Field names a mutable field of a KeyValuePair
type Field string

const (
	FieldKey    Field = "key"
	FieldValue  Field = "value"
	FieldActive Field = "active"
)

// KeyValuePair is one row of a header, query parameter or variable table.
// Keys may repeat; only ID is unique.
type KeyValuePair struct {
	ID     string `json:"id" yaml:"id"`
	Key    string `json:"key" yaml:"key"`
	Value  string `json:"value" yaml:"value"`
	Active bool   `json:"active" yaml:"active"`
}

// KeyValueSet is an ordered list of pairs. Order decides precedence.
type KeyValueSet []KeyValuePair

// NewID returns a time-ordered identifier. UUIDv7 stays monotonic within a
// millisecond, so ids from rapid successive calls never collide.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// NewKeyValueSet builds a set of active pairs from alternating key, value arguments
func NewKeyValueSet(kv ...string) KeyValueSet {
	set := make(KeyValueSet, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		set = append(set, KeyValuePair{ID: NewID(), Key: kv[i], Value: kv[i+1], Active: true})
	}
	return set
}

// Add appends an empty active pair and returns it
func (s *KeyValueSet) Add() KeyValuePair {
	pair := KeyValuePair{ID: NewID(), Active: true}
	*s = append(*s, pair)
	return pair
}

// Update replaces a single field of the pair with the given id.
// An unknown id is a no-op.
func (s KeyValueSet) Update(id string, field Field, value string) error {
	idx := s.indexOf(id)

	switch field {
	case FieldKey:
		if idx >= 0 {
			s[idx].Key = value
		}
	case FieldValue:
		if idx >= 0 {
			s[idx].Value = value
		}
	case FieldActive:
		active, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid active flag %q: %w", value, err)
		}
		if idx >= 0 {
			s[idx].Active = active
		}
	default:
		return fmt.Errorf("unknown field %q", field)
	}
	return nil
}

// Remove deletes the pair with the given id. An unknown id is a no-op.
func (s *KeyValueSet) Remove(id string) {
	idx := s.indexOf(id)
	if idx < 0 {
		return
	}
	*s = append((*s)[:idx:idx], (*s)[idx+1:]...)
}

// Get returns the pair with the given id
func (s KeyValueSet) Get(id string) (KeyValuePair, bool) {
	if idx := s.indexOf(id); idx >= 0 {
		return s[idx], true
	}
	return KeyValuePair{}, false
}

// Enabled returns the active pairs with a non-empty key, in order
func (s KeyValueSet) Enabled() []KeyValuePair {
	var out []KeyValuePair
	for _, p := range s {
		if p.Active && p.Key != "" {
			out = append(out, p)
		}
	}
	return out
}

// Clone returns an independent copy; a nil set clones to an empty one
func (s KeyValueSet) Clone() KeyValueSet {
	out := make(KeyValueSet, len(s))
	copy(out, s)
	return out
}

func (s KeyValueSet) indexOf(id string) int {
	for i, p := range s {
		if p.ID == id {
			return i
		}
	}
	return -1
}
