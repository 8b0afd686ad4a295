package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyValueSet_AddAppendsEmptyActivePair(t *testing.T) {
	var set KeyValueSet

	first := set.Add()
	second := set.Add()

	require.Len(t, set, 2)
	assert.Equal(t, first.ID, set[0].ID)
	assert.Equal(t, second.ID, set[1].ID)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, "", set[0].Key)
	assert.Equal(t, "", set[0].Value)
	assert.True(t, set[0].Active)
}

func TestKeyValueSet_RemoveThenAddNeverReusesID(t *testing.T) {
	var set KeyValueSet
	seen := map[string]bool{}

	for i := 0; i < 500; i++ {
		p := set.Add()
		require.False(t, seen[p.ID], "id %s reused", p.ID)
		seen[p.ID] = true
		set.Remove(p.ID)
	}
	assert.Empty(t, set)
}

func TestKeyValueSet_UpdateTouchesOneField(t *testing.T) {
	set := NewKeyValueSet("a", "1", "b", "2", "c", "3")
	target := set[1].ID

	require.NoError(t, set.Update(target, FieldKey, "B"))
	require.NoError(t, set.Update(target, FieldValue, "20"))
	require.NoError(t, set.Update(target, FieldActive, "false"))

	assert.Equal(t, []string{"a", "B", "c"}, keys(set))
	assert.Equal(t, "20", set[1].Value)
	assert.False(t, set[1].Active)
	assert.Equal(t, "1", set[0].Value)
	assert.True(t, set[0].Active)
	assert.Equal(t, "3", set[2].Value)
}

func TestKeyValueSet_UpdateUnknownIDIsNoop(t *testing.T) {
	set := NewKeyValueSet("a", "1")
	before := set.Clone()

	require.NoError(t, set.Update("missing", FieldValue, "x"))
	assert.Equal(t, before, set)
}

func TestKeyValueSet_UpdateRejectsBadInput(t *testing.T) {
	set := NewKeyValueSet("a", "1")

	assert.Error(t, set.Update(set[0].ID, Field("colour"), "x"))
	assert.Error(t, set.Update(set[0].ID, FieldActive, "maybe"))
	assert.True(t, set[0].Active)
}

func TestKeyValueSet_RemoveKeepsOrder(t *testing.T) {
	set := NewKeyValueSet("a", "1", "b", "2", "c", "3")
	shared := set

	set.Remove(set[1].ID)
	assert.Equal(t, []string{"a", "c"}, keys(set))
	assert.Equal(t, []string{"a", "b", "c"}, keys(shared), "removal must not disturb other holders of the slice")

	set.Remove("missing")
	assert.Len(t, set, 2)
}

func TestKeyValueSet_Enabled(t *testing.T) {
	set := NewKeyValueSet("a", "1", "", "2", "c", "3")
	set[2].Active = false

	enabled := set.Enabled()
	require.Len(t, enabled, 1)
	assert.Equal(t, "a", enabled[0].Key)
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod(" patch ")
	require.NoError(t, err)
	assert.Equal(t, MethodPatch, m)

	_, err = ParseMethod("TRACE")
	assert.Error(t, err)
}

func TestDefaultDraft(t *testing.T) {
	d := DefaultDraft()
	assert.Equal(t, MethodGet, d.Method)
	require.Len(t, d.Headers, 1)
	assert.Equal(t, "Content-Type", d.Headers[0].Key)
	require.Len(t, d.QueryParams, 1)
	assert.Equal(t, "", d.QueryParams[0].Key)

	clone := d.Clone()
	clone.Headers[0].Value = "text/plain"
	assert.Equal(t, "application/json", d.Headers[0].Value)
}

func keys(set KeyValueSet) []string {
	out := make([]string, 0, len(set))
	for _, p := range set {
		out = append(out, p.Key)
	}
	return out
}
