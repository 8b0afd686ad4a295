package vars

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/igorsal/routewarden/internal/models"
)

func env(pairs ...models.KeyValuePair) *models.Environment {
	return &models.Environment{ID: "env-1", Name: "test", Variables: pairs}
}

func pair(key, value string, active bool) models.KeyValuePair {
	return models.KeyValuePair{ID: models.NewID(), Key: key, Value: value, Active: active}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		env      *models.Environment
		expected string
	}{
		{
			name:     "no environment",
			text:     "{{base}}/users",
			env:      nil,
			expected: "{{base}}/users",
		},
		{
			name:     "environment without variables",
			text:     "{{base}}/users",
			env:      env(),
			expected: "{{base}}/users",
		},
		{
			name:     "global replacement",
			text:     "{{id}}-{{id}}-{{id}}",
			env:      env(pair("id", "7", true)),
			expected: "7-7-7",
		},
		{
			name:     "duplicate keys first wins",
			text:     "{{a}}-{{a}}",
			env:      env(pair("a", "1", true), pair("a", "2", true)),
			expected: "1-1",
		},
		{
			name:     "inactive variable skipped",
			text:     "{{a}}",
			env:      env(pair("a", "1", false)),
			expected: "{{a}}",
		},
		{
			name:     "inactive first lets later duplicate apply",
			text:     "{{a}}",
			env:      env(pair("a", "1", false), pair("a", "2", true)),
			expected: "2",
		},
		{
			name:     "empty key skipped",
			text:     "{{}}",
			env:      env(pair("", "x", true)),
			expected: "{{}}",
		},
		{
			name:     "unknown token left verbatim",
			text:     "{{host}}/{{missing}}",
			env:      env(pair("host", "api", true)),
			expected: "api/{{missing}}",
		},
		{
			name:     "later variables see earlier substitutions",
			text:     "{{outer}}",
			env:      env(pair("outer", "{{inner}}", true), pair("inner", "deep", true)),
			expected: "deep",
		},
		{
			name:     "values are not rescanned by earlier variables",
			text:     "{{inner}}",
			env:      env(pair("outer", "x", true), pair("inner", "{{outer}}", true)),
			expected: "{{outer}}",
		},
		{
			name:     "self reference does not loop",
			text:     "{{a}}",
			env:      env(pair("a", "<{{a}}>", true)),
			expected: "<{{a}}>",
		},
		{
			name:     "literal match, no regex meaning",
			text:     "{{a.b}} {{a+b}}",
			env:      env(pair("a.b", "dot", true), pair("a+b", "plus", true)),
			expected: "dot plus",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Resolve(tt.text, tt.env))
		})
	}
}

func TestResolveValue_NonStringUnchanged(t *testing.T) {
	e := env(pair("a", "1", true))

	assert.Equal(t, 42, ResolveValue(42, e))
	assert.Nil(t, ResolveValue(nil, e))
	assert.Equal(t, "1", ResolveValue("{{a}}", e))
}

func TestBuildMapping_LastWins(t *testing.T) {
	set := models.KeyValueSet{
		pair("X", "1", true),
		pair("X", "2", true),
	}

	got := BuildMapping(set, nil)
	assert.Equal(t, map[string]string{"X": "2"}, got)
}

func TestBuildMapping_FiltersAndResolves(t *testing.T) {
	e := env(pair("token", "secret", true))
	set := models.KeyValueSet{
		pair("Authorization", "Bearer {{token}}", true),
		pair("X-Off", "nope", false),
		pair("", "orphan", true),
	}

	got := BuildMapping(set, e)
	assert.Equal(t, map[string]string{"Authorization": "Bearer secret"}, got)
}

func TestPrecedenceRulesDiffer(t *testing.T) {
	dup := models.KeyValueSet{pair("a", "1", true), pair("a", "2", true)}

	assert.Equal(t, "1", Resolve("{{a}}", env(dup...)))
	assert.Equal(t, "2", BuildMapping(dup, nil)["a"])
}

func TestUnresolved(t *testing.T) {
	assert.Equal(t, []string{"host", "id"}, Unresolved("{{host}}/x/{{id}}/{{host}}"))
	assert.Empty(t, Unresolved("plain"))
}
