// Package vars substitutes {{name}} tokens using the variables of an environment.
//
// Two precedence rules live here and are intentionally different:
// Resolve applies variables in array order and the first variable with a
// given key consumes every matching token, while BuildMapping lets later
// pairs overwrite earlier ones.
package vars

import (
	"regexp"
	"strings"

	"github.com/igorsal/routewarden/internal/models"
)

var tokenPattern = regexp.MustCompile(`\{\{([^{}]+)\}\}`)

// Token returns the placeholder for key
func Token(key string) string {
	return "{{" + key + "}}"
}

// Resolve replaces {{key}} tokens in text with the values of env's active
// variables. Replacement is literal and global, runs once per variable in
// array order over the progressively rewritten text, and never re-scans a
// substituted value. A nil env or an env without variables returns text as is.
func Resolve(text string, env *models.Environment) string {
	if env == nil || len(env.Variables) == 0 {
		return text
	}

	out := text
	for _, v := range env.Variables {
		if !v.Active || v.Key == "" {
			continue
		}
		out = strings.ReplaceAll(out, Token(v.Key), v.Value)
	}
	return out
}

// ResolveValue resolves strings and returns any other value unchanged
func ResolveValue(value any, env *models.Environment) any {
	s, ok := value.(string)
	if !ok {
		return value
	}
	return Resolve(s, env)
}

// BuildMapping turns a set into a header or query map. Only active pairs with
// a key are kept, values are resolved, and a later pair overwrites an earlier
// pair with the same key.
func BuildMapping(set models.KeyValueSet, env *models.Environment) map[string]string {
	out := make(map[string]string)
	for _, p := range set.Enabled() {
		out[p.Key] = Resolve(p.Value, env)
	}
	return out
}

// Unresolved lists the distinct tokens still present in text, in order of appearance
func Unresolved(text string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, m := range tokenPattern.FindAllStringSubmatch(text, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}
