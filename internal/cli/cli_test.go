package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/igorsal/routewarden/api"
	"github.com/igorsal/routewarden/internal/config"
	"github.com/igorsal/routewarden/internal/models"
	"github.com/igorsal/routewarden/internal/services"
	pkgerrors "github.com/igorsal/routewarden/pkg/errors"
	"github.com/igorsal/routewarden/pkg/logger"
	"github.com/igorsal/routewarden/pkg/metrics"
)

type harness struct {
	t        *testing.T
	relayURL string
	upstream string
	database string
	userID   string
	calls    atomic.Int64
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		t:        t,
		database: filepath.Join(t.TempDir(), "routewarden.db"),
		userID:   "user-1",
	}

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"path":   r.URL.Path,
			"limit":  r.URL.Query().Get("limit"),
			"method": r.Method,
		})
	}))
	t.Cleanup(upstream.Close)
	h.upstream = upstream.URL

	cfg := &config.Config{Relay: config.RelayConfig{MaxBodyBytes: 1 << 20}}
	relay := services.NewRelayService(cfg.Relay, logger.NewNop(), metrics.Noop{})
	relayServer := httptest.NewServer(api.NewRouter(cfg, relay, logger.NewNop(), metrics.Noop{}, nil))
	t.Cleanup(relayServer.Close)
	h.relayURL = relayServer.URL

	return h
}

// run executes one CLI invocation; every invocation is a fresh session over
// the same database
func (h *harness) run(args ...string) (stdout, stderr string, err error) {
	h.t.Helper()
	var out, errOut bytes.Buffer

	root, a := newRootCommand(Options{
		LoadConfig: func() (*config.ClientConfig, error) {
			return &config.ClientConfig{
				RelayURL:     h.relayURL,
				DatabasePath: h.database,
				UserID:       h.userID,
				Logging:      config.LoggingConfig{Level: "disabled"},
			}, nil
		},
	})
	root.SetArgs(append(args, "--no-color"))
	root.SetOut(&out)
	root.SetErr(&errOut)

	err = root.ExecuteContext(context.Background())
	require.NoError(h.t, a.close())
	return out.String(), errOut.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, stderr, err := h.run(args...)
	require.NoError(h.t, err, stderr)
	return out
}

func TestSend_ResolvesEnvironmentAndRecordsHistory(t *testing.T) {
	h := newHarness(t)

	h.mustRun("env", "create", "dev")
	h.mustRun("env", "set", "dev", "base="+h.upstream)

	out := h.mustRun("send", "{{base}}/items", "-q", "limit=2", "--env", "dev", "-i")
	assert.Contains(t, out, "200 OK")
	assert.Contains(t, out, "content-type: application/json")
	assert.Contains(t, out, `"limit": "2"`)
	assert.Contains(t, out, `"path": "/items"`)

	history := h.mustRun("history", "list")
	assert.Contains(t, history, "{{base}}/items")
	assert.Contains(t, history, "GET")

	replayed := h.mustRun("history", "replay", "1", "--env", "dev")
	assert.Contains(t, replayed, "200 OK")
	assert.Equal(t, int64(2), h.calls.Load())
}

func TestSend_JSONOutput(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("send", h.upstream+"/json", "-X", "post", "-d", `{"title":"foo"}`, "-o", "json")

	var outcome models.Outcome
	require.NoError(t, json.Unmarshal([]byte(out), &outcome))
	assert.Equal(t, models.StateSucceeded, outcome.State)
	require.NotNil(t, outcome.Result)
	assert.Equal(t, 200, outcome.Result.Status)
	assert.Regexp(t, `^\d+ ms$`, outcome.Result.Time)
	assert.JSONEq(t, `{"path":"/json","limit":"","method":"POST"}`, string(outcome.Result.Data))
}

func TestSend_MalformedBodyNeverReachesUpstream(t *testing.T) {
	h := newHarness(t)

	_, stderr, err := h.run("send", h.upstream, "-X", "POST", "-d", "{bad")
	assert.ErrorIs(t, err, ErrRequestFailed)
	assert.Contains(t, stderr, "request body is not valid JSON")
	assert.Zero(t, h.calls.Load())
}

func TestSend_UnknownEnvironment(t *testing.T) {
	h := newHarness(t)

	_, _, err := h.run("send", h.upstream, "--env", "nope")
	assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeNotFound))
	assert.Zero(t, h.calls.Load())
}

func TestSend_InvalidFlags(t *testing.T) {
	h := newHarness(t)

	_, _, err := h.run("send", h.upstream, "-H", "no-colon")
	assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeValidation))

	_, _, err = h.run("send", h.upstream, "-X", "TRACE")
	assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeValidation))

	_, _, err = h.run("send", h.upstream, "-o", "xml")
	assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeValidation))
}

func TestCollections_SaveListAndRun(t *testing.T) {
	h := newHarness(t)

	h.mustRun("env", "create", "dev")
	h.mustRun("env", "set", "dev", "base="+h.upstream)
	h.mustRun("collections", "create", "Products")
	h.mustRun("collections", "save", "Products", "list products", "{{base}}/products", "-q", "limit=10")
	assert.Zero(t, h.calls.Load())

	list := h.mustRun("collections", "list")
	assert.Contains(t, list, "Products")
	assert.Contains(t, list, "list products")
	assert.Contains(t, list, "{{base}}/products")

	out := h.mustRun("collections", "run", "Products", "list products", "--env", "dev")
	assert.Contains(t, out, `"limit": "10"`)
	assert.Equal(t, int64(1), h.calls.Load())

	_, _, err := h.run("collections", "run", "Products", "missing")
	assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeNotFound))
}

func TestEnv_ImportExportKeepsOrderAndActiveFlags(t *testing.T) {
	h := newHarness(t)

	path := filepath.Join(t.TempDir(), "staging.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`name: staging
variables:
  - key: base
    value: https://staging.example.com
  - key: token
    value: secret
    active: false
  - key: base
    value: https://shadowed.example.com
`), 0o600))

	out := h.mustRun("env", "import", path)
	assert.Contains(t, out, "Imported 3 variables into staging")

	exported := h.mustRun("env", "export", "staging")
	file, err := readEnvironmentFile(strings.NewReader(exported))
	require.NoError(t, err)
	assert.Equal(t, "staging", file.Name)

	vars := file.keyValues()
	require.Len(t, vars, 3)
	assert.Equal(t, "https://staging.example.com", vars[0].Value)
	assert.False(t, vars[1].Active)
	assert.Equal(t, "https://shadowed.example.com", vars[2].Value)

	// first occurrence wins during substitution
	h.mustRun("env", "set", "staging", "base="+h.upstream)
	sent := h.mustRun("send", "{{base}}/first", "--env", "staging")
	assert.Contains(t, sent, `"path": "/first"`)
}

func TestEnv_SetUnsetAndDelete(t *testing.T) {
	h := newHarness(t)

	h.mustRun("env", "create", "dev")
	h.mustRun("env", "set", "dev", "a=1", "b=2")
	h.mustRun("env", "set", "dev", "--unset", "a", "--disable", "b")

	out := h.mustRun("env", "show", "dev", "-o", "json")
	var env models.Environment
	require.NoError(t, json.Unmarshal([]byte(out), &env))
	require.Len(t, env.Variables, 1)
	assert.Equal(t, "b", env.Variables[0].Key)
	assert.False(t, env.Variables[0].Active)

	h.mustRun("env", "delete", "dev")
	assert.Contains(t, h.mustRun("env", "list"), "No environments yet")
}

func TestCommandsNeedAUser(t *testing.T) {
	h := newHarness(t)
	h.userID = ""

	for _, args := range [][]string{
		{"history", "list"},
		{"collections", "list"},
		{"collections", "create", "x"},
		{"env", "create", "dev"},
	} {
		_, _, err := h.run(args...)
		assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeUnauthorized), strings.Join(args, " "))
	}

	// sending works without a user, it just is not recorded
	out := h.mustRun("send", h.upstream)
	assert.Contains(t, out, "200 OK")
}

func TestPickHistoryEntry(t *testing.T) {
	entries := []models.HistoryEntry{{ID: "a"}, {ID: "b"}}

	got, err := pickHistoryEntry(entries, "2")
	require.NoError(t, err)
	assert.Equal(t, "b", got.ID)

	got, err = pickHistoryEntry(entries, "a")
	require.NoError(t, err)
	assert.Equal(t, "a", got.ID)

	_, err = pickHistoryEntry(entries, "3")
	assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeNotFound))
	_, err = pickHistoryEntry(entries, "zzz")
	assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeNotFound))
}

func TestFormatData(t *testing.T) {
	setColor(false)

	assert.Equal(t, "<html>hi</html>", formatData([]byte(`"<html>hi</html>"`)))
	assert.Equal(t, "{\n  \"b\": 1,\n  \"a\": 2\n}", formatData([]byte(`{"b":1,"a":2}`)))
}

var ansiCodes = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func TestPrintVariables_ColoredRowsStayAligned(t *testing.T) {
	previous := color.NoColor
	color.NoColor = false
	t.Cleanup(func() { color.NoColor = previous })

	var buf bytes.Buffer
	printVariables(&buf, models.Environment{
		Name: "dev",
		Variables: models.KeyValueSet{
			{ID: "1", Key: "base", Value: "https://a", Active: true},
			{ID: "2", Key: "token", Value: "abc", Active: false},
		},
	})

	var baseLine, tokenLine string
	for _, line := range strings.Split(ansiCodes.ReplaceAllString(buf.String(), ""), "\n") {
		switch {
		case strings.Contains(line, "https://a"):
			baseLine = line
		case strings.Contains(line, "abc"):
			tokenLine = line
		}
	}
	require.NotEmpty(t, baseLine)
	require.NotEmpty(t, tokenLine)

	assert.Equal(t, strings.Index(baseLine, "https://a"), strings.Index(tokenLine, "abc"))
	assert.Equal(t, strings.Index(baseLine, "active"), strings.Index(tokenLine, "inactive"))
}

func TestPrintHistory_RendersTable(t *testing.T) {
	setColor(false)

	var buf bytes.Buffer
	printHistory(&buf, []models.HistoryEntry{
		{ID: "h1", Method: models.MethodPost, Status: 201, DurationMS: 12, URL: "{{base}}/items"},
	})

	out := buf.String()
	assert.Contains(t, out, "Method")
	assert.Contains(t, out, "POST")
	assert.Contains(t, out, "201")
	assert.Contains(t, out, "12 ms")
	assert.Contains(t, out, "{{base}}/items")
}
