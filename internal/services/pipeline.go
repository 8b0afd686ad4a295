package services

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/igorsal/routewarden/internal/models"
	"github.com/igorsal/routewarden/internal/vars"
	pkgerrors "github.com/igorsal/routewarden/pkg/errors"
)

// BuildProxyRequest turns a draft into the relay payload: the URL, header
// values, param values and body are resolved against env, query params are
// merged into the URL and also sent as params, and every method except GET
// carries the body as JSON (blank means {}).
func BuildProxyRequest(draft models.RequestDraft, env *models.Environment) (models.ProxyRequest, error) {
	resolvedURL := vars.Resolve(draft.URL, env)
	headers := vars.BuildMapping(draft.Headers, env)
	params := vars.BuildMapping(draft.QueryParams, env)

	req := models.ProxyRequest{
		URL:     resolvedURL,
		Method:  string(draft.Method),
		Headers: headers,
		Params:  params,
	}

	if merged, err := MergeQuery(resolvedURL, params); err == nil {
		req.URL = merged
	}

	if draft.Method == models.MethodGet {
		return req, nil
	}

	body := strings.TrimSpace(vars.Resolve(draft.Body, env))
	if body == "" {
		body = "{}"
	}

	var parsed any
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		return models.ProxyRequest{}, pkgerrors.NewMalformedBodyError(err)
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, []byte(body)); err != nil {
		return models.ProxyRequest{}, pkgerrors.NewMalformedBodyError(err)
	}
	req.Body = compact.Bytes()

	return req, nil
}

// Send executes the current draft. It moves the session to Sending, builds
// the request, calls the relay and commits Succeeded or Failed, unless a
// newer Send started meanwhile, in which case this result is dropped. The
// returned outcome is always this invocation's own.
//
// With a signed in user every completed relay call is appended to history in
// the background; see Wait.
func (s *Session) Send(ctx context.Context) models.Outcome {
	start := time.Now()

	s.mu.Lock()
	s.seq++
	seq := s.seq
	draft := s.draft.Clone()
	env := s.activeEnvironmentLocked()
	user := s.userLocked()
	s.outcome = models.Outcome{State: models.StateSending}
	s.mu.Unlock()

	s.logger.Info("Sending request", "seq", seq, "method", draft.Method, "url", draft.URL)

	req, err := BuildProxyRequest(draft, env)
	if err != nil {
		return s.fail(seq, draft, err)
	}

	if missing := vars.Unresolved(req.URL); len(missing) > 0 {
		s.logger.Debug("URL still contains unresolved variables", "seq", seq, "variables", missing)
	}

	resp, err := s.relay.Dispatch(ctx, req)
	if err != nil {
		return s.fail(seq, draft, err)
	}

	elapsed := time.Since(start)
	result := &models.ExecutionResult{
		Status:     resp.Status,
		StatusText: resp.StatusText,
		Headers:    resp.Headers,
		Data:       resp.Data,
		Time:       FormatMillis(elapsed),
		Size:       resp.Size,
		RelayTime:  resp.Time,
		DurationMS: elapsed.Round(time.Millisecond).Milliseconds(),
	}
	outcome := models.Outcome{State: models.StateSucceeded, Result: result}

	s.commit(seq, draft.Method, outcome)

	if user != nil {
		s.recordHistory(ctx, *user, draft, result)
	}

	s.logger.Info("Request completed",
		"seq", seq,
		"status", result.Status,
		"time", result.Time,
		"relay_time", result.RelayTime,
		"size", result.Size,
	)
	return outcome
}

// Outcome returns the committed state of the latest send
func (s *Session) Outcome() models.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome
}

// Wait blocks until background history writes have finished
func (s *Session) Wait() {
	s.pending.Wait()
}

func (s *Session) fail(seq uint64, draft models.RequestDraft, err error) models.Outcome {
	outcome := models.Outcome{State: models.StateFailed, Error: failureMessage(err)}
	s.logger.Error("Request failed", err, "seq", seq, "method", draft.Method, "url", draft.URL)
	s.commit(seq, draft.Method, outcome)
	return outcome
}

// commit stores outcome if seq is still the latest send
func (s *Session) commit(seq uint64, method models.Method, outcome models.Outcome) {
	s.mu.Lock()
	latest := seq == s.seq
	if latest {
		s.outcome = outcome
	}
	s.mu.Unlock()

	if !latest {
		s.metrics.IncrementCounter("pipeline_stale_responses_total", map[string]string{"state": string(outcome.State)})
		s.logger.Warn("Discarding stale response", "seq", seq, "state", outcome.State)
		return
	}
	s.metrics.IncrementCounter("pipeline_sends_total", map[string]string{"method": string(method), "state": string(outcome.State)})
}

// recordHistory appends the draft as typed, before variable substitution,
// then reloads the history list. Failures are logged only.
func (s *Session) recordHistory(ctx context.Context, user models.User, draft models.RequestDraft, result *models.ExecutionResult) {
	entry := models.HistoryEntry{
		UserID:      user.ID,
		URL:         draft.URL,
		Method:      draft.Method,
		Headers:     draft.Headers,
		QueryParams: draft.QueryParams,
		Body:        draft.Body,
		Status:      result.Status,
		DurationMS:  result.DurationMS,
	}
	bg := context.WithoutCancel(ctx)

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("History write panicked", nil, "panic", r)
			}
		}()

		if _, err := s.historyRepo.Append(bg, entry); err != nil {
			s.persistenceFailed("request_history", "insert", err)
			return
		}
		s.FetchHistory(bg)
	}()
}

func failureMessage(err error) string {
	appErr, ok := pkgerrors.AsAppError(err)
	if !ok {
		return err.Error()
	}
	if appErr.Type == pkgerrors.ErrorTypeMalformedBody {
		return appErr.Error()
	}
	if details := appErr.Details(); details != "" {
		return details
	}
	return appErr.Error()
}
