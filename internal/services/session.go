package services

import (
	"context"
	"sort"
	"sync"

	"github.com/igorsal/routewarden/internal/interfaces"
	"github.com/igorsal/routewarden/internal/models"
	pkgerrors "github.com/igorsal/routewarden/pkg/errors"
)

// HistoryLimit is how many history entries a session keeps loaded
const HistoryLimit = 20

// Session is the client's state container: the one request draft, the
// environments with the active selection, the signed in user, the loaded
// history and collections and the outcome of the latest send. All reads
// return copies; all writes replace state under the session lock.
type Session struct {
	mu sync.Mutex

	draft               models.RequestDraft
	environments        []models.Environment
	activeEnvironmentID string
	user                *models.User
	history             []models.HistoryEntry
	collections         []models.Collection
	outcome             models.Outcome
	seq                 uint64

	pending sync.WaitGroup

	relay       interfaces.RelayClient
	historyRepo interfaces.HistoryRepository
	collectRepo interfaces.CollectionRepository
	envRepo     interfaces.EnvironmentRepository
	logger      interfaces.Logger
	metrics     interfaces.MetricsCollector
}

// NewSession creates a session holding the default draft and no user
func NewSession(
	relay interfaces.RelayClient,
	historyRepo interfaces.HistoryRepository,
	collectRepo interfaces.CollectionRepository,
	envRepo interfaces.EnvironmentRepository,
	logger interfaces.Logger,
	metrics interfaces.MetricsCollector,
) *Session {
	return &Session{
		draft:       models.DefaultDraft(),
		outcome:     models.Outcome{State: models.StateIdle},
		relay:       relay,
		historyRepo: historyRepo,
		collectRepo: collectRepo,
		envRepo:     envRepo,
		logger:      logger,
		metrics:     metrics,
	}
}

// Draft returns a copy of the request being edited
func (s *Session) Draft() models.RequestDraft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.Clone()
}

// SetURL replaces the draft URL as typed, placeholders included
func (s *Session) SetURL(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft.URL = url
}

// SetMethod sets the draft method. Anything outside the supported methods is
// a validation error and leaves the draft unchanged.
func (s *Session) SetMethod(method string) error {
	m, err := models.ParseMethod(method)
	if err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft.Method = m
	return nil
}

// SetBody replaces the raw draft body
func (s *Session) SetBody(body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft.Body = body
}

// AddHeader appends an empty, active header row and returns it
func (s *Session) AddHeader() models.KeyValuePair {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.Headers.Add()
}

// UpdateHeader edits one field of the header row with the given id
func (s *Session) UpdateHeader(id string, field models.Field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.Headers.Update(id, field, value)
}

// RemoveHeader drops the header row with the given id. Unknown ids are ignored.
func (s *Session) RemoveHeader(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft.Headers.Remove(id)
}

// AddParam appends an empty, active query parameter row and returns it
func (s *Session) AddParam() models.KeyValuePair {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.QueryParams.Add()
}

// UpdateParam edits one field of the query parameter row with the given id
func (s *Session) UpdateParam(id string, field models.Field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.QueryParams.Update(id, field, value)
}

// RemoveParam drops the query parameter row with the given id. Unknown ids
// are ignored.
func (s *Session) RemoveParam(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft.QueryParams.Remove(id)
}

// LoadRequest overwrites every draft field from a history entry or saved
// request. Missing sets load as empty sets and an unknown method as GET.
func (s *Session) LoadRequest(d models.RequestDraft) {
	method, err := models.ParseMethod(string(d.Method))
	if err != nil {
		s.logger.Warn("Loaded request has unsupported method, using GET", "method", d.Method)
		method = models.MethodGet
	}

	loaded := models.RequestDraft{
		URL:         d.URL,
		Method:      method,
		Headers:     d.Headers.Clone(),
		QueryParams: d.QueryParams.Clone(),
		Body:        d.Body,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = loaded
}

// SetUser stores a copy of user as the signed-in identity. nil signs out.
func (s *Session) SetUser(user *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user == nil {
		s.user = nil
		return
	}
	u := *user
	s.user = &u
}

// User returns a copy of the signed-in identity, or nil
func (s *Session) User() *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userLocked()
}

func (s *Session) userLocked() *models.User {
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *Session) requireUser() (*models.User, error) {
	user := s.User()
	if user == nil {
		return nil, pkgerrors.NewUnauthorizedError("sign in required")
	}
	return user, nil
}

// Environments returns a copy of the loaded environments
func (s *Session) Environments() []models.Environment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneEnvironments(s.environments)
}

// ActiveEnvironmentID returns the selected id, which may no longer exist
func (s *Session) ActiveEnvironmentID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeEnvironmentID
}

// SetActiveEnvironment selects an environment by id. An empty id clears the
// selection. The id is not checked against the loaded list.
func (s *Session) SetActiveEnvironment(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeEnvironmentID = id
}

// ActiveEnvironment looks up the selected environment. A dangling id yields nil.
func (s *Session) ActiveEnvironment() *models.Environment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeEnvironmentLocked()
}

func (s *Session) activeEnvironmentLocked() *models.Environment {
	if s.activeEnvironmentID == "" {
		return nil
	}
	for _, env := range s.environments {
		if env.ID == s.activeEnvironmentID {
			e := env
			e.Variables = env.Variables.Clone()
			return &e
		}
	}
	return nil
}

// FetchEnvironments reloads the user's environments ordered by name. Without
// a user, or when the store fails, the loaded list is kept.
func (s *Session) FetchEnvironments(ctx context.Context) []models.Environment {
	user := s.User()
	if user == nil {
		return s.Environments()
	}

	envs, err := s.envRepo.List(ctx, user.ID)
	if err != nil {
		s.logger.Error("Failed to fetch environments", err, "user_id", user.ID)
		return s.Environments()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.environments = envs
	return cloneEnvironments(envs)
}

// CreateEnvironment stores an empty environment and makes it the active one.
// A store failure is logged and yields nil.
func (s *Session) CreateEnvironment(ctx context.Context, name string) (*models.Environment, error) {
	user, err := s.requireUser()
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, pkgerrors.NewValidationError("environment name is required")
	}

	env, err := s.envRepo.Create(ctx, user.ID, name)
	if err != nil {
		s.persistenceFailed("environments", "insert", err)
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.environments = append(cloneEnvironments(s.environments), *env)
	sortEnvironments(s.environments)
	s.activeEnvironmentID = env.ID

	created := *env
	created.Variables = env.Variables.Clone()
	return &created, nil
}

// UpdateEnvironment replaces the variables locally right away, then writes
// them to the store. A store failure is logged and the local edit is kept.
func (s *Session) UpdateEnvironment(ctx context.Context, id string, variables models.KeyValueSet) {
	vars := variables.Clone()

	s.mu.Lock()
	envs := cloneEnvironments(s.environments)
	for i := range envs {
		if envs[i].ID == id {
			envs[i].Variables = vars.Clone()
		}
	}
	s.environments = envs
	s.mu.Unlock()

	if err := s.envRepo.UpdateVariables(ctx, id, vars); err != nil {
		s.persistenceFailed("environments", "update", err)
	}
}

// DeleteEnvironment removes an environment. The active selection is left as
// is; if it pointed at the deleted environment it now resolves to none.
func (s *Session) DeleteEnvironment(ctx context.Context, id string) {
	s.mu.Lock()
	kept := make([]models.Environment, 0, len(s.environments))
	for _, env := range s.environments {
		if env.ID != id {
			kept = append(kept, env)
		}
	}
	s.environments = kept
	s.mu.Unlock()

	if err := s.envRepo.Delete(ctx, id); err != nil {
		s.persistenceFailed("environments", "delete", err)
	}
}

// History returns a copy of the loaded history, newest first
func (s *Session) History() []models.HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.HistoryEntry(nil), s.history...)
}

// FetchHistory reloads the newest HistoryLimit entries of the user
func (s *Session) FetchHistory(ctx context.Context) []models.HistoryEntry {
	user := s.User()
	if user == nil {
		return s.History()
	}

	entries, err := s.historyRepo.Recent(ctx, user.ID, HistoryLimit)
	if err != nil {
		s.logger.Error("Failed to fetch history", err, "user_id", user.ID)
		return s.History()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = entries
	return append([]models.HistoryEntry(nil), entries...)
}

// Collections returns a copy of the loaded collections
func (s *Session) Collections() []models.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Collection(nil), s.collections...)
}

// FetchCollections reloads the user's collections with their items
func (s *Session) FetchCollections(ctx context.Context) []models.Collection {
	user := s.User()
	if user == nil {
		return s.Collections()
	}

	collections, err := s.collectRepo.List(ctx, user.ID)
	if err != nil {
		s.logger.Error("Failed to fetch collections", err, "user_id", user.ID)
		return s.Collections()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections = collections
	return append([]models.Collection(nil), collections...)
}

// CreateCollection stores an empty collection. A store failure is logged and yields nil.
func (s *Session) CreateCollection(ctx context.Context, name string) (*models.Collection, error) {
	user, err := s.requireUser()
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, pkgerrors.NewValidationError("collection name is required")
	}

	c, err := s.collectRepo.Create(ctx, user.ID, name)
	if err != nil {
		s.persistenceFailed("collections", "insert", err)
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections = append(append([]models.Collection(nil), s.collections...), *c)
	return c, nil
}

// SaveRequestToCollection stores the current draft, as typed, under name in
// the given collection and reloads the collections
func (s *Session) SaveRequestToCollection(ctx context.Context, collectionID, name string) (*models.CollectionItem, error) {
	if _, err := s.requireUser(); err != nil {
		return nil, err
	}
	if collectionID == "" {
		return nil, pkgerrors.NewValidationError("collection is required")
	}
	if name == "" {
		return nil, pkgerrors.NewValidationError("request name is required")
	}

	draft := s.Draft()
	item, err := s.collectRepo.AddItem(ctx, models.CollectionItem{
		CollectionID: collectionID,
		Name:         name,
		URL:          draft.URL,
		Method:       draft.Method,
		Headers:      draft.Headers,
		QueryParams:  draft.QueryParams,
		Body:         draft.Body,
	})
	if err != nil {
		s.persistenceFailed("collection_items", "insert", err)
		return nil, nil
	}

	s.FetchCollections(ctx)
	return item, nil
}

func (s *Session) persistenceFailed(table, operation string, err error) {
	s.metrics.IncrementCounter("persistence_failures_total", map[string]string{"table": table, "operation": operation})
	s.logger.Error("Record store write failed", err, "table", table, "operation", operation)
}

func cloneEnvironments(envs []models.Environment) []models.Environment {
	if envs == nil {
		return nil
	}
	out := make([]models.Environment, len(envs))
	for i, env := range envs {
		out[i] = env
		out[i].Variables = env.Variables.Clone()
	}
	return out
}

func sortEnvironments(envs []models.Environment) {
	sort.SliceStable(envs, func(i, j int) bool {
		return envs[i].Name < envs[j].Name
	})
}
