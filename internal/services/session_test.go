package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/igorsal/routewarden/internal/models"
	pkgerrors "github.com/igorsal/routewarden/pkg/errors"
)

func TestSession_StartsWithDefaultDraft(t *testing.T) {
	f := newFixture(t, okRelay(), nil)

	assert.Equal(t, models.DefaultDraft().URL, f.session.Draft().URL)
	assert.Equal(t, models.StateIdle, f.session.Outcome().State)
	assert.Nil(t, f.session.User())
	assert.Nil(t, f.session.ActiveEnvironment())
}

func TestSession_DraftEditing(t *testing.T) {
	f := newFixture(t, okRelay(), nil)
	s := f.session

	assert.Error(t, s.SetMethod("TRACE"))
	require.NoError(t, s.SetMethod("post"))

	h := s.AddHeader()
	require.NoError(t, s.UpdateHeader(h.ID, models.FieldKey, "X-Trace"))
	require.NoError(t, s.UpdateHeader(h.ID, models.FieldValue, "abc"))

	p := s.AddParam()
	require.NoError(t, s.UpdateParam(p.ID, models.FieldKey, "q"))
	s.RemoveParam(p.ID)

	draft := s.Draft()
	assert.Equal(t, models.MethodPost, draft.Method)
	assert.Equal(t, "X-Trace", draft.Headers[len(draft.Headers)-1].Key)
	assert.Len(t, draft.QueryParams, 1)

	draft.Headers[0].Value = "mutated"
	assert.NotEqual(t, "mutated", s.Draft().Headers[0].Value)

	s.RemoveHeader(h.ID)
	assert.Len(t, s.Draft().Headers, 1)
}

func TestSession_MutatorContracts(t *testing.T) {
	f := newFixture(t, okRelay(), nil)
	s := f.session

	require.NoError(t, s.SetMethod("PUT"))
	err := s.SetMethod("TRACE")
	assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeValidation))
	assert.Equal(t, models.MethodPut, s.Draft().Method)

	h := s.AddHeader()
	assert.NotEmpty(t, h.ID)
	assert.Empty(t, h.Key)
	assert.True(t, h.Active)

	before := s.Draft()
	s.RemoveHeader("missing")
	s.RemoveParam("missing")
	assert.Equal(t, before, s.Draft())

	user := &models.User{ID: "u1"}
	s.SetUser(user)
	user.ID = "changed"
	require.NotNil(t, s.User())
	assert.Equal(t, "u1", s.User().ID)

	s.SetUser(nil)
	assert.Nil(t, s.User())
}

func TestSession_LoadRequestOverwritesEverything(t *testing.T) {
	f := newFixture(t, okRelay(), nil)

	f.session.LoadRequest(models.RequestDraft{URL: "https://b.test", Method: "DELETE"})

	draft := f.session.Draft()
	assert.Equal(t, "https://b.test", draft.URL)
	assert.Equal(t, models.MethodDelete, draft.Method)
	assert.NotNil(t, draft.Headers)
	assert.Empty(t, draft.Headers)
	assert.NotNil(t, draft.QueryParams)
	assert.Empty(t, draft.QueryParams)
	assert.Equal(t, "", draft.Body)

	f.session.LoadRequest(models.RequestDraft{URL: "https://c.test", Method: "BREW"})
	assert.Equal(t, models.MethodGet, f.session.Draft().Method)
}

func TestSession_EnvironmentLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, okRelay(), nil)
	s := f.session

	_, err := s.CreateEnvironment(ctx, "prod")
	assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeUnauthorized))

	s.SetUser(&models.User{ID: "u1", Email: "dev@example.com"})

	prod, err := s.CreateEnvironment(ctx, "prod")
	require.NoError(t, err)
	dev, err := s.CreateEnvironment(ctx, "dev")
	require.NoError(t, err)

	assert.Equal(t, dev.ID, s.ActiveEnvironmentID())
	envs := s.Environments()
	require.Len(t, envs, 2)
	assert.Equal(t, "dev", envs[0].Name)

	s.SetActiveEnvironment(prod.ID)
	vars := models.NewKeyValueSet("base", "https://prod.test")
	s.UpdateEnvironment(ctx, prod.ID, vars)
	assert.Equal(t, vars, s.ActiveEnvironment().Variables)

	fresh := newFixture(t, okRelay(), f.store)
	fresh.session.SetUser(&models.User{ID: "u1"})
	reloaded := fresh.session.FetchEnvironments(ctx)
	require.Len(t, reloaded, 2)
	assert.Equal(t, "prod", reloaded[1].Name)
	assert.Equal(t, vars, reloaded[1].Variables)
}

func TestSession_DeletedActiveEnvironmentMeansNone(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, okRelay(), nil)
	s := f.session
	s.SetUser(&models.User{ID: "u1"})

	env, err := s.CreateEnvironment(ctx, "dev")
	require.NoError(t, err)
	s.UpdateEnvironment(ctx, env.ID, models.NewKeyValueSet("base", "https://dev.test"))
	require.NotNil(t, s.ActiveEnvironment())

	s.DeleteEnvironment(ctx, env.ID)

	assert.Equal(t, env.ID, s.ActiveEnvironmentID())
	assert.Nil(t, s.ActiveEnvironment())

	s.SetURL("{{base}}/x")
	outcome := s.Send(ctx)
	s.Wait()
	assert.Equal(t, models.StateSucceeded, outcome.State)
	assert.Equal(t, "{{base}}/x", f.relay.last().URL)
}

func TestSession_UnknownActiveIDIsNotAnError(t *testing.T) {
	f := newFixture(t, okRelay(), nil)
	f.session.SetActiveEnvironment("never-loaded")

	assert.Nil(t, f.session.ActiveEnvironment())
	assert.Equal(t, models.StateSucceeded, f.session.Send(context.Background()).State)
}

func TestSession_UpdateEnvironmentKeepsLocalEditOnStoreFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, okRelay(), brokenStore{})
	s := f.session
	s.environments = []models.Environment{{ID: "e1", Name: "dev"}}
	s.SetActiveEnvironment("e1")

	vars := models.NewKeyValueSet("a", "1")
	s.UpdateEnvironment(ctx, "e1", vars)

	assert.Equal(t, vars, s.ActiveEnvironment().Variables)
}

func TestSession_CreateEnvironmentStoreFailureYieldsNil(t *testing.T) {
	f := newFixture(t, okRelay(), brokenStore{})
	f.session.SetUser(&models.User{ID: "u1"})

	env, err := f.session.CreateEnvironment(context.Background(), "dev")
	assert.NoError(t, err)
	assert.Nil(t, env)
	assert.Empty(t, f.session.Environments())
}

func TestSession_Collections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, okRelay(), nil)
	s := f.session

	_, err := s.CreateCollection(ctx, "Products")
	assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeUnauthorized))

	s.SetUser(&models.User{ID: "u1"})
	c, err := s.CreateCollection(ctx, "Products")
	require.NoError(t, err)
	require.NotNil(t, c)

	s.LoadRequest(emptyDraft("{{base}}/products", models.MethodPost, `{"title":"foo"}`))
	item, err := s.SaveRequestToCollection(ctx, c.ID, "create product")
	require.NoError(t, err)
	require.NotNil(t, item)

	_, err = s.SaveRequestToCollection(ctx, c.ID, "")
	assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeValidation))

	collections := s.Collections()
	require.Len(t, collections, 1)
	require.Len(t, collections[0].Items, 1)
	saved := collections[0].Items[0]
	assert.Equal(t, "create product", saved.Name)
	assert.Equal(t, "{{base}}/products", saved.URL)

	s.LoadRequest(models.DefaultDraft())
	s.LoadRequest(saved.Draft())
	assert.Equal(t, models.MethodPost, s.Draft().Method)
	assert.Equal(t, `{"title":"foo"}`, s.Draft().Body)
}

func TestSession_FetchWithoutUserSkipsStore(t *testing.T) {
	f := newFixture(t, okRelay(), brokenStore{})
	ctx := context.Background()

	assert.Empty(t, f.session.FetchHistory(ctx))
	assert.Empty(t, f.session.FetchCollections(ctx))
	assert.Empty(t, f.session.FetchEnvironments(ctx))
}
