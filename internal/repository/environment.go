package repository

import (
	"context"

	"github.com/igorsal/routewarden/internal/interfaces"
	"github.com/igorsal/routewarden/internal/models"
	"github.com/igorsal/routewarden/internal/store"
	pkgerrors "github.com/igorsal/routewarden/pkg/errors"
)

type EnvironmentRepository struct {
	store interfaces.RecordStore
}

var _ interfaces.EnvironmentRepository = (*EnvironmentRepository)(nil)

func NewEnvironmentRepository(s interfaces.RecordStore) *EnvironmentRepository {
	return &EnvironmentRepository{store: s}
}

// List returns the user's environments ordered by name
func (r *EnvironmentRepository) List(ctx context.Context, userID string) ([]models.Environment, error) {
	rows, err := r.store.List(ctx, store.TableEnvironments,
		interfaces.Row{"user_id": userID},
		interfaces.Order{Column: "name"},
		0,
	)
	if err != nil {
		return nil, err
	}

	envs := make([]models.Environment, 0, len(rows))
	for _, row := range rows {
		env, err := environmentFromRow(row)
		if err != nil {
			return nil, err
		}
		envs = append(envs, *env)
	}
	return envs, nil
}

// Create inserts an environment with no variables
func (r *EnvironmentRepository) Create(ctx context.Context, userID, name string) (*models.Environment, error) {
	if userID == "" {
		return nil, pkgerrors.NewValidationError("environment requires a user")
	}
	if name == "" {
		return nil, pkgerrors.NewValidationError("environment name is required")
	}

	stored, err := r.store.Insert(ctx, store.TableEnvironments, interfaces.Row{
		"user_id":   userID,
		"name":      name,
		"variables": models.KeyValueSet{},
	})
	if err != nil {
		return nil, pkgerrors.NewPersistenceError(store.TableEnvironments, err)
	}
	return environmentFromRow(stored)
}

// UpdateVariables replaces the variables column and nothing else
func (r *EnvironmentRepository) UpdateVariables(ctx context.Context, id string, variables models.KeyValueSet) error {
	err := r.store.Update(ctx, store.TableEnvironments, id, interfaces.Row{"variables": nonNil(variables)})
	if err != nil && !pkgerrors.IsAppError(err) {
		return pkgerrors.NewPersistenceError(store.TableEnvironments, err)
	}
	return err
}

func (r *EnvironmentRepository) Delete(ctx context.Context, id string) error {
	err := r.store.Delete(ctx, store.TableEnvironments, id)
	if err != nil && !pkgerrors.IsAppError(err) {
		return pkgerrors.NewPersistenceError(store.TableEnvironments, err)
	}
	return err
}

func environmentFromRow(row interfaces.Row) (*models.Environment, error) {
	vars, err := keyValues(row, "variables")
	if err != nil {
		return nil, err
	}

	return &models.Environment{
		ID:        str(row, "id"),
		UserID:    str(row, "user_id"),
		Name:      str(row, "name"),
		Variables: vars,
		CreatedAt: timeOf(row, "created_at"),
	}, nil
}
