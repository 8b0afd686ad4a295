package store

import (
	"context"

	"github.com/igorsal/routewarden/internal/interfaces"
	pkgerrors "github.com/igorsal/routewarden/pkg/errors"
)

// GuardedStore routes every call through a circuit breaker. Only backend
// failures count against the breaker; caller mistakes such as unknown
// columns or missing ids pass through without tripping it.
type GuardedStore struct {
	inner   interfaces.RecordStore
	breaker interfaces.CircuitBreaker
}

var _ interfaces.RecordStore = (*GuardedStore)(nil)

func NewGuardedStore(inner interfaces.RecordStore, breaker interfaces.CircuitBreaker) *GuardedStore {
	return &GuardedStore{inner: inner, breaker: breaker}
}

func (g *GuardedStore) List(ctx context.Context, table string, filter interfaces.Row, order interfaces.Order, limit int) ([]interfaces.Row, error) {
	var rows []interfaces.Row
	err := g.run(func() error {
		var err error
		rows, err = g.inner.List(ctx, table, filter, order, limit)
		return err
	})
	return rows, err
}

func (g *GuardedStore) Insert(ctx context.Context, table string, row interfaces.Row) (interfaces.Row, error) {
	var stored interfaces.Row
	err := g.run(func() error {
		var err error
		stored, err = g.inner.Insert(ctx, table, row)
		return err
	})
	return stored, err
}

func (g *GuardedStore) Update(ctx context.Context, table string, id string, patch interfaces.Row) error {
	return g.run(func() error {
		return g.inner.Update(ctx, table, id, patch)
	})
}

func (g *GuardedStore) Delete(ctx context.Context, table string, id string) error {
	return g.run(func() error {
		return g.inner.Delete(ctx, table, id)
	})
}

func (g *GuardedStore) run(op func() error) error {
	var callerErr error
	_, err := g.breaker.Execute(func() (interface{}, error) {
		err := op()
		if pkgerrors.IsType(err, pkgerrors.ErrorTypeValidation) || pkgerrors.IsType(err, pkgerrors.ErrorTypeNotFound) {
			callerErr = err
			return nil, nil
		}
		return nil, err
	})
	if err != nil {
		return err
	}
	return callerErr
}
