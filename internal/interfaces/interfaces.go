package interfaces

import (
	"context"

	"github.com/igorsal/routewarden/internal/models"
)

// RelayService performs outbound calls on behalf of the client
type RelayService interface {
	Forward(ctx context.Context, req models.ProxyRequest) (*models.ProxyResponse, error)
}

// RelayClient dispatches a prepared request to a relay
type RelayClient interface {
	Dispatch(ctx context.Context, req models.ProxyRequest) (*models.ProxyResponse, error)
}

// Row is one record in the record store, keyed by column name
type Row map[string]any

// Order selects the sort column of a List call
type Order struct {
	Column     string
	Descending bool
}

// RecordStore is the generic CRUD backend behind history, collections and environments
type RecordStore interface {
	List(ctx context.Context, table string, filter Row, order Order, limit int) ([]Row, error)
	Insert(ctx context.Context, table string, row Row) (Row, error)
	Update(ctx context.Context, table string, id string, patch Row) error
	Delete(ctx context.Context, table string, id string) error
}

// HistoryRepository stores executed requests
type HistoryRepository interface {
	Append(ctx context.Context, entry models.HistoryEntry) (*models.HistoryEntry, error)
	Recent(ctx context.Context, userID string, limit int) ([]models.HistoryEntry, error)
}

// CollectionRepository stores collections and their saved requests
type CollectionRepository interface {
	List(ctx context.Context, userID string) ([]models.Collection, error)
	Create(ctx context.Context, userID, name string) (*models.Collection, error)
	AddItem(ctx context.Context, item models.CollectionItem) (*models.CollectionItem, error)
}

// EnvironmentRepository stores environments
type EnvironmentRepository interface {
	List(ctx context.Context, userID string) ([]models.Environment, error)
	Create(ctx context.Context, userID, name string) (*models.Environment, error)
	UpdateVariables(ctx context.Context, id string, variables models.KeyValueSet) error
	Delete(ctx context.Context, id string) error
}

// Logger defines the logging interface
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, err error, fields ...interface{})
	Fatal(msg string, err error, fields ...interface{})
}

// MetricsCollector defines the interface for collecting metrics
type MetricsCollector interface {
	IncrementCounter(name string, labels map[string]string)
	AddCounter(name string, value float64, labels map[string]string)
	RecordDuration(name string, duration float64, labels map[string]string)
	SetGauge(name string, value float64, labels map[string]string)
}

// CircuitBreaker defines the interface for circuit breaker pattern
type CircuitBreaker interface {
	Execute(req func() (interface{}, error)) (interface{}, error)
	Name() string
	State() string
}
