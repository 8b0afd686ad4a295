package repository

import (
	"context"

	"github.com/igorsal/routewarden/internal/interfaces"
	"github.com/igorsal/routewarden/internal/models"
	"github.com/igorsal/routewarden/internal/store"
	pkgerrors "github.com/igorsal/routewarden/pkg/errors"
)

type HistoryRepository struct {
	store interfaces.RecordStore
}

var _ interfaces.HistoryRepository = (*HistoryRepository)(nil)

func NewHistoryRepository(s interfaces.RecordStore) *HistoryRepository {
	return &HistoryRepository{store: s}
}

// Append records an executed request
func (r *HistoryRepository) Append(ctx context.Context, entry models.HistoryEntry) (*models.HistoryEntry, error) {
	if entry.UserID == "" {
		return nil, pkgerrors.NewValidationError("history entry requires a user")
	}

	row := interfaces.Row{
		"user_id":      entry.UserID,
		"url":          entry.URL,
		"method":       string(entry.Method),
		"headers":      nonNil(entry.Headers),
		"query_params": nonNil(entry.QueryParams),
		"body":         entry.Body,
		"status":       int64(entry.Status),
		"duration_ms":  entry.DurationMS,
	}
	if entry.ID != "" {
		row["id"] = entry.ID
	}
	if !entry.CreatedAt.IsZero() {
		row["created_at"] = entry.CreatedAt
	}

	stored, err := r.store.Insert(ctx, store.TableHistory, row)
	if err != nil {
		return nil, pkgerrors.NewPersistenceError(store.TableHistory, err)
	}
	return historyFromRow(stored)
}

// Recent returns the user's newest entries first
func (r *HistoryRepository) Recent(ctx context.Context, userID string, limit int) ([]models.HistoryEntry, error) {
	rows, err := r.store.List(ctx, store.TableHistory,
		interfaces.Row{"user_id": userID},
		interfaces.Order{Column: "created_at", Descending: true},
		limit,
	)
	if err != nil {
		return nil, err
	}

	entries := make([]models.HistoryEntry, 0, len(rows))
	for _, row := range rows {
		entry, err := historyFromRow(row)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}

func historyFromRow(row interfaces.Row) (*models.HistoryEntry, error) {
	headers, err := keyValues(row, "headers")
	if err != nil {
		return nil, err
	}
	params, err := keyValues(row, "query_params")
	if err != nil {
		return nil, err
	}

	return &models.HistoryEntry{
		ID:          str(row, "id"),
		UserID:      str(row, "user_id"),
		URL:         str(row, "url"),
		Method:      models.Method(str(row, "method")),
		Headers:     headers,
		QueryParams: params,
		Body:        str(row, "body"),
		Status:      int(int64Of(row, "status")),
		DurationMS:  int64Of(row, "duration_ms"),
		CreatedAt:   timeOf(row, "created_at"),
	}, nil
}
