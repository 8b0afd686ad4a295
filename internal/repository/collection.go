package repository

import (
	"context"

	"github.com/igorsal/routewarden/internal/interfaces"
	"github.com/igorsal/routewarden/internal/models"
	"github.com/igorsal/routewarden/internal/store"
	pkgerrors "github.com/igorsal/routewarden/pkg/errors"
)

type CollectionRepository struct {
	store interfaces.RecordStore
}

var _ interfaces.CollectionRepository = (*CollectionRepository)(nil)

func NewCollectionRepository(s interfaces.RecordStore) *CollectionRepository {
	return &CollectionRepository{store: s}
}

// List returns the user's collections, oldest first, each with its items
// in the order they were saved
func (r *CollectionRepository) List(ctx context.Context, userID string) ([]models.Collection, error) {
	rows, err := r.store.List(ctx, store.TableCollections,
		interfaces.Row{"user_id": userID},
		interfaces.Order{Column: "created_at"},
		0,
	)
	if err != nil {
		return nil, err
	}

	collections := make([]models.Collection, 0, len(rows))
	for _, row := range rows {
		c := collectionFromRow(row)

		itemRows, err := r.store.List(ctx, store.TableCollectionItems,
			interfaces.Row{"collection_id": c.ID},
			interfaces.Order{Column: "created_at"},
			0,
		)
		if err != nil {
			return nil, err
		}
		for _, itemRow := range itemRows {
			item, err := itemFromRow(itemRow)
			if err != nil {
				return nil, err
			}
			c.Items = append(c.Items, *item)
		}

		collections = append(collections, c)
	}
	return collections, nil
}

func (r *CollectionRepository) Create(ctx context.Context, userID, name string) (*models.Collection, error) {
	if userID == "" {
		return nil, pkgerrors.NewValidationError("collection requires a user")
	}
	if name == "" {
		return nil, pkgerrors.NewValidationError("collection name is required")
	}

	stored, err := r.store.Insert(ctx, store.TableCollections, interfaces.Row{
		"user_id": userID,
		"name":    name,
	})
	if err != nil {
		return nil, pkgerrors.NewPersistenceError(store.TableCollections, err)
	}
	c := collectionFromRow(stored)
	return &c, nil
}

// AddItem saves a draft snapshot into an existing collection
func (r *CollectionRepository) AddItem(ctx context.Context, item models.CollectionItem) (*models.CollectionItem, error) {
	if item.CollectionID == "" {
		return nil, pkgerrors.NewValidationError("collection item requires a collection")
	}

	stored, err := r.store.Insert(ctx, store.TableCollectionItems, interfaces.Row{
		"collection_id": item.CollectionID,
		"name":          item.Name,
		"url":           item.URL,
		"method":        string(item.Method),
		"headers":       nonNil(item.Headers),
		"query_params":  nonNil(item.QueryParams),
		"body":          item.Body,
	})
	if err != nil {
		return nil, pkgerrors.NewPersistenceError(store.TableCollectionItems, err)
	}
	return itemFromRow(stored)
}

func collectionFromRow(row interfaces.Row) models.Collection {
	return models.Collection{
		ID:        str(row, "id"),
		UserID:    str(row, "user_id"),
		Name:      str(row, "name"),
		Items:     []models.CollectionItem{},
		CreatedAt: timeOf(row, "created_at"),
	}
}

func itemFromRow(row interfaces.Row) (*models.CollectionItem, error) {
	headers, err := keyValues(row, "headers")
	if err != nil {
		return nil, err
	}
	params, err := keyValues(row, "query_params")
	if err != nil {
		return nil, err
	}

	return &models.CollectionItem{
		ID:           str(row, "id"),
		CollectionID: str(row, "collection_id"),
		Name:         str(row, "name"),
		URL:          str(row, "url"),
		Method:       models.Method(str(row, "method")),
		Headers:      headers,
		QueryParams:  params,
		Body:         str(row, "body"),
		CreatedAt:    timeOf(row, "created_at"),
	}, nil
}
