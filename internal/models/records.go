package models

import "time"

// HistoryEntry is an immutable record of an executed request. The request
// fields hold the draft as typed, before variable substitution.
type HistoryEntry struct {
	ID          string      `json:"id"`
	UserID      string      `json:"user_id"`
	URL         string      `json:"url"`
	Method      Method      `json:"method"`
	Headers     KeyValueSet `json:"headers"`
	QueryParams KeyValueSet `json:"query_params"`
	Body        string      `json:"body"`
	Status      int         `json:"status"`
	DurationMS  int64       `json:"duration_ms"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Draft returns the request portion of the entry
func (h HistoryEntry) Draft() RequestDraft {
	return RequestDraft{
		URL:         h.URL,
		Method:      h.Method,
		Headers:     h.Headers.Clone(),
		QueryParams: h.QueryParams.Clone(),
		Body:        h.Body,
	}
}

// Collection is a named folder of saved requests
type Collection struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	Name      string           `json:"name"`
	Items     []CollectionItem `json:"collection_items"`
	CreatedAt time.Time        `json:"created_at"`
}

// CollectionItem is a named, persisted draft
type CollectionItem struct {
	ID           string      `json:"id"`
	CollectionID string      `json:"collection_id"`
	Name         string      `json:"name"`
	URL          string      `json:"url"`
	Method       Method      `json:"method"`
	Headers      KeyValueSet `json:"headers"`
	QueryParams  KeyValueSet `json:"query_params"`
	Body         string      `json:"body"`
	CreatedAt    time.Time   `json:"created_at"`
}

// Draft returns the saved request
func (c CollectionItem) Draft() RequestDraft {
	return RequestDraft{
		URL:         c.URL,
		Method:      c.Method,
		Headers:     c.Headers.Clone(),
		QueryParams: c.QueryParams.Clone(),
		Body:        c.Body,
	}
}
