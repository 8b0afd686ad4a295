package models

import "time"

// User identifies the owner of persisted records
type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

// Environment is a named set of variables usable for template substitution
type Environment struct {
	ID        string      `json:"id"`
	UserID    string      `json:"user_id,omitempty"`
	Name      string      `json:"name"`
	Variables KeyValueSet `json:"variables"`
	CreatedAt time.Time   `json:"created_at"`
}
