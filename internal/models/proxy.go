package models

import "encoding/json"

// ProxyRequest is the body of POST /proxy
type ProxyRequest struct {
	URL     string            `json:"url" validate:"required"`
	Method  string            `json:"method" validate:"required"`
	Headers map[string]string `json:"headers,omitempty"`
	Params  map[string]string `json:"params,omitempty"`
	Body    json.RawMessage   `json:"body,omitempty"`
}

// ProxyResponse is the normalized upstream response returned by the relay
type ProxyResponse struct {
	Status     int               `json:"status"`
	StatusText string            `json:"statusText"`
	Headers    map[string]string `json:"headers"`
	Data       json.RawMessage   `json:"data"`
	Time       string            `json:"time"`
	Size       string            `json:"size"`
}

// ProxyError is the relay's error body
type ProxyError struct {
	Error   string `json:"error"`
	Details string `json:"details"`
	Type    string `json:"type,omitempty"`
}
