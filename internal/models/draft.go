package models

import (
	"fmt"
	"strings"
)

// Method is an HTTP method the draft may use
type Method string

const (
	MethodGet    Method = "GET"
	MethodPost   Method = "POST"
	MethodPut    Method = "PUT"
	MethodPatch  Method = "PATCH"
	MethodDelete Method = "DELETE"
)

// Methods lists the supported methods in display order
var Methods = []Method{MethodGet, MethodPost, MethodPut, MethodPatch, MethodDelete}

// ParseMethod normalizes and validates a method name
func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Methods {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("unsupported method %q", s)
}

// RequestDraft is the request being edited. Body is raw text and is
// interpreted as JSON for every method except GET.
type RequestDraft struct {
	URL         string      `json:"url"`
	Method      Method      `json:"method"`
	Headers     KeyValueSet `json:"headers"`
	QueryParams KeyValueSet `json:"query_params"`
	Body        string      `json:"body"`
}

// DefaultDraft is the draft a new session starts with
func DefaultDraft() RequestDraft {
	params := KeyValueSet{}
	params.Add()

	return RequestDraft{
		URL:         "https://dummyjson.com/products",
		Method:      MethodGet,
		Headers:     NewKeyValueSet("Content-Type", "application/json"),
		QueryParams: params,
		Body:        "{\n  \"title\": \"foo\",\n  \"body\": \"bar\",\n  \"userId\": 1\n}",
	}
}

// Clone returns a deep copy of the draft
func (d RequestDraft) Clone() RequestDraft {
	d.Headers = d.Headers.Clone()
	d.QueryParams = d.QueryParams.Clone()
	return d
}
