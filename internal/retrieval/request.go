package retrieval

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// Request is one retrieval: the three answers of a user plus the identifiers
// used to key logs and telemetry. It lives for a single Retrieve call.
type Request struct {
	ID      string `json:"id"`
	User    string `json:"user"`
	Subject string `json:"subject"`
	Place   string `json:"place"`
	Extra   string `json:"extra"`
}

// NewRequest creates a request with a fresh id. Phrases are case-folded here.
func NewRequest(user, subject, place, extra string) *Request {
	if strings.TrimSpace(user) == "" {
		user = "anonymous"
	}
	return &Request{
		ID:      uuid.New().String(),
		User:    user,
		Subject: strings.ToLower(subject),
		Place:   strings.ToLower(place),
		Extra:   strings.ToLower(extra),
	}
}

type ctxKey struct{}

// ContextWithRequest stores req in the context.
func ContextWithRequest(ctx context.Context, req *Request) context.Context {
	return context.WithValue(ctx, ctxKey{}, req)
}

// RequestFromContext returns the request stored in ctx, or an anonymous one.
func RequestFromContext(ctx context.Context) *Request {
	if req, ok := ctx.Value(ctxKey{}).(*Request); ok {
		return req
	}
	return &Request{ID: "-", User: "anonymous"}
}
