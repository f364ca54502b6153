// Package credstore defines the contract for the external user-record
// repository (an Airtable-style hosted datastore) and its REST client.
package credstore

import "context"

// Record is a raw identity record as stored upstream. Role may be empty;
// defaulting happens during mapping, not here.
type Record struct {
	ID           string
	Email        string
	Name         string
	Role         string
	Points       int
	PasswordHash string
	Preferences  map[string]string
}

// Filter is a typed equality predicate on a single field. Keeping the
// predicate structured (instead of accepting a raw formula string) leaves
// escaping to the implementation and keeps identifiers out of
// string-concatenated queries at call sites.
type Filter struct {
	Field string
	Value string
}

// Store finds at most one record matching the filter.
// Zero matches yield common.ErrorNotFound; transport or query failures
// yield common.ErrUpstreamUnavailable and must not be confused with an
// empty result.
type Store interface {
	FindFirst(ctx context.Context, filter Filter) (*Record, error)
}

// Field names understood by the backing table.
const (
	FieldUserID = "user_id"
	FieldEmail  = "email"
)
