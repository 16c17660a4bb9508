package domain

import "context"

// SearchClient executes a text query against a remote catalog
type SearchClient interface {
	Search(ctx context.Context, term string) ([]Track, error)
}
