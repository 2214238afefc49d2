package search

import (
	"context"
	"errors"

	"torrenthive/metasearch/internal/domain"
)

var (
	ErrEmptyQuery = errors.New("query is empty after cleaning")
	ErrNoAdapters = errors.New("no source adapters configured")
	ErrNoLink     = errors.New("no resolvable link found")
)

// Adapter is the contract every source-specific scraper presents to the
// engine. The engine never branches on which site it is talking to; it only
// calls this interface.
//
// FetchPage and ResolveLink may fail with network or parse errors. The engine
// absorbs those failures: a broken page yields zero candidates, an unresolved
// link drops the candidate. Nothing an adapter does can abort a search.
type Adapter interface {
	Name() string
	Label() string
	BaseURL() string

	// Categories maps the generic taxonomy to the site's native category
	// identifiers. A category absent from the map means the site cannot
	// search it and the adapter is skipped for that request.
	Categories() map[domain.Category]string

	// PageBudget reports how many result pages one pass fetches for the
	// category. Sources warrant more pages for categories known to be large.
	PageBudget(cat domain.Category) int

	// FetchPage runs the site's own search for one page of results.
	// Pages are numbered from 1.
	FetchPage(ctx context.Context, query string, cat domain.Category, page int) ([]domain.Candidate, error)

	// ResolveLink fetches the candidate's final downloadable link, typically
	// a magnet URI from its detail page. ErrNoLink means the page loaded but
	// carried nothing resolvable.
	ResolveLink(ctx context.Context, candidate domain.Candidate) (string, error)
}

// EndpointSetter is an optional interface for adapters whose site endpoint
// can be repointed at runtime (mirror rotation).
type EndpointSetter interface {
	SetEndpoint(endpoint string)
}

// Sink receives one resolved record at a time. Order carries no meaning;
// emission follows completion order of the concurrent resolution step. The
// engine serializes calls, so implementations need no locking of their own.
type Sink func(domain.ResolvedRecord)
