// Package postquery declares the PostQueryService collaborator (spec.md
// §6.3) the posts host-API broker delegates to: category_stats(). CRUD
// persistence of posts is explicitly out of core scope; only the narrow
// read the broker needs lives here.
package postquery

import "context"

// CategoryCount pairs a category name with its published-post count.
type CategoryCount struct {
	Category string
	Count    int64
}

// Service is the collaborator posts.list_categories delegates to.
type Service interface {
	CategoryStats(ctx context.Context) ([]CategoryCount, error)
}

// Null is a Service with no categories wired in. PostsBroker.ListCategories
// already returns an empty slice for a denied or unavailable service, so a
// host with no CMS collaborator configured behaves identically to one a
// plugin simply lacks the capability for.
type Null struct{}

func (Null) CategoryStats(context.Context) ([]CategoryCount, error) {
	return nil, nil
}
