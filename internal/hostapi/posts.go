package hostapi

import (
	"context"
	"sort"

	"github.com/goagain/reglet-host/internal/permission"
	"github.com/goagain/reglet-host/internal/postquery"
)

// PostsBroker backs the plugin-facing "posts" import: list_categories().
// Requires "post:list_category" (spec.md §4.6). On denial it returns an
// empty slice rather than an error, consistent with the broker's
// never-trap contract and with how ai.list_models handles the same
// situation.
type PostsBroker struct {
	service postquery.Service
}

// NewPostsBroker wires the broker to a PostQueryService implementation.
func NewPostsBroker(service postquery.Service) *PostsBroker {
	return &PostsBroker{service: service}
}

// ListCategories implements "posts.list_categories": category names sorted
// by descending post count, ties broken lexicographic ascending (spec.md
// §4.6; SPEC_FULL §C.5 traces this to the original host's
// `sort_by(|a,b| b.1.cmp(&a.1))`). The tie-break compares names directly,
// so it does not depend on the order the service returns.
func (b *PostsBroker) ListCategories(ctx context.Context, granted permission.Set) ([]string, error) {
	if !granted.Granted("post:list_category") || b.service == nil {
		return nil, nil
	}
	stats, err := b.service.CategoryStats(ctx)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		return stats[i].Category < stats[j].Category
	})

	names := make([]string, len(stats))
	for i, s := range stats {
		names[i] = s.Category
	}
	return names, nil
}
