package verb

import (
	"context"
	"sort"

	"github.com/beanbridge/bridge/internal/domain"
	"github.com/beanbridge/bridge/internal/mbean"
	"github.com/beanbridge/bridge/internal/objname"
	"github.com/beanbridge/bridge/internal/restrict"
)

// SearchHandler resolves an object-name pattern against every merged
// registry and returns the union of matching canonical names (spec.md §3:
// "search: object-name pattern").
type SearchHandler struct{}

// AllAtOnce is always true: search inherently spans the whole merged set.
func (SearchHandler) AllAtOnce(*domain.Request) bool { return true }

func (SearchHandler) Handle(ctx context.Context, registries []mbean.Registry, req *domain.Request, rst restrict.Restrictor, caller restrict.Caller) (any, error) {
	if !rst.IsVerbAllowed(domain.VerbSearch, caller) {
		return nil, domain.Forbiddenf("search denied")
	}
	pattern, err := objname.Parse(req.Pattern)
	if err != nil {
		return nil, domain.Invalidf("search: %v", err)
	}

	seen := map[string]bool{}
	var out []string
	for _, reg := range registries {
		names, err := reg.QueryNames(pattern)
		if err != nil {
			continue
		}
		for _, n := range names {
			canon := n.Canonical()
			if !seen[canon] {
				seen[canon] = true
				out = append(out, canon)
			}
		}
	}
	sort.Strings(out)
	return out, nil
}
