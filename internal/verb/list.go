package verb

import (
	"context"
	"strings"

	"github.com/beanbridge/bridge/internal/domain"
	"github.com/beanbridge/bridge/internal/mbean"
	"github.com/beanbridge/bridge/internal/objname"
	"github.com/beanbridge/bridge/internal/restrict"
)

// ListHandler builds the full domain/name/attribute/operation metadata tree
// across every merged registry (spec.md §3: "list: (path alone drives
// traversal)"). Path-driven descent into the tree happens one layer up, in
// internal/dispatch's call to the value converter — ListHandler itself
// returns the whole tree unfiltered.
type ListHandler struct{}

// AllAtOnce is always true: list traverses the entire merged registry set.
func (ListHandler) AllAtOnce(*domain.Request) bool { return true }

func (ListHandler) Handle(ctx context.Context, registries []mbean.Registry, req *domain.Request, rst restrict.Restrictor, caller restrict.Caller) (any, error) {
	if !rst.IsVerbAllowed(domain.VerbList, caller) {
		return nil, domain.Forbiddenf("list denied")
	}

	everything := objname.Name{Domain: "*", Pattern: true}
	tree := map[string]any{}

	for _, reg := range registries {
		names, err := reg.QueryNames(everything)
		if err != nil {
			continue
		}
		for _, n := range names {
			info, err := reg.GetMBeanInfo(n)
			if err != nil {
				continue
			}
			domainMap, ok := tree[n.Domain].(map[string]any)
			if !ok {
				domainMap = map[string]any{}
				tree[n.Domain] = domainMap
			}
			domainMap[propsKey(n)] = map[string]any{
				"attr": attrSummary(n, info, rst, caller),
				"op":   opSummary(info),
			}
		}
	}
	return tree, nil
}

func propsKey(n objname.Name) string {
	return strings.TrimPrefix(n.Canonical(), n.Domain+":")
}

func attrSummary(n objname.Name, info mbean.Info, rst restrict.Restrictor, caller restrict.Caller) map[string]any {
	out := map[string]any{}
	for _, a := range info.Attributes {
		if !rst.IsAttributeAllowed(domain.VerbList, n, a.Name, caller) {
			continue
		}
		out[a.Name] = map[string]any{"type": a.Type, "rw": a.Writable}
	}
	return out
}

func opSummary(info mbean.Info) map[string]any {
	out := map[string]any{}
	for _, op := range info.Operations {
		out[op.Name] = map[string]any{"args": len(op.ParamTypes)}
	}
	return out
}
