package verb

import (
	"context"

	"github.com/beanbridge/bridge/internal/domain"
	"github.com/beanbridge/bridge/internal/mbean"
	"github.com/beanbridge/bridge/internal/objname"
	"github.com/beanbridge/bridge/internal/restrict"
)

// ReadHandler implements spec.md §4.6, the richest verb: pattern fan-out,
// multi-attribute fetch, per-attribute fault tolerance, and "all readable
// attributes" expansion via bean metadata.
type ReadHandler struct{}

// AllAtOnce is true when the name is a pattern, more than one attribute is
// requested, or no attribute is requested at all ("all" semantics) — in
// every other case a single concrete attribute on a single instance is
// wanted and the manager iterates registries one at a time instead.
func (ReadHandler) AllAtOnce(req *domain.Request) bool {
	name, err := objname.Parse(req.Name)
	if err != nil {
		return true
	}
	if name.Pattern {
		return true
	}
	if len(req.Attributes) > 1 {
		return true
	}
	if req.Attribute == "" && len(req.Attributes) == 0 {
		return true
	}
	return false
}

func (ReadHandler) Handle(ctx context.Context, registries []mbean.Registry, req *domain.Request, rst restrict.Restrictor, caller restrict.Caller) (any, error) {
	name, err := objname.Parse(req.Name)
	if err != nil {
		return nil, domain.Invalidf("read: %v", err)
	}

	attrs := req.Attributes
	if len(attrs) == 0 && req.Attribute != "" {
		attrs = []string{req.Attribute}
	}
	allAttrs := len(attrs) == 0
	policy := req.EffectiveOptions().ValueFaultPolicy

	if !name.Pattern {
		return readOneName(registries, name, attrs, allAttrs, policy, rst, caller)
	}

	matched := map[string]objname.Name{}
	for _, reg := range registries {
		names, err := reg.QueryNames(name)
		if err != nil {
			continue
		}
		for _, n := range names {
			matched[n.Canonical()] = n
		}
	}
	if len(matched) == 0 {
		if len(attrs) > 0 {
			return nil, domain.Invalidf("read: pattern %q matched no objects", req.Name)
		}
		return map[string]any{}, nil
	}

	out := make(map[string]any, len(matched))
	for canon, n := range matched {
		val, err := readOneName(registries, n, attrs, allAttrs, policy, rst, caller)
		if err != nil {
			if domain.IsNotFound(err) || domain.AsBridgeError(err).Kind == domain.KindForbidden {
				continue
			}
			if policy == domain.FaultStrict {
				return nil, err
			}
			out[canon] = err.Error()
			continue
		}
		out[canon] = val
	}
	if len(out) == 0 && len(attrs) > 0 {
		return nil, domain.Invalidf("read: pattern %q matched no objects with the requested attributes", req.Name)
	}
	return out, nil
}

// readOneName fetches attrs (or every readable attribute, if allAttrs) of
// name from the first registry in registries that has it registered.
func readOneName(registries []mbean.Registry, name objname.Name, attrs []string, allAttrs bool, policy domain.ValueFaultPolicy, rst restrict.Restrictor, caller restrict.Caller) (any, error) {
	var reg mbean.Registry
	for _, r := range registries {
		if r.IsRegistered(name) {
			reg = r
			break
		}
	}
	if reg == nil {
		return nil, domain.NotFoundf("instance not found: %s", name.Canonical())
	}

	if allAttrs {
		info, err := reg.GetMBeanInfo(name)
		if err != nil {
			return nil, err
		}
		attrs = info.ReadableAttributeNames()
	}

	if len(attrs) == 1 && !allAttrs {
		attr := attrs[0]
		if !rst.IsAttributeAllowed(domain.VerbRead, name, attr, caller) {
			return nil, domain.Forbiddenf("read %s/%s denied", name.Canonical(), attr)
		}
		return reg.GetAttribute(name, attr)
	}

	out := make(map[string]any, len(attrs))
	for _, attr := range attrs {
		if !rst.IsAttributeAllowed(domain.VerbRead, name, attr, caller) {
			if policy == domain.FaultStrict {
				return nil, domain.Forbiddenf("read %s/%s denied", name.Canonical(), attr)
			}
			continue
		}
		v, err := reg.GetAttribute(name, attr)
		if err != nil {
			if policy == domain.FaultStrict {
				return nil, err
			}
			out[attr] = err.Error()
			continue
		}
		out[attr] = v
	}
	return out, nil
}
