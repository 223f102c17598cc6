package verb

import (
	"context"
	"reflect"

	"github.com/beanbridge/bridge/internal/convert"
	"github.com/beanbridge/bridge/internal/domain"
	"github.com/beanbridge/bridge/internal/mbean"
	"github.com/beanbridge/bridge/internal/objname"
	"github.com/beanbridge/bridge/internal/restrict"
)

// WriteHandler implements spec.md §4.7: convert the JSON value to the
// attribute's declared type, apply the restrictor, set it, and return the
// previous value.
type WriteHandler struct{}

// AllAtOnce is always false: a write targets exactly one concrete instance.
func (WriteHandler) AllAtOnce(*domain.Request) bool { return false }

func (WriteHandler) Handle(ctx context.Context, registries []mbean.Registry, req *domain.Request, rst restrict.Restrictor, caller restrict.Caller) (any, error) {
	name, err := objname.Parse(req.Name)
	if err != nil {
		return nil, domain.Invalidf("write: %v", err)
	}
	if name.Pattern {
		return nil, domain.Invalidf("write: requires a concrete object name, got pattern %q", req.Name)
	}

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

	if !rst.IsAttributeAllowed(domain.VerbWrite, name, req.Attribute, caller) {
		return nil, domain.Forbiddenf("write %s/%s denied", name.Canonical(), req.Attribute)
	}

	current, err := reg.GetAttribute(name, req.Attribute)
	if err != nil {
		return nil, err
	}
	targetType := reflect.TypeOf(current)
	if targetType == nil {
		targetType = reflect.TypeOf("")
	}

	newValue, err := convert.FromJSON(req.Value, targetType)
	if err != nil {
		return nil, err
	}

	prev, err := reg.SetAttribute(name, req.Attribute, newValue)
	if err != nil {
		return nil, err
	}
	return prev, nil
}
