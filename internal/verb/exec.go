package verb

import (
	"context"

	"github.com/beanbridge/bridge/internal/convert"
	"github.com/beanbridge/bridge/internal/domain"
	"github.com/beanbridge/bridge/internal/mbean"
	"github.com/beanbridge/bridge/internal/objname"
	"github.com/beanbridge/bridge/internal/restrict"
)

// ExecHandler implements spec.md §4.7: resolve the operation by name +
// arity, convert each JSON argument to its declared parameter type, invoke,
// and return the native result (converted to JSON one layer up).
type ExecHandler struct{}

// AllAtOnce is always false: exec targets exactly one concrete instance.
func (ExecHandler) AllAtOnce(*domain.Request) bool { return false }

func (ExecHandler) Handle(ctx context.Context, registries []mbean.Registry, req *domain.Request, rst restrict.Restrictor, caller restrict.Caller) (any, error) {
	name, err := objname.Parse(req.Name)
	if err != nil {
		return nil, domain.Invalidf("exec: %v", err)
	}
	if name.Pattern {
		return nil, domain.Invalidf("exec: requires a concrete object name, got pattern %q", req.Name)
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

	if !rst.IsOperationAllowed(name, req.Operation, caller) {
		return nil, domain.Forbiddenf("exec %s/%s denied", name.Canonical(), req.Operation)
	}

	info, err := reg.GetMBeanInfo(name)
	if err != nil {
		return nil, err
	}
	opInfo, ok := info.FindOperation(req.Operation, len(req.Arguments))
	if !ok {
		return nil, domain.TargetFailuref(nil, "unsupported operation: %s(%d args)", req.Operation, len(req.Arguments))
	}

	args := make([]any, len(req.Arguments))
	for i, raw := range req.Arguments {
		v, err := convert.FromJSON(raw, opInfo.ParamTypes[i])
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	return reg.Invoke(name, req.Operation, args)
}
