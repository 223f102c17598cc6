package verb

import (
	"context"

	"github.com/beanbridge/bridge/internal/domain"
	"github.com/beanbridge/bridge/internal/mbean"
	"github.com/beanbridge/bridge/internal/restrict"
)

// protocolVersion is the bridge's own JSON-envelope protocol version, echoed
// by the version verb (spec.md §8 scenario S3).
const protocolVersion = "1.0"

// VersionHandler answers the version verb with the bridge's protocol
// version plus the detected product handle (spec.md §3 server handle).
type VersionHandler struct {
	Info ServerInfo
}

// AllAtOnce is true, though version never actually touches a registry.
func (VersionHandler) AllAtOnce(*domain.Request) bool { return true }

func (h VersionHandler) Handle(ctx context.Context, registries []mbean.Registry, req *domain.Request, rst restrict.Restrictor, caller restrict.Caller) (any, error) {
	if !rst.IsVerbAllowed(domain.VerbVersion, caller) {
		return nil, domain.Forbiddenf("version denied")
	}
	agent := map[string]string{
		"vendor":  h.Info.Vendor,
		"product": h.Info.Product,
		"version": h.Info.Version,
	}
	if h.Info.AgentURL != "" {
		agent["url"] = h.Info.AgentURL
	}
	return map[string]any{
		"protocol": protocolVersion,
		"agent":    agent,
	}, nil
}
