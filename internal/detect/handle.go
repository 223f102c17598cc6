// Package detect implements the detector chain and server-handle
// construction of spec.md §4.3 and §3. It is directly grounded on the
// teacher's internal/plugins/loader.go: health-check-then-register plugin
// loading, "unhealthy plugin → warn and disable, never abort startup", and
// version negotiation. Where the teacher dials ConnectRPC plugin
// containers, this package dials a small JSON/HTTP health-check protocol
// instead — the teacher's gen/ protobuf stubs were not part of the
// retrieved sources for this exercise, so no wire-compatible client could
// be authored (see DESIGN.md).
package detect

import (
	"context"
	"log/slog"

	"github.com/beanbridge/bridge/internal/mbean"
)

// PreDispatchHook mutates or inspects the live registry set immediately
// before a request is dispatched (spec.md §4.3). It may be used to work
// around per-product bugs.
type PreDispatchHook func(ctx context.Context, registries []mbean.Registry)

// PostDetectHook runs once after the handle is selected, with the
// detector-supplied config payload. Errors are logged, never re-thrown
// (spec.md §4.3).
type PostDetectHook func(ctx context.Context, cfg any, log *slog.Logger) error

// ServerHandle describes the hosting product (spec.md §3). It is built once
// per process at startup and is immutable thereafter except for
// product-specific internal flags a PostDetectHook may set on itself.
type ServerHandle struct {
	Vendor    string
	Product   string
	Version   string
	AgentURL  string
	ExtraInfo map[string]string

	PreDispatch []PreDispatchHook
	PostDetect  []PostDetectHook
}

// Generic is the fallback handle used when no detector claims the process.
func Generic() *ServerHandle {
	return &ServerHandle{Vendor: "generic", Product: "", Version: ""}
}

// RunPreDispatch invokes every registered pre-dispatch hook, in registration
// order, against the current registry snapshot.
func (h *ServerHandle) RunPreDispatch(ctx context.Context, registries []mbean.Registry) {
	for _, hook := range h.PreDispatch {
		hook(ctx, registries)
	}
}

// RunPostDetect invokes every registered post-detect hook. A hook error is
// logged at error level and does not abort the remaining hooks or startup
// (spec.md §4.3).
func (h *ServerHandle) RunPostDetect(ctx context.Context, cfg any, log *slog.Logger) {
	for _, hook := range h.PostDetect {
		if err := hook(ctx, cfg, log); err != nil {
			log.Error("postDetect hook failed", "vendor", h.Vendor, "error", err)
		}
	}
}
