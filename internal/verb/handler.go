// Package verb implements the per-verb request handlers of spec.md §4.6/§4.7:
// read, write, exec, search, list, version, notification. Each handler
// decides whether it needs the merged registry set at once or is iterated
// registry-by-registry by the backend manager (spec.md §4.4 step 3), and
// returns the handler's native result — conversion to JSON, path descent, and
// history capture all happen one layer up in internal/dispatch, exactly as
// spec.md's component list separates "verb handlers" from "value-to-JSON
// converter".
package verb

import (
	"context"

	"github.com/beanbridge/bridge/internal/domain"
	"github.com/beanbridge/bridge/internal/mbean"
	"github.com/beanbridge/bridge/internal/restrict"
)

// Handler is implemented by one file per verb.
type Handler interface {
	// AllAtOnce reports whether req should be handled against the full
	// merged registry set in a single call. When false, the backend manager
	// iterates the set and calls Handle once per registry (each wrapped in
	// a length-1 slice) until one succeeds or all report NotFound.
	AllAtOnce(req *domain.Request) bool

	// Handle executes req against registries — either the full merged set
	// (AllAtOnce true) or a single candidate (AllAtOnce false).
	Handle(ctx context.Context, registries []mbean.Registry, req *domain.Request, rst restrict.Restrictor, caller restrict.Caller) (any, error)
}

// Table maps each verb to its handler. Built once at startup by
// cmd/bridged, handed to internal/dispatch, and treated as read-only
// thereafter (spec.md §5: "the
// dispatcher list, converters, and restrictor are read-only").
type Table map[domain.Verb]Handler

// NewTable builds the default verb table. handle is the process's own
// server handle (consulted by the version handler); notifications is a
// fresh in-memory registrar.
func NewTable(handle ServerInfo) Table {
	return Table{
		domain.VerbRead:         ReadHandler{},
		domain.VerbWrite:        WriteHandler{},
		domain.VerbExec:         ExecHandler{},
		domain.VerbSearch:       SearchHandler{},
		domain.VerbList:         ListHandler{},
		domain.VerbVersion:      VersionHandler{Info: handle},
		domain.VerbNotification: NewNotificationHandler(),
	}
}

// ServerInfo is the subset of detect.ServerHandle the version verb echoes,
// kept narrow here so this package does not import internal/detect.
type ServerInfo struct {
	Vendor   string
	Product  string
	Version  string
	AgentURL string
}
