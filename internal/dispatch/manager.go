// Package dispatch implements the backend manager of spec.md §4.4: the
// single public entry point handleRequest, the restrictor gate, the
// extra-dispatcher chain consulted before the local bean-server handler, the
// all-at-once-vs-iterate decision, value conversion, and history capture.
package dispatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/beanbridge/bridge/internal/convert"
	"github.com/beanbridge/bridge/internal/detect"
	"github.com/beanbridge/bridge/internal/domain"
	"github.com/beanbridge/bridge/internal/history"
	"github.com/beanbridge/bridge/internal/mbean"
	"github.com/beanbridge/bridge/internal/objname"
	"github.com/beanbridge/bridge/internal/pathcodec"
	"github.com/beanbridge/bridge/internal/restrict"
	"github.com/beanbridge/bridge/internal/verb"
)

// Dispatcher is a reflectively-loaded extra request dispatcher, consulted
// before the local bean-server handler (spec.md §4.4). It owns its own
// complete response — the manager does not convert or history-capture on
// its behalf, since a proxied request's value already arrived as JSON.
type Dispatcher interface {
	Name() string
	CanHandle(ctx context.Context, req *domain.Request) bool
	HandleRequest(ctx context.Context, req *domain.Request) (*domain.Response, error)
}

// RegistrySource supplies the merged, read-mostly registry snapshot
// (grounded on beanserver.Server.Registries — kept as a narrow interface
// here so this package does not need to import beanserver).
type RegistrySource interface {
	Registries() []mbean.Registry
}

// Manager is the backend manager singleton: immutable after construction
// except for the registry snapshot it reads through RegistrySource and the
// history/debug stores it mutates under their own locks (spec.md §5).
type Manager struct {
	registries RegistrySource
	handle     *detect.ServerHandle
	table      verb.Table
	restrictor restrict.Restrictor
	history    *history.Store
	defaults   *convert.SyncedOptions
	extra      []Dispatcher
	log        *slog.Logger
}

// Option configures a Manager at construction.
type Option func(*Manager)

// WithExtraDispatchers installs reflectively-loaded dispatchers, consulted
// in the given order before the local handler.
func WithExtraDispatchers(d ...Dispatcher) Option {
	return func(m *Manager) { m.extra = append(m.extra, d...) }
}

// NewManager builds a Manager. handle is the detector-selected server
// handle whose PreDispatch hooks run before every local dispatch (spec.md
// §4.3).
func NewManager(registries RegistrySource, handle *detect.ServerHandle, table verb.Table, restrictor restrict.Restrictor, hist *history.Store, defaults *convert.SyncedOptions, log *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		registries: registries,
		handle:     handle,
		table:      table,
		restrictor: restrictor,
		history:    hist,
		defaults:   defaults,
		log:        log,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// HandleRequest is the single public entry point of spec.md §4.4: every
// failure is caught here and converted to a JSON envelope; callers never see
// a Go error for a protocol-level failure.
func (m *Manager) HandleRequest(ctx context.Context, req *domain.Request, caller restrict.Caller) *domain.Response {
	now := time.Now()
	resp := &domain.Response{Request: req}

	value, err := m.dispatch(ctx, req, caller, now, resp)
	if err != nil {
		be := domain.AsBridgeError(err)
		resp.Error = be.Error()
		resp.ErrorType = string(be.Kind)
		if be.Kind != domain.KindForbidden && req.EffectiveOptions().IncludeStackTrace {
			resp.StackTrace = be.StackTrace
		}
		m.log.Error("request failed", "verb", req.Verb, "mbean", req.Name, "kind", be.Kind, "error", be.Error())
		return resp.Stamp(be.Kind.HTTPStatus(), now)
	}

	resp.Value = value
	m.log.Debug("request succeeded", "verb", req.Verb, "mbean", req.Name)
	return resp.Stamp(200, now)
}

// dispatch resolves req through the extra-dispatcher chain, then the local
// bean-server handler, converting and history-capturing the local path's
// native return value along the way.
func (m *Manager) dispatch(ctx context.Context, req *domain.Request, caller restrict.Caller, now time.Time, resp *domain.Response) (any, error) {
	if !m.restrictor.IsVerbAllowed(req.Verb, caller) {
		return nil, domain.Forbiddenf("verb %q denied", req.Verb)
	}
	if !m.objectAllowed(req, caller) {
		return nil, domain.Forbiddenf("access to %q denied", req.Name)
	}

	for _, d := range m.extra {
		if !d.CanHandle(ctx, req) {
			continue
		}
		extResp, err := d.HandleRequest(ctx, req)
		if err != nil {
			return nil, err
		}
		resp.History = extResp.History
		return extResp.Value, nil
	}

	handler, ok := m.table[req.Verb]
	if !ok {
		return nil, domain.Internalf(nil, "no dispatcher claimed verb %q", req.Verb)
	}

	registries := m.registries.Registries()
	if m.handle != nil {
		m.handle.RunPreDispatch(ctx, registries)
	}

	raw, err := m.handleLocal(ctx, handler, registries, req, caller)
	if err != nil {
		return nil, err
	}

	path := pathcodec.Split(req.Path)
	converted, err := convert.ToJSON(raw, path, mergeConvertOptions(m.defaults.Get(), req.EffectiveOptions()))
	if err != nil {
		return nil, err
	}

	m.captureHistory(req, converted, now, resp)
	return converted, nil
}

// objectAllowed implements spec.md §4.4 step 1's "permitted for the
// request's object name" half of the restrictor gate: verbs that carry a
// concrete (or pattern) object name are checked against the restrictor
// before any handler runs, independent of the attribute/operation-level
// checks the individual verb handlers still apply per spec.md §4.6/§4.7.
// An unparseable name is left to the local handler, which rejects it with
// its own InvalidRequest error.
func (m *Manager) objectAllowed(req *domain.Request, caller restrict.Caller) bool {
	if req.Name == "" {
		return true
	}
	name, err := objname.Parse(req.Name)
	if err != nil {
		return true
	}
	switch req.Verb {
	case domain.VerbRead, domain.VerbWrite:
		return m.restrictor.IsAttributeAllowed(req.Verb, name, "", caller)
	case domain.VerbExec:
		return m.restrictor.IsOperationAllowed(name, "", caller)
	default:
		return true
	}
}

// handleLocal implements spec.md §4.4 step 4: either call the handler with
// the full merged set, or iterate it one registry at a time until one
// succeeds; "instance not found" on every registry re-raises as 404.
func (m *Manager) handleLocal(ctx context.Context, handler verb.Handler, registries []mbean.Registry, req *domain.Request, caller restrict.Caller) (any, error) {
	if handler.AllAtOnce(req) {
		return handler.Handle(ctx, registries, req, m.restrictor, caller)
	}

	var lastErr error
	for _, reg := range registries {
		v, err := handler.Handle(ctx, []mbean.Registry{reg}, req, m.restrictor, caller)
		if err == nil {
			return v, nil
		}
		if domain.IsNotFound(err) {
			lastErr = err
			continue
		}
		return nil, err
	}
	if lastErr == nil {
		lastErr = domain.NotFoundf("instance not found: %s", req.Name)
	}
	return nil, lastErr
}

// captureHistory implements spec.md §4.9's updateAndAdd for read/write/exec
// verbs against a concrete (non-pattern) object name. Patterns are never
// history keys (spec.md §3).
func (m *Manager) captureHistory(req *domain.Request, value any, now time.Time, resp *domain.Response) {
	switch req.Verb {
	case domain.VerbRead, domain.VerbWrite, domain.VerbExec:
	default:
		return
	}
	if m.history == nil {
		return
	}
	name, err := objname.Parse(req.Name)
	if err != nil || name.Pattern {
		return
	}

	member := req.Attribute
	if req.Verb == domain.VerbExec {
		member = req.Operation
	}
	target := ""
	if req.Target != nil {
		target = req.Target.URL
	}

	key := history.NewKey(name, member, req.Path, target)
	prior := m.history.UpdateAndSnapshot(key, value, now)
	if len(prior) == 0 {
		return
	}
	records := make([]domain.HistoryRecord, len(prior))
	for i, e := range prior {
		records[i] = domain.HistoryRecord{Value: e.Value, Timestamp: e.Timestamp.Unix()}
	}
	resp.History = records
}

func mergeConvertOptions(defaults convert.Options, req domain.ProcessingOptions) convert.Options {
	out := defaults
	if req.MaxDepth != 0 {
		out.MaxDepth = req.MaxDepth
	}
	if req.MaxCollectionSize != 0 {
		out.MaxCollectionSize = req.MaxCollectionSize
	}
	if req.MaxObjects != 0 {
		out.MaxObjects = req.MaxObjects
	}
	if req.ValueFaultPolicy != "" {
		out.FaultPolicy = req.ValueFaultPolicy
	}
	return out
}
