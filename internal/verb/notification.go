package verb

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/beanbridge/bridge/internal/domain"
	"github.com/beanbridge/bridge/internal/mbean"
	"github.com/beanbridge/bridge/internal/objname"
	"github.com/beanbridge/bridge/internal/restrict"
)

// Notification sub-verbs (spec.md §3: "notification: sub-verb + client/
// listener id"). Actual delivery of notifications to a remote client is a
// transport concern (spec.md §1 Out of scope: "the HTTP transport layer
// itself"); this handler only maintains the client/listener bookkeeping a
// real delivery mechanism would consult.
const (
	SubVerbRegister       = "register"
	SubVerbUnregister     = "unregister"
	SubVerbAddListener    = "addListener"
	SubVerbRemoveListener = "removeListener"
	SubVerbPing           = "ping"
	SubVerbList           = "list"
)

// listener is one subscription of a client to an object name.
type listener struct {
	ID   string
	Name string
}

type client struct {
	listeners map[string]listener
}

// NotificationHandler tracks registered clients and their listeners
// in-memory, scoped to this bridge process (no cross-instance or
// across-restart persistence — spec.md §1 Non-goals).
type NotificationHandler struct {
	mu      sync.Mutex
	clients map[string]*client
}

// NewNotificationHandler creates an empty registrar.
func NewNotificationHandler() *NotificationHandler {
	return &NotificationHandler{clients: make(map[string]*client)}
}

// AllAtOnce is always false: every sub-verb addresses at most client-local
// bookkeeping state, never the registry set.
func (*NotificationHandler) AllAtOnce(*domain.Request) bool { return false }

func (h *NotificationHandler) Handle(ctx context.Context, registries []mbean.Registry, req *domain.Request, rst restrict.Restrictor, caller restrict.Caller) (any, error) {
	if !rst.IsVerbAllowed(domain.VerbNotification, caller) {
		return nil, domain.Forbiddenf("notification denied")
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	switch req.NotifySubVerb {
	case SubVerbRegister:
		id := uuid.NewString()
		h.clients[id] = &client{listeners: make(map[string]listener)}
		return map[string]string{"client": id}, nil

	case SubVerbUnregister:
		c, ok := h.clients[req.ClientID]
		if !ok {
			return nil, domain.NotFoundf("notification client not found: %s", req.ClientID)
		}
		delete(h.clients, req.ClientID)
		return map[string]int{"listeners": len(c.listeners)}, nil

	case SubVerbAddListener:
		c, ok := h.clients[req.ClientID]
		if !ok {
			return nil, domain.NotFoundf("notification client not found: %s", req.ClientID)
		}
		if _, err := objname.Parse(req.Name); err != nil {
			return nil, domain.Invalidf("notification: %v", err)
		}
		id := uuid.NewString()
		c.listeners[id] = listener{ID: id, Name: req.Name}
		return map[string]string{"listener": id}, nil

	case SubVerbRemoveListener:
		c, ok := h.clients[req.ClientID]
		if !ok {
			return nil, domain.NotFoundf("notification client not found: %s", req.ClientID)
		}
		if _, ok := c.listeners[req.Name]; !ok {
			return nil, domain.NotFoundf("listener not found: %s", req.Name)
		}
		delete(c.listeners, req.Name)
		return nil, nil

	case SubVerbPing:
		if _, ok := h.clients[req.ClientID]; !ok {
			return nil, domain.NotFoundf("notification client not found: %s", req.ClientID)
		}
		return nil, nil

	case SubVerbList:
		c, ok := h.clients[req.ClientID]
		if !ok {
			return nil, domain.NotFoundf("notification client not found: %s", req.ClientID)
		}
		names := make([]string, 0, len(c.listeners))
		for _, l := range c.listeners {
			names = append(names, l.Name)
		}
		return names, nil

	default:
		return nil, domain.Invalidf("notification: unknown sub-verb %q", req.NotifySubVerb)
	}
}
