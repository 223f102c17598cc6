package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/beanbridge/bridge/internal/domain"
)

// claimTimeout bounds the CanHandle probe; it must be fast since it runs
// ahead of every local dispatch (mirrors detect.healthCheckTimeout).
const claimTimeout = 2 * time.Second

// requestTimeout bounds a claimed request's full round trip.
const requestTimeout = 30 * time.Second

// claimRequest is POSTed to <addr>/canHandle to ask a remote dispatcher
// class whether it wants to own a request, before it is handed the full
// request body on /handle.
type claimRequest struct {
	Verb domain.Verb `json:"type"`
	Name string      `json:"mbean,omitempty"`
	Path string      `json:"path,omitempty"`
}

type claimResponse struct {
	Claim bool `json:"claim"`
}

// httpDispatcher is a reflectively-loaded Dispatcher backed by a remote
// plugin reached over plain JSON/HTTP (spec.md §4.3's "bundled first, then
// reflectively loaded extras", applied to the dispatcher side of the chain
// rather than the detector side). Grounded on detect.PluginDetector's
// health-check-then-call shape.
type httpDispatcher struct {
	name   string
	addr   string
	client *http.Client
}

// NewHTTPDispatcher builds a Dispatcher for a reflectively-loaded dispatcher
// class named name, reachable at addr, using c (or http.DefaultClient if nil).
func NewHTTPDispatcher(name, addr string, c *http.Client) Dispatcher {
	if c == nil {
		c = http.DefaultClient
	}
	return &httpDispatcher{name: name, addr: addr, client: c}
}

func (h *httpDispatcher) Name() string { return h.name }

// CanHandle asks the remote dispatcher class whether it claims req, via
// POST <addr>/canHandle. Any transport or decode failure is treated as a
// decline rather than an error — an unreachable dispatcher plugin must not
// block the local handler from serving the request (spec.md §4.3: detector
// and dispatcher trouble never aborts dispatch).
func (h *httpDispatcher) CanHandle(ctx context.Context, req *domain.Request) bool {
	ctx, cancel := context.WithTimeout(ctx, claimTimeout)
	defer cancel()

	body, err := json.Marshal(claimRequest{Verb: req.Verb, Name: req.Name, Path: req.Path})
	if err != nil {
		return false
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.addr+"/canHandle", bytes.NewReader(body))
	if err != nil {
		return false
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false
	}

	var claim claimResponse
	if err := json.NewDecoder(resp.Body).Decode(&claim); err != nil {
		return false
	}
	return claim.Claim
}

// HandleRequest forwards req to the remote dispatcher class's /handle
// endpoint and decodes its response envelope verbatim — the manager treats
// it as the request's final answer without re-converting or history
// capturing, since the envelope already arrived fully formed.
func (h *httpDispatcher) HandleRequest(ctx context.Context, req *domain.Request) (*domain.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("dispatcher %s: encoding request: %w", h.name, err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.addr+"/handle", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("dispatcher %s: building request: %w", h.name, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("dispatcher %s: request failed: %w", h.name, err)
	}
	defer resp.Body.Close()

	var out domain.Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("dispatcher %s: invalid response: %w", h.name, err)
	}
	return &out, nil
}
