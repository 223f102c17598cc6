package httpapi

import (
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/beanbridge/bridge/internal/domain"
	"github.com/beanbridge/bridge/internal/reqfactory"
	"github.com/beanbridge/bridge/internal/restrict"
)

// maxBodyBytes bounds a POST request body (spec.md §6: bulk requests are
// still a single HTTP payload, not a stream).
const maxBodyBytes = 4 << 20

// HandleGET parses the URI path-info and query string into a single request
// via reqfactory.FromGET and dispatches it through the backend manager.
func (s *Server) HandleGET(w http.ResponseWriter, r *http.Request) {
	pathInfo := chi.URLParam(r, "*")
	req, err := reqfactory.FromGET(pathInfo, r.URL.Query())
	if err != nil {
		writeError(w, err)
		return
	}

	resp := s.Manager.HandleRequest(r.Context(), req, callerFrom(r))
	writeJSON(w, resp.Status, resp)
}

// HandlePOST parses the request body (a single JSON object, or an array for
// a bulk request) via reqfactory.FromPOST and dispatches every element,
// returning either a single envelope or a JSON array of envelopes matching
// the shape of the request (spec.md §4.2).
func (s *Server) HandlePOST(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	reqs, errs, bulk, err := reqfactory.FromPOST(body, r.URL.Query())
	if err != nil {
		writeError(w, err)
		return
	}

	caller := callerFrom(r)
	responses := make([]*domain.Response, len(reqs))
	worst := 200
	for i, req := range reqs {
		if req == nil {
			responses[i] = errorResponse(errs[i])
		} else {
			responses[i] = s.Manager.HandleRequest(r.Context(), req, caller)
		}
		if responses[i].Status > worst {
			worst = responses[i].Status
		}
	}

	if !bulk {
		writeJSON(w, responses[0].Status, responses[0])
		return
	}
	writeJSON(w, worst, responses)
}

// callerFrom extracts the restrictor identity from the transport request.
// Authentication itself is out of scope (spec.md §1 Non-goals); this only
// forwards the remote host/address the restrictor may key policy on.
// RemoteHost is the host part of RemoteAddr; no reverse lookup is made.
func callerFrom(r *http.Request) restrict.Caller {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return restrict.Caller{RemoteHost: host, RemoteAddr: r.RemoteAddr}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorResponse renders a parse-time failure (one that never reached the
// backend manager, so there's no *domain.Request to echo) as the same
// envelope shape a dispatched request would produce — used both for a
// whole-body parse failure and for a single bad element of a bulk array,
// which must not collapse the rest of the array's responses (spec.md §7/§8
// invariant 7).
func errorResponse(err error) *domain.Response {
	be := domain.AsBridgeError(err)
	resp := &domain.Response{
		Error:     be.Error(),
		ErrorType: string(be.Kind),
	}
	return resp.Stamp(be.Kind.HTTPStatus(), time.Now())
}

func writeError(w http.ResponseWriter, err error) {
	resp := errorResponse(err)
	writeJSON(w, resp.Status, resp)
}
