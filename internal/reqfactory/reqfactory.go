// Package reqfactory builds domain.Request values from the two transport
// shapes the HTTP façade accepts: a GET path-info string plus query
// parameters, or a POST JSON body plus query parameters (SPEC_FULL.md §4.2).
package reqfactory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/beanbridge/bridge/internal/domain"
	"github.com/beanbridge/bridge/internal/objname"
	"github.com/beanbridge/bridge/internal/pathcodec"
)

// FromGET builds a single request from a path-info string (the URI path
// after stripping the endpoint prefix, still wire-escaped) and the request's
// query parameters. The first path segment selects the verb; the rest are
// interpreted per the table in spec.md §6.
func FromGET(pathInfo string, query url.Values) (*domain.Request, error) {
	segments := pathcodec.Split(pathInfo)
	if len(segments) == 0 || segments[0] == "" {
		return nil, domain.Invalidf("reqfactory: empty path, expected /<verb>/...")
	}

	verb := domain.Verb(segments[0])
	if !domain.ValidVerb(string(verb)) {
		return nil, domain.Invalidf("reqfactory: unknown verb %q", segments[0])
	}
	rest := segments[1:]

	req := &domain.Request{Verb: verb}
	req.MarkFromGET()

	switch verb {
	case domain.VerbRead:
		if err := fillRead(req, rest); err != nil {
			return nil, err
		}
	case domain.VerbWrite:
		if err := fillWrite(req, rest); err != nil {
			return nil, err
		}
	case domain.VerbExec:
		if err := fillExec(req, rest); err != nil {
			return nil, err
		}
	case domain.VerbSearch:
		if len(rest) == 0 || rest[0] == "" {
			return nil, domain.Invalidf("reqfactory: search requires a pattern")
		}
		req.Pattern = rest[0]
	case domain.VerbList:
		req.Path = pathcodec.Join(rest)
	case domain.VerbVersion:
		// no extra fields
	case domain.VerbNotification:
		return nil, domain.Invalidf("reqfactory: notification is not a GET-addressable verb")
	}

	req.Options = queryOptions(query)

	if err := Validate(req); err != nil {
		return nil, err
	}
	return req, nil
}

func fillRead(req *domain.Request, rest []string) error {
	if len(rest) == 0 || rest[0] == "" {
		return domain.Invalidf("reqfactory: read requires an object name")
	}
	req.Name = rest[0]
	if _, err := objname.Parse(req.Name); err != nil {
		return domain.Invalidf("reqfactory: %v", err)
	}
	if len(rest) > 1 && rest[1] != "" {
		req.Attribute = rest[1]
	}
	if len(rest) > 2 {
		req.Path = pathcodec.Join(rest[2:])
	}
	return nil
}

func fillWrite(req *domain.Request, rest []string) error {
	if len(rest) < 3 {
		return domain.Invalidf("reqfactory: write requires <name>/<attr>/<value>")
	}
	req.Name = rest[0]
	if _, err := objname.Parse(req.Name); err != nil {
		return domain.Invalidf("reqfactory: %v", err)
	}
	if rest[1] == "" {
		return domain.Invalidf("reqfactory: write requires a non-empty attribute name")
	}
	req.Attribute = rest[1]
	req.Value = scalarFromPathSegment(rest[2])
	if len(rest) > 3 {
		req.Path = pathcodec.Join(rest[3:])
	}
	return nil
}

func fillExec(req *domain.Request, rest []string) error {
	if len(rest) < 2 || rest[1] == "" {
		return domain.Invalidf("reqfactory: exec requires <name>/<operation>")
	}
	req.Name = rest[0]
	if _, err := objname.Parse(req.Name); err != nil {
		return domain.Invalidf("reqfactory: %v", err)
	}
	req.Operation = rest[1]
	for _, arg := range rest[2:] {
		req.Arguments = append(req.Arguments, scalarFromPathSegment(arg))
	}
	return nil
}

// scalarFromPathSegment turns a single URI path segment into a JSON value.
// A segment that already parses as JSON (a number, "true"/"false"/"null", or
// a quoted string) is taken as-is; anything else is treated as a bare string
// literal, matching how a browser client's simple GET-based writes behave
// when it cannot encode a JSON body.
func scalarFromPathSegment(s string) json.RawMessage {
	if json.Valid([]byte(s)) {
		return json.RawMessage(s)
	}
	quoted, _ := json.Marshal(s)
	return json.RawMessage(quoted)
}

// FromPOST parses a POST body as JSON. A root array yields one request per
// element (bulk=true); a root object yields a single request (bulk=false).
// Any other root shape is an InvalidRequest that aborts the whole call. An
// unknown key, unknown verb, or failed validation within one element of a
// bulk array, however, never aborts its siblings (spec.md §7/§8 invariant
// 7: "response is an array of size N in the same order, regardless of
// per-element success"): that element's slot in reqs is nil and the same
// index in errs carries its error, so the caller can still emit an N-length
// array of envelopes. Query-parameter processing options are applied as
// defaults; a request's own "config" object, if present, wins.
func FromPOST(body io.Reader, query url.Values) (reqs []*domain.Request, errs []error, bulk bool, err error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, nil, false, domain.Invalidf("reqfactory: read body: %v", err)
	}

	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, nil, false, domain.Invalidf("reqfactory: empty body")
	}

	base := queryOptions(query)

	switch trimmed[0] {
	case '[':
		var elems []json.RawMessage
		if err := strictUnmarshal(trimmed, &elems); err != nil {
			return nil, nil, false, domain.Invalidf("reqfactory: invalid JSON array: %v", err)
		}
		reqs := make([]*domain.Request, len(elems))
		errs := make([]error, len(elems))
		for i, elem := range elems {
			r, err := decodeOne(elem, base)
			if err != nil {
				errs[i] = fmt.Errorf("element %d: %w", i, err)
				continue
			}
			reqs[i] = r
		}
		return reqs, errs, true, nil
	case '{':
		r, err := decodeOne(trimmed, base)
		if err != nil {
			return nil, nil, false, err
		}
		return []*domain.Request{r}, []error{nil}, false, nil
	default:
		return nil, nil, false, domain.Invalidf("reqfactory: POST body must be a JSON object or array")
	}
}

func decodeOne(raw json.RawMessage, base *domain.ProcessingOptions) (*domain.Request, error) {
	var req domain.Request
	if err := strictUnmarshal(raw, &req); err != nil {
		return nil, domain.Invalidf("reqfactory: %v", err)
	}
	if !domain.ValidVerb(string(req.Verb)) {
		return nil, domain.Invalidf("reqfactory: unknown verb %q", req.Verb)
	}
	req.Options = mergeOptions(base, req.Options)
	if err := Validate(&req); err != nil {
		return nil, err
	}
	return &req, nil
}

func strictUnmarshal(raw json.RawMessage, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	return nil
}

// Validate enforces the structural invariants of spec.md §3: every verb
// needs its minimum addressing fields, and GET-originated requests forbid
// list-valued attributes, bulk arrays (caught upstream — FromGET never
// builds more than one request), and target proxies.
func Validate(req *domain.Request) error {
	switch req.Verb {
	case domain.VerbRead, domain.VerbWrite, domain.VerbExec:
		if req.Name == "" {
			return domain.Invalidf("reqfactory: %s requires an object name", req.Verb)
		}
	case domain.VerbSearch:
		if req.Pattern == "" {
			return domain.Invalidf("reqfactory: search requires a pattern")
		}
	}
	if req.Verb == domain.VerbWrite && req.Attribute == "" {
		return domain.Invalidf("reqfactory: write requires an attribute name")
	}
	if req.Verb == domain.VerbExec && req.Operation == "" {
		return domain.Invalidf("reqfactory: exec requires an operation name")
	}

	if req.FromGET() {
		if len(req.Attributes) > 0 {
			return domain.Invalidf("reqfactory: GET requests cannot carry a list-valued attribute set")
		}
		if req.Target != nil {
			return domain.Invalidf("reqfactory: GET requests cannot proxy to a target")
		}
	}
	return nil
}

// queryOptions builds ProcessingOptions from the query-parameter names in
// spec.md §6. Unset or unparsable parameters leave the corresponding field
// at its zero value.
func queryOptions(query url.Values) *domain.ProcessingOptions {
	opts := &domain.ProcessingOptions{}
	if v := query.Get("maxDepth"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			opts.MaxDepth = n
		}
	}
	if v := query.Get("maxCollectionSize"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			opts.MaxCollectionSize = n
		}
	}
	if v := query.Get("maxObjects"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			opts.MaxObjects = n
		}
	}
	opts.IgnoreErrors = queryBool(query, "ignoreErrors")
	opts.IncludeStackTrace = queryBool(query, "includeStackTrace")
	opts.SerializeException = queryBool(query, "serializeException")
	opts.CanonicalNaming = queryBool(query, "canonicalNaming")
	return opts
}

func queryBool(query url.Values, key string) bool {
	v := strings.ToLower(query.Get(key))
	b, _ := strconv.ParseBool(v)
	return b
}

// mergeOptions overlays body (if any non-zero fields are set) on top of
// base, which was derived from query parameters. Per spec.md §4.2 "if both
// are present, body wins" — field by field, so a body that sets only
// maxDepth doesn't clobber a query-supplied maxCollectionSize.
func mergeOptions(base, body *domain.ProcessingOptions) *domain.ProcessingOptions {
	if body == nil {
		return base
	}
	merged := *base
	if body.ValueFaultPolicy != "" {
		merged.ValueFaultPolicy = body.ValueFaultPolicy
	}
	if body.MaxDepth != 0 {
		merged.MaxDepth = body.MaxDepth
	}
	if body.MaxCollectionSize != 0 {
		merged.MaxCollectionSize = body.MaxCollectionSize
	}
	if body.MaxObjects != 0 {
		merged.MaxObjects = body.MaxObjects
	}
	if body.IgnoreErrors {
		merged.IgnoreErrors = true
	}
	if body.IncludeStackTrace {
		merged.IncludeStackTrace = true
	}
	if body.SerializeException {
		merged.SerializeException = true
	}
	if body.CanonicalNaming {
		merged.CanonicalNaming = true
	}
	return &merged
}
