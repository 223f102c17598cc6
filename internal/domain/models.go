// Package domain defines the core request/response types shared across the
// bridge. These types represent the management-bus protocol, not HTTP or
// transport specifics — see internal/httpapi for the wire adapter.
//
// Domain types carry json tags because they are directly serialized in the
// response envelope. This is intentional: Go's stdlib encoding/json uses
// struct tags for field mapping, and a separate wire-response type for every
// domain type would add boilerplate without measurable benefit.
package domain

import (
	"encoding/json"
	"time"
)

// Verb is the protocol-level action tag.
type Verb string

const (
	VerbRead         Verb = "read"
	VerbWrite        Verb = "write"
	VerbExec         Verb = "exec"
	VerbSearch       Verb = "search"
	VerbList         Verb = "list"
	VerbVersion      Verb = "version"
	VerbNotification Verb = "notification"
)

// ValidVerb reports whether s names a known verb.
func ValidVerb(s string) bool {
	switch Verb(s) {
	case VerbRead, VerbWrite, VerbExec, VerbSearch, VerbList, VerbVersion, VerbNotification:
		return true
	}
	return false
}

// ValueFaultPolicy controls how per-attribute failures are rendered inside a
// multi-attribute read.
type ValueFaultPolicy string

const (
	// FaultIgnore inserts the error string as the value for the failed attribute (default).
	FaultIgnore ValueFaultPolicy = "ignore"
	// FaultStrict rethrows the first per-attribute failure as a whole-request error.
	FaultStrict ValueFaultPolicy = "strict"
)

// ProcessingOptions carries the per-request conversion and fault-tolerance knobs.
// These may be supplied via query parameters (GET) or the request body (POST);
// body values win when both are present.
type ProcessingOptions struct {
	ValueFaultPolicy   ValueFaultPolicy `json:"valueFaultPolicy,omitempty"`
	MaxDepth           int              `json:"maxDepth,omitempty"`
	MaxCollectionSize  int              `json:"maxCollectionSize,omitempty"`
	MaxObjects         int              `json:"maxObjects,omitempty"`
	IgnoreErrors       bool             `json:"ignoreErrors,omitempty"`
	IncludeStackTrace  bool             `json:"includeStackTrace,omitempty"`
	SerializeException bool             `json:"serializeException,omitempty"`
	CanonicalNaming    bool             `json:"canonicalNaming,omitempty"`
}

// Target describes an optional remote-agent proxy destination. GET requests
// forbid targets (see reqfactory.Validate).
type Target struct {
	URL      string `json:"url"`
	User     string `json:"user,omitempty"`
	Password string `json:"password,omitempty"`
}

// Request is a tagged variant over verbs. Only the fields relevant to Verb
// are populated; see the table in SPEC_FULL.md §3.
type Request struct {
	Verb    Verb               `json:"type"`
	Name    string             `json:"mbean,omitempty"`
	Path    string             `json:"path,omitempty"`
	Options *ProcessingOptions `json:"config,omitempty"`
	Target  *Target            `json:"target,omitempty"`

	// read
	Attribute  string   `json:"attribute,omitempty"`
	Attributes []string `json:"attributes,omitempty"`

	// write
	Value json.RawMessage `json:"value,omitempty"`

	// exec
	Operation string            `json:"operation,omitempty"`
	Arguments []json.RawMessage `json:"arguments,omitempty"`

	// search
	Pattern string `json:"pattern,omitempty"`

	// notification
	NotifySubVerb string `json:"command,omitempty"`
	ClientID      string `json:"client,omitempty"`

	// fromGET marks requests parsed off a URI path, where bulk arrays,
	// list-valued attributes and target proxies are forbidden. Not part of
	// the wire shape.
	fromGET bool
}

// MarkFromGET flags the request as having been parsed from a GET path, which
// activates the GET-only restrictions enforced by reqfactory.Validate.
func (r *Request) MarkFromGET() { r.fromGET = true }

// FromGET reports whether this request originated from a GET path.
func (r *Request) FromGET() bool { return r.fromGET }

// EffectiveOptions returns r.Options, defaulting to a zero-value
// ProcessingOptions if none was supplied.
func (r *Request) EffectiveOptions() ProcessingOptions {
	if r.Options == nil {
		return ProcessingOptions{}
	}
	return *r.Options
}

// Response is the JSON envelope returned for every request.
type Response struct {
	Status     int             `json:"status"`
	Timestamp  int64           `json:"timestamp,omitempty"`
	Request    *Request        `json:"request,omitempty"`
	Value      any             `json:"value,omitempty"`
	Error      string          `json:"error,omitempty"`
	ErrorType  string          `json:"error_type,omitempty"`
	StackTrace string          `json:"stacktrace,omitempty"`
	History    []HistoryRecord `json:"history,omitempty"`
}

// HistoryRecord is the wire shape of one prior value in a response's history array.
type HistoryRecord struct {
	Value     any   `json:"value"`
	Timestamp int64 `json:"timestamp"`
}

// Stamp sets Status and Timestamp (seconds since epoch) on r and returns r,
// mirroring the backend manager's final step in SPEC_FULL.md §4.4.
func (r *Response) Stamp(status int, now time.Time) *Response {
	r.Status = status
	r.Timestamp = now.Unix()
	return r
}
