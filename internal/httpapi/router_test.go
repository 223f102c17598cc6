package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beanbridge/bridge/internal/domain"
	"github.com/beanbridge/bridge/internal/restrict"
)

type fakeManager struct {
	calls []*domain.Request
	resp  func(*domain.Request) *domain.Response
}

func (f *fakeManager) HandleRequest(_ context.Context, req *domain.Request, _ restrict.Caller) *domain.Response {
	f.calls = append(f.calls, req)
	if f.resp != nil {
		return f.resp(req)
	}
	return (&domain.Response{Value: "ok"}).Stamp(200, time.Now())
}

func newTestServer(m *fakeManager) http.Handler {
	return NewRouter(&Server{Manager: m})
}

func TestHandleGET_ParsesPathAndDispatches(t *testing.T) {
	m := &fakeManager{}
	srv := newTestServer(m)

	req := httptest.NewRequest(http.MethodGet, "/read/test:type=Widget/Count", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Len(t, m.calls, 1)
	assert.Equal(t, domain.VerbRead, m.calls[0].Verb)
	assert.Equal(t, "test:type=Widget", m.calls[0].Name)
	assert.Equal(t, "Count", m.calls[0].Attribute)

	var body domain.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "ok", body.Value)
}

func TestHandleGET_InvalidPath_Returns400WithoutDispatch(t *testing.T) {
	m := &fakeManager{}
	srv := newTestServer(m)

	req := httptest.NewRequest(http.MethodGet, "/bogusverb/foo", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, m.calls)
}

func TestHandlePOST_SingleObject_ReturnsSingleEnvelope(t *testing.T) {
	m := &fakeManager{}
	srv := newTestServer(m)

	body := `{"type":"read","mbean":"test:type=Widget","attribute":"Count"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Len(t, m.calls, 1)
	var resp domain.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "ok", resp.Value)
}

func TestHandlePOST_BulkArray_ReturnsArrayOfEnvelopes(t *testing.T) {
	m := &fakeManager{}
	srv := newTestServer(m)

	body := `[{"type":"version"},{"type":"version"}]`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Len(t, m.calls, 2)
	var resp []domain.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp, 2)
}

func TestHandlePOST_BulkArray_BadElementDoesNotAbortSiblings(t *testing.T) {
	m := &fakeManager{}
	srv := newTestServer(m)

	body := `[{"type":"version"},{"type":"bogus"}]`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Len(t, m.calls, 1)
	var resp []domain.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp, 2)
	assert.Equal(t, 200, resp[0].Status)
	assert.Equal(t, 400, resp[1].Status)
	assert.NotEmpty(t, resp[1].Error)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlePOST_MalformedBody_Returns400(t *testing.T) {
	m := &fakeManager{}
	srv := newTestServer(m)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("not json"))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, m.calls)
}

func TestHealthz_AlwaysOK(t *testing.T) {
	srv := newTestServer(&fakeManager{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestID_SetOnResponse(t *testing.T) {
	srv := newTestServer(&fakeManager{})
	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}
