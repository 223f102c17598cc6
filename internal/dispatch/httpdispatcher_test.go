package dispatch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beanbridge/bridge/internal/domain"
)

func TestHTTPDispatcher_CanHandle_TrueWhenPluginClaims(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/canHandle", r.URL.Path)
		_ = json.NewEncoder(w).Encode(claimResponse{Claim: true})
	}))
	defer srv.Close()

	d := NewHTTPDispatcher("legacy", srv.URL, srv.Client())
	assert.True(t, d.CanHandle(context.Background(), &domain.Request{Verb: domain.VerbRead, Name: "test:type=Widget"}))
}

func TestHTTPDispatcher_CanHandle_FalseOnUnreachablePlugin(t *testing.T) {
	d := NewHTTPDispatcher("legacy", "http://127.0.0.1:1", nil)
	assert.False(t, d.CanHandle(context.Background(), &domain.Request{Verb: domain.VerbRead}))
}

func TestHTTPDispatcher_CanHandle_FalseWhenPluginDeclines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(claimResponse{Claim: false})
	}))
	defer srv.Close()

	d := NewHTTPDispatcher("legacy", srv.URL, srv.Client())
	assert.False(t, d.CanHandle(context.Background(), &domain.Request{Verb: domain.VerbRead}))
}

func TestHTTPDispatcher_HandleRequest_ForwardsAndDecodesEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/handle", r.URL.Path)
		var req domain.Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test:type=Widget", req.Name)
		_ = json.NewEncoder(w).Encode(domain.Response{Status: 200, Value: "proxied"})
	}))
	defer srv.Close()

	d := NewHTTPDispatcher("legacy", srv.URL, srv.Client())
	resp, err := d.HandleRequest(context.Background(), &domain.Request{Verb: domain.VerbRead, Name: "test:type=Widget"})
	require.NoError(t, err)
	assert.Equal(t, "proxied", resp.Value)
}

func TestHTTPDispatcher_HandleRequest_ErrorsOnTransportFailure(t *testing.T) {
	d := NewHTTPDispatcher("legacy", "http://127.0.0.1:1", nil)
	_, err := d.HandleRequest(context.Background(), &domain.Request{Verb: domain.VerbRead})
	assert.Error(t, err)
}

func TestHTTPDispatcher_Name(t *testing.T) {
	d := NewHTTPDispatcher("legacy", "http://example.invalid", nil)
	assert.Equal(t, "legacy", d.Name())
}
