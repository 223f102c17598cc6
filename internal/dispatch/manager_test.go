package dispatch

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beanbridge/bridge/internal/convert"
	"github.com/beanbridge/bridge/internal/domain"
	"github.com/beanbridge/bridge/internal/history"
	"github.com/beanbridge/bridge/internal/mbean"
	"github.com/beanbridge/bridge/internal/objname"
	"github.com/beanbridge/bridge/internal/restrict"
	"github.com/beanbridge/bridge/internal/verb"
)

type widget struct {
	Count int `mbean:"Count" mbean-rw:"true"`
}

type fixedRegistries struct{ regs []mbean.Registry }

func (f fixedRegistries) Registries() []mbean.Registry { return f.regs }

func testLog() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newManager(t *testing.T, extra ...Dispatcher) (*Manager, *mbean.LocalRegistry, objname.Name) {
	t.Helper()
	reg := mbean.NewLocalRegistry("test")
	name, err := objname.Parse("test:type=Widget")
	require.NoError(t, err)
	require.NoError(t, reg.Register(name, &widget{Count: 5}))

	table := verb.NewTable(verb.ServerInfo{Vendor: "beanbridge"})
	hist := history.New(10, 100, 0)
	m := NewManager(fixedRegistries{regs: []mbean.Registry{reg}}, nil, table, restrict.AllowAll{}, hist, convert.NewSyncedOptions(convert.DefaultOptions()), testLog(), WithExtraDispatchers(extra...))
	return m, reg, name
}

func TestHandleRequest_Read_Succeeds(t *testing.T) {
	m, _, name := newManager(t)
	req := &domain.Request{Verb: domain.VerbRead, Name: name.Canonical(), Attribute: "Count"}

	resp := m.HandleRequest(context.Background(), req, restrict.Caller{})
	require.Equal(t, 200, resp.Status)
	assert.Equal(t, 5, resp.Value)
	assert.Empty(t, resp.Error)
}

func TestHandleRequest_UnknownInstance_Returns404(t *testing.T) {
	m, _, _ := newManager(t)
	req := &domain.Request{Verb: domain.VerbRead, Name: "test:name=bogus", Attribute: "X"}

	resp := m.HandleRequest(context.Background(), req, restrict.Caller{})
	assert.Equal(t, 404, resp.Status)
	assert.Equal(t, string(domain.KindNotFound), resp.ErrorType)
}

func TestHandleRequest_VerbDenied_Returns403(t *testing.T) {
	reg := mbean.NewLocalRegistry("test")
	table := verb.NewTable(verb.ServerInfo{})
	hist := history.New(10, 100, 0)
	m := NewManager(fixedRegistries{regs: []mbean.Registry{reg}}, nil, table, denyAll{}, hist, convert.NewSyncedOptions(convert.DefaultOptions()), testLog())

	resp := m.HandleRequest(context.Background(), &domain.Request{Verb: domain.VerbRead, Name: "test:type=Widget", Attribute: "Count"}, restrict.Caller{})
	assert.Equal(t, 403, resp.Status)
	assert.Equal(t, string(domain.KindForbidden), resp.ErrorType)
	assert.Empty(t, resp.StackTrace)
}

func TestHandleRequest_Write_CapturesHistory(t *testing.T) {
	m, _, name := newManager(t)
	writeReq := &domain.Request{Verb: domain.VerbWrite, Name: name.Canonical(), Attribute: "Count", Value: []byte(`9`)}
	first := m.HandleRequest(context.Background(), writeReq, restrict.Caller{})
	require.Equal(t, 200, first.Status)
	assert.Empty(t, first.History)

	second := m.HandleRequest(context.Background(), writeReq, restrict.Caller{})
	require.Equal(t, 200, second.Status)
	require.Len(t, second.History, 1)
	assert.Equal(t, 5, second.History[0].Value)
}

func TestHandleRequest_PatternRead_NeverCapturesHistory(t *testing.T) {
	m, _, _ := newManager(t)
	req := &domain.Request{Verb: domain.VerbRead, Name: "test:type=*", Attribute: "Count"}

	resp := m.HandleRequest(context.Background(), req, restrict.Caller{})
	require.Equal(t, 200, resp.Status)
	assert.Empty(t, resp.History)
}

func TestHandleRequest_ExtraDispatcherClaims_SkipsLocal(t *testing.T) {
	ext := fakeDispatcher{claim: true, resp: &domain.Response{Value: "from-plugin"}}
	m, _, name := newManager(t, ext)

	resp := m.HandleRequest(context.Background(), &domain.Request{Verb: domain.VerbRead, Name: name.Canonical(), Attribute: "Count"}, restrict.Caller{})
	require.Equal(t, 200, resp.Status)
	assert.Equal(t, "from-plugin", resp.Value)
}

func TestHandleRequest_ExtraDispatcherDeclines_FallsThroughToLocal(t *testing.T) {
	ext := fakeDispatcher{claim: false}
	m, _, name := newManager(t, ext)

	resp := m.HandleRequest(context.Background(), &domain.Request{Verb: domain.VerbRead, Name: name.Canonical(), Attribute: "Count"}, restrict.Caller{})
	require.Equal(t, 200, resp.Status)
	assert.Equal(t, 5, resp.Value)
}

type fakeDispatcher struct {
	claim bool
	resp  *domain.Response
}

func (f fakeDispatcher) Name() string { return "fake" }
func (f fakeDispatcher) CanHandle(context.Context, *domain.Request) bool { return f.claim }
func (f fakeDispatcher) HandleRequest(context.Context, *domain.Request) (*domain.Response, error) {
	return f.resp, nil
}

type denyAll struct{}

func (denyAll) IsVerbAllowed(domain.Verb, restrict.Caller) bool { return false }
func (denyAll) IsAttributeAllowed(domain.Verb, objname.Name, string, restrict.Caller) bool {
	return false
}
func (denyAll) IsOperationAllowed(objname.Name, string, restrict.Caller) bool { return false }
