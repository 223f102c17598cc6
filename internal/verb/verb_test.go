package verb

import (
	"context"
	"encoding/json"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beanbridge/bridge/internal/domain"
	"github.com/beanbridge/bridge/internal/mbean"
	"github.com/beanbridge/bridge/internal/objname"
	"github.com/beanbridge/bridge/internal/restrict"
)

type widget struct {
	Name  string `mbean:"Name" mbean-rw:"true"`
	Count int    `mbean:"Count"`
}

func newTestRegistry(t *testing.T) (*mbean.LocalRegistry, objname.Name, *widget) {
	t.Helper()
	reg := mbean.NewLocalRegistry("test")
	name, err := objname.Parse("test:type=Widget")
	require.NoError(t, err)
	w := &widget{Name: "gizmo", Count: 3}
	require.NoError(t, reg.Register(name, w))
	require.NoError(t, reg.RegisterOperation(name, "double", []reflect.Type{reflect.TypeOf(0)}, func(args []any) (any, error) {
		return args[0].(int) * 2, nil
	}))
	return reg, name, w
}

func TestReadHandler_SingleAttribute(t *testing.T) {
	reg, name, _ := newTestRegistry(t)
	h := ReadHandler{}
	req := &domain.Request{Verb: domain.VerbRead, Name: name.Canonical(), Attribute: "Count"}

	assert.False(t, h.AllAtOnce(req))
	v, err := h.Handle(context.Background(), []mbean.Registry{reg}, req, restrict.AllowAll{}, restrict.Caller{})
	require.NoError(t, err)
	assert.Equal(t, 3, v)
}

func TestReadHandler_AllAttributes(t *testing.T) {
	reg, name, _ := newTestRegistry(t)
	h := ReadHandler{}
	req := &domain.Request{Verb: domain.VerbRead, Name: name.Canonical()}

	assert.True(t, h.AllAtOnce(req))
	v, err := h.Handle(context.Background(), []mbean.Registry{reg}, req, restrict.AllowAll{}, restrict.Caller{})
	require.NoError(t, err)
	m, ok := v.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "gizmo", m["Name"])
	assert.Equal(t, 3, m["Count"])
}

func TestReadHandler_Pattern_UnionsMatches(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	h := ReadHandler{}
	req := &domain.Request{Verb: domain.VerbRead, Name: "test:type=*", Attribute: "Count"}

	assert.True(t, h.AllAtOnce(req))
	v, err := h.Handle(context.Background(), []mbean.Registry{reg}, req, restrict.AllowAll{}, restrict.Caller{})
	require.NoError(t, err)
	m, ok := v.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 3, m["test:type=Widget"])
}

func TestReadHandler_PatternNoMatchNonEmptyAttrs_IsInvalid(t *testing.T) {
	reg := mbean.NewLocalRegistry("empty")
	h := ReadHandler{}
	req := &domain.Request{Verb: domain.VerbRead, Name: "nothing:type=*", Attribute: "X"}

	_, err := h.Handle(context.Background(), []mbean.Registry{reg}, req, restrict.AllowAll{}, restrict.Caller{})
	assert.Error(t, err)
	assert.Equal(t, domain.KindInvalidRequest, domain.AsBridgeError(err).Kind)
}

func TestReadHandler_PatternNoMatchEmptyAttrs_ReturnsEmptyObject(t *testing.T) {
	reg := mbean.NewLocalRegistry("empty")
	h := ReadHandler{}
	req := &domain.Request{Verb: domain.VerbRead, Name: "nothing:type=*"}

	v, err := h.Handle(context.Background(), []mbean.Registry{reg}, req, restrict.AllowAll{}, restrict.Caller{})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{}, v)
}

func TestReadHandler_RestrictorDenies(t *testing.T) {
	reg, name, _ := newTestRegistry(t)
	h := ReadHandler{}
	req := &domain.Request{Verb: domain.VerbRead, Name: name.Canonical(), Attribute: "Count"}
	deny := restrict.DenyList{Patterns: []objname.Name{name}}

	_, err := h.Handle(context.Background(), []mbean.Registry{reg}, req, deny, restrict.Caller{})
	assert.Error(t, err)
	assert.Equal(t, domain.KindForbidden, domain.AsBridgeError(err).Kind)
}

func TestReadHandler_InstanceNotFound(t *testing.T) {
	reg := mbean.NewLocalRegistry("empty")
	h := ReadHandler{}
	req := &domain.Request{Verb: domain.VerbRead, Name: "test:name=bogus", Attribute: "X"}

	_, err := h.Handle(context.Background(), []mbean.Registry{reg}, req, restrict.AllowAll{}, restrict.Caller{})
	assert.True(t, domain.IsNotFound(err))
}

func TestWriteHandler_ConvertsAndReturnsPrevious(t *testing.T) {
	reg, name, w := newTestRegistry(t)
	h := WriteHandler{}
	req := &domain.Request{Verb: domain.VerbWrite, Name: name.Canonical(), Attribute: "Name", Value: []byte(`"renamed"`)}

	assert.False(t, h.AllAtOnce(req))
	prev, err := h.Handle(context.Background(), []mbean.Registry{reg}, req, restrict.AllowAll{}, restrict.Caller{})
	require.NoError(t, err)
	assert.Equal(t, "gizmo", prev)
	assert.Equal(t, "renamed", w.Name)
}

func TestExecHandler_ConvertsArgsAndInvokes(t *testing.T) {
	reg, name, _ := newTestRegistry(t)
	h := ExecHandler{}
	req := &domain.Request{Verb: domain.VerbExec, Name: name.Canonical(), Operation: "double", Arguments: []json.RawMessage{[]byte(`21`)}}

	result, err := h.Handle(context.Background(), []mbean.Registry{reg}, req, restrict.AllowAll{}, restrict.Caller{})
	require.NoError(t, err)
	assert.Equal(t, 42, result)
}

func TestExecHandler_UnknownOperation_IsTargetFailure(t *testing.T) {
	reg, name, _ := newTestRegistry(t)
	h := ExecHandler{}
	req := &domain.Request{Verb: domain.VerbExec, Name: name.Canonical(), Operation: "bogus"}

	_, err := h.Handle(context.Background(), []mbean.Registry{reg}, req, restrict.AllowAll{}, restrict.Caller{})
	assert.Error(t, err)
	assert.Equal(t, domain.KindTargetFailure, domain.AsBridgeError(err).Kind)
}

func TestSearchHandler_ReturnsSortedNames(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	h := SearchHandler{}
	req := &domain.Request{Verb: domain.VerbSearch, Pattern: "test:type=*"}

	v, err := h.Handle(context.Background(), []mbean.Registry{reg}, req, restrict.AllowAll{}, restrict.Caller{})
	require.NoError(t, err)
	assert.Equal(t, []string{"test:type=Widget"}, v)
}

func TestListHandler_BuildsTree(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	h := ListHandler{}
	req := &domain.Request{Verb: domain.VerbList}

	v, err := h.Handle(context.Background(), []mbean.Registry{reg}, req, restrict.AllowAll{}, restrict.Caller{})
	require.NoError(t, err)
	tree, ok := v.(map[string]any)
	require.True(t, ok)
	domainMap, ok := tree["test"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, domainMap, "type=Widget")
}

func TestVersionHandler_EchoesServerInfo(t *testing.T) {
	h := VersionHandler{Info: ServerInfo{Vendor: "beanbridge", Product: "bridge", Version: "1.2.3"}}
	req := &domain.Request{Verb: domain.VerbVersion}

	assert.True(t, h.AllAtOnce(req))
	v, err := h.Handle(context.Background(), nil, req, restrict.AllowAll{}, restrict.Caller{})
	require.NoError(t, err)
	m := v.(map[string]any)
	assert.Equal(t, protocolVersion, m["protocol"])
	agent := m["agent"].(map[string]string)
	assert.Equal(t, "beanbridge", agent["vendor"])
}

func TestNotificationHandler_RegisterAddListenerUnregister(t *testing.T) {
	reg, name, _ := newTestRegistry(t)
	h := NewNotificationHandler()

	regResp, err := h.Handle(context.Background(), []mbean.Registry{reg}, &domain.Request{Verb: domain.VerbNotification, NotifySubVerb: SubVerbRegister}, restrict.AllowAll{}, restrict.Caller{})
	require.NoError(t, err)
	clientID := regResp.(map[string]string)["client"]
	require.NotEmpty(t, clientID)

	_, err = h.Handle(context.Background(), []mbean.Registry{reg}, &domain.Request{
		Verb: domain.VerbNotification, NotifySubVerb: SubVerbAddListener, ClientID: clientID, Name: name.Canonical(),
	}, restrict.AllowAll{}, restrict.Caller{})
	require.NoError(t, err)

	_, err = h.Handle(context.Background(), []mbean.Registry{reg}, &domain.Request{
		Verb: domain.VerbNotification, NotifySubVerb: SubVerbUnregister, ClientID: clientID,
	}, restrict.AllowAll{}, restrict.Caller{})
	require.NoError(t, err)

	_, err = h.Handle(context.Background(), []mbean.Registry{reg}, &domain.Request{
		Verb: domain.VerbNotification, NotifySubVerb: SubVerbPing, ClientID: clientID,
	}, restrict.AllowAll{}, restrict.Caller{})
	assert.True(t, domain.IsNotFound(err))
}

func TestNotificationHandler_UnknownSubVerb_IsInvalid(t *testing.T) {
	h := NewNotificationHandler()
	_, err := h.Handle(context.Background(), nil, &domain.Request{Verb: domain.VerbNotification, NotifySubVerb: "bogus"}, restrict.AllowAll{}, restrict.Caller{})
	assert.Error(t, err)
	assert.Equal(t, domain.KindInvalidRequest, domain.AsBridgeError(err).Kind)
}
