package detect

import (
	"context"
	"errors"
	"testing"

	"github.com/beanbridge/bridge/internal/mbean"
	"github.com/stretchr/testify/assert"
)

type stubDetector struct {
	handle  *ServerHandle
	err     error
	panics  bool
	regs    []mbean.Registry
	regsErr error
}

func (s stubDetector) Detect(context.Context, []mbean.Registry) (*ServerHandle, error) {
	if s.panics {
		panic("boom")
	}
	return s.handle, s.err
}

func (s stubDetector) ContributedRegistries(context.Context) ([]mbean.Registry, error) {
	return s.regs, s.regsErr
}

func TestChainFirstNonNilWins(t *testing.T) {
	c := NewChain(nil,
		stubDetector{handle: nil},
		stubDetector{handle: &ServerHandle{Vendor: "first"}},
		stubDetector{handle: &ServerHandle{Vendor: "second"}},
	)
	h, _ := c.Run(context.Background(), nil)
	assert.Equal(t, "first", h.Vendor)
}

func TestChainFallsBackToGeneric(t *testing.T) {
	c := NewChain(nil, stubDetector{handle: nil})
	h, _ := c.Run(context.Background(), nil)
	assert.Equal(t, Generic().Vendor, h.Vendor)
}

func TestChainSwallowsDetectorErrorsAndPanics(t *testing.T) {
	c := NewChain(nil,
		stubDetector{err: errors.New("boom")},
		stubDetector{panics: true},
		stubDetector{handle: &ServerHandle{Vendor: "ok"}},
	)
	h, _ := c.Run(context.Background(), nil)
	assert.Equal(t, "ok", h.Vendor)
}

func TestChainUnionsContributedRegistries(t *testing.T) {
	r1 := mbean.NewLocalRegistry("r1")
	r2 := mbean.NewLocalRegistry("r2")
	c := NewChain(nil,
		stubDetector{regs: []mbean.Registry{r1}},
		stubDetector{regs: []mbean.Registry{r2}, regsErr: nil},
	)
	_, extra := c.Run(context.Background(), nil)
	assert.Len(t, extra, 2)
}
