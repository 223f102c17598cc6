package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInvalidf_CapturesStackTrace(t *testing.T) {
	err := Invalidf("bad request: %s", "widget")
	assert.NotEmpty(t, err.StackTrace)
	assert.Equal(t, KindInvalidRequest, err.Kind)
}

func TestForbiddenf_NeverCapturesStackTrace(t *testing.T) {
	err := Forbiddenf("denied")
	assert.Empty(t, err.StackTrace)
}

func TestAsBridgeError_WrapsPlainErrorWithStackTrace(t *testing.T) {
	err := AsBridgeError(errors.New("boom"))
	assert.Equal(t, KindInternal, err.Kind)
	assert.NotEmpty(t, err.StackTrace)
}

func TestAsBridgeError_PassesThroughExistingBridgeError(t *testing.T) {
	orig := NotFoundf("missing: %s", "foo")
	got := AsBridgeError(orig)
	assert.Same(t, orig, got)
}
