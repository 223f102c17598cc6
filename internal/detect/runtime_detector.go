package detect

import (
	"context"
	"runtime"

	"github.com/beanbridge/bridge/internal/mbean"
)

// RuntimeDetector is the bundled, first-in-chain detector: it always
// matches, describing the bridge's own Go process (there being no JVM to
// distinguish vendors for). Because Chain.Run keeps the first non-nil
// handle, detectors placed after it in the chain only contribute
// registries; their Detect is not called and cannot replace this handle.
type RuntimeDetector struct {
	AgentURL string
}

func (RuntimeDetector) ContributedRegistries(context.Context) ([]mbean.Registry, error) {
	return nil, nil
}

func (d RuntimeDetector) Detect(context.Context, []mbean.Registry) (*ServerHandle, error) {
	return &ServerHandle{
		Vendor:   "beanbridge",
		Product:  "go-runtime",
		Version:  runtime.Version(),
		AgentURL: d.AgentURL,
		ExtraInfo: map[string]string{
			"goos":   runtime.GOOS,
			"goarch": runtime.GOARCH,
		},
	}, nil
}
