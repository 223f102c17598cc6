package detect

import (
	"context"
	"log/slog"

	"github.com/beanbridge/bridge/internal/mbean"
)

// Detector inspects the live bean-registry set and returns a handle if it
// recognizes the hosting product, or (nil, nil) if it does not apply.
// Detectors may also return extra registries they discover (e.g., some
// products expose a registry locator), independent of whether they matched.
type Detector interface {
	Detect(ctx context.Context, registries []mbean.Registry) (*ServerHandle, error)
	// ContributedRegistries returns any extra registries this detector found,
	// called regardless of whether Detect matched. Failures are logged and
	// swallowed by Chain.Run — startup never aborts on a detector (spec.md §4.3).
	ContributedRegistries(ctx context.Context) ([]mbean.Registry, error)
}

// Chain runs an ordered list of detectors: bundled ones first, then any
// reflectively/plugin-loaded extras appended by config.
type Chain struct {
	Detectors []Detector
	Log       *slog.Logger
}

// NewChain builds a chain with the given detectors in priority order.
func NewChain(log *slog.Logger, detectors ...Detector) *Chain {
	if log == nil {
		log = slog.Default()
	}
	return &Chain{Detectors: detectors, Log: log}
}

// Run evaluates each detector in order and returns the first non-nil handle,
// plus the union of every detector's contributed registries. If no detector
// matches, Generic() is returned. A detector that fails to contribute
// registries is logged and skipped — it never aborts the chain.
func (c *Chain) Run(ctx context.Context, base []mbean.Registry) (*ServerHandle, []mbean.Registry) {
	var handle *ServerHandle
	extra := make([]mbean.Registry, 0)

	for _, d := range c.Detectors {
		contributed, err := safeContribute(ctx, d)
		if err != nil {
			c.Log.Error("detector failed to contribute registries", "error", err)
		} else {
			extra = append(extra, contributed...)
		}

		if handle != nil {
			continue
		}
		h, err := safeDetect(ctx, d, append(append([]mbean.Registry{}, base...), extra...))
		if err != nil {
			c.Log.Error("detector failed", "error", err)
			continue
		}
		if h != nil {
			handle = h
		}
	}

	if handle == nil {
		handle = Generic()
	}
	return handle, extra
}

func safeDetect(ctx context.Context, d Detector, registries []mbean.Registry) (h *ServerHandle, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recoveredAsError(r)
		}
	}()
	return d.Detect(ctx, registries)
}

func safeContribute(ctx context.Context, d Detector) (regs []mbean.Registry, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recoveredAsError(r)
		}
	}()
	return d.ContributedRegistries(ctx)
}
