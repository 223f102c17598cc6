// Package beanserver implements the bean-server handler of spec.md §4.5: a
// stable insertion-ordered registry set merging the platform registry with
// whatever registries the detector chain contributes, atomically
// re-snapshotted on an explicit "rescan" management operation (spec.md §5:
// "built at startup and re-scanned only on an explicit rescan operation;
// readers take a shared snapshot, rescan swaps the snapshot atomically").
package beanserver

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/beanbridge/bridge/internal/mbean"
	"github.com/beanbridge/bridge/internal/objname"
)

// Server owns the platform registry and the merged, atomically-swapped
// registry snapshot the dispatch layer reads from.
type Server struct {
	qualifier string
	platform  *mbean.LocalRegistry

	mu            sync.Mutex // guards detectorRegs and coreBeanNames; snapshot itself is lock-free
	detectorRegs  []mbean.Registry
	coreBeanNames []objname.Name

	snapshot atomic.Pointer[[]mbean.Registry]
}

// NewServer creates a Server with an empty platform registry and an
// initial snapshot containing only that registry. qualifier prefixes the
// core's own bean names (spec.md §6: "their object names include the
// configured qualifier").
func NewServer(qualifier string) *Server {
	s := &Server{qualifier: qualifier, platform: mbean.NewLocalRegistry("platform")}
	s.rebuildSnapshot()
	return s
}

// Platform returns the platform registry, where the core registers its own
// management beans and where detectors may register product-specific ones.
func (s *Server) Platform() *mbean.LocalRegistry { return s.platform }

// AddDetectorRegistry appends a registry contributed by a detector (spec.md
// §4.3: "every detector may contribute extra bean registries to the merged
// set") and rebuilds the snapshot.
func (s *Server) AddDetectorRegistry(reg mbean.Registry) {
	s.mu.Lock()
	s.detectorRegs = append(s.detectorRegs, reg)
	s.mu.Unlock()
	s.rebuildSnapshot()
}

// Registries returns the current merged snapshot. Safe for concurrent use
// without locking — callers never mutate the returned slice.
func (s *Server) Registries() []mbean.Registry {
	p := s.snapshot.Load()
	if p == nil {
		return nil
	}
	return *p
}

// Rescan recomputes and atomically swaps the snapshot (the management-bean
// operation of spec.md §5). Exposed separately from AddDetectorRegistry so
// an operator can force a re-snapshot without the detector chain running
// again.
func (s *Server) Rescan() {
	s.rebuildSnapshot()
}

func (s *Server) rebuildSnapshot() {
	s.mu.Lock()
	merged := make([]mbean.Registry, 0, 1+len(s.detectorRegs))
	merged = append(merged, s.platform)
	merged = append(merged, s.detectorRegs...)
	s.mu.Unlock()
	s.snapshot.Store(&merged)
}

// RegisterCoreBean registers bean on the platform registry under
// "<qualifier>:type=<typeName>" and remembers the name for symmetric
// shutdown unregistration (spec.md §4.5: "registers the core's own
// management beans ... on exactly one registry ... remembers the exact
// registry used so that shutdown can unregister symmetrically").
func (s *Server) RegisterCoreBean(typeName string, bean any) (objname.Name, error) {
	name, err := objname.Parse(fmt.Sprintf("%s:type=%s", s.qualifier, typeName))
	if err != nil {
		return objname.Name{}, fmt.Errorf("beanserver: building core bean name: %w", err)
	}
	if err := s.platform.Register(name, bean); err != nil {
		return objname.Name{}, fmt.Errorf("beanserver: registering %s: %w", typeName, err)
	}
	s.mu.Lock()
	s.coreBeanNames = append(s.coreBeanNames, name)
	s.mu.Unlock()
	return name, nil
}

// Shutdown unregisters every core bean from the platform registry. Failure
// to unregister one bean never aborts unregistering the rest; every
// failure is collected into one aggregate error (spec.md §4.5 / §5).
func (s *Server) Shutdown() error {
	s.mu.Lock()
	names := s.coreBeanNames
	s.coreBeanNames = nil
	s.mu.Unlock()

	var errs []error
	for _, n := range names {
		func() {
			defer func() {
				if r := recover(); r != nil {
					errs = append(errs, fmt.Errorf("beanserver: unregister %s panicked: %v", n.Canonical(), r))
				}
			}()
			s.platform.Unregister(n)
		}()
	}
	return errors.Join(errs...)
}
