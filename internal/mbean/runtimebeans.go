package mbean

import (
	"runtime"
	"runtime/debug"

	"github.com/beanbridge/bridge/internal/objname"
)

// MemoryBean stands in for the JVM's java.lang:type=Memory bean referenced
// by spec.md §8 scenarios S1/S2/S6, so those literal end-to-end scenarios
// are exercisable against this module's own process instead of a JVM.
type MemoryBean struct {
	HeapMemoryUsage HeapUsage `mbean:"HeapMemoryUsage"`
}

// HeapUsage mirrors the JMX composite shape {init, used, committed, max}.
type HeapUsage struct {
	Init      uint64 `json:"init"`
	Used      uint64 `json:"used"`
	Committed uint64 `json:"committed"`
	Max       uint64 `json:"max"`
}

// ThreadingBean stands in for java.lang:type=Threading (spec.md §8 S3).
type ThreadingBean struct {
	ThreadCount int `mbean:"ThreadCount"`
}

// RuntimeSnapshotRegistry is a LocalRegistry pre-populated with Go-runtime
// stand-ins for the example JMX beans spec.md's scenarios reference. Each
// Refresh call re-samples runtime.MemStats / NumGoroutine.
type RuntimeSnapshotRegistry struct {
	*LocalRegistry
	memory     *MemoryBean
	threading  *ThreadingBean
	memoryName objname.Name
	threadName objname.Name
}

// NewRuntimeSnapshotRegistry builds and registers the stand-in beans.
func NewRuntimeSnapshotRegistry() (*RuntimeSnapshotRegistry, error) {
	reg := NewLocalRegistry("runtime")
	memoryName, err := objname.Parse("java.lang:type=Memory")
	if err != nil {
		return nil, err
	}
	threadName, err := objname.Parse("java.lang:type=Threading")
	if err != nil {
		return nil, err
	}

	rs := &RuntimeSnapshotRegistry{
		LocalRegistry: reg,
		memory:        &MemoryBean{},
		threading:     &ThreadingBean{},
		memoryName:    memoryName,
		threadName:    threadName,
	}
	rs.Refresh()
	if err := reg.Register(memoryName, rs.memory); err != nil {
		return nil, err
	}
	if err := reg.Register(threadName, rs.threading); err != nil {
		return nil, err
	}
	return rs, nil
}

// Refresh re-samples runtime statistics into the registered beans. The
// bean-server handler's GetAttribute path always sees the value as of the
// most recent Refresh, so callers typically refresh once per incoming
// request (see dispatch.Manager).
func (rs *RuntimeSnapshotRegistry) Refresh() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	var gc debug.GCStats
	debug.ReadGCStats(&gc)

	rs.memory.HeapMemoryUsage = HeapUsage{
		Init:      m.HeapSys,
		Used:      m.HeapAlloc,
		Committed: m.HeapInuse,
		Max:       m.HeapSys,
	}
	rs.threading.ThreadCount = runtime.NumGoroutine()
}
