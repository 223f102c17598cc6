package config

import (
	"time"

	"github.com/beanbridge/bridge/internal/convert"
	"github.com/beanbridge/bridge/internal/debugstore"
	"github.com/beanbridge/bridge/internal/history"
)

// Bean exposes the bridge's runtime-adjustable knobs as a management bean
// (spec.md §6: maxDepth/maxCollectionSize/maxObjects/debug/history limits
// are viewable and modifiable at runtime through a dedicated config bean).
// Like history.Bean and debugstore.Bean it refreshes its tagged snapshot
// fields on demand and exposes mutation through named operations rather
// than mbean-rw writes, since each knob lives behind its own owner's lock.
type Bean struct {
	opts    *convert.SyncedOptions
	debug   *debugstore.Store
	history *history.Store

	MaxDepth          int   `mbean:"MaxDepth"`
	MaxCollectionSize int   `mbean:"MaxCollectionSize"`
	MaxObjects        int   `mbean:"MaxObjects"`
	Debug             bool  `mbean:"Debug"`
	HistoryMaxEntries int   `mbean:"HistoryMaxEntries"`
	HistoryMaxKeys    int   `mbean:"HistoryMaxKeys"`
	HistoryMaxAge     int64 `mbean:"HistoryMaxAgeSeconds"`
}

// NewBean wraps the live option/debug/history stores for registration via
// beanserver.Server.RegisterCoreBean.
func NewBean(opts *convert.SyncedOptions, debug *debugstore.Store, hist *history.Store) *Bean {
	b := &Bean{opts: opts, debug: debug, history: hist}
	b.Refresh()
	return b
}

// Refresh re-samples every live store into the bean's tagged fields.
func (b *Bean) Refresh() {
	cur := b.opts.Get()
	b.MaxDepth = cur.MaxDepth
	b.MaxCollectionSize = cur.MaxCollectionSize
	b.MaxObjects = cur.MaxObjects
	b.Debug = b.debug.Enabled()
	maxEntriesPerKey, maxKeys, maxAge := b.history.Limits()
	b.HistoryMaxEntries = maxEntriesPerKey
	b.HistoryMaxKeys = maxKeys
	b.HistoryMaxAge = int64(maxAge / time.Second)
}

// SetLimits is an invocable operation updating the conversion budgets; a
// negative value leaves the corresponding limit unchanged (see
// convert.SyncedOptions.SetLimits).
func (b *Bean) SetLimits(maxDepth, maxCollectionSize, maxObjects int) (any, error) {
	b.opts.SetLimits(maxDepth, maxCollectionSize, maxObjects)
	return nil, nil
}

// SetDebug is an invocable operation toggling debug capture.
func (b *Bean) SetDebug(enabled bool) (any, error) {
	b.debug.SetEnabled(enabled)
	return nil, nil
}

// SetHistoryLimits is an invocable operation updating the history store's
// limits; a zero value leaves the corresponding limit unchanged (see
// history.Store.Resize).
func (b *Bean) SetHistoryLimits(maxEntriesPerKey, maxKeys int, maxAgeSeconds int64) (any, error) {
	b.history.Resize(maxEntriesPerKey, maxKeys, time.Duration(maxAgeSeconds)*time.Second)
	return nil, nil
}
