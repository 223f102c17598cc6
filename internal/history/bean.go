package history

import "time"

// Bean exposes the history store as a management bean (spec.md §4.9: "the
// store is itself exposed as a management bean so operators can resize
// limits or reset it via the same protocol"). Its tagged fields are
// refreshed from the live store on demand, the same refresh-then-read
// pattern internal/mbean's RuntimeSnapshotRegistry uses for runtime stats.
type Bean struct {
	store *Store

	KeyCount         int   `mbean:"KeyCount"`
	MaxEntriesPerKey int   `mbean:"MaxEntriesPerKey"`
	MaxKeys          int   `mbean:"MaxKeys"`
	MaxAgeSeconds    int64 `mbean:"MaxAgeSeconds"`
}

// NewBean wraps store for registration via mbean.LocalRegistry.Register.
func NewBean(store *Store) *Bean {
	b := &Bean{store: store}
	b.Refresh()
	return b
}

// Refresh re-samples the live store into the bean's tagged fields.
func (b *Bean) Refresh() {
	maxEntriesPerKey, maxKeys, maxAge := b.store.Limits()
	b.KeyCount = b.store.KeyCount()
	b.MaxEntriesPerKey = maxEntriesPerKey
	b.MaxKeys = maxKeys
	b.MaxAgeSeconds = int64(maxAge / time.Second)
}

// Reset is an invocable operation with no arguments.
func (b *Bean) Reset() (any, error) {
	b.store.Reset()
	return nil, nil
}

// Resize is an invocable operation taking the three limit knobs; a zero
// value leaves the corresponding limit unchanged (see Store.Resize).
func (b *Bean) Resize(maxEntriesPerKey, maxKeys int, maxAgeSeconds int64) (any, error) {
	b.store.Resize(maxEntriesPerKey, maxKeys, time.Duration(maxAgeSeconds)*time.Second)
	return nil, nil
}
