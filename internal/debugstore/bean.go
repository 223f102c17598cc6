package debugstore

// Bean exposes the debug store as a management bean offering dump/reset
// operations (spec.md §4.10).
type Bean struct {
	store *Store

	EntryCount int  `mbean:"EntryCount"`
	Enabled    bool `mbean:"Enabled"`
}

// NewBean wraps store for registration via mbean.LocalRegistry.Register.
func NewBean(store *Store) *Bean {
	b := &Bean{store: store}
	b.Refresh()
	return b
}

// Refresh re-samples the live store into the bean's tagged fields.
func (b *Bean) Refresh() {
	b.EntryCount = b.store.Len()
	b.Enabled = b.store.Enabled()
}

// Dump is an invocable operation returning every retained entry.
func (b *Bean) Dump() (any, error) {
	return b.store.Dump(), nil
}

// Reset is an invocable operation clearing every retained entry.
func (b *Bean) Reset() (any, error) {
	b.store.Reset()
	return nil, nil
}
