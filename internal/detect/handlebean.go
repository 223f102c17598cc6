package detect

// HandleBean exposes the resolved server handle as a read-only management
// bean (spec.md §6: product/version/agent-url must be reachable as a
// queryable bean, not only echoed by the version verb). Like history.Bean
// and debugstore.Bean it refreshes its tagged snapshot fields on demand;
// unlike them it has no mutator operations since the handle is immutable
// after detection.
type HandleBean struct {
	handle *ServerHandle

	Vendor   string `mbean:"Vendor"`
	Product  string `mbean:"Product"`
	Version  string `mbean:"Version"`
	AgentURL string `mbean:"AgentURL"`
}

// NewHandleBean wraps handle for registration via
// beanserver.Server.RegisterCoreBean, once the detector chain has resolved
// it.
func NewHandleBean(handle *ServerHandle) *HandleBean {
	b := &HandleBean{handle: handle}
	b.Refresh()
	return b
}

// Refresh re-samples the handle into the bean's tagged fields.
func (b *HandleBean) Refresh() {
	b.Vendor = b.handle.Vendor
	b.Product = b.handle.Product
	b.Version = b.handle.Version
	b.AgentURL = b.handle.AgentURL
}
