package detect

import "testing"

func TestHandleBean_RefreshSamplesHandle(t *testing.T) {
	h := &ServerHandle{Vendor: "acme", Product: "widget", Version: "1.2.3", AgentURL: "http://localhost:9"}
	b := NewHandleBean(h)
	if b.Vendor != "acme" || b.Product != "widget" || b.Version != "1.2.3" || b.AgentURL != "http://localhost:9" {
		t.Fatalf("unexpected snapshot: %+v", b)
	}

	h.Version = "1.2.4"
	if b.Version != "1.2.3" {
		t.Fatalf("bean should not auto-track handle before Refresh")
	}
	b.Refresh()
	if b.Version != "1.2.4" {
		t.Fatalf("Refresh should re-sample handle: got %q", b.Version)
	}
}
