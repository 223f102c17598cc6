package detect

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/beanbridge/bridge/internal/mbean"
)

// healthCheckTimeout bounds how long a plugin detector's health check may
// take, mirroring the teacher's internal/plugins/loader.go healthCheckTimeout.
const healthCheckTimeout = 5 * time.Second

// PluginConfig describes how to reach a detector plugin, the JSON/HTTP
// equivalent of the teacher's config.PluginConfig (addr + freeform config).
type PluginConfig struct {
	Name string            `yaml:"name" json:"name"`
	Addr string            `yaml:"addr" json:"addr"`
	Opts map[string]string `yaml:"config" json:"config"`
}

// pluginHealth is the expected shape of GET <addr>/healthz.
type pluginHealth struct {
	Status   string `json:"status"` // "serving" expected
	Vendor   string `json:"vendor"`
	Product  string `json:"product"`
	Version  string `json:"version"`
	Protocol string `json:"protocol"` // version-negotiation field
}

// SupportedProtocol is the detector-plugin protocol version this bridge
// speaks; a mismatching plugin is still loaded but logged as a warning
// (spec.md §4.3 never aborts startup on detector trouble), mirroring the
// teacher's "version negotiation issue — warn but don't block loading".
const SupportedProtocol = "1"

// PluginDetector loads an externally reflective detector contributed via
// config (spec.md §4.3: "bundled first, then reflectively loaded extras").
// It health-checks the plugin over plain HTTP/JSON (see package doc for why
// this isn't ConnectRPC) and, if healthy, reports the vendor/product/version
// it announces as the server handle.
type PluginDetector struct {
	Cfg    PluginConfig
	Client *http.Client
	Log    *slog.Logger
}

// NewPluginDetector builds a detector for the given plugin config, using c
// (or http.DefaultClient if nil).
func NewPluginDetector(cfg PluginConfig, c *http.Client, log *slog.Logger) *PluginDetector {
	if c == nil {
		c = http.DefaultClient
	}
	if log == nil {
		log = slog.Default()
	}
	return &PluginDetector{Cfg: cfg, Client: c, Log: log}
}

func (PluginDetector) ContributedRegistries(context.Context) ([]mbean.Registry, error) {
	return nil, nil
}

func (p *PluginDetector) Detect(ctx context.Context, _ []mbean.Registry) (*ServerHandle, error) {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.Cfg.Addr+"/healthz", nil)
	if err != nil {
		return nil, fmt.Errorf("plugin %s: build health request: %w", p.Cfg.Name, err)
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("plugin %s: health check failed: %w", p.Cfg.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("plugin %s: not serving (status %d)", p.Cfg.Name, resp.StatusCode)
	}

	var h pluginHealth
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return nil, fmt.Errorf("plugin %s: invalid health response: %w", p.Cfg.Name, err)
	}
	if h.Status != "serving" {
		return nil, fmt.Errorf("plugin %s: reported status %q", p.Cfg.Name, h.Status)
	}
	if h.Protocol != "" && h.Protocol != SupportedProtocol {
		p.Log.Warn("detector plugin protocol mismatch, loading anyway",
			"plugin", p.Cfg.Name, "plugin_protocol", h.Protocol, "supported", SupportedProtocol)
	}

	return &ServerHandle{
		Vendor:    h.Vendor,
		Product:   h.Product,
		Version:   h.Version,
		ExtraInfo: map[string]string{"plugin": p.Cfg.Name, "addr": p.Cfg.Addr},
	}, nil
}
