// Package config handles loading and validating bridge.yaml. The bridge
// runs with zero config (sensible defaults) and only needs a file when
// overriding limits, the qualifier, or loading detector/dispatcher/
// restrictor plugins.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the top-level bridge.yaml configuration, recognizing
// every key in spec.md §6.
type Config struct {
	MaxDepth          int `yaml:"maxDepth"`
	MaxCollectionSize int `yaml:"maxCollectionSize"`
	MaxObjects        int `yaml:"maxObjects"`

	HistoryMaxEntries int           `yaml:"historyMaxEntries"`
	HistoryMaxKeys    int           `yaml:"historyMaxKeys"`
	HistoryMaxAge     time.Duration `yaml:"historyMaxAge"`

	DebugMaxEntries int  `yaml:"debugMaxEntries"`
	Debug           bool `yaml:"debug"`

	// DispatcherClasses names extra request dispatchers to consult before the
	// local bean-server handler (spec.md §4.4), addressed over JSON/HTTP.
	DispatcherClasses []PluginRef `yaml:"dispatcherClasses"`
	// DetectorPlugins names extra product detectors (spec.md §4.3).
	DetectorPlugins []PluginRef `yaml:"detectorPlugins"`
	// RestrictorClass names an external policy plugin. It is parsed and
	// validated, but no loader for it exists: when set, cmd/bridged logs a
	// warning and still uses the bundled allow-all/deny-list restrictors.
	RestrictorClass *PluginRef `yaml:"restrictorClass"`
	// PolicyLocation is a file path consulted by the bundled
	// restrict.DenyList loader (a deny-pattern list), whether or not
	// RestrictorClass is set.
	PolicyLocation string `yaml:"policyLocation"`

	MBeanQualifier string `yaml:"mbeanQualifier"`

	// DetectorOptions is opaque configuration passed verbatim to every
	// detector's PostDetect hook (spec.md §6).
	DetectorOptions map[string]any `yaml:"detectorOptions"`

	AgentContext     string `yaml:"agentContext"`
	AgentID          string `yaml:"agentId"`
	AgentDescription string `yaml:"agentDescription"`
}

// PluginRef addresses a reflectively-loaded dispatcher, detector, or
// restrictor plugin by name + endpoint, the JSON/HTTP equivalent of the
// teacher's class-name-based reflective loading (spec.md §9 design note).
type PluginRef struct {
	Name string            `yaml:"name"`
	Addr string            `yaml:"addr"`
	Opts map[string]string `yaml:"config"`
}

// DefaultConfig returns sensible zero-config defaults: conversion limits
// from internal/convert.DefaultOptions, modest history/debug bounds, no
// plugins, and the "beanbridge" qualifier.
func DefaultConfig() *Config {
	return &Config{
		MaxDepth:          7,
		MaxCollectionSize: 1000,
		MaxObjects:        100000,
		HistoryMaxEntries: 10,
		HistoryMaxKeys:    500,
		HistoryMaxAge:     30 * time.Minute,
		DebugMaxEntries:   200,
		Debug:             false,
		MBeanQualifier:    "beanbridge",
		AgentID:           "bridge",
	}
}

// Load parses a bridge.yaml file and validates it. If path is empty, returns
// DefaultConfig().
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ResolvePath finds the config file path. Priority: BRIDGE_CONFIG env var >
// ./bridge.yaml > "" (no config, defaults apply).
func ResolvePath() string {
	if p := os.Getenv("BRIDGE_CONFIG"); p != "" {
		return p
	}
	if _, err := os.Stat("bridge.yaml"); err == nil {
		return "bridge.yaml"
	}
	return ""
}

// validate checks structural requirements across every configured plugin ref.
func (c *Config) validate() error {
	for _, p := range c.DispatcherClasses {
		if p.Addr == "" {
			return fmt.Errorf("dispatcher %q: addr is required", p.Name)
		}
	}
	for _, p := range c.DetectorPlugins {
		if p.Addr == "" {
			return fmt.Errorf("detector %q: addr is required", p.Name)
		}
	}
	if c.RestrictorClass != nil && c.RestrictorClass.Addr == "" {
		return fmt.Errorf("restrictorClass %q: addr is required", c.RestrictorClass.Name)
	}
	if c.MaxDepth < 0 || c.MaxCollectionSize < 0 || c.MaxObjects < 0 {
		return fmt.Errorf("maxDepth/maxCollectionSize/maxObjects must be non-negative")
	}
	return nil
}
