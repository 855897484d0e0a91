package model

import (
	"encoding/json"
	"fmt"
	"os"
)

// RegistryConfig is the serialised form of a Registry. It appears under the
// "model" key of semreport.yaml and as standalone JSON.
type RegistryConfig struct {
	Capabilities map[string]*CapabilityConfig `json:"capabilities" yaml:"capabilities"`
	Endpoints    map[string]*EndpointConfig   `json:"endpoints" yaml:"endpoints"`
	Defaults     *DefaultsConfig              `json:"defaults,omitempty" yaml:"defaults,omitempty"`
}

// LoadFromFile loads a registry from a JSON file.
func LoadFromFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return LoadFromJSON(data)
}

// LoadFromJSON loads a registry from JSON. Both a bare registry config and
// a document with the registry under a "model" key are accepted.
func LoadFromJSON(data []byte) (*Registry, error) {
	var wrapped struct {
		Model *RegistryConfig `json:"model"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Model != nil {
		return NewRegistryFromConfig(wrapped.Model), nil
	}

	var cfg RegistryConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse registry config: %w", err)
	}
	return NewRegistryFromConfig(&cfg), nil
}

// NewRegistryFromConfig builds a registry from its serialised form. Unknown
// capability names are kept verbatim so custom capabilities still resolve.
func NewRegistryFromConfig(cfg *RegistryConfig) *Registry {
	caps := make(map[Capability]*CapabilityConfig, len(cfg.Capabilities))
	for k, v := range cfg.Capabilities {
		caps[Capability(k)] = v
	}
	endpoints := make(map[string]*EndpointConfig, len(cfg.Endpoints))
	for k, v := range cfg.Endpoints {
		endpoints[k] = v
	}

	r := NewRegistry(caps, endpoints)
	if cfg.Defaults != nil && cfg.Defaults.Model != "" {
		r.defaults.Model = cfg.Defaults.Model
	}
	return r
}

// ToConfig returns the serialisable form of the registry.
func (r *Registry) ToConfig() *RegistryConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	caps := make(map[string]*CapabilityConfig, len(r.capabilities))
	for k, v := range r.capabilities {
		caps[string(k)] = v
	}
	endpoints := make(map[string]*EndpointConfig, len(r.endpoints))
	for k, v := range r.endpoints {
		endpoints[k] = v
	}
	defaults := *r.defaults

	return &RegistryConfig{
		Capabilities: caps,
		Endpoints:    endpoints,
		Defaults:     &defaults,
	}
}

// MergeFromConfig overlays cfg onto the registry. Entries in cfg replace
// entries with the same key.
func (r *Registry) MergeFromConfig(cfg *RegistryConfig) {
	if cfg == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for k, v := range cfg.Capabilities {
		r.capabilities[Capability(k)] = v
	}
	for k, v := range cfg.Endpoints {
		r.endpoints[k] = v
	}
	if cfg.Defaults != nil && cfg.Defaults.Model != "" {
		r.defaults.Model = cfg.Defaults.Model
	}
}
