// Package config provides configuration loading and management for semreport.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/c360studio/semreport/document"
	"github.com/c360studio/semreport/model"
	"github.com/c360studio/semreport/qa"
)

// Store drivers for sign-off history.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreNATS   = "nats"
)

var systemPrefixPattern = regexp.MustCompile(`^[A-Z0-9]+$`)

// Config represents the complete semreport configuration
type Config struct {
	// Model overlays the built-in capability registry
	Model *model.RegistryConfig `yaml:"model,omitempty"`

	QA       QAConfig       `yaml:"qa"`
	Brand    BrandConfig    `yaml:"brand"`
	Composer ComposerConfig `yaml:"composer"`
	SignOff  SignOffConfig  `yaml:"signoff"`
	Output   OutputConfig   `yaml:"output"`
	Store    StoreConfig    `yaml:"store"`
	NATS     NATSConfig     `yaml:"nats"`
	Server   ServerConfig   `yaml:"server"`
}

// QAConfig configures the reasoning call of the QA pass
type QAConfig struct {
	// Capability selects the model chain (reviewing, writing, fast)
	Capability string `yaml:"capability"`
	// Timeout bounds each attempt (default: 120s)
	Timeout time.Duration `yaml:"timeout"`
	// ExcerptLimit is the number of characters sent for review (default: 5000)
	ExcerptLimit int `yaml:"excerpt_limit"`
	// MaxTokens caps the verdict length
	MaxTokens int `yaml:"max_tokens"`
	// Temperature for the reasoning call (0.0-2.0, default: 0)
	Temperature float64 `yaml:"temperature"`
	// RetryTransient allows one retry after a transient network failure
	RetryTransient *bool `yaml:"retry_transient,omitempty"`
}

// BrandConfig configures house style rules
type BrandConfig struct {
	// RulesPath is a YAML rules file (empty = embedded defaults)
	RulesPath string `yaml:"rules_path"`
	// AutoFormat rewrites caller prose before composition (default: true)
	AutoFormat *bool `yaml:"auto_format,omitempty"`
}

// ComposerConfig configures document identity and rendering
type ComposerConfig struct {
	// SystemPrefix starts every document ID (default: BIZ)
	SystemPrefix string `yaml:"system_prefix"`
	// Locale is a BCP 47 tag for dates and numbers (default: en-US)
	Locale string `yaml:"locale"`
	// PreparedBy is the attesting system identity
	PreparedBy string `yaml:"prepared_by"`
	// ReviewedBy is the attesting reviewer identity
	ReviewedBy string `yaml:"reviewed_by"`
}

// SignOffConfig configures the sign-off policy
type SignOffConfig struct {
	// RequirePassForFinal refuses final sign-off for failed QA (default: false)
	RequirePassForFinal *bool `yaml:"require_pass_for_final,omitempty"`
}

// OutputConfig configures artifact output
type OutputConfig struct {
	// Dir receives <id>.md and <id>.json (empty = no files written)
	Dir string `yaml:"dir"`
}

// StoreConfig configures sign-off history storage
type StoreConfig struct {
	// Driver is memory, sqlite or nats (default: memory)
	Driver string `yaml:"driver"`
	// Path is the SQLite database file
	Path string `yaml:"path"`
	// Bucket is the JetStream KV bucket for the nats driver
	Bucket string `yaml:"bucket"`
}

// NATSConfig configures the NATS connection
type NATSConfig struct {
	// URL is the NATS server URL (empty = notification disabled)
	URL string `yaml:"url"`
	// Subject receives document.generated events
	Subject string `yaml:"subject"`
}

// ServerConfig configures the HTTP surface of serve
type ServerConfig struct {
	// Addr is the listen address for the API and /metrics
	Addr string `yaml:"addr"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	qaDefaults := qa.DefaultConfig()
	return &Config{
		QA: QAConfig{
			Capability:     qaDefaults.Capability,
			Timeout:        qaDefaults.Timeout,
			ExcerptLimit:   qaDefaults.ExcerptLimit,
			MaxTokens:      qaDefaults.MaxTokens,
			Temperature:    qaDefaults.Temperature,
			RetryTransient: boolPtr(qaDefaults.RetryTransient),
		},
		Brand: BrandConfig{
			AutoFormat: boolPtr(true),
		},
		Composer: ComposerConfig{
			SystemPrefix: document.DefaultSystemPrefix,
			Locale:       "en-US",
			PreparedBy:   document.DefaultPreparedBy,
			ReviewedBy:   document.DefaultReviewedBy,
		},
		SignOff: SignOffConfig{
			RequirePassForFinal: boolPtr(false),
		},
		Output: OutputConfig{
			Dir: "reports",
		},
		Store: StoreConfig{
			Driver: StoreMemory,
		},
		NATS: NATSConfig{
			Subject: "semreport.document.generated",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if err := c.QA.ToQA().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("qa: %w", err))
	}
	if !systemPrefixPattern.MatchString(c.Composer.SystemPrefix) {
		errs = append(errs, fmt.Errorf("composer.system_prefix must be uppercase letters and digits, got %q", c.Composer.SystemPrefix))
	}
	if _, err := c.Composer.Tag(); err != nil {
		errs = append(errs, err)
	}

	switch c.Store.Driver {
	case StoreMemory, "":
	case StoreSQLite:
		if c.Store.Path == "" {
			errs = append(errs, fmt.Errorf("store.path is required for the sqlite driver"))
		}
	case StoreNATS:
		if c.NATS.URL == "" {
			errs = append(errs, fmt.Errorf("nats.url is required for the nats store driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.driver must be memory, sqlite or nats, got %q", c.Store.Driver))
	}

	if c.Model != nil {
		r := model.NewDefaultRegistry()
		r.MergeFromConfig(c.Model)
		if err := r.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("model: %w", err))
		}
	}

	return errors.Join(errs...)
}

// ToQA converts the section to orchestrator settings.
func (q QAConfig) ToQA() qa.Config {
	cfg := qa.Config{
		Capability:   q.Capability,
		Timeout:      q.Timeout,
		ExcerptLimit: q.ExcerptLimit,
		MaxTokens:    q.MaxTokens,
		Temperature:  q.Temperature,
	}
	if q.RetryTransient != nil {
		cfg.RetryTransient = *q.RetryTransient
	}
	return cfg
}

// AutoFormatEnabled reports whether caller prose is brand formatted.
func (b BrandConfig) AutoFormatEnabled() bool {
	return b.AutoFormat == nil || *b.AutoFormat
}

// Tag parses the configured locale.
func (c ComposerConfig) Tag() (language.Tag, error) {
	if c.Locale == "" {
		return language.AmericanEnglish, nil
	}
	tag, err := language.Parse(c.Locale)
	if err != nil {
		return language.Und, fmt.Errorf("composer.locale %q: %w", c.Locale, err)
	}
	return tag, nil
}

// PassRequiredForFinal reports the sign-off gate policy.
func (s SignOffConfig) PassRequiredForFinal() bool {
	return s.RequirePassForFinal != nil && *s.RequirePassForFinal
}

// Registry builds the capability registry: built-in endpoints overlaid with
// the model section.
func (c *Config) Registry() (*model.Registry, error) {
	r := model.NewDefaultRegistry()
	r.MergeFromConfig(c.Model)
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("model registry: %w", err)
	}
	return r, nil
}

// LoadFromFile loads configuration from a YAML file on top of the defaults
func LoadFromFile(path string) (*Config, error) {
	overlay, err := loadOverlay(path)
	if err != nil {
		return nil, err
	}
	config := DefaultConfig()
	config.Merge(overlay)
	return config, nil
}

// loadOverlay reads a file without defaults so unset keys stay zero and
// do not mask lower layers on Merge.
func loadOverlay(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for
// non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Model
	if other.Model != nil {
		if c.Model == nil {
			c.Model = &model.RegistryConfig{}
		}
		mergeRegistry(c.Model, other.Model)
	}

	// QA
	if other.QA.Capability != "" {
		c.QA.Capability = other.QA.Capability
	}
	if other.QA.Timeout != 0 {
		c.QA.Timeout = other.QA.Timeout
	}
	if other.QA.ExcerptLimit != 0 {
		c.QA.ExcerptLimit = other.QA.ExcerptLimit
	}
	if other.QA.MaxTokens != 0 {
		c.QA.MaxTokens = other.QA.MaxTokens
	}
	if other.QA.Temperature != 0 {
		c.QA.Temperature = other.QA.Temperature
	}
	if other.QA.RetryTransient != nil {
		c.QA.RetryTransient = boolPtr(*other.QA.RetryTransient)
	}

	// Brand
	if other.Brand.RulesPath != "" {
		c.Brand.RulesPath = other.Brand.RulesPath
	}
	if other.Brand.AutoFormat != nil {
		c.Brand.AutoFormat = boolPtr(*other.Brand.AutoFormat)
	}

	// Composer
	if other.Composer.SystemPrefix != "" {
		c.Composer.SystemPrefix = other.Composer.SystemPrefix
	}
	if other.Composer.Locale != "" {
		c.Composer.Locale = other.Composer.Locale
	}
	if other.Composer.PreparedBy != "" {
		c.Composer.PreparedBy = other.Composer.PreparedBy
	}
	if other.Composer.ReviewedBy != "" {
		c.Composer.ReviewedBy = other.Composer.ReviewedBy
	}

	// Sign-off
	if other.SignOff.RequirePassForFinal != nil {
		c.SignOff.RequirePassForFinal = boolPtr(*other.SignOff.RequirePassForFinal)
	}

	// Output
	if other.Output.Dir != "" {
		c.Output.Dir = other.Output.Dir
	}

	// Store
	if other.Store.Driver != "" {
		c.Store.Driver = other.Store.Driver
	}
	if other.Store.Path != "" {
		c.Store.Path = other.Store.Path
	}
	if other.Store.Bucket != "" {
		c.Store.Bucket = other.Store.Bucket
	}

	// NATS
	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
	}
	if other.NATS.Subject != "" {
		c.NATS.Subject = other.NATS.Subject
	}

	// Server
	if other.Server.Addr != "" {
		c.Server.Addr = other.Server.Addr
	}
}

// mergeRegistry overlays entries of src onto dst by key.
func mergeRegistry(dst, src *model.RegistryConfig) {
	if len(src.Capabilities) > 0 && dst.Capabilities == nil {
		dst.Capabilities = make(map[string]*model.CapabilityConfig)
	}
	for k, v := range src.Capabilities {
		dst.Capabilities[k] = v
	}
	if len(src.Endpoints) > 0 && dst.Endpoints == nil {
		dst.Endpoints = make(map[string]*model.EndpointConfig)
	}
	for k, v := range src.Endpoints {
		dst.Endpoints[k] = v
	}
	if src.Defaults != nil && src.Defaults.Model != "" {
		dst.Defaults = &model.DefaultsConfig{Model: src.Defaults.Model}
	}
}

func boolPtr(b bool) *bool {
	return &b
}
