package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Policy holds the retrieval and context-assembly knobs.
type Policy struct {
	TopK             int           `yaml:"top_k"`
	ExpandDepth      int           `yaml:"expand_depth"`
	// FallbackBelow is the candidate count under which similarity fallback
	// runs. Zero tracks TopK.
	FallbackBelow    int           `yaml:"fallback_below"`
	AlwaysHybrid     bool          `yaml:"always_hybrid"`
	MaxContextTokens int           `yaml:"max_context_tokens"`
	IncludeURLs      bool          `yaml:"include_urls"`
	TruncationMarker bool          `yaml:"truncation_marker"`
	MetadataCacheTTL time.Duration `yaml:"metadata_cache_ttl"`
}

// DefaultPolicy returns the stock retrieval policy.
func DefaultPolicy() Policy {
	return Policy{
		TopK:             5,
		ExpandDepth:      1,
		MaxContextTokens: 2000,
		IncludeURLs:      true,
	}
}

// LoadPolicy reads a YAML policy file on top of base. Keys absent from the
// file keep the value from base.
func LoadPolicy(path string, base Policy) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read policy file: %w", err)
	}

	p := base
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Policy{}, fmt.Errorf("parse policy file %s: %w", path, err)
	}
	return p, nil
}

// Validate checks policy ranges.
func (p Policy) Validate() error {
	var errs []error
	if p.TopK <= 0 {
		errs = append(errs, fmt.Errorf("top_k must be positive, got %d", p.TopK))
	}
	if p.ExpandDepth < 1 || p.ExpandDepth > 5 {
		errs = append(errs, fmt.Errorf("expand_depth must be within [1, 5], got %d", p.ExpandDepth))
	}
	if p.FallbackBelow < 0 {
		errs = append(errs, fmt.Errorf("fallback_below must not be negative, got %d", p.FallbackBelow))
	}
	if p.MaxContextTokens <= 0 {
		errs = append(errs, fmt.Errorf("max_context_tokens must be positive, got %d", p.MaxContextTokens))
	}
	if p.MetadataCacheTTL < 0 {
		errs = append(errs, fmt.Errorf("metadata_cache_ttl must not be negative, got %s", p.MetadataCacheTTL))
	}
	return errors.Join(errs...)
}
