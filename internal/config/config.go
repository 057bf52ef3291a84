// --------------------------------------------------------------------------------
// Author: Thomas F McGeehan V
//
// This file is part of a software project developed by Thomas F McGeehan V.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.
//
// For more information about the MIT License, please visit:
// https://opensource.org/licenses/MIT
//
// Acknowledgment appreciated but not required.
// --------------------------------------------------------------------------------

// Package config loads and validates a sync job's YAML configuration.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tablemesh/tablemesh/internal/errs"
	"github.com/tablemesh/tablemesh/internal/model"
)

const (
	DefaultIncrementalMaxCommits = 20
	DefaultIncrementalSyncEnabled = true
	DefaultSyncTimeoutMs          = 600_000
)

// Config is one sync job's configuration: one source table synced to one
// or more target formats.
type Config struct {
	TableName             string            `yaml:"table_name"`
	TableBasePath          string           `yaml:"table_base_path"`
	TargetTableFormats     []string          `yaml:"target_table_formats"`
	SourceFormat           string            `yaml:"source_format,omitempty"`
	HadoopConf             map[string]string `yaml:"hadoop_conf,omitempty"`
	IncrementalMaxCommits  int               `yaml:"incremental_max_commits,omitempty"`
	IncrementalSyncEnabled *bool             `yaml:"incremental_sync_enabled,omitempty"`
	SyncTimeoutMs          int               `yaml:"sync_timeout_ms,omitempty"`

	// IcebergCatalogURI/IcebergCatalogName configure the REST catalog used
	// whenever iceberg appears as a source or target format. Unused, and
	// left empty, for delta/hudi-only jobs.
	IcebergCatalogURI  string `yaml:"iceberg_catalog_uri,omitempty"`
	IcebergCatalogName string `yaml:"iceberg_catalog_name,omitempty"`
}

// Load reads and parses a YAML config file from path, applying defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.ConfigError, err, "reading config file %q", path)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errs.Wrap(errs.ConfigError, err, "parsing config file %q", path)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.IncrementalMaxCommits == 0 {
		c.IncrementalMaxCommits = DefaultIncrementalMaxCommits
	}
	if c.IncrementalSyncEnabled == nil {
		enabled := DefaultIncrementalSyncEnabled
		c.IncrementalSyncEnabled = &enabled
	}
	if c.SyncTimeoutMs == 0 {
		c.SyncTimeoutMs = DefaultSyncTimeoutMs
	}
}

// Validate enforces the constraints every config key documents: a non-empty
// table name/path, a non-empty target set, a resolvable source format, and
// sane numeric bounds.
func (c *Config) Validate() error {
	if c.TableName == "" {
		return errs.New(errs.ConfigError, "table_name is required")
	}
	if c.TableBasePath == "" {
		return errs.New(errs.ConfigError, "table_base_path is required")
	}
	if len(c.TargetTableFormats) == 0 {
		return errs.New(errs.ConfigError, "target_table_formats must name at least one target")
	}
	seen := map[model.TableFormat]bool{}
	for _, f := range c.TargetTableFormats {
		tf, err := ParseFormat(f)
		if err != nil {
			return err
		}
		if seen[tf] {
			return errs.New(errs.ConfigError, "target_table_formats lists %q more than once", f)
		}
		seen[tf] = true
	}
	if c.SourceFormat != "" {
		if _, err := ParseFormat(c.SourceFormat); err != nil {
			return err
		}
	}
	if (c.SourceFormat != "" && strings.ToUpper(strings.TrimSpace(c.SourceFormat)) == "ICEBERG") || seen[model.FormatIceberg] {
		if c.IcebergCatalogURI == "" {
			return errs.New(errs.ConfigError, "iceberg_catalog_uri is required when iceberg is a source or target format")
		}
	}
	if c.IncrementalMaxCommits < 1 {
		return errs.New(errs.ConfigError, "incremental_max_commits must be >= 1, got %d", c.IncrementalMaxCommits)
	}
	if c.SyncTimeoutMs < 1 {
		return errs.New(errs.ConfigError, "sync_timeout_ms must be >= 1, got %d", c.SyncTimeoutMs)
	}
	return nil
}

// ParseFormat maps a config string onto a model.TableFormat.
func ParseFormat(s string) (model.TableFormat, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DELTA":
		return model.FormatDelta, nil
	case "ICEBERG":
		return model.FormatIceberg, nil
	case "HUDI":
		return model.FormatHudi, nil
	default:
		return "", errs.New(errs.ConfigError, "unrecognized table format %q", s)
	}
}

// Targets returns the parsed, deduplicated target format set.
func (c *Config) Targets() ([]model.TableFormat, error) {
	out := make([]model.TableFormat, 0, len(c.TargetTableFormats))
	for _, f := range c.TargetTableFormats {
		tf, err := ParseFormat(f)
		if err != nil {
			return nil, err
		}
		out = append(out, tf)
	}
	return out, nil
}

// ResolveSourceFormat returns the configured source format, or infers one
// from the marker files present under base — a Delta table has a
// _delta_log directory, an Iceberg table a metadata directory, a Hudi table
// a .hoodie directory. detect is supplied by the caller since it requires
// object-store access this package does not otherwise need.
func (c *Config) ResolveSourceFormat(detect func() (model.TableFormat, error)) (model.TableFormat, error) {
	if c.SourceFormat != "" {
		return ParseFormat(c.SourceFormat)
	}
	tf, err := detect()
	if err != nil {
		return "", fmt.Errorf("source_format not set and could not be inferred: %w", err)
	}
	return tf, nil
}
