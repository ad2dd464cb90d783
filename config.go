// MIT License
//
// Copyright (c) 2020 codingfinest
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

package bolt

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultFetchSize             = 100
	defaultNodeCacheSize         = 10000
	defaultRelationshipCacheSize = 10000
	defaultResultTimeout         = 60 * time.Second
	defaultSensitiveKey          = "password"
)

var tenantPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Config holds driver settings. It is read from a YAML file and then overridden by
// BOLT_* environment variables.
type Config struct {
	URI      string `yaml:"uri"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`

	// Tenant, when set, is added as a label to every node pattern the driver generates.
	Tenant string `yaml:"tenant"`

	FetchSize             int `yaml:"fetch_size"`
	NodeCacheSize         int `yaml:"node_cache_size"`
	RelationshipCacheSize int `yaml:"relationship_cache_size"`
	MaxConnectionPoolSize int `yaml:"max_connection_pool_size"`

	LogQueries     bool `yaml:"log_queries"`
	LogPingQueries bool `yaml:"log_ping_queries"`

	// ResultTimeout bounds each wait of a prefetching iterator.
	ResultTimeout      time.Duration `yaml:"result_timeout"`
	TransactionTimeout time.Duration `yaml:"transaction_timeout"`

	// SensitiveKeys are parameter keys whose values are never logged.
	SensitiveKeys []string `yaml:"sensitive_keys"`
}

// DefaultConfig returns a Config with built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		URI:                   "bolt://localhost:7687",
		FetchSize:             defaultFetchSize,
		NodeCacheSize:         defaultNodeCacheSize,
		RelationshipCacheSize: defaultRelationshipCacheSize,
		ResultTimeout:         defaultResultTimeout,
		SensitiveKeys:         []string{defaultSensitiveKey},
	}
}

// LoadConfig reads path (skipped when empty), applies environment overrides and validates.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := config.applyEnv(); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) applyEnv() error {
	texts := map[string]*string{
		"BOLT_URI":      &c.URI,
		"BOLT_USERNAME": &c.Username,
		"BOLT_PASSWORD": &c.Password,
		"BOLT_DATABASE": &c.Database,
		"BOLT_TENANT":   &c.Tenant,
	}
	for name, target := range texts {
		if v, ok := os.LookupEnv(name); ok {
			*target = v
		}
	}

	ints := map[string]*int{
		"BOLT_FETCH_SIZE":               &c.FetchSize,
		"BOLT_NODE_CACHE_SIZE":          &c.NodeCacheSize,
		"BOLT_RELATIONSHIP_CACHE_SIZE":  &c.RelationshipCacheSize,
		"BOLT_MAX_CONNECTION_POOL_SIZE": &c.MaxConnectionPoolSize,
	}
	for name, target := range ints {
		if v := os.Getenv(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", name, err)
			}
			*target = n
		}
	}

	bools := map[string]*bool{
		"BOLT_LOG_QUERIES":      &c.LogQueries,
		"BOLT_LOG_PING_QUERIES": &c.LogPingQueries,
	}
	for name, target := range bools {
		if v := os.Getenv(name); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", name, err)
			}
			*target = b
		}
	}

	durations := map[string]*time.Duration{
		"BOLT_RESULT_TIMEOUT":      &c.ResultTimeout,
		"BOLT_TRANSACTION_TIMEOUT": &c.TransactionTimeout,
	}
	for name, target := range durations {
		if v := os.Getenv(name); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", name, err)
			}
			*target = d
		}
	}

	if v := os.Getenv("BOLT_SENSITIVE_KEYS"); v != "" {
		c.SensitiveKeys = splitList(v)
	}
	return nil
}

// Validate checks the config for values the driver cannot work with.
func (c *Config) Validate() error {
	var errs []string
	if c.FetchSize <= 0 {
		errs = append(errs, "fetch_size must be positive")
	}
	if c.NodeCacheSize <= 0 {
		errs = append(errs, "node_cache_size must be positive")
	}
	if c.RelationshipCacheSize <= 0 {
		errs = append(errs, "relationship_cache_size must be positive")
	}
	if c.ResultTimeout <= 0 {
		errs = append(errs, "result_timeout must be positive")
	}
	if c.TransactionTimeout < 0 {
		errs = append(errs, "transaction_timeout must not be negative")
	}
	if c.Tenant != "" && !tenantPattern.MatchString(c.Tenant) {
		errs = append(errs, fmt.Sprintf("tenant %q is not a valid label", c.Tenant))
	}
	if len(errs) > 0 {
		return errors.New("invalid config: " + strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) isSensitive(key string) bool {
	for _, sensitive := range c.SensitiveKeys {
		if strings.EqualFold(sensitive, key) {
			return true
		}
	}
	return false
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
