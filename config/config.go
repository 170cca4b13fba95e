// Package config loads and validates the configuration for a sync client
// engine instance, following the same load-then-verify shape dendrite's own
// setup/config package uses for its component configs.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/matrix-org/gomatrixserverlib"
	"gopkg.in/yaml.v3"
)

// ConfigErrors accumulates validation failures so Verify can report every
// problem in one pass rather than stopping at the first.
type ConfigErrors []string

func (e *ConfigErrors) Add(msg string) {
	*e = append(*e, msg)
}

func (e ConfigErrors) Error() string {
	return strings.Join(e, "\n")
}

// Config is the top-level configuration for the sync client CLI and any
// other program embedding the engine.
type Config struct {
	HomeserverURL string `yaml:"homeserver_url"`
	UserID        string `yaml:"user_id"`

	accessOnce   sync.Once
	accessCached string

	ConnID string `yaml:"conn_id"`

	Timeouts Timeouts `yaml:"timeouts"`

	Lists []ListConfig `yaml:"lists"`

	Extensions ExtensionsConfig `yaml:"extensions"`

	StorePath string `yaml:"store_path"`
}

type Timeouts struct {
	CatchUp  time.Duration `yaml:"catch_up"`
	LongPoll time.Duration `yaml:"long_poll"`
}

type ListConfig struct {
	Name            string `yaml:"name"`
	Mode            string `yaml:"mode"`
	BatchSize       int    `yaml:"batch_size"`
	MaxRoomsToFetch *int   `yaml:"max_rooms_to_fetch,omitempty"`
	TimelineLimit   int    `yaml:"timeline_limit"`
}

type ExtensionsConfig struct {
	EnableAll bool     `yaml:"enable_all"`
	Names     []string `yaml:"names,omitempty"`
}

// Load reads and parses a YAML config file, applying Defaults before and
// Verify after, mirroring dendrite's Defaults()/Verify(configErrs) sequence.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var c Config
	c.Defaults()
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	var errs ConfigErrors
	c.Verify(&errs)
	if len(errs) > 0 {
		return nil, errs
	}

	return &c, nil
}

// Defaults populates zero-value fields the way dendrite's per-component
// Defaults() methods do, before YAML unmarshalling overwrites whatever the
// file actually specifies.
func (c *Config) Defaults() {
	c.ConnID = "sync-client"
	c.Timeouts.CatchUp = 2 * time.Second
	c.Timeouts.LongPoll = 30 * time.Second
	c.StorePath = ""
}

// Verify checks the loaded config for internal consistency, appending a
// message per problem to configErrs instead of stopping at the first.
func (c *Config) Verify(configErrs *ConfigErrors) {
	if c.HomeserverURL == "" {
		configErrs.Add("homeserver_url must be set")
	} else if u, err := url.Parse(c.HomeserverURL); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		configErrs.Add("homeserver_url must be a valid http(s):// URL")
	}

	if c.UserID == "" {
		configErrs.Add("user_id must be set")
	} else if _, _, err := gomatrixserverlib.SplitID('@', c.UserID); err != nil {
		configErrs.Add("user_id must be a fully-qualified Matrix user id (@local:server)")
	}

	if c.Timeouts.CatchUp <= 0 {
		configErrs.Add("timeouts.catch_up must be positive")
	}
	if c.Timeouts.LongPoll <= 0 {
		configErrs.Add("timeouts.long_poll must be positive")
	}

	seen := make(map[string]bool, len(c.Lists))
	for _, l := range c.Lists {
		if l.Name == "" {
			configErrs.Add("lists[].name must be set")
			continue
		}
		if seen[l.Name] {
			configErrs.Add(fmt.Sprintf("lists[%q] is defined more than once", l.Name))
		}
		seen[l.Name] = true

		switch l.Mode {
		case "selective", "paging", "growing":
		default:
			configErrs.Add(fmt.Sprintf("lists[%q].mode must be one of selective|paging|growing", l.Name))
		}
		if l.Mode != "selective" && l.BatchSize <= 0 {
			configErrs.Add(fmt.Sprintf("lists[%q].batch_size must be positive for paging/growing lists", l.Name))
		}
		if l.MaxRoomsToFetch != nil && *l.MaxRoomsToFetch <= 0 {
			configErrs.Add(fmt.Sprintf("lists[%q].max_rooms_to_fetch must be positive when set", l.Name))
		}
	}
}

// GetAccessToken returns the bearer token for the homeserver, read once
// from SLIDINGSYNC_ACCESS_TOKEN and cached, the same way dendrite's SMTP
// config defers its password to an environment variable rather than
// storing secrets in YAML.
func (c *Config) GetAccessToken() string {
	c.accessOnce.Do(func() {
		c.accessCached = os.Getenv("SLIDINGSYNC_ACCESS_TOKEN")
	})
	return c.accessCached
}
