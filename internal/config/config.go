// Package config persists per-catalog settings under the metadata
// directory: named remotes and transfer tuning. Credentials never land
// here; the object-store SDK picks those up from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/geostac/geosync/internal/jsonutil"
	"github.com/geostac/geosync/internal/store"
	"github.com/geostac/geosync/internal/utils"
)

const DefaultRemoteName = "origin"

var ErrRemoteNotFound = errors.New("remote not found")

type Config struct {
	Remotes       map[string]string `json:"remotes,omitempty"`
	DefaultRemote string            `json:"default_remote,omitempty"`
	Workers       int               `json:"workers,omitempty"`

	Path string `json:"-"`
}

// Load reads the config file at path. A missing file is an empty config,
// not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{Path: path, Remotes: map[string]string{}}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := jsonutil.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Remotes == nil {
		cfg.Remotes = map[string]string{}
	}
	cfg.Path = path
	return cfg, nil
}

func (c *Config) Save() error {
	if err := utils.EnsureParent(c.Path); err != nil {
		return err
	}
	data, err := jsonutil.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return utils.WriteFileAtomic(c.Path, append(data, '\n'), 0o644)
}

// SetRemote validates and stores a named remote. The first remote added
// becomes the default.
func (c *Config) SetRemote(name, rawURL string) error {
	if name == "" || strings.ContainsAny(name, "/: ") {
		return fmt.Errorf("invalid remote name %q", name)
	}
	if _, err := store.ParseRemote(rawURL); err != nil {
		return err
	}
	c.Remotes[name] = rawURL
	if c.DefaultRemote == "" {
		c.DefaultRemote = name
	}
	return nil
}

func (c *Config) RemoveRemote(name string) error {
	if _, ok := c.Remotes[name]; !ok {
		return fmt.Errorf("%w: %s", ErrRemoteNotFound, name)
	}
	delete(c.Remotes, name)
	if c.DefaultRemote == name {
		c.DefaultRemote = ""
		for _, n := range c.RemoteNames() {
			c.DefaultRemote = n
			break
		}
	}
	return nil
}

func (c *Config) RemoteNames() []string {
	names := make([]string, 0, len(c.Remotes))
	for name := range c.Remotes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve turns a command-line destination into a parsed remote. The
// argument may be a remote name from the config, a URL, or empty to use
// the default remote.
func (c *Config) Resolve(arg string) (*store.Remote, error) {
	switch {
	case arg == "":
		if c.DefaultRemote == "" {
			return nil, fmt.Errorf("%w: no remote configured", ErrRemoteNotFound)
		}
		return c.Resolve(c.DefaultRemote)
	case strings.Contains(arg, "://"):
		return store.ParseRemote(arg)
	default:
		if raw, ok := c.Remotes[arg]; ok {
			return store.ParseRemote(raw)
		}
		// not a known name; maybe a bare filesystem path
		if strings.ContainsAny(arg, "/\\.") {
			return store.ParseRemote(arg)
		}
		return nil, fmt.Errorf("%w: %s", ErrRemoteNotFound, arg)
	}
}
