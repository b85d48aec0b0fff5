package config

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"graft.dev/graft/internal/fsutil"
)

// MetaDir is the repository metadata directory.
const MetaDir = ".graft"

// Marker styles for conflict regions.
const (
	MergeStyleDefault  = "default"
	MergeStyleExtended = "extended"
)

// RepoConfig represents the repository configuration
type RepoConfig struct {
	Merge  MergeConfig  `yaml:"merge,omitempty"`
	Rebase RebaseConfig `yaml:"rebase,omitempty"`
	User   UserConfig   `yaml:"user,omitempty"`
}

// MergeConfig holds merge.* keys
type MergeConfig struct {
	Style     *string  `yaml:"style,omitempty"`
	WholeFile []string `yaml:"wholeFile,omitempty"`
}

// RebaseConfig holds rebase.* keys
type RebaseConfig struct {
	Keep   *bool `yaml:"keep,omitempty"`
	Backup *bool `yaml:"backup,omitempty"`
}

// UserConfig holds user.* keys
type UserConfig struct {
	Name *string `yaml:"name,omitempty"`
}

// Path returns the config file location for a repository root.
func Path(repoRoot string) string {
	return filepath.Join(repoRoot, MetaDir, "config.yaml")
}

// GetRepoConfig reads the repository configuration
func GetRepoConfig(repoRoot string) (*RepoConfig, error) {
	data, err := os.ReadFile(Path(repoRoot))
	if err != nil {
		if os.IsNotExist(err) {
			// Config doesn't exist - return default
			return &RepoConfig{}, nil
		}
		return nil, fmt.Errorf("failed to read repo config: %w", err)
	}

	var config RepoConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse repo config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// SaveRepoConfig writes the configuration atomically
func SaveRepoConfig(repoRoot string, config *RepoConfig) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return fsutil.SafeWrite(Path(repoRoot), data, 0o600)
}

// Validate checks values that would otherwise fail deep inside a rebase
func (c *RepoConfig) Validate() error {
	if c.Merge.Style != nil {
		switch *c.Merge.Style {
		case MergeStyleDefault, MergeStyleExtended:
		default:
			return fmt.Errorf("invalid merge.style %q (must be %q or %q)", *c.Merge.Style, MergeStyleDefault, MergeStyleExtended)
		}
	}
	for _, pattern := range c.Merge.WholeFile {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid merge.wholeFile pattern %q", pattern)
		}
	}
	return nil
}

// MergeStyle returns the conflict marker style, "default" when unset
func (c *RepoConfig) MergeStyle() string {
	if c.Merge.Style != nil && *c.Merge.Style != "" {
		return *c.Merge.Style
	}
	return MergeStyleDefault
}

// WholeFilePatterns returns the globs of paths merged as whole files
func (c *RepoConfig) WholeFilePatterns() []string {
	return append([]string(nil), c.Merge.WholeFile...)
}

// KeepOriginals reports whether rebase keeps the original commits
func (c *RepoConfig) KeepOriginals() bool {
	return c.Rebase.Keep != nil && *c.Rebase.Keep
}

// BackupEnabled reports whether stripped commits are bundled first. Defaults to
// true; when false, rebase keeps its originals.
func (c *RepoConfig) BackupEnabled() bool {
	if c.Rebase.Backup == nil {
		return true
	}
	return *c.Rebase.Backup
}

// UserName resolves the author name: GRAFT_USER, then user.name, then the OS user
func (c *RepoConfig) UserName() string {
	if name := os.Getenv("GRAFT_USER"); name != "" {
		return name
	}
	if c.User.Name != nil && *c.User.Name != "" {
		return *c.User.Name
	}
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "unknown"
}

// Keys lists the settable configuration keys
var Keys = []string{"merge.style", "merge.wholeFile", "rebase.keep", "rebase.backup", "user.name"}

// Get returns the effective value of key as a string
func (c *RepoConfig) Get(key string) (string, error) {
	switch key {
	case "merge.style":
		return c.MergeStyle(), nil
	case "merge.wholeFile":
		return strings.Join(c.Merge.WholeFile, ","), nil
	case "rebase.keep":
		return strconv.FormatBool(c.KeepOriginals()), nil
	case "rebase.backup":
		return strconv.FormatBool(c.BackupEnabled()), nil
	case "user.name":
		return c.UserName(), nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// Set parses value into key
func (c *RepoConfig) Set(key, value string) error {
	switch key {
	case "merge.style":
		c.Merge.Style = &value
	case "merge.wholeFile":
		c.Merge.WholeFile = nil
		for _, p := range strings.Split(value, ",") {
			if p = strings.TrimSpace(p); p != "" {
				c.Merge.WholeFile = append(c.Merge.WholeFile, p)
			}
		}
	case "rebase.keep", "rebase.backup":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: %s (must be 'true' or 'false')", key, value)
		}
		if key == "rebase.keep" {
			c.Rebase.Keep = &b
		} else {
			c.Rebase.Backup = &b
		}
	case "user.name":
		c.User.Name = &value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return c.Validate()
}

// SetValue loads, updates and saves a single key
func SetValue(repoRoot, key, value string) error {
	config, err := GetRepoConfig(repoRoot)
	if err != nil {
		return err
	}
	if err := config.Set(key, value); err != nil {
		return err
	}
	return SaveRepoConfig(repoRoot, config)
}
