// Package config provides configuration management for dashexport.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	exerrors "github.com/randalmurphal/dashexport/internal/errors"
)

const (
	// ConfigFileName is the config file name searched for in the config paths.
	ConfigFileName = "dashexport"
	// EnvPrefix prefixes every environment override (DASHEXPORT_LOCK, ...).
	EnvPrefix = "DASHEXPORT"
	// SiteRootEnv is the site's installation root, set by the site environment.
	SiteRootEnv = "OMD_ROOT"
)

// DefaultBuiltinDashboards are the dashboards shipped by the monitoring GUI.
// Exporting a customized copy of one of these would shadow the shipped one,
// so they are skipped unless --include_builtin is given.
var DefaultBuiltinDashboards = []string{
	"checkmk",
	"checkmk_host",
	"main",
	"ntop_alerts",
	"ntop_flows",
	"ntop_top_talkers",
	"problems",
	"simple_problems",
	"site",
}

// Config represents the dashexport configuration.
type Config struct {
	// SiteRoot is the installation root all fixed paths derive from.
	SiteRoot string `mapstructure:"site_root" yaml:"site_root"`

	// BuiltinDashboards are skipped unless built-ins are included.
	BuiltinDashboards []string `mapstructure:"builtin_dashboards" yaml:"builtin_dashboards"`

	// RestartCommand runs after export with --restart_apache.
	RestartCommand []string `mapstructure:"restart_command" yaml:"restart_command"`
	// RestartTimeout bounds the restart command.
	RestartTimeout time.Duration `mapstructure:"restart_timeout" yaml:"restart_timeout"`

	// Lock serializes exports of the same user.
	Lock bool `mapstructure:"lock" yaml:"lock"`
	// LockTTL is how long a lock counts as held when its process cannot be checked.
	LockTTL time.Duration `mapstructure:"lock_ttl" yaml:"lock_ttl"`
}

// Default returns the default configuration. SiteRoot is left empty; it comes
// from the environment.
func Default() *Config {
	return &Config{
		BuiltinDashboards: append([]string(nil), DefaultBuiltinDashboards...),
		RestartCommand:    []string{"omd", "restart", "apache"},
		RestartTimeout:    2 * time.Minute,
		Lock:              true,
		LockTTL:           10 * time.Minute,
	}
}

// Paths are the fixed locations derived from the site root.
type Paths struct {
	// StoreDir holds one directory per user with user_dashboards.mk inside.
	StoreDir string
	// PluginDir is the current local GUI plugin directory.
	PluginDir string
	// LegacyDir is the pre-2.0 local dashboard plugin directory.
	LegacyDir string
	// LockDir holds per-user export lock files.
	LockDir string
}

// Paths derives all fixed paths from SiteRoot.
func (c *Config) Paths() Paths {
	root := c.SiteRoot
	return Paths{
		StoreDir:  filepath.Join(root, "var", "check_mk", "web"),
		PluginDir: filepath.Join(root, "local", "lib", "check_mk", "gui", "plugins"),
		LegacyDir: filepath.Join(root, "local", "share", "check_mk", "web", "plugins", "dashboard"),
		LockDir:   filepath.Join(root, "tmp", "dashexport"),
	}
}

// DestDir returns the artifact directory for the chosen layout.
func (p Paths) DestDir(legacy bool) string {
	if legacy {
		return p.LegacyDir
	}
	return p.PluginDir
}

// IsBuiltin reports whether name is one of the configured built-in dashboards.
func (c *Config) IsBuiltin(name string) bool {
	for _, b := range c.BuiltinDashboards {
		if b == name {
			return true
		}
	}
	return false
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.SiteRoot == "" {
		return exerrors.ErrConfigMissing("site_root",
			fmt.Sprintf("Run inside a site (as the site user) or set %s", SiteRootEnv))
	}
	if !filepath.IsAbs(c.SiteRoot) {
		return exerrors.ErrConfigInvalid("site_root", fmt.Sprintf("%q is not an absolute path", c.SiteRoot))
	}
	if len(c.RestartCommand) == 0 || c.RestartCommand[0] == "" {
		return exerrors.ErrConfigInvalid("restart_command", "must name a program")
	}
	if c.RestartTimeout <= 0 {
		return exerrors.ErrConfigInvalid("restart_timeout", "must be positive")
	}
	if c.Lock && c.LockTTL <= 0 {
		return exerrors.ErrConfigInvalid("lock_ttl", "must be positive when locking is enabled")
	}
	return nil
}
