package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"
)

// Load builds the configuration. Later sources override earlier ones:
//  1. Built-in defaults
//  2. Config file: cfgFile if given, else dashexport.yaml in
//     $OMD_ROOT/etc/dashexport or $HOME/.dashexport (optional)
//  3. Environment: OMD_ROOT for the site root, DASHEXPORT_* for everything
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	def := Default()
	v.SetDefault("site_root", def.SiteRoot)
	v.SetDefault("builtin_dashboards", def.BuiltinDashboards)
	v.SetDefault("restart_command", def.RestartCommand)
	v.SetDefault("restart_timeout", def.RestartTimeout)
	v.SetDefault("lock", def.Lock)
	v.SetDefault("lock_ttl", def.LockTTL)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(ConfigFileName)
		v.SetConfigType("yaml")
		v.AddConfigPath("$" + SiteRootEnv + "/etc/dashexport")
		v.AddConfigPath("$HOME/.dashexport")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("site_root", EnvPrefix+"_SITE_ROOT", SiteRootEnv); err != nil {
		return nil, fmt.Errorf("bind site root env: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		slog.Debug("using config file", "path", v.ConfigFileUsed())
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}
