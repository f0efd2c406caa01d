package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// newConfigCmd creates the config command
func newConfigCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Long: `Print the configuration after defaults, config file and environment
overrides have been applied, together with the paths derived from it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := a.load(cmd)
			if err != nil {
				return err
			}

			paths := cfg.Paths()
			view := struct {
				Config any               `yaml:"config"`
				Paths  map[string]string `yaml:"paths"`
			}{
				Config: cfg,
				Paths: map[string]string{
					"store":  paths.StoreDir,
					"plugin": paths.PluginDir,
					"legacy": paths.LegacyDir,
					"lock":   paths.LockDir,
				},
			}

			data, err := yaml.Marshal(view)
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
