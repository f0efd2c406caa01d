package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"

	exerrors "github.com/randalmurphal/dashexport/internal/errors"
	"github.com/randalmurphal/dashexport/internal/pylit"
	"github.com/randalmurphal/dashexport/internal/store"
)

// Output formats for show.
const (
	formatPy   = "py"
	formatJSON = "json"
	formatYAML = "yaml"
)

// newShowCmd creates the show command
func newShowCmd(a *app) *cobra.Command {
	var (
		user   string
		name   string
		format string
		path   string
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print one stored dashboard definition",
		Long: `Print a dashboard definition from a user's store, formatted the way it
would be exported (py), or as JSON or YAML.

--path selects a part of the definition using gjson path syntax, applied to
the JSON form of the definition.

Example:
  dashexport show -u alice -d ops_overview
  dashexport show -u alice -d ops_overview --format json
  dashexport show -u alice -d ops_overview --path 'dashlets.#.type'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch format {
			case formatPy, formatJSON, formatYAML:
			default:
				return exerrors.ErrConfigInvalid("format", fmt.Sprintf("unknown format %q (use py, json or yaml)", format))
			}

			cfg, _, err := a.load(cmd)
			if err != nil {
				return err
			}

			s, err := store.Load(cfg.Paths().StoreDir, user)
			if err != nil {
				return err
			}
			def, ok := s.Get(name)
			if !ok {
				return exerrors.ErrNoDashboard(user, name)
			}

			if path != "" {
				def, err = selectPath(def, path)
				if err != nil {
					return err
				}
			}
			return writeValue(cmd.OutOrStdout(), def, format)
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "user whose store is read (required)")
	cmd.Flags().StringVarP(&name, "dashboard", "d", "", "dashboard to show (required)")
	cmd.Flags().StringVar(&format, "format", formatPy, "output format: py, json or yaml")
	cmd.Flags().StringVar(&path, "path", "", "gjson path selecting part of the definition")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("dashboard")

	return cmd
}

// selectPath applies a gjson path to the JSON form of def.
func selectPath(def pylit.Value, path string) (pylit.Value, error) {
	data, err := json.Marshal(pylit.ToJSON(def))
	if err != nil {
		return nil, fmt.Errorf("encode definition: %w", err)
	}
	res := gjson.GetBytes(data, path)
	if !res.Exists() {
		return nil, exerrors.ErrConfigInvalid("path", fmt.Sprintf("nothing found at %q", path))
	}
	return pylit.FromJSON(res.Value()), nil
}

func writeValue(w io.Writer, v pylit.Value, format string) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(pylit.ToJSON(v))
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(pylit.ToJSON(v)); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	default:
		return pylit.Fprint(w, v)
	}
}
