package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/dashexport/internal/artifact"
	"github.com/randalmurphal/dashexport/internal/config"
	exerrors "github.com/randalmurphal/dashexport/internal/errors"
	"github.com/randalmurphal/dashexport/internal/store"
	"github.com/randalmurphal/dashexport/internal/util"
)

// listEntry is one row of the list output.
type listEntry struct {
	Name           string `json:"name"`
	Title          string `json:"title"`
	Builtin        bool   `json:"builtin"`
	Exported       bool   `json:"exported"`
	ExportedLegacy bool   `json:"exported_legacy"`
}

func listEntries(cfg *config.Config, s *store.Store) []listEntry {
	paths := cfg.Paths()
	entries := make([]listEntry, 0, s.Len())
	for _, name := range s.Names() {
		def, _ := s.Get(name)
		entries = append(entries, listEntry{
			Name:           name,
			Title:          store.Title(def),
			Builtin:        cfg.IsBuiltin(name),
			Exported:       util.ValidName(name) && artifact.Exists(paths.PluginDir, s.Owner, name),
			ExportedLegacy: util.ValidName(name) && artifact.Exists(paths.LegacyDir, s.Owner, name),
		})
	}
	return entries
}

// newListCmd creates the list command
func newListCmd(a *app) *cobra.Command {
	var (
		user    string
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List a user's customized dashboards",
		Long: `List the dashboards stored for a user, whether they share a name with a
shipped dashboard, and whether an exported plugin already exists.

Example:
  dashexport list -u alice
  dashexport list -u alice --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := a.load(cmd)
			if err != nil {
				return err
			}
			if user == "" {
				return exerrors.ErrConfigMissing("user", "Pass the user with -u USER")
			}

			s, err := store.Load(cfg.Paths().StoreDir, user)
			if err != nil {
				return err
			}
			entries := listEntries(cfg, s)

			out := cmd.OutOrStdout()
			if jsonOut {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}

			if len(entries) == 0 {
				fmt.Fprintf(out, "No dashboards stored for %s.\n", user)
				return nil
			}

			tty, width := terminal(out)
			titleWidth := 40
			if width > 0 {
				// NAME, BUILTIN, EXPORTED and LEGACY take roughly this much.
				titleWidth = max(10, width-maxNameLen(entries)-30)
			}

			// Align first, then style whole lines so escape codes do not skew columns.
			var buf strings.Builder
			w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tTITLE\tBUILTIN\tEXPORTED\tLEGACY")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					e.Name, truncate(strings.Join(strings.Fields(e.Title), " "), titleWidth), yesNo(e.Builtin), yesNo(e.Exported), yesNo(e.ExportedLegacy))
			}
			if err := w.Flush(); err != nil {
				return err
			}

			lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
			for i, line := range lines {
				if tty {
					switch {
					case i == 0:
						line = headerStyle.Render(line)
					case entries[i-1].Builtin:
						line = builtinStyle.Render(line)
					case entries[i-1].Exported || entries[i-1].ExportedLegacy:
						line = okStyle.Render(line)
					}
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "user whose dashboards are listed (required)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output as JSON")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func maxNameLen(entries []listEntry) int {
	n := 0
	for _, e := range entries {
		n = max(n, len(e.Name))
	}
	return n
}
