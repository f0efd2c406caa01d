// Package export turns a user's dashboard store into plugin artifacts.
package export

import (
	"github.com/randalmurphal/dashexport/internal/config"
	exerrors "github.com/randalmurphal/dashexport/internal/errors"
	"github.com/randalmurphal/dashexport/internal/util"
)

// Options are the per-run choices made on the command line.
type Options struct {
	User           string
	Dashboard      string
	Match          string
	IncludeBuiltin bool
	Legacy         bool
	DryRun         bool
}

// Context is the resolved, immutable state of one run.
type Context struct {
	Options
	Paths    config.Paths
	DestDir  string
	Reserved []string
}

// NewContext validates opts and resolves the destination directory. Both
// destination directories are created unless this is a dry run.
func NewContext(cfg *config.Config, opts Options) (*Context, error) {
	if opts.User == "" {
		return nil, exerrors.ErrConfigMissing("user", "Pass the user whose dashboards to export with -u USER")
	}
	if !util.ValidName(opts.User) {
		return nil, exerrors.ErrBadName("user", opts.User)
	}
	if opts.Dashboard != "" && !util.ValidName(opts.Dashboard) {
		return nil, exerrors.ErrBadName("dashboard", opts.Dashboard)
	}

	paths := cfg.Paths()
	c := &Context{
		Options:  opts,
		Paths:    paths,
		DestDir:  paths.DestDir(opts.Legacy),
		Reserved: append([]string(nil), cfg.BuiltinDashboards...),
	}

	if !opts.DryRun {
		for _, dir := range []string{paths.PluginDir, paths.LegacyDir} {
			if err := util.EnsureDir(dir); err != nil {
				return nil, exerrors.ErrWrite(dir, err)
			}
		}
	}
	return c, nil
}
