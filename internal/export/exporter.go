package export

import (
	"context"
	"log/slog"

	"github.com/randalmurphal/dashexport/internal/artifact"
	"github.com/randalmurphal/dashexport/internal/config"
	exerrors "github.com/randalmurphal/dashexport/internal/errors"
	"github.com/randalmurphal/dashexport/internal/lock"
	"github.com/randalmurphal/dashexport/internal/store"
)

// Result describes a finished run.
type Result struct {
	Store    *store.Store
	DestDir  string
	Selected []string
	Written  []artifact.Artifact
	Skipped  []string
	DryRun   bool
}

// Exporter runs the load, select and write pipeline for one user.
type Exporter struct {
	ctx    *Context
	locker lock.Locker
	logger *slog.Logger
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Exporter) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLocker overrides the locker chosen from the configuration.
func WithLocker(l lock.Locker) Option {
	return func(e *Exporter) {
		if l != nil {
			e.locker = l
		}
	}
}

// New resolves the run context and prepares an Exporter.
func New(cfg *config.Config, opts Options, options ...Option) (*Exporter, error) {
	c, err := NewContext(cfg, opts)
	if err != nil {
		return nil, err
	}

	e := &Exporter{
		ctx:    c,
		locker: lock.NoOpLocker{},
		logger: slog.New(slog.DiscardHandler),
	}
	if cfg.Lock && !opts.DryRun {
		e.locker = lock.NewFileLocker(c.Paths.LockDir, cfg.LockTTL)
	}
	for _, o := range options {
		o(e)
	}
	return e, nil
}

// Context returns the resolved run context.
func (e *Exporter) Context() *Context {
	return e.ctx
}

// Run exports the selected dashboards. The first error aborts the run;
// artifacts written before it stay in place.
func (e *Exporter) Run(ctx context.Context) (*Result, error) {
	c := e.ctx
	log := e.logger.With("user", c.User)

	if err := e.locker.Acquire(c.User); err != nil {
		return nil, err
	}
	defer func() {
		if err := e.locker.Release(c.User); err != nil {
			log.Warn("release export lock", "error", err)
		}
	}()

	s, err := store.Load(c.Paths.StoreDir, c.User)
	if err != nil {
		return nil, err
	}
	log.Debug("loaded dashboard store", "path", s.Path, "dashboards", s.Len())

	if c.Dashboard != "" && !c.IncludeBuiltin {
		log.Warn("--dashboard is only honored together with --include_builtin; exporting all dashboards",
			"dashboard", c.Dashboard)
	}

	names := s.Names()
	selected, err := Select(names, c.Reserved, c.Dashboard, c.IncludeBuiltin, c.Match)
	if err != nil {
		if exerrors.Is(err, exerrors.ErrDashboardNotFound) {
			return nil, exerrors.ErrNoDashboard(c.User, c.Dashboard)
		}
		return nil, err
	}

	result := &Result{
		Store:    s,
		DestDir:  c.DestDir,
		Selected: selected,
		Skipped:  skipped(names, selected),
		DryRun:   c.DryRun,
	}
	for _, name := range result.Skipped {
		log.Debug("skipping dashboard", "name", name)
	}

	for _, name := range selected {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		def, _ := s.Get(name)
		var a *artifact.Artifact
		if c.DryRun {
			a, err = artifact.Build(c.DestDir, c.User, name, def)
		} else {
			a, err = artifact.Write(c.DestDir, c.User, name, def)
		}
		if err != nil {
			return result, err
		}

		result.Written = append(result.Written, *a)
		log.Info("exported dashboard", "name", name, "path", a.Path, "dry_run", c.DryRun)
	}

	return result, nil
}
