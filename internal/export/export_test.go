package export

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/dashexport/internal/artifact"
	"github.com/randalmurphal/dashexport/internal/config"
	exerrors "github.com/randalmurphal/dashexport/internal/errors"
	"github.com/randalmurphal/dashexport/internal/lock"
	"github.com/randalmurphal/dashexport/internal/pylit"
	"github.com/randalmurphal/dashexport/internal/store"
)

const sampleStore = `{'main': {'title': 'Main overview', 'dashlets': []},
 'site': {'title': 'Site', 'dashlets': []},
 'ops_overview': {'title': u'Ops',
  'dashlets': [{'type': 'hoststats', 'position': (1, 1), 'size': (30, 18)}],
  'public': True},
 'db_latency': {'title': 'DB', 'dashlets': [], 'mtime': 1700000000}}
`

type fixture struct {
	cfg  *config.Config
	root string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := config.Default()
	cfg.SiteRoot = t.TempDir()
	return &fixture{cfg: cfg, root: cfg.SiteRoot}
}

func (f *fixture) writeStore(t *testing.T, user, content string) {
	t.Helper()
	path := store.Path(f.cfg.Paths().StoreDir, user)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func (f *fixture) run(t *testing.T, opts Options) (*Result, error) {
	t.Helper()
	e, err := New(f.cfg, opts)
	require.NoError(t, err)
	return e.Run(context.Background())
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestRun_RoundTrip(t *testing.T) {
	f := newFixture(t)
	f.writeStore(t, "bob", sampleStore)

	res, err := f.run(t, Options{User: "bob"})
	require.NoError(t, err)

	s, err := store.Load(f.cfg.Paths().StoreDir, "bob")
	require.NoError(t, err)

	require.Len(t, res.Written, 2)
	for _, a := range res.Written {
		name, def, err := artifact.ReadFile(a.Path)
		require.NoError(t, err)
		assert.Equal(t, a.Name, name)

		want, ok := s.Get(name)
		require.True(t, ok)
		assert.True(t, pylit.Equal(want, def), "dashboard %s changed in export", name)
	}
}

func TestRun_DefaultExcludesReserved(t *testing.T) {
	f := newFixture(t)
	f.writeStore(t, "bob", sampleStore)

	res, err := f.run(t, Options{User: "bob"})
	require.NoError(t, err)

	assert.Equal(t, []string{"db_latency", "ops_overview"}, res.Selected)
	assert.Equal(t, []string{"main", "site"}, res.Skipped)
	assert.ElementsMatch(t,
		[]string{"bob_dashboard_db_latency.py", "bob_dashboard_ops_overview.py"},
		listDir(t, f.cfg.Paths().PluginDir))
}

func TestRun_IncludeBuiltin(t *testing.T) {
	f := newFixture(t)
	f.writeStore(t, "bob", sampleStore)

	res, err := f.run(t, Options{User: "bob", IncludeBuiltin: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"db_latency", "main", "ops_overview", "site"}, res.Selected)
	assert.Empty(t, res.Skipped)

	res, err = f.run(t, Options{User: "bob", IncludeBuiltin: true, Dashboard: "main"})
	require.NoError(t, err)
	assert.Equal(t, []string{"main"}, res.Selected)
	require.Len(t, res.Written, 1)
	assert.Equal(t, artifact.Path(f.cfg.Paths().PluginDir, "bob", "main"), res.Written[0].Path)
}

func TestRun_DashboardWithoutIncludeBuiltinExportsAll(t *testing.T) {
	f := newFixture(t)
	f.writeStore(t, "bob", sampleStore)

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelWarn}))

	e, err := New(f.cfg, Options{User: "bob", Dashboard: "ops_overview"}, WithLogger(logger))
	require.NoError(t, err)
	res, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"db_latency", "ops_overview"}, res.Selected)
	assert.Contains(t, logs.String(), "only honored together with --include_builtin")
}

func TestRun_UnknownDashboard(t *testing.T) {
	f := newFixture(t)
	f.writeStore(t, "bob", sampleStore)

	_, err := f.run(t, Options{User: "bob", IncludeBuiltin: true, Dashboard: "nope"})
	require.Error(t, err)
	assert.ErrorIs(t, err, exerrors.ErrDashboardNotFound)
	assert.Contains(t, err.Error(), "for user bob")
	assert.Empty(t, listDir(t, f.cfg.Paths().PluginDir))
}

func TestRun_MissingStoreIsNoOp(t *testing.T) {
	f := newFixture(t)

	_, err := f.run(t, Options{User: "nobody"})
	require.Error(t, err)
	assert.ErrorIs(t, err, exerrors.ErrStoreNotFound)
	assert.Equal(t, 0, exerrors.AsExportError(err).Category().ExitCode())
	assert.Empty(t, listDir(t, f.cfg.Paths().PluginDir))
	assert.Empty(t, listDir(t, f.cfg.Paths().LegacyDir))
}

func TestRun_DestinationRouting(t *testing.T) {
	f := newFixture(t)
	f.writeStore(t, "bob", sampleStore)
	paths := f.cfg.Paths()

	_, err := f.run(t, Options{User: "bob", Legacy: true})
	require.NoError(t, err)
	assert.Len(t, listDir(t, paths.LegacyDir), 2)
	assert.Empty(t, listDir(t, paths.PluginDir))

	// Both destinations exist after a run regardless of the layout.
	_, err = os.Stat(paths.PluginDir)
	assert.NoError(t, err)

	_, err = f.run(t, Options{User: "bob"})
	require.NoError(t, err)
	assert.Len(t, listDir(t, paths.PluginDir), 2)
}

func TestRun_MalformedStoreWritesNothing(t *testing.T) {
	f := newFixture(t)
	f.writeStore(t, "bob", "{not valid python literal ???")

	_, err := f.run(t, Options{User: "bob"})
	require.Error(t, err)
	assert.ErrorIs(t, err, exerrors.ErrStoreFormat)
	assert.Empty(t, listDir(t, f.cfg.Paths().PluginDir))
}

func TestRun_IdempotentOverwrite(t *testing.T) {
	f := newFixture(t)
	f.writeStore(t, "bob", sampleStore)

	first, err := f.run(t, Options{User: "bob"})
	require.NoError(t, err)
	before := map[string][]byte{}
	for _, a := range first.Written {
		data, err := os.ReadFile(a.Path)
		require.NoError(t, err)
		before[a.Path] = data
	}

	second, err := f.run(t, Options{User: "bob"})
	require.NoError(t, err)
	require.Len(t, second.Written, len(first.Written))
	for _, a := range second.Written {
		data, err := os.ReadFile(a.Path)
		require.NoError(t, err)
		assert.Equal(t, before[a.Path], data)
	}
	assert.Len(t, listDir(t, f.cfg.Paths().PluginDir), 2)
}

func TestRun_DryRunWritesNothing(t *testing.T) {
	f := newFixture(t)
	f.writeStore(t, "bob", sampleStore)

	res, err := f.run(t, Options{User: "bob", DryRun: true})
	require.NoError(t, err)

	assert.True(t, res.DryRun)
	require.Len(t, res.Written, 2)
	assert.NotEmpty(t, res.Written[0].Content)
	_, err = os.Stat(f.cfg.Paths().PluginDir)
	assert.True(t, os.IsNotExist(err), "dry run must not create directories")
}

func TestRun_Match(t *testing.T) {
	f := newFixture(t)
	f.writeStore(t, "bob", sampleStore)

	res, err := f.run(t, Options{User: "bob", Match: "ops_*"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ops_overview"}, res.Selected)
}

func TestRun_LockedByAnotherExport(t *testing.T) {
	f := newFixture(t)
	f.writeStore(t, "bob", sampleStore)

	other := lock.NewFileLocker(f.cfg.Paths().LockDir, f.cfg.LockTTL)
	require.NoError(t, other.Acquire("bob"))

	_, err := f.run(t, Options{User: "bob"})
	require.Error(t, err)
	assert.ErrorIs(t, err, exerrors.ErrExportLocked)
	assert.Empty(t, listDir(t, f.cfg.Paths().PluginDir))

	require.NoError(t, other.Release("bob"))
	_, err = f.run(t, Options{User: "bob"})
	require.NoError(t, err)

	// The run released its own lock.
	holder, err := other.Holder("bob")
	require.NoError(t, err)
	assert.Nil(t, holder)
}

func TestRun_LockDisabled(t *testing.T) {
	f := newFixture(t)
	f.cfg.Lock = false
	f.writeStore(t, "bob", sampleStore)

	other := lock.NewFileLocker(f.cfg.Paths().LockDir, f.cfg.LockTTL)
	require.NoError(t, other.Acquire("bob"))

	_, err := f.run(t, Options{User: "bob"})
	assert.NoError(t, err)
}

func TestRun_CanceledContext(t *testing.T) {
	f := newFixture(t)
	f.writeStore(t, "bob", sampleStore)

	e, err := New(f.cfg, Options{User: "bob"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewContext(t *testing.T) {
	cfg := config.Default()
	cfg.SiteRoot = t.TempDir()

	_, err := NewContext(cfg, Options{})
	require.Error(t, err)
	assert.Equal(t, exerrors.CodeConfigMissing, exerrors.AsExportError(err).Code)

	_, err = NewContext(cfg, Options{User: "a/b"})
	assert.ErrorIs(t, err, exerrors.ErrInvalidName)

	_, err = NewContext(cfg, Options{User: "bob", Dashboard: "../x"})
	assert.ErrorIs(t, err, exerrors.ErrInvalidName)

	c, err := NewContext(cfg, Options{User: "bob", Legacy: true})
	require.NoError(t, err)
	assert.Equal(t, cfg.Paths().LegacyDir, c.DestDir)
}

func TestNewContext_DestinationNotCreatable(t *testing.T) {
	cfg := config.Default()
	cfg.SiteRoot = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(cfg.SiteRoot, "local"), nil, 0o644))

	_, err := NewContext(cfg, Options{User: "bob"})
	assert.ErrorIs(t, err, exerrors.ErrWriteFailed)
}

func TestSelect(t *testing.T) {
	names := []string{"site", "zeta", "main", "alpha", "ops_a", "ops_b"}
	reserved := config.DefaultBuiltinDashboards

	tests := []struct {
		name           string
		target         string
		includeBuiltin bool
		match          string
		want           []string
		wantErr        error
	}{
		{name: "all minus reserved", want: []string{"alpha", "ops_a", "ops_b", "zeta"}},
		{name: "include builtin", includeBuiltin: true, want: []string{"alpha", "main", "ops_a", "ops_b", "site", "zeta"}},
		{name: "target with include", target: "main", includeBuiltin: true, want: []string{"main"}},
		{name: "target ignored without include", target: "alpha", want: []string{"alpha", "ops_a", "ops_b", "zeta"}},
		{name: "missing target", target: "nope", includeBuiltin: true, wantErr: exerrors.ErrDashboardNotFound},
		{name: "match", match: "ops_*", want: []string{"ops_a", "ops_b"}},
		{name: "match keeps reserved out", match: "*", want: []string{"alpha", "ops_a", "ops_b", "zeta"}},
		{name: "match ignored for target", target: "zeta", includeBuiltin: true, match: "ops_*", want: []string{"zeta"}},
		{name: "bad glob", match: "[", wantErr: exerrors.ErrConfig},
		{name: "nothing left", match: "none*", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Select(names, reserved, tt.target, tt.includeBuiltin, tt.match)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
