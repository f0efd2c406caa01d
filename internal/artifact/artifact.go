// Package artifact renders dashboard definitions as built-in dashboard plugin
// files and writes them into the site's local plugin directories.
package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	exerrors "github.com/randalmurphal/dashexport/internal/errors"
	"github.com/randalmurphal/dashexport/internal/pylit"
	"github.com/randalmurphal/dashexport/internal/util"
)

// Extension is the file extension of every artifact.
const Extension = ".py"

// FilePerm is the mode artifacts are written with.
const FilePerm os.FileMode = 0o644

// Header precedes the assignment in every artifact.
const Header = `#!/usr/bin/env python3
# -*- coding: utf-8 -*-

from cmk.gui.i18n import _
from cmk.gui.plugins.dashboard.utils import builtin_dashboards, GROW, MAX


`

const assignPrefix = "builtin_dashboards["

// Artifact is one written (or, on dry run, rendered) plugin file.
type Artifact struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Content string `json:"-"`
}

// FileName returns <user>_dashboard_<name>.py.
func FileName(user, name string) string {
	return user + "_dashboard_" + name + Extension
}

// Path returns the artifact location for user's dashboard name inside dir.
func Path(dir, user, name string) string {
	return filepath.Join(dir, FileName(user, name))
}

// Render returns the artifact content for one dashboard.
func Render(name string, def pylit.Value) string {
	var b strings.Builder
	b.WriteString(Header)
	b.WriteString(assignPrefix)
	b.WriteString(pylit.Quote(name, '"'))
	b.WriteString("] = ")
	b.WriteString(pylit.Format(def))
	b.WriteByte('\n')
	return b.String()
}

// Build validates the names and renders the artifact without writing it.
func Build(dir, user, name string, def pylit.Value) (*Artifact, error) {
	if !util.ValidName(user) {
		return nil, exerrors.ErrBadName("user", user)
	}
	if !util.ValidName(name) {
		return nil, exerrors.ErrBadName("dashboard", name)
	}
	return &Artifact{
		Name:    name,
		Path:    Path(dir, user, name),
		Content: Render(name, def),
	}, nil
}

// Write renders the dashboard and replaces any file at its path. dir must exist.
func Write(dir, user, name string, def pylit.Value) (*Artifact, error) {
	a, err := Build(dir, user, name, def)
	if err != nil {
		return nil, err
	}
	if err := util.WriteFileAtomic(a.Path, []byte(a.Content), FilePerm); err != nil {
		return nil, exerrors.ErrWrite(a.Path, err)
	}
	return a, nil
}

// Decode parses artifact content back into the dashboard name and definition.
func Decode(content string) (string, pylit.Value, error) {
	idx := strings.Index(content, "\n"+assignPrefix)
	if idx < 0 {
		if !strings.HasPrefix(content, assignPrefix) {
			return "", nil, fmt.Errorf("no builtin_dashboards assignment found")
		}
	} else {
		content = content[idx+1:]
	}
	rest := content[len(assignPrefix):]

	end := strings.Index(rest, "] = ")
	if end < 0 {
		return "", nil, fmt.Errorf("malformed builtin_dashboards assignment")
	}
	key, err := pylit.Parse(rest[:end])
	if err != nil {
		return "", nil, fmt.Errorf("parse dashboard name: %w", err)
	}
	name, ok := key.(string)
	if !ok {
		return "", nil, fmt.Errorf("dashboard name is a %s, not a str", pylit.TypeName(key))
	}

	def, err := pylit.Parse(rest[end+len("] = "):])
	if err != nil {
		return "", nil, fmt.Errorf("parse dashboard %s: %w", name, err)
	}
	return name, def, nil
}

// ReadFile reads and decodes an artifact from disk.
func ReadFile(path string) (string, pylit.Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, err
	}
	return Decode(string(data))
}

// Exists reports whether an artifact for user's dashboard is present in dir.
func Exists(dir, user, name string) bool {
	info, err := os.Stat(Path(dir, user, name))
	return err == nil && info.Mode().IsRegular()
}
