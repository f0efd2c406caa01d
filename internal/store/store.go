// Package store reads a user's persisted dashboard definitions.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	exerrors "github.com/randalmurphal/dashexport/internal/errors"
	"github.com/randalmurphal/dashexport/internal/pylit"
	"github.com/randalmurphal/dashexport/internal/util"
)

// FileName is the per-user dashboard store written by the web GUI.
const FileName = "user_dashboards.mk"

// Store is the parsed dashboard store of one user. It is read-only.
type Store struct {
	Owner   string
	Path    string
	Entries *pylit.Dict
}

// Path returns the store file location for user below storeDir.
func Path(storeDir, user string) string {
	return filepath.Join(storeDir, user, FileName)
}

// Load reads and parses the store of user. A missing file yields an error
// matching errors.ErrStoreNotFound; content that is not a literal dict keyed
// by strings yields errors.ErrStoreFormat.
func Load(storeDir, user string) (*Store, error) {
	if !util.ValidName(user) {
		return nil, exerrors.ErrBadName("user", user)
	}
	path := Path(storeDir, user)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, exerrors.ErrNoStore(user, path)
		}
		return nil, fmt.Errorf("read dashboard store %s: %w", path, err)
	}

	entries, err := Parse(string(data))
	if err != nil {
		return nil, exerrors.ErrBadStore(path, err)
	}

	return &Store{Owner: user, Path: path, Entries: entries}, nil
}

// Parse decodes store file content. Line breaks are removed before parsing,
// as the GUI may wrap long values across lines.
func Parse(content string) (*pylit.Dict, error) {
	content = strings.NewReplacer("\r\n", "", "\n", "", "\r", "").Replace(content)

	v, err := pylit.Parse(content)
	if err != nil {
		return nil, err
	}
	d, ok := v.(*pylit.Dict)
	if !ok {
		return nil, fmt.Errorf("top-level value is a %s, not a dict", pylit.TypeName(v))
	}
	for _, key := range d.Keys() {
		if _, ok := key.(string); !ok {
			return nil, fmt.Errorf("dashboard name %s is a %s, not a str", pylit.Repr(key), pylit.TypeName(key))
		}
	}
	return d, nil
}

// Names returns the dashboard names in ascending order.
func (s *Store) Names() []string {
	names := make([]string, 0, s.Entries.Len())
	for _, key := range s.Entries.Keys() {
		names = append(names, key.(string))
	}
	sort.Strings(names)
	return names
}

// Get returns the definition stored under name.
func (s *Store) Get(name string) (pylit.Value, bool) {
	return s.Entries.Get(name)
}

// Len returns the number of dashboards in the store.
func (s *Store) Len() int {
	return s.Entries.Len()
}

// Title returns the dashboard's "title" entry when it is a string.
func Title(def pylit.Value) string {
	d, ok := def.(*pylit.Dict)
	if !ok {
		return ""
	}
	title, _ := d.Get("title")
	s, _ := title.(string)
	return s
}
