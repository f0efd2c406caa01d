package export

import (
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	exerrors "github.com/randalmurphal/dashexport/internal/errors"
)

// Select picks the dashboards to export from the store's names.
//
// An explicit target is honored only together with includeBuiltin; it must
// then exist in the store. Otherwise every name is selected except reserved
// ones (unless includeBuiltin), narrowed by the match glob when given.
// The result is sorted.
func Select(names, reserved []string, target string, includeBuiltin bool, match string) ([]string, error) {
	if match != "" && !doublestar.ValidatePattern(match) {
		return nil, exerrors.ErrConfigInvalid("match", "invalid glob pattern "+match)
	}

	if target != "" && includeBuiltin {
		for _, name := range names {
			if name == target {
				return []string{target}, nil
			}
		}
		return nil, exerrors.ErrNoDashboard("", target)
	}

	skip := make(map[string]bool, len(reserved))
	if !includeBuiltin {
		for _, r := range reserved {
			skip[r] = true
		}
	}

	selected := make([]string, 0, len(names))
	for _, name := range names {
		if skip[name] {
			continue
		}
		if match != "" {
			ok, err := doublestar.Match(match, name)
			if err != nil {
				return nil, exerrors.ErrConfigInvalid("match", err.Error())
			}
			if !ok {
				continue
			}
		}
		selected = append(selected, name)
	}
	sort.Strings(selected)
	return selected, nil
}

// skipped returns the names not in selected, sorted.
func skipped(names, selected []string) []string {
	in := make(map[string]bool, len(selected))
	for _, s := range selected {
		in[s] = true
	}
	var out []string
	for _, name := range names {
		if !in[name] {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
