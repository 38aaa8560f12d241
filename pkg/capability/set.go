// Package capability builds the namespace a submission runs in.
//
// The names a script can reach are an explicit, versioned allow-list (a
// Set). The Builder binds exactly those names into a fresh goja runtime,
// plus the bound query capability, and refuses to hand out a namespace
// whose bindings do not match the set.
package capability

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
)

// ErrNamespace reports a namespace that could not be constructed.
var ErrNamespace = errors.New("namespace construction failed")

// QueryNames are bound in addition to every Set: the query capability and
// its alias.
var QueryNames = []string{"query", "execute_sql"}

// Set is a versioned allow-list of capability names.
type Set struct {
	Version string
	Names   []string
}

// V1 is the capability set exposed to submissions.
var V1 = Set{
	Version: "v1",
	Names: []string{
		"print",
		"console",
		"np",
		"pd",
		"plt",
		"stats",
		"encoding",
		"compress",
		"datetime",
		"http",
	},
}

// Has reports whether name is in the set.
func (s Set) Has(name string) bool {
	return slices.Contains(s.Names, name)
}

// Validate checks that bound contains exactly the set's names, in any order.
func (s Set) Validate(bound []string) error {
	want := map[string]bool{}
	for _, n := range s.Names {
		want[n] = true
	}
	got := map[string]bool{}
	var unexpected []string
	for _, n := range bound {
		got[n] = true
		if !want[n] {
			unexpected = append(unexpected, n)
		}
	}
	var missing []string
	for _, n := range s.Names {
		if !got[n] {
			missing = append(missing, n)
		}
	}

	var errs []error
	if len(missing) > 0 {
		sort.Strings(missing)
		errs = append(errs, fmt.Errorf("capability set %s: missing %s", s.Version, strings.Join(missing, ", ")))
	}
	if len(unexpected) > 0 {
		sort.Strings(unexpected)
		errs = append(errs, fmt.Errorf("capability set %s: unexpected %s", s.Version, strings.Join(unexpected, ", ")))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrNamespace, errors.Join(errs...))
	}
	return nil
}
