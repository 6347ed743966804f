package analysis

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/KaramelBytes/samreport-cli/internal/dataset"
)

// All is the selector value meaning "no constraint at this level".
const All = "all"

// IsAll reports whether a selector value is the unconstrained sentinel.
func IsAll(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || strings.EqualFold(s, All)
}

// Selection holds the optional equality constraints for the three levels.
type Selection struct {
	G1 string `json:"g1"`
	G2 string `json:"g2"`
	G3 string `json:"g3"`
}

// Value returns the selector for level l.
func (s Selection) Value(l dataset.Level) string {
	switch l {
	case dataset.Group1:
		return s.G1
	case dataset.Group2:
		return s.G2
	case dataset.Group3:
		return s.G3
	}
	return ""
}

// String renders the selection as a "g1/g2/g3" path using "all" for open levels.
func (s Selection) String() string {
	parts := make([]string, 0, 3)
	for _, l := range dataset.Levels {
		v := s.Value(l)
		if IsAll(v) {
			v = All
		}
		parts = append(parts, v)
	}
	return strings.Join(parts, "/")
}

// SelectionError reports a concrete selector value that is not offered at its
// level given the upstream selections.
type SelectionError struct {
	Level   dataset.Level
	Value   string
	Options []string
}

func (e *SelectionError) Error() string {
	if len(e.Options) == 0 {
		return fmt.Sprintf("%s %q is not available: no values at this level for the current selection", e.Level, e.Value)
	}
	return fmt.Sprintf("%s %q is not available; choose one of: %s", e.Level, e.Value, strings.Join(e.Options, ", "))
}

// ErrLevelNotAllowed is returned when aggregation is requested at a level
// coarser than the deepest concrete selection.
var ErrLevelNotAllowed = errors.New("grouping level not permitted for the current selection")

// Drilldown is the outcome of applying a Selection: the narrowed view, the
// values selectable at each level, and the grouping levels still permitted.
type Drilldown struct {
	Selection Selection
	// Options[i] are the choices offered at level i+1 (sorted, "all" implied).
	Options [3][]string
	Levels  []dataset.Level
	View    *View
}

// OptionsAt returns the choices offered at level l.
func (d *Drilldown) OptionsAt(l dataset.Level) []string {
	if !l.Valid() {
		return nil
	}
	return d.Options[l-1]
}

// Allows reports whether aggregation at level l is permitted.
func (d *Drilldown) Allows(l dataset.Level) bool {
	for _, x := range d.Levels {
		if x == l {
			return true
		}
	}
	return false
}

// Aggregate aggregates the drill-down view at level l. Passing 0 picks the
// first permitted level.
func (d *Drilldown) Aggregate(l dataset.Level) (*Aggregation, error) {
	if l == 0 {
		l = d.Levels[0]
	}
	if !d.Allows(l) {
		return nil, fmt.Errorf("%w: %s (permitted: %s)", ErrLevelNotAllowed, l, joinLevels(d.Levels))
	}
	return Aggregate(d.View, l), nil
}

// Filter applies sel to the dataset level by level. The options offered at
// each level are the distinct values within the view already narrowed by the
// levels above it; a concrete value outside those options is a SelectionError.
func Filter(ds *dataset.Dataset, sel Selection) (*Drilldown, error) {
	if err := ds.Require("organization drill-down", dataset.ColGroup1, dataset.ColGroup2, dataset.ColGroup3, dataset.ColUserID); err != nil {
		return nil, err
	}
	dd := &Drilldown{Selection: sel}
	v := NewView(ds)
	for _, l := range dataset.Levels {
		opts := v.Distinct(l)
		dd.Options[l-1] = opts
		val := strings.TrimSpace(sel.Value(l))
		if IsAll(val) {
			continue
		}
		i := sort.SearchStrings(opts, val)
		if i >= len(opts) || opts[i] != val {
			return nil, &SelectionError{Level: l, Value: val, Options: opts}
		}
		v = v.WhereGroup(l, val)
	}
	dd.View = v
	dd.Levels = AllowedLevels(sel)
	return dd, nil
}

// AllowedLevels returns the grouping levels permitted for sel: a concrete
// group_3 leaves only group_3, a concrete group_2 leaves group_2 and group_3,
// otherwise every level is permitted.
func AllowedLevels(sel Selection) []dataset.Level {
	switch {
	case !IsAll(sel.G3):
		return []dataset.Level{dataset.Group3}
	case !IsAll(sel.G2):
		return []dataset.Level{dataset.Group2, dataset.Group3}
	}
	return []dataset.Level{dataset.Group1, dataset.Group2, dataset.Group3}
}

func joinLevels(ls []dataset.Level) string {
	s := make([]string, len(ls))
	for i, l := range ls {
		s[i] = l.String()
	}
	return strings.Join(s, ", ")
}
