package analysis

import (
	"sort"
	"sync"

	"github.com/KaramelBytes/samreport-cli/internal/dataset"
)

// View is a read-only projection of a Dataset. It stores only its parent and
// a predicate; the matching row positions are computed on first use and
// cached. Narrowing a View returns a new View and leaves the receiver intact.
type View struct {
	src    *dataset.Dataset
	parent *View
	pred   func(*dataset.Record) bool

	once sync.Once
	idx  []int
}

// NewView returns the unfiltered view over d.
func NewView(d *dataset.Dataset) *View {
	return &View{src: d}
}

// Dataset returns the underlying dataset.
func (v *View) Dataset() *dataset.Dataset { return v.src }

// Where returns a view narrowed by pred.
func (v *View) Where(pred func(*dataset.Record) bool) *View {
	return &View{src: v.src, parent: v, pred: pred}
}

// WhereGroup narrows to rows whose value at level l equals value.
// The "all" sentinel returns v unchanged.
func (v *View) WhereGroup(l dataset.Level, value string) *View {
	if IsAll(value) {
		return v
	}
	return v.Where(func(r *dataset.Record) bool { return r.Group(l) == value })
}

func (v *View) rows() []int {
	v.once.Do(func() {
		if v.src == nil {
			v.idx = []int{}
			return
		}
		if v.parent == nil {
			v.idx = make([]int, len(v.src.Records))
			for i := range v.idx {
				v.idx[i] = i
			}
			return
		}
		base := v.parent.rows()
		v.idx = make([]int, 0, len(base))
		for _, i := range base {
			if v.pred(&v.src.Records[i]) {
				v.idx = append(v.idx, i)
			}
		}
	})
	return v.idx
}

// Len returns the number of matching rows.
func (v *View) Len() int { return len(v.rows()) }

// Empty reports whether no row matches.
func (v *View) Empty() bool { return v.Len() == 0 }

// Each calls fn for every matching row in dataset order.
func (v *View) Each(fn func(r *dataset.Record)) {
	for _, i := range v.rows() {
		fn(&v.src.Records[i])
	}
}

// Records returns a copy of the matching rows.
func (v *View) Records() []dataset.Record {
	out := make([]dataset.Record, 0, v.Len())
	v.Each(func(r *dataset.Record) { out = append(out, *r) })
	return out
}

// Head returns up to n matching rows.
func (v *View) Head(n int) []dataset.Record {
	idx := v.rows()
	if n < len(idx) {
		idx = idx[:n]
	}
	out := make([]dataset.Record, 0, len(idx))
	for _, i := range idx {
		out = append(out, v.src.Records[i])
	}
	return out
}

// UserIDs returns the distinct non-empty user ids in first-seen order.
func (v *View) UserIDs() []string {
	seen := map[string]bool{}
	var out []string
	v.Each(func(r *dataset.Record) {
		if r.UserID == "" || seen[r.UserID] {
			return
		}
		seen[r.UserID] = true
		out = append(out, r.UserID)
	})
	return out
}

// UserSet returns the distinct non-empty user ids as a set.
func (v *View) UserSet() map[string]struct{} {
	set := map[string]struct{}{}
	v.Each(func(r *dataset.Record) {
		if r.UserID != "" {
			set[r.UserID] = struct{}{}
		}
	})
	return set
}

// Distinct returns the sorted distinct non-missing values at level l.
func (v *View) Distinct(l dataset.Level) []string {
	seen := map[string]bool{}
	out := []string{}
	v.Each(func(r *dataset.Record) {
		g := r.Group(l)
		if g == "" || seen[g] {
			return
		}
		seen[g] = true
		out = append(out, g)
	})
	sort.Strings(out)
	return out
}

// Equal reports whether two views select the same rows of the same dataset.
func (v *View) Equal(o *View) bool {
	if v.src != o.src {
		return false
	}
	a, b := v.rows(), o.rows()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
