package analysis

import (
	"sort"

	"github.com/KaramelBytes/samreport-cli/internal/dataset"
)

// GroupCount is one ranked row of an Aggregation.
type GroupCount struct {
	Rank      int    `json:"rank"`
	Label     string `json:"label"`
	Questions int    `json:"questions"`
	Users     int    `json:"users"`
}

// Aggregation holds per-group counts at one level, ordered by question count
// (descending) with ties kept in first-seen order.
type Aggregation struct {
	Level  dataset.Level `json:"-"`
	Groups []GroupCount  `json:"groups"`
}

// Empty reports whether no row had a value at the aggregation level.
func (a *Aggregation) Empty() bool { return a == nil || len(a.Groups) == 0 }

// TotalQuestions sums the question counts of every group.
func (a *Aggregation) TotalQuestions() int {
	n := 0
	for _, g := range a.Groups {
		n += g.Questions
	}
	return n
}

// Top returns at most n groups.
func (a *Aggregation) Top(n int) []GroupCount {
	if n <= 0 || n >= len(a.Groups) {
		return a.Groups
	}
	return a.Groups[:n]
}

// Aggregate counts questions and distinct users per value of level l over
// the rows of v. Rows with no value at l are skipped. When the dataset has a
// question column, only rows with a question are counted as questions.
func Aggregate(v *View, l dataset.Level) *Aggregation {
	agg := &Aggregation{Level: l, Groups: []GroupCount{}}
	countQuestions := v.Dataset().Has(dataset.ColQuestion)

	pos := map[string]int{}
	users := []map[string]struct{}{}
	v.Each(func(r *dataset.Record) {
		label := r.Group(l)
		if label == "" {
			return
		}
		i, ok := pos[label]
		if !ok {
			i = len(agg.Groups)
			pos[label] = i
			agg.Groups = append(agg.Groups, GroupCount{Label: label})
			users = append(users, map[string]struct{}{})
		}
		if !countQuestions || r.Question != "" {
			agg.Groups[i].Questions++
		}
		if r.UserID != "" {
			users[i][r.UserID] = struct{}{}
		}
	})
	for i := range agg.Groups {
		agg.Groups[i].Users = len(users[i])
	}
	sort.SliceStable(agg.Groups, func(i, j int) bool {
		return agg.Groups[i].Questions > agg.Groups[j].Questions
	})
	for i := range agg.Groups {
		agg.Groups[i].Rank = i + 1
	}
	return agg
}

// ValueCount is one ranked entry of a frequency table.
type ValueCount struct {
	Rank  int    `json:"rank"`
	Value string `json:"value"`
	Count int    `json:"count"`
}

// CountValues builds a frequency table of the non-empty values, most
// frequent first with ties in first-seen order, limited to n entries
// (n <= 0 keeps all).
func CountValues(values []string, n int) []ValueCount {
	pos := map[string]int{}
	out := []ValueCount{}
	for _, s := range values {
		if s == "" {
			continue
		}
		if i, ok := pos[s]; ok {
			out[i].Count++
			continue
		}
		pos[s] = len(out)
		out = append(out, ValueCount{Value: s, Count: 1})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// TopValues counts the values of field over v and keeps the n most frequent.
func TopValues(v *View, field func(*dataset.Record) string, n int) []ValueCount {
	vals := make([]string, 0, v.Len())
	v.Each(func(r *dataset.Record) { vals = append(vals, field(r)) })
	return CountValues(vals, n)
}
