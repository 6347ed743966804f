package analysis

import (
	"fmt"
	"sort"

	"github.com/KaramelBytes/samreport-cli/internal/dataset"
)

// RelatedLearning returns the companion rows whose user id is in users, in
// companion order. Ids on both sides are compared in normalized string form.
func RelatedLearning(users map[string]struct{}, comp *dataset.Companion) []dataset.CompanionRecord {
	out := []dataset.CompanionRecord{}
	if comp == nil || len(users) == 0 {
		return out
	}
	norm := make(map[string]struct{}, len(users))
	for id := range users {
		norm[dataset.NormalizeID(id)] = struct{}{}
	}
	for _, r := range comp.Records {
		if r.UserID == "" {
			continue
		}
		if _, ok := norm[r.UserID]; ok {
			out = append(out, r)
		}
	}
	return out
}

// UserOrgMap maps each user id to the first non-missing group_1 value it
// appears with in the dataset.
func UserOrgMap(ds *dataset.Dataset) map[string]string {
	m := map[string]string{}
	for i := range ds.Records {
		r := &ds.Records[i]
		if r.UserID == "" || r.Group1 == "" {
			continue
		}
		if _, ok := m[r.UserID]; !ok {
			m[r.UserID] = r.Group1
		}
	}
	return m
}

// CourseOrg is the organization that enrolled most often in a course.
type CourseOrg struct {
	Title string `json:"title"`
	Org   string `json:"org"`
	Count int    `json:"count"`
}

// MostFrequentOrg returns, for every course title in subset, the group_1
// label with the most enrollments. Ties go to the lexicographically smallest
// label. Rows whose user has no label, or that have no title, are ignored.
func MostFrequentOrg(subset []dataset.CompanionRecord, userOrg map[string]string) map[string]CourseOrg {
	counts := map[string]map[string]int{}
	for _, r := range subset {
		org := userOrg[r.UserID]
		if r.Title == "" || org == "" {
			continue
		}
		if counts[r.Title] == nil {
			counts[r.Title] = map[string]int{}
		}
		counts[r.Title][org]++
	}
	out := make(map[string]CourseOrg, len(counts))
	for title, byOrg := range counts {
		orgs := make([]string, 0, len(byOrg))
		for o := range byOrg {
			orgs = append(orgs, o)
		}
		sort.Strings(orgs)
		best := CourseOrg{Title: title}
		for _, o := range orgs {
			if byOrg[o] > best.Count {
				best.Org, best.Count = o, byOrg[o]
			}
		}
		out[title] = best
	}
	return out
}

// LearningSummary holds the headline metrics over a matched companion subset.
type LearningSummary struct {
	Courses     int `json:"courses"`
	Enrollments int `json:"enrollments"`
	Users       int `json:"users"`
}

// Summarize computes the metrics over subset only.
func Summarize(subset []dataset.CompanionRecord) LearningSummary {
	titles := map[string]struct{}{}
	users := map[string]struct{}{}
	for _, r := range subset {
		if r.Title != "" {
			titles[r.Title] = struct{}{}
		}
		if r.UserID != "" {
			users[r.UserID] = struct{}{}
		}
	}
	return LearningSummary{Courses: len(titles), Enrollments: len(subset), Users: len(users)}
}

// CourseRow is one line of the per-course enrollment table.
type CourseRow struct {
	Rank        int    `json:"rank"`
	Title       string `json:"title"`
	Enrollments int    `json:"enrollments"`
	TopOrg      string `json:"top_org,omitempty"`
	TopOrgCount int    `json:"top_org_count,omitempty"`
}

// TopOrgLabel renders the top organization as "label (n)", or "" if unknown.
func (c CourseRow) TopOrgLabel() string {
	if c.TopOrg == "" {
		return ""
	}
	return fmt.Sprintf("%s (%d)", c.TopOrg, c.TopOrgCount)
}

// LearningReport is the learning-history view for a set of users.
type LearningReport struct {
	Summary LearningSummary `json:"summary"`
	Courses []CourseRow     `json:"courses"`
	// HasOrg is false when the primary dataset has no group_1 column.
	HasOrg  bool     `json:"has_org"`
	Notices []string `json:"notices,omitempty"`
}

// Empty reports whether no companion row matched.
func (l *LearningReport) Empty() bool { return l.Summary.Enrollments == 0 }

// BuildLearningReport joins users to the companion dataset and builds the
// summary metrics and per-course table.
func BuildLearningReport(ds *dataset.Dataset, users map[string]struct{}, comp *dataset.Companion) (*LearningReport, error) {
	if err := comp.Require("learning history", dataset.ColUserID, dataset.ColTitle); err != nil {
		return nil, err
	}
	subset := RelatedLearning(users, comp)
	rep := &LearningReport{Summary: Summarize(subset), Courses: []CourseRow{}}
	if len(subset) == 0 {
		return rep, nil
	}
	titles := make([]string, len(subset))
	for i, r := range subset {
		titles[i] = r.Title
	}
	var orgs map[string]CourseOrg
	if ds.Has(dataset.ColGroup1) {
		rep.HasOrg = true
		orgs = MostFrequentOrg(subset, UserOrgMap(ds))
	} else {
		rep.Notices = append(rep.Notices, "per-course organization requires column group_1 in the question data")
	}
	for _, vc := range CountValues(titles, 0) {
		row := CourseRow{Rank: vc.Rank, Title: vc.Value, Enrollments: vc.Count}
		if o, ok := orgs[vc.Value]; ok {
			row.TopOrg, row.TopOrgCount = o.Org, o.Count
		}
		rep.Courses = append(rep.Courses, row)
	}
	return rep, nil
}
