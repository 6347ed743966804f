package render

import (
	"errors"

	"github.com/KaramelBytes/samreport-cli/internal/analysis"
	"github.com/KaramelBytes/samreport-cli/internal/dataset"
	"github.com/KaramelBytes/samreport-cli/internal/insights"
)

const overviewTopics = 20

// Overview bundles the headline statistics of a question log.
type Overview struct {
	Overview       *analysis.Overview       `json:"overview"`
	Trend          []analysis.MonthCount    `json:"monthly_trend"`
	Topics         []analysis.ValueCount    `json:"top_topics"`
	Answers        *analysis.AnswerStats    `json:"answer_stats,omitempty"`
	Classification *insights.Classification `json:"classification,omitempty"`
	Notices        []string                 `json:"notices,omitempty"`
}

// BuildOverview computes every overview section; sections whose columns are
// missing are replaced by a notice.
func BuildOverview(ds *dataset.Dataset) *Overview {
	o := &Overview{
		Overview: analysis.BuildOverview(ds),
		Trend:    []analysis.MonthCount{},
		Topics:   []analysis.ValueCount{},
	}
	if t, err := analysis.MonthlyTrend(ds); err != nil {
		o.notice(err)
	} else {
		o.Trend = t
	}
	if t, err := analysis.TopChatTitles(analysis.NewView(ds), overviewTopics); err != nil {
		o.notice(err)
	} else {
		o.Topics = t
	}
	if st, err := analysis.BuildAnswerStats(ds); err != nil {
		o.notice(err)
	} else {
		o.Answers = st
	}
	return o
}

func (o *Overview) notice(err error) { o.Notices = appendNotice(o.Notices, err) }

// appendNotice records a missing-column error as a notice; other errors are
// recorded verbatim.
func appendNotice(notices []string, err error) []string {
	var mc *dataset.MissingColumnError
	if errors.As(err, &mc) {
		return append(notices, mc.Error())
	}
	return append(notices, err.Error())
}

// Org is the drill-down view: the options at each level, the permitted
// grouping levels, and the aggregation at the chosen level.
type Org struct {
	Selection      analysis.Selection    `json:"selection"`
	Path           string                `json:"path"`
	Options        map[string][]string   `json:"options"`
	Levels         []string              `json:"levels"`
	Level          string                `json:"level"`
	Rows           int                   `json:"rows"`
	TotalQuestions int                   `json:"total_questions"`
	Groups         []analysis.GroupCount `json:"groups"`
	Profile        *analysis.OrgProfile  `json:"profile,omitempty"`
	Summary        *insights.Result      `json:"summary,omitempty"`

	drill *analysis.Drilldown
}

// Drilldown returns the filter result the report was built from.
func (o *Org) Drilldown() *analysis.Drilldown { return o.drill }

// BuildOrg filters ds by sel and aggregates at level (0 = first permitted).
// The organization profile is always built so a summary can be requested.
func BuildOrg(ds *dataset.Dataset, comp *dataset.Companion, sel analysis.Selection, level dataset.Level) (*Org, error) {
	dd, err := analysis.Filter(ds, sel)
	if err != nil {
		return nil, err
	}
	agg, err := dd.Aggregate(level)
	if err != nil {
		return nil, err
	}
	o := &Org{
		Selection:      sel,
		Path:           sel.String(),
		Options:        map[string][]string{},
		Level:          agg.Level.String(),
		Rows:           dd.View.Len(),
		TotalQuestions: agg.TotalQuestions(),
		Groups:         agg.Groups,
		Profile:        analysis.BuildOrgProfile(sel.String(), dd.View, comp),
		drill:          dd,
	}
	for _, l := range dataset.Levels {
		o.Options[l.String()] = dd.OptionsAt(l)
	}
	for _, l := range dd.Levels {
		o.Levels = append(o.Levels, l.String())
	}
	return o, nil
}

// Keyword wraps a keyword report for rendering.
type Keyword struct {
	*analysis.KeywordReport
}

// Users is the user directory.
type Users struct {
	Users []dataset.UserDirectoryEntry `json:"users"`
}

// NewUsers lists the users of ds, never returning a nil slice.
func NewUsers(ds *dataset.Dataset) *Users {
	u := ds.Users()
	if u == nil {
		u = []dataset.UserDirectoryEntry{}
	}
	return &Users{Users: u}
}

// User is one user's profile and optional learning-profile summary.
type User struct {
	Profile *analysis.UserProfile `json:"profile"`
	Summary *insights.Result      `json:"summary,omitempty"`
}
