package analysis

import (
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/KaramelBytes/samreport-cli/internal/dataset"
)

// DateLayout is the day format used in reports.
const DateLayout = "2006-01-02"

// Period is the span of registration dates; Known is false when no row had a
// parsable date.
type Period struct {
	Known bool      `json:"known"`
	Start time.Time `json:"start,omitempty"`
	End   time.Time `json:"end,omitempty"`
}

// String renders the period as "start ~ end" or "unknown".
func (p Period) String() string {
	if !p.Known {
		return "unknown"
	}
	return p.Start.Format(DateLayout) + " ~ " + p.End.Format(DateLayout)
}

// Overview is the headline summary of a dataset.
type Overview struct {
	Name      string   `json:"name"`
	Rows      int      `json:"rows"`
	Period    Period   `json:"period"`
	Users     int      `json:"users"`
	Questions int      `json:"questions"`
	Warnings  []string `json:"warnings,omitempty"`
}

// BuildOverview computes the survey period, participant and question totals.
func BuildOverview(ds *dataset.Dataset) *Overview {
	ov := &Overview{Name: ds.Name, Rows: ds.Len(), Warnings: ds.Warnings}
	v := NewView(ds)
	ov.Period = period(v)
	ov.Users = len(v.UserSet())
	v.Each(func(r *dataset.Record) {
		if r.Question != "" {
			ov.Questions++
		}
	})
	return ov
}

func period(v *View) Period {
	var p Period
	v.Each(func(r *dataset.Record) {
		if !r.HasDate {
			return
		}
		if !p.Known || r.RegisteredAt.Before(p.Start) {
			p.Start = r.RegisteredAt
		}
		if !p.Known || r.RegisteredAt.After(p.End) {
			p.End = r.RegisteredAt
		}
		p.Known = true
	})
	return p
}

// MonthCount is the number of dated rows in one calendar month.
type MonthCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

// MonthlyTrend counts dated rows per calendar month from the first to the
// last month present, filling months with no rows with zero.
func MonthlyTrend(ds *dataset.Dataset) ([]MonthCount, error) {
	if err := ds.Require("monthly trend", dataset.ColRegDate); err != nil {
		return nil, err
	}
	counts := map[string]int{}
	p := period(NewView(ds))
	out := []MonthCount{}
	if !p.Known {
		return out, nil
	}
	for i := range ds.Records {
		r := &ds.Records[i]
		if r.HasDate {
			counts[r.RegisteredAt.Format("2006-01")]++
		}
	}
	m := time.Date(p.Start.Year(), p.Start.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(p.End.Year(), p.End.Month(), 1, 0, 0, 0, 0, time.UTC)
	for !m.After(last) {
		key := m.Format("2006-01")
		out = append(out, MonthCount{Month: key, Count: counts[key]})
		m = m.AddDate(0, 1, 0)
	}
	return out, nil
}

// TopChatTitles returns the n most frequent chat titles.
func TopChatTitles(v *View, n int) ([]ValueCount, error) {
	if err := v.Dataset().Require("chat topics", dataset.ColChatTitle); err != nil {
		return nil, err
	}
	return TopValues(v, func(r *dataset.Record) string { return r.ChatTitle }, n), nil
}

// AnswerStats holds the answered/unanswered split.
type AnswerStats struct {
	Total         int     `json:"total"`
	Answered      int     `json:"answered"`
	Unanswered    int     `json:"unanswered"`
	AnsweredPct   float64 `json:"answered_pct"`
	UnansweredPct float64 `json:"unanswered_pct"`
}

// BuildAnswerStats counts Y and N answer flags. Percentages are over Y+N and
// rounded to one decimal; Total is the row count.
func BuildAnswerStats(ds *dataset.Dataset) (*AnswerStats, error) {
	if err := ds.Require("answer statistics", dataset.ColAnswerYN); err != nil {
		return nil, err
	}
	st := &AnswerStats{Total: ds.Len()}
	for i := range ds.Records {
		switch ds.Records[i].AnswerYN {
		case "Y":
			st.Answered++
		case "N":
			st.Unanswered++
		}
	}
	if n := st.Answered + st.Unanswered; n > 0 {
		st.AnsweredPct = round1(float64(st.Answered) * 100 / float64(n))
		st.UnansweredPct = round1(float64(st.Unanswered) * 100 / float64(n))
	}
	return st, nil
}

func round1(x float64) float64 { return math.Round(x*10) / 10 }

// QuestionsByAnswer returns the non-empty questions flagged Y (answered=true)
// or N (answered=false), in dataset order.
func QuestionsByAnswer(ds *dataset.Dataset, answered bool) ([]string, error) {
	if err := ds.Require("answer classification", dataset.ColAnswerYN, dataset.ColQuestion); err != nil {
		return nil, err
	}
	flag := "N"
	if answered {
		flag = "Y"
	}
	out := []string{}
	for i := range ds.Records {
		r := &ds.Records[i]
		if r.AnswerYN == flag && r.Question != "" {
			out = append(out, r.Question)
		}
	}
	return out, nil
}

const (
	profileQuestions = 10
	profileTitles    = 15
)

// UserProfile summarizes one user's activity and learning history.
type UserProfile struct {
	UserID       string     `json:"user_id"`
	UserName     string     `json:"user_name,omitempty"`
	Total        int        `json:"total"`
	Answered     int        `json:"answered"`
	Unanswered   int        `json:"unanswered"`
	LastQuestion *time.Time `json:"last_question,omitempty"`
	Questions    []string   `json:"questions"`
	// HasLearning is true when a companion dataset with user ids was available.
	HasLearning    bool                      `json:"has_learning"`
	LearningHeader []string                  `json:"learning_header,omitempty"`
	Learning       []dataset.CompanionRecord `json:"learning,omitempty"`
	Titles         []string                  `json:"titles"`
	Notices        []string                  `json:"notices,omitempty"`
}

// Empty reports whether the user has no rows in the question data.
func (u *UserProfile) Empty() bool { return u.Total == 0 }

// BuildUserProfile gathers the rows of one user plus their companion rows.
func BuildUserProfile(ds *dataset.Dataset, comp *dataset.Companion, userID string) (*UserProfile, error) {
	if err := ds.Require("user analysis", dataset.ColUserID); err != nil {
		return nil, err
	}
	id := dataset.NormalizeID(userID)
	up := &UserProfile{UserID: id, Questions: []string{}, Titles: []string{}}
	v := NewView(ds).Where(func(r *dataset.Record) bool { return r.UserID == id })
	var last time.Time
	v.Each(func(r *dataset.Record) {
		up.Total++
		if up.UserName == "" {
			up.UserName = r.UserName
		}
		switch r.AnswerYN {
		case "Y":
			up.Answered++
		case "N":
			up.Unanswered++
		}
		if r.HasDate && (up.LastQuestion == nil || r.RegisteredAt.After(last)) {
			last = r.RegisteredAt
			up.LastQuestion = &last
		}
		if r.Question != "" && len(up.Questions) < profileQuestions {
			up.Questions = append(up.Questions, r.Question)
		}
	})

	switch {
	case comp == nil:
		up.Notices = append(up.Notices, "no learning history loaded")
	case !comp.Has(dataset.ColUserID):
		up.Notices = append(up.Notices, "learning history has no user_id column")
	default:
		up.HasLearning = true
		up.LearningHeader = comp.Header
		up.Learning = RelatedLearning(map[string]struct{}{id: {}}, comp)
		if len(up.Learning) == 0 {
			up.Notices = append(up.Notices, "no learning history rows for user "+id)
		}
		for _, r := range up.Learning {
			if r.Title != "" && len(up.Titles) < profileTitles {
				up.Titles = append(up.Titles, r.Title)
			}
		}
	}
	return up, nil
}

// TopKeywords splits texts on whitespace and returns the n most frequent
// tokens longer than one character, ties in first-seen order.
func TopKeywords(texts []string, n int) []ValueCount {
	var words []string
	for _, t := range texts {
		for _, w := range strings.Fields(t) {
			if utf8.RuneCountInString(w) > 1 {
				words = append(words, w)
			}
		}
	}
	return CountValues(words, n)
}

const (
	orgKeywords = 30
	orgTopics   = 5
	orgCourses  = 5
)

// OrgProfile is the material for an organization report: keywords from the
// questions and matched course titles plus the most frequent topics and courses.
type OrgProfile struct {
	Path        string       `json:"path"`
	Rows        int          `json:"rows"`
	Keywords    []ValueCount `json:"keywords"`
	TopTopics   []ValueCount `json:"top_topics"`
	TopCourses  []ValueCount `json:"top_courses"`
	HasLearning bool         `json:"has_learning"`
	HasTopics   bool         `json:"has_topics"`
}

// Empty reports whether the view had no rows.
func (o *OrgProfile) Empty() bool { return o.Rows == 0 }

// BuildOrgProfile assembles the organization report inputs for v. The
// learning corpus is included only when comp has matching titled rows.
func BuildOrgProfile(path string, v *View, comp *dataset.Companion) *OrgProfile {
	op := &OrgProfile{Path: path, Rows: v.Len(), Keywords: []ValueCount{}, TopTopics: []ValueCount{}, TopCourses: []ValueCount{}}
	if op.Empty() {
		return op
	}
	var corpus []string
	v.Each(func(r *dataset.Record) { corpus = append(corpus, r.Question) })
	if comp != nil && comp.Has(dataset.ColUserID, dataset.ColTitle) {
		matched := RelatedLearning(v.UserSet(), comp)
		if len(matched) > 0 {
			op.HasLearning = true
			titles := make([]string, len(matched))
			for i, r := range matched {
				titles[i] = r.Title
			}
			corpus = append(corpus, titles...)
			op.TopCourses = CountValues(titles, orgCourses)
		}
	}
	op.Keywords = TopKeywords(corpus, orgKeywords)
	if v.Dataset().Has(dataset.ColChatTitle) {
		op.HasTopics = true
		op.TopTopics = TopValues(v, func(r *dataset.Record) string { return r.ChatTitle }, orgTopics)
	}
	return op
}
