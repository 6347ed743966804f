package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/KaramelBytes/samreport-cli/internal/analysis"
	"github.com/KaramelBytes/samreport-cli/internal/dataset"
	"github.com/KaramelBytes/samreport-cli/internal/insights"
)

// Markdown renders the overview sections.
func (o *Overview) Markdown() string {
	var b strings.Builder
	ov := o.Overview
	b.WriteString("[OVERVIEW]\n")
	fmt.Fprintf(&b, "- File: %s (%d rows)\n", ov.Name, ov.Rows)
	fmt.Fprintf(&b, "- Period: %s\n", ov.Period)
	fmt.Fprintf(&b, "- Participants: %d\n", ov.Users)
	fmt.Fprintf(&b, "- Questions: %d\n", ov.Questions)

	if len(o.Trend) > 0 {
		b.WriteString("\n[MONTHLY TREND]\n")
		rows := make([][]string, len(o.Trend))
		for i, m := range o.Trend {
			rows[i] = []string{m.Month, strconv.Itoa(m.Count)}
		}
		table(&b, []string{"Month", "Questions"}, rows)
	}

	if len(o.Topics) > 0 {
		b.WriteString("\n[TOP CHAT TOPICS]\n")
		valueTable(&b, "Topic", o.Topics)
	}

	if st := o.Answers; st != nil {
		b.WriteString("\n[ANSWER STATUS]\n")
		fmt.Fprintf(&b, "- Total questions: %d\n", st.Total)
		fmt.Fprintf(&b, "- Answered: %d (%.1f%%)\n", st.Answered, st.AnsweredPct)
		fmt.Fprintf(&b, "- Unanswered: %d (%.1f%%)\n", st.Unanswered, st.UnansweredPct)
	}

	if c := o.Classification; c != nil {
		b.WriteString("\n[ANSWERED QUESTIONS ANALYSIS]\n")
		b.WriteString(summaryText(c.Answered))
		b.WriteString("\n\n[UNANSWERED QUESTIONS ANALYSIS]\n")
		b.WriteString(summaryText(c.Unanswered))
		b.WriteString("\n")
	}
	notes(&b, append(append([]string{}, ov.Warnings...), o.Notices...))
	return b.String()
}

func valueTable(b *strings.Builder, name string, vals []analysis.ValueCount) {
	rows := make([][]string, len(vals))
	for i, v := range vals {
		rows[i] = []string{strconv.Itoa(v.Rank), clip(v.Value, 80), strconv.Itoa(v.Count)}
	}
	table(b, []string{"#", name, "Count"}, rows)
}

func summaryText(r insights.Result) string {
	if !r.OK() {
		return "⚠ " + r.Display()
	}
	return strings.TrimSpace(r.Text)
}

// Markdown renders the drill-down.
func (o *Org) Markdown() string {
	var b strings.Builder
	b.WriteString("[SELECTION]\n")
	fmt.Fprintf(&b, "- Path: %s (%d rows)\n", o.Path, o.Rows)
	for _, l := range dataset.Levels {
		opts := append([]string{analysis.All}, o.Options[l.String()]...)
		fmt.Fprintf(&b, "- %s (%s) options: %s\n", l, l.Label(), strings.Join(opts, ", "))
	}
	fmt.Fprintf(&b, "- Grouping levels: %s\n", strings.Join(o.Levels, ", "))

	fmt.Fprintf(&b, "\n[QUESTIONS BY %s]\n", strings.ToUpper(o.Level))
	if len(o.Groups) == 0 {
		b.WriteString("No rows with a value at this level for the current selection.\n")
	} else {
		rows := make([][]string, len(o.Groups))
		for i, g := range o.Groups {
			rows[i] = []string{strconv.Itoa(g.Rank), safeName(g.Label), strconv.Itoa(g.Questions), strconv.Itoa(g.Users)}
		}
		table(&b, []string{"#", o.Level, "Questions", "Users"}, rows)
		fmt.Fprintf(&b, "\nTotal questions: %d\n", o.TotalQuestions)
	}

	if p := o.Profile; p != nil && !p.Empty() {
		if len(p.Keywords) > 0 {
			words := make([]string, len(p.Keywords))
			for i, k := range p.Keywords {
				words[i] = fmt.Sprintf("%s (%d)", k.Value, k.Count)
			}
			b.WriteString("\n[KEYWORDS]\n")
			b.WriteString(strings.Join(words, ", "))
			b.WriteString("\n")
		}
		if len(p.TopCourses) > 0 {
			b.WriteString("\n[TOP COURSES]\n")
			valueTable(&b, "Course", p.TopCourses)
		}
	}
	if o.Summary != nil {
		b.WriteString("\n[ORGANIZATION REPORT]\n")
		b.WriteString(summaryText(*o.Summary))
		b.WriteString("\n")
	}
	return b.String()
}

// Markdown renders the keyword report.
func (k Keyword) Markdown() string {
	var b strings.Builder
	r := k.KeywordReport
	b.WriteString("[KEYWORD]\n")
	fmt.Fprintf(&b, "- Keyword: %s\n", r.Keyword)
	fmt.Fprintf(&b, "- Matching questions: %d\n", r.Matches)
	if r.Empty() {
		b.WriteString("\nNo questions or answers contain this keyword.\n")
		notes(&b, r.Notices)
		return b.String()
	}
	if len(r.TopOrgs) > 0 {
		b.WriteString("\n[TOP CENTERS]\n")
		rows := make([][]string, len(r.TopOrgs))
		for i, g := range r.TopOrgs {
			rows[i] = []string{strconv.Itoa(g.Rank), safeName(g.Label), strconv.Itoa(g.Questions), strconv.Itoa(g.Users)}
		}
		table(&b, []string{"#", "group_1", "Questions", "Users"}, rows)
	}
	b.WriteString("\n[EXAMPLES]\n")
	rows := make([][]string, len(r.Examples))
	for i, e := range r.Examples {
		rows[i] = []string{clip(e.Question, 80), clip(e.Answer, 80), e.Group1, e.Group2}
	}
	table(&b, []string{"Question", "Answer", "group_1", "group_2"}, rows)
	if r.Learning != nil {
		b.WriteString(learningMarkdown(r.Learning))
	}
	notes(&b, r.Notices)
	return b.String()
}

func learningMarkdown(l *analysis.LearningReport) string {
	var b strings.Builder
	b.WriteString("\n[RELATED LEARNING]\n")
	if l.Empty() {
		b.WriteString("No learning history for the matching users.\n")
		return b.String()
	}
	fmt.Fprintf(&b, "- Courses: %d\n", l.Summary.Courses)
	fmt.Fprintf(&b, "- Enrollments: %d\n", l.Summary.Enrollments)
	fmt.Fprintf(&b, "- Learners: %d\n\n", l.Summary.Users)
	header := []string{"#", "Course", "Enrollments"}
	if l.HasOrg {
		header = append(header, "Top center")
	}
	rows := make([][]string, len(l.Courses))
	for i, c := range l.Courses {
		row := []string{strconv.Itoa(c.Rank), clip(c.Title, 80), strconv.Itoa(c.Enrollments)}
		if l.HasOrg {
			row = append(row, c.TopOrgLabel())
		}
		rows[i] = row
	}
	table(&b, header, rows)
	return b.String()
}

// Markdown renders the user directory.
func (u *Users) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[USERS] (%d)\n", len(u.Users))
	for _, e := range u.Users {
		b.WriteString("- " + e.Display + "\n")
	}
	return b.String()
}

// Markdown renders the user profile.
func (u *User) Markdown() string {
	var b strings.Builder
	p := u.Profile
	b.WriteString("[USER]\n")
	name := p.UserID
	if p.UserName != "" {
		name += " / " + p.UserName
	}
	fmt.Fprintf(&b, "- User: %s\n", name)
	if p.Empty() {
		b.WriteString("\nNo question/answer rows for this user.\n")
	} else {
		fmt.Fprintf(&b, "- Questions: %d (answered %d, unanswered %d)\n", p.Total, p.Answered, p.Unanswered)
		if p.LastQuestion != nil {
			fmt.Fprintf(&b, "- Last question: %s\n", p.LastQuestion.Format(analysis.DateLayout))
		}
		if len(p.Questions) > 0 {
			b.WriteString("\n[RECENT QUESTIONS]\n")
			for _, q := range p.Questions {
				b.WriteString("- " + safeVal(clip(q, 120)) + "\n")
			}
		}
	}
	if p.HasLearning && len(p.Learning) > 0 {
		fmt.Fprintf(&b, "\n[LEARNING HISTORY] (%d rows)\n", len(p.Learning))
		rows := make([][]string, len(p.Learning))
		for i, r := range p.Learning {
			rows[i] = r.Values
		}
		header := make([]string, len(p.LearningHeader))
		for i, h := range p.LearningHeader {
			header[i] = safeName(h)
		}
		table(&b, header, rows)
	}
	if u.Summary != nil {
		b.WriteString("\n[LEARNING PROFILE]\n")
		if u.Summary.OK() && u.Summary.Basis != "" {
			b.WriteString(u.Summary.Basis + "\n\n")
		}
		b.WriteString(summaryText(*u.Summary))
		b.WriteString("\n")
	}
	notes(&b, p.Notices)
	return b.String()
}
