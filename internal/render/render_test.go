package render

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/KaramelBytes/samreport-cli/internal/analysis"
	"github.com/KaramelBytes/samreport-cli/internal/dataset"
	"github.com/KaramelBytes/samreport-cli/internal/insights"
)

func sampleDataset() *dataset.Dataset {
	cols := []string{
		dataset.ColUserID, dataset.ColUserName, dataset.ColQuestion, dataset.ColAnswer,
		dataset.ColAnswerYN, dataset.ColGroup1, dataset.ColGroup2, dataset.ColGroup3, dataset.ColRegDate,
	}
	d := func(s string) time.Time { t, _ := time.Parse("2006-01-02", s); return t }
	return dataset.New("qa.csv", cols, []dataset.Record{
		{UserID: "1", UserName: "Kim", Question: "budget | plan", AnswerYN: "Y", Group1: "C1", Group2: "D1", Group3: "T1", RegisteredAt: d("2024-01-10"), HasDate: true},
		{UserID: "2", UserName: "Lee", Question: "vpn", AnswerYN: "N", Group1: "C1", Group2: "D2", Group3: "T2", RegisteredAt: d("2024-03-02"), HasDate: true},
		{UserID: "3", UserName: "Park", Question: "budget", AnswerYN: "Y", Group1: "C2", Group2: "D3", Group3: "T3"},
	})
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatMarkdown, "MD": FormatMarkdown, "json": FormatJSON} {
		if got, err := ParseFormat(in); err != nil || got != want {
			t.Errorf("ParseFormat(%q)=%v,%v", in, got, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Fatal("expected error")
	}
}

func TestOverviewMarkdownAndNotices(t *testing.T) {
	o := BuildOverview(sampleDataset())
	if len(o.Trend) != 3 || o.Trend[1].Count != 0 {
		t.Fatalf("trend=%+v", o.Trend)
	}
	// chat_title is absent
	if len(o.Notices) != 1 || !strings.Contains(o.Notices[0], dataset.ColChatTitle) {
		t.Fatalf("notices=%v", o.Notices)
	}
	md := o.Markdown()
	for _, want := range []string{"[OVERVIEW]", "Period: 2024-01-10 ~ 2024-03-02", "| 2024-02 | 0 |", "Answered: 2 (66.7%)", "[NOTES]"} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q\n%s", want, md)
		}
	}
}

func TestOverviewClassificationFailureShown(t *testing.T) {
	o := BuildOverview(sampleDataset())
	o.Classification = &insights.Classification{
		Answered:   insights.Result{Kind: insights.KindAnswered, Text: "Category A"},
		Unanswered: insights.Result{Kind: insights.KindUnanswered, Error: "unanswered analysis failed: boom", Err: errors.New("boom")},
	}
	md := o.Markdown()
	if !strings.Contains(md, "Category A") || !strings.Contains(md, "⚠ unanswered analysis failed: boom") {
		t.Fatalf("markdown=%s", md)
	}
}

func TestOrgReport(t *testing.T) {
	o, err := BuildOrg(sampleDataset(), nil, analysis.Selection{G1: "C1"}, 0)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if o.Level != "group_1" || o.Rows != 2 || o.TotalQuestions != 2 || len(o.Groups) != 1 {
		t.Fatalf("org=%+v", o)
	}
	if got := o.Options["group_2"]; len(got) != 2 || got[0] != "D1" {
		t.Fatalf("options=%v", got)
	}
	md := o.Markdown()
	if !strings.Contains(md, "group_2 (division) options: all, D1, D2") || !strings.Contains(md, "| 1 | C1 | 2 | 2 |") {
		t.Fatalf("markdown=%s", md)
	}

	if _, err := BuildOrg(sampleDataset(), nil, analysis.Selection{G1: "C1", G3: "T1"}, dataset.Group1); !errors.Is(err, analysis.ErrLevelNotAllowed) {
		t.Fatalf("want ErrLevelNotAllowed, got %v", err)
	}
	var se *analysis.SelectionError
	if _, err := BuildOrg(sampleDataset(), nil, analysis.Selection{G1: "C9"}, 0); !errors.As(err, &se) {
		t.Fatalf("want SelectionError, got %v", err)
	}
}

func TestKeywordMarkdownEscapesPipes(t *testing.T) {
	rep, err := analysis.BuildKeywordReport(sampleDataset(), nil, "budget")
	if err != nil {
		t.Fatalf("keyword: %v", err)
	}
	md := Keyword{rep}.Markdown()
	if !strings.Contains(md, "budget / plan") || strings.Contains(md, "budget | plan") {
		t.Fatalf("markdown=%s", md)
	}
	if !strings.Contains(md, "no learning history loaded") {
		t.Fatalf("missing notice: %s", md)
	}

	empty, _ := analysis.BuildKeywordReport(sampleDataset(), nil, "zzz")
	if !strings.Contains(Keyword{empty}.Markdown(), "No questions or answers contain this keyword") {
		t.Fatal("empty message missing")
	}
}

func TestJSONShapes(t *testing.T) {
	var buf bytes.Buffer
	u := NewUsers(dataset.New("x.csv", nil, nil))
	if err := Write(&buf, FormatJSON, u); err != nil {
		t.Fatalf("write: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if users, ok := got["users"].([]any); !ok || len(users) != 0 {
		t.Fatalf("users should be an empty array: %s", buf.String())
	}

	rep, _ := analysis.BuildKeywordReport(sampleDataset(), nil, "vpn")
	b, err := Bytes(FormatJSON, Keyword{rep})
	if err != nil {
		t.Fatalf("bytes: %v", err)
	}
	if !strings.Contains(string(b), `"matches": 1`) {
		t.Fatalf("json=%s", b)
	}
}

func TestUserMarkdown(t *testing.T) {
	comp := dataset.NewCompanion("l.csv", []dataset.CompanionRecord{{UserID: "1", Title: "Excel Basics"}})
	p, err := analysis.BuildUserProfile(sampleDataset(), comp, "1")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	u := &User{Profile: p, Summary: &insights.Result{Text: "Interested in budgeting.", Basis: insights.BasisQuestionsLearning}}
	md := u.Markdown()
	for _, want := range []string{"User: 1 / Kim", "Last question: 2024-01-10", "| 1 | Excel Basics |", "Interested in budgeting.", insights.BasisQuestionsLearning} {
		if !strings.Contains(md, want) {
			t.Errorf("missing %q\n%s", want, md)
		}
	}
}
