package insights

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/KaramelBytes/samreport-cli/internal/ai"
	"github.com/KaramelBytes/samreport-cli/internal/analysis"
	"github.com/KaramelBytes/samreport-cli/internal/dataset"
)

type fakeRuntime struct {
	mu    sync.Mutex
	reqs  []ai.GenerateRequest
	reply func(ai.GenerateRequest) (*ai.GenerateResponse, error)
}

func (f *fakeRuntime) Generate(_ context.Context, req ai.GenerateRequest) (*ai.GenerateResponse, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	if f.reply != nil {
		return f.reply(req)
	}
	return textResponse("ok"), nil
}

func textResponse(s string) *ai.GenerateResponse {
	return &ai.GenerateResponse{Choices: []ai.Choice{{Message: ai.Message{Role: "assistant", Content: s}}}, RequestID: "req-1"}
}

func qaDataset() *dataset.Dataset {
	cols := []string{dataset.ColUserID, dataset.ColQuestion, dataset.ColAnswerYN}
	return dataset.New("qa.csv", cols, []dataset.Record{
		{UserID: "1", Question: "how do I reset my password", AnswerYN: "Y"},
		{UserID: "2", Question: "where is the expense form", AnswerYN: "Y"},
		{UserID: "3", Question: "can I retake the exam", AnswerYN: "N"},
		{UserID: "3", Question: "", AnswerYN: "N"},
	})
}

func TestSampleDeterministic(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	a := Sample(items, 3, 42)
	b := Sample(items, 3, 42)
	if !reflect.DeepEqual(a, b) || len(a) != 3 {
		t.Fatalf("not deterministic: %v vs %v", a, b)
	}
	all := Sample(items, 100, 42)
	if len(all) != len(items) {
		t.Fatalf("len=%d", len(all))
	}
	seen := map[string]bool{}
	for _, s := range all {
		if seen[s] {
			t.Fatalf("duplicate %q", s)
		}
		seen[s] = true
	}
	if got := Sample(nil, 5, 42); got == nil || len(got) != 0 {
		t.Fatalf("empty sample=%v", got)
	}
}

func TestClassifyAnswersRunsBothCalls(t *testing.T) {
	rt := &fakeRuntime{reply: func(req ai.GenerateRequest) (*ai.GenerateResponse, error) {
		if strings.Contains(req.Messages[0].Content, "unanswered") {
			return textResponse("unanswered summary"), nil
		}
		return textResponse("answered summary"), nil
	}}
	s := &Summarizer{Runtime: rt, Model: "gpt-3.5-turbo", MaxTokens: 500}
	c, err := s.ClassifyAnswers(context.Background(), qaDataset())
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if c.AnsweredTotal != 2 || c.UnansweredTotal != 1 {
		t.Fatalf("totals=%d/%d", c.AnsweredTotal, c.UnansweredTotal)
	}
	if c.Answered.Text != "answered summary" || c.Unanswered.Text != "unanswered summary" {
		t.Fatalf("results=%+v / %+v", c.Answered, c.Unanswered)
	}
	if c.Answered.Samples != 2 || c.Unanswered.Samples != 1 {
		t.Fatalf("samples=%d/%d", c.Answered.Samples, c.Unanswered.Samples)
	}
	if len(rt.reqs) != 2 {
		t.Fatalf("calls=%d", len(rt.reqs))
	}
	for _, r := range rt.reqs {
		if r.Temperature != classifyTemperature || r.Model != "gpt-3.5-turbo" {
			t.Fatalf("request=%+v", r)
		}
	}
}

func TestClassifyCapturesFailures(t *testing.T) {
	rt := &fakeRuntime{reply: func(req ai.GenerateRequest) (*ai.GenerateResponse, error) {
		if strings.Contains(req.Messages[0].Content, "unanswered") {
			return nil, &ai.AuthError{APIError: &ai.APIError{StatusCode: 401, Message: "bad key"}}
		}
		return textResponse("fine"), nil
	}}
	s := &Summarizer{Runtime: rt, Model: "m"}
	c, err := s.ClassifyAnswers(context.Background(), qaDataset())
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if !c.Answered.OK() || c.Answered.Display() != "fine" {
		t.Fatalf("answered=%+v", c.Answered)
	}
	var auth *ai.AuthError
	if c.Unanswered.OK() || !errors.As(c.Unanswered.Err, &auth) {
		t.Fatalf("unanswered=%+v", c.Unanswered)
	}
	if !strings.Contains(c.Unanswered.Display(), "api_key") {
		t.Fatalf("missing hint: %q", c.Unanswered.Display())
	}
}

func TestClassifyMissingColumns(t *testing.T) {
	ds := dataset.New("x.csv", []string{dataset.ColQuestion}, nil)
	s := &Summarizer{Runtime: &fakeRuntime{}}
	_, err := s.ClassifyAnswers(context.Background(), ds)
	var mc *dataset.MissingColumnError
	if !errors.As(err, &mc) {
		t.Fatalf("want MissingColumnError, got %v", err)
	}
}

func TestClassifyNothingToSummarize(t *testing.T) {
	cols := []string{dataset.ColQuestion, dataset.ColAnswerYN}
	ds := dataset.New("x.csv", cols, []dataset.Record{{Question: "q", AnswerYN: "Y"}})
	rt := &fakeRuntime{}
	s := &Summarizer{Runtime: rt, Model: "m"}
	c, err := s.ClassifyAnswers(context.Background(), ds)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if !errors.Is(c.Unanswered.Err, ErrNothingToSummarize) {
		t.Fatalf("unanswered=%+v", c.Unanswered)
	}
	if len(rt.reqs) != 1 {
		t.Fatalf("calls=%d", len(rt.reqs))
	}
}

func TestNoRuntime(t *testing.T) {
	s := &Summarizer{Model: "m"}
	up := &analysis.UserProfile{UserID: "1", Total: 1, Questions: []string{"q"}}
	res := s.UserProfile(context.Background(), up)
	if !errors.Is(res.Err, ErrNoRuntime) || res.Text != "" {
		t.Fatalf("res=%+v", res)
	}
}

func TestUserProfilePromptBasis(t *testing.T) {
	up := &analysis.UserProfile{UserID: "1", Total: 2, Questions: []string{"q1", "q2"}}
	msgs, basis := UserProfilePrompt(up)
	if basis != BasisQuestions || len(msgs) != 2 || msgs[0].Role != "system" {
		t.Fatalf("basis=%q msgs=%d", basis, len(msgs))
	}
	if strings.Contains(msgs[1].Content, "learning history (up to 15)") {
		t.Fatalf("unexpected learning section")
	}
	up.Titles = []string{"Excel Basics"}
	msgs, basis = UserProfilePrompt(up)
	if basis != BasisQuestionsLearning || !strings.Contains(msgs[1].Content, "- Excel Basics") {
		t.Fatalf("basis=%q content=%q", basis, msgs[1].Content)
	}

	rt := &fakeRuntime{}
	s := &Summarizer{Runtime: rt, Model: "m"}
	res := s.UserProfile(context.Background(), up)
	if !res.OK() || res.Basis != BasisQuestionsLearning || rt.reqs[0].Temperature != profileTemperature {
		t.Fatalf("res=%+v req=%+v", res, rt.reqs[0])
	}
}

func TestOrgReportPrompt(t *testing.T) {
	op := &analysis.OrgProfile{
		Path:       "C1/D1/T1",
		Rows:       3,
		Keywords:   []analysis.ValueCount{{Rank: 1, Value: "vpn", Count: 2}, {Rank: 2, Value: "budget", Count: 1}},
		TopTopics:  []analysis.ValueCount{{Rank: 1, Value: "IT", Count: 2}},
		TopCourses: []analysis.ValueCount{},
		HasTopics:  true,
	}
	msgs := OrgReportPrompt(op)
	body := msgs[0].Content
	for _, want := range []string{"C1/D1/T1", "vpn, budget", "topics: IT", "(no learning history)"} {
		if !strings.Contains(body, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	op.HasLearning = true
	op.TopCourses = []analysis.ValueCount{{Rank: 1, Value: "Go 101", Count: 3}}
	if body := OrgReportPrompt(op)[0].Content; !strings.Contains(body, "Top 5 courses taken:\n- Go 101") {
		t.Fatalf("prompt=%q", body)
	}

	s := &Summarizer{Runtime: &fakeRuntime{}, Model: "m"}
	if res := s.OrgReport(context.Background(), &analysis.OrgProfile{Path: "all"}); !errors.Is(res.Err, ErrNothingToSummarize) {
		t.Fatalf("empty org res=%+v", res)
	}
}

func TestEmptyResponseIsFailure(t *testing.T) {
	rt := &fakeRuntime{reply: func(ai.GenerateRequest) (*ai.GenerateResponse, error) {
		return &ai.GenerateResponse{}, nil
	}}
	s := &Summarizer{Runtime: rt, Model: "m"}
	op := &analysis.OrgProfile{Path: "all", Rows: 1}
	if res := s.OrgReport(context.Background(), op); res.OK() {
		t.Fatalf("expected failure, got %+v", res)
	}
}

type streamRuntime struct{ fakeRuntime }

func (s *streamRuntime) GenerateStream(_ context.Context, _ ai.GenerateRequest, onDelta func(string)) error {
	for _, d := range []string{"Strong ", "interest ", "in finance."} {
		onDelta(d)
	}
	return nil
}

func TestStreamingDeliversDeltas(t *testing.T) {
	var got []string
	s := &Summarizer{
		Runtime: &streamRuntime{},
		Model:   "m",
		OnDelta: func(kind, d string) {
			if kind != KindOrg {
				t.Errorf("kind=%s", kind)
			}
			got = append(got, d)
		},
	}
	res := s.OrgReport(context.Background(), &analysis.OrgProfile{Path: "all", Rows: 1})
	if !res.OK() || res.Text != "Strong interest in finance." {
		t.Fatalf("res=%+v", res)
	}
	if len(got) != 3 {
		t.Fatalf("deltas=%v", got)
	}

	// Without OnDelta the plain request path is used.
	rt := &streamRuntime{}
	s = &Summarizer{Runtime: rt, Model: "m"}
	if res := s.OrgReport(context.Background(), &analysis.OrgProfile{Path: "all", Rows: 1}); res.Text != "ok" || len(rt.reqs) != 1 {
		t.Fatalf("res=%+v reqs=%d", res, len(rt.reqs))
	}
}
