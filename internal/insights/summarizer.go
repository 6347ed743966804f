// Package insights turns analysis results into LLM prompts and collects the
// generated summaries. A failed call never aborts the caller: it is recorded
// on the Result and shown in place of the summary.
package insights

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/samreport-cli/internal/ai"
	"github.com/KaramelBytes/samreport-cli/internal/analysis"
	"github.com/KaramelBytes/samreport-cli/internal/dataset"
	"github.com/KaramelBytes/samreport-cli/internal/logging"
	"github.com/KaramelBytes/samreport-cli/internal/utils"
)

// Report kinds.
const (
	KindAnswered   = "answered"
	KindUnanswered = "unanswered"
	KindProfile    = "user_profile"
	KindOrg        = "org_report"
)

var (
	// ErrNoRuntime is recorded when no LLM backend was configured.
	ErrNoRuntime = errors.New("no LLM runtime configured")
	// ErrNothingToSummarize is recorded when the input had no rows.
	ErrNothingToSummarize = errors.New("no data to analyze")
)

// Result is the outcome of one summary request. Exactly one of Text and Err
// is set.
type Result struct {
	Kind      string `json:"kind"`
	ID        string `json:"id"`
	Model     string `json:"model,omitempty"`
	Text      string `json:"text,omitempty"`
	Error     string `json:"error,omitempty"`
	Basis     string `json:"basis,omitempty"`
	Samples   int    `json:"samples,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	Err       error  `json:"-"`
}

// OK reports whether the summary was generated.
func (r Result) OK() bool { return r.Err == nil }

// Display returns the summary text or the failure message.
func (r Result) Display() string {
	if r.Err != nil {
		return r.Error
	}
	return r.Text
}

// Classification holds the answered and unanswered classification results.
type Classification struct {
	AnsweredTotal   int    `json:"answered_total"`
	UnansweredTotal int    `json:"unanswered_total"`
	Answered        Result `json:"answered"`
	Unanswered      Result `json:"unanswered"`
}

// Summarizer sends prompts to a Runtime.
type Summarizer struct {
	Runtime    ai.Runtime
	Model      string
	MaxTokens  int
	SampleSize int
	Seed       int64
	Logger     *zap.Logger
	// OnDelta, when set and the runtime can stream, receives partial output
	// as it arrives. Classification runs two requests at once, so it may be
	// called concurrently.
	OnDelta func(kind, delta string)
}

func (s *Summarizer) sampleSize() int {
	if s.SampleSize > 0 {
		return s.SampleSize
	}
	return DefaultSampleSize
}

// promptBudget is the token room left for prompt content on the configured model.
func (s *Summarizer) promptBudget() int {
	mi, ok := ai.LookupModel(s.Model)
	if !ok || mi.ContextTokens <= 0 {
		return 0
	}
	budget := mi.ContextTokens - s.MaxTokens - 512
	if budget < 256 {
		budget = 256
	}
	return budget
}

// ClassifyAnswers samples answered and unanswered questions and classifies
// both sets concurrently. It returns an error only when the dataset lacks the
// columns the feature needs.
func (s *Summarizer) ClassifyAnswers(ctx context.Context, ds *dataset.Dataset) (*Classification, error) {
	answered, err := analysis.QuestionsByAnswer(ds, true)
	if err != nil {
		return nil, err
	}
	unanswered, err := analysis.QuestionsByAnswer(ds, false)
	if err != nil {
		return nil, err
	}
	out := &Classification{AnsweredTotal: len(answered), UnansweredTotal: len(unanswered)}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out.Answered = s.classify(gctx, KindAnswered, answered, true)
		return nil
	})
	g.Go(func() error {
		out.Unanswered = s.classify(gctx, KindUnanswered, unanswered, false)
		return nil
	})
	_ = g.Wait()
	return out, nil
}

func (s *Summarizer) classify(ctx context.Context, kind string, questions []string, answered bool) Result {
	if len(questions) == 0 {
		return failed(kind, uuid.NewString(), s.Model, ErrNothingToSummarize)
	}
	sample := Sample(questions, s.sampleSize(), s.seed())
	sample = utils.FitLines(sample, s.promptBudget())
	res := s.run(ctx, kind, ClassificationPrompt(sample, answered), classifyTemperature)
	res.Samples = len(sample)
	return res
}

func (s *Summarizer) seed() int64 {
	if s.Seed != 0 {
		return s.Seed
	}
	return DefaultSeed
}

// UserProfile requests the learning-profile analysis for up.
func (s *Summarizer) UserProfile(ctx context.Context, up *analysis.UserProfile) Result {
	if up == nil || up.Empty() {
		return failed(KindProfile, uuid.NewString(), s.Model, ErrNothingToSummarize)
	}
	msgs, basis := UserProfilePrompt(up)
	res := s.run(ctx, KindProfile, msgs, profileTemperature)
	res.Basis = basis
	return res
}

// OrgReport requests the organization report for op.
func (s *Summarizer) OrgReport(ctx context.Context, op *analysis.OrgProfile) Result {
	if op == nil || op.Empty() {
		return failed(KindOrg, uuid.NewString(), s.Model, ErrNothingToSummarize)
	}
	return s.run(ctx, KindOrg, OrgReportPrompt(op), orgTemperature)
}

func (s *Summarizer) run(ctx context.Context, kind string, msgs []ai.Message, temperature float64) Result {
	id := uuid.NewString()
	log := logging.OrNop(s.Logger).With(zap.String("summary", id), zap.String("kind", kind), zap.String("model", s.Model))
	if s.Runtime == nil {
		log.Warn("summary skipped", zap.Error(ErrNoRuntime))
		return failed(kind, id, s.Model, ErrNoRuntime)
	}

	start := time.Now()
	log.Debug("summary request", zap.Int("prompt_tokens", promptTokens(msgs)))
	resp, err := s.generate(ctx, kind, ai.GenerateRequest{
		Model:       s.Model,
		Messages:    msgs,
		MaxTokens:   s.MaxTokens,
		Temperature: temperature,
	})
	if err == nil && resp.Text() == "" {
		err = errors.New("model returned an empty response")
	}
	if err != nil {
		log.Warn("summary failed", zap.Error(err), zap.Duration("latency", time.Since(start)))
		return failed(kind, id, s.Model, err)
	}
	fields := []zap.Field{
		zap.Duration("latency", time.Since(start)),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.String("request_id", resp.RequestID),
	}
	if resp.Usage.TotalTokens > 0 {
		if cost, ok := ai.EstimateCostUSD(s.Model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens); ok {
			fields = append(fields, zap.Float64("cost_usd", cost))
		}
	}
	log.Info("summary done", fields...)
	return Result{Kind: kind, ID: id, Model: s.Model, Text: resp.Text(), RequestID: resp.RequestID}
}

func (s *Summarizer) generate(ctx context.Context, kind string, req ai.GenerateRequest) (*ai.GenerateResponse, error) {
	st, ok := s.Runtime.(ai.StreamRuntime)
	if !ok || s.OnDelta == nil {
		return s.Runtime.Generate(ctx, req)
	}
	var b strings.Builder
	err := st.GenerateStream(ctx, req, func(d string) {
		b.WriteString(d)
		s.OnDelta(kind, d)
	})
	if err != nil {
		return nil, err
	}
	return &ai.GenerateResponse{Choices: []ai.Choice{{Message: ai.Message{Role: "assistant", Content: b.String()}}}}, nil
}

func failed(kind, id, model string, err error) Result {
	msg := fmt.Sprintf("%s analysis failed: %v", kind, err)
	if h := ai.Hint(err); h != "" {
		msg += " (" + h + ")"
	}
	return Result{Kind: kind, ID: id, Model: model, Error: msg, Err: err}
}

func promptTokens(msgs []ai.Message) int {
	n := 0
	for _, m := range msgs {
		n += utils.CountTokens(m.Content)
	}
	return n
}
