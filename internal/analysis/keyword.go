package analysis

import (
	"errors"
	"strings"

	"github.com/KaramelBytes/samreport-cli/internal/dataset"
)

// ErrEmptyKeyword is returned when a keyword search is requested with no keyword.
var ErrEmptyKeyword = errors.New("keyword must not be empty")

// FilterByKeyword narrows the dataset to rows whose question or answer
// contains kw (case-sensitive). If only one of the two columns exists the
// match uses that column alone.
func FilterByKeyword(ds *dataset.Dataset, kw string) (*View, error) {
	if kw == "" {
		return nil, ErrEmptyKeyword
	}
	inQ := ds.Has(dataset.ColQuestion)
	inA := ds.Has(dataset.ColAnswer)
	if !inQ && !inA {
		return nil, &dataset.MissingColumnError{Feature: "keyword search", Columns: []string{dataset.ColQuestion, dataset.ColAnswer}}
	}
	return NewView(ds).Where(func(r *dataset.Record) bool {
		return (inQ && strings.Contains(r.Question, kw)) || (inA && strings.Contains(r.Answer, kw))
	}), nil
}

// KeywordExample is one matching row shown as an example.
type KeywordExample struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Group1   string `json:"group_1"`
	Group2   string `json:"group_2"`
}

// KeywordReport gathers everything shown for a keyword search.
type KeywordReport struct {
	Keyword  string           `json:"keyword"`
	Matches  int              `json:"matches"`
	TopOrgs  []GroupCount     `json:"top_orgs,omitempty"`
	Examples []KeywordExample `json:"examples"`
	Learning *LearningReport  `json:"learning,omitempty"`
	Notices  []string         `json:"notices,omitempty"`
}

// Empty reports whether nothing matched.
func (k *KeywordReport) Empty() bool { return k.Matches == 0 }

const (
	keywordTopOrgs  = 10
	keywordExamples = 10
)

// BuildKeywordReport runs the keyword filter and feeds the matches into the
// aggregation (top centers) and, if a companion is loaded, the learning join.
func BuildKeywordReport(ds *dataset.Dataset, comp *dataset.Companion, kw string) (*KeywordReport, error) {
	v, err := FilterByKeyword(ds, kw)
	if err != nil {
		return nil, err
	}
	rep := &KeywordReport{Keyword: kw, Matches: v.Len(), Examples: []KeywordExample{}}
	if rep.Empty() {
		return rep, nil
	}
	if ds.Has(dataset.ColGroup1) {
		rep.TopOrgs = Aggregate(v, dataset.Group1).Top(keywordTopOrgs)
	}
	for _, r := range v.Head(keywordExamples) {
		rep.Examples = append(rep.Examples, KeywordExample{Question: r.Question, Answer: r.Answer, Group1: r.Group1, Group2: r.Group2})
	}
	if comp == nil {
		rep.Notices = append(rep.Notices, "no learning history loaded")
		return rep, nil
	}
	lr, err := BuildLearningReport(ds, v.UserSet(), comp)
	if err != nil {
		var mc *dataset.MissingColumnError
		if errors.As(err, &mc) {
			rep.Notices = append(rep.Notices, mc.Error())
			return rep, nil
		}
		return nil, err
	}
	rep.Learning = lr
	rep.Notices = append(rep.Notices, lr.Notices...)
	return rep, nil
}
