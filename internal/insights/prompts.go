package insights

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/samreport-cli/internal/ai"
	"github.com/KaramelBytes/samreport-cli/internal/analysis"
	"github.com/KaramelBytes/samreport-cli/internal/utils"
)

// Sampling temperatures per report kind.
const (
	classifyTemperature = 0.3
	profileTemperature  = 0.5
	orgTemperature      = 0.4
)

// ClassificationPrompt asks the model to group sampled questions by type and
// summarize what the answered ones have in common, or why the unanswered ones
// went unanswered.
func ClassificationPrompt(questions []string, answered bool) []ai.Message {
	list, focus := "unanswered", "the main reasons these questions went unanswered"
	if answered {
		list, focus = "answered", "the key characteristics of the answered questions"
	}
	sys := fmt.Sprintf("Below is a list of %s questions from a training support system. "+
		"Classify the questions by type and summarize %s. "+
		"You must organize the answer into clearly named categories.", list, focus)
	return []ai.Message{
		{Role: "system", Content: sys},
		{Role: "user", Content: strings.Join(questions, "\n")},
	}
}

const profileSystem = "You are an HRD consultant who analyzes employees' activity data to assess " +
	"their learning tendencies and competency level. Always answer in the requested format, " +
	"with each section clearly separated."

// Basis lines tell the reader which data a user profile was built from.
const (
	BasisQuestions         = "This analysis is based on the user's question/answer history."
	BasisQuestionsLearning = "This analysis combines the user's question/answer history with their learning history."
)

// UserProfilePrompt builds the learning-profile request for up and returns
// the basis line describing which data it used.
func UserProfilePrompt(up *analysis.UserProfile) ([]ai.Message, string) {
	var b strings.Builder
	b.WriteString("Below is the activity record of one employee in the system.\n\n")
	b.WriteString("### 1. Main questions (up to 10):\n")
	if len(up.Questions) == 0 {
		b.WriteString("- no questions recorded\n")
	} else {
		b.WriteString(utils.JoinBullets(up.Questions))
		b.WriteString("\n")
	}
	basis := BasisQuestions
	if len(up.Titles) > 0 {
		basis = BasisQuestionsLearning
		b.WriteString("\n### 2. Main learning history (up to 15):\n")
		b.WriteString(utils.JoinBullets(up.Titles))
		b.WriteString("\n")
	}
	b.WriteString(`
### [Request]
Based on the records above, analyze this employee's **learning tendencies and main interests**.
Split the result into exactly the four sections below and give every section its title.

1. **Main interests**: which topics does the employee ask about and study? Name concrete keywords or areas.
2. **Learning attitude**: judging by questions and learning records, does the employee solve problems on their own initiative or absorb knowledge passively? Assess engagement and curiosity.
3. **Knowledge gap estimate**: if learning history is present, compare questions with courses taken and estimate what still needs study. Otherwise describe the areas of inquiry or weaknesses visible from the questions alone.
4. **Summary and recommendation**: summarize the learning tendency in one or two sentences and recommend learning activities or courses that would help their career development.`)
	return []ai.Message{
		{Role: "system", Content: profileSystem},
		{Role: "user", Content: b.String()},
	}, basis
}

// OrgReportPrompt builds the organization report request for op.
func OrgReportPrompt(op *analysis.OrgProfile) []ai.Message {
	words := make([]string, len(op.Keywords))
	for i, k := range op.Keywords {
		words[i] = k.Value
	}
	topics := "no question topic data"
	if op.HasTopics && len(op.TopTopics) > 0 {
		t := make([]string, len(op.TopTopics))
		for i, v := range op.TopTopics {
			t[i] = v.Value
		}
		topics = strings.Join(t, "\n- ")
	}
	learning := " (no learning history)"
	if op.HasLearning && len(op.TopCourses) > 0 {
		c := make([]string, len(op.TopCourses))
		for i, v := range op.TopCourses {
			c[i] = v.Value
		}
		learning = "### 3. Top 5 courses taken:\n" + utils.JoinBullets(c)
	}

	var b strings.Builder
	b.WriteString("You are a data-driven HRD strategy consultant. Analyze the characteristics of the organization below in depth and write a report.\n\n")
	fmt.Fprintf(&b, "### Organization: %s\n\n", op.Path)
	fmt.Fprintf(&b, "### 1. Main question/learning keywords: %s\n", strings.Join(words, ", "))
	fmt.Fprintf(&b, "### 2. Main question topics: %s\n", topics)
	b.WriteString(learning)
	b.WriteString(`
---
### [Request]
Analyze the data above from an HRD perspective and write a report that includes the titles of these four sections.

1. **Key interests and current state**: which work areas or topics are members most interested in right now?
2. **Work and competency issues**: what pain points or competency gaps do the frequent questions reveal?
3. **Knowledge gap and needed competencies**: what separates what members have learned from what they ask about, and which competencies should be developed?
4. **HRD recommendations**: propose one or two concrete action items, such as training program design or learning culture initiatives, to improve performance and competency.`)
	return []ai.Message{{Role: "user", Content: b.String()}}
}
