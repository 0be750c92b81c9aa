package aiclient

import "context"

type DailyTasks struct {
	Day   string   `json:"day"`
	Tasks []string `json:"tasks"`
}

type LearningPlan struct {
	Subject              string       `json:"subject"`
	WeeklyGoals          []string     `json:"weeklyGoals"`
	DailyTasks           []DailyTasks `json:"dailyTasks"`
	WeakPointExplanation string       `json:"weakPointExplanation"`
	Tips                 []string     `json:"tips"`
}

type KeyTerm struct {
	Term       string `json:"term"`
	Definition string `json:"definition"`
}

type SummaryResult struct {
	MainPoints        []string  `json:"mainPoints"`
	SimpleExplanation string    `json:"simpleExplanation"`
	MindMap           string    `json:"mindMap"`
	KeyTerms          []KeyTerm `json:"keyTerms"`
}

type WellnessCheckIn struct {
	SleepHours  float64 `json:"sleepHours"`
	StressLevel float64 `json:"stressLevel"`
	Mood        string  `json:"mood"`
}

type WellnessAdvice struct {
	Summary         string   `json:"summary"`
	Recommendations []string `json:"recommendations"`
	Warnings        []string `json:"warnings"`
	Activities      []string `json:"activities"`
}

type CareerSuggestion struct {
	Career      string   `json:"career"`
	MatchScore  float64  `json:"matchScore"`
	Description string   `json:"description"`
	Skills      []string `json:"skills"`
	Path        []string `json:"path"`
}

type CVInfo struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Education  string `json:"education"`
	Skills     string `json:"skills"`
	Experience string `json:"experience"`
}

func (c *Client) GenerateLearningPlan(ctx context.Context, subject string, score float64, weakPoints string) (LearningPlan, error) {
	return call[LearningPlan](ctx, c, request{
		Type: "learning-plan",
		Data: map[string]any{"subject": subject, "score": score, "weakPoints": weakPoints},
	})
}

func (c *Client) Summarize(ctx context.Context, content string) (SummaryResult, error) {
	return call[SummaryResult](ctx, c, request{Type: "summary", Data: map[string]any{"content": content}})
}

// SummarizeURL asks the server to fetch and summarize a page or feed.
func (c *Client) SummarizeURL(ctx context.Context, url string) (SummaryResult, error) {
	return call[SummaryResult](ctx, c, request{Type: "summary", Data: map[string]any{"url": url}})
}

func (c *Client) AnalyzeWellness(ctx context.Context, in WellnessCheckIn) (WellnessAdvice, error) {
	return call[WellnessAdvice](ctx, c, request{Type: "wellness", Data: in})
}

func (c *Client) SuggestCareers(ctx context.Context, interests, skills []string) ([]CareerSuggestion, error) {
	return call[[]CareerSuggestion](ctx, c, request{
		Type: "career",
		Data: map[string]any{"interests": interests, "skills": skills},
	})
}

func (c *Client) GenerateCV(ctx context.Context, info CVInfo) (string, error) {
	return call[string](ctx, c, request{Type: "cv", Data: info})
}
