package interview

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/clearscope-ai/clearscope/internal/session"
)

// DefaultCategories is the built-in category catalog. Priorities drive gap
// ordering; thresholds and allotments drive the stopping rule.
func DefaultCategories() []session.Category {
	return []session.Category{
		{ID: "ops", Name: "Operations", Priority: 90, Threshold: 70, Allotment: 5},
		{ID: "team", Name: "Team", Priority: 80, Threshold: 60, Allotment: 4},
		{ID: "budget", Name: "Budget", Priority: 70, Threshold: 50, Allotment: 3},
		{ID: "tech", Name: "Technology", Priority: 60, Threshold: 50, Allotment: 4},
		{ID: "goals", Name: "Goals", Priority: 50, Threshold: 40, Allotment: 3},
	}
}

// DefaultQuestions is the built-in static question catalog.
func DefaultQuestions() []Question {
	return []Question{
		{
			ID: "q-ops-workflow", Category: "ops", Priority: 90,
			Text:   "Walk me through a typical day: what takes up the most time for you and your staff?",
			Render: RenderSpec{Input: "text", Placeholder: "e.g. scheduling, invoicing, chasing suppliers"},
		},
		{
			ID: "q-ops-bottleneck", Category: "ops", Priority: 80,
			Text:          "Which single task, if it disappeared tomorrow, would save your team the most hours per week?",
			Render:        RenderSpec{Input: "text"},
			Prerequisites: []string{"biggest_time_sink"},
		},
		{
			ID: "q-team-size", Category: "team", Priority: 90,
			Text:          "How many people work in the business, including yourself?",
			Render:        RenderSpec{Input: "number"},
			Prerequisites: []string{"employee_count"},
		},
		{
			ID: "q-team-roles", Category: "team", Priority: 70,
			Text:   "How is the work split: who handles admin, who handles customers?",
			Render: RenderSpec{Input: "text"},
		},
		{
			ID: "q-budget-tools", Category: "budget", Priority: 80,
			Text:          "Roughly how much do you spend per month on software and outside services?",
			Render:        RenderSpec{Input: "number", Placeholder: "monthly spend in dollars"},
			Prerequisites: []string{"monthly_software_spend"},
		},
		{
			ID: "q-budget-appetite", Category: "budget", Priority: 60,
			Text:   "If a change clearly paid for itself within a year, what monthly budget would feel comfortable?",
			Render: RenderSpec{Input: "text"},
		},
		{
			ID: "q-tech-stack", Category: "tech", Priority: 80,
			Text:   "What software or systems do you rely on today, and which ones frustrate you?",
			Render: RenderSpec{Input: "text"},
		},
		{
			ID: "q-tech-comfort", Category: "tech", Priority: 50,
			Text:   "How comfortable is your team adopting new tools?",
			Render: RenderSpec{Input: "choice", Choices: []string{"very comfortable", "somewhat", "reluctant"}},
		},
		{
			ID: "q-goals-horizon", Category: "goals", Priority: 80,
			Text:   "Where do you want the business to be in twelve months?",
			Render: RenderSpec{Input: "text"},
		},
	}
}

// LoadCategories reads a category catalog from a YAML file.
func LoadCategories(path string) ([]session.Category, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading categories %s: %w", path, err)
	}
	var catalog []session.Category
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("parsing categories %s: %w", path, err)
	}
	if len(catalog) == 0 {
		return nil, fmt.Errorf("categories file %s is empty", path)
	}
	return catalog, nil
}

// LoadQuestions reads a question catalog from a YAML file.
func LoadQuestions(path string) ([]Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading questions %s: %w", path, err)
	}
	var questions []Question
	if err := yaml.Unmarshal(data, &questions); err != nil {
		return nil, fmt.Errorf("parsing questions %s: %w", path, err)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("questions file %s is empty", path)
	}
	return questions, nil
}
