package model

// Preset is a named, ready-made bundle of question specs that clients can
// use instead of assembling their own.
type Preset struct {
	Key   string         `json:"key"`
	Name  string         `json:"name"`
	Specs []QuestionSpec `json:"specs"`
}

// Presets lists the built-in exam presets, in display order.
var Presets = []Preset{
	{
		Key:  "primary_math_quiz",
		Name: "Primary Math Quiz",
		Specs: []QuestionSpec{
			{QuestionType: QuestionTypeMCQ, Count: 5, Prompt: "Focus on basic arithmetic and geometry definitions."},
			{QuestionType: QuestionTypeMathProblem, Count: 3, Prompt: "Create simple word problems involving addition and subtraction."},
		},
	},
	{
		Key:  "university_physics_concepts",
		Name: "University Physics Concepts",
		Specs: []QuestionSpec{
			{QuestionType: QuestionTypeOpenEnded, Count: 4, Prompt: "Generate questions requiring detailed explanations of core physics principles like Newton's Laws or thermodynamics."},
			{QuestionType: QuestionTypeMCQ, Count: 6, Prompt: "Create questions that test conceptual understanding rather than complex calculations."},
		},
	},
	{
		Key:  "us_history_review",
		Name: "US History Review",
		Specs: []QuestionSpec{
			{QuestionType: QuestionTypeMCQ, Count: 10, Prompt: "Focus on key dates, figures, and events in US history."},
			{QuestionType: QuestionTypeOpenEnded, Count: 2, Prompt: "Ask for a short analysis of the impact of a major historical event."},
		},
	},
}
