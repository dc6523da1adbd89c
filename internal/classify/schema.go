package classify

import "github.com/abhisek/profscope/internal/llm"

// TagSchema defines the JSON schema for question classification
// responses: a topic label, a complexity tier on the closed 1..6 scale,
// and a confidence score.
var TagSchema = &llm.Schema{
	Name:        "question-tags",
	Description: "Topic and cognitive-complexity tags for one exam question",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"topic": map[string]any{
				"type":        "string",
				"description": "Subject-matter label for the question, e.g. \"Kinematics\"",
			},
			"complexity_tier": map[string]any{
				"type":        "integer",
				"minimum":     1,
				"maximum":     6,
				"description": "Bloom level: 1=Remember 2=Understand 3=Apply 4=Analyze 5=Evaluate 6=Create",
			},
			"confidence": map[string]any{
				"type":        "number",
				"minimum":     0.0,
				"maximum":     1.0,
				"description": "Confidence in the assigned tags (0.0-1.0)",
			},
		},
		"required":             []any{"topic", "complexity_tier", "confidence"},
		"additionalProperties": false,
	},
}
