package grader

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shrimpsizemoose/trekker/logger"
)

// StudentGrade is the current grade of one student as shown to the model
// during a normalization pass.
type StudentGrade struct {
	Username  string `json:"username"`
	Points    int    `json:"points"`
	Reasoning string `json:"reasoning"`
}

type NormalizedGrade struct {
	Points    int
	Reasoning string
}

// NormalizeGrades asks the model to equalize scoring leniency across all
// students of one test in a single call. The reply is a JSON object keyed
// by username. Students the model omits or returns garbage for are simply
// absent from the result; the caller decides what to do with them.
func (c *Client) NormalizeGrades(ctx context.Context, maxPoints int, grades []StudentGrade) (map[string]NormalizedGrade, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("grader API key is not configured")
	}

	roster, err := json.Marshal(grades)
	if err != nil {
		return nil, fmt.Errorf("failed to encode grade roster: %w", err)
	}

	reply, err := c.complete(ctx, []map[string]interface{}{
		{"role": "user", "content": buildNormalizePrompt(maxPoints, string(roster))},
	})
	if err != nil {
		return nil, err
	}

	var parsed map[string]struct {
		Points    json.Number `json:"points"`
		Reasoning string      `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(extractJSON(reply)), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse normalization response: %w", err)
	}

	result := make(map[string]NormalizedGrade, len(parsed))
	for username, g := range parsed {
		points, err := g.Points.Float64()
		if err != nil {
			logger.Error.Printf("Normalization returned non-numeric points for %s: %q", username, g.Points)
			continue
		}
		result[username] = NormalizedGrade{
			Points:    ClampPoints(points, maxPoints),
			Reasoning: g.Reasoning,
		}
	}
	return result, nil
}

func buildNormalizePrompt(maxPoints int, roster string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Below are the current grades of every student for one university web-development test, as JSON.\n")
	fmt.Fprintf(&b, "Re-score all of them with a consistent level of leniency. Do not penalize superficial formatting differences between submissions.\n")
	fmt.Fprintf(&b, "Points are integers between 0 and %d.\n\n", maxPoints)
	fmt.Fprintf(&b, "%s\n\n", roster)
	fmt.Fprintf(&b, "Respond with a single JSON object keyed by username, and nothing else:\n")
	fmt.Fprintf(&b, `{"<username>": {"points": <integer 0..%d>, "reasoning": "<rewritten explanation>"}, ...}`, maxPoints)
	return b.String()
}
