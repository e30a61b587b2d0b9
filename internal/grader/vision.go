// Package grader talks to the external vision LLM that scores photographed
// test submissions. One attempt per call, no retries, no circuit breaking:
// a failing upstream fails the request that needed it.
package grader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"

	"github.com/shrimpsizemoose/trekker/logger"
)

const (
	defaultModel   = "gpt-4o-mini"
	defaultBaseURL = "https://api.openai.com/v1"
)

type Client struct {
	apiKey  string
	model   string
	baseURL string
	http    *http.Client
}

func NewClient(apiKey, model, baseURL string) *Client {
	if model == "" {
		model = defaultModel
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{},
	}
}

type Submission struct {
	Username   string
	TestNumber int
	Images     []string // data URLs
	MaxPoints  int
	Criteria   string
}

type Result struct {
	Points      int
	Reasoning   string
	NeedsReview bool
}

// GradeSubmission sends all submission images to the model and parses its
// strict-JSON verdict. A model call failure is an error and nothing should
// be written; an unparseable reply degrades to a zero-point needs-review
// result instead of failing the request.
func (c *Client) GradeSubmission(ctx context.Context, sub Submission) (*Result, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("grader API key is not configured")
	}

	content := []map[string]interface{}{
		{"type": "text", "text": buildGradingPrompt(sub.MaxPoints, sub.Criteria)},
	}
	for _, img := range sub.Images {
		content = append(content, map[string]interface{}{
			"type":      "image_url",
			"image_url": map[string]string{"url": img},
		})
	}

	reply, err := c.complete(ctx, []map[string]interface{}{
		{"role": "user", "content": content},
	})
	if err != nil {
		return nil, err
	}

	var verdict struct {
		Points    json.Number `json:"points"`
		Reasoning string      `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(extractJSON(reply)), &verdict); err != nil {
		logger.Error.Printf("Unparseable grading verdict for %s test %d: %v", sub.Username, sub.TestNumber, err)
		return &Result{NeedsReview: true}, nil
	}
	points, err := verdict.Points.Float64()
	if err != nil {
		logger.Error.Printf("Non-numeric points for %s test %d: %q", sub.Username, sub.TestNumber, verdict.Points)
		return &Result{NeedsReview: true}, nil
	}

	return &Result{
		Points:    ClampPoints(points, sub.MaxPoints),
		Reasoning: verdict.Reasoning,
	}, nil
}

// complete runs one chat completion and returns the first choice's content.
func (c *Client) complete(ctx context.Context, messages interface{}) (string, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"model":           c.model,
		"messages":        messages,
		"temperature":     0.2,
		"response_format": map[string]string{"type": "json_object"},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode grader request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build grader request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("grader API call failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read grader response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("grader API returned %d: %s", resp.StatusCode, string(body))
	}

	var completion struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &completion); err != nil {
		return "", fmt.Errorf("failed to decode grader response: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("empty response from grader API")
	}

	return completion.Choices[0].Message.Content, nil
}

// ClampPoints rounds to the nearest integer and clamps into [0, maxPoints].
func ClampPoints(points float64, maxPoints int) int {
	if maxPoints < 0 {
		maxPoints = 0
	}
	p := int(math.Round(points))
	if p < 0 {
		return 0
	}
	if p > maxPoints {
		return maxPoints
	}
	return p
}

// extractJSON cuts the outermost {...} out of a reply, models like to wrap
// JSON in markdown fences.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return s
	}
	return s[start : end+1]
}

func buildGradingPrompt(maxPoints int, criteria string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are grading a university web-development test submitted as photos.\n")
	fmt.Fprintf(&b, "Award an integer number of points between 0 and %d based on the visible answers.\n", maxPoints)
	if criteria != "" {
		fmt.Fprintf(&b, "Grading criteria:\n%s\n", criteria)
	}
	fmt.Fprintf(&b, "Respond with a JSON object of this exact shape and nothing else:\n")
	fmt.Fprintf(&b, `{"points": <integer 0..%d>, "reasoning": "<short explanation>"}`, maxPoints)
	return b.String()
}
