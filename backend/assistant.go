// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultAssistantBaseURL is the Gemini API base URL.
	DefaultAssistantBaseURL = "https://generativelanguage.googleapis.com"

	// DefaultAssistantModel is the generation model used for all
	// coaching content.
	DefaultAssistantModel = "gemini-2.5-flash"

	// DefaultAssistantTimeout is the HTTP client timeout for
	// generation calls.
	DefaultAssistantTimeout = 30 * time.Second
)

// ErrAssistantDisabled is returned when no API key is configured.
var ErrAssistantDisabled = errors.New("assistant is not configured")

// Assistant generates coaching content (drills, training plans, match
// strategy, player summaries) via the Gemini generateContent API.
type Assistant struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// AssistantConfig holds the configuration for the assistant client.
type AssistantConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// NewAssistant creates an assistant client with default settings.
func NewAssistant(apiKey string) *Assistant {
	return NewAssistantWithConfig(AssistantConfig{APIKey: apiKey})
}

// NewAssistantWithConfig creates an assistant client with custom
// configuration.
func NewAssistantWithConfig(config AssistantConfig) *Assistant {
	if config.BaseURL == "" {
		config.BaseURL = DefaultAssistantBaseURL
	}
	if config.Model == "" {
		config.Model = DefaultAssistantModel
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultAssistantTimeout
	}
	return &Assistant{
		baseURL: config.BaseURL,
		apiKey:  config.APIKey,
		model:   config.Model,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Enabled reports whether the client has an API key.
func (a *Assistant) Enabled() bool {
	return a != nil && a.apiKey != ""
}

// generateContent request/response wire types. Only the fields this
// service uses are modeled.
type generateContentRequest struct {
	Contents []assistantContent `json:"contents"`
}

type assistantContent struct {
	Parts []assistantPart `json:"parts"`
}

type assistantPart struct {
	Text string `json:"text"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content assistantContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// generate performs one generateContent call and returns the first
// candidate's text.
func (a *Assistant) generate(ctx context.Context, prompt string) (string, error) {
	if !a.Enabled() {
		return "", ErrAssistantDisabled
	}

	reqBody := generateContentRequest{
		Contents: []assistantContent{{Parts: []assistantPart{{Text: prompt}}}},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", a.baseURL, a.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-goog-api-key", a.apiKey)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	var out generateContentResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if out.Error != nil && out.Error.Message != "" {
			return "", fmt.Errorf("generation failed with status %d: %s", resp.StatusCode, out.Error.Message)
		}
		return "", fmt.Errorf("generation failed with status %d: %s", resp.StatusCode, string(respBody))
	}
	for _, cand := range out.Candidates {
		for _, part := range cand.Content.Parts {
			if part.Text != "" {
				return part.Text, nil
			}
		}
	}
	return "", fmt.Errorf("empty generation response")
}

// DrillSuggestion creates a concise drill description from a coach's
// free-form request.
func (a *Assistant) DrillSuggestion(ctx context.Context, prompt, sport string) (string, error) {
	if sport == "" {
		sport = "football"
	}
	full := fmt.Sprintf(`Act as an expert %s coach.
Create a concise, high-intensity drill description based on this request: %q.
Include:
1. Drill Name
2. Objective
3. Setup instructions
4. Key coaching points.
Keep it under 200 words. Format with simple markdown.`, sport, prompt)
	return a.generate(ctx, full)
}

// TrainingPlan creates a weekly training plan for a player profile.
func (a *Assistant) TrainingPlan(ctx context.Context, position, experience, goals, sport string) (string, error) {
	if sport == "" {
		sport = "football"
	}
	full := fmt.Sprintf(`Act as a professional %s coach.
Create a comprehensive weekly training plan for a player with the following profile:
- Position: %s
- Experience Level: %s
- Primary Goals: %s

The plan should include:
1. Weekly Schedule (Day by Day breakdown)
2. Specific Drills for the position and goals
3. Recovery tips
4. Mental preparation advice.

Format the response in clean Markdown.`, sport, position, experience, goals)
	return a.generate(ctx, full)
}

// MatchStrategy creates a pre-game tactical briefing from the roster
// and the coach's notes.
func (a *Assistant) MatchStrategy(ctx context.Context, teamName, opponent string, players []*Player, notes string) (string, error) {
	entries := make([]string, 0, len(players))
	for _, p := range players {
		entries = append(entries, fmt.Sprintf("%s (%s, %s)", p.Name, p.Position, p.Status))
	}
	if notes == "" {
		notes = "None"
	}
	full := fmt.Sprintf(`Act as a tactical analyst for %s.
Upcoming Opponent: %s.
Roster: %s.
Coach's Pre-game Notes: %q.

Provide a match strategy including:
1. Suggested Formation
2. Key Player Roles
3. Attacking Strategy
4. Defensive Strategy

Keep it concise and actionable.`, teamName, opponent, strings.Join(entries, ", "), notes)
	return a.generate(ctx, full)
}

// PlayerSummary writes a short performance summary from a player's
// accumulated history and coach notes.
func (a *Assistant) PlayerSummary(ctx context.Context, p *Player) (string, error) {
	var goals, assists int
	for _, line := range p.GameHistory {
		goals += line.Goals
		assists += line.Assists
	}
	notes := p.Notes
	if notes == "" {
		notes = "None"
	}
	bio := p.Bio
	if bio == "" {
		bio = "None"
	}
	full := fmt.Sprintf(`Analyze the performance of football player %s (%s).
Stats: %d games played, %d goals, %d assists.
Coach Notes: %q.
Bio: %q.

Write a professional 3-sentence performance summary highlighting strengths and areas for improvement.`,
		p.Name, p.Position, len(p.GameHistory), goals, assists, notes, bio)
	return a.generate(ctx, full)
}
