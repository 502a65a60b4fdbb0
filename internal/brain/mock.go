package brain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// MockCompleter produces deterministic schema-shaped replies when no real
// completion backend is configured. It keeps the whole pipeline runnable
// locally and gives tests a predictable brain.
type MockCompleter struct{}

func NewMockCompleter() *MockCompleter { return &MockCompleter{} }

func (m *MockCompleter) Complete(ctx context.Context, req Request) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	switch req.SchemaName {
	case "executor_response":
		return mockExecutorReply(req), nil
	default:
		return mockPlannerReply(req), nil
	}
}

func mockPlannerReply(req Request) string {
	text := strings.ToLower(joinText(req))

	type step struct {
		ID          string   `json:"id"`
		ActionType  string   `json:"action_type"`
		Description string   `json:"description"`
		DependsOn   []string `json:"depends_on,omitempty"`
	}
	reply := struct {
		GoalLabel    string `json:"goal_label"`
		TalkToPlayer string `json:"talk_to_player"`
		Plan         []step `json:"plan"`
	}{
		GoalLabel:    "Chat with the player",
		TalkToPlayer: "I'm here. What should we make together?",
	}

	switch {
	case strings.Contains(text, "destroy") || strings.Contains(text, "remove"):
		reply.GoalLabel = "Clear the requested blocks"
		reply.TalkToPlayer = "I can clear that out. Want me to go ahead?"
		reply.Plan = []step{
			{ID: "1", ActionType: "destroy_block", Description: "Destroy the blocks the player pointed at"},
		}
	case strings.Contains(text, "build") || strings.Contains(text, "place") || strings.Contains(text, "wall"):
		reply.GoalLabel = "Build what the player asked for"
		reply.TalkToPlayer = "Sure, I can build that. Shall I start?"
		reply.Plan = []step{
			{ID: "1", ActionType: "place_block", Description: "Place the first row of blocks"},
			{ID: "2", ActionType: "place_block", Description: "Stack the remaining rows", DependsOn: []string{"1"}},
		}
	}

	out, _ := json.Marshal(reply)
	return string(out)
}

func mockExecutorReply(req Request) string {
	text := joinText(req)

	type command struct {
		Type   string         `json:"type"`
		Params map[string]any `json:"params"`
	}
	commands := []command{}

	for _, line := range strings.Split(text, "\n") {
		line = strings.ToLower(strings.TrimSpace(line))
		switch {
		case strings.Contains(line, "destroy_block"):
			commands = append(commands, command{
				Type: "destroy_block",
				Params: map[string]any{
					"direction": "front",
					"distance":  1,
					"count":     1,
				},
			})
		case strings.Contains(line, "place_block"):
			commands = append(commands, command{
				Type: "place_block",
				Params: map[string]any{
					"direction":  "front",
					"distance":   1,
					"count":      1,
					"voxel_name": "stone",
				},
			})
		case strings.Contains(line, "move_to"):
			commands = append(commands, command{
				Type: "move_to",
				Params: map[string]any{
					"target_pos": map[string]int{"x": 1, "y": 0, "z": 0},
				},
			})
		case strings.Contains(line, "continue_plan"):
			commands = append(commands, command{
				Type: "continue_plan",
				Params: map[string]any{
					"current_summary":     "Continuing the current goal",
					"possible_next_steps": "Review progress and plan the next step",
					"request_snapshot":    true,
				},
			})
		}
	}

	out, _ := json.Marshal(struct {
		Commands []command `json:"commands"`
	}{Commands: commands})
	return string(out)
}

func joinText(req Request) string {
	var b strings.Builder
	for _, part := range req.Parts {
		if part.Text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(part.Text)
	}
	if b.Len() == 0 {
		return fmt.Sprintf("schema:%s", req.SchemaName)
	}
	return b.String()
}
