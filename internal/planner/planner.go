// Package planner implements the planning stage: one completion call per
// event batch, validated and repaired into a resolved plan with hierarchical
// ids.
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/JiayiLi18/Symbiotic-Voxel-AI-Agent/internal/brain"
	"github.com/JiayiLi18/Symbiotic-Voxel-AI-Agent/internal/ident"
	"github.com/JiayiLi18/Symbiotic-Voxel-AI-Agent/internal/prompt"
	"github.com/JiayiLi18/Symbiotic-Voxel-AI-Agent/internal/protocol"
	"github.com/JiayiLi18/Symbiotic-Voxel-AI-Agent/internal/reliability"
	"github.com/JiayiLi18/Symbiotic-Voxel-AI-Agent/internal/session"
	"github.com/JiayiLi18/Symbiotic-Voxel-AI-Agent/internal/voxel"
)

// DefaultMaxAttempts bounds the validate-retry loop against model
// non-determinism.
const DefaultMaxAttempts = 3

const fallbackTalk = "Sorry, I ran into trouble while planning. Could you try again?"
const fallbackLabel = "Planning failed"

// SchemaName tags planner requests so adapters can shape mock replies.
const SchemaName = "planner_response"

const responseSchema = `{
	"type": "object",
	"properties": {
		"goal_label": {"type": "string"},
		"talk_to_player": {"type": "string"},
		"plan": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"id": {"type": "string"},
					"action_type": {"type": "string", "enum": ["create_voxel_type", "update_voxel_type", "place_block", "destroy_block", "move_to", "continue_plan"]},
					"description": {"type": "string"},
					"depends_on": {"type": "array", "items": {"type": "string"}}
				},
				"required": ["id", "action_type", "description"]
			}
		}
	},
	"required": ["goal_label", "talk_to_player", "plan"]
}`

// localReply is the model's raw shape: plan steps carry small sequential
// ids scoped to this one response.
type localReply struct {
	GoalLabel    string              `json:"goal_label"`
	TalkToPlayer string              `json:"talk_to_player"`
	Plan         []protocol.PlanStep `json:"plan"`
}

// Planner runs the planning stage. It mints the goal id but leaves history
// bookkeeping to its caller.
type Planner struct {
	completer   brain.Completer
	store       *session.Store
	catalog     voxel.Store
	maxAttempts int
}

func New(completer brain.Completer, store *session.Store, catalog voxel.Store, maxAttempts int) *Planner {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Planner{
		completer:   completer,
		store:       store,
		catalog:     catalog,
		maxAttempts: maxAttempts,
	}
}

// Plan runs one planning round over the batch. A goal sequence number is
// consumed up front so ids stay monotonic even when the call fails; on
// retry exhaustion the returned reply carries only the minted goal id and
// the error is propagated for the caller to turn into a fallback.
func (p *Planner) Plan(ctx context.Context, batch protocol.EventBatch) (protocol.PlannerReply, error) {
	seq := p.store.NextGoalSequence(batch.SessionID)
	goalID := ident.NewGoalID(batch.SessionID, seq)

	history := p.store.Recent(batch.SessionID, p.store.MaxHistory(), "")
	catalogTypes := p.catalogContext(ctx, batch.WorldSnapshot)

	req := brain.Request{
		System:      prompt.PlannerSystem(history, batch.WorldSnapshot, catalogTypes),
		Parts:       prompt.PlannerUserParts(batch.Events),
		SchemaName:  SchemaName,
		Schema:      responseSchema,
		Temperature: 0.2,
		MaxTokens:   1800,
	}

	local, err := reliability.Retry(ctx, p.maxAttempts, func(ctx context.Context) (localReply, error) {
		return p.callOnce(ctx, req)
	})
	if err != nil {
		return protocol.PlannerReply{SessionID: batch.SessionID, GoalID: goalID}, err
	}

	return protocol.PlannerReply{
		SessionID:    batch.SessionID,
		GoalID:       goalID,
		GoalLabel:    local.GoalLabel,
		TalkToPlayer: local.TalkToPlayer,
		Plan:         resolvePlan(goalID, local.Plan),
	}, nil
}

// Fallback is the scripted reply for a planning round whose retry budget
// ran out: apologetic text, empty plan, the already-minted goal id.
func (p *Planner) Fallback(sessionID, goalID string) protocol.PlannerReply {
	return protocol.PlannerReply{
		SessionID:    sessionID,
		GoalID:       goalID,
		GoalLabel:    fallbackLabel,
		TalkToPlayer: fallbackTalk,
		Plan:         []protocol.PlanStep{},
	}
}

func (p *Planner) callOnce(ctx context.Context, req brain.Request) (localReply, error) {
	content, err := p.completer.Complete(ctx, req)
	if err != nil {
		return localReply{}, err
	}

	var local localReply
	if err := json.Unmarshal([]byte(content), &local); err != nil {
		return localReply{}, fmt.Errorf("parse planner reply: %w", err)
	}
	if err := validate(local); err != nil {
		return localReply{}, fmt.Errorf("invalid planner reply: %w", err)
	}
	return local, nil
}

func validate(local localReply) error {
	if strings.TrimSpace(local.TalkToPlayer) == "" {
		return fmt.Errorf("missing talk_to_player")
	}
	if strings.TrimSpace(local.GoalLabel) == "" {
		return fmt.Errorf("missing goal_label")
	}
	for i, step := range local.Plan {
		if strings.TrimSpace(step.ID) == "" {
			return fmt.Errorf("plan step %d has no id", i)
		}
		if !protocol.ValidAction(step.ActionType) {
			return fmt.Errorf("plan step %q has unknown action type %q", step.ID, step.ActionType)
		}
		if strings.TrimSpace(step.Description) == "" {
			return fmt.Errorf("plan step %q has no description", step.ID)
		}
	}
	return nil
}

// resolvePlan remaps the response-local step ids into the hierarchical
// scheme and rewires dependency edges through the same map. References to
// ids outside this response are dropped, never left unresolved.
func resolvePlan(goalID string, local []protocol.PlanStep) []protocol.PlanStep {
	resolved := make([]protocol.PlanStep, 0, len(local))
	idMap := make(map[string]string, len(local))

	for i, step := range local {
		planID := ident.NewPlanID(goalID, i+1)
		idMap[step.ID] = planID
		resolved = append(resolved, protocol.PlanStep{
			ID:          planID,
			ActionType:  step.ActionType,
			Description: step.Description,
			DependsOn:   step.DependsOn,
		})
	}

	for i := range resolved {
		if len(resolved[i].DependsOn) == 0 {
			resolved[i].DependsOn = nil
			continue
		}
		deps := make([]string, 0, len(resolved[i].DependsOn))
		for _, localDep := range resolved[i].DependsOn {
			if mapped, ok := idMap[localDep]; ok {
				deps = append(deps, mapped)
			}
		}
		if len(deps) == 0 {
			deps = nil
		}
		resolved[i].DependsOn = deps
	}
	return resolved
}

// catalogContext prefers the request's snapshot registry state, falling
// back to the durable catalog when the client sent none.
func (p *Planner) catalogContext(ctx context.Context, snapshot *protocol.WorldSnapshot) []protocol.VoxelType {
	if snapshot != nil && len(snapshot.VoxelTypes) > 0 {
		return snapshot.VoxelTypes
	}
	if p.catalog == nil {
		return nil
	}
	types, err := p.catalog.List(ctx)
	if err != nil {
		return nil
	}
	return types
}
