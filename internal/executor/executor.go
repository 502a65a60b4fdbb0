// Package executor implements the execution stage: turning an approved plan
// subset into concrete, id-stamped, enriched world-editing commands.
package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/JiayiLi18/Symbiotic-Voxel-AI-Agent/internal/brain"
	"github.com/JiayiLi18/Symbiotic-Voxel-AI-Agent/internal/correlate"
	"github.com/JiayiLi18/Symbiotic-Voxel-AI-Agent/internal/ident"
	"github.com/JiayiLi18/Symbiotic-Voxel-AI-Agent/internal/prompt"
	"github.com/JiayiLi18/Symbiotic-Voxel-AI-Agent/internal/protocol"
	"github.com/JiayiLi18/Symbiotic-Voxel-AI-Agent/internal/reliability"
	"github.com/JiayiLi18/Symbiotic-Voxel-AI-Agent/internal/voxel"
)

// DefaultMaxAttempts bounds the validate-retry loop, same policy as the
// planning stage.
const DefaultMaxAttempts = 3

// SchemaName tags executor requests so adapters can shape mock replies.
const SchemaName = "executor_response"

const responseSchema = `{
	"type": "object",
	"properties": {
		"commands": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"type": {"type": "string", "enum": ["create_voxel_type", "update_voxel_type", "place_block", "destroy_block", "move_to", "continue_plan"]},
					"params": {"type": "object"}
				},
				"required": ["type", "params"]
			}
		}
	},
	"required": ["commands"]
}`

// localCommand is the model's raw shape: typed, id-less.
type localCommand struct {
	Type   protocol.ActionType `json:"type"`
	Params json.RawMessage     `json:"params"`
}

type localReply struct {
	Commands []localCommand `json:"commands"`
}

// Result is one execution round's outcome, including how many emitted
// commands could not be correlated back to an approved plan step.
type Result struct {
	Batch            protocol.CommandBatch
	CorrelationSkips int
}

// Executor runs the execution stage.
type Executor struct {
	completer   brain.Completer
	registry    *correlate.Registry
	maxAttempts int
}

func New(completer brain.Completer, registry *correlate.Registry, maxAttempts int) *Executor {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Executor{
		completer:   completer,
		registry:    registry,
		maxAttempts: maxAttempts,
	}
}

// Execute turns an approval decision into a command batch. An empty
// approval short-circuits without a completion call: feedback text becomes
// a single corrective continue_plan command, nothing at all becomes an
// empty batch. On retry exhaustion the error is propagated; callers fall
// back to an empty batch.
func (e *Executor) Execute(ctx context.Context, approval protocol.Approval) (Result, error) {
	if len(approval.ApprovedPlans) == 0 {
		return e.shortCircuit(approval), nil
	}

	req := brain.Request{
		System:      prompt.ExecutorSystem(approval),
		Parts:       prompt.ExecutorUserParts(approval),
		SchemaName:  SchemaName,
		Schema:      responseSchema,
		Temperature: 0.1,
		MaxTokens:   2000,
	}

	local, err := reliability.Retry(ctx, e.maxAttempts, func(ctx context.Context) (localReply, error) {
		return e.callOnce(ctx, req)
	})
	if err != nil {
		return Result{}, err
	}

	return e.assemble(approval, local.Commands), nil
}

// EmptyBatch is the safe fallback when the stage's retry budget ran out:
// an empty-but-valid batch is safer to send than a malformed one.
func EmptyBatch(approval protocol.Approval) protocol.CommandBatch {
	return protocol.CommandBatch{
		SessionID: approval.SessionID,
		GoalID:    approval.GoalID,
		Commands:  []protocol.Command{},
	}
}

func (e *Executor) shortCircuit(approval protocol.Approval) Result {
	batch := EmptyBatch(approval)
	info := strings.TrimSpace(approval.AdditionalInfo)
	if info == "" {
		return Result{Batch: batch}
	}

	summary := fmt.Sprintf("The player rejected the proposed plan for goal %q.", approval.GoalLabel)
	batch.Commands = append(batch.Commands, protocol.Command{
		ID:   ident.NewCommandID(approval.GoalID, 1),
		Type: protocol.ActionContinuePlan,
		Params: protocol.ContinuePlanParams{
			CurrentSummary:    summary,
			PossibleNextSteps: fmt.Sprintf("Re-plan taking the feedback into account: %s", info),
			RequestSnapshot:   false,
		},
	})
	return Result{Batch: batch}
}

func (e *Executor) callOnce(ctx context.Context, req brain.Request) (localReply, error) {
	content, err := e.completer.Complete(ctx, req)
	if err != nil {
		return localReply{}, err
	}

	var local localReply
	if err := json.Unmarshal([]byte(content), &local); err != nil {
		return localReply{}, fmt.Errorf("parse executor reply: %w", err)
	}
	if local.Commands == nil {
		return localReply{}, fmt.Errorf("invalid executor reply: missing commands")
	}
	return local, nil
}

// assemble mints ids, enriches params against the approval's registry
// snapshot, and binds each command to its positionally matching approved
// plan step. A command the model shaped badly is skipped, never fatal;
// an enrichment failure keeps the command with its references unresolved.
func (e *Executor) assemble(approval protocol.Approval, locals []localCommand) Result {
	var snapshot *voxel.Snapshot
	if approval.WorldSnapshot != nil {
		snapshot = voxel.NewSnapshot(approval.WorldSnapshot.VoxelTypes)
	} else {
		snapshot = voxel.NewSnapshot(nil)
	}

	result := Result{Batch: EmptyBatch(approval)}
	seq := 0
	for _, lc := range locals {
		params, err := protocol.DecodeParams(lc.Type, lc.Params)
		if err != nil {
			log.Printf("executor: dropping malformed %s command: %v", lc.Type, err)
			continue
		}

		seq++
		cmd := protocol.Command{
			ID:     ident.NewCommandID(approval.GoalID, seq),
			Type:   lc.Type,
			Params: enrich(params, snapshot),
		}
		result.Batch.Commands = append(result.Batch.Commands, cmd)

		// Positional correlation: the Nth emitted command maps to the
		// Nth approved step. The unmatched tail stays uncorrelated.
		if seq <= len(approval.ApprovedPlans) {
			e.registry.BindCommand(approval.SessionID, cmd.ID, approval.ApprovedPlans[seq-1].ID)
		} else {
			result.CorrelationSkips++
		}
	}
	return result
}

// enrich resolves the missing half of symbolic voxel references from the
// request's snapshot. Unresolved names stay without an id rather than
// being guessed.
func enrich(params protocol.CommandParams, snapshot *voxel.Snapshot) protocol.CommandParams {
	switch p := params.(type) {
	case protocol.PlaceBlockParams:
		if p.VoxelID == "" && p.VoxelName != "" {
			if t, ok := snapshot.ByName(p.VoxelName); ok {
				p.VoxelID = t.ID
			}
		}
		if p.VoxelName == "" && p.VoxelID != "" {
			if t, ok := snapshot.ByID(p.VoxelID); ok {
				p.VoxelName = t.Name
			}
		}
		if p.Count <= 0 {
			p.Count = 1
		}
		return p
	case protocol.DestroyBlockParams:
		if len(p.VoxelIDs) == 0 && len(p.VoxelNames) > 0 {
			ids := make([]string, 0, len(p.VoxelNames))
			for _, name := range p.VoxelNames {
				if t, ok := snapshot.ByName(name); ok {
					ids = append(ids, t.ID)
				}
			}
			if len(ids) > 0 {
				p.VoxelIDs = ids
			}
		}
		if p.Count <= 0 {
			p.Count = 1
		}
		return p
	default:
		return params
	}
}
