package protocol

import (
	"encoding/json"
	"fmt"
)

// ActionType enumerates the actions a plan step or command can carry.
type ActionType string

const (
	ActionCreateVoxelType ActionType = "create_voxel_type"
	ActionUpdateVoxelType ActionType = "update_voxel_type"
	ActionPlaceBlock      ActionType = "place_block"
	ActionDestroyBlock    ActionType = "destroy_block"
	ActionMoveTo          ActionType = "move_to"
	ActionContinuePlan    ActionType = "continue_plan"
)

// ValidAction reports whether t is a known action type.
func ValidAction(t ActionType) bool {
	switch t {
	case ActionCreateVoxelType, ActionUpdateVoxelType, ActionPlaceBlock,
		ActionDestroyBlock, ActionMoveTo, ActionContinuePlan:
		return true
	default:
		return false
	}
}

// PlanStep is one proposed action within a goal. The model emits steps with
// small local ids ("1", "2", ...); the planning stage rewrites them into the
// hierarchical scheme before they leave the service.
type PlanStep struct {
	ID          string     `json:"id"`
	ActionType  ActionType `json:"action_type"`
	Description string     `json:"description"`
	DependsOn   []string   `json:"depends_on,omitempty"`
}

// CommandParams is the closed union of per-type command parameter records.
type CommandParams interface {
	isCommandParams()
}

type CreateVoxelTypeParams struct {
	VoxelType VoxelType `json:"voxel_type"`
}

type UpdateVoxelTypeParams struct {
	VoxelID      string    `json:"voxel_id"`
	NewVoxelType VoxelType `json:"new_voxel_type"`
}

type PlaceBlockParams struct {
	Direction Direction `json:"direction"`
	Distance  int       `json:"distance"`
	Count     int       `json:"count"`
	VoxelName string    `json:"voxel_name"`
	VoxelID   string    `json:"voxel_id,omitempty"`
}

type DestroyBlockParams struct {
	Direction  Direction `json:"direction"`
	Distance   int       `json:"distance"`
	Count      int       `json:"count"`
	VoxelNames []string  `json:"voxel_names,omitempty"`
	VoxelIDs   []string  `json:"voxel_ids,omitempty"`
}

type MoveToParams struct {
	TargetPos Position `json:"target_pos"`
}

type ContinuePlanParams struct {
	CurrentSummary    string `json:"current_summary"`
	PossibleNextSteps string `json:"possible_next_steps"`
	RequestSnapshot   bool   `json:"request_snapshot"`
}

func (CreateVoxelTypeParams) isCommandParams() {}
func (UpdateVoxelTypeParams) isCommandParams() {}
func (PlaceBlockParams) isCommandParams()      {}
func (DestroyBlockParams) isCommandParams()    {}
func (MoveToParams) isCommandParams()          {}
func (ContinuePlanParams) isCommandParams()    {}

// Command is one concrete world-editing instruction for the game client.
type Command struct {
	ID     string        `json:"id"`
	Type   ActionType    `json:"type"`
	Params CommandParams `json:"params"`
}

type commandEnvelope struct {
	ID     string          `json:"id"`
	Type   ActionType      `json:"type"`
	Params json.RawMessage `json:"params"`
}

// DecodeParams unmarshals raw params into the variant selected by typ.
func DecodeParams(typ ActionType, raw json.RawMessage) (CommandParams, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("missing params for %s", typ)
	}
	switch typ {
	case ActionCreateVoxelType:
		var p CreateVoxelTypeParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return p, nil
	case ActionUpdateVoxelType:
		var p UpdateVoxelTypeParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return p, nil
	case ActionPlaceBlock:
		var p PlaceBlockParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return p, nil
	case ActionDestroyBlock:
		var p DestroyBlockParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return p, nil
	case ActionMoveTo:
		var p MoveToParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return p, nil
	case ActionContinuePlan:
		var p ContinuePlanParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unsupported command type %q", typ)
	}
}

func (c *Command) UnmarshalJSON(data []byte) error {
	var env commandEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	params, err := DecodeParams(env.Type, env.Params)
	if err != nil {
		return fmt.Errorf("decode %s params: %w", env.Type, err)
	}
	c.ID = env.ID
	c.Type = env.Type
	c.Params = params
	return nil
}

// ReportPhase is the execution status phase reported back by the client.
type ReportPhase string

const (
	PhasePending   ReportPhase = "pending"
	PhaseDone      ReportPhase = "done"
	PhaseFailed    ReportPhase = "failed"
	PhaseCancelled ReportPhase = "cancelled"
)

// CommandReport is one executed-command status entry attached to a world
// snapshot. Params stay raw: reports echo whatever the client ran, and the
// closer only needs them for a best-effort fallback description.
type CommandReport struct {
	ID     string          `json:"id"`
	Type   ActionType      `json:"type"`
	Phase  ReportPhase     `json:"phase"`
	Params json.RawMessage `json:"params,omitempty"`
}
