package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// WorldSnapshot is the client's view of the world accompanying a request.
// The pipeline never mutates it; voxel enrichment reads the same snapshot
// the model reasoned over.
type WorldSnapshot struct {
	Timestamp      string          `json:"timestamp"`
	PlayerPosition *Position       `json:"player_position,omitempty"`
	VoxelTypes     []VoxelType     `json:"voxel_types,omitempty"`
	NearbyVoxels   []VoxelInstance `json:"nearby_voxels,omitempty"`
	LastCommands   []CommandReport `json:"last_commands,omitempty"`
}

// WorldTime returns the snapshot's world timestamp, or the zero clock when
// no snapshot was sent.
func (s *WorldSnapshot) WorldTime() string {
	if s == nil || s.Timestamp == "" {
		return "000000"
	}
	return s.Timestamp
}

// EventBatch is the inbound unit of game/player activity.
type EventBatch struct {
	SessionID     string         `json:"session_id"`
	Events        []Event        `json:"events"`
	WorldSnapshot *WorldSnapshot `json:"world_snapshot,omitempty"`
}

// PlannerReply is the outbound planning result: an immediate conversational
// reply plus a proposed plan awaiting client approval.
type PlannerReply struct {
	SessionID    string     `json:"session_id"`
	GoalID       string     `json:"goal_id"`
	GoalLabel    string     `json:"goal_label"`
	TalkToPlayer string     `json:"talk_to_player"`
	Plan         []PlanStep `json:"plan"`
}

// Approval is the client's decision on a proposed plan: the approved subset
// plus optional free-text feedback on what was rejected.
type Approval struct {
	SessionID      string         `json:"session_id"`
	GoalID         string         `json:"goal_id"`
	GoalLabel      string         `json:"goal_label"`
	ApprovedPlans  []PlanStep     `json:"approved_plans"`
	AdditionalInfo string         `json:"additional_info,omitempty"`
	WorldSnapshot  *WorldSnapshot `json:"world_snapshot,omitempty"`
}

// CommandBatch is the outbound unit of executable commands.
type CommandBatch struct {
	SessionID string    `json:"session_id"`
	GoalID    string    `json:"goal_id"`
	Commands  []Command `json:"commands"`
}

// SessionClearRequest asks to drop one session's state, or all of it.
type SessionClearRequest struct {
	SessionID string `json:"session_id"`
	ClearAll  bool   `json:"clear_all,omitempty"`
}

// SessionAck acknowledges a session lifecycle operation.
type SessionAck struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

// FrameType identifies websocket frame variants on the session stream.
type FrameType string

const (
	TypeEventBatchFrame   FrameType = "event_batch"
	TypeApprovalFrame     FrameType = "approval"
	TypePlannerReplyFrame FrameType = "planner_reply"
	TypeCommandBatchFrame FrameType = "command_batch"
	TypeErrorFrame        FrameType = "error_event"
)

var ErrUnsupportedFrame = errors.New("unsupported frame type")

type frameEnvelope struct {
	Type FrameType `json:"type"`
}

// EventBatchFrame wraps an event batch on the websocket transport.
type EventBatchFrame struct {
	Type  FrameType  `json:"type"`
	Batch EventBatch `json:"batch"`
}

// ApprovalFrame wraps an approval decision on the websocket transport.
type ApprovalFrame struct {
	Type     FrameType `json:"type"`
	Approval Approval  `json:"approval"`
}

// PlannerReplyFrame wraps an outbound planner reply.
type PlannerReplyFrame struct {
	Type  FrameType    `json:"type"`
	Reply PlannerReply `json:"reply"`
}

// CommandBatchFrame wraps an outbound command batch.
type CommandBatchFrame struct {
	Type  FrameType    `json:"type"`
	Batch CommandBatch `json:"batch"`
}

// ErrorFrame reports a request failure without closing the stream.
type ErrorFrame struct {
	Type      FrameType `json:"type"`
	SessionID string    `json:"session_id"`
	Code      string    `json:"code"`
	Detail    string    `json:"detail,omitempty"`
}

// ParseClientFrame decodes an inbound websocket frame into its concrete type.
func ParseClientFrame(data []byte) (any, error) {
	var env frameEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("invalid frame: %w", err)
	}
	switch env.Type {
	case TypeEventBatchFrame:
		var f EventBatchFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, err
		}
		return f, nil
	case TypeApprovalFrame:
		var f ApprovalFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, err
		}
		return f, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFrame, env.Type)
	}
}
