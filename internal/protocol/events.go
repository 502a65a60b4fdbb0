// Package protocol defines the wire types exchanged with the game client:
// inbound event batches and approval decisions, outbound planner replies and
// command batches. Unions are closed tagged variants decoded by their type
// field.
package protocol

import (
	"encoding/json"
	"fmt"
)

// EventType identifies inbound game event variants.
type EventType string

const (
	EventPlayerSpeak       EventType = "player_speak"
	EventPlayerBuild       EventType = "player_build"
	EventVoxelTypeCreated  EventType = "voxel_type_created"
	EventVoxelTypeModified EventType = "voxel_type_modified"
	EventAgentContinuePlan EventType = "agent_continue_plan"
	EventAgentPerception   EventType = "agent_perception"
)

// Position is a voxel-grid coordinate.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// Direction is one of the six axes relative to the agent.
type Direction string

const (
	DirectionUp    Direction = "up"
	DirectionDown  Direction = "down"
	DirectionFront Direction = "front"
	DirectionBack  Direction = "back"
	DirectionLeft  Direction = "left"
	DirectionRight Direction = "right"
)

// ImageRef carries one multimodal image input, base64 data URL or plain URL.
type ImageRef struct {
	Base64 string `json:"base64,omitempty"`
	URL    string `json:"url,omitempty"`
}

// Empty reports whether the reference carries no usable image data.
func (r ImageRef) Empty() bool {
	return r.Base64 == "" && r.URL == ""
}

// VoxelType describes one entry of the voxel-type registry.
type VoxelType struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	Texture      string   `json:"texture,omitempty"`
	FaceTextures []string `json:"face_textures,omitempty"`
}

// VoxelInstance is one placed voxel in the world.
type VoxelInstance struct {
	VoxelID   string   `json:"voxel_id"`
	VoxelName string   `json:"voxel_name"`
	Position  Position `json:"position"`
}

// EventPayload is the closed union of event payload variants.
type EventPayload interface {
	isEventPayload()
}

type PlayerSpeakPayload struct {
	Text  string    `json:"text"`
	Image *ImageRef `json:"image,omitempty"`
}

type PlayerBuildPayload struct {
	VoxelInstance VoxelInstance `json:"voxel_instance"`
}

type VoxelTypeCreatedPayload struct {
	VoxelType VoxelType `json:"voxel_type"`
}

type VoxelTypeModifiedPayload struct {
	VoxelID      string     `json:"voxel_id"`
	OldVoxelType VoxelType  `json:"old_voxel_type"`
	NewVoxelType *VoxelType `json:"new_voxel_type,omitempty"`
}

type AgentContinuePlanPayload struct {
	CurrentSummary    string     `json:"current_summary"`
	PossibleNextSteps string     `json:"possible_next_steps"`
	Images            []ImageRef `json:"image,omitempty"`
}

type AgentPerceptionPayload struct {
	Images       []ImageRef      `json:"image,omitempty"`
	NearbyVoxels []VoxelInstance `json:"nearby_voxels,omitempty"`
}

func (PlayerSpeakPayload) isEventPayload()       {}
func (PlayerBuildPayload) isEventPayload()       {}
func (VoxelTypeCreatedPayload) isEventPayload()  {}
func (VoxelTypeModifiedPayload) isEventPayload() {}
func (AgentContinuePlanPayload) isEventPayload() {}
func (AgentPerceptionPayload) isEventPayload()   {}

// Event is one typed game event. Timestamp is world time hhmmss.
type Event struct {
	Timestamp string       `json:"timestamp"`
	Type      EventType    `json:"type"`
	Payload   EventPayload `json:"payload"`
}

type eventEnvelope struct {
	Timestamp string          `json:"timestamp"`
	Type      EventType       `json:"type"`
	Payload   json.RawMessage `json:"payload"`
}

// UnmarshalJSON decodes the payload variant selected by the type field.
func (e *Event) UnmarshalJSON(data []byte) error {
	var env eventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	e.Timestamp = env.Timestamp
	e.Type = env.Type

	if len(env.Payload) == 0 {
		e.Payload = nil
		return nil
	}

	var payload EventPayload
	switch env.Type {
	case EventPlayerSpeak:
		payload = &PlayerSpeakPayload{}
	case EventPlayerBuild:
		payload = &PlayerBuildPayload{}
	case EventVoxelTypeCreated:
		payload = &VoxelTypeCreatedPayload{}
	case EventVoxelTypeModified:
		payload = &VoxelTypeModifiedPayload{}
	case EventAgentContinuePlan:
		payload = &AgentContinuePlanPayload{}
	case EventAgentPerception:
		payload = &AgentPerceptionPayload{}
	default:
		return fmt.Errorf("unsupported event type %q", env.Type)
	}
	if err := json.Unmarshal(env.Payload, payload); err != nil {
		return fmt.Errorf("decode %s payload: %w", env.Type, err)
	}
	e.Payload = deref(payload)
	return nil
}

func deref(p EventPayload) EventPayload {
	switch v := p.(type) {
	case *PlayerSpeakPayload:
		return *v
	case *PlayerBuildPayload:
		return *v
	case *VoxelTypeCreatedPayload:
		return *v
	case *VoxelTypeModifiedPayload:
		return *v
	case *AgentContinuePlanPayload:
		return *v
	case *AgentPerceptionPayload:
		return *v
	default:
		return p
	}
}
