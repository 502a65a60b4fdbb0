// Package prompt assembles completion-service requests from event batches,
// session history, and world context. The full instruction manuals live
// with the model configuration; this package only provides the structural
// context the pipeline owns.
package prompt

import (
	"fmt"
	"strings"

	"github.com/JiayiLi18/Symbiotic-Voxel-AI-Agent/internal/brain"
	"github.com/JiayiLi18/Symbiotic-Voxel-AI-Agent/internal/protocol"
	"github.com/JiayiLi18/Symbiotic-Voxel-AI-Agent/internal/session"
)

const plannerRole = `You are the AI co-creator living inside a voxel-building game.
The player talks to you and edits the world; you propose a goal, a short plan of
concrete steps, and an immediate conversational reply. Plan steps use small
sequential string ids ("1", "2", ...) and may depend on earlier steps.`

const executorRole = `You are the execution half of a voxel-building AI co-creator.
The player approved a set of plan steps. Convert them, in order, into concrete
world-editing commands. Emit no ids; the service assigns them.`

// PlannerSystem builds the planning-stage system instruction.
func PlannerSystem(history []session.Message, snapshot *protocol.WorldSnapshot, catalog []protocol.VoxelType) string {
	var b strings.Builder
	b.WriteString(plannerRole)
	b.WriteString("\n\n")

	if len(history) > 0 {
		b.WriteString("Recent conversation and world events:\n")
		for _, msg := range history {
			fmt.Fprintf(&b, "[%s] %s (%s): %s\n", msg.WorldTimestamp, msg.Role, msg.Kind, msg.Content)
		}
		b.WriteString("\n")
	}

	writeWorldContext(&b, snapshot)
	writeVoxelTypes(&b, catalog)
	return b.String()
}

// PlannerUserParts builds the user turn from the batch's speech text and
// any attached images, in event order.
func PlannerUserParts(events []protocol.Event) []brain.Part {
	var texts []string
	var images []protocol.ImageRef

	for _, ev := range events {
		switch payload := ev.Payload.(type) {
		case protocol.PlayerSpeakPayload:
			if t := strings.TrimSpace(payload.Text); t != "" {
				texts = append(texts, t)
			}
			if payload.Image != nil && !payload.Image.Empty() {
				images = append(images, *payload.Image)
			}
		case protocol.AgentContinuePlanPayload:
			images = append(images, payload.Images...)
		case protocol.AgentPerceptionPayload:
			images = append(images, payload.Images...)
		}
	}

	userText := strings.TrimSpace(strings.Join(texts, " "))
	if userText == "" {
		userText = "No specific user input"
	}

	parts := []brain.Part{{Text: userText}}
	for _, img := range images {
		url := img.Base64
		if url == "" {
			url = img.URL
		}
		parts = append(parts, brain.Part{ImageURL: url})
	}
	return parts
}

// ExecutorSystem builds the execution-stage system instruction.
func ExecutorSystem(approval protocol.Approval) string {
	var b strings.Builder
	b.WriteString(executorRole)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Goal: %s (%s)\n\n", approval.GoalLabel, approval.GoalID)
	writeWorldContext(&b, approval.WorldSnapshot)
	if approval.WorldSnapshot != nil {
		writeVoxelTypes(&b, approval.WorldSnapshot.VoxelTypes)
	}
	return b.String()
}

// ExecutorUserParts lists the approved plan steps, one numbered line each,
// plus the player's free-text feedback when present.
func ExecutorUserParts(approval protocol.Approval) []brain.Part {
	var b strings.Builder
	b.WriteString("Convert the approved plans into executable commands.\n")
	for i, plan := range approval.ApprovedPlans {
		fmt.Fprintf(&b, "%d. %s: %s", i+1, plan.ActionType, plan.Description)
		if len(plan.DependsOn) > 0 {
			fmt.Fprintf(&b, " (depends on %s)", strings.Join(plan.DependsOn, ", "))
		}
		b.WriteString("\n")
	}
	if info := strings.TrimSpace(approval.AdditionalInfo); info != "" {
		fmt.Fprintf(&b, "Player feedback: %s\n", info)
	}
	return []brain.Part{{Text: b.String()}}
}

func writeWorldContext(b *strings.Builder, snapshot *protocol.WorldSnapshot) {
	if snapshot == nil {
		return
	}
	fmt.Fprintf(b, "World time: %s\n", snapshot.WorldTime())
	if snapshot.PlayerPosition != nil {
		p := snapshot.PlayerPosition
		fmt.Fprintf(b, "Player position: (%d,%d,%d)\n", p.X, p.Y, p.Z)
	}
	if len(snapshot.NearbyVoxels) > 0 {
		b.WriteString("Nearby voxels:\n")
		for _, v := range snapshot.NearbyVoxels {
			fmt.Fprintf(b, "- %s (id %s) at (%d,%d,%d)\n",
				v.VoxelName, v.VoxelID, v.Position.X, v.Position.Y, v.Position.Z)
		}
	}
	b.WriteString("\n")
}

func writeVoxelTypes(b *strings.Builder, types []protocol.VoxelType) {
	if len(types) == 0 {
		return
	}
	b.WriteString("Known voxel types:\n")
	for _, t := range types {
		if t.Description != "" {
			fmt.Fprintf(b, "- %s (id %s): %s\n", t.Name, t.ID, t.Description)
			continue
		}
		fmt.Fprintf(b, "- %s (id %s)\n", t.Name, t.ID)
	}
	b.WriteString("\n")
}
