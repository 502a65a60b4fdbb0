package pipeline

import (
	"context"
	"fmt"
	"log"

	"github.com/JiayiLi18/Symbiotic-Voxel-AI-Agent/internal/protocol"
	"github.com/JiayiLi18/Symbiotic-Voxel-AI-Agent/internal/session"
)

// ingest folds one event batch into session history, keeps the voxel
// catalog current, and closes any command reports the snapshot carries.
func (s *Service) ingest(ctx context.Context, batch protocol.EventBatch) {
	worldTS := batch.WorldSnapshot.WorldTime()

	for _, ev := range batch.Events {
		ts := ev.Timestamp
		if ts == "" {
			ts = worldTS
		}

		switch p := ev.Payload.(type) {
		case protocol.PlayerSpeakPayload:
			content := p.Text
			if p.Image != nil && !p.Image.Empty() {
				content += " [Image]"
			}
			s.store.Append(batch.SessionID, session.Message{
				Role:           "user",
				Content:        content,
				Kind:           session.KindChat,
				WorldTimestamp: ts,
			})
			s.metrics.SessionEvents.WithLabelValues(string(ev.Type)).Inc()

		case protocol.PlayerBuildPayload:
			inst := p.VoxelInstance
			s.store.Append(batch.SessionID, session.Message{
				Role: "player",
				Content: fmt.Sprintf("Player placed %s at (%d, %d, %d)",
					voxelLabel(inst.VoxelName, inst.VoxelID),
					inst.Position.X, inst.Position.Y, inst.Position.Z),
				Kind:           session.KindEvent,
				WorldTimestamp: ts,
				Payload:        map[string]any{"voxel_id": inst.VoxelID},
			})
			s.metrics.SessionEvents.WithLabelValues(string(ev.Type)).Inc()

		case protocol.VoxelTypeCreatedPayload:
			vt := p.VoxelType
			s.store.Append(batch.SessionID, session.Message{
				Role: "player",
				Content: fmt.Sprintf("New voxel type created: %s (id %s): %s",
					vt.Name, vt.ID, vt.Description),
				Kind:           session.KindEvent,
				WorldTimestamp: ts,
				Payload:        map[string]any{"voxel_id": vt.ID},
			})
			if err := s.catalog.Upsert(ctx, vt); err != nil {
				log.Printf("pipeline: catalog upsert %s: %v", vt.ID, err)
			}
			s.metrics.SessionEvents.WithLabelValues(string(ev.Type)).Inc()

		case protocol.VoxelTypeModifiedPayload:
			var content string
			if p.NewVoxelType == nil {
				content = fmt.Sprintf("Voxel type deleted: %s (id %s)",
					p.OldVoxelType.Name, p.VoxelID)
				if err := s.catalog.Delete(ctx, p.VoxelID); err != nil {
					log.Printf("pipeline: catalog delete %s: %v", p.VoxelID, err)
				}
			} else {
				content = fmt.Sprintf("Voxel type modified: %s -> %s (id %s)",
					p.OldVoxelType.Name, p.NewVoxelType.Name, p.VoxelID)
				if err := s.catalog.Upsert(ctx, *p.NewVoxelType); err != nil {
					log.Printf("pipeline: catalog upsert %s: %v", p.VoxelID, err)
				}
			}
			s.store.Append(batch.SessionID, session.Message{
				Role:           "player",
				Content:        content,
				Kind:           session.KindEvent,
				WorldTimestamp: ts,
				Payload:        map[string]any{"voxel_id": p.VoxelID},
			})
			s.metrics.SessionEvents.WithLabelValues(string(ev.Type)).Inc()

		case protocol.AgentContinuePlanPayload:
			s.store.Append(batch.SessionID, session.Message{
				Role:           "agent",
				Content:        fmt.Sprintf("Continuing plan. Progress so far: %s", p.CurrentSummary),
				Kind:           session.KindEvent,
				WorldTimestamp: ts,
			})
			s.metrics.SessionEvents.WithLabelValues(string(ev.Type)).Inc()

		case protocol.AgentPerceptionPayload:
			// Perception frames feed the prompt directly; history only
			// records that a look-around happened.
			s.store.Append(batch.SessionID, session.Message{
				Role:           "agent",
				Content:        "Observed the surroundings",
				Kind:           session.KindEvent,
				WorldTimestamp: ts,
			})
			s.metrics.SessionEvents.WithLabelValues(string(ev.Type)).Inc()

		default:
			log.Printf("pipeline: skipping event with unhandled payload type %s", ev.Type)
		}
	}

	if len(batch.WorldSnapshot.LastCommands) > 0 {
		hits, misses := s.closer.CloseReports(batch.SessionID, worldTS, batch.WorldSnapshot.LastCommands)
		if hits > 0 {
			s.metrics.ReportLookups.WithLabelValues("hit").Add(float64(hits))
		}
		if misses > 0 {
			s.metrics.ReportLookups.WithLabelValues("miss").Add(float64(misses))
		}
	}
}

func voxelLabel(name, id string) string {
	if name != "" {
		return name
	}
	if id != "" {
		return "voxel " + id
	}
	return "a voxel"
}
