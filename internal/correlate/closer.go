package correlate

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/JiayiLi18/Symbiotic-Voxel-AI-Agent/internal/protocol"
	"github.com/JiayiLi18/Symbiotic-Voxel-AI-Agent/internal/session"
)

// Closer turns later-arriving execution-status reports into history entries
// the next planning call can read.
type Closer struct {
	registry *Registry
	store    *session.Store
}

func NewCloser(registry *Registry, store *session.Store) *Closer {
	return &Closer{registry: registry, store: store}
}

// CloseReports appends one agent event message per status report and
// returns how many command ids resolved through the registry versus not.
// Reports whose command id resolves carry the originating plan description;
// unresolved ones fall back to the command's raw type/params.
func (c *Closer) CloseReports(sessionID, worldTimestamp string, reports []protocol.CommandReport) (hits, misses int) {
	for _, report := range reports {
		info, found := c.registry.Lookup(sessionID, report.ID)
		if found {
			hits++
		} else {
			misses++
		}

		var content string
		if found {
			content = fmt.Sprintf("%s: %s", titlePhase(report.Phase), info.Description)
		} else {
			content = fmt.Sprintf("%s: %s", titlePhase(report.Phase), describeReport(report))
		}

		payload := map[string]any{
			"command_type": string(report.Type),
			"phase":        string(report.Phase),
		}
		if found {
			payload["plan_id"] = info.PlanID
			payload["plan_description"] = info.Description
		}

		c.store.Append(sessionID, session.Message{
			Role:           "agent",
			Content:        content,
			Kind:           session.KindEvent,
			WorldTimestamp: worldTimestamp,
			Payload:        payload,
		})
	}
	return hits, misses
}

func titlePhase(phase protocol.ReportPhase) string {
	p := string(phase)
	if p == "" {
		return "Unknown"
	}
	return strings.ToUpper(p[:1]) + p[1:]
}

func describeReport(report protocol.CommandReport) string {
	switch report.Type {
	case protocol.ActionCreateVoxelType:
		var params protocol.CreateVoxelTypeParams
		if err := json.Unmarshal(report.Params, &params); err == nil && params.VoxelType.Name != "" {
			return fmt.Sprintf("Create voxel type %q", params.VoxelType.Name)
		}
		return "Create voxel type"
	case protocol.ActionPlaceBlock:
		return "Place blocks"
	case protocol.ActionDestroyBlock:
		return "Destroy blocks"
	case "":
		return "unknown command"
	default:
		return string(report.Type)
	}
}
