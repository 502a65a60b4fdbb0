package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/JiayiLi18/Symbiotic-Voxel-AI-Agent/internal/brain"
	"github.com/JiayiLi18/Symbiotic-Voxel-AI-Agent/internal/correlate"
	"github.com/JiayiLi18/Symbiotic-Voxel-AI-Agent/internal/executor"
	"github.com/JiayiLi18/Symbiotic-Voxel-AI-Agent/internal/observability"
	"github.com/JiayiLi18/Symbiotic-Voxel-AI-Agent/internal/planner"
	"github.com/JiayiLi18/Symbiotic-Voxel-AI-Agent/internal/protocol"
	"github.com/JiayiLi18/Symbiotic-Voxel-AI-Agent/internal/session"
	"github.com/JiayiLi18/Symbiotic-Voxel-AI-Agent/internal/voxel"
)

// Prometheus collectors register globally, so the whole package shares one
// metrics instance.
var testMetrics = observability.NewMetrics("pipeline_test")

func newTestService(completer brain.Completer) (*Service, *session.Store, *correlate.Registry) {
	store := session.NewStore(15)
	registry := correlate.NewRegistry()
	catalog := voxel.NewInMemoryStore()
	svc := New(
		store,
		registry,
		catalog,
		planner.New(completer, store, catalog, 3),
		executor.New(completer, registry, 3),
		testMetrics,
		5*time.Second,
	)
	return svc, store, registry
}

func speakBatch(sessionID, text string) protocol.EventBatch {
	return protocol.EventBatch{
		SessionID: sessionID,
		Events: []protocol.Event{
			{Timestamp: "120000", Type: protocol.EventPlayerSpeak, Payload: protocol.PlayerSpeakPayload{Text: text}},
		},
		WorldSnapshot: &protocol.WorldSnapshot{
			Timestamp: "120000",
			VoxelTypes: []protocol.VoxelType{
				{ID: "3", Name: "stone"},
			},
		},
	}
}

func TestBuildRequestRoundTrip(t *testing.T) {
	svc, store, _ := newTestService(brain.NewMockCompleter())
	ctx := context.Background()

	// Planning round: the player asks for a wall, no session id yet.
	reply := svc.HandleEvents(ctx, speakBatch("", "build a wall"))
	if reply.SessionID == "" {
		t.Fatalf("no session id minted")
	}
	if !strings.HasSuffix(reply.GoalID, "_001") {
		t.Fatalf("goal id = %q, want first sequence", reply.GoalID)
	}
	if reply.TalkToPlayer == "" {
		t.Fatalf("no conversational reply")
	}
	if len(reply.Plan) != 2 {
		t.Fatalf("plan steps = %d, want 2", len(reply.Plan))
	}
	for _, step := range reply.Plan {
		if step.ActionType != protocol.ActionPlaceBlock {
			t.Fatalf("step action = %q, want place_block", step.ActionType)
		}
		if !strings.HasPrefix(step.ID, "plan_001_") {
			t.Fatalf("step id = %q, want hierarchical", step.ID)
		}
	}

	// History after planning: the question, the answer, the plan summary.
	history := store.Recent(reply.SessionID, 0, "")
	if len(history) != 3 {
		t.Fatalf("history entries = %d, want 3", len(history))
	}
	if history[0].Role != "user" || history[0].Content != "build a wall" {
		t.Fatalf("first entry = %+v", history[0])
	}
	if history[1].Role != "agent" || history[1].Kind != session.KindChat {
		t.Fatalf("second entry = %+v", history[1])
	}
	if !strings.HasPrefix(history[2].Content, "Plans:") {
		t.Fatalf("third entry = %+v", history[2])
	}

	// Approval round: the player approves everything.
	approval := protocol.Approval{
		SessionID:     reply.SessionID,
		GoalID:        reply.GoalID,
		GoalLabel:     reply.GoalLabel,
		ApprovedPlans: reply.Plan,
		WorldSnapshot: &protocol.WorldSnapshot{
			Timestamp:  "120100",
			VoxelTypes: []protocol.VoxelType{{ID: "3", Name: "stone"}},
		},
	}
	batch := svc.HandleApproval(ctx, approval)
	if batch.GoalID != reply.GoalID {
		t.Fatalf("batch goal = %q, want %q", batch.GoalID, reply.GoalID)
	}
	if len(batch.Commands) != 2 {
		t.Fatalf("commands = %d, want 2", len(batch.Commands))
	}
	first := batch.Commands[0]
	if first.Type != protocol.ActionPlaceBlock {
		t.Fatalf("command type = %q", first.Type)
	}
	params := first.Params.(protocol.PlaceBlockParams)
	if params.VoxelID != "3" {
		t.Fatalf("voxel id not enriched from snapshot: %+v", params)
	}

	// Status round: the client reports the first command done; the next
	// planning call sees it in history with the originating plan text.
	followup := speakBatch(reply.SessionID, "looks good")
	followup.WorldSnapshot.LastCommands = []protocol.CommandReport{
		{ID: first.ID, Type: first.Type, Phase: protocol.PhaseDone},
	}
	svc.HandleEvents(ctx, followup)

	var closed *session.Message
	for _, msg := range store.Recent(reply.SessionID, 0, session.KindEvent) {
		if msg.Payload["plan_id"] == reply.Plan[0].ID {
			m := msg
			closed = &m
		}
	}
	if closed == nil {
		t.Fatalf("status report did not close into history")
	}
	if !strings.HasPrefix(closed.Content, "Done: ") {
		t.Fatalf("closed entry = %q", closed.Content)
	}
	if !strings.Contains(closed.Content, reply.Plan[0].Description) {
		t.Fatalf("closed entry %q missing plan description %q", closed.Content, reply.Plan[0].Description)
	}
}

func TestRejectionWithFeedback(t *testing.T) {
	svc, _, _ := newTestService(brain.NewMockCompleter())
	ctx := context.Background()

	reply := svc.HandleEvents(ctx, speakBatch("", "build a wall"))
	batch := svc.HandleApproval(ctx, protocol.Approval{
		SessionID:      reply.SessionID,
		GoalID:         reply.GoalID,
		GoalLabel:      reply.GoalLabel,
		ApprovedPlans:  nil,
		AdditionalInfo: "too big, try something smaller",
	})
	if len(batch.Commands) != 1 {
		t.Fatalf("commands = %d, want 1", len(batch.Commands))
	}
	if batch.Commands[0].Type != protocol.ActionContinuePlan {
		t.Fatalf("command type = %q, want continue_plan", batch.Commands[0].Type)
	}
}

type failingCompleter struct{}

func (failingCompleter) Complete(ctx context.Context, req brain.Request) (string, error) {
	return "", errors.New("backend down")
}

func TestPlanningFailureDegradesToFallback(t *testing.T) {
	svc, store, _ := newTestService(failingCompleter{})

	reply := svc.HandleEvents(context.Background(), speakBatch("", "build a wall"))
	if reply.TalkToPlayer == "" {
		t.Fatalf("fallback reply has no text")
	}
	if len(reply.Plan) != 0 {
		t.Fatalf("fallback reply has a plan: %v", reply.Plan)
	}
	if !strings.HasSuffix(reply.GoalID, "_001") {
		t.Fatalf("fallback lost the minted goal id: %q", reply.GoalID)
	}

	// The apologetic text still lands in history.
	history := store.Recent(reply.SessionID, 0, session.KindChat)
	if len(history) != 2 || history[1].Role != "agent" {
		t.Fatalf("history = %+v", history)
	}
}

func TestExecutionFailureDegradesToEmptyBatch(t *testing.T) {
	svc, _, _ := newTestService(failingCompleter{})

	batch := svc.HandleApproval(context.Background(), protocol.Approval{
		SessionID: "sess_20240101_000000_ab12",
		GoalID:    "goal_ab12_001",
		ApprovedPlans: []protocol.PlanStep{
			{ID: "plan_001_01", ActionType: protocol.ActionPlaceBlock, Description: "First row"},
		},
	})
	if batch.Commands == nil || len(batch.Commands) != 0 {
		t.Fatalf("expected empty non-nil command list, got %v", batch.Commands)
	}
	if batch.GoalID != "goal_ab12_001" {
		t.Fatalf("batch goal = %q", batch.GoalID)
	}
}

func TestVoxelLifecycleEventsUpdateCatalog(t *testing.T) {
	svc, _, _ := newTestService(brain.NewMockCompleter())
	ctx := context.Background()

	batch := protocol.EventBatch{
		Events: []protocol.Event{
			{Type: protocol.EventVoxelTypeCreated, Payload: protocol.VoxelTypeCreatedPayload{
				VoxelType: protocol.VoxelType{ID: "9", Name: "lava", Description: "hot"},
			}},
		},
	}
	svc.HandleEvents(ctx, batch)

	types, err := svc.VoxelTypes(ctx)
	if err != nil {
		t.Fatalf("voxel types: %v", err)
	}
	if len(types) != 1 || types[0].Name != "lava" {
		t.Fatalf("catalog = %+v", types)
	}

	svc.HandleEvents(ctx, protocol.EventBatch{
		Events: []protocol.Event{
			{Type: protocol.EventVoxelTypeModified, Payload: protocol.VoxelTypeModifiedPayload{
				VoxelID:      "9",
				OldVoxelType: protocol.VoxelType{ID: "9", Name: "lava"},
			}},
		},
	})
	types, _ = svc.VoxelTypes(ctx)
	if len(types) != 0 {
		t.Fatalf("delete did not propagate: %+v", types)
	}
}

func TestClearSession(t *testing.T) {
	svc, store, registry := newTestService(brain.NewMockCompleter())
	ctx := context.Background()

	reply := svc.HandleEvents(ctx, speakBatch("", "build a wall"))
	registry.RegisterApproval(reply.SessionID, reply.GoalID, reply.Plan)

	ack := svc.ClearSession(protocol.SessionClearRequest{SessionID: reply.SessionID})
	if ack.Status != "cleared" {
		t.Fatalf("ack = %+v", ack)
	}
	if got := store.Recent(reply.SessionID, 0, ""); len(got) != 0 {
		t.Fatalf("history survived clear: %v", got)
	}
	if _, ok := registry.Lookup(reply.SessionID, "anything"); ok {
		t.Fatalf("registry survived clear")
	}
}
