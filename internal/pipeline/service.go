// Package pipeline wires the stages together: event ingestion, planning,
// approval execution, and status-report correlation, with session
// bookkeeping around each step.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/JiayiLi18/Symbiotic-Voxel-AI-Agent/internal/correlate"
	"github.com/JiayiLi18/Symbiotic-Voxel-AI-Agent/internal/executor"
	"github.com/JiayiLi18/Symbiotic-Voxel-AI-Agent/internal/observability"
	"github.com/JiayiLi18/Symbiotic-Voxel-AI-Agent/internal/planner"
	"github.com/JiayiLi18/Symbiotic-Voxel-AI-Agent/internal/protocol"
	"github.com/JiayiLi18/Symbiotic-Voxel-AI-Agent/internal/session"
	"github.com/JiayiLi18/Symbiotic-Voxel-AI-Agent/internal/voxel"
)

// Service owns one pipeline instance and its shared stores.
type Service struct {
	store        *session.Store
	registry     *correlate.Registry
	closer       *correlate.Closer
	catalog      voxel.Store
	planner      *planner.Planner
	executor     *executor.Executor
	metrics      *observability.Metrics
	brainTimeout time.Duration
}

func New(
	store *session.Store,
	registry *correlate.Registry,
	catalog voxel.Store,
	plan *planner.Planner,
	exec *executor.Executor,
	metrics *observability.Metrics,
	brainTimeout time.Duration,
) *Service {
	return &Service{
		store:        store,
		registry:     registry,
		closer:       correlate.NewCloser(registry, store),
		catalog:      catalog,
		planner:      plan,
		executor:     exec,
		metrics:      metrics,
		brainTimeout: brainTimeout,
	}
}

// HandleEvents ingests one event batch and runs a planning round. The
// reply's session id is authoritative: a batch without one gets a fresh
// session. Terminal planning errors degrade to the scripted fallback reply
// so the client is never left without an answer.
func (s *Service) HandleEvents(ctx context.Context, batch protocol.EventBatch) protocol.PlannerReply {
	batch.SessionID = s.store.GetOrCreate(batch.SessionID)
	s.metrics.ActiveSessions.Set(float64(s.store.Count()))

	s.ingest(ctx, batch)

	planCtx := ctx
	if s.brainTimeout > 0 {
		var cancel context.CancelFunc
		planCtx, cancel = context.WithTimeout(ctx, s.brainTimeout)
		defer cancel()
	}

	reply, err := s.planner.Plan(planCtx, batch)
	if err != nil {
		log.Printf("pipeline: planning failed for session %s: %v", batch.SessionID, err)
		s.metrics.BrainCalls.WithLabelValues("planner", "fallback").Inc()
		reply = s.planner.Fallback(batch.SessionID, reply.GoalID)
	} else {
		s.metrics.BrainCalls.WithLabelValues("planner", "ok").Inc()
		s.metrics.PlanSteps.Observe(float64(len(reply.Plan)))
	}

	worldTS := batch.WorldSnapshot.WorldTime()
	s.store.Append(batch.SessionID, session.Message{
		Role:           "agent",
		Content:        reply.TalkToPlayer,
		Kind:           session.KindChat,
		WorldTimestamp: worldTS,
	})
	if len(reply.Plan) > 0 {
		var b strings.Builder
		b.WriteString("Plans:\n")
		for _, step := range reply.Plan {
			fmt.Fprintf(&b, "- %s\n", step.Description)
		}
		s.store.Append(batch.SessionID, session.Message{
			Role:           "agent",
			Content:        strings.TrimRight(b.String(), "\n"),
			Kind:           session.KindEvent,
			WorldTimestamp: worldTS,
		})
	}

	return reply
}

// HandleApproval registers the decision and runs the execution stage.
// Terminal execution errors degrade to an empty batch.
func (s *Service) HandleApproval(ctx context.Context, approval protocol.Approval) protocol.CommandBatch {
	approval.SessionID = s.store.GetOrCreate(approval.SessionID)
	s.registry.RegisterApproval(approval.SessionID, approval.GoalID, approval.ApprovedPlans)

	execCtx := ctx
	if s.brainTimeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, s.brainTimeout)
		defer cancel()
	}

	result, err := s.executor.Execute(execCtx, approval)
	if err != nil {
		log.Printf("pipeline: execution failed for session %s goal %s: %v",
			approval.SessionID, approval.GoalID, err)
		s.metrics.BrainCalls.WithLabelValues("executor", "fallback").Inc()
		return executor.EmptyBatch(approval)
	}

	s.metrics.BrainCalls.WithLabelValues("executor", "ok").Inc()
	for _, cmd := range result.Batch.Commands {
		s.metrics.CommandsEmitted.WithLabelValues(string(cmd.Type)).Inc()
	}
	if result.CorrelationSkips > 0 {
		s.metrics.CorrelationSkips.Add(float64(result.CorrelationSkips))
	}
	return result.Batch
}

// ClearSession drops one session's history and registry state, or all of
// them when asked.
func (s *Service) ClearSession(req protocol.SessionClearRequest) protocol.SessionAck {
	if req.ClearAll {
		s.store.ClearAll()
		s.registry.ClearAll()
	} else {
		s.store.Clear(req.SessionID)
		s.registry.ClearSession(req.SessionID)
	}
	s.metrics.ActiveSessions.Set(float64(s.store.Count()))
	s.metrics.SessionEvents.WithLabelValues("cleared").Inc()
	return protocol.SessionAck{SessionID: req.SessionID, Status: "cleared"}
}

// History returns a session's recent entries, newest last.
func (s *Service) History(sessionID string, limit int) []session.Message {
	return s.store.Recent(sessionID, limit, "")
}

// VoxelTypes lists the durable catalog.
func (s *Service) VoxelTypes(ctx context.Context) ([]protocol.VoxelType, error) {
	return s.catalog.List(ctx)
}
