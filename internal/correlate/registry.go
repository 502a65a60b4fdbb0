// Package correlate links approved plan steps to the commands minted from
// them, and closes the loop when the client later reports execution status.
package correlate

import (
	"sync"

	"github.com/JiayiLi18/Symbiotic-Voxel-AI-Agent/internal/protocol"
)

// PlanInfo is the plan metadata attached to a bound command id.
type PlanInfo struct {
	PlanID      string              `json:"plan_id"`
	Description string              `json:"plan_description"`
	ActionType  protocol.ActionType `json:"plan_action_type"`
}

type sessionMapping struct {
	goalID   string
	approved []protocol.PlanStep
	byCmd    map[string]PlanInfo
}

// Registry maps command ids back to the plan steps that originated them,
// per session. Entries live until the session is cleared; there is no TTL
// sweep, so a long-lived session accumulates one mapping set per approval.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*sessionMapping
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*sessionMapping)}
}

// RegisterApproval stores the approved plan list for a session so later
// binds can resolve plan metadata by id. A new approval for the same
// session replaces the previous one.
func (r *Registry) RegisterApproval(sessionID, goalID string, approved []protocol.PlanStep) {
	plans := make([]protocol.PlanStep, len(approved))
	copy(plans, approved)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sessionID] = &sessionMapping{
		goalID:   goalID,
		approved: plans,
		byCmd:    make(map[string]PlanInfo),
	}
}

// BindCommand records that commandID was minted from planID. Rebinding an
// already-bound command overwrites silently: retries of an execution call
// supersede earlier partial binds. Returns false when no approval was
// registered or the plan id is not part of it.
func (r *Registry) BindCommand(sessionID, commandID, planID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.sessions[sessionID]
	if !ok {
		return false
	}
	for _, plan := range m.approved {
		if plan.ID == planID {
			m.byCmd[commandID] = PlanInfo{
				PlanID:      planID,
				Description: plan.Description,
				ActionType:  plan.ActionType,
			}
			return true
		}
	}
	return false
}

// Lookup resolves a command id to its originating plan metadata. The second
// return is false when nothing was registered; callers degrade to a
// context-free entry rather than failing.
func (r *Registry) Lookup(sessionID, commandID string) (PlanInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.sessions[sessionID]
	if !ok {
		return PlanInfo{}, false
	}
	info, ok := m.byCmd[commandID]
	return info, ok
}

// ClearSession drops a session's mappings. Wired to the same lifecycle
// operation that clears the session store so both expire together.
func (r *Registry) ClearSession(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
}

// ClearAll drops every session's mappings.
func (r *Registry) ClearAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = make(map[string]*sessionMapping)
}
