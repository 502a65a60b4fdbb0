// Package ident produces and parses the hierarchical id scheme used across
// the pipeline: session -> goal -> plan -> command. Ids are advisory and
// human-debuggable; parsing never fails hard.
package ident

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// UnknownSuffix is returned when a session id cannot be parsed.
	UnknownSuffix = "unkn"
	// UnknownSequence is returned when a goal id cannot be parsed.
	UnknownSequence = "000"
)

// NewSessionID returns a collision-resistant session id,
// e.g. "sess_20241201_143052_a4b2".
func NewSessionID() string {
	ts := time.Now().UTC().Format("20060102_150405")
	return fmt.Sprintf("sess_%s_%s", ts, randomSuffix(4))
}

// NewGoalID derives a goal id from the session's random suffix and a
// per-session sequence, e.g. "goal_a4b2_001". Deterministic for identical
// inputs so retries mint the same id.
func NewGoalID(sessionID string, sequence int) string {
	return fmt.Sprintf("goal_%s_%03d", SessionSuffix(sessionID), sequence)
}

// NewPlanID derives a plan id from the goal's sequence segment,
// e.g. "plan_001_01".
func NewPlanID(goalID string, sequence int) string {
	return fmt.Sprintf("plan_%s_%02d", GoalSequence(goalID), sequence)
}

// NewCommandID anchors a command id to its parent (goal or plan) id,
// e.g. "cmd_goal_a4b2_001_001".
func NewCommandID(parentID string, sequence int) string {
	return fmt.Sprintf("cmd_%s_%03d", parentID, sequence)
}

// SessionSuffix extracts the trailing segment of a session id. Malformed
// input yields UnknownSuffix rather than an error.
func SessionSuffix(sessionID string) string {
	return lastSegment(sessionID, UnknownSuffix)
}

// GoalSequence extracts the trailing sequence segment of a goal id.
// Malformed input yields UnknownSequence rather than an error.
func GoalSequence(goalID string) string {
	return lastSegment(goalID, UnknownSequence)
}

func lastSegment(id, sentinel string) string {
	id = strings.TrimSpace(id)
	i := strings.LastIndexByte(id, '_')
	if i < 0 || i == len(id)-1 {
		return sentinel
	}
	return id[i+1:]
}

func randomSuffix(n int) string {
	const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	raw := uuid.New()
	b := make([]byte, n)
	for i := 0; i < n; i++ {
		b[i] = alphabet[int(raw[i])%len(alphabet)]
	}
	return string(b)
}
