package ident

import (
	"regexp"
	"strings"
	"testing"
)

func TestNewSessionIDShape(t *testing.T) {
	pattern := regexp.MustCompile(`^sess_\d{8}_\d{6}_[a-z0-9]{4}$`)
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		id := NewSessionID()
		if !pattern.MatchString(id) {
			t.Fatalf("session id %q does not match expected shape", id)
		}
		seen[id] = true
	}
	if len(seen) < 2 {
		t.Fatalf("expected random suffixes to differ, got %d unique ids", len(seen))
	}
}

func TestGoalIDDeterministic(t *testing.T) {
	sessionID := "sess_20241201_143052_a4b2"
	first := NewGoalID(sessionID, 3)
	second := NewGoalID(sessionID, 3)
	if first != second {
		t.Fatalf("goal id not deterministic: %q vs %q", first, second)
	}
	if first != "goal_a4b2_003" {
		t.Fatalf("goal id = %q, want goal_a4b2_003", first)
	}
}

func TestPlanAndCommandIDs(t *testing.T) {
	goalID := NewGoalID("sess_20241201_143052_a4b2", 1)
	if got := NewPlanID(goalID, 2); got != "plan_001_02" {
		t.Fatalf("plan id = %q, want plan_001_02", got)
	}
	if got := NewCommandID(goalID, 12); got != "cmd_goal_a4b2_001_012" {
		t.Fatalf("command id = %q, want cmd_goal_a4b2_001_012", got)
	}
}

func TestMalformedIDsYieldSentinels(t *testing.T) {
	cases := []struct {
		in   string
		want string
		fn   func(string) string
	}{
		{"nounderscores", UnknownSuffix, SessionSuffix},
		{"", UnknownSuffix, SessionSuffix},
		{"trailing_", UnknownSuffix, SessionSuffix},
		{"nounderscores", UnknownSequence, GoalSequence},
		{"goal_", UnknownSequence, GoalSequence},
	}
	for _, tc := range cases {
		if got := tc.fn(tc.in); got != tc.want {
			t.Fatalf("segment of %q = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestGoalIDFromMalformedSession(t *testing.T) {
	got := NewGoalID("garbage", 1)
	if !strings.Contains(got, UnknownSuffix) {
		t.Fatalf("goal id %q should carry the %q sentinel", got, UnknownSuffix)
	}
	if got != "goal_unkn_001" {
		t.Fatalf("goal id = %q, want goal_unkn_001", got)
	}
}
