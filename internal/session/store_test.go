package session

import (
	"fmt"
	"strings"
	"testing"
)

func TestGetOrCreateMintsID(t *testing.T) {
	s := NewStore(5)
	id := s.GetOrCreate("")
	if !strings.HasPrefix(id, "sess_") {
		t.Fatalf("minted id %q lacks sess_ prefix", id)
	}
	if got := s.GetOrCreate(id); got != id {
		t.Fatalf("existing id changed: %q -> %q", id, got)
	}
	if s.Count() != 1 {
		t.Fatalf("count = %d, want 1", s.Count())
	}
}

func TestAppendDefaults(t *testing.T) {
	s := NewStore(5)
	s.Append("sess_x", Message{Role: "user", Content: "hi"})

	got := s.Recent("sess_x", 0, "")
	if len(got) != 1 {
		t.Fatalf("history length = %d, want 1", len(got))
	}
	if got[0].Kind != KindChat {
		t.Fatalf("kind = %q, want %q", got[0].Kind, KindChat)
	}
	if got[0].WorldTimestamp != "000000" {
		t.Fatalf("world timestamp = %q, want 000000", got[0].WorldTimestamp)
	}
	if got[0].At.IsZero() {
		t.Fatalf("At was not defaulted")
	}
}

func TestTrimKeepsRecentInOrder(t *testing.T) {
	s := NewStore(3)
	for i := 0; i < 20; i++ {
		s.Append("sess_x", Message{Role: "user", Content: fmt.Sprintf("m%d", i)})
	}

	all := s.Recent("sess_x", 100, "")
	if len(all) != 6 {
		t.Fatalf("raw history length = %d, want 6 (2x bound)", len(all))
	}
	for i, msg := range all {
		want := fmt.Sprintf("m%d", 14+i)
		if msg.Content != want {
			t.Fatalf("entry %d = %q, want %q", i, msg.Content, want)
		}
	}

	// Trimming an already-trimmed history keeps the same tail.
	s.Append("sess_x", Message{Role: "user", Content: "m20"})
	all = s.Recent("sess_x", 100, "")
	if len(all) != 6 || all[len(all)-1].Content != "m20" {
		t.Fatalf("trim after append broke the tail: %v", all)
	}
}

func TestRecentFiltersByKind(t *testing.T) {
	s := NewStore(10)
	s.Append("sess_x", Message{Role: "user", Content: "chat1", Kind: KindChat})
	s.Append("sess_x", Message{Role: "player", Content: "event1", Kind: KindEvent})
	s.Append("sess_x", Message{Role: "user", Content: "chat2", Kind: KindChat})

	events := s.Recent("sess_x", 0, KindEvent)
	if len(events) != 1 || events[0].Content != "event1" {
		t.Fatalf("event filter = %v, want single event1", events)
	}
	chats := s.Recent("sess_x", 0, KindChat)
	if len(chats) != 2 || chats[0].Content != "chat1" || chats[1].Content != "chat2" {
		t.Fatalf("chat filter lost order: %v", chats)
	}
}

func TestNextGoalSequenceMonotonic(t *testing.T) {
	s := NewStore(5)
	for want := 1; want <= 5; want++ {
		if got := s.NextGoalSequence("sess_x"); got != want {
			t.Fatalf("sequence = %d, want %d", got, want)
		}
	}
	// Other sessions do not share the counter.
	if got := s.NextGoalSequence("sess_y"); got != 1 {
		t.Fatalf("fresh session sequence = %d, want 1", got)
	}
}

func TestClearDropsSession(t *testing.T) {
	s := NewStore(5)
	s.Append("sess_x", Message{Role: "user", Content: "hi"})
	s.NextGoalSequence("sess_x")

	s.Clear("sess_x")
	if got := s.Recent("sess_x", 0, ""); len(got) != 0 {
		t.Fatalf("history survived clear: %v", got)
	}
	if got := s.NextGoalSequence("sess_x"); got != 1 {
		t.Fatalf("sequence after clear = %d, want 1", got)
	}
}

func TestClearAll(t *testing.T) {
	s := NewStore(5)
	s.Append("a", Message{Content: "x"})
	s.Append("b", Message{Content: "y"})
	s.ClearAll()
	if s.Count() != 0 {
		t.Fatalf("count after ClearAll = %d, want 0", s.Count())
	}
}
