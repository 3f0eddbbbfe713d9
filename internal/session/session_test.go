package session_test

import (
	"testing"

	"github.com/google/uuid"

	"github.com/vela-lang/velac/internal/diagnostics"
	"github.com/vela-lang/velac/internal/session"
)

func TestNewAssignsDistinctIDsAndWiresFields(t *testing.T) {
	sink := diagnostics.NewSink("a.vela", nil, nil)
	s1 := session.New("a.vela", sink)
	s2 := session.New("a.vela", sink)

	if s1.ID == uuid.Nil || s2.ID == uuid.Nil {
		t.Fatalf("session ids should be non-nil UUIDs")
	}
	if s1.ID == s2.ID {
		t.Fatalf("two sessions should not share a session id")
	}
	if s1.Filename != "a.vela" {
		t.Fatalf("expected Filename to be wired through, got %q", s1.Filename)
	}
	if s1.Sink != sink {
		t.Fatalf("expected the given sink to be stored as-is")
	}
	if s1.Strings == nil {
		t.Fatalf("expected a fresh string pool")
	}
	if s1.Strings == s2.Strings {
		t.Fatalf("each session should get its own string pool")
	}
}
