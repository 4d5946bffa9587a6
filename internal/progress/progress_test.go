package progress

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestStages(t *testing.T) {
	var buf bytes.Buffer
	s := NewStages(&buf)
	tracker := s.Track("structure")

	tracker.Begin("fingerprinting")
	tracker.Add(2)
	tracker.Tick("a.py")
	tracker.Tick("b.py")

	if s.cur == nil || s.stage != "fingerprinting" {
		t.Fatalf("stage = %q, want fingerprinting", s.stage)
	}
	first := s.cur

	tracker.Begin("comparing")
	tracker.Add(1)
	tracker.Tick("a.py")
	if s.cur == first || s.stage != "comparing" {
		t.Error("a new stage should start a new bar")
	}
	if !strings.Contains(s.cur.label, "structure: comparing") {
		t.Errorf("label = %q", s.cur.label)
	}

	s.Done()
	if s.cur != nil {
		t.Error("Done should clear the current bar")
	}
}

func TestStagesFail(t *testing.T) {
	var buf bytes.Buffer
	s := NewStages(&buf)
	s.Track("text")

	s.Fail(errors.New("disk on fire"))
	if !strings.Contains(buf.String(), "text error: disk on fire") {
		t.Errorf("output = %q", buf.String())
	}
}
