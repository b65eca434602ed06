package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestValidatePipeline(t *testing.T) {
	defer func() { pipeline = "" }()

	for _, p := range []string{"", "r", "rip", "IP", "pp"} {
		pipeline = p
		if err := validatePipeline(); err != nil {
			t.Errorf("pipeline %q: unexpected error %v", p, err)
		}
	}

	for _, p := range []string{"rmp", "x"} {
		pipeline = p
		if err := validatePipeline(); err == nil {
			t.Errorf("pipeline %q: expected error", p)
		}
	}
}

func TestExecutePipeline_StepNotFound(t *testing.T) {
	defer func() { pipeline = "" }()

	pipeline = "ip"
	if err := executePipeline("take.wav", 'r'); err == nil {
		t.Fatal("expected error when the start step is missing")
	}

	pipeline = ""
	if err := executePipeline("take.wav", 'r'); err != nil {
		t.Fatalf("empty pipeline should be a no-op: %v", err)
	}
}

func TestLatestRecording(t *testing.T) {
	dir := t.TempDir()
	older := filepath.Join(dir, "take-20261014-093000-aaaaaaaa.wav")
	newer := filepath.Join(dir, "take-20261014-094500-bbbbbbbb.wav")
	other := filepath.Join(dir, "notes.txt")

	for _, p := range []string{older, newer, other} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(older, past, past); err != nil {
		t.Fatal(err)
	}

	got, err := latestRecording(filepath.Join(dir, "take-{time}-{session}.wav"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != newer {
		t.Errorf("expected %s, got %s", newer, got)
	}

	if _, err := latestRecording(filepath.Join(dir, "missing-{session}.wav")); err == nil {
		t.Error("expected error when nothing matches")
	}
}
