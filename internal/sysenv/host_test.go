package sysenv

import (
	"context"
	"os"
	"testing"
)

func TestGeteuidMatchesOS(t *testing.T) {
	if New().Geteuid() != os.Geteuid() {
		t.Fatalf("euid mismatch")
	}
}

func TestLookPath(t *testing.T) {
	if _, err := New().LookPath("sh"); err != nil {
		t.Fatalf("expected sh on PATH: %v", err)
	}
	if _, err := New().LookPath("definitely-not-a-real-tool-xyz"); err == nil {
		t.Fatalf("expected lookup failure")
	}
}

func TestMountsUnderUnknownPrefix(t *testing.T) {
	mounts, err := New().MountsUnder(context.Background(), "/nonexistent-sail-prefix")
	if err != nil {
		t.Skipf("mount table unavailable: %v", err)
	}
	if len(mounts) != 0 {
		t.Fatalf("expected no mounts, got %v", mounts)
	}
}
