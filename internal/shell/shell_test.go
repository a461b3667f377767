package shell

import (
	"context"
	"testing"
	"time"
)

func TestRunCapturesOutput(t *testing.T) {
	res, err := Run(context.Background(), "echo hello", t.TempDir(), 10*time.Second)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Output != "hello" {
		t.Fatalf("expected %q, got %q", "hello", res.Output)
	}
	if res.ExitCode != 0 {
		t.Fatalf("expected exit 0, got %d", res.ExitCode)
	}
}

func TestRunReportsNonZeroExit(t *testing.T) {
	res, err := Run(context.Background(), "exit 3", t.TempDir(), 10*time.Second)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.ExitCode != 3 {
		t.Fatalf("expected exit 3, got %d", res.ExitCode)
	}
}

func TestRunTimeout(t *testing.T) {
	res, err := Run(context.Background(), "sleep 5", t.TempDir(), 100*time.Millisecond)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.TimedOut {
		t.Fatal("expected timeout")
	}
}

func TestDangerous(t *testing.T) {
	cases := []struct {
		command string
		want    bool
	}{
		{"echo ok", false},
		{"sudo rm file", true},
		{"rm -rf /", true},
		{"cat data > /dev/sda", true},
	}
	for _, tc := range cases {
		if got := Dangerous(tc.command); got != tc.want {
			t.Fatalf("Dangerous(%q) = %v, want %v", tc.command, got, tc.want)
		}
	}
}
