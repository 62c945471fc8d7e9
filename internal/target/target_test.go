package target

import (
	"bytes"
	"os/exec"
	"reflect"
	"strings"
	"testing"
)

func TestArgvRendering(t *testing.T) {
	t.Parallel()
	tgt := Target{
		Path: "/bin/backup",
		Args: []string{"--full", "--verbose"},
		Params: []Param{
			{Name: "Mode", Value: "nightly"},
			{Name: "Force"},
			{Name: "Retries", Value: "3"},
		},
	}
	want := []string{"--full", "--verbose", "-Mode", "nightly", "-Force", "-Retries", "3"}
	if got := tgt.Argv(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Argv() = %v, want %v", got, want)
	}
}

func TestParseParam(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw  string
		want Param
	}{
		{"Mode=nightly", Param{Name: "Mode", Value: "nightly"}},
		{"Force", Param{Name: "Force"}},
		{"Path=/tmp/a=b", Param{Name: "Path", Value: "/tmp/a=b"}},
	}
	for _, tt := range tests {
		got, err := ParseParam(tt.raw)
		if err != nil {
			t.Fatalf("ParseParam(%q): %v", tt.raw, err)
		}
		if got != tt.want {
			t.Fatalf("ParseParam(%q) = %+v, want %+v", tt.raw, got, tt.want)
		}
	}
	if _, err := ParseParam("=value"); err == nil {
		t.Fatal("expected error for empty name")
	}
}

func TestResolve(t *testing.T) {
	t.Parallel()
	if err := (Target{}).Resolve(); err == nil {
		t.Fatal("expected error for empty path")
	}
	if err := (Target{Path: "definitely-not-a-command-xyz"}).Resolve(); err == nil {
		t.Fatal("expected error for unknown command")
	}
}

func requireSh(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestRunSuccess(t *testing.T) {
	t.Parallel()
	requireSh(t)

	var out bytes.Buffer
	res := Target{Path: "sh", Args: []string{"-c", "echo done"}, Stdout: &out}.Run()
	if res.Failed() {
		t.Fatalf("unexpected failure: exit=%d err=%v", res.ExitCode, res.Err)
	}
	if strings.TrimSpace(out.String()) != "done" {
		t.Fatalf("stdout = %q", out.String())
	}
	if res.FinishedAt.Before(res.StartedAt) {
		t.Fatal("finished before started")
	}
}

func TestRunNonZeroExit(t *testing.T) {
	t.Parallel()
	requireSh(t)

	res := Target{Path: "sh", Args: []string{"-c", "exit 3"}}.Run()
	if !res.Failed() {
		t.Fatal("expected failure")
	}
	if res.ExitCode != 3 {
		t.Fatalf("exit code = %d, want 3", res.ExitCode)
	}
	if res.Err == nil || !strings.Contains(res.Err.Error(), "exit status 3") {
		t.Fatalf("err = %v", res.Err)
	}
}

func TestRunStartFailure(t *testing.T) {
	t.Parallel()
	res := Target{Path: "/nonexistent/cmd"}.Run()
	if !res.Failed() || res.Err == nil {
		t.Fatalf("expected start failure, got %+v", res)
	}
	if res.ExitCode != 0 {
		t.Fatalf("start failure should not fake an exit code, got %d", res.ExitCode)
	}
}
