package child

import (
	"os"
	"testing"
)

func TestLocateEnvOverride(t *testing.T) {
	t.Setenv(EnvCommand, "/usr/local/bin/claude-alt")

	cmd, err := Locate()
	if err != nil {
		t.Fatalf("Locate failed: %v", err)
	}
	if cmd != "/usr/local/bin/claude-alt" {
		t.Errorf("Locate = %q, want env override", cmd)
	}
}

func TestLocateMissing(t *testing.T) {
	t.Setenv(EnvCommand, "")
	os.Unsetenv(EnvCommand)

	// No claude.real next to the test binary, so resolution must fail with
	// a clear error.
	if _, err := Locate(); err == nil {
		t.Skip("claude.real present next to test binary")
	}
}

func TestStartAndExitCode(t *testing.T) {
	p, err := Start("sh", []string{"-c", "printf hello; exit 7"}, 24, 80)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer p.Close()

	var output []byte
	for data := range p.OutputChan() {
		output = append(output, data...)
	}
	<-p.Done()

	if p.ExitCode() != 7 {
		t.Errorf("ExitCode = %d, want 7", p.ExitCode())
	}
	if string(output) == "" {
		t.Error("no output received from child")
	}
}

func TestWriteReachesChild(t *testing.T) {
	p, err := Start("cat", nil, 24, 80)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer p.Close()

	if _, err := p.Write([]byte("ping\n")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	var output []byte
	for data := range p.OutputChan() {
		output = append(output, data...)
		if len(output) >= 4 {
			break
		}
	}
	if len(output) == 0 {
		t.Fatal("cat echoed nothing")
	}
}

func TestExitCodeBeforeDone(t *testing.T) {
	p, err := Start("sleep", []string{"5"}, 24, 80)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer p.Close()

	if code := p.ExitCode(); code != -1 {
		t.Errorf("ExitCode before exit = %d, want -1", code)
	}
	p.Terminate()
	<-p.Done()
}
