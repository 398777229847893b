// Package child resolves and runs the wrapped assistant binary on a
// pseudo-terminal.
package child

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/creack/pty"
)

// EnvCommand names the environment variable overriding the wrapped binary.
const EnvCommand = "CCWB_CLAUDE_CMD"

// realBinaryName is the conventional name of the relocated assistant binary,
// expected adjacent to the wrapper executable.
const realBinaryName = "claude.real"

// Locate resolves the wrapped binary: the environment override wins, then
// claude.real next to the running executable.
func Locate() (string, error) {
	if cmd := os.Getenv(EnvCommand); cmd != "" {
		return cmd, nil
	}
	exe, err := os.Executable()
	if err == nil {
		candidate := filepath.Join(filepath.Dir(exe), realBinaryName)
		if _, statErr := os.Stat(candidate); statErr == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no wrapped binary found: set %s or place %s next to the wrapper", EnvCommand, realBinaryName)
}

// Process is a child process attached to a pty. Output bytes arrive on
// OutputChan in arrival order; Done closes once the child exits.
type Process struct {
	cmd      *exec.Cmd
	pty      *os.File
	outputCh chan []byte
	doneCh   chan struct{}
	exitCode int

	writeMu   sync.Mutex
	closeOnce sync.Once
}

// Start spawns command with args on a pty of the given size.
func Start(command string, args []string, rows, cols int) (*Process, error) {
	if rows < 1 {
		rows = 24
	}
	if cols < 1 {
		cols = 80
	}

	cmd := exec.Command(command, args...)
	cmd.Env = os.Environ()

	f, err := pty.StartWithSize(cmd, &pty.Winsize{
		Rows: uint16(rows),
		Cols: uint16(cols),
	})
	if err != nil {
		return nil, fmt.Errorf("starting %s: %w", command, err)
	}

	p := &Process{
		cmd:      cmd,
		pty:      f,
		outputCh: make(chan []byte, 100),
		doneCh:   make(chan struct{}),
		exitCode: -1,
	}

	go p.readOutput()
	go p.wait()

	return p, nil
}

// OutputChan returns the channel carrying raw output bytes. It closes when
// the pty read loop ends.
func (p *Process) OutputChan() <-chan []byte {
	return p.outputCh
}

// Done returns a channel closed once the child has exited.
func (p *Process) Done() <-chan struct{} {
	return p.doneCh
}

// ExitCode returns the child's exit code. Only meaningful after Done is
// closed; a child killed by signal reports 1.
func (p *Process) ExitCode() int {
	select {
	case <-p.doneCh:
	default:
		return -1
	}
	if p.exitCode < 0 {
		return 1
	}
	return p.exitCode
}

// Write forwards keystroke bytes to the child's terminal.
func (p *Process) Write(data []byte) (int, error) {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return p.pty.Write(data)
}

// Resize propagates a new pane size to the child pty.
func (p *Process) Resize(rows, cols int) error {
	if rows < 1 || cols < 1 {
		return nil
	}
	return pty.Setsize(p.pty, &pty.Winsize{
		Rows: uint16(rows),
		Cols: uint16(cols),
	})
}

// Terminate asks the child to exit. The read loop and Done fire once it
// does.
func (p *Process) Terminate() {
	if p.cmd.Process != nil {
		p.cmd.Process.Signal(syscall.SIGTERM)
	}
}

// Close releases the pty and reaps the child, killing it if still running.
func (p *Process) Close() error {
	p.closeOnce.Do(func() {
		if p.pty != nil {
			p.pty.Close()
		}
		if p.cmd.Process != nil {
			select {
			case <-p.doneCh:
			default:
				p.cmd.Process.Kill()
			}
		}
	})
	return nil
}

func (p *Process) readOutput() {
	defer close(p.outputCh)
	buf := make([]byte, 4096)
	for {
		n, err := p.pty.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			p.outputCh <- data
		}
		if err != nil {
			// Read errors on a pty mean the child side is gone.
			return
		}
	}
}

func (p *Process) wait() {
	err := p.cmd.Wait()
	if p.cmd.ProcessState != nil {
		p.exitCode = p.cmd.ProcessState.ExitCode()
	} else if err == nil {
		p.exitCode = 0
	}
	close(p.doneCh)
}
