// Package daemon tracks the background crv API server through a PID file in
// the config directory.
package daemon

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// File names of the background server, relative to the config directory.
const (
	PIDFileName = "crv-serve.pid"
	LogFileName = "crv-serve.log"
)

var (
	// ErrNotRunning means no live server is recorded.
	ErrNotRunning = errors.New("server is not running")
	// ErrAlreadyRunning means another live process holds the PID file.
	ErrAlreadyRunning = errors.New("server already running")
	// ErrInvalidPID means the PID file does not hold a positive number.
	ErrInvalidPID = errors.New("invalid PID file content")
)

const pollInterval = 100 * time.Millisecond

// PIDFile records the pid of the background server.
type PIDFile struct {
	Path string
}

// NewPIDFile returns the PID file at path.
func NewPIDFile(path string) *PIDFile {
	return &PIDFile{Path: path}
}

// InDir returns the server PID file inside dir.
func InDir(dir string) *PIDFile {
	return NewPIDFile(filepath.Join(dir, PIDFileName))
}

// Read returns the recorded pid. A missing file is ErrNotRunning.
func (p *PIDFile) Read() (int, error) {
	data, err := os.ReadFile(p.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, ErrNotRunning
	}
	if err != nil {
		return 0, fmt.Errorf("read PID file: %w", err)
	}
	raw := strings.TrimSpace(string(data))
	pid, err := strconv.Atoi(raw)
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPID, raw)
	}
	return pid, nil
}

// WritePID records pid, creating the directory when needed.
func (p *PIDFile) WritePID(pid int) error {
	if err := os.MkdirAll(filepath.Dir(p.Path), 0o755); err != nil {
		return fmt.Errorf("create PID directory: %w", err)
	}
	return os.WriteFile(p.Path, []byte(strconv.Itoa(pid)+"\n"), 0o644)
}

// Status describes the recorded server.
type Status struct {
	PID     int
	Running bool
	// Stale is set when a leftover PID file was found and removed.
	Stale bool
}

// Status reports whether the recorded server is alive. A file naming a dead
// process, or holding garbage, is stale and is removed.
func (p *PIDFile) Status() Status {
	pid, err := p.Read()
	if errors.Is(err, ErrNotRunning) {
		return Status{}
	}
	if err != nil {
		_ = p.remove()
		return Status{Stale: true}
	}
	if alive(pid) {
		return Status{PID: pid, Running: true}
	}
	_ = p.remove()
	return Status{PID: pid, Stale: true}
}

// Claim records pid as the server. It fails with ErrAlreadyRunning while a
// different live process is recorded.
func (p *PIDFile) Claim(pid int) error {
	if st := p.Status(); st.Running && st.PID != pid {
		return fmt.Errorf("%w (pid %d)", ErrAlreadyRunning, st.PID)
	}
	return p.WritePID(pid)
}

// Release removes the file if it still names pid.
func (p *PIDFile) Release(pid int) error {
	cur, err := p.Read()
	if errors.Is(err, ErrNotRunning) || (err == nil && cur != pid) {
		return nil
	}
	return p.remove()
}

// Stop terminates the recorded server, waiting up to grace for it to exit
// before killing it. It returns the pid and whether a kill was needed.
func (p *PIDFile) Stop(grace time.Duration) (pid int, killed bool, err error) {
	st := p.Status()
	if !st.Running {
		return 0, false, ErrNotRunning
	}
	if err := terminate(st.PID); err != nil {
		return st.PID, false, fmt.Errorf("signal server (pid %d): %w", st.PID, err)
	}
	if waitExit(st.PID, grace) {
		_ = p.remove()
		return st.PID, false, nil
	}
	if err := kill(st.PID); err != nil {
		return st.PID, false, fmt.Errorf("kill server (pid %d): %w", st.PID, err)
	}
	waitExit(st.PID, grace)
	_ = p.remove()
	return st.PID, true, nil
}

func (p *PIDFile) remove() error {
	if err := os.Remove(p.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// waitExit polls until pid is gone or timeout passes.
func waitExit(pid int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if !alive(pid) {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(pollInterval)
	}
}
