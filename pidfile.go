package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

const (
	pidFilePermissions = 0o644
	pidDirPermissions  = 0o755
)

// daemonRecord is the content of the PID file: the daemon's PID on the first
// line and the address its bridge listens on, if known, on the second.
type daemonRecord struct {
	PID    int
	Listen string
}

// pidFile is the PID file held by a running daemon. The exclusive flock on
// it is what keeps a second daemon from starting.
type pidFile struct {
	path string
	f    *os.File
}

// acquirePIDFile creates path, locks it, and records the current PID.
func acquirePIDFile(path string) (*pidFile, error) {
	if path == "" {
		return nil, errors.New("PID file path is empty: cannot determine data directory")
	}

	if err := os.MkdirAll(filepath.Dir(path), pidDirPermissions); err != nil {
		return nil, fmt.Errorf("creating PID file directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, pidFilePermissions)
	if err != nil {
		return nil, fmt.Errorf("opening PID file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()

		return nil, fmt.Errorf("another tabwarden daemon is already running (could not lock %s)", path)
	}

	p := &pidFile{path: path, f: f}
	if err := p.record(""); err != nil {
		f.Close()

		return nil, err
	}

	return p, nil
}

// record rewrites the file with the current PID and the bridge address.
func (p *pidFile) record(listen string) error {
	if err := p.f.Truncate(0); err != nil {
		return fmt.Errorf("truncating PID file: %w", err)
	}

	if _, err := p.f.WriteAt([]byte(formatDaemonRecord(daemonRecord{PID: os.Getpid(), Listen: listen})), 0); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}

	// Readers must see the address before the CLI dials it.
	if err := p.f.Sync(); err != nil {
		return fmt.Errorf("syncing PID file: %w", err)
	}

	return nil
}

// release removes the file and drops the lock.
func (p *pidFile) release() {
	os.Remove(p.path)
	p.f.Close()
}

func formatDaemonRecord(r daemonRecord) string {
	if r.Listen == "" {
		return strconv.Itoa(r.PID) + "\n"
	}

	return strconv.Itoa(r.PID) + "\n" + r.Listen + "\n"
}

// parseDaemonRecord accepts a bare PID too, as written before the bridge
// address is known.
func parseDaemonRecord(data string) (daemonRecord, error) {
	lines := strings.Split(strings.TrimSpace(data), "\n")

	pid, err := strconv.Atoi(strings.TrimSpace(lines[0]))
	if err != nil || pid <= 0 {
		return daemonRecord{}, fmt.Errorf("invalid PID %q", lines[0])
	}

	r := daemonRecord{PID: pid}
	if len(lines) > 1 {
		r.Listen = strings.TrimSpace(lines[1])
	}

	return r, nil
}

func readPIDFile(path string) (daemonRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return daemonRecord{}, fmt.Errorf("reading PID file: %w", err)
	}

	r, err := parseDaemonRecord(string(data))
	if err != nil {
		return daemonRecord{}, fmt.Errorf("%s: %w", path, err)
	}

	return r, nil
}

// runningDaemon finds the daemon named by the PID file and checks that it is
// alive. A PID file left behind by a dead daemon is removed.
func runningDaemon(pidPath string) (*os.Process, daemonRecord, error) {
	r, err := readPIDFile(pidPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, daemonRecord{}, fmt.Errorf("no running daemon found (no PID file at %s)", pidPath)
		}

		return nil, daemonRecord{}, err
	}

	proc, err := os.FindProcess(r.PID)
	if err != nil {
		return nil, daemonRecord{}, fmt.Errorf("finding process %d: %w", r.PID, err)
	}

	if err := proc.Signal(syscall.Signal(0)); err != nil {
		os.Remove(pidPath)

		return nil, daemonRecord{}, fmt.Errorf("daemon (PID %d) is not running (stale PID file removed)", r.PID)
	}

	return proc, r, nil
}

// sendSIGHUP asks the running daemon to reload its config file.
func sendSIGHUP(pidPath string) error {
	proc, r, err := runningDaemon(pidPath)
	if err != nil {
		return err
	}

	if err := proc.Signal(syscall.SIGHUP); err != nil {
		return fmt.Errorf("sending SIGHUP to daemon (PID %d): %w", r.PID, err)
	}

	return nil
}
