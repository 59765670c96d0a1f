package mesh

import (
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/pimesh/crew/internal/fileutil"
)

// Registry owns the registration files under a shared base root B.
type Registry struct {
	Base string
}

// NewRegistry returns a Registry rooted at base (typically fileutil.HomeBase()).
func NewRegistry(base string) *Registry {
	return &Registry{Base: base}
}

// IsAlive reports whether pid names a live OS process, grounded on the
// teacher's engine.IsProcessAlive (os.FindProcess always succeeds on POSIX,
// so liveness is determined by signalling it with signal 0).
func IsAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

// Register writes reg to B/registry/<name>.json, stamping PID and
// StartedAt if unset.
func (r *Registry) Register(reg AgentRegistration) error {
	if reg.PID == 0 {
		reg.PID = os.Getpid()
	}
	if reg.StartedAt.IsZero() {
		reg.StartedAt = time.Now().UTC()
	}
	if reg.Activity.LastActivityAt.IsZero() {
		reg.Activity.LastActivityAt = reg.StartedAt
	}
	return fileutil.AtomicWriteJSON(fileutil.RegistryFile(r.Base, reg.Name), &reg)
}

// Refresh re-stamps an existing registration's activity timestamp and
// persists it.
func (r *Registry) Refresh(name string, mutate func(*AgentRegistration)) error {
	reg, ok := r.Get(name)
	if !ok {
		return os.ErrNotExist
	}
	if mutate != nil {
		mutate(reg)
	}
	reg.Activity.LastActivityAt = time.Now().UTC()
	return fileutil.AtomicWriteJSON(fileutil.RegistryFile(r.Base, reg.Name), reg)
}

// Get reads a single registration by name.
func (r *Registry) Get(name string) (*AgentRegistration, bool) {
	var reg AgentRegistration
	if !fileutil.ReadJSON(fileutil.RegistryFile(r.Base, name), &reg) {
		return nil, false
	}
	return &reg, true
}

// Unregister deletes name's registration file, releasing all of its
// reservations by construction (spec §4.4: clean shutdown deletes the
// registration file).
func (r *Registry) Unregister(name string) error {
	err := os.Remove(fileutil.RegistryFile(r.Base, name))
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

// Rename atomically moves a registration from oldName to newName and
// relocates its inbox directory. Per spec §4.3, other peers may briefly
// observe the old name; this is tolerated.
func (r *Registry) Rename(oldName, newName string) error {
	reg, ok := r.Get(oldName)
	if !ok {
		return os.ErrNotExist
	}
	reg.Name = newName
	if err := fileutil.AtomicWriteJSON(fileutil.RegistryFile(r.Base, newName), reg); err != nil {
		return err
	}
	oldInbox := fileutil.InboxDir(r.Base, oldName)
	newInbox := fileutil.InboxDir(r.Base, newName)
	if fileutil.Exists(oldInbox) {
		if err := fileutil.EnsureDir(filepath.Dir(newInbox)); err == nil {
			_ = os.Rename(oldInbox, newInbox)
		}
	}
	return r.Unregister(oldName)
}

// ActivePeers enumerates registry files and returns those whose pid is
// alive. Dead entries are pruned best-effort as a side effect, per spec
// §4.3 ("dead entries are pruned best effort by any reader"). When
// scopeToFolder is true, only peers whose canonicalized cwd matches cwd
// are returned.
func (r *Registry) ActivePeers(scopeToFolder bool, cwd string) ([]AgentRegistration, error) {
	dir := fileutil.RegistryDir(r.Base)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var canonCwd string
	if scopeToFolder {
		canonCwd, _ = fileutil.CanonicalPath(cwd)
	}

	var peers []AgentRegistration
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".json")
		reg, ok := r.Get(name)
		if !ok {
			continue
		}
		if !IsAlive(reg.PID) {
			_ = r.Unregister(name)
			continue
		}
		if scopeToFolder {
			peerCwd, _ := fileutil.CanonicalPath(reg.Cwd)
			if peerCwd != canonCwd {
				continue
			}
		}
		peers = append(peers, *reg)
	}
	return peers, nil
}

// AddReservation appends a reservation to name's registration atomically.
func (r *Registry) AddReservation(name, path, reason string) error {
	reg, ok := r.Get(name)
	if !ok {
		return os.ErrNotExist
	}
	reg.Reservations = append(reg.Reservations, Reservation{Path: path, Reason: reason})
	return fileutil.AtomicWriteJSON(fileutil.RegistryFile(r.Base, name), reg)
}

// ReleaseReservations removes reservations for name matching paths, or all
// of them when all is true.
func (r *Registry) ReleaseReservations(name string, paths []string, all bool) error {
	reg, ok := r.Get(name)
	if !ok {
		return os.ErrNotExist
	}
	if all {
		reg.Reservations = nil
	} else {
		want := make(map[string]bool, len(paths))
		for _, p := range paths {
			want[p] = true
		}
		kept := reg.Reservations[:0]
		for _, res := range reg.Reservations {
			if !want[res.Path] {
				kept = append(kept, res)
			}
		}
		reg.Reservations = kept
	}
	return fileutil.AtomicWriteJSON(fileutil.RegistryFile(r.Base, name), reg)
}
