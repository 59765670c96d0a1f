// Package reservation implements the path-prefix conflict detection rule
// from spec §4.4, layered on top of the reservation lists embedded in
// each peer's mesh registration.
package reservation

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pimesh/crew/internal/mesh"
)

// Conflict names the first peer whose reservation overlaps a proposed
// write-like operation.
type Conflict struct {
	Peer   string
	Folder string
	Branch string
	Reason string
	Path   string
}

// Error renders a structured reason naming the conflicting peer, folder,
// branch, and reason, per spec §4.4.
func (c Conflict) Error() string {
	reason := c.Reason
	if reason == "" {
		reason = "no reason given"
	}
	return fmt.Sprintf("%s holds a reservation on %s (folder=%s branch=%s reason=%s)", c.Peer, c.Path, c.Folder, c.Branch, reason)
}

// Engine checks and records reservations against the mesh registry.
type Engine struct {
	Registry *mesh.Registry
}

// New returns an Engine backed by reg.
func New(reg *mesh.Registry) *Engine {
	return &Engine{Registry: reg}
}

// pathsConflict reports whether a is a prefix of b or b is a prefix of a
// under path-component semantics — "src/foo" does not conflict with
// "src/foobar", but "src/foo" does conflict with "src/foo/bar.go".
func pathsConflict(a, b string) bool {
	a = filepath.Clean(a)
	b = filepath.Clean(b)
	if a == b {
		return true
	}
	return isComponentPrefix(a, b) || isComponentPrefix(b, a)
}

func isComponentPrefix(prefix, path string) bool {
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	rest := path[len(prefix):]
	return strings.HasPrefix(rest, string(filepath.Separator))
}

// Conflicts computes conflicts(file, self) per spec §4.4: every active
// peer other than self whose reservation overlaps file.
func (e *Engine) Conflicts(file, self string, peers []mesh.AgentRegistration) []Conflict {
	var conflicts []Conflict
	for _, peer := range peers {
		if peer.Name == self {
			continue
		}
		for _, res := range peer.Reservations {
			if pathsConflict(res.Path, file) {
				conflicts = append(conflicts, Conflict{
					Peer:   peer.Name,
					Folder: peer.Cwd,
					Branch: peer.GitBranch,
					Reason: res.Reason,
					Path:   res.Path,
				})
			}
		}
	}
	return conflicts
}

// Reserve records a reservation for self without checking it against
// other peers' reservations. Conflicts do not block the reservation
// itself — spec §4.4 blocks the triggering write-like tool call, which
// Conflicts is used to check separately; Reserve only records intent.
func (e *Engine) Reserve(self, path, reason string) error {
	return e.Registry.AddReservation(self, path, reason)
}

// CheckWrite blocks a write-like tool invocation on file if any other
// active peer holds a conflicting reservation. It returns the first
// conflict found, or nil if the write may proceed.
func (e *Engine) CheckWrite(file, self string, scopeToFolder bool, cwd string) (*Conflict, error) {
	peers, err := e.Registry.ActivePeers(scopeToFolder, cwd)
	if err != nil {
		return nil, fmt.Errorf("list active peers: %w", err)
	}
	conflicts := e.Conflicts(file, self, peers)
	if len(conflicts) == 0 {
		return nil, nil
	}
	return &conflicts[0], nil
}

// Release removes reservations for self, either an explicit set of paths
// or all of them.
func (e *Engine) Release(self string, paths []string, all bool) error {
	return e.Registry.ReleaseReservations(self, paths, all)
}
