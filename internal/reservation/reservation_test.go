package reservation

import (
	"testing"

	"github.com/pimesh/crew/internal/mesh"
)

func TestPathsConflict(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"identical", "src/foo.go", "src/foo.go", true},
		{"dir prefix of file", "src", "src/foo.go", true},
		{"file prefix of itself via subdir", "src/foo", "src/foo/bar.go", true},
		{"sibling with shared prefix does not conflict", "src/foo", "src/foobar", false},
		{"unrelated paths", "src/foo.go", "docs/readme.md", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pathsConflict(tt.a, tt.b); got != tt.want {
				t.Errorf("pathsConflict(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestConflictsNamesFirstPeer(t *testing.T) {
	base := t.TempDir()
	reg := mesh.NewRegistry(base)
	if err := reg.Register(mesh.AgentRegistration{Name: "self"}); err != nil {
		t.Fatalf("Register self: %v", err)
	}
	if err := reg.Register(mesh.AgentRegistration{Name: "other", Cwd: "/proj", GitBranch: "feature/x"}); err != nil {
		t.Fatalf("Register other: %v", err)
	}
	if err := reg.AddReservation("other", "src/foo", "refactor"); err != nil {
		t.Fatalf("AddReservation: %v", err)
	}

	e := New(reg)
	peers, _ := reg.ActivePeers(false, "")
	conflicts := e.Conflicts("src/foo/bar.go", "self", peers)
	if len(conflicts) != 1 {
		t.Fatalf("Conflicts = %v, want 1 entry", conflicts)
	}
	if conflicts[0].Peer != "other" || conflicts[0].Branch != "feature/x" || conflicts[0].Reason != "refactor" {
		t.Errorf("Conflicts[0] = %+v, want peer=other branch=feature/x reason=refactor", conflicts[0])
	}
}

func TestConflictsExcludesSelf(t *testing.T) {
	base := t.TempDir()
	reg := mesh.NewRegistry(base)
	if err := reg.Register(mesh.AgentRegistration{Name: "self"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := reg.AddReservation("self", "src/foo.go", ""); err != nil {
		t.Fatalf("AddReservation: %v", err)
	}
	e := New(reg)
	peers, _ := reg.ActivePeers(false, "")
	if conflicts := e.Conflicts("src/foo.go", "self", peers); len(conflicts) != 0 {
		t.Errorf("Conflicts against own reservation = %v, want none", conflicts)
	}
}

func TestCheckWriteNoConflict(t *testing.T) {
	base := t.TempDir()
	reg := mesh.NewRegistry(base)
	if err := reg.Register(mesh.AgentRegistration{Name: "self"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	e := New(reg)
	conflict, err := e.CheckWrite("src/foo.go", "self", false, "")
	if err != nil {
		t.Fatalf("CheckWrite: %v", err)
	}
	if conflict != nil {
		t.Errorf("CheckWrite = %+v, want nil", conflict)
	}
}
