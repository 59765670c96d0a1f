package mesh

import (
	"os"
	"testing"
)

func TestRegisterAndGet(t *testing.T) {
	base := t.TempDir()
	r := NewRegistry(base)

	reg := AgentRegistration{Name: "brisk-wren", Cwd: "/project"}
	if err := r.Register(reg); err != nil {
		t.Fatalf("Register: %v", err)
	}

	got, ok := r.Get("brisk-wren")
	if !ok {
		t.Fatal("Get: not found after Register")
	}
	if got.PID != os.Getpid() {
		t.Errorf("Get: PID = %d, want %d (self)", got.PID, os.Getpid())
	}
}

func TestActivePeersPrunesDead(t *testing.T) {
	base := t.TempDir()
	r := NewRegistry(base)

	if err := r.Register(AgentRegistration{Name: "alive-one", Cwd: "/proj"}); err != nil {
		t.Fatalf("Register alive: %v", err)
	}
	if err := r.Register(AgentRegistration{Name: "dead-one", PID: 999999999, Cwd: "/proj"}); err != nil {
		t.Fatalf("Register dead: %v", err)
	}

	peers, err := r.ActivePeers(false, "")
	if err != nil {
		t.Fatalf("ActivePeers: %v", err)
	}
	if len(peers) != 1 || peers[0].Name != "alive-one" {
		t.Fatalf("ActivePeers = %v, want only alive-one", peers)
	}
	if _, ok := r.Get("dead-one"); ok {
		t.Error("dead-one registration should have been pruned")
	}
}

func TestActivePeersScopeToFolder(t *testing.T) {
	base := t.TempDir()
	r := NewRegistry(base)

	if err := r.Register(AgentRegistration{Name: "here", Cwd: "/a"}); err != nil {
		t.Fatalf("Register here: %v", err)
	}
	if err := r.Register(AgentRegistration{Name: "there", Cwd: "/b"}); err != nil {
		t.Fatalf("Register there: %v", err)
	}

	peers, err := r.ActivePeers(true, "/a")
	if err != nil {
		t.Fatalf("ActivePeers: %v", err)
	}
	if len(peers) != 1 || peers[0].Name != "here" {
		t.Fatalf("ActivePeers(scoped) = %v, want only here", peers)
	}
}

func TestUnregisterThenActivePeersEmpty(t *testing.T) {
	base := t.TempDir()
	r := NewRegistry(base)
	if err := r.Register(AgentRegistration{Name: "brisk-wren"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Unregister("brisk-wren"); err != nil {
		t.Fatalf("Unregister: %v", err)
	}
	if _, ok := r.Get("brisk-wren"); ok {
		t.Error("Get: registration should be gone")
	}
}

func TestAddAndReleaseReservations(t *testing.T) {
	base := t.TempDir()
	r := NewRegistry(base)
	if err := r.Register(AgentRegistration{Name: "brisk-wren"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.AddReservation("brisk-wren", "src/main.go", "editing"); err != nil {
		t.Fatalf("AddReservation: %v", err)
	}
	reg, _ := r.Get("brisk-wren")
	if len(reg.Reservations) != 1 {
		t.Fatalf("Reservations = %v, want 1 entry", reg.Reservations)
	}

	if err := r.ReleaseReservations("brisk-wren", nil, true); err != nil {
		t.Fatalf("ReleaseReservations: %v", err)
	}
	reg, _ = r.Get("brisk-wren")
	if len(reg.Reservations) != 0 {
		t.Fatalf("Reservations after release = %v, want empty", reg.Reservations)
	}
}

func TestIsAlive(t *testing.T) {
	if !IsAlive(os.Getpid()) {
		t.Error("IsAlive(self) = false, want true")
	}
	if IsAlive(999999999) {
		t.Error("IsAlive(bogus pid) = true, want false")
	}
	if IsAlive(0) {
		t.Error("IsAlive(0) = true, want false")
	}
}
