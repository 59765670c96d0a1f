package fileutil

import (
	"os"
	"path/filepath"
)

// HomeBaseEnv overrides the shared base root, used in tests so the mesh
// does not touch a developer's real home directory.
const HomeBaseEnv = "CREW_HOME"

// HomeBase resolves B, the shared base root for cross-project mesh state
// (registry, inboxes). It honors CREW_HOME for tests and falls back to
// ~/.pi/agent/messenger.
func HomeBase() string {
	if override := os.Getenv(HomeBaseEnv); override != "" {
		return override
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".pi", "agent", "messenger")
}

// RegistryDir returns B/registry.
func RegistryDir(base string) string {
	return filepath.Join(base, "registry")
}

// RegistryFile returns B/registry/<name>.json.
func RegistryFile(base, name string) string {
	return filepath.Join(RegistryDir(base), name+".json")
}

// InboxDir returns B/inbox/<name>.
func InboxDir(base, name string) string {
	return filepath.Join(base, "inbox", name)
}

// MeshRoot returns C/.pi/messenger for a project root C.
func MeshRoot(projectRoot string) string {
	return filepath.Join(projectRoot, ".pi", "messenger")
}

// FeedPath returns C/.pi/messenger/feed.jsonl.
func FeedPath(projectRoot string) string {
	return filepath.Join(MeshRoot(projectRoot), "feed.jsonl")
}

// CrewDir returns C/.pi/messenger/crew.
func CrewDir(projectRoot string) string {
	return filepath.Join(MeshRoot(projectRoot), "crew")
}

// PlanPath returns the Plan record path.
func PlanPath(projectRoot string) string {
	return filepath.Join(CrewDir(projectRoot), "plan.json")
}

// PlanSpecPath returns the last planner output markdown path.
func PlanSpecPath(projectRoot string) string {
	return filepath.Join(CrewDir(projectRoot), "plan.md")
}

// TasksDir returns C/.pi/messenger/crew/tasks.
func TasksDir(projectRoot string) string {
	return filepath.Join(CrewDir(projectRoot), "tasks")
}

// TaskJSONPath returns the task record path for id.
func TaskJSONPath(projectRoot, id string) string {
	return filepath.Join(TasksDir(projectRoot), id+".json")
}

// TaskSpecPath returns the task specification markdown path for id.
func TaskSpecPath(projectRoot, id string) string {
	return filepath.Join(TasksDir(projectRoot), id+".md")
}

// TaskProgressPath returns the append-only progress log path for id.
func TaskProgressPath(projectRoot, id string) string {
	return filepath.Join(TasksDir(projectRoot), id+".progress.md")
}

// BlocksDir returns C/.pi/messenger/crew/blocks.
func BlocksDir(projectRoot string) string {
	return filepath.Join(CrewDir(projectRoot), "blocks")
}

// BlockPath returns the block context path for id.
func BlockPath(projectRoot, id string) string {
	return filepath.Join(BlocksDir(projectRoot), id+".md")
}

// PlanningProgressPath returns the planning-progress.md path.
func PlanningProgressPath(projectRoot string) string {
	return filepath.Join(CrewDir(projectRoot), "planning-progress.md")
}

// PlanningOutlinePath returns the planning-outline.md path.
func PlanningOutlinePath(projectRoot string) string {
	return filepath.Join(CrewDir(projectRoot), "planning-outline.md")
}

// PlanningStatePath returns the planning-state.json path.
func PlanningStatePath(projectRoot string) string {
	return filepath.Join(CrewDir(projectRoot), "planning-state.json")
}

// AutonomousStatePath returns the autonomous-state.json path.
func AutonomousStatePath(projectRoot string) string {
	return filepath.Join(CrewDir(projectRoot), "autonomous-state.json")
}

// ConfigPath returns the project crew overrides path.
func ConfigPath(projectRoot string) string {
	return filepath.Join(CrewDir(projectRoot), "config.json")
}

// LobbyAlivePath returns the keep-alive sentinel path for a lobby worker id.
func LobbyAlivePath(projectRoot, id string) string {
	return filepath.Join(CrewDir(projectRoot), "lobby-"+id+".alive")
}

// ProjectMeshConfigPath returns <project>/.pi/pi-messenger.json.
func ProjectMeshConfigPath(projectRoot string) string {
	return filepath.Join(projectRoot, ".pi", "pi-messenger.json")
}

// UserMeshConfigPath returns <home>/.pi/pi-messenger.json (user scope).
func UserMeshConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".pi", "pi-messenger.json")
}

// UserSettingsPath returns <home>/.pi/settings.json, whose "messenger" key
// is the lowest-precedence user-scoped config layer.
func UserSettingsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".pi", "settings.json")
}
