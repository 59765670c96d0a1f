package acceptance_test

import (
	"os"
	"os/exec"
	"path/filepath"
)

// writeFile writes content to path, creating parent directories as needed.
func writeFile(path, content string) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		panic(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		panic(err)
	}
}

// writeScript writes an executable shell script, the fake-agent contract
// every planning/working scenario drives instead of a real coding agent:
// buildArgv appends a fixed set of flags the script is free to ignore, and
// the runner treats any non-JSON stdout line as plain accumulated output.
func writeScript(path, content string) {
	writeFile(path, content)
	if err := os.Chmod(path, 0755); err != nil {
		panic(err)
	}
}

// newCrewHome returns a fresh isolated CREW_HOME for one test, so the
// mesh registry and inboxes never touch a real developer's home dir.
func newCrewHome(tmpDir string) string {
	home := filepath.Join(tmpDir, "home")
	if err := os.MkdirAll(home, 0755); err != nil {
		panic(err)
	}
	return home
}

// crewCmd builds one invocation of the built binary, rooted at repoDir,
// scoped to its own CREW_HOME.
func crewCmd(repoDir, home string, args ...string) *exec.Cmd {
	cmd := exec.Command(binaryPath, args...)
	cmd.Dir = repoDir
	cmd.Env = append(os.Environ(), "CREW_HOME="+home)
	return cmd
}
