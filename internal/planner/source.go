package planner

import (
	"os"
	"path/filepath"

	"github.com/pimesh/crew/internal/taskstore"
)

// maxPRDSize is the byte ceiling a discovered or supplied PRD is truncated
// to before it enters the planner prompt, per spec §4.9 step 2.
const maxPRDSize = 100000

// discoveryPaths is the fixed order source selection tries when no prd
// path is supplied explicitly, per spec §4.9 step 2.
var discoveryPaths = []string{
	"PRD.md", "prd.md", "SPEC.md", "spec.md",
	"REQUIREMENTS.md", "DESIGN.md", "PLAN.md",
}

// selectSource resolves the PRD path and content for a planning run. If
// prd is non-empty it is read directly. Otherwise every path in
// discoveryPaths is tried, first at the project root then under docs/.
// If nothing matches and prompt is non-empty, the prompt itself becomes
// the source under the PromptOnlySentinel path. Content is truncated to
// maxPRDSize bytes.
func selectSource(projectRoot, prd, prompt string) (path, content string, err error) {
	if prd != "" {
		data, err := os.ReadFile(resolvePath(projectRoot, prd))
		if err != nil {
			return "", "", err
		}
		return prd, truncatePRD(string(data)), nil
	}

	for _, candidates := range [][]string{discoveryPaths, withDocsPrefix(discoveryPaths)} {
		for _, candidate := range candidates {
			full := resolvePath(projectRoot, candidate)
			data, readErr := os.ReadFile(full)
			if readErr == nil {
				return candidate, truncatePRD(string(data)), nil
			}
		}
	}

	if prompt != "" {
		return taskstore.PromptOnlySentinel, truncatePRD(prompt), nil
	}

	return "", "", errNoSource
}

func withDocsPrefix(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = filepath.Join("docs", p)
	}
	return out
}

func resolvePath(projectRoot, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(projectRoot, path)
}

func truncatePRD(content string) string {
	if len(content) <= maxPRDSize {
		return content
	}
	return content[:maxPRDSize]
}
