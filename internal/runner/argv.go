package runner

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// knownTools is the closed set of built-in tool names the subprocess
// contract accepts via --tools, per spec §6.
var knownTools = map[string]bool{
	"read": true, "bash": true, "edit": true, "write": true,
	"grep": true, "find": true, "ls": true,
}

// hasThinkingSuffix reports whether model already encodes a ":level"
// thinking suffix after its optional "provider/" prefix.
func hasThinkingSuffix(model string) bool {
	base := model
	if idx := strings.LastIndex(model, "/"); idx >= 0 {
		base = model[idx+1:]
	}
	return strings.Contains(base, ":")
}

// buildArgv constructs the subprocess argv per spec §4.7/§6. When the agent
// supplies a system prompt, it is written to a restricted-mode file inside
// a fresh per-spawn temp directory; the returned cleanup removes that
// directory and must be called once the subprocess exits.
func buildArgv(req SpawnRequest) (args []string, cleanup func(), err error) {
	cleanup = func() {}

	args = append(args, req.Agent.BaseArgs...)
	args = append(args, "--mode", "streaming-json", "--no-session", "-p", req.Prompt)

	if req.Model != "" {
		args = append(args, "--model", req.Model)
		if req.Thinking != "" && !hasThinkingSuffix(req.Model) {
			args = append(args, "--thinking", req.Thinking)
		}
	} else if req.Thinking != "" {
		args = append(args, "--thinking", req.Thinking)
	}

	if len(req.Agent.Tools) > 0 {
		var allowed []string
		for _, t := range req.Agent.Tools {
			if knownTools[strings.ToLower(t)] {
				allowed = append(allowed, strings.ToLower(t))
			}
		}
		sort.Strings(allowed)
		if len(allowed) > 0 {
			args = append(args, "--tools", strings.Join(allowed, ","))
		}
	}

	for _, ext := range req.Agent.Extensions {
		args = append(args, "--extension", ext)
	}
	if req.Agent.ExtensionPath != "" {
		args = append(args, "--extension", req.Agent.ExtensionPath)
	}

	if req.Agent.SystemPrompt != "" {
		dir, mkErr := os.MkdirTemp("", "crew-prompt-")
		if mkErr != nil {
			return nil, cleanup, fmt.Errorf("creating system-prompt tempdir: %w", mkErr)
		}
		cleanup = func() { _ = os.RemoveAll(dir) }

		promptFile := filepath.Join(dir, "system-prompt.txt")
		if writeErr := os.WriteFile(promptFile, []byte(req.Agent.SystemPrompt), 0600); writeErr != nil {
			cleanup()
			return nil, func() {}, fmt.Errorf("writing system-prompt file: %w", writeErr)
		}
		args = append(args, "--append-system-prompt", promptFile)
	}

	return args, cleanup, nil
}
