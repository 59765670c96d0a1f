package runner

import "strings"

// truncateOutput applies a role's byte and line caps to captured output,
// keeping the tail (the most recent activity) and dropping the head when
// either limit is exceeded, per spec §4.7's per-role truncation.
func truncateOutput(output string, maxBytes, maxLines int) (string, bool) {
	truncated := false

	if maxLines > 0 {
		lines := strings.Split(output, "\n")
		if len(lines) > maxLines {
			lines = lines[len(lines)-maxLines:]
			output = strings.Join(lines, "\n")
			truncated = true
		}
	}

	if maxBytes > 0 && len(output) > maxBytes {
		output = output[len(output)-maxBytes:]
		truncated = true
	}

	return output, truncated
}
