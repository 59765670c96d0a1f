package planner

import (
	"fmt"
	"strings"
)

// buildPlannerPrompt composes the planner's prompt for one pass. Pass 1
// gets the first-pass form (source content only); later passes get the
// refinement form, carrying the prior pass's output and review verdict
// forward so the planner can address feedback instead of starting over.
func buildPlannerPrompt(pass int, sourcePath, sourceContent, priorOutput, priorReview string) string {
	var b strings.Builder
	if pass == 1 {
		fmt.Fprintf(&b, "You are planning the task graph for this project from %s.\n\n", sourcePath)
		fmt.Fprintf(&b, "Source:\n%s\n\n", sourceContent)
	} else {
		fmt.Fprintf(&b, "Refine the task graph below for %s, pass %d.\n\n", sourcePath, pass)
		fmt.Fprintf(&b, "Previous pass output:\n%s\n\n", priorOutput)
		if priorReview != "" {
			fmt.Fprintf(&b, "Reviewer feedback:\n%s\n\n", priorReview)
		}
	}
	b.WriteString("Respond with exactly four numbered sections (scope, architecture, risks, rollout) followed by a fenced ```tasks-json block: a JSON array of objects with title, description, dependsOn (array of titles or \"task N\" references), and milestone (bool).\n")
	return b.String()
}

// buildReviewerPrompt composes the reviewer's prompt, carrying its own
// prior verdict forward so it does not repeat settled feedback.
func buildReviewerPrompt(plannerOutput, priorReview string) string {
	var b strings.Builder
	b.WriteString("Review the following task plan for completeness, ordering, and scope.\n\n")
	if priorReview != "" {
		fmt.Fprintf(&b, "Your previous review:\n%s\n\n", priorReview)
	}
	fmt.Fprintf(&b, "Plan:\n%s\n\n", plannerOutput)
	b.WriteString("End your response with exactly one line: VERDICT: SHIP, VERDICT: NEEDS_WORK, or VERDICT: MAJOR_RETHINK.\n")
	return b.String()
}

// parseVerdict extracts the verdict token from a reviewer's output. If no
// recognized verdict line is found, NEEDS_WORK is assumed so an
// unparseable review cannot silently ship a plan.
func parseVerdict(output string) string {
	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.TrimSpace(line)
		upper := strings.ToUpper(trimmed)
		if !strings.HasPrefix(upper, "VERDICT:") {
			continue
		}
		verdict := strings.TrimSpace(strings.TrimPrefix(upper, "VERDICT:"))
		switch verdict {
		case "SHIP", "NEEDS_WORK", "MAJOR_RETHINK":
			return verdict
		}
	}
	return "NEEDS_WORK"
}
