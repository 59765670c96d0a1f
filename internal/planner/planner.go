// Package planner drives the planner/reviewer refinement loop described
// in spec §4.9: source selection, a bounded pass loop where a planner
// agent proposes a task graph and an optional reviewer agent critiques
// it, parsing the final pass's output into tasks, and materializing them
// into the task store. It is grounded on the multi-pass iterate-until-
// settled shape of other_examples' daydemir-ralph executor loop, adapted
// from a single-agent retry loop to a two-agent propose/critique loop,
// and on the teacher's precondition-checking style for config loading.
package planner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pimesh/crew/internal/config"
	"github.com/pimesh/crew/internal/coordination"
	"github.com/pimesh/crew/internal/feed"
	"github.com/pimesh/crew/internal/fileutil"
	"github.com/pimesh/crew/internal/runner"
	"github.com/pimesh/crew/internal/taskstore"
)

// Loop drives one project's planning runs.
type Loop struct {
	ProjectRoot string
	Store       *taskstore.Store
	Spawner     *runner.Spawner
	Coord       *coordination.Coordinator
	Feed        *feed.Feed
}

// New returns a Loop for one project.
func New(projectRoot string, store *taskstore.Store, spawner *runner.Spawner, coord *coordination.Coordinator, f *feed.Feed) *Loop {
	return &Loop{ProjectRoot: projectRoot, Store: store, Spawner: spawner, Coord: coord, Feed: f}
}

// PlanRequest parameterizes one Plan call, per spec §4.9.
type PlanRequest struct {
	PRD      string
	Prompt   string
	AutoWork *bool // nil means unset, defaults to true per step 7

	PlannerAgent  runner.AgentDef
	ReviewerAgent runner.AgentDef
	HasReviewer   bool

	PlannerModel     string
	ReviewerModel    string
	PlannerThinking  string
	ReviewerThinking string

	MaxPasses     int
	ReviewEnabled bool

	TruncatePlanner  config.TruncationLimits
	TruncateReviewer config.TruncationLimits
}

// PlanResult is the outcome of one Plan call.
type PlanResult struct {
	TaskCount  int
	Cancelled  bool
	Diagnostic string
}

// Plan runs the full precondition/source-selection/pass-loop/parse/
// materialize/finalize pipeline of spec §4.9.
func (l *Loop) Plan(ctx context.Context, req PlanRequest) (*PlanResult, error) {
	if err := l.checkPreconditions(req); err != nil {
		return nil, err
	}

	sourcePath, sourceContent, err := selectSource(l.ProjectRoot, req.PRD, req.Prompt)
	if err != nil {
		return nil, err
	}

	if _, err := l.Store.CreatePlan(sourcePath, req.Prompt); err != nil {
		return nil, fmt.Errorf("creating plan: %w", err)
	}
	if err := l.initProgressFile(req.Prompt); err != nil {
		return nil, err
	}
	l.emitFeed(feed.EventPlanStart, sourcePath)

	maxPasses := req.MaxPasses
	if maxPasses <= 0 {
		maxPasses = 1
	}
	if _, err := l.Coord.StartPlanningRun(l.ProjectRoot, maxPasses); err != nil {
		return nil, fmt.Errorf("starting planning run: %w", err)
	}
	if _, err := l.Coord.SetPlanningPhase(coordination.PhaseReadPRD, 0); err != nil {
		return nil, err
	}

	var lastOutput, lastReview string
	for pass := 1; pass <= maxPasses; pass++ {
		if l.Coord.IsCancelled() {
			return l.finishCancelled()
		}

		phase := coordination.PhaseScanCode
		if pass > 1 {
			phase = coordination.PhaseGapAnalysis
		}
		if _, err := l.Coord.SetPlanningPhase(phase, pass); err != nil {
			return nil, err
		}
		l.emitFeed(feed.EventPlanPassStart, fmt.Sprintf("pass %d", pass))

		prompt := buildPlannerPrompt(pass, sourcePath, sourceContent, lastOutput, lastReview)
		res, spawnErr := l.runAgent(ctx, req.PlannerAgent, runner.RolePlanner, "planner", prompt, req.PlannerModel, req.PlannerThinking, req.TruncatePlanner)

		if l.Coord.IsCancelled() {
			return l.finishCancelled()
		}
		if spawnErr != nil || res.ExitCode != 0 {
			if pass == 1 {
				if _, err := l.Coord.FinishPlanningRun(); err != nil {
					return nil, err
				}
				_ = l.Store.DeletePlan()
				l.emitFeed(feed.EventPlanFailed, "")
				if spawnErr != nil {
					return nil, fmt.Errorf("%w: %v", errPlannerFailed, spawnErr)
				}
				return nil, fmt.Errorf("%w: exit code %d", errPlannerFailed, res.ExitCode)
			}
			break
		}
		lastOutput = res.Output

		if err := l.appendProgress(fmt.Sprintf("### Pass %d\n\n%s\n", pass, lastOutput)); err != nil {
			return nil, err
		}
		if _, err := l.Coord.SetPlanningPhase(coordination.PhaseBuildTaskGraph, pass); err != nil {
			return nil, err
		}
		l.emitFeed(feed.EventPlanPassDone, fmt.Sprintf("pass %d", pass))

		if pass == maxPasses || !req.HasReviewer || !req.ReviewEnabled {
			break
		}

		if _, err := l.Coord.SetPlanningPhase(coordination.PhaseReviewPass, pass); err != nil {
			return nil, err
		}
		l.emitFeed(feed.EventPlanReviewStart, fmt.Sprintf("pass %d", pass))

		reviewPrompt := buildReviewerPrompt(lastOutput, lastReview)
		reviewRes, reviewErr := l.runAgent(ctx, req.ReviewerAgent, runner.RoleReviewer, "reviewer", reviewPrompt, req.ReviewerModel, req.ReviewerThinking, req.TruncateReviewer)
		if l.Coord.IsCancelled() {
			return l.finishCancelled()
		}
		if reviewErr != nil || reviewRes.ExitCode != 0 {
			break
		}
		verdict := parseVerdict(reviewRes.Output)
		lastReview = reviewRes.Output
		if err := l.appendProgress(fmt.Sprintf("### Review %d\n\nVerdict: %s\n\n%s\n", pass, verdict, lastReview)); err != nil {
			return nil, err
		}
		l.emitFeed(feed.EventPlanReviewDone, fmt.Sprintf("pass %d: %s", pass, verdict))
		if verdict == "SHIP" {
			break
		}
	}

	tasks, err := l.parseAndMaterialize(lastOutput)
	if err != nil {
		return nil, err
	}

	if err := fileutil.AtomicWriteFile(fileutil.PlanSpecPath(l.ProjectRoot), []byte(lastOutput), 0644); err != nil {
		return nil, fmt.Errorf("writing plan spec: %w", err)
	}
	if _, err := l.Coord.SetPlanningPhase(coordination.PhaseFinalizing, 0); err != nil {
		return nil, err
	}
	if _, err := l.Coord.FinishPlanningRun(); err != nil {
		return nil, err
	}
	l.emitFeed(feed.EventPlanDone, fmt.Sprintf("%d tasks", len(tasks)))

	autoWork := req.AutoWork == nil || *req.AutoWork
	if autoWork {
		l.Coord.SetPendingAutoWork(l.ProjectRoot)
	}

	return &PlanResult{TaskCount: len(tasks)}, nil
}

func (l *Loop) checkPreconditions(req PlanRequest) error {
	if req.PlannerAgent.Command == "" {
		return errNoPlanner
	}
	if plan, ok := l.Store.GetPlan(); ok && plan.TaskCount > 0 && req.Prompt == "" {
		return errPlanExists
	}
	if l.Coord.Planning().Active {
		return errPlanningActive
	}
	if req.Prompt != "" {
		tasks, err := l.Store.ListTasks()
		if err != nil {
			return err
		}
		for _, t := range tasks {
			if t.Status == taskstore.StatusInProgress || t.AssignedTo != "" {
				return errTasksInProgress
			}
		}
		if len(tasks) > 0 {
			if err := l.Store.WipeTasks(); err != nil {
				return fmt.Errorf("wiping tasks: %w", err)
			}
		}
	}
	return nil
}

func (l *Loop) runAgent(ctx context.Context, agent runner.AgentDef, role runner.Role, name, prompt, model, thinking string, truncation config.TruncationLimits) (runner.Result, error) {
	h, err := l.Spawner.Spawn(ctx, runner.SpawnRequest{
		Agent:         agent,
		Role:          role,
		Name:          name,
		Cwd:           l.ProjectRoot,
		Prompt:        prompt,
		Model:         model,
		Thinking:      thinking,
		TruncateBytes: truncation.Bytes,
		TruncateLines: truncation.Lines,
	})
	if err != nil {
		return runner.Result{}, err
	}
	return h.Wait(), nil
}

func (l *Loop) finishCancelled() (*PlanResult, error) {
	if _, err := l.Coord.FinishPlanningRun(); err != nil {
		return nil, err
	}
	l.emitFeed(feed.EventPlanCancel, "")
	return &PlanResult{Cancelled: true}, nil
}

func (l *Loop) initProgressFile(steeringPrompt string) error {
	path := fileutil.PlanningProgressPath(l.ProjectRoot)
	header := "# Planning progress\n\n## Notes\n\n"
	if steeringPrompt != "" {
		header += fmt.Sprintf("Steering prompt: %s\n\n", steeringPrompt)
	}
	if !fileutil.Exists(path) {
		return fileutil.AtomicWriteFile(path, []byte(header), 0644)
	}
	if steeringPrompt == "" {
		return nil
	}
	existing, err := fileutil.ReadLines(path)
	if err != nil {
		return err
	}
	content := strings.Join(existing, "\n") + fmt.Sprintf("\nSteering prompt: %s\n", steeringPrompt)
	return fileutil.AtomicWriteFile(path, []byte(content), 0644)
}

func (l *Loop) appendProgress(section string) error {
	path := fileutil.PlanningProgressPath(l.ProjectRoot)
	existing, _ := fileutil.ReadLines(path)
	content := strings.Join(existing, "\n") + "\n" + section
	return fileutil.AtomicWriteFile(path, []byte(content), 0644)
}

func (l *Loop) parseAndMaterialize(output string) ([]taskstore.Task, error) {
	parsed, ok := ParseTasksJSON(output)
	if !ok {
		parsed = ParseTasksMarkdownFallback(output)
	}

	outline := extractOutline(output)
	if err := fileutil.AtomicWriteFile(fileutil.PlanningOutlinePath(l.ProjectRoot), []byte(outline), 0644); err != nil {
		return nil, fmt.Errorf("writing planning outline: %w", err)
	}

	ids := make([]string, len(parsed))
	created := make([]taskstore.Task, 0, len(parsed))
	for i, pt := range parsed {
		task, err := l.Store.CreateTask(pt.Title, pt.Description, nil, pt.Milestone)
		if err != nil {
			return nil, fmt.Errorf("creating task %q: %w", pt.Title, err)
		}
		ids[i] = task.ID
		created = append(created, *task)
	}

	alias := buildAliasTable(parsed, ids)
	for i, pt := range parsed {
		deps := resolveDeps(pt.DependsOn, alias)
		if len(deps) == 0 {
			continue
		}
		if _, err := l.Store.UpdateTask(ids[i], func(t *taskstore.Task) { t.DependsOn = deps }); err != nil {
			return nil, fmt.Errorf("resolving deps for %s: %w", ids[i], err)
		}
	}

	if err := l.Store.PruneTransitiveDeps(ids); err != nil {
		return nil, fmt.Errorf("pruning transitive deps: %w", err)
	}

	return created, nil
}

// extractOutline returns everything in output before the first
// ```tasks-json fence: the four numbered outline sections the planner
// prompt requires.
func extractOutline(output string) string {
	idx := strings.Index(output, "```tasks-json")
	if idx < 0 {
		return strings.TrimSpace(output)
	}
	return strings.TrimSpace(output[:idx])
}

func (l *Loop) emitFeed(t feed.EventType, target string) {
	if l.Feed == nil {
		return
	}
	_ = l.Feed.Append(feed.Event{TS: time.Now().UTC(), Type: t, Target: target})
}
