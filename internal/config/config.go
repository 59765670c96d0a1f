// Package config implements crew's two configuration layers per spec §6:
// the mesh-wide pi-messenger.json settings (registration, naming, feed
// retention, stuck detection) and the project-scoped crew/config.json overrides
// (concurrency, coordination level, model routing, truncation). Compiled
// defaults are expressed in YAML, matching the teacher's config format,
// and merged under JSON overrides read from disk.
package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pimesh/crew/internal/fileutil"
)

// ContextMode controls how much project context a worker receives on join.
type ContextMode string

const (
	ContextFull    ContextMode = "full"
	ContextMinimal ContextMode = "minimal"
	ContextNone    ContextMode = "none"
)

// CoordinationLevel controls lobby-worker chattiness and token budget.
type CoordinationLevel string

const (
	CoordinationNone     CoordinationLevel = "none"
	CoordinationMinimal  CoordinationLevel = "minimal"
	CoordinationModerate CoordinationLevel = "moderate"
	CoordinationChatty   CoordinationLevel = "chatty"
)

// DependencyMode selects how the task store computes readiness.
type DependencyMode string

const (
	DependencyAdvisory DependencyMode = "advisory"
	DependencyStrict   DependencyMode = "strict"
)

// NameWords is the adjective/noun pool used to mint themed agent names.
type NameWords struct {
	Adjectives []string `json:"adjectives,omitempty" yaml:"adjectives,omitempty"`
	Nouns      []string `json:"nouns,omitempty" yaml:"nouns,omitempty"`
}

// MeshConfig is the merged pi-messenger.json settings layer, per spec §6.
type MeshConfig struct {
	AutoRegister      bool        `json:"autoRegister" yaml:"autoRegister"`
	AutoRegisterPaths []string    `json:"autoRegisterPaths,omitempty" yaml:"autoRegisterPaths,omitempty"`
	ScopeToFolder     bool        `json:"scopeToFolder" yaml:"scopeToFolder"`
	NameTheme         string      `json:"nameTheme" yaml:"nameTheme"`
	NameWords         NameWords   `json:"nameWords,omitempty" yaml:"nameWords,omitempty"`
	ContextMode       ContextMode `json:"contextMode" yaml:"contextMode"`
	RegistrationContext bool      `json:"registrationContext" yaml:"registrationContext"`
	ReplyHint         bool        `json:"replyHint" yaml:"replyHint"`
	SenderDetailsOnFirstContact bool `json:"senderDetailsOnFirstContact" yaml:"senderDetailsOnFirstContact"`
	FeedRetention     int         `json:"feedRetention" yaml:"feedRetention"`
	StuckThreshold    int         `json:"stuckThreshold" yaml:"stuckThreshold"`
	StuckNotify       bool        `json:"stuckNotify" yaml:"stuckNotify"`
	AutoStatus        bool        `json:"autoStatus" yaml:"autoStatus"`
	AutoOverlay       bool        `json:"autoOverlay" yaml:"autoOverlay"`
	AutoOverlayPlanning bool      `json:"autoOverlayPlanning" yaml:"autoOverlayPlanning"`
	CrewEventsInFeed  bool        `json:"crewEventsInFeed" yaml:"crewEventsInFeed"`
}

// Concurrency bounds how many workers may run at once.
type Concurrency struct {
	Workers int `json:"workers" yaml:"workers"`
	Max     int `json:"max" yaml:"max"`
}

// MessageBudgets caps lobby-worker token spend per coordination level.
type MessageBudgets struct {
	None     int `json:"none" yaml:"none"`
	Minimal  int `json:"minimal" yaml:"minimal"`
	Moderate int `json:"moderate" yaml:"moderate"`
	Chatty   int `json:"chatty" yaml:"chatty"`
}

// Models routes each role to a model string (accepts "provider/model" and a
// ":level" thinking suffix).
type Models struct {
	Planner  string `json:"planner,omitempty" yaml:"planner,omitempty"`
	Worker   string `json:"worker,omitempty" yaml:"worker,omitempty"`
	Reviewer string `json:"reviewer,omitempty" yaml:"reviewer,omitempty"`
	Analyst  string `json:"analyst,omitempty" yaml:"analyst,omitempty"`
}

// Thinking maps a role to a thinking-effort level, used only when the
// role's model string does not already encode a ":level" suffix.
type Thinking map[string]string

// Review configures the planner/reviewer refinement loop.
type Review struct {
	Enabled      bool `json:"enabled" yaml:"enabled"`
	MaxIterations int `json:"maxIterations" yaml:"maxIterations"`
}

// Planning bounds the planner pass loop.
type Planning struct {
	MaxPasses int `json:"maxPasses" yaml:"maxPasses"`
}

// Work configures the wave scheduler.
type Work struct {
	MaxAttemptsPerTask    int               `json:"maxAttemptsPerTask" yaml:"maxAttemptsPerTask"`
	MaxWaves              int               `json:"maxWaves" yaml:"maxWaves"`
	StopOnBlock           bool              `json:"stopOnBlock" yaml:"stopOnBlock"`
	ShutdownGracePeriodMs int               `json:"shutdownGracePeriodMs" yaml:"shutdownGracePeriodMs"`
	Env                   map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
}

// TruncationLimits bounds a role's captured output.
type TruncationLimits struct {
	Bytes int `json:"bytes" yaml:"bytes"`
	Lines int `json:"lines" yaml:"lines"`
}

// AgentConfig names a coding-agent binary and its fixed capabilities for
// one role, generalizing the teacher's single project-wide AgentConfig
// (command + args) across crew's four roles.
type AgentConfig struct {
	Command       string   `json:"command,omitempty" yaml:"command,omitempty"`
	Args          []string `json:"args,omitempty" yaml:"args,omitempty"`
	Model         string   `json:"model,omitempty" yaml:"model,omitempty"`
	Tools         []string `json:"tools,omitempty" yaml:"tools,omitempty"`
	ExtensionPath string   `json:"extensionPath,omitempty" yaml:"extensionPath,omitempty"`
	Extensions    []string `json:"extensions,omitempty" yaml:"extensions,omitempty"`
	SystemPrompt  string   `json:"systemPrompt,omitempty" yaml:"systemPrompt,omitempty"`
}

// Agents maps each role to its agent definition. A role with an empty
// Command has no configured agent.
type Agents struct {
	Planner  AgentConfig `json:"planner,omitempty" yaml:"planner,omitempty"`
	Worker   AgentConfig `json:"worker,omitempty" yaml:"worker,omitempty"`
	Reviewer AgentConfig `json:"reviewer,omitempty" yaml:"reviewer,omitempty"`
	Analyst  AgentConfig `json:"analyst,omitempty" yaml:"analyst,omitempty"`
}

// CrewConfig is the project-scoped crew/config.json schema (§6 "Crew config").
type CrewConfig struct {
	Concurrency    Concurrency                 `json:"concurrency" yaml:"concurrency"`
	Dependencies   DependencyMode              `json:"dependencies" yaml:"dependencies"`
	Coordination   CoordinationLevel           `json:"coordination" yaml:"coordination"`
	MessageBudgets MessageBudgets              `json:"messageBudgets" yaml:"messageBudgets"`
	Models         Models                      `json:"models" yaml:"models"`
	Thinking       Thinking                    `json:"thinking,omitempty" yaml:"thinking,omitempty"`
	Review         Review                      `json:"review" yaml:"review"`
	Planning       Planning                    `json:"planning" yaml:"planning"`
	Work           Work                        `json:"work" yaml:"work"`
	Truncation     map[string]TruncationLimits `json:"truncation,omitempty" yaml:"truncation,omitempty"`
	Agents         Agents                      `json:"agents,omitempty" yaml:"agents,omitempty"`
}

// Config is the fully merged configuration: mesh settings plus the
// project's crew overrides.
type Config struct {
	Mesh MeshConfig `json:"mesh" yaml:"mesh"`
	Crew CrewConfig `json:"crew" yaml:"crew"`
}

// defaultsYAML holds the compiled defaults in the teacher's YAML config
// format. Expressing defaults this way (rather than a Go literal) keeps
// them in a single source of truth.
const defaultsYAML = `
mesh:
  autoRegister: true
  scopeToFolder: true
  nameTheme: default
  contextMode: full
  registrationContext: true
  replyHint: true
  senderDetailsOnFirstContact: true
  feedRetention: 2000
  stuckThreshold: 300
  stuckNotify: true
  autoStatus: true
  autoOverlay: true
  autoOverlayPlanning: true
  crewEventsInFeed: true
crew:
  concurrency:
    workers: 3
    max: 10
  dependencies: strict
  coordination: minimal
  messageBudgets:
    none: 0
    minimal: 2000
    moderate: 8000
    chatty: 30000
  models:
    planner: ""
    worker: ""
    reviewer: ""
    analyst: ""
  review:
    enabled: true
    maxIterations: 2
  planning:
    maxPasses: 3
  work:
    maxAttemptsPerTask: 3
    maxWaves: 25
    stopOnBlock: false
    shutdownGracePeriodMs: 15000
  truncation:
    worker:
      bytes: 200000
      lines: 4000
    planner:
      bytes: 400000
      lines: 8000
    reviewer:
      bytes: 200000
      lines: 4000
  agents:
    planner:
      command: ""
      tools: [read, bash, edit, write, grep, find, ls]
    worker:
      command: ""
      tools: [read, bash, edit, write, grep, find, ls]
    reviewer:
      command: ""
      tools: [read, grep, find, ls]
    analyst:
      command: ""
      tools: [read, grep, find, ls]
`

// Defaults returns the compiled default configuration.
func Defaults() *Config {
	var cfg Config
	if err := yaml.Unmarshal([]byte(defaultsYAML), &cfg); err != nil {
		// defaultsYAML is a compile-time constant; a parse failure here is
		// a programming error, not a runtime condition to recover from.
		panic(fmt.Sprintf("config: invalid compiled defaults: %s", err))
	}
	return &cfg
}

// Load resolves the full configuration for a project by merging, in
// descending precedence: project .pi/pi-messenger.json, user
// pi-messenger.json, user settings.json["messenger"], then compiled
// defaults (spec §6). Missing or malformed files at any layer are
// treated as absent, per the fail-silent read contract.
func Load(projectRoot string) (*Config, error) {
	cfg := Defaults()

	type meshLayer struct {
		Messenger *MeshConfig `json:"messenger"`
	}
	var settings meshLayer
	if fileutil.ReadJSON(fileutil.UserSettingsPath(), &settings) && settings.Messenger != nil {
		mergeMesh(&cfg.Mesh, settings.Messenger)
	}

	var userMesh MeshConfig
	if fileutil.ReadJSON(fileutil.UserMeshConfigPath(), &userMesh) {
		mergeMesh(&cfg.Mesh, &userMesh)
	}

	var projectMesh MeshConfig
	if fileutil.ReadJSON(fileutil.ProjectMeshConfigPath(projectRoot), &projectMesh) {
		mergeMesh(&cfg.Mesh, &projectMesh)
	}

	var crewOverride CrewConfig
	if fileutil.ReadJSON(fileutil.ConfigPath(projectRoot), &crewOverride) {
		mergeCrew(&cfg.Crew, &crewOverride)
	}

	return cfg, Validate(cfg)
}

// mergeMesh overlays set fields from override onto base. Each field is
// merged independently so an override file only needs to name the keys it
// cares about; a zero-valued bool cannot be distinguished from "unset", so
// boolean fields are overridden unconditionally once a layer is present —
// this matches the teacher's own flat-YAML overlay semantics, where a
// higher-precedence file always wins on every field it declares.
func mergeMesh(base *MeshConfig, override *MeshConfig) {
	b := *base
	o := *override
	if o.NameTheme != "" {
		b.NameTheme = o.NameTheme
	}
	if len(o.NameWords.Adjectives) > 0 || len(o.NameWords.Nouns) > 0 {
		b.NameWords = o.NameWords
	}
	if len(o.AutoRegisterPaths) > 0 {
		b.AutoRegisterPaths = o.AutoRegisterPaths
	}
	if o.ContextMode != "" {
		b.ContextMode = o.ContextMode
	}
	if o.FeedRetention != 0 {
		b.FeedRetention = o.FeedRetention
	}
	if o.StuckThreshold != 0 {
		b.StuckThreshold = o.StuckThreshold
	}
	b.AutoRegister = o.AutoRegister
	b.ScopeToFolder = o.ScopeToFolder
	b.RegistrationContext = o.RegistrationContext
	b.ReplyHint = o.ReplyHint
	b.SenderDetailsOnFirstContact = o.SenderDetailsOnFirstContact
	b.StuckNotify = o.StuckNotify
	b.AutoStatus = o.AutoStatus
	b.AutoOverlay = o.AutoOverlay
	b.AutoOverlayPlanning = o.AutoOverlayPlanning
	b.CrewEventsInFeed = o.CrewEventsInFeed
	*base = b
}

// mergeCrew overlays each section of override onto base independently, so
// a project crew/config.json that only sets {"concurrency":{"workers":5}} leaves
// every other section at its inherited value.
func mergeCrew(base *CrewConfig, override *CrewConfig) {
	if override.Concurrency != (Concurrency{}) {
		base.Concurrency = override.Concurrency
	}
	if override.Dependencies != "" {
		base.Dependencies = override.Dependencies
	}
	if override.Coordination != "" {
		base.Coordination = override.Coordination
	}
	if override.MessageBudgets != (MessageBudgets{}) {
		base.MessageBudgets = override.MessageBudgets
	}
	if override.Models.Planner != "" {
		base.Models.Planner = override.Models.Planner
	}
	if override.Models.Worker != "" {
		base.Models.Worker = override.Models.Worker
	}
	if override.Models.Reviewer != "" {
		base.Models.Reviewer = override.Models.Reviewer
	}
	if override.Models.Analyst != "" {
		base.Models.Analyst = override.Models.Analyst
	}
	for role, level := range override.Thinking {
		if base.Thinking == nil {
			base.Thinking = map[string]string{}
		}
		base.Thinking[role] = level
	}
	if override.Review != (Review{}) {
		base.Review = override.Review
	}
	if override.Planning != (Planning{}) {
		base.Planning = override.Planning
	}
	if override.Work.MaxAttemptsPerTask != 0 || override.Work.MaxWaves != 0 || override.Work.ShutdownGracePeriodMs != 0 {
		override.Work.Env = base.Work.Env
		base.Work = override.Work
	}
	for role, limits := range override.Truncation {
		if base.Truncation == nil {
			base.Truncation = map[string]TruncationLimits{}
		}
		base.Truncation[role] = limits
	}
	mergeAgent(&base.Agents.Planner, override.Agents.Planner)
	mergeAgent(&base.Agents.Worker, override.Agents.Worker)
	mergeAgent(&base.Agents.Reviewer, override.Agents.Reviewer)
	mergeAgent(&base.Agents.Analyst, override.Agents.Analyst)
}

func mergeAgent(base *AgentConfig, override AgentConfig) {
	if override.Command != "" {
		base.Command = override.Command
	}
	if len(override.Args) > 0 {
		base.Args = override.Args
	}
	if override.Model != "" {
		base.Model = override.Model
	}
	if len(override.Tools) > 0 {
		base.Tools = override.Tools
	}
	if override.ExtensionPath != "" {
		base.ExtensionPath = override.ExtensionPath
	}
	if len(override.Extensions) > 0 {
		base.Extensions = override.Extensions
	}
	if override.SystemPrompt != "" {
		base.SystemPrompt = override.SystemPrompt
	}
}

// Agent returns the configured agent definition for role, and whether a
// command is set (an unconfigured role has no live agent).
func (a Agents) Agent(role string) (AgentConfig, bool) {
	var ac AgentConfig
	switch role {
	case "planner":
		ac = a.Planner
	case "worker":
		ac = a.Worker
	case "reviewer":
		ac = a.Reviewer
	case "analyst":
		ac = a.Analyst
	}
	return ac, ac.Command != ""
}

// ModelFor resolves the configured model string for role.
func (m Models) ModelFor(role string) string {
	switch role {
	case "planner":
		return m.Planner
	case "worker":
		return m.Worker
	case "reviewer":
		return m.Reviewer
	case "analyst":
		return m.Analyst
	default:
		return ""
	}
}

// Validate checks the merged configuration for internally inconsistent
// values. Load returns its error alongside the merged configuration.
func Validate(cfg *Config) error {
	var errs []string
	if cfg.Crew.Concurrency.Workers < 1 {
		errs = append(errs, "crew.concurrency.workers must be >= 1")
	}
	if cfg.Crew.Concurrency.Max < 1 {
		errs = append(errs, "crew.concurrency.max must be >= 1")
	}
	switch cfg.Crew.Dependencies {
	case DependencyAdvisory, DependencyStrict, "":
	default:
		errs = append(errs, fmt.Sprintf("crew.dependencies: unknown mode %q", cfg.Crew.Dependencies))
	}
	switch cfg.Crew.Coordination {
	case CoordinationNone, CoordinationMinimal, CoordinationModerate, CoordinationChatty, "":
	default:
		errs = append(errs, fmt.Sprintf("crew.coordination: unknown level %q", cfg.Crew.Coordination))
	}
	budgets := cfg.Crew.MessageBudgets
	if !(budgets.None < budgets.Minimal && budgets.Minimal < budgets.Moderate && budgets.Moderate < budgets.Chatty) {
		errs = append(errs, "crew.messageBudgets must be strictly increasing: none < minimal < moderate < chatty")
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// MatchAutoRegisterPath reports whether path matches one of the configured
// autoRegisterPaths patterns. A trailing "/*" matches any path under that
// directory; a trailing "*" matches by prefix; anything else must match
// exactly, per spec §6.
func MatchAutoRegisterPath(patterns []string, path string) bool {
	for _, p := range patterns {
		switch {
		case strings.HasSuffix(p, "/*"):
			prefix := strings.TrimSuffix(p, "/*")
			if path == prefix || strings.HasPrefix(path, prefix+"/") {
				return true
			}
		case strings.HasSuffix(p, "*"):
			if strings.HasPrefix(path, strings.TrimSuffix(p, "*")) {
				return true
			}
		default:
			if path == p {
				return true
			}
		}
	}
	return false
}

// Save writes the project crew config override atomically.
func Save(projectRoot string, cfg *CrewConfig) error {
	return fileutil.AtomicWriteJSON(fileutil.ConfigPath(projectRoot), cfg)
}
