package config

import "testing"

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate(Defaults()) = %v, want nil", err)
	}
}

func TestValidateRejectsNonIncreasingBudgets(t *testing.T) {
	cfg := Defaults()
	cfg.Crew.MessageBudgets.Moderate = cfg.Crew.MessageBudgets.Minimal
	if err := Validate(cfg); err == nil {
		t.Fatal("Validate: want error for non-increasing message budgets")
	}
}

func TestValidateRejectsUnknownDependencyMode(t *testing.T) {
	cfg := Defaults()
	cfg.Crew.Dependencies = "loose"
	if err := Validate(cfg); err == nil {
		t.Fatal("Validate: want error for unknown dependency mode")
	}
}

func TestMatchAutoRegisterPath(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		path     string
		want     bool
	}{
		{"subdir match", []string{"/repos/*"}, "/repos/foo/bar", true},
		{"subdir exact root", []string{"/repos/*"}, "/repos", true},
		{"prefix match", []string{"/repos/foo*"}, "/repos/foobar", true},
		{"exact match", []string{"/repos/exact"}, "/repos/exact", true},
		{"exact no match", []string{"/repos/exact"}, "/repos/exactly", false},
		{"no pattern matches", []string{"/other/*"}, "/repos/foo", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchAutoRegisterPath(tt.patterns, tt.path); got != tt.want {
				t.Errorf("MatchAutoRegisterPath(%v, %q) = %v, want %v", tt.patterns, tt.path, got, tt.want)
			}
		})
	}
}

func TestLoadWithNoFilesReturnsDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Crew.Concurrency.Workers != Defaults().Crew.Concurrency.Workers {
		t.Errorf("Load without overrides changed defaults: got %d", cfg.Crew.Concurrency.Workers)
	}
}

func TestLoadMergesProjectOverride(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	override := &CrewConfig{Concurrency: Concurrency{Workers: 7, Max: 9}}
	if err := Save(dir, override); err != nil {
		t.Fatalf("Save: %v", err)
	}
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Crew.Concurrency.Workers != 7 {
		t.Errorf("Load: workers = %d, want 7", cfg.Crew.Concurrency.Workers)
	}
}
