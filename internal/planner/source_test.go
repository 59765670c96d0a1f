package planner

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pimesh/crew/internal/taskstore"
)

func TestSelectSourceExplicitPRD(t *testing.T) {
	dir := t.TempDir()
	prdPath := filepath.Join(dir, "custom.md")
	if err := os.WriteFile(prdPath, []byte("custom prd content"), 0644); err != nil {
		t.Fatal(err)
	}
	path, content, err := selectSource(dir, "custom.md", "")
	if err != nil {
		t.Fatal(err)
	}
	if path != "custom.md" {
		t.Errorf("path = %q", path)
	}
	if content != "custom prd content" {
		t.Errorf("content = %q", content)
	}
}

func TestSelectSourceDiscoveryOrder(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "SPEC.md"), []byte("spec content"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "PLAN.md"), []byte("plan content"), 0644); err != nil {
		t.Fatal(err)
	}
	path, content, err := selectSource(dir, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if path != "SPEC.md" {
		t.Errorf("path = %q, want SPEC.md (earlier in discovery order than PLAN.md)", path)
	}
	if content != "spec content" {
		t.Errorf("content = %q", content)
	}
}

func TestSelectSourceDocsSubdir(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "docs"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "docs", "REQUIREMENTS.md"), []byte("reqs"), 0644); err != nil {
		t.Fatal(err)
	}
	path, content, err := selectSource(dir, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if path != filepath.Join("docs", "REQUIREMENTS.md") {
		t.Errorf("path = %q", path)
	}
	if content != "reqs" {
		t.Errorf("content = %q", content)
	}
}

func TestSelectSourcePromptFallback(t *testing.T) {
	dir := t.TempDir()
	path, content, err := selectSource(dir, "", "build a CLI tool")
	if err != nil {
		t.Fatal(err)
	}
	if path != taskstore.PromptOnlySentinel {
		t.Errorf("path = %q, want sentinel", path)
	}
	if content != "build a CLI tool" {
		t.Errorf("content = %q", content)
	}
}

func TestSelectSourceNoneAvailable(t *testing.T) {
	dir := t.TempDir()
	if _, _, err := selectSource(dir, "", ""); err == nil {
		t.Error("expected error with no prd/prompt/discoverable file")
	}
}

func TestSelectSourceTruncatesToMax(t *testing.T) {
	dir := t.TempDir()
	big := strings.Repeat("x", maxPRDSize+500)
	if err := os.WriteFile(filepath.Join(dir, "PRD.md"), []byte(big), 0644); err != nil {
		t.Fatal(err)
	}
	_, content, err := selectSource(dir, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(content) != maxPRDSize {
		t.Errorf("len(content) = %d, want %d", len(content), maxPRDSize)
	}
}
