package testhelpers

import (
	"os"
	"path/filepath"
	"testing"
)

// Scene is a temporary directory that a test works in. Tests that resolve
// the repository from the working directory chdir into it.
type Scene struct {
	T   *testing.T
	Dir string
}

// SceneSetup is a function type for setting up a scene.
type SceneSetup func(*Scene) error

// NewScene creates a scene in a fresh temp directory and chdirs into it.
// The previous directory is restored on cleanup.
// NOTE: This is NOT safe for parallel tests because it changes the process directory.
func NewScene(t *testing.T, setup SceneSetup) *Scene {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to resolve temp dir: %v", err)
	}
	oldDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get current directory: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(oldDir) })

	// Keep test runs out of the user's log file and away from prompts.
	t.Setenv("GRAFT_LOG_FILE", filepath.Join(t.TempDir(), "graft.log"))
	t.Setenv("GRAFT_NON_INTERACTIVE", "true")
	t.Setenv("GRAFT_USER", "test <test@example.com>")

	scene := &Scene{T: t, Dir: dir}
	if setup != nil {
		if err := setup(scene); err != nil {
			t.Fatalf("Setup failed: %v", err)
		}
	}
	return scene
}

// WriteFile writes a working-copy file relative to the scene directory.
func (s *Scene) WriteFile(path, content string) {
	s.T.Helper()
	full := filepath.Join(s.Dir, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		s.T.Fatalf("Failed to create %s: %v", filepath.Dir(full), err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		s.T.Fatalf("Failed to write %s: %v", path, err)
	}
}

// ReadFile returns a working-copy file's content, or "" when it is missing.
func (s *Scene) ReadFile(path string) string {
	s.T.Helper()
	data, err := os.ReadFile(filepath.Join(s.Dir, filepath.FromSlash(path)))
	if err != nil {
		if os.IsNotExist(err) {
			return ""
		}
		s.T.Fatalf("Failed to read %s: %v", path, err)
	}
	return string(data)
}
