// Package workspace manages the dedicated directory the agent uses for
// clones, builds and other tool artifacts.
package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// Node is one entry in the recursive workspace file tree.
type Node struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Type     string `json:"type"` // "file" or "directory"
	Children []Node `json:"children,omitempty"`
}

// Info describes the workspace for the /workspace_info endpoint.
type Info struct {
	WorkspacePath   string `json:"workspace_path"`
	WorkspaceExists bool   `json:"workspace_exists"`
	Files           []Node `json:"files"`
}

// Manager owns a single workspace directory.
//
// Reset during an in-flight tool execution is a race with undefined
// outcome; callers get no coordination guarantee.
type Manager struct {
	root string
}

func NewManager(root string) *Manager {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = root
	}
	return &Manager{root: abs}
}

// Root returns the absolute workspace path.
func (m *Manager) Root() string { return m.root }

// Ensure creates the workspace directory if it does not exist.
func (m *Manager) Ensure() error {
	if err := os.MkdirAll(m.root, 0o755); err != nil {
		return fmt.Errorf("ensure workspace: %w", err)
	}
	return nil
}

// Info returns the workspace path, existence flag, and the recursive file
// tree. A missing workspace yields an empty tree, not an error.
func (m *Manager) Info() (Info, error) {
	info := Info{WorkspacePath: m.root, Files: []Node{}}

	if _, err := os.Stat(m.root); err != nil {
		if os.IsNotExist(err) {
			return info, nil
		}
		return info, fmt.Errorf("stat workspace: %w", err)
	}
	info.WorkspaceExists = true

	tree, err := readTree(m.root, "")
	if err != nil {
		return info, err
	}
	info.Files = tree
	return info, nil
}

// readTree builds the directory tree rooted at dir. relPath is the path
// accumulated relative to the workspace root.
func readTree(dir, relPath string) ([]Node, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	nodes := make([]Node, 0, len(entries))
	for _, entry := range entries {
		rel := entry.Name()
		if relPath != "" {
			rel = filepath.Join(relPath, entry.Name())
		}

		if entry.IsDir() {
			children, err := readTree(filepath.Join(dir, entry.Name()), rel)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, Node{
				Name:     entry.Name(),
				Path:     rel,
				Type:     "directory",
				Children: children,
			})
			continue
		}

		nodes = append(nodes, Node{Name: entry.Name(), Path: rel, Type: "file"})
	}
	return nodes, nil
}

// Reset deletes and recreates the workspace. The directory is present and
// empty afterwards regardless of its prior state.
func (m *Manager) Reset() error {
	if err := os.RemoveAll(m.root); err != nil {
		return fmt.Errorf("remove workspace: %w", err)
	}
	if err := os.MkdirAll(m.root, 0o755); err != nil {
		return fmt.Errorf("recreate workspace: %w", err)
	}

	slog.Info("workspace reset", "path", m.root)
	return nil
}
