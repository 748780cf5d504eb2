// Package catalog loads assignment templates from the filesystem.
package catalog

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	templateSuffix = ".assignment.yaml"
	rubricSuffix   = ".rubric.txt"
)

// Loader loads and caches assignment templates. A template's rubric can be
// inline (rubric_text) or in a sibling <name>.rubric.txt file, which wins.
type Loader struct {
	rootDir   string
	templates map[string]Template
	mu        sync.RWMutex
}

// NewLoader creates a loader and loads every template under rootDir.
func NewLoader(rootDir string) (*Loader, error) {
	l := &Loader{
		rootDir:   rootDir,
		templates: make(map[string]Template),
	}

	if err := l.loadAll(); err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}

	slog.Info("assignment templates loaded", "path", rootDir, "templates", len(l.templates))
	return l, nil
}

// Get returns a template by ID.
func (l *Loader) Get(id string) (Template, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, ok := l.templates[id]
	return t, ok
}

// All returns every template sorted by ID.
func (l *Loader) All() []Template {
	l.mu.RLock()
	defer l.mu.RUnlock()
	templates := make([]Template, 0, len(l.templates))
	for _, t := range l.templates {
		templates = append(templates, t)
	}
	sort.Slice(templates, func(i, j int) bool { return templates[i].ID < templates[j].ID })
	return templates
}

func (l *Loader) loadAll() error {
	info, err := os.Stat(l.rootDir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", l.rootDir)
	}

	return filepath.WalkDir(l.rootDir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, templateSuffix) {
			return nil
		}
		return l.loadTemplate(path)
	})
}

func (l *Loader) loadTemplate(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var t Template
	if err := yaml.Unmarshal(data, &t); err != nil {
		slog.Warn("skipping invalid template YAML", "path", path, "error", err)
		return nil
	}
	if t.ID == "" || len(t.Questions) == 0 {
		slog.Warn("skipping template without id or questions", "path", path)
		return nil
	}

	rubricPath := strings.TrimSuffix(path, templateSuffix) + rubricSuffix
	if text, err := os.ReadFile(rubricPath); err == nil {
		t.RubricText = string(text)
	}
	if strings.TrimSpace(t.RubricText) != "" && !t.HasRubric() {
		slog.Warn("template rubric has no recognizable questions, ignoring it", "template", t.ID)
		t.RubricText = ""
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, dup := l.templates[t.ID]; dup {
		slog.Warn("duplicate template id, keeping the first", "template", t.ID, "path", path)
		return nil
	}
	l.templates[t.ID] = t
	return nil
}
