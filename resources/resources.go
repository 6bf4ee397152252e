// Package resources locates workflow descriptors, visual templates, and
// music assets across a two-tier directory layout: a customization root
// whose entries always win, and a bundled-default root as fallback.
package resources

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Resource type subdirectories, present under both roots.
const (
	TypeBGM       = "bgm"
	TypeTemplates = "templates"
	TypeWorkflows = "workflows"
)

// Resolver resolves resource files with customization-over-default
// precedence. It is stateless per call and safe for concurrent use.
type Resolver struct {
	customRoot  string // e.g. "data"
	defaultRoot string // e.g. "."
}

// New creates a Resolver over the given customization and bundled roots.
func New(customRoot, defaultRoot string) *Resolver {
	return &Resolver{customRoot: customRoot, defaultRoot: defaultRoot}
}

// NotFoundError reports a lookup miss, enumerating every location searched
// and any candidates that would have matched.
type NotFoundError struct {
	Resource   string   // what was asked for, e.g. "bgm/happy.mp3"
	Searched   []string // attempted paths, in order
	Candidates []string // available alternatives, may be empty
}

func (e *NotFoundError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "resource not found: %s", e.Resource)
	for i, p := range e.Searched {
		fmt.Fprintf(&b, "\n  %d. %s", i+1, p)
	}
	if len(e.Candidates) > 0 {
		fmt.Fprintf(&b, "\n  available: %s", strings.Join(e.Candidates, ", "))
	}
	return b.String()
}

// ConfigError reports a missing or invalid configuration value, listing the
// currently discoverable alternatives.
type ConfigError struct {
	Setting    string
	Candidates []string
}

func (e *ConfigError) Error() string {
	avail := "none"
	if len(e.Candidates) > 0 {
		avail = strings.Join(e.Candidates, ", ")
	}
	return fmt.Sprintf("no %s configured; available: %s", e.Setting, avail)
}

// Path resolves a resource file, customization first.
func (r *Resolver) Path(resourceType string, parts ...string) (string, error) {
	rel := filepath.Join(append([]string{resourceType}, parts...)...)
	custom := filepath.Join(r.customRoot, rel)
	dflt := filepath.Join(r.defaultRoot, rel)

	if fileExists(custom) {
		return custom, nil
	}
	if fileExists(dflt) {
		return dflt, nil
	}
	return "", &NotFoundError{
		Resource: rel,
		Searched: []string{custom, dflt},
	}
}

// Exists reports whether the resource is present in either root.
func (r *Resolver) Exists(resourceType string, parts ...string) bool {
	_, err := r.Path(resourceType, parts...)
	return err == nil
}

// ListFiles lists filenames under resourceType/subdir merged across both
// roots, deduplicated by name with customization winning, sorted.
func (r *Resolver) ListFiles(resourceType, subdir string) []string {
	seen := map[string]bool{}
	for _, root := range []string{r.defaultRoot, r.customRoot} {
		dir := filepath.Join(root, resourceType, subdir)
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !e.IsDir() {
				seen[e.Name()] = true
			}
		}
	}
	return sortedKeys(seen)
}

// ListDirs lists subdirectory names under resourceType merged across both
// roots, deduplicated and sorted.
func (r *Resolver) ListDirs(resourceType string) []string {
	seen := map[string]bool{}
	for _, root := range []string{r.defaultRoot, r.customRoot} {
		dir := filepath.Join(root, resourceType)
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() {
				seen[e.Name()] = true
			}
		}
	}
	return sortedKeys(seen)
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
