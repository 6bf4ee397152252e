package resources

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
)

// Workflow filename prefixes, one per backend service.
const (
	PrefixTTS   = "tts_"
	PrefixImage = "image_"
)

// SourceRunningHub is the cloud-hosted workflow source. Workflows from any
// other source directory are treated as self-hosted.
const SourceRunningHub = "runninghub"

// WorkflowDescriptor describes one discovered workflow file, keyed
// "<source>/<filename>".
type WorkflowDescriptor struct {
	Name        string `json:"name"`         // e.g. "tts_edge.json"
	DisplayName string `json:"display_name"` // e.g. "tts_edge.json - Selfhost"
	Source      string `json:"source"`       // source subdirectory name
	Path        string `json:"path"`         // resolved file path
	Key         string `json:"key"`          // "<source>/<filename>"
	WorkflowID  string `json:"workflow_id,omitempty"` // opaque id, cloud wrapper files only
}

// CloudHosted reports whether the workflow runs on a cloud source.
func (w WorkflowDescriptor) CloudHosted() bool {
	return w.Source == SourceRunningHub
}

// ScanWorkflows discovers every workflow file whose name matches prefix,
// across all source subdirectories of both roots, sorted by key.
func (r *Resolver) ScanWorkflows(prefix string) []WorkflowDescriptor {
	var out []WorkflowDescriptor
	for _, source := range r.ListDirs(TypeWorkflows) {
		for _, name := range r.ListFiles(TypeWorkflows, source) {
			if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".json") {
				continue
			}
			path, err := r.Path(TypeWorkflows, source, name)
			if err != nil {
				continue
			}
			desc, err := parseWorkflowFile(path, source, name)
			if err != nil {
				log.Printf("[resources] skipping workflow %s/%s: %v", source, name, err)
				continue
			}
			out = append(out, desc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// WorkflowKeys returns the sorted keys of every workflow matching prefix.
func (r *Resolver) WorkflowKeys(prefix string) []string {
	descs := r.ScanWorkflows(prefix)
	keys := make([]string, len(descs))
	for i, d := range descs {
		keys[i] = d.Key
	}
	return keys
}

// ResolveWorkflow resolves a workflow key to its descriptor. An empty key
// falls back to defaultKey, which is mandatory: its absence is a
// *ConfigError listing the currently discoverable keys.
func (r *Resolver) ResolveWorkflow(prefix, key, defaultKey string) (WorkflowDescriptor, error) {
	if key == "" {
		if defaultKey == "" {
			return WorkflowDescriptor{}, &ConfigError{
				Setting:    fmt.Sprintf("default %sworkflow", prefix),
				Candidates: r.WorkflowKeys(prefix),
			}
		}
		key = defaultKey
	}

	descs := r.ScanWorkflows(prefix)
	for _, d := range descs {
		if d.Key == key {
			return d, nil
		}
	}

	var searched []string
	for _, root := range []string{r.customRoot, r.defaultRoot} {
		searched = append(searched, fmt.Sprintf("%s/%s/%s", root, TypeWorkflows, key))
	}
	keys := make([]string, len(descs))
	for i, d := range descs {
		keys[i] = d.Key
	}
	return WorkflowDescriptor{}, &NotFoundError{
		Resource:   fmt.Sprintf("workflow %q", key),
		Searched:   searched,
		Candidates: keys,
	}
}

// parseWorkflowFile builds a descriptor, extracting the opaque workflow id
// when the file declares itself as a wrapper around a cloud-hosted workflow.
func parseWorkflowFile(path, source, name string) (WorkflowDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return WorkflowDescriptor{}, err
	}
	var content struct {
		Source     string `json:"source"`
		WorkflowID string `json:"workflow_id"`
	}
	if err := json.Unmarshal(data, &content); err != nil {
		return WorkflowDescriptor{}, fmt.Errorf("parse workflow json: %w", err)
	}

	desc := WorkflowDescriptor{
		Name:        name,
		DisplayName: fmt.Sprintf("%s - %s", name, titleCase(source)),
		Source:      source,
		Path:        path,
		Key:         source + "/" + name,
	}
	// Wrapper format: {"source": "runninghub", "workflow_id": "123456"}
	if content.Source != "" && content.WorkflowID != "" {
		desc.WorkflowID = content.WorkflowID
	}
	return desc, nil
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
