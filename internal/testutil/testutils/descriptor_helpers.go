package helpers

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/tidwall/gjson"
)

// Container is a minimal container definition for descriptor fixtures.
type Container struct {
	ID     string
	URL    string
	Branch string
	Commit string
}

// WriteDescriptor writes a system.json into dir and returns its path.
// Containers with an empty URL get no repositoryUrl.
func WriteDescriptor(t *testing.T, dir string, containers ...Container) string {
	t.Helper()
	defs := make([]map[string]any, 0, len(containers))
	for _, c := range containers {
		specific := map[string]any{}
		if c.URL != "" {
			specific["repositoryUrl"] = c.URL
		}
		if c.Branch != "" {
			specific["branch"] = c.Branch
		}
		if c.Commit != "" {
			specific["commit"] = c.Commit
		}
		defs = append(defs, map[string]any{"id": c.ID, "name": c.ID, "type": "process", "specific": specific})
	}
	doc := map[string]any{"name": "fixture", "id": "fixture-system", "containerDefinitions": defs}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		t.Fatalf("marshal descriptor: %v", err)
	}
	path := filepath.Join(dir, "system.json")
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		t.Fatalf("write descriptor: %v", err)
	}
	return path
}

// RecordedCommit returns specific.commit of the first container with id in the descriptor file.
func RecordedCommit(t *testing.T, path, id string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read descriptor: %v", err)
	}
	for _, c := range gjson.GetBytes(data, "containerDefinitions").Array() {
		if c.Get("id").String() == id {
			return c.Get("specific.commit").String()
		}
	}
	return ""
}
