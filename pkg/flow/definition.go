// Package flow talks to the external flow-execution engine: it loads the
// exported flow definition once at startup and invokes the engine's run API
// per turn. The engine itself (retrieval, embedding, completion, memory
// nodes) is an external collaborator; nothing here interprets its graph
// beyond the node identifiers needed to target tweaks.
package flow

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Definition is the parsed flow export file. It is loaded once at startup
// and read-only afterwards.
type Definition struct {
	ID      string
	Name    string
	NodeIDs []string
}

type definitionFile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Data struct {
		Nodes []struct {
			ID string `json:"id"`
		} `json:"nodes"`
	} `json:"data"`
}

// LoadDefinition parses a flow export file. A missing or malformed file is
// a startup-fatal condition for the caller.
func LoadDefinition(path string) (*Definition, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("flow definition %q: %w", path, err)
	}
	return ParseDefinition(raw, path)
}

// ParseDefinition decodes a flow export from raw JSON.
func ParseDefinition(raw []byte, name string) (*Definition, error) {
	var file definitionFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("flow definition %q: malformed JSON: %w", name, err)
	}
	if len(file.Data.Nodes) == 0 {
		return nil, fmt.Errorf("flow definition %q: no nodes", name)
	}

	def := &Definition{
		ID:   file.ID,
		Name: file.Name,
	}
	for _, n := range file.Data.Nodes {
		if n.ID == "" {
			continue
		}
		def.NodeIDs = append(def.NodeIDs, n.ID)
	}
	if def.ID == "" {
		def.ID = name
	}
	return def, nil
}

// NodeWithPrefix returns the first node whose identifier starts with the
// given component prefix (e.g. "ChatInput" matches "ChatInput-dtNrJ").
func (d *Definition) NodeWithPrefix(prefix string) (string, bool) {
	for _, id := range d.NodeIDs {
		if strings.HasPrefix(id, prefix+"-") || id == prefix {
			return id, true
		}
	}
	return "", false
}

// NodesWithPrefix returns every node matching the component prefix, in
// definition order.
func (d *Definition) NodesWithPrefix(prefix string) []string {
	var ids []string
	for _, id := range d.NodeIDs {
		if strings.HasPrefix(id, prefix+"-") || id == prefix {
			ids = append(ids, id)
		}
	}
	return ids
}
