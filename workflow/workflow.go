package workflow

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Workflow is a ComfyUI API-format (prompt) workflow: a mapping of node
// identifier to node record. It is loaded verbatim and mutated in place
// before submission; no schema is enforced beyond node presence.
type Workflow map[string]Node

// Node is kept as raw decoded JSON so fields this client does not understand
// survive resubmission unchanged.
type Node map[string]any

// Inputs returns the node's inputs object, or nil when the node has none.
func (n Node) Inputs() map[string]any {
	in, ok := n["inputs"].(map[string]any)
	if !ok {
		return nil
	}
	return in
}

// inputs returns the inputs object for nodeID, or nil when either the node
// or its inputs object is absent.
func (w Workflow) inputs(nodeID string) map[string]any {
	node, ok := w[nodeID]
	if !ok {
		return nil
	}
	return node.Inputs()
}

// Load reads an API-format workflow from a JSON file.
func Load(path string) (Workflow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("workflow file: %w", err)
	}
	defer f.Close()
	return FromReader(f)
}

// FromReader decodes an API-format workflow from r.
func FromReader(r io.Reader) (Workflow, error) {
	var w Workflow
	if err := json.NewDecoder(r).Decode(&w); err != nil {
		return nil, fmt.Errorf("decoding workflow: %w", err)
	}
	return w, nil
}
