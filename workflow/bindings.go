package workflow

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Bindings maps logical parameter names to workflow node identifiers, for
// example image1=78, image2=106, prompt=111, lora=89, seed=3. Supplying the
// mapping per workflow lets one client drive any workflow instead of keeping
// a hardcoded copy per node layout.
type Bindings map[string]string

// ParseBindings parses "name=nodeID" pairs. Each element may also hold
// several comma-separated pairs.
func ParseBindings(specs []string) (Bindings, error) {
	b := Bindings{}
	for _, spec := range specs {
		for _, pair := range strings.Split(spec, ",") {
			pair = strings.TrimSpace(pair)
			if pair == "" {
				continue
			}
			name, node, ok := strings.Cut(pair, "=")
			name = strings.TrimSpace(name)
			node = strings.TrimSpace(node)
			if !ok || name == "" || node == "" {
				return nil, fmt.Errorf("invalid binding %q, want name=nodeID", pair)
			}
			b[name] = node
		}
	}
	return b, nil
}

// Node returns the node identifier bound to a logical name.
func (b Bindings) Node(name string) (string, bool) {
	node, ok := b[name]
	return node, ok
}

// ImageNodes returns the node identifiers bound as "image", "image1",
// "image2", ... ordered by index. A bare "image" counts as "image1".
func (b Bindings) ImageNodes() []string {
	type slot struct {
		index int
		node  string
	}
	var slots []slot
	for name, node := range b {
		if !strings.HasPrefix(name, "image") {
			continue
		}
		index := 1
		if suffix := strings.TrimPrefix(name, "image"); suffix != "" {
			n, err := strconv.Atoi(suffix)
			if err != nil {
				continue
			}
			index = n
		}
		slots = append(slots, slot{index, node})
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].index < slots[j].index })
	nodes := make([]string, len(slots))
	for i, s := range slots {
		nodes[i] = s.node
	}
	return nodes
}

// Params are the per-run values applied through a Bindings mapping. Zero
// values mean "leave the workflow default alone", except Seed: when a seed
// binding exists, a nil Seed still applies a fresh random value.
type Params struct {
	Images []string
	Prompt string
	LoRA   string
	Seed   *int64
}

// Apply patches w in place according to the bindings. Image paths are matched
// to image bindings in index order; surplus paths are ignored. Bindings that
// target node identifiers absent from w are silently skipped, like the
// underlying patch helpers.
func (b Bindings) Apply(w Workflow, p Params, up Uploader) error {
	imageNodes := b.ImageNodes()
	for i, path := range p.Images {
		if i >= len(imageNodes) {
			break
		}
		if path == "" {
			continue
		}
		if err := SetImage(w, imageNodes[i], path, up); err != nil {
			return err
		}
	}
	if p.Prompt != "" {
		if node, ok := b["prompt"]; ok {
			SetPrompt(w, node, p.Prompt)
		}
	}
	if p.LoRA != "" {
		if node, ok := b["lora"]; ok {
			SetLoRA(w, node, p.LoRA)
		}
	}
	if node, ok := b["seed"]; ok {
		SetSeed(w, node, p.Seed)
	}
	return nil
}
