package client

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DataOutput is an artifact reference: a pointer to a server-side file,
// resolved to bytes with GetImage.
type DataOutput struct {
	Filename  string `json:"filename"`
	Subfolder string `json:"subfolder"`
	Type      string `json:"type"`
}

// UploadResult is the server-assigned location of an uploaded file. The
// filename may differ from the one provided when the server deduplicates.
type UploadResult struct {
	Filename  string
	Subfolder string
	Type      string
}

// SystemStats is the /system_stats payload.
type SystemStats struct {
	System  System   `json:"system"`
	Devices []Device `json:"devices"`
}

type System struct {
	OS             string `json:"os"`
	PythonVersion  string `json:"python_version"`
	EmbeddedPython bool   `json:"embedded_python"`
}

type Device struct {
	Name           string `json:"name"`
	Type           string `json:"type"`
	Index          int    `json:"index"`
	VRAMTotal      int64  `json:"vram_total"`
	VRAMFree       int64  `json:"vram_free"`
	TorchVRAMTotal int64  `json:"torch_vram_total"`
	TorchVRAMFree  int64  `json:"torch_vram_free"`
}

// History maps prompt identifier to the outputs recorded for that prompt.
// The event channel is only a liveness signal; history is the authoritative
// artifact list.
type History map[string]HistoryEntry

type HistoryEntry struct {
	Outputs NodeOutputs `json:"outputs"`
}

// NodeOutput holds the image artifact references one node produced.
type NodeOutput struct {
	Images []DataOutput `json:"images"`
}

// NodeOutputs preserves the server's node ordering. A plain map would lose
// the JSON object's key order, and the order artifacts are collected in
// follows it.
type NodeOutputs struct {
	Order []string
	Nodes map[string]NodeOutput
}

func (o *NodeOutputs) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("outputs: expected object, got %v", tok)
	}

	o.Nodes = make(map[string]NodeOutput)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("outputs: expected node id, got %v", keyTok)
		}
		var out NodeOutput
		if err := dec.Decode(&out); err != nil {
			return err
		}
		o.Order = append(o.Order, key)
		o.Nodes[key] = out
	}
	// closing brace
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

func (o NodeOutputs) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.Nodes)
}
